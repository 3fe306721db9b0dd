package core

import (
	"time"
)

// Instance statuses. A fresh instance starts disconnected; connect moves it
// through connecting into qr_code or pairing_code depending on what the
// gateway hands back; status sync settles it into connected or back to
// disconnected. Nothing leaves error except a fresh connect.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusQRCode       = "qr_code"
	StatusPairingCode  = "pairing_code"
	StatusError        = "error"
)

const (
	MethodQRCode      = "qr_code"
	MethodPairingCode = "pairing_code"
)

type Instance struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`

	Name       string `json:"name"`
	SystemName string `json:"system_name"`

	// Number the user wants paired, with country code. Only used for
	// pairing-code connects.
	WhatsAppNumber string `json:"whatsapp_number,omitempty"`

	// Stamped from process config on every save, never from caller input.
	GatewayURL string `json:"-"`
	APIKey     string `json:"-"`

	Status           string `json:"status"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	ConnectionMethod string `json:"connection_method"`

	QRCode          string     `json:"qr_code,omitempty"`
	QRCodeExpiresAt *time.Time `json:"qr_code_expires_at,omitempty"`
	PairingCode     string     `json:"pairing_code,omitempty"`

	LastConnectedAt    *time.Time `json:"last_connected_at,omitempty"`
	LastDisconnectedAt *time.Time `json:"last_disconnected_at,omitempty"`

	IsActive   bool   `json:"is_active"`
	WebhookURL string `json:"webhook_url,omitempty"`

	MessagesSent     int `json:"messages_sent"`
	MessagesReceived int `json:"messages_received"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Instance) IsConnected() bool { return i.Status == StatusConnected }

type Group struct {
	ID         int64  `json:"id"`
	InstanceID string `json:"instance_id"`

	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	ParticipantCount int  `json:"participant_count"`
	IsAdmin          bool `json:"is_admin"`

	OwnerJID         string `json:"owner_jid,omitempty"`
	OwnerPhoneNumber string `json:"owner_phone_number,omitempty"`

	IsLocked               bool `json:"is_locked"`
	IsAnnounce             bool `json:"is_announce"`
	IsEphemeral            bool `json:"is_ephemeral"`
	DisappearingTimer      int  `json:"disappearing_timer"`
	IsJoinApprovalRequired bool `json:"is_join_approval_required"`

	GroupCreated       *time.Time `json:"group_created,omitempty"`
	CreatorCountryCode string     `json:"creator_country_code,omitempty"`

	AnnounceVersionID    string `json:"announce_version_id,omitempty"`
	ParticipantVersionID string `json:"participant_version_id,omitempty"`

	InviteLink    string `json:"invite_link,omitempty"`
	MemberAddMode string `json:"member_add_mode"`

	IsActive     bool       `json:"is_active"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type GroupParticipant struct {
	ID      int64 `json:"id"`
	GroupID int64 `json:"group_id"`

	JID         string `json:"jid"`
	PhoneNumber string `json:"phone_number,omitempty"`
	LID         string `json:"lid,omitempty"`
	DisplayName string `json:"display_name,omitempty"`

	IsAdmin      bool `json:"is_admin"`
	IsSuperAdmin bool `json:"is_super_admin"`

	ErrorCode int  `json:"error_code"`
	IsActive  bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Contact struct {
	ID         int64  `json:"id"`
	InstanceID string `json:"instance_id"`

	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name,omitempty"`

	IsBusiness        bool   `json:"is_business"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`

	IsBlocked bool `json:"is_blocked"`
	IsActive  bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageRecord is an audit row for one send/receive event. Immutable after
// creation apart from delivery timestamps.
type MessageRecord struct {
	ID         int64  `json:"id"`
	InstanceID string `json:"instance_id"`

	MessageID   string `json:"message_id"`
	MessageType string `json:"message_type"` // text, image, video, audio, document, sticker, location, contact, menu, poll, list
	Content     string `json:"content"`

	Direction   string `json:"direction"` // inbound | outbound
	PhoneNumber string `json:"phone_number"`
	ContactName string `json:"contact_name,omitempty"`

	GroupID *int64 `json:"group_id,omitempty"`

	Status string `json:"status"` // pending, sent, delivered, read, failed

	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Campaign statuses follow pending → scheduled → sending → sent|failed|cancelled.
const (
	CampaignPending   = "pending"
	CampaignScheduled = "scheduled"
	CampaignSending   = "sending"
	CampaignSent      = "sent"
	CampaignFailed    = "failed"
	CampaignCancelled = "cancelled"
)

// ScheduledMessage is the campaign record an external dispatch worker
// consumes. This core only creates it and hands its id to the queue; delay
// and recipient fields are never interpreted here.
type ScheduledMessage struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	InstanceID string `json:"instance_id"`

	Name           string `json:"name"`
	MessageContent string `json:"message_content"`

	RecipientType string   `json:"recipient_type"` // groups | contacts | mixed
	Recipients    []string `json:"recipients"`

	ScheduleAt time.Time `json:"schedule_at"`
	DelayMin   int       `json:"delay_min"` // seconds, >= 1
	DelayMax   int       `json:"delay_max"` // seconds, >= 1

	Status          string `json:"status"`
	TotalRecipients int    `json:"total_recipients"`
	MessagesSent    int    `json:"messages_sent"`
	MessagesFailed  int    `json:"messages_failed"`

	JobID        string `json:"job_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpResult is one operation's outcome inside a batched sync. Failures stay
// per-item; one operation failing never aborts its siblings.
type OpResult struct {
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Count  int    `json:"count,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
