package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tsurugroups/wa-platform/internal/db"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrInstanceLimit = errors.New("instance_limit_reached")
	ErrNotConnected  = errors.New("instance_not_connected")
)

// GatewayDefaults is the process-wide gateway configuration stamped onto
// every instance at save time. Callers never set these fields directly.
type GatewayDefaults struct {
	URL        string
	AdminToken string
}

type Store struct {
	DB       *db.DB
	Gateway  GatewayDefaults
	MaxInsts int // fallback concurrent-instance limit absent a plan row
}

type CreateInstanceRequest struct {
	AccountID        string
	Name             string
	ConnectionMethod string
	WhatsAppNumber   string
}

const instanceCols = `id, account_id, name, system_name, whatsapp_number, gateway_url, api_key,
	status, phone_number, connection_method, qr_code, qr_code_expires_at, pairing_code,
	last_connected_at, last_disconnected_at, is_active, webhook_url,
	messages_sent, messages_received, created_at, updated_at`

func scanInstance(row pgx.Row) (*Instance, error) {
	var in Instance
	err := row.Scan(&in.ID, &in.AccountID, &in.Name, &in.SystemName, &in.WhatsAppNumber,
		&in.GatewayURL, &in.APIKey, &in.Status, &in.PhoneNumber, &in.ConnectionMethod,
		&in.QRCode, &in.QRCodeExpiresAt, &in.PairingCode,
		&in.LastConnectedAt, &in.LastDisconnectedAt, &in.IsActive, &in.WebhookURL,
		&in.MessagesSent, &in.MessagesReceived, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// InstanceLimit resolves the account's concurrent-instance quota from its
// plan row, falling back to the configured default (1) when the billing
// system has written none.
func (s *Store) InstanceLimit(ctx context.Context, accountID string) (int, error) {
	var limit int
	err := s.DB.Pool.QueryRow(ctx,
		`SELECT max_instances FROM account_plans WHERE account_id=$1 AND is_active`, accountID).Scan(&limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.MaxInsts, nil
	}
	if err != nil {
		return 0, err
	}
	return limit, nil
}

// CreateInstance rejects the request without inserting when the account is at
// its quota. system_name is generated here, once; it never changes afterwards.
func (s *Store) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error) {
	limit, err := s.InstanceLimit(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	method := req.ConnectionMethod
	if method == "" {
		method = MethodQRCode
	}
	systemName := fmt.Sprintf("tsuru_%s_%s", req.AccountID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	var inst *Instance
	err = s.DB.WithTx(ctx, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM instances WHERE account_id=$1 AND is_active`, req.AccountID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return ErrInstanceLimit
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO instances (account_id, name, system_name, whatsapp_number, gateway_url, api_key, connection_method)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING `+instanceCols,
			req.AccountID, req.Name, systemName, req.WhatsAppNumber,
			s.Gateway.URL, s.Gateway.AdminToken, method)
		var scanErr error
		inst, scanErr = scanInstance(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (*Instance, error) {
	row := s.DB.Pool.QueryRow(ctx, `SELECT `+instanceCols+` FROM instances WHERE id=$1`, id)
	return scanInstance(row)
}

func (s *Store) GetInstanceForAccount(ctx context.Context, id, accountID string) (*Instance, error) {
	row := s.DB.Pool.QueryRow(ctx,
		`SELECT `+instanceCols+` FROM instances WHERE id=$1 AND account_id=$2`, id, accountID)
	return scanInstance(row)
}

func (s *Store) ListInstances(ctx context.Context, accountID string) ([]Instance, error) {
	rows, err := s.DB.Pool.Query(ctx,
		`SELECT `+instanceCols+` FROM instances WHERE account_id=$1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// SaveInstance writes back every mutable field. system_name is deliberately
// absent from the UPDATE, and gateway_url is re-stamped from process config
// on every save regardless of what the struct carries.
func (s *Store) SaveInstance(ctx context.Context, in *Instance) error {
	in.GatewayURL = s.Gateway.URL
	tag, err := s.DB.Pool.Exec(ctx, `
		UPDATE instances SET
			name=$2, whatsapp_number=$3, gateway_url=$4, api_key=$5,
			status=$6, phone_number=$7, connection_method=$8,
			qr_code=$9, qr_code_expires_at=$10, pairing_code=$11,
			last_connected_at=$12, last_disconnected_at=$13,
			is_active=$14, webhook_url=$15,
			messages_sent=$16, messages_received=$17,
			updated_at=now()
		WHERE id=$1`,
		in.ID, in.Name, in.WhatsAppNumber, in.GatewayURL, in.APIKey,
		in.Status, in.PhoneNumber, in.ConnectionMethod,
		in.QRCode, in.QRCodeExpiresAt, in.PairingCode,
		in.LastConnectedAt, in.LastDisconnectedAt,
		in.IsActive, in.WebhookURL,
		in.MessagesSent, in.MessagesReceived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	tag, err := s.DB.Pool.Exec(ctx, `DELETE FROM instances WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IncrementMessagesSent(ctx context.Context, instanceID string) error {
	_, err := s.DB.Pool.Exec(ctx,
		`UPDATE instances SET messages_sent = messages_sent + 1, updated_at=now() WHERE id=$1`, instanceID)
	return err
}

// UpsertGroup merges one gateway-reported group into the mirror, keyed by
// (instance_id, group_id). Returns the row id for participant upserts.
func (s *Store) UpsertGroup(ctx context.Context, g *Group) (int64, error) {
	var id int64
	err := s.DB.Pool.QueryRow(ctx, `
		INSERT INTO groups (instance_id, group_id, name, description, participant_count, is_admin,
			owner_jid, owner_phone_number, is_locked, is_announce, is_ephemeral,
			disappearing_timer, is_join_approval_required, group_created, creator_country_code,
			announce_version_id, participant_version_id, invite_link, member_add_mode,
			is_active, last_synced_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,TRUE,$20)
		ON CONFLICT (instance_id, group_id) DO UPDATE SET
			name=EXCLUDED.name, description=EXCLUDED.description,
			participant_count=EXCLUDED.participant_count, is_admin=EXCLUDED.is_admin,
			owner_jid=EXCLUDED.owner_jid, owner_phone_number=EXCLUDED.owner_phone_number,
			is_locked=EXCLUDED.is_locked, is_announce=EXCLUDED.is_announce,
			is_ephemeral=EXCLUDED.is_ephemeral, disappearing_timer=EXCLUDED.disappearing_timer,
			is_join_approval_required=EXCLUDED.is_join_approval_required,
			group_created=EXCLUDED.group_created, creator_country_code=EXCLUDED.creator_country_code,
			announce_version_id=EXCLUDED.announce_version_id,
			participant_version_id=EXCLUDED.participant_version_id,
			invite_link=EXCLUDED.invite_link, member_add_mode=EXCLUDED.member_add_mode,
			is_active=TRUE, last_synced_at=EXCLUDED.last_synced_at, updated_at=now()
		RETURNING id`,
		g.InstanceID, g.GroupID, g.Name, g.Description, g.ParticipantCount, g.IsAdmin,
		g.OwnerJID, g.OwnerPhoneNumber, g.IsLocked, g.IsAnnounce, g.IsEphemeral,
		g.DisappearingTimer, g.IsJoinApprovalRequired, g.GroupCreated, g.CreatorCountryCode,
		g.AnnounceVersionID, g.ParticipantVersionID, g.InviteLink, g.MemberAddMode,
		g.LastSyncedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	g.ID = id
	return id, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, p *GroupParticipant) error {
	_, err := s.DB.Pool.Exec(ctx, `
		INSERT INTO group_participants (group_id, jid, phone_number, lid, display_name,
			is_admin, is_super_admin, error_code, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE)
		ON CONFLICT (group_id, jid) DO UPDATE SET
			phone_number=EXCLUDED.phone_number, lid=EXCLUDED.lid,
			display_name=EXCLUDED.display_name, is_admin=EXCLUDED.is_admin,
			is_super_admin=EXCLUDED.is_super_admin, error_code=EXCLUDED.error_code,
			is_active=TRUE, updated_at=now()`,
		p.GroupID, p.JID, p.PhoneNumber, p.LID, p.DisplayName,
		p.IsAdmin, p.IsSuperAdmin, p.ErrorCode)
	return err
}

func (s *Store) UpsertContact(ctx context.Context, c *Contact) error {
	_, err := s.DB.Pool.Exec(ctx, `
		INSERT INTO contacts (instance_id, phone_number, name, is_business, profile_picture_url, is_active)
		VALUES ($1,$2,$3,$4,$5,TRUE)
		ON CONFLICT (instance_id, phone_number) DO UPDATE SET
			name=EXCLUDED.name, is_business=EXCLUDED.is_business,
			profile_picture_url=EXCLUDED.profile_picture_url,
			is_active=TRUE, updated_at=now()`,
		c.InstanceID, c.PhoneNumber, c.Name, c.IsBusiness, c.ProfilePictureURL)
	return err
}

func (s *Store) ListGroups(ctx context.Context, instanceID string) ([]Group, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, instance_id, group_id, name, description, participant_count, is_admin,
			owner_jid, owner_phone_number, is_locked, is_announce, is_ephemeral,
			disappearing_timer, is_join_approval_required, group_created, creator_country_code,
			announce_version_id, participant_version_id, invite_link, member_add_mode,
			is_active, last_synced_at, created_at, updated_at
		FROM groups WHERE instance_id=$1 ORDER BY name`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.InstanceID, &g.GroupID, &g.Name, &g.Description,
			&g.ParticipantCount, &g.IsAdmin, &g.OwnerJID, &g.OwnerPhoneNumber,
			&g.IsLocked, &g.IsAnnounce, &g.IsEphemeral, &g.DisappearingTimer,
			&g.IsJoinApprovalRequired, &g.GroupCreated, &g.CreatorCountryCode,
			&g.AnnounceVersionID, &g.ParticipantVersionID, &g.InviteLink, &g.MemberAddMode,
			&g.IsActive, &g.LastSyncedAt, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListParticipants(ctx context.Context, groupRowID int64) ([]GroupParticipant, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, group_id, jid, phone_number, lid, display_name,
			is_admin, is_super_admin, error_code, is_active, created_at, updated_at
		FROM group_participants WHERE group_id=$1 ORDER BY jid`, groupRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupParticipant
	for rows.Next() {
		var p GroupParticipant
		if err := rows.Scan(&p.ID, &p.GroupID, &p.JID, &p.PhoneNumber, &p.LID, &p.DisplayName,
			&p.IsAdmin, &p.IsSuperAdmin, &p.ErrorCode, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListContacts(ctx context.Context, instanceID string) ([]Contact, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, instance_id, phone_number, name, is_business, profile_picture_url,
			is_blocked, is_active, created_at, updated_at
		FROM contacts WHERE instance_id=$1 ORDER BY phone_number`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.InstanceID, &c.PhoneNumber, &c.Name, &c.IsBusiness,
			&c.ProfilePictureURL, &c.IsBlocked, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordMessage appends one audit row for a send/receive event.
func (s *Store) RecordMessage(ctx context.Context, m *MessageRecord) error {
	return s.DB.Pool.QueryRow(ctx, `
		INSERT INTO messages (instance_id, message_id, message_type, content, direction,
			phone_number, contact_name, group_row_id, status, media_url, media_type, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		m.InstanceID, m.MessageID, m.MessageType, m.Content, m.Direction,
		m.PhoneNumber, m.ContactName, m.GroupID, m.Status, m.MediaURL, m.MediaType, m.SentAt).
		Scan(&m.ID)
}

func (s *Store) MarkMessageDelivered(ctx context.Context, messageID string, at time.Time) error {
	_, err := s.DB.Pool.Exec(ctx,
		`UPDATE messages SET status='delivered', delivered_at=$2 WHERE message_id=$1`, messageID, at)
	return err
}

func (s *Store) ListMessages(ctx context.Context, instanceID string, limit, offset int) ([]MessageRecord, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, instance_id, message_id, message_type, content, direction,
			phone_number, contact_name, group_row_id, status, media_url, media_type,
			sent_at, delivered_at, read_at, created_at
		FROM messages WHERE instance_id=$1
		ORDER BY sent_at DESC LIMIT $2 OFFSET $3`, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.InstanceID, &m.MessageID, &m.MessageType, &m.Content,
			&m.Direction, &m.PhoneNumber, &m.ContactName, &m.GroupID, &m.Status,
			&m.MediaURL, &m.MediaType, &m.SentAt, &m.DeliveredAt, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateScheduledMessage persists a campaign record for the external dispatch
// worker. Delay and recipient fields are stored untouched.
func (s *Store) CreateScheduledMessage(ctx context.Context, sm *ScheduledMessage) error {
	recipients, err := json.Marshal(sm.Recipients)
	if err != nil {
		return err
	}
	return s.DB.Pool.QueryRow(ctx, `
		INSERT INTO scheduled_messages (account_id, instance_id, name, message_content,
			recipient_type, recipients, schedule_at, delay_min, delay_max, total_recipients)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, status, created_at, updated_at`,
		sm.AccountID, sm.InstanceID, sm.Name, sm.MessageContent,
		sm.RecipientType, recipients, sm.ScheduleAt, sm.DelayMin, sm.DelayMax, len(sm.Recipients)).
		Scan(&sm.ID, &sm.Status, &sm.CreatedAt, &sm.UpdatedAt)
}

func (s *Store) GetScheduledMessage(ctx context.Context, id, accountID string) (*ScheduledMessage, error) {
	var sm ScheduledMessage
	var recipients []byte
	err := s.DB.Pool.QueryRow(ctx, `
		SELECT id, account_id, instance_id, name, message_content, recipient_type, recipients,
			schedule_at, delay_min, delay_max, status, total_recipients,
			messages_sent, messages_failed, job_id, error_message, created_at, updated_at
		FROM scheduled_messages WHERE id=$1 AND account_id=$2`, id, accountID).
		Scan(&sm.ID, &sm.AccountID, &sm.InstanceID, &sm.Name, &sm.MessageContent,
			&sm.RecipientType, &recipients, &sm.ScheduleAt, &sm.DelayMin, &sm.DelayMax,
			&sm.Status, &sm.TotalRecipients, &sm.MessagesSent, &sm.MessagesFailed,
			&sm.JobID, &sm.ErrorMessage, &sm.CreatedAt, &sm.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recipients, &sm.Recipients); err != nil {
		return nil, err
	}
	return &sm, nil
}

// MarkScheduled stamps the queue handle once the campaign has been handed off.
func (s *Store) MarkScheduled(ctx context.Context, id, jobID string) error {
	_, err := s.DB.Pool.Exec(ctx, `
		UPDATE scheduled_messages SET status=$2, job_id=$3, updated_at=now()
		WHERE id=$1 AND status=$4`, id, CampaignScheduled, jobID, CampaignPending)
	return err
}

// CancelScheduledMessage only succeeds while the campaign is still pending or
// scheduled; anything past that has already left this system's hands.
func (s *Store) CancelScheduledMessage(ctx context.Context, id, accountID string) error {
	tag, err := s.DB.Pool.Exec(ctx, `
		UPDATE scheduled_messages SET status=$3, updated_at=now()
		WHERE id=$1 AND account_id=$2 AND status IN ($4,$5)`,
		id, accountID, CampaignCancelled, CampaignPending, CampaignScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
