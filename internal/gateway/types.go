package gateway

import "encoding/json"

// InstanceRef is the slice of a stored instance the client needs to reach the
// gateway: where to call and which per-instance token to present.
type InstanceRef struct {
	BaseURL    string
	Token      string
	Name       string
	SystemName string
}

// The structs below mirror the gateway's JSON verbatim. Field names such as
// JID, OwnerJID and GroupCreated must not be renamed; they are the upstream
// wire format. Every field is optional on the wire and defaults to its zero
// value when absent.

type Group struct {
	JID                    string        `json:"JID"`
	Name                   string        `json:"Name"`
	Topic                  string        `json:"Topic"`
	OwnerJID               string        `json:"OwnerJID"`
	OwnerIsAdmin           bool          `json:"OwnerIsAdmin"`
	IsLocked               bool          `json:"IsLocked"`
	IsAnnounce             bool          `json:"IsAnnounce"`
	IsEphemeral            bool          `json:"IsEphemeral"`
	DisappearingTimer      int           `json:"DisappearingTimer"`
	IsJoinApprovalRequired bool          `json:"IsJoinApprovalRequired"`
	GroupCreated           string        `json:"GroupCreated"`
	CreatorCountryCode     string        `json:"CreatorCountryCode"`
	AnnounceVersionID      string        `json:"AnnounceVersionID"`
	ParticipantVersionID   string        `json:"ParticipantVersionID"`
	MemberAddMode          string        `json:"MemberAddMode"`
	Participants           []Participant `json:"Participants"`
}

type Participant struct {
	JID          string `json:"JID"`
	LID          string `json:"LID"`
	PhoneNumber  string `json:"PhoneNumber"`
	DisplayName  string `json:"DisplayName"`
	IsAdmin      bool   `json:"IsAdmin"`
	IsSuperAdmin bool   `json:"IsSuperAdmin"`
	Error        int    `json:"Error"`
}

type Contact struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsBusiness        bool   `json:"isBusiness"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// InstanceState is the gateway's view of one connection. Depending on the
// endpoint it arrives at the top level or nested under "instance".
type InstanceState struct {
	Status            string `json:"status"`
	Owner             string `json:"owner"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	QRCode            string `json:"qrcode"`
	PairCode          string `json:"paircode"`
	Token             string `json:"token"`
}

type InitResult struct {
	Token    string        `json:"token"`
	Instance InstanceState `json:"instance"`
}

// AssignedToken returns the gateway-issued token wherever the gateway put it.
func (r InitResult) AssignedToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Instance.Token
}

type ConnectResult struct {
	Connected bool          `json:"connected"`
	QRCode    string        `json:"qrcode"`
	PairCode  string        `json:"paircode"`
	Instance  InstanceState `json:"instance"`
}

func (r ConnectResult) QR() string {
	if r.QRCode != "" {
		return r.QRCode
	}
	return r.Instance.QRCode
}

func (r ConnectResult) Pair() string {
	if r.PairCode != "" {
		return r.PairCode
	}
	return r.Instance.PairCode
}

type StatusResult struct {
	Instance InstanceState `json:"instance"`
}

// Raw is an uninterpreted gateway response echoed back to callers.
type Raw = json.RawMessage
