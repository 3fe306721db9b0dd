package gateway

import (
	"context"
	"encoding/json"
	"sync"
)

// Dummy is an in-memory gateway used by tests and local development. Each
// response field can be preloaded; Err, when set, is returned by every call.
type Dummy struct {
	mu sync.Mutex

	Err      *Error
	State    InstanceState
	Groups   []Group
	Contacts []Contact
	QRCode   string
	PairCode string

	Calls []string
}

var _ API = (*Dummy)(nil)

func NewDummy() *Dummy { return &Dummy{} }

func (d *Dummy) record(op string) *Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, op)
	return d.Err
}

func ok() Raw { return json.RawMessage(`{"status":"ok"}`) }

func (d *Dummy) CreateInstance(ctx context.Context, ref InstanceRef) (InitResult, error) {
	if err := d.record("init"); err != nil {
		return InitResult{}, err
	}
	return InitResult{Token: "dummy-token", Instance: d.State}, nil
}

func (d *Dummy) ConnectInstance(ctx context.Context, ref InstanceRef, phone string) (ConnectResult, error) {
	if err := d.record("connect"); err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{QRCode: d.QRCode, PairCode: d.PairCode, Instance: d.State}, nil
}

func (d *Dummy) DisconnectInstance(ctx context.Context, ref InstanceRef) (Raw, error) {
	if err := d.record("disconnect"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) DeleteInstance(ctx context.Context, ref InstanceRef) (Raw, error) {
	if err := d.record("delete"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) Status(ctx context.Context, ref InstanceRef) (StatusResult, error) {
	if err := d.record("status"); err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Instance: d.State}, nil
}

func (d *Dummy) SendText(ctx context.Context, ref InstanceRef, number, text, quoteID string) (Raw, error) {
	if err := d.record("send_text"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SendMenu(ctx context.Context, ref InstanceRef, number, text string, options []string, menuType string) (Raw, error) {
	if err := d.record("send_menu"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SendMedia(ctx context.Context, ref InstanceRef, number, text, mediaURL, mediaType, quoteID string) (Raw, error) {
	if err := d.record("send_media"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SendLocation(ctx context.Context, ref InstanceRef, number, name, address string, latitude, longitude float64) (Raw, error) {
	if err := d.record("send_location"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SendContact(ctx context.Context, ref InstanceRef, number, fullName, phoneNumber string) (Raw, error) {
	if err := d.record("send_contact"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SendBulk(ctx context.Context, ref InstanceRef, recipients []string, message, campaignName string, delayMin, delayMax int) (Raw, error) {
	if err := d.record("send_bulk"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) GetGroups(ctx context.Context, ref InstanceRef) ([]Group, error) {
	if err := d.record("get_groups"); err != nil {
		return nil, err
	}
	return d.Groups, nil
}

func (d *Dummy) GetGroupInfo(ctx context.Context, ref InstanceRef, groupJID string) (Raw, error) {
	if err := d.record("get_group_info"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) GetContacts(ctx context.Context, ref InstanceRef) ([]Contact, error) {
	if err := d.record("get_contacts"); err != nil {
		return nil, err
	}
	return d.Contacts, nil
}

func (d *Dummy) GetContactInfo(ctx context.Context, ref InstanceRef, number string) (Raw, error) {
	if err := d.record("get_contact_info"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) ValidateNumbers(ctx context.Context, ref InstanceRef, numbers []string) (Raw, error) {
	if err := d.record("validate_numbers"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SetAnnounce(ctx context.Context, ref InstanceRef, groupJID string, announce bool) (Raw, error) {
	if err := d.record("set_announce"); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (d *Dummy) SetupWebhook(ctx context.Context, ref InstanceRef, webhookURL string) error {
	if err := d.record("setup_webhook"); err != nil {
		return err
	}
	return nil
}
