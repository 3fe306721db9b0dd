package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsurugroups/wa-platform/internal/gateway"
)

// QR codes rotate on the gateway roughly once a minute.
const qrTTL = 60 * time.Second

// Manager drives the instance connection lifecycle:
// disconnected → connecting → qr_code|pairing_code → connected.
// Every gateway response it acts on flows through the store, never the other
// way around.
type Manager struct {
	Store   *Store
	Gateway gateway.API
}

func NewManager(store *Store, gw gateway.API) *Manager {
	return &Manager{Store: store, Gateway: gw}
}

func (m *Manager) ref(in *Instance) gateway.InstanceRef {
	return gateway.InstanceRef{
		BaseURL:    in.GatewayURL,
		Token:      in.APIKey,
		Name:       in.Name,
		SystemName: in.SystemName,
	}
}

// CreateInstance enforces the plan quota, provisions the remote instance, and
// stores the gateway-issued token. A gateway failure leaves the local row in
// its initial disconnected state; the next connect retries provisioning
// implicitly.
func (m *Manager) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error) {
	in, err := m.Store.CreateInstance(ctx, req)
	if err != nil {
		return nil, err
	}

	init, err := m.Gateway.CreateInstance(ctx, m.ref(in))
	if err != nil {
		logrus.WithFields(logrus.Fields{"instance_id": in.ID, "error": err.Error()}).
			Warn("gateway instance init failed")
		return in, nil
	}
	if tok := init.AssignedToken(); tok != "" {
		in.APIKey = tok
		if err := m.Store.SaveInstance(ctx, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// Connect initiates the gateway handshake. The phone number is only passed
// along for pairing-code connects; QR connects send an empty payload.
func (m *Manager) Connect(ctx context.Context, in *Instance) (*Instance, error) {
	phone := ""
	if in.ConnectionMethod == MethodPairingCode && in.WhatsAppNumber != "" {
		phone = in.WhatsAppNumber
	}

	res, err := m.Gateway.ConnectInstance(ctx, m.ref(in), phone)
	if err != nil {
		return in, err
	}

	in.Status = StatusConnecting
	if pair := res.Pair(); pair != "" {
		in.PairingCode = pair
		in.Status = StatusPairingCode
	} else if qr := res.QR(); qr != "" {
		in.QRCode = qr
		exp := time.Now().Add(qrTTL)
		in.QRCodeExpiresAt = &exp
		in.Status = StatusQRCode
	}

	if err := m.Store.SaveInstance(ctx, in); err != nil {
		return in, err
	}
	logrus.WithFields(logrus.Fields{"instance_id": in.ID, "status": in.Status}).Info("instance connect initiated")
	return in, nil
}

func (m *Manager) Disconnect(ctx context.Context, in *Instance) (*Instance, error) {
	if _, err := m.Gateway.DisconnectInstance(ctx, m.ref(in)); err != nil {
		return in, err
	}

	now := time.Now()
	in.Status = StatusDisconnected
	in.PhoneNumber = ""
	in.QRCode = ""
	in.QRCodeExpiresAt = nil
	in.PairingCode = ""
	in.LastDisconnectedAt = &now

	if err := m.Store.SaveInstance(ctx, in); err != nil {
		return in, err
	}
	logrus.WithField("instance_id", in.ID).Info("instance disconnected")
	return in, nil
}

// Delete removes the instance. The remote delete is best-effort: local state
// is authoritative for deletion, so a gateway failure only gets logged.
func (m *Manager) Delete(ctx context.Context, in *Instance) error {
	if _, err := m.Gateway.DeleteInstance(ctx, m.ref(in)); err != nil {
		logrus.WithFields(logrus.Fields{"instance_id": in.ID, "error": err.Error()}).
			Warn("remote instance delete failed, removing locally anyway")
	}
	return m.Store.DeleteInstance(ctx, in.ID)
}

// SetupWebhook registers the callback URL with the gateway and remembers it
// locally on success.
func (m *Manager) SetupWebhook(ctx context.Context, in *Instance, webhookURL string) error {
	if err := m.Gateway.SetupWebhook(ctx, m.ref(in), webhookURL); err != nil {
		return err
	}
	in.WebhookURL = webhookURL
	return m.Store.SaveInstance(ctx, in)
}
