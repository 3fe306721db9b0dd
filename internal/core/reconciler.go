package core

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsurugroups/wa-platform/internal/gateway"
	"github.com/tsurugroups/wa-platform/internal/metrics"
)

// Reconciler merges gateway snapshots into the local mirror with
// upsert-by-natural-key semantics. It is additive: participants or contacts
// that disappear upstream are never pruned here, only overwritten when they
// reappear.
type Reconciler struct {
	Store   *Store
	Gateway gateway.API
}

func NewReconciler(store *Store, gw gateway.API) *Reconciler {
	return &Reconciler{Store: store, Gateway: gw}
}

const userSuffix = "@s.whatsapp.net"

// PhoneFromJID strips the user-JID suffix; anything else (group JIDs, LIDs)
// passes through empty.
func PhoneFromJID(jid string) string {
	if strings.Contains(jid, userSuffix) {
		return strings.ReplaceAll(jid, userSuffix, "")
	}
	return ""
}

// ParseGroupCreated tolerates whatever the gateway puts in GroupCreated:
// RFC3339 with or without zone, or garbage. Garbage maps to nil, never an
// error; one bad timestamp must not sink the group.
func ParseGroupCreated(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// OwnerIsAdmin resolves group adminship for the owner: the explicit flag
// wins, otherwise the owner's own participant entry is consulted for
// admin/super-admin.
func OwnerIsAdmin(g gateway.Group) bool {
	if g.OwnerIsAdmin {
		return true
	}
	if g.OwnerJID == "" {
		return false
	}
	for _, p := range g.Participants {
		if p.JID == g.OwnerJID && (p.IsAdmin || p.IsSuperAdmin) {
			return true
		}
	}
	return false
}

// SyncGroups pulls the group list and upserts each group and its
// participants. Returns the number of groups processed; a gateway error
// payload processes zero groups. Participants without a JID are skipped.
func (r *Reconciler) SyncGroups(ctx context.Context, in *Instance) (int, error) {
	groups, err := r.Gateway.GetGroups(ctx, r.ref(in))
	if err != nil {
		logrus.WithFields(logrus.Fields{"instance_id": in.ID, "error": err.Error()}).
			Warn("group list fetch failed")
		metrics.SyncRuns.WithLabelValues("groups", "error").Inc()
		return 0, err
	}

	synced := 0
	now := time.Now()
	for _, gd := range groups {
		ownerPhone := PhoneFromJID(gd.OwnerJID)

		g := &Group{
			InstanceID:             in.ID,
			GroupID:                gd.JID,
			Name:                   gd.Name,
			Description:            gd.Topic,
			ParticipantCount:       len(gd.Participants),
			IsAdmin:                OwnerIsAdmin(gd),
			OwnerJID:               gd.OwnerJID,
			OwnerPhoneNumber:       ownerPhone,
			IsLocked:               gd.IsLocked,
			IsAnnounce:             gd.IsAnnounce,
			IsEphemeral:            gd.IsEphemeral,
			DisappearingTimer:      gd.DisappearingTimer,
			IsJoinApprovalRequired: gd.IsJoinApprovalRequired,
			GroupCreated:           ParseGroupCreated(gd.GroupCreated),
			CreatorCountryCode:     gd.CreatorCountryCode,
			AnnounceVersionID:      gd.AnnounceVersionID,
			ParticipantVersionID:   gd.ParticipantVersionID,
			MemberAddMode:          memberAddMode(gd.MemberAddMode),
			LastSyncedAt:           &now,
		}
		groupRowID, err := r.Store.UpsertGroup(ctx, g)
		if err != nil {
			logrus.WithFields(logrus.Fields{"instance_id": in.ID, "group_jid": gd.JID, "error": err.Error()}).
				Warn("group upsert failed")
			continue
		}

		for _, pd := range gd.Participants {
			if pd.JID == "" {
				continue
			}
			phone := PhoneFromJID(pd.JID)
			if phone == "" && pd.PhoneNumber != "" {
				phone = strings.ReplaceAll(pd.PhoneNumber, userSuffix, "")
			}
			p := &GroupParticipant{
				GroupID:      groupRowID,
				JID:          pd.JID,
				PhoneNumber:  phone,
				LID:          pd.LID,
				DisplayName:  pd.DisplayName,
				IsAdmin:      pd.IsAdmin,
				IsSuperAdmin: pd.IsSuperAdmin,
				ErrorCode:    pd.Error,
			}
			if err := r.Store.UpsertParticipant(ctx, p); err != nil {
				logrus.WithFields(logrus.Fields{"group_jid": gd.JID, "jid": pd.JID, "error": err.Error()}).
					Warn("participant upsert failed")
				continue
			}
			metrics.SyncedEntities.WithLabelValues("participant").Inc()
		}

		metrics.SyncedEntities.WithLabelValues("group").Inc()
		synced++
	}
	metrics.SyncRuns.WithLabelValues("groups", "ok").Inc()
	return synced, nil
}

func memberAddMode(v string) string {
	if v == "" {
		return "all_member_add"
	}
	return v
}

// SyncContacts upserts the contact list keyed by (instance, phone_number).
// An error payload from the gateway processes zero contacts.
func (r *Reconciler) SyncContacts(ctx context.Context, in *Instance) (int, error) {
	contacts, err := r.Gateway.GetContacts(ctx, r.ref(in))
	if err != nil {
		logrus.WithFields(logrus.Fields{"instance_id": in.ID, "error": err.Error()}).
			Warn("contact list fetch failed")
		metrics.SyncRuns.WithLabelValues("contacts", "error").Inc()
		return 0, err
	}

	synced := 0
	for _, cd := range contacts {
		c := &Contact{
			InstanceID:        in.ID,
			PhoneNumber:       strings.ReplaceAll(cd.ID, "@c.us", ""),
			Name:              cd.Name,
			IsBusiness:        cd.IsBusiness,
			ProfilePictureURL: cd.ProfilePictureURL,
		}
		if err := r.Store.UpsertContact(ctx, c); err != nil {
			logrus.WithFields(logrus.Fields{"instance_id": in.ID, "phone": c.PhoneNumber, "error": err.Error()}).
				Warn("contact upsert failed")
			continue
		}
		metrics.SyncedEntities.WithLabelValues("contact").Inc()
		synced++
	}
	metrics.SyncRuns.WithLabelValues("contacts", "ok").Inc()
	return synced, nil
}

// SyncStatus maps the gateway's view of the connection onto the local row.
// A QR code in the response forces qr_code over whatever the status string
// said, unless the instance is already connected; the status strings the
// gateway emits are too loose to trust over concrete connection artifacts.
func (r *Reconciler) SyncStatus(ctx context.Context, in *Instance) (*Instance, error) {
	res, err := r.Gateway.Status(ctx, r.ref(in))
	if err != nil {
		metrics.SyncRuns.WithLabelValues("status", "error").Inc()
		return in, err
	}
	metrics.SyncRuns.WithLabelValues("status", "ok").Inc()

	st := res.Instance
	if st.Status == StatusConnected && in.Status == StatusConnected {
		return in, nil
	}

	switch st.Status {
	case "open", StatusConnected:
		if in.Status != StatusConnected {
			now := time.Now()
			in.LastConnectedAt = &now
		}
		in.Status = StatusConnected
		if st.Owner != "" {
			in.PhoneNumber = st.Owner
			in.WhatsAppNumber = st.Owner
		}
		in.QRCode = ""
		in.QRCodeExpiresAt = nil
		in.PairingCode = ""
	case StatusConnecting:
		in.Status = StatusConnecting
	default:
		in.Status = StatusDisconnected
	}

	if st.QRCode != "" && in.Status != StatusConnected {
		in.QRCode = st.QRCode
		in.Status = StatusQRCode
	}

	if err := r.Store.SaveInstance(ctx, in); err != nil {
		return in, err
	}
	return in, nil
}

// SyncAll runs status, group, and contact sync for one instance, isolating
// each operation: a failing contact fetch never blocks the group sync that
// ran beside it. Outcomes are collected per operation.
func (r *Reconciler) SyncAll(ctx context.Context, in *Instance) []OpResult {
	var results []OpResult

	if _, err := r.SyncStatus(ctx, in); err != nil {
		results = append(results, OpResult{Op: "status", Error: err.Error()})
	} else {
		results = append(results, OpResult{Op: "status", OK: true, Status: in.Status})
	}

	if n, err := r.SyncGroups(ctx, in); err != nil {
		results = append(results, OpResult{Op: "groups", Error: err.Error()})
	} else {
		results = append(results, OpResult{Op: "groups", OK: true, Count: n})
	}

	if n, err := r.SyncContacts(ctx, in); err != nil {
		results = append(results, OpResult{Op: "contacts", Error: err.Error()})
	} else {
		results = append(results, OpResult{Op: "contacts", OK: true, Count: n})
	}

	return results
}

func (r *Reconciler) ref(in *Instance) gateway.InstanceRef {
	return gateway.InstanceRef{
		BaseURL:    in.GatewayURL,
		Token:      in.APIKey,
		Name:       in.Name,
		SystemName: in.SystemName,
	}
}
