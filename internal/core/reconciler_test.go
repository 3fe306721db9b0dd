package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	database "github.com/tsurugroups/wa-platform/internal/db"
	"github.com/tsurugroups/wa-platform/internal/gateway"
)

func TestPhoneFromJID(t *testing.T) {
	require.Equal(t, "491700000001", PhoneFromJID("491700000001@s.whatsapp.net"))
	require.Equal(t, "", PhoneFromJID("123456789@g.us"))
	require.Equal(t, "", PhoneFromJID("99887766@lid"))
	require.Equal(t, "", PhoneFromJID(""))
}

func TestParseGroupCreated(t *testing.T) {
	got := ParseGroupCreated("2024-03-01T10:30:00Z")
	require.NotNil(t, got)
	require.Equal(t, 2024, got.Year())

	// zone-less timestamps also appear upstream
	got = ParseGroupCreated("2024-03-01T10:30:00")
	require.NotNil(t, got)
	require.Equal(t, 10, got.Hour())

	require.Nil(t, ParseGroupCreated(""))
	require.Nil(t, ParseGroupCreated("not-a-date"))
	require.Nil(t, ParseGroupCreated("01/03/2024"))
}

func TestOwnerIsAdmin(t *testing.T) {
	// explicit flag wins
	require.True(t, OwnerIsAdmin(gateway.Group{OwnerIsAdmin: true}))

	// derived from the owner's participant entry
	g := gateway.Group{
		OwnerJID: "49170@s.whatsapp.net",
		Participants: []gateway.Participant{
			{JID: "49170@s.whatsapp.net", IsSuperAdmin: true},
		},
	}
	require.True(t, OwnerIsAdmin(g))

	g.Participants[0].IsSuperAdmin = false
	require.False(t, OwnerIsAdmin(g))

	require.False(t, OwnerIsAdmin(gateway.Group{}))
}

func newTestReconciler(t *testing.T) (*Reconciler, *gateway.Dummy, *Instance) {
	db := database.StartTestPostgres(t)
	store := &Store{
		DB:       db,
		Gateway:  GatewayDefaults{URL: "http://gw.test", AdminToken: "admin"},
		MaxInsts: 3,
	}
	gw := gateway.NewDummy()
	rec := NewReconciler(store, gw)

	in, err := store.CreateInstance(context.Background(), CreateInstanceRequest{AccountID: "acct-1", Name: "main"})
	require.NoError(t, err)
	return rec, gw, in
}

func TestSyncGroupsIsIdempotent(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	gw.Groups = []gateway.Group{
		{
			JID: "1@g.us", Name: "Team", Topic: "work stuff",
			OwnerJID:     "49170@s.whatsapp.net",
			GroupCreated: "2024-03-01T10:30:00Z",
			Participants: []gateway.Participant{
				{JID: "49170@s.whatsapp.net", IsAdmin: true},
				{JID: "49171@s.whatsapp.net"},
				{JID: ""}, // no JID, skipped
			},
		},
		{JID: "2@g.us", Name: "Friends"},
	}

	n, err := rec.SyncGroups(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// second run updates in place, no duplicate rows
	gw.Groups[0].Name = "Team Renamed"
	n, err = rec.SyncGroups(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	groups, err := rec.Store.ListGroups(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	var team *Group
	for i := range groups {
		if groups[i].GroupID == "1@g.us" {
			team = &groups[i]
		}
	}
	require.NotNil(t, team)
	require.Equal(t, "Team Renamed", team.Name)
	require.Equal(t, "work stuff", team.Description)
	require.Equal(t, "49170", team.OwnerPhoneNumber)
	require.True(t, team.IsAdmin)
	require.Equal(t, 3, team.ParticipantCount)
	require.NotNil(t, team.GroupCreated)
	require.Equal(t, "all_member_add", team.MemberAddMode)

	parts, err := rec.Store.ListParticipants(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
}

func TestSyncGroupsToleratesBadTimestamp(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	gw.Groups = []gateway.Group{
		{JID: "1@g.us", Name: "Team", GroupCreated: "garbage"},
	}
	n, err := rec.SyncGroups(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	groups, err := rec.Store.ListGroups(ctx, in.ID)
	require.NoError(t, err)
	require.Nil(t, groups[0].GroupCreated)
}

func TestSyncGroupsGatewayError(t *testing.T) {
	rec, gw, in := newTestReconciler(t)

	gw.Err = &gateway.Error{Status: 500, Detail: "boom"}
	n, err := rec.SyncGroups(context.Background(), in)
	require.Error(t, err)
	require.Zero(t, n)
}

func TestParticipantsNeverPruned(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	gw.Groups = []gateway.Group{{JID: "1@g.us", Name: "Team", Participants: []gateway.Participant{
		{JID: "a@s.whatsapp.net"}, {JID: "b@s.whatsapp.net"},
	}}}
	_, err := rec.SyncGroups(ctx, in)
	require.NoError(t, err)

	// participant b left upstream; the mirror keeps the row
	gw.Groups[0].Participants = gw.Groups[0].Participants[:1]
	_, err = rec.SyncGroups(ctx, in)
	require.NoError(t, err)

	groups, err := rec.Store.ListGroups(ctx, in.ID)
	require.NoError(t, err)
	parts, err := rec.Store.ListParticipants(ctx, groups[0].ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
}

func TestSyncContacts(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	gw.Contacts = []gateway.Contact{
		{ID: "49170@c.us", Name: "Ana", IsBusiness: true},
		{ID: "49171@c.us", Name: "Bo"},
	}
	n, err := rec.SyncContacts(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// rename upstream, re-sync, still two rows
	gw.Contacts[0].Name = "Ana Maria"
	n, err = rec.SyncContacts(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	contacts, err := rec.Store.ListContacts(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		if c.PhoneNumber == "49170" {
			require.Equal(t, "Ana Maria", c.Name)
			require.True(t, c.IsBusiness)
		}
	}
}

func TestSyncStatusTransitions(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	// "open" counts as connected and stamps the owner + timestamp
	gw.State = gateway.InstanceState{Status: "open", Owner: "49170"}
	in, err := rec.SyncStatus(ctx, in)
	require.NoError(t, err)
	require.Equal(t, StatusConnected, in.Status)
	require.Equal(t, "49170", in.PhoneNumber)
	require.NotNil(t, in.LastConnectedAt)

	// unknown status falls back to disconnected
	gw.State = gateway.InstanceState{Status: "weird"}
	in, err = rec.SyncStatus(ctx, in)
	require.NoError(t, err)
	require.Equal(t, StatusDisconnected, in.Status)
}

func TestSyncStatusQRPrecedence(t *testing.T) {
	rec, gw, in := newTestReconciler(t)
	ctx := context.Background()

	// a QR in the payload overrides the status string
	gw.State = gateway.InstanceState{Status: "connecting", QRCode: "scan-me"}
	in, err := rec.SyncStatus(ctx, in)
	require.NoError(t, err)
	require.Equal(t, StatusQRCode, in.Status)
	require.Equal(t, "scan-me", in.QRCode)

	// but never downgrades an established connection
	gw.State = gateway.InstanceState{Status: "connected", QRCode: "stale"}
	in, err = rec.SyncStatus(ctx, in)
	require.NoError(t, err)
	require.Equal(t, StatusConnected, in.Status)
	require.Empty(t, in.QRCode)
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	rec, gw, in := newTestReconciler(t)

	gw.State.Status = "connected"
	results := rec.SyncAll(context.Background(), in)
	require.Len(t, results, 3)
	for _, r := range results {
		require.True(t, r.OK, r.Op)
	}

	// all three report individually when the gateway dies
	gw.Err = &gateway.Error{Detail: "down"}
	results = rec.SyncAll(context.Background(), in)
	require.Len(t, results, 3)
	for _, r := range results {
		require.False(t, r.OK, r.Op)
		require.NotEmpty(t, r.Error)
	}
}
