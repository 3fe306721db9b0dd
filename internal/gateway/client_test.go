package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRef(url string) InstanceRef {
	return InstanceRef{BaseURL: url, Token: "inst-token", Name: "main", SystemName: "tsuru_a_12345678"}
}

func TestTimeoutClasses(t *testing.T) {
	c := NewClient("admin-token")
	require.Equal(t, lightTimeout, c.light.Timeout)
	require.Equal(t, sendTimeout, c.send.Timeout)
	require.Equal(t, mediaTimeout, c.media.Timeout)
}

func TestConnectTreats409AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"qrcode": "already-pending"})
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	res, err := c.ConnectInstance(context.Background(), testRef(srv.URL), "")
	require.NoError(t, err)
	require.Equal(t, "already-pending", res.QR())
}

func TestAuthHeaders(t *testing.T) {
	var admin, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin = r.Header.Get("admintoken")
		token = r.Header.Get("token")
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	_, err := c.Status(context.Background(), testRef(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "admin-token", admin)
	require.Equal(t, "inst-token", token)

	// Instances without their own token fall back to the admin token.
	ref := testRef(srv.URL)
	ref.Token = ""
	_, err = c.Status(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "admin-token", token)
}

func TestErrorStringFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad token"}`)) //nolint
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	_, err := c.Status(context.Background(), testRef(srv.URL))
	require.Error(t, err)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusUnauthorized, gwErr.Status)
	require.Equal(t, `401: {"error":"bad token"}`, gwErr.Error())

	srv.Close()
	_, err = c.Status(context.Background(), testRef(srv.URL))
	require.Error(t, err)
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, 0, gwErr.Status)
	require.Contains(t, gwErr.Error(), "Request failed: ")
}

func TestGetGroupsUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/group/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"groups":[{"JID":"1@g.us","Name":"Team","OwnerJID":"49170@s.whatsapp.net",
			"Participants":[{"JID":"49170@s.whatsapp.net","IsAdmin":true}]}]}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	groups, err := c.GetGroups(context.Background(), testRef(srv.URL))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "1@g.us", groups[0].JID)
	require.Equal(t, "Team", groups[0].Name)
	require.Len(t, groups[0].Participants, 1)
	require.True(t, groups[0].Participants[0].IsAdmin)
}

func TestGetGroupsNonListBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"instance busy"}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	groups, err := c.GetGroups(context.Background(), testRef(srv.URL))
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestSendTextPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send/text", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	raw, err := c.SendText(context.Background(), testRef(srv.URL), "49170", "hello", "q-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"msg-1"}`, string(raw))

	require.Equal(t, "49170", got["number"])
	require.Equal(t, "hello", got["text"])
	require.Equal(t, "q-1", got["replyid"])
	require.Equal(t, true, got["readchat"])
	require.EqualValues(t, 1200, got["delay"])
	require.Equal(t, "true", got["convert"])
}

func TestSendBulkPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sender/simple", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	_, err := c.SendBulk(context.Background(), testRef(srv.URL), []string{"1", "2"}, "msg", "launch", 3, 6)
	require.NoError(t, err)
	require.Equal(t, "Tsuru Groups", got["folder"])
	require.Equal(t, "launch", got["info"])
	require.EqualValues(t, 3, got["delayMin"])
	require.EqualValues(t, 6, got["delayMax"])
	require.Len(t, got["numbers"], 2)
}

func TestSetupWebhookPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/webhook", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	require.NoError(t, c.SetupWebhook(context.Background(), testRef(srv.URL), "https://cb.test/hook"))
	require.Equal(t, "https://cb.test/hook", got["url"])
	require.Equal(t, true, got["enabled"])
	require.Equal(t, "add", got["action"])
	require.Len(t, got["events"], 6)
}

func TestInitTokenFallsBackToInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"instance":{"token":"issued-tok"}}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	res, err := c.CreateInstance(context.Background(), testRef(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "issued-tok", res.AssignedToken())
}

func TestQRPrefersTopLevelField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qrcode":"outer","instance":{"qrcode":"inner"}}`))
	}))
	defer srv.Close()

	c := NewClient("admin-token")
	res, err := c.ConnectInstance(context.Background(), testRef(srv.URL), "")
	require.NoError(t, err)
	require.Equal(t, "outer", res.QR())
}
