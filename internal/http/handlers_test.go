package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsurugroups/wa-platform/internal/core"
	database "github.com/tsurugroups/wa-platform/internal/db"
	"github.com/tsurugroups/wa-platform/internal/gateway"
	httpapi "github.com/tsurugroups/wa-platform/internal/http"
	"github.com/tsurugroups/wa-platform/internal/jobs"
)

func startAPI(t *testing.T) (*httpapi.Server, *gateway.Dummy) {
	db := database.StartTestPostgres(t)
	rdb := database.StartTestRedis(t)

	store := &core.Store{
		DB:       db,
		Gateway:  core.GatewayDefaults{URL: "http://gw.test", AdminToken: "admin"},
		MaxInsts: 2,
	}
	gw := gateway.NewDummy()
	mgr := core.NewManager(store, gw)
	rec := core.NewReconciler(store, gw)
	syncQ := jobs.NewQueue(rdb, "default")
	campQ := jobs.NewQueue(rdb, "campaigns")
	return httpapi.NewServer(store, mgr, rec, syncQ, campQ), gw
}

func doJSON(t *testing.T, h http.Handler, method, path, acct, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if acct != "" {
		req.Header.Set("X-Account-ID", acct)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestInstanceLifecycleOverHTTP(t *testing.T) {
	srv, gw := startAPI(t)
	h := srv.Router()

	// create
	w, inst := doJSON(t, h, "POST", "/instances", "acct-1", `{"name":"main","connection_method":"qr_code"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := inst["id"].(string)
	require.Equal(t, "disconnected", inst["status"])

	// list is tenant scoped
	w, list := doJSON(t, h, "GET", "/instances", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list["items"], 1)
	w, list = doJSON(t, h, "GET", "/instances", "acct-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list["items"], 0)

	// another tenant cannot read it
	w, _ = doJSON(t, h, "GET", "/instances/"+id, "acct-2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// connect hands back a QR
	gw.QRCode = "qr-payload"
	w, got := doJSON(t, h, "POST", "/instances/"+id+"/connect", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "qr_code", got["status"])

	w, qr := doJSON(t, h, "GET", "/instances/"+id+"/qr", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "qr-payload", qr["qr_code"])

	// qr.png renders
	req := httptest.NewRequest("GET", "/instances/"+id+"/qr.png", nil)
	req.Header.Set("X-Account-ID", "acct-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// disconnect clears everything
	w, _ = doJSON(t, h, "POST", "/instances/"+id+"/disconnect", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, h, "GET", "/instances/"+id+"/qr", "acct-1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInstanceQuotaOverHTTP(t *testing.T) {
	srv, _ := startAPI(t)
	h := srv.Router()

	w, _ := doJSON(t, h, "POST", "/instances", "acct-q", `{"name":"one"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = doJSON(t, h, "POST", "/instances", "acct-q", `{"name":"two"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := doJSON(t, h, "POST", "/instances", "acct-q", `{"name":"three"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "instance_limit_reached", body["error"])
}

func TestSyncEndpoints(t *testing.T) {
	srv, gw := startAPI(t)
	h := srv.Router()

	w, inst := doJSON(t, h, "POST", "/instances", "acct-1", `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := inst["id"].(string)

	// group sync needs a connected instance
	w, body := doJSON(t, h, "POST", "/instances/"+id+"/sync/groups", "acct-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "instance_not_connected", body["error"])

	// status sync does not
	w, body = doJSON(t, h, "POST", "/instances/"+id+"/sync/status", "acct-1", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotEmpty(t, body["job_id"])

	// synchronous batch reports each op separately
	gw.State.Status = "connected"
	gw.Groups = []gateway.Group{{JID: "1@g.us", Name: "Team"}}
	gw.Contacts = []gateway.Contact{{ID: "4917000@c.us", Name: "Ana"}}
	w, body = doJSON(t, h, "POST", "/instances/"+id+"/sync", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	results := body["results"].([]any)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, true, r.(map[string]any)["ok"])
	}

	w, groups := doJSON(t, h, "GET", "/instances/"+id+"/groups", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, groups["items"], 1)
}

func TestSendTextRecordsMessage(t *testing.T) {
	srv, gw := startAPI(t)
	h := srv.Router()

	w, inst := doJSON(t, h, "POST", "/instances", "acct-1", `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := inst["id"].(string)

	// sends against a disconnected instance are rejected
	payload := `{"instance_id":"` + id + `","number":"491700000001","text":"hi"}`
	w, body := doJSON(t, h, "POST", "/messages/text", "acct-1", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "instance_not_connected", body["error"])

	// connect it through the sync path, then send
	gw.State.Status = "connected"
	w, _ = doJSON(t, h, "POST", "/instances/"+id+"/sync", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, h, "POST", "/messages/text", "acct-1", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w, msgs := doJSON(t, h, "GET", "/instances/"+id+"/messages", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, msgs["items"], 1)

	w, got := doJSON(t, h, "GET", "/instances/"+id, "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, got["messages_sent"])
}

func TestCampaignCreateAndCancel(t *testing.T) {
	srv, _ := startAPI(t)
	h := srv.Router()

	w, inst := doJSON(t, h, "POST", "/instances", "acct-1", `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := inst["id"].(string)

	payload := `{"instance_id":"` + id + `","name":"launch","message":"hello","recipients":["1@g.us","2@g.us"]}`
	w, camp := doJSON(t, h, "POST", "/campaigns", "acct-1", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "scheduled", camp["status"])
	require.NotEmpty(t, camp["job_id"])
	cid := camp["id"].(string)

	w, got := doJSON(t, h, "GET", "/campaigns/"+cid, "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, got["total_recipients"])

	w, _ = doJSON(t, h, "POST", "/campaigns/"+cid+"/cancel", "acct-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	// a cancelled campaign cannot be cancelled again
	w, _ = doJSON(t, h, "POST", "/campaigns/"+cid+"/cancel", "acct-1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissingAccountHeader(t *testing.T) {
	srv, _ := startAPI(t)
	h := srv.Router()

	w, body := doJSON(t, h, "GET", "/instances", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "missing_X-Account-ID", body["error"])
}
