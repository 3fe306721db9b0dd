package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tsurugroups/wa-platform/internal/core"
	"github.com/tsurugroups/wa-platform/internal/gateway"
	"github.com/tsurugroups/wa-platform/internal/jobs"
	"github.com/tsurugroups/wa-platform/internal/metrics"
)

type Server struct {
	Store     *core.Store
	Manager   *core.Manager
	Rec       *core.Reconciler
	SyncQueue *jobs.Queue
	Campaigns *jobs.Queue
}

func NewServer(store *core.Store, mgr *core.Manager, rec *core.Reconciler, syncQ, campaignQ *jobs.Queue) *Server {
	return &Server{Store: store, Manager: mgr, Rec: rec, SyncQueue: syncQ, Campaigns: campaignQ}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, instrument)

	s.mountHealth(r)
	s.mountMetrics(r)

	r.Route("/instances", func(r chi.Router) {
		r.Post("/", s.createInstance)
		r.Get("/", s.listInstances)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getInstance)
			r.Delete("/", s.deleteInstance)
			r.Post("/connect", s.connectInstance)
			r.Post("/disconnect", s.disconnectInstance)
			r.Get("/status", s.getStatus)
			r.Get("/qr", s.getQR)
			r.Get("/qr.png", s.getQRImage)
			r.Post("/webhook", s.setupWebhook)
			r.Post("/sync", s.syncAll)
			r.Post("/sync/groups", s.enqueueSync(jobs.JobSyncGroups, true))
			r.Post("/sync/contacts", s.enqueueSync(jobs.JobSyncContacts, true))
			r.Post("/sync/status", s.enqueueSync(jobs.JobSyncStatus, false))
			r.Get("/groups", s.listGroups)
			r.Get("/groups/info", s.getGroupInfo)
			r.Post("/groups/announce", s.setGroupAnnounce)
			r.Get("/contacts", s.listContacts)
			r.Get("/contacts/info", s.getContactInfo)
			r.Get("/messages", s.listMessages)
		})
	})

	r.Post("/messages/text", s.sendText)
	r.Post("/messages/media", s.sendMedia)
	r.Post("/messages/location", s.sendLocation)
	r.Post("/messages/contact", s.sendContact)
	r.Post("/messages/menu", s.sendMenu)
	r.Post("/messages/bulk", s.sendBulk)
	r.Post("/numbers/validate", s.validateNumbers)

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", s.createCampaign)
		r.Get("/{id}", s.getCampaign)
		r.Post("/{id}/cancel", s.cancelCampaign)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto status codes; gateway errors surface as
// 502 with the normalized error string.
func writeErr(w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, core.ErrInstanceLimit):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "instance_limit_reached"})
	case errors.Is(err, core.ErrNotConnected):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "instance_not_connected"})
	case errors.As(err, &gwErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": gwErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// accountID pulls the caller identity the auth layer in front of this
// service injects. Requests without it never reach a store query.
func accountID(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

func (s *Server) instanceForRequest(w http.ResponseWriter, r *http.Request) *core.Instance {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return nil
	}
	in, err := s.Store.GetInstanceForAccount(r.Context(), chi.URLParam(r, "id"), acct)
	if err != nil {
		writeErr(w, err)
		return nil
	}
	return in
}

func (s *Server) createInstance(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return
	}
	var in struct {
		Name             string `json:"name"`
		ConnectionMethod string `json:"connection_method"`
		WhatsAppNumber   string `json:"whatsapp_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if in.ConnectionMethod != "" && in.ConnectionMethod != core.MethodQRCode && in.ConnectionMethod != core.MethodPairingCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_connection_method"})
		return
	}

	inst, err := s.Manager.CreateInstance(r.Context(), core.CreateInstanceRequest{
		AccountID:        acct,
		Name:             in.Name,
		ConnectionMethod: in.ConnectionMethod,
		WhatsAppNumber:   in.WhatsAppNumber,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return
	}
	items, err := s.Store.ListInstances(r.Context(), acct)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) deleteInstance(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	if err := s.Manager.Delete(r.Context(), in); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) connectInstance(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	in, err := s.Manager.Connect(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) disconnectInstance(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	in, err := s.Manager.Disconnect(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Disconnected successfully", "status": in.Status})
}

func (s *Server) getQR(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	switch {
	case in.Status == core.StatusQRCode && in.QRCode != "" && !qrExpired(in.QRCodeExpiresAt):
		writeJSON(w, http.StatusOK, map[string]any{
			"qr_code":    in.QRCode,
			"expires_at": in.QRCodeExpiresAt,
		})
	case in.Status == core.StatusPairingCode && in.PairingCode != "":
		writeJSON(w, http.StatusOK, map[string]any{
			"pairing_code": in.PairingCode,
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "QR code not available"})
	}
}

func (s *Server) setupWebhook(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if err := s.Manager.SetupWebhook(r.Context(), in, body.URL); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "webhook_url": body.URL})
}

// enqueueSync hands a named sync job to the queue and answers with the job
// handle. Group and contact sync require a connected instance; status sync
// does not, it exists to find out.
func (s *Server) enqueueSync(jobName string, needConnected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := s.instanceForRequest(w, r)
		if in == nil {
			return
		}
		if needConnected && !in.IsConnected() {
			writeErr(w, core.ErrNotConnected)
			return
		}
		jobID, err := s.SyncQueue.Enqueue(r.Context(), jobName, in.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		metrics.JobsEnqueued.WithLabelValues(jobName).Inc()
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync queued", "job_id": jobID})
	}
}

// syncAll runs the three sync operations inline and reports each outcome
// separately; one failing never hides the others.
func (s *Server) syncAll(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	results := s.Rec.SyncAll(r.Context(), in)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	items, err := s.Store.ListGroups(r.Context(), in.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// getGroupInfo proxies a single-group lookup, including the invite link the
// list endpoint never carries.
func (s *Server) getGroupInfo(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	jid := r.URL.Query().Get("jid")
	if jid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_jid"})
		return
	}
	raw, err := s.Manager.Gateway.GetGroupInfo(r.Context(), s.ref(in), jid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gateway": raw})
}

func (s *Server) setGroupAnnounce(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	var body struct {
		GroupJID string `json:"group_jid"`
		Announce bool   `json:"announce"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GroupJID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	raw, err := s.Manager.Gateway.SetAnnounce(r.Context(), s.ref(in), body.GroupJID, body.Announce)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) getContactInfo(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	number := r.URL.Query().Get("number")
	if number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_number"})
		return
	}
	raw, err := s.Manager.Gateway.GetContactInfo(r.Context(), s.ref(in), number)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gateway": raw})
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	items, err := s.Store.ListContacts(r.Context(), in.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	items, err := s.Store.ListMessages(r.Context(), in.ID, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
}

// sendInstance resolves the instance a send request targets and checks it is
// connected.
func (s *Server) sendInstance(w http.ResponseWriter, r *http.Request, instanceID string) *core.Instance {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return nil
	}
	in, err := s.Store.GetInstanceForAccount(r.Context(), instanceID, acct)
	if err != nil {
		writeErr(w, err)
		return nil
	}
	if !in.IsConnected() {
		writeErr(w, core.ErrNotConnected)
		return nil
	}
	return in
}

func (s *Server) recordOutbound(r *http.Request, in *core.Instance, msgType, number, content, mediaURL, mediaType string) {
	rec := &core.MessageRecord{
		InstanceID:  in.ID,
		MessageID:   uuid.NewString(),
		MessageType: msgType,
		Content:     content,
		Direction:   "outbound",
		PhoneNumber: number,
		Status:      "sent",
		MediaURL:    mediaURL,
		MediaType:   mediaType,
		SentAt:      time.Now(),
	}
	if err := s.Store.RecordMessage(r.Context(), rec); err == nil {
		_ = s.Store.IncrementMessagesSent(r.Context(), in.ID)
	}
}

func (s *Server) sendText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string `json:"instance_id"`
		Number     string `json:"number"`
		Text       string `json:"text"`
		QuoteID    string `json:"quote_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || body.Number == "" || body.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendText(r.Context(), s.ref(in), body.Number, body.Text, body.QuoteID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.recordOutbound(r, in, "text", body.Number, body.Text, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) sendMedia(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string `json:"instance_id"`
		Number     string `json:"number"`
		Text       string `json:"text"`
		MediaURL   string `json:"media_url"`
		MediaType  string `json:"media_type"`
		QuoteID    string `json:"quote_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || body.Number == "" || body.MediaURL == "" || body.MediaType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendMedia(r.Context(), s.ref(in), body.Number, body.Text, body.MediaURL, body.MediaType, body.QuoteID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.recordOutbound(r, in, body.MediaType, body.Number, body.Text, body.MediaURL, body.MediaType)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) sendLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string  `json:"instance_id"`
		Number     string  `json:"number"`
		Name       string  `json:"name"`
		Address    string  `json:"address"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || body.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendLocation(r.Context(), s.ref(in), body.Number, body.Name, body.Address, body.Latitude, body.Longitude)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.recordOutbound(r, in, "location", body.Number, body.Name, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) sendContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID   string `json:"instance_id"`
		Number       string `json:"number"`
		ContactName  string `json:"contact_name"`
		ContactPhone string `json:"contact_phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || body.Number == "" || body.ContactPhone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendContact(r.Context(), s.ref(in), body.Number, body.ContactName, body.ContactPhone)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.recordOutbound(r, in, "contact", body.Number, body.ContactName, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) sendMenu(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string   `json:"instance_id"`
		Number     string   `json:"number"`
		Text       string   `json:"text"`
		Options    []string `json:"options"`
		MenuType   string   `json:"menu_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || body.Number == "" || body.Text == "" || len(body.Options) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if body.MenuType == "" {
		body.MenuType = "list"
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendMenu(r.Context(), s.ref(in), body.Number, body.Text, body.Options, body.MenuType)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.recordOutbound(r, in, "menu", body.Number, body.Text, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) sendBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID   string   `json:"instance_id"`
		Recipients   []string `json:"recipients"`
		Message      string   `json:"message"`
		CampaignName string   `json:"campaign_name"`
		DelayMin     int      `json:"delay_min"`
		DelayMax     int      `json:"delay_max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || len(body.Recipients) == 0 || body.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if body.DelayMin < 1 {
		body.DelayMin = 3
	}
	if body.DelayMax < 1 {
		body.DelayMax = 6
	}
	if body.CampaignName == "" {
		body.CampaignName = "Tsuru Groups Campaign"
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.SendBulk(r.Context(), s.ref(in), body.Recipients, body.Message, body.CampaignName, body.DelayMin, body.DelayMax)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) validateNumbers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string   `json:"instance_id"`
		Numbers    []string `json:"numbers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" || len(body.Numbers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	in := s.sendInstance(w, r, body.InstanceID)
	if in == nil {
		return
	}
	raw, err := s.Manager.Gateway.ValidateNumbers(r.Context(), s.ref(in), body.Numbers)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gateway": raw})
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return
	}
	var body struct {
		InstanceID    string    `json:"instance_id"`
		Name          string    `json:"name"`
		Message       string    `json:"message"`
		RecipientType string    `json:"recipient_type"`
		Recipients    []string  `json:"recipients"`
		ScheduleAt    time.Time `json:"schedule_at"`
		DelayMin      int       `json:"delay_min"`
		DelayMax      int       `json:"delay_max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
		body.InstanceID == "" || body.Name == "" || body.Message == "" || len(body.Recipients) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if body.DelayMin < 1 {
		body.DelayMin = 3
	}
	if body.DelayMax < 1 {
		body.DelayMax = 6
	}
	if body.RecipientType == "" {
		body.RecipientType = "mixed"
	}
	if _, err := s.Store.GetInstanceForAccount(r.Context(), body.InstanceID, acct); err != nil {
		writeErr(w, err)
		return
	}

	sm := &core.ScheduledMessage{
		AccountID:      acct,
		InstanceID:     body.InstanceID,
		Name:           body.Name,
		MessageContent: body.Message,
		RecipientType:  body.RecipientType,
		Recipients:     body.Recipients,
		ScheduleAt:     body.ScheduleAt,
		DelayMin:       body.DelayMin,
		DelayMax:       body.DelayMax,
	}
	if err := s.Store.CreateScheduledMessage(r.Context(), sm); err != nil {
		writeErr(w, err)
		return
	}

	// The dispatch worker owns everything from here; we only hand it the id.
	jobID, err := s.Campaigns.Enqueue(r.Context(), jobs.JobDispatchCampaign, sm.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.JobsEnqueued.WithLabelValues(jobs.JobDispatchCampaign).Inc()
	if err := s.Store.MarkScheduled(r.Context(), sm.ID, jobID); err != nil {
		writeErr(w, err)
		return
	}
	sm.Status = core.CampaignScheduled
	sm.JobID = jobID
	writeJSON(w, http.StatusCreated, sm)
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return
	}
	sm, err := s.Store.GetScheduledMessage(r.Context(), chi.URLParam(r, "id"), acct)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

func (s *Server) cancelCampaign(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_X-Account-ID"})
		return
	}
	if err := s.Store.CancelScheduledMessage(r.Context(), chi.URLParam(r, "id"), acct); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (s *Server) ref(in *core.Instance) gateway.InstanceRef {
	return gateway.InstanceRef{
		BaseURL:    in.GatewayURL,
		Token:      in.APIKey,
		Name:       in.Name,
		SystemName: in.SystemName,
	}
}
