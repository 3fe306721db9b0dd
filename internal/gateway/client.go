package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tsurugroups/wa-platform/internal/metrics"
)

// API is the gateway surface the rest of the system consumes. Client is the
// real HTTP implementation; Dummy backs tests.
type API interface {
	CreateInstance(ctx context.Context, ref InstanceRef) (InitResult, error)
	ConnectInstance(ctx context.Context, ref InstanceRef, phone string) (ConnectResult, error)
	DisconnectInstance(ctx context.Context, ref InstanceRef) (Raw, error)
	DeleteInstance(ctx context.Context, ref InstanceRef) (Raw, error)
	Status(ctx context.Context, ref InstanceRef) (StatusResult, error)

	SendText(ctx context.Context, ref InstanceRef, number, text, quoteID string) (Raw, error)
	SendMenu(ctx context.Context, ref InstanceRef, number, text string, options []string, menuType string) (Raw, error)
	SendMedia(ctx context.Context, ref InstanceRef, number, text, mediaURL, mediaType, quoteID string) (Raw, error)
	SendLocation(ctx context.Context, ref InstanceRef, number, name, address string, latitude, longitude float64) (Raw, error)
	SendContact(ctx context.Context, ref InstanceRef, number, fullName, phoneNumber string) (Raw, error)
	SendBulk(ctx context.Context, ref InstanceRef, recipients []string, message, campaignName string, delayMin, delayMax int) (Raw, error)

	GetGroups(ctx context.Context, ref InstanceRef) ([]Group, error)
	GetGroupInfo(ctx context.Context, ref InstanceRef, groupJID string) (Raw, error)
	GetContacts(ctx context.Context, ref InstanceRef) ([]Contact, error)
	GetContactInfo(ctx context.Context, ref InstanceRef, number string) (Raw, error)
	ValidateNumbers(ctx context.Context, ref InstanceRef, numbers []string) (Raw, error)
	SetAnnounce(ctx context.Context, ref InstanceRef, groupJID string, announce bool) (Raw, error)
	SetupWebhook(ctx context.Context, ref InstanceRef, webhookURL string) error
}

// Timeouts scale with the expected payload: light control-plane calls, text
// sends, and media uploads each get their own class.
const (
	lightTimeout = 15 * time.Second
	sendTimeout  = 30 * time.Second
	mediaTimeout = 120 * time.Second
)

type Client struct {
	AdminToken string

	light *http.Client
	send  *http.Client
	media *http.Client
}

var _ API = (*Client)(nil)

func NewClient(adminToken string) *Client {
	return &Client{
		AdminToken: adminToken,
		light:      &http.Client{Timeout: lightTimeout},
		send:       &http.Client{Timeout: sendTimeout},
		media:      &http.Client{Timeout: mediaTimeout},
	}
}

// do issues one call and normalizes every failure into *Error. okStatus lists
// the statuses treated as success; the body is returned raw on success.
func (c *Client) do(hc *http.Client, ctx context.Context, method, url, token string, payload any, okStatus ...int) ([]byte, error) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, transportErr(err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, transportErr(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("admintoken", c.AdminToken)
	if token == "" {
		token = c.AdminToken
	}
	req.Header.Set("token", token)

	op := req.URL.Path
	start := time.Now()
	resp, err := hc.Do(req)
	metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(op, "error").Inc()
		return nil, transportErr(err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	for _, s := range okStatus {
		if resp.StatusCode == s {
			metrics.GatewayCalls.WithLabelValues(op, "ok").Inc()
			return buf.Bytes(), nil
		}
	}
	metrics.GatewayCalls.WithLabelValues(op, "error").Inc()
	return nil, statusErr(resp.StatusCode, buf.Bytes())
}

func decode[T any](body []byte) (T, error) {
	var out T
	if len(body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, transportErr(err)
	}
	return out, nil
}

func (c *Client) CreateInstance(ctx context.Context, ref InstanceRef) (InitResult, error) {
	body, err := c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/instance/init", ref.Token, map[string]string{
		"name":       ref.Name,
		"systemname": ref.SystemName,
	}, http.StatusOK)
	if err != nil {
		return InitResult{}, err
	}
	return decode[InitResult](body)
}

// ConnectInstance treats 409 as success: the gateway answers 409 when a
// connect is already in flight, and the caller must see that as idempotent.
func (c *Client) ConnectInstance(ctx context.Context, ref InstanceRef, phone string) (ConnectResult, error) {
	payload := map[string]string{}
	if phone != "" {
		payload["phone"] = phone
	}
	body, err := c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/instance/connect", ref.Token, payload,
		http.StatusOK, http.StatusConflict)
	if err != nil {
		return ConnectResult{}, err
	}
	return decode[ConnectResult](body)
}

func (c *Client) DisconnectInstance(ctx context.Context, ref InstanceRef) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/instance/disconnect", ref.Token, map[string]string{}, http.StatusOK)
}

// DeleteInstance is best-effort: callers proceed with local deletion whatever
// the remote outcome.
func (c *Client) DeleteInstance(ctx context.Context, ref InstanceRef) (Raw, error) {
	return c.do(c.light, ctx, http.MethodDelete, ref.BaseURL+"/instance", ref.Token, map[string]string{}, http.StatusOK)
}

func (c *Client) Status(ctx context.Context, ref InstanceRef) (StatusResult, error) {
	body, err := c.do(c.light, ctx, http.MethodGet, ref.BaseURL+"/instance/status", ref.Token, nil, http.StatusOK)
	if err != nil {
		return StatusResult{}, err
	}
	return decode[StatusResult](body)
}

func (c *Client) SendText(ctx context.Context, ref InstanceRef, number, text, quoteID string) (Raw, error) {
	return c.do(c.send, ctx, http.MethodPost, ref.BaseURL+"/send/text", ref.Token, map[string]any{
		"number":      number,
		"text":        text,
		"linkPreview": false,
		"replyid":     quoteID,
		"mentions":    "",
		"readchat":    true,
		"delay":       1200,
		"convert":     "true",
	}, http.StatusOK)
}

func (c *Client) SendMenu(ctx context.Context, ref InstanceRef, number, text string, options []string, menuType string) (Raw, error) {
	return c.do(c.send, ctx, http.MethodPost, ref.BaseURL+"/send/menu", ref.Token, map[string]any{
		"number":          number,
		"type":            menuType, // poll, list, button
		"text":            text,
		"footerText":      "Escolha uma opção",
		"buttonText":      "Selecione",
		"listButton":      "Selecione",
		"selectableCount": 1,
		"choices":         options,
		"replyid":         "",
		"mentions":        "",
		"readchat":        true,
		"delay":           1200,
	}, http.StatusOK)
}

func (c *Client) SendMedia(ctx context.Context, ref InstanceRef, number, text, mediaURL, mediaType, quoteID string) (Raw, error) {
	return c.do(c.media, ctx, http.MethodPost, ref.BaseURL+"/send/media", ref.Token, map[string]any{
		"number":   number,
		"text":     text,
		"type":     mediaType, // document, video, image, audio, ptt, sticker
		"file":     mediaURL,
		"docName":  "",
		"replyid":  quoteID,
		"readchat": true,
		"delay":    1200,
	}, http.StatusOK)
}

func (c *Client) SendLocation(ctx context.Context, ref InstanceRef, number, name, address string, latitude, longitude float64) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/send/location", ref.Token, map[string]any{
		"number":    number,
		"name":      name,
		"address":   address,
		"latitude":  latitude,
		"longitude": longitude,
		"replyid":   "",
		"mentions":  "",
		"readchat":  true,
		"delay":     1200,
	}, http.StatusOK)
}

func (c *Client) SendContact(ctx context.Context, ref InstanceRef, number, fullName, phoneNumber string) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/send/contact", ref.Token, map[string]any{
		"number":       number,
		"fullName":     fullName,
		"phoneNumber":  phoneNumber,
		"organization": "",
		"email":        "",
		"url":          "",
		"replyid":      "",
		"mentions":     "",
		"readchat":     true,
		"delay":        1200,
	}, http.StatusOK)
}

func (c *Client) SendBulk(ctx context.Context, ref InstanceRef, recipients []string, message, campaignName string, delayMin, delayMax int) (Raw, error) {
	return c.do(c.send, ctx, http.MethodPost, ref.BaseURL+"/sender/simple", ref.Token, map[string]any{
		"numbers":     recipients,
		"type":        "text",
		"folder":      "Tsuru Groups",
		"delayMin":    delayMin,
		"delayMax":    delayMax,
		"info":        campaignName,
		"delay":       1000,
		"mentions":    "",
		"text":        message,
		"linkPreview": true,
	}, http.StatusOK)
}

func (c *Client) GetGroups(ctx context.Context, ref InstanceRef) ([]Group, error) {
	body, err := c.do(c.light, ctx, http.MethodGet, ref.BaseURL+"/group/list", ref.Token, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	wrapped, err := decode[struct {
		Groups []Group `json:"groups"`
	}](body)
	if err != nil {
		return nil, err
	}
	return wrapped.Groups, nil
}

func (c *Client) GetGroupInfo(ctx context.Context, ref InstanceRef, groupJID string) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/group/info", ref.Token, map[string]any{
		"GroupJID":      groupJID,
		"getInviteLink": true,
		"force":         true,
	}, http.StatusOK)
}

func (c *Client) GetContacts(ctx context.Context, ref InstanceRef) ([]Contact, error) {
	body, err := c.do(c.light, ctx, http.MethodGet, ref.BaseURL+"/contacts", ref.Token, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return decode[[]Contact](body)
}

func (c *Client) GetContactInfo(ctx context.Context, ref InstanceRef, number string) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/chat/GetNameAndImageURL", ref.Token, map[string]string{
		"number": number,
	}, http.StatusOK)
}

func (c *Client) ValidateNumbers(ctx context.Context, ref InstanceRef, numbers []string) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/chat/check", ref.Token, map[string]any{
		"numbers": numbers,
	}, http.StatusOK)
}

func (c *Client) SetAnnounce(ctx context.Context, ref InstanceRef, groupJID string, announce bool) (Raw, error) {
	return c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/group/updateAnnounce", ref.Token, map[string]any{
		"groupjid": groupJID,
		"announce": announce,
	}, http.StatusOK)
}

func (c *Client) SetupWebhook(ctx context.Context, ref InstanceRef, webhookURL string) error {
	_, err := c.do(c.light, ctx, http.MethodPost, ref.BaseURL+"/webhook", ref.Token, map[string]any{
		"enabled": true,
		"url":     webhookURL,
		"events": []string{
			"connection",
			"messages",
			"messages_update",
			"groups",
			"contacts",
			"chats",
		},
		"excludeMessages":     []string{},
		"addUrlEvents":        true,
		"addUrlTypesMessages": true,
		"action":              "add",
	}, http.StatusOK)
	return err
}
