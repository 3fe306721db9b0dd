package httpapi

import (
	"net/http"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/tsurugroups/wa-platform/internal/core"
)

// getStatus refreshes the instance from the gateway before answering, so the
// response reflects what the gateway thinks right now, not the last sync.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	in, err := s.Rec.SyncStatus(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       in.Status,
		"phone_number": in.PhoneNumber,
		"instance":     in,
	})
}

// getQRImage renders the pending QR payload as a PNG, for clients that want
// to show it directly instead of re-encoding the string themselves.
func (s *Server) getQRImage(w http.ResponseWriter, r *http.Request) {
	in := s.instanceForRequest(w, r)
	if in == nil {
		return
	}
	if in.Status != core.StatusQRCode || in.QRCode == "" || qrExpired(in.QRCodeExpiresAt) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "QR code not available"})
		return
	}
	png, err := qrcode.Encode(in.QRCode, qrcode.Medium, 256)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func qrExpired(at *time.Time) bool {
	return at != nil && time.Now().After(*at)
}
