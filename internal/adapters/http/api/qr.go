package api

import (
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320

// QRHandler renders the websocket join URL as a PNG.
type QRHandler struct {
	url string
}

// NewQRHandler creates a QR handler for url.
func NewQRHandler(url string) *QRHandler {
	return &QRHandler{url: url}
}

// HandleQR handles GET /qr.
func (h *QRHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.url, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %v", ErrQREncode, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
