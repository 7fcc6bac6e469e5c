package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// GET /qr/sessions/{sessionID}.png
func SessionQR(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s, err := a.backend(r).Session(r.Context(), id)
		if err != nil {
			http.Error(w, http.StatusText(statusFor(err)), statusFor(err))
			return
		}

		// Scanning opens the verify page with the code already filled in.
		link := joinLink(a.PublicURL, r.Host, s.ID, s.SessionCode)
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

func joinLink(publicURL, host string, sessionID int, code string) string {
	base := strings.TrimRight(publicURL, "/")
	if base == "" {
		base = "http://" + host
	}
	q := url.Values{"session": {fmt.Sprint(sessionID)}, "code": {code}}
	return base + "/verify?" + q.Encode()
}
