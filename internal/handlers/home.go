package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/models"
)

// GET /
func Home(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var active, upcoming []models.Session
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			active, err = a.Client.ActiveSessions(ctx)
			return err
		})
		g.Go(func() (err error) {
			upcoming, err = a.Client.UpcomingSessions(ctx)
			return err
		})

		data := map[string]any{"Title": "Sessions"}
		if err := g.Wait(); err != nil {
			a.Logger.Warn().Err(err).Msg("Home sessions fetch failed")
			data["Error"] = api.UserMessage(err, "Failed to load sessions.")
		} else {
			// The backend's is_active flag is not trusted; phase comes from the clock.
			now := a.now()
			all := mergeSessions(active, upcoming)
			data["Active"] = byPhase(all, now, lifecycle.Active)
			data["Upcoming"] = byPhase(all, now, lifecycle.Waiting)
		}
		a.render(w, r, http.StatusOK, "home.tmpl", data)
	}
}

// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
