package handlers

import (
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/listing"
	"github.com/lojf/quizdesk/internal/models"
)

// GET /admin
func AdminDashboard(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		be := a.backend(r)
		var (
			stats    models.DashboardStats
			sessions []models.Session
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			stats, err = be.DashboardStats(ctx)
			return err
		})
		g.Go(func() (err error) {
			sessions, err = be.Sessions(ctx)
			return err
		})

		data := map[string]any{"Title": "Admin • Dashboard"}
		if err := g.Wait(); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load dashboard data.")
			if redirected {
				return
			}
			data["Error"] = msg
			a.render(w, r, http.StatusOK, "admin/dashboard.tmpl", data)
			return
		}

		now := a.now()
		current := make([]models.Session, 0, len(sessions))
		for _, s := range sessions {
			if phaseOf(s, now) != lifecycle.Expired {
				current = append(current, s)
			}
		}
		sort.Slice(current, func(i, j int) bool { return current[i].StartTime.Before(current[j].StartTime) })

		data["Stats"] = &stats
		data["Phases"] = countPhases(sessions, now)
		data["Current"] = current
		a.render(w, r, http.StatusOK, "admin/dashboard.tmpl", data)
	}
}

// filtersFrom reads the list filters shared by the admin tables.
func filtersFrom(r *http.Request) listing.Filters {
	q := r.URL.Query()
	return listing.Filters{Session: q.Get("session"), Search: q.Get("q"), Type: q.Get("type")}
}

func sessionTitles(sessions []models.Session) map[int]string {
	out := make(map[int]string, len(sessions))
	for _, s := range sessions {
		out[s.ID] = s.Title
	}
	return out
}

// confirmDelete renders the shared "are you sure" page.
func (a *App) confirmDelete(w http.ResponseWriter, r *http.Request, kind, name, action, back string) {
	a.render(w, r, http.StatusOK, "admin/confirm.tmpl", map[string]any{
		"Title":  "Admin • Delete " + kind,
		"Kind":   kind,
		"Name":   name,
		"Action": action,
		"Back":   back,
	})
}
