package handlers

import (
	"time"

	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/models"
)

const inputLayout = "2006-01-02T15:04"

// parseInputTime reads a datetime-local field in the display zone.
func parseInputTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(inputLayout, s, loc)
}

func phaseOf(s models.Session, now time.Time) lifecycle.Phase {
	return lifecycle.Derive(now, s.StartTime, s.EndTime).Phase
}

func byPhase(sessions []models.Session, now time.Time, want lifecycle.Phase) []models.Session {
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if phaseOf(s, now) == want {
			out = append(out, s)
		}
	}
	return out
}

// mergeSessions concatenates lists, keeping the first copy of each id.
func mergeSessions(lists ...[]models.Session) []models.Session {
	seen := map[int]bool{}
	var out []models.Session
	for _, l := range lists {
		for _, s := range l {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out
}

type phaseCounts struct {
	Waiting, Active, Expired int
}

func countPhases(sessions []models.Session, now time.Time) phaseCounts {
	var c phaseCounts
	for _, s := range sessions {
		switch phaseOf(s, now) {
		case lifecycle.Waiting:
			c.Waiting++
		case lifecycle.Active:
			c.Active++
		default:
			c.Expired++
		}
	}
	return c
}
