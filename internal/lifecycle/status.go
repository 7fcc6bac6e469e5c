// Package lifecycle derives a session's phase from its time window and runs
// the per-view timers that keep the displayed countdowns current.
package lifecycle

import (
	"fmt"
	"time"
)

type Phase string

const (
	Waiting Phase = "waiting"
	Active  Phase = "active"
	Expired Phase = "expired"
)

// Status is a session's phase at one instant. Remaining is the time to
// start while waiting and the time to end while active; zero once expired.
type Status struct {
	Phase     Phase
	Remaining time.Duration
	Display   string
}

// Derive is pure in (now, start, end). Both boundaries count as active, and
// the backend's is_active flag plays no part.
func Derive(now, start, end time.Time) Status {
	switch {
	case now.Before(start):
		d := start.Sub(now)
		return Status{Phase: Waiting, Remaining: d, Display: FormatCountdown(d)}
	case !now.After(end):
		d := end.Sub(now)
		return Status{Phase: Active, Remaining: d, Display: FormatCountdown(d)}
	default:
		return Status{Phase: Expired}
	}
}

// FormatCountdown renders d with its two largest units: "1d 3h", "2h 15m",
// "45m 10s". Under a minute it is seconds only. Fractions of a second are
// dropped; zero and negative durations render as "0s".
func FormatCountdown(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	hours := secs % 86400 / 3600
	mins := secs % 3600 / 60
	s := secs % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatClock renders a quiz timer as m:ss.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
