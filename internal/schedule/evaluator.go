// Package schedule decides, given a profile schedule and a wall-clock
// instant, whether a scheduled session should currently be running. Pure
// functions, no I/O; both processes share this logic.
package schedule

import (
	"time"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

// PropagationDelay is how long a freshly edited schedule is distrusted.
// The OS scheduler re-registers intervals with some lag; acting on a newer
// schedule risks fighting a registration that does not exist yet.
const PropagationDelay = 15 * time.Minute

// IsScheduledNow reports whether now falls inside the schedule's window.
// Day membership is evaluated against the day the window started, so a
// window wrapping past midnight stays active into the next morning.
func IsScheduledNow(s *domain.Schedule, now time.Time) bool {
	if !s.IsEnabled() {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	start, end := s.StartMinutes(), s.EndMinutes()

	if end > start {
		return s.ContainsDay(now.Weekday()) && nowMin >= start && nowMin < end
	}

	// Wraps past midnight: either today's window has started, or we're in
	// the morning tail of a window that started yesterday.
	if s.ContainsDay(now.Weekday()) && nowMin >= start {
		return true
	}
	if s.ContainsDay(previousDay(now.Weekday())) && nowMin < end {
		return true
	}
	return false
}

// IsStaleEnough reports whether the schedule is old enough to trust.
func IsStaleEnough(s *domain.Schedule, now time.Time) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.UpdatedAt) >= PropagationDelay
}

// ShouldDriveSession combines both guards: a schedule only auto-starts or
// auto-stops a session when it is currently in window and has propagated.
func ShouldDriveSession(s *domain.Schedule, now time.Time) bool {
	return IsScheduledNow(s, now) && IsStaleEnough(s, now)
}

func previousDay(d time.Weekday) time.Weekday {
	return (d + 6) % 7
}
