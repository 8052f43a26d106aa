package domain

import (
	"time"
)

// MinScheduleMinutes is the minimum allowed schedule duration.
const MinScheduleMinutes = 60

// Schedule is a weekly recurring blocking window attached to a profile.
// A schedule with no selected days is inactive. Start/end are minutes into
// the day; an end at or before the start wraps past midnight.
type Schedule struct {
	Days        []time.Weekday `json:"days"`
	StartHour   int            `json:"startHour"`
	StartMinute int            `json:"startMinute"`
	EndHour     int            `json:"endHour"`
	EndMinute   int            `json:"endMinute"`

	// UpdatedAt enforces the propagation delay: the background reconciler
	// must not trust a schedule the OS scheduler may not have registered yet.
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsEnabled reports whether any days are selected.
func (s *Schedule) IsEnabled() bool {
	return s != nil && len(s.Days) > 0
}

// ContainsDay reports day membership.
func (s *Schedule) ContainsDay(day time.Weekday) bool {
	if s == nil {
		return false
	}
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// StartMinutes returns the start time as minutes from midnight.
func (s *Schedule) StartMinutes() int {
	return s.StartHour*60 + s.StartMinute
}

// EndMinutes returns the end time as minutes from midnight.
func (s *Schedule) EndMinutes() int {
	return s.EndHour*60 + s.EndMinute
}

// DurationMinutes computes the window length, mod 24h for windows that wrap
// past midnight.
func (s *Schedule) DurationMinutes() int {
	start, end := s.StartMinutes(), s.EndMinutes()
	if end <= start {
		return (24*60 - start) + end
	}
	return end - start
}

// Validate rejects enabled schedules shorter than the minimum duration.
func (s *Schedule) Validate() error {
	if !s.IsEnabled() {
		return nil
	}
	if s.DurationMinutes() < MinScheduleMinutes {
		return ErrScheduleTooShort
	}
	return nil
}
