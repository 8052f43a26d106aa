package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActivityKind distinguishes the interval registrations this system makes
// with the external scheduler.
type ActivityKind int

const (
	// ActivitySchedule is a profile's recurring weekly blocking window.
	ActivitySchedule ActivityKind = iota
	// ActivityTimer is a one-shot auto-expiry for a timer-deferred session.
	ActivityTimer
	// ActivityPause is the bounded grace window of a paused session.
	ActivityPause
)

const (
	timerActivityPrefix = "timer:"
	pauseActivityPrefix = "pause:"
)

// ScheduleActivityID names a profile's schedule registration. Schedules
// predate the other activities, so the bare profile ID is kept as the
// activity name for compatibility with existing registrations.
func ScheduleActivityID(profileID uuid.UUID) string {
	return profileID.String()
}

// TimerActivityID names a profile's timer-expiry registration.
func TimerActivityID(profileID uuid.UUID) string {
	return timerActivityPrefix + profileID.String()
}

// PauseActivityID names a profile's pause-grace registration.
func PauseActivityID(profileID uuid.UUID) string {
	return pauseActivityPrefix + profileID.String()
}

// ParseActivityID recovers the kind and owning profile from an activity ID.
func ParseActivityID(activityID string) (ActivityKind, uuid.UUID, error) {
	kind := ActivitySchedule
	raw := activityID
	switch {
	case strings.HasPrefix(activityID, timerActivityPrefix):
		kind = ActivityTimer
		raw = strings.TrimPrefix(activityID, timerActivityPrefix)
	case strings.HasPrefix(activityID, pauseActivityPrefix):
		kind = ActivityPause
		raw = strings.TrimPrefix(activityID, pauseActivityPrefix)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("malformed activity id %q: %w", activityID, err)
	}
	return kind, id, nil
}
