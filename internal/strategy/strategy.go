// Package strategy implements the Strategy pattern for session activation
// and termination methods. Each variant describes how a session starts
// (scan, manual, timer pick) and how it ends (scan-gated, immediate,
// pause-first, auto-expiry); the lifecycle engine performs the actual
// enforcer and store mutations so the stop-gating rule lives in one place.
package strategy

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScanKind identifies which physical trigger a variant uses, if any.
type ScanKind string

const (
	ScanNone ScanKind = ""
	ScanNFC  ScanKind = "nfc"
	ScanQR   ScanKind = "qr"
)

// Traits describes a variant's behavior. The engine dispatches on these
// rather than on the variant identity, so adding a variant is a registry
// entry, not an engine change.
type Traits struct {
	ScanToStart    bool
	ScanToStop     bool
	ScanKind       ScanKind
	HasTimer       bool
	PauseCapable   bool
	StartsManually bool
}

// Definition is one registered strategy variant.
type Definition struct {
	ID          string
	Name        string
	Description string
	Traits      Traits
}

// BeginPlan tells the engine which side effects starting a session requires.
// Side effects are declared, not performed, by the strategy.
type BeginPlan struct {
	// NeedsScan asks the engine to run the Scanner; the scanned token
	// becomes the session tag.
	NeedsScan bool

	// NeedsDuration asks the engine for a timer duration when none is
	// stored in the profile's strategy data.
	NeedsDuration bool

	// Tag is recorded on the session when nothing is scanned to start it.
	Tag string
}

// Begin returns the plan for starting a session under this variant.
func (d Definition) Begin() BeginPlan {
	plan := BeginPlan{}
	if d.Traits.ScanToStart {
		plan.NeedsScan = true
		return plan
	}
	plan.Tag = d.ID
	if d.Traits.HasTimer {
		plan.NeedsDuration = true
	}
	return plan
}

// EndPlan tells the engine which side effects a stop request requires.
type EndPlan struct {
	// NeedsScan asks the engine to run the Scanner; the scanned token is
	// the presented trigger for the stop-gating rule.
	NeedsScan bool

	// PauseFirst means an accepted stop transitions to Paused unless the
	// session is already paused.
	PauseFirst bool
}

// End returns the plan for stopping a session under this variant.
func (d Definition) End() EndPlan {
	return EndPlan{
		NeedsScan:  d.Traits.ScanToStop,
		PauseFirst: d.Traits.PauseCapable,
	}
}

// TimerData is the strategy config blob for timer variants: the blocking
// duration the user picked at start time.
type TimerData struct {
	DurationMinutes int `json:"durationInMinutes"`
}

// PauseData is the strategy config blob for pause-capable variants: how long
// restrictions stay lifted before the grace window closes the pause.
type PauseData struct {
	PauseDurationMinutes int `json:"pauseDurationInMinutes"`
}

// Duration returns the timer length.
func (t TimerData) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// Duration returns the pause window length.
func (p PauseData) Duration() time.Duration {
	return time.Duration(p.PauseDurationMinutes) * time.Minute
}

// EncodeTimerData marshals timer config for storage on a profile.
func EncodeTimerData(d TimerData) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeTimerData unmarshals timer config from a profile blob.
func DecodeTimerData(raw []byte) (TimerData, error) {
	var d TimerData
	if len(raw) == 0 {
		return d, fmt.Errorf("no timer data stored")
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("failed to decode timer data: %w", err)
	}
	return d, nil
}

// EncodePauseData marshals pause config for storage on a profile.
func EncodePauseData(d PauseData) ([]byte, error) {
	return json.Marshal(d)
}

// DecodePauseData unmarshals pause config from a profile blob.
func DecodePauseData(raw []byte) (PauseData, error) {
	var d PauseData
	if len(raw) == 0 {
		return d, fmt.Errorf("no pause data stored")
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("failed to decode pause data: %w", err)
	}
	return d, nil
}
