// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies
// beyond identifiers.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RestrictionSelection is the opaque set of restricted targets for a profile.
// The engine never inspects its contents; it only passes it to the Enforcer
// and checks emptiness before a session may start.
type RestrictionSelection []byte

// IsEmpty reports whether the selection restricts nothing.
func (s RestrictionSelection) IsEmpty() bool {
	return len(s) == 0
}

// WhitelistTag is one entry in a profile's stop-token whitelist.
// A session gated by a whitelist may be ended by any member tag.
type WhitelistTag struct {
	ID      uuid.UUID
	TagID   string
	TagURL  string
	Name    string
	AddedAt time.Time
}

// MaxWhitelistTags is the per-profile whitelist capacity.
const MaxWhitelistTags = 15

// Profile is a named, user-configured set of restriction targets plus its
// chosen activation strategy and optional schedule.
type Profile struct {
	ID        uuid.UUID
	Name      string
	Selection RestrictionSelection

	StrategyID   string
	StrategyData []byte // strategy-specific config blob (timer/pause durations)

	Schedule *Schedule

	// Legacy single-token unblock gate. New configurations use Whitelist;
	// migrateLegacyTokens converts this field at startup.
	UnblockTokenID  string
	UnblockQRCodeID string
	Whitelist       []WhitelistTag

	EnableStrictMode       bool
	EnableAllowMode        bool
	EnableBreaks           bool
	BlockWebDomains        bool
	DisableBackgroundStops bool

	BreakMinutes    int // pause window length, default 15
	Domains         []string
	ReminderSeconds uint32
	ReminderMessage string

	Order     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasWhitelist reports whether any whitelist tags are configured.
func (p *Profile) HasWhitelist() bool {
	return len(p.Whitelist) > 0
}

// WhitelistContains reports case-insensitive membership of tagID.
func (p *Profile) WhitelistContains(tagID string) bool {
	for i := range p.Whitelist {
		if strings.EqualFold(p.Whitelist[i].TagID, tagID) {
			return true
		}
	}
	return false
}

// Session is one open-to-closed interval during which a profile's
// restrictions are enforced. EndTime == nil means the session is open.
type Session struct {
	ID        string
	ProfileID uuid.UUID

	// Tag records which token/trigger started the session, or a strategy
	// sentinel for manual and scheduled starts.
	Tag string

	StartTime time.Time
	EndTime   *time.Time

	BreakStart *time.Time
	BreakEnd   *time.Time

	// ForceStarted waives the "same token to stop" rule.
	ForceStarted bool
}

// NewSession creates an open session for the profile, started by tag.
func NewSession(profileID uuid.UUID, tag string, forceStarted bool, at time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		ProfileID:    profileID,
		Tag:          tag,
		StartTime:    at,
		ForceStarted: forceStarted,
	}
}

// IsActive reports whether the session is still open.
func (s *Session) IsActive() bool {
	return s.EndTime == nil
}

// End closes the session at the given instant. Ending an already-closed
// session is a no-op so replayed callbacks stay idempotent.
func (s *Session) End(at time.Time) {
	if s.EndTime != nil {
		return
	}
	end := at
	s.EndTime = &end
}

// Duration returns elapsed time, using now for open sessions.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

// Paused reports whether a pause window is currently recorded and not over.
func (s *Session) Paused(now time.Time) bool {
	if s.BreakStart == nil {
		return false
	}
	if s.BreakEnd != nil && now.After(*s.BreakEnd) {
		return false
	}
	return true
}
