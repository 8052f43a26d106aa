package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProfileSnapshot is a denormalized, serializable copy of a profile holding
// everything the background process needs, with no references back to the
// authoritative store. Republished on every profile mutation.
type ProfileSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Selection []byte    `json:"selection"`

	StrategyID   string `json:"blockingStrategyId"`
	StrategyData []byte `json:"strategyData,omitempty"`

	Schedule *Schedule `json:"schedule,omitempty"`

	UnblockTokenID  string   `json:"physicalUnblockTokenId,omitempty"`
	UnblockQRCodeID string   `json:"physicalUnblockQRCodeId,omitempty"`
	WhitelistTags   []string `json:"whitelistTags,omitempty"`

	EnableStrictMode       bool `json:"enableStrictMode"`
	EnableAllowMode        bool `json:"enableAllowMode"`
	EnableBreaks           bool `json:"enableBreaks"`
	DisableBackgroundStops bool `json:"disableBackgroundStops"`

	BreakMinutes int `json:"breakTimeInMinutes"`

	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SnapshotOf projects a profile into its cross-process snapshot form.
func SnapshotOf(p *Profile) ProfileSnapshot {
	tags := make([]string, 0, len(p.Whitelist))
	for i := range p.Whitelist {
		tags = append(tags, p.Whitelist[i].TagID)
	}
	return ProfileSnapshot{
		ID:                     p.ID,
		Name:                   p.Name,
		Selection:              p.Selection,
		StrategyID:             p.StrategyID,
		StrategyData:           p.StrategyData,
		Schedule:               p.Schedule,
		UnblockTokenID:         p.UnblockTokenID,
		UnblockQRCodeID:        p.UnblockQRCodeID,
		WhitelistTags:          tags,
		EnableStrictMode:       p.EnableStrictMode,
		EnableAllowMode:        p.EnableAllowMode,
		EnableBreaks:           p.EnableBreaks,
		DisableBackgroundStops: p.DisableBackgroundStops,
		BreakMinutes:           p.BreakMinutes,
		Order:                  p.Order,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

// SessionSnapshot mirrors the active session for the background process.
type SessionSnapshot struct {
	ID        string    `json:"id"`
	Tag       string    `json:"tag"`
	ProfileID uuid.UUID `json:"blockedProfileId"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	BreakStart *time.Time `json:"breakStartTime,omitempty"`
	BreakEnd   *time.Time `json:"breakEndTime,omitempty"`

	ForceStarted bool `json:"forceStarted"`
}

// SnapshotOfSession projects a session into its cross-process form.
func SnapshotOfSession(s *Session) SessionSnapshot {
	return SessionSnapshot{
		ID:           s.ID,
		Tag:          s.Tag,
		ProfileID:    s.ProfileID,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		BreakStart:   s.BreakStart,
		BreakEnd:     s.BreakEnd,
		ForceStarted: s.ForceStarted,
	}
}

// SharedState is the whole cross-process snapshot file. Both processes
// read-modify-write it last-writer-wins; every mutation path must therefore
// be idempotent and re-verify profile identity before acting.
type SharedState struct {
	ProfileSnapshots map[string]ProfileSnapshot `json:"profileSnapshots"`
	ActiveSession    *SessionSnapshot           `json:"activeSession,omitempty"`

	// CompletedScheduledSessions is the append-only log of sessions the
	// background reconciler closed, drained by the foreground on load.
	CompletedScheduledSessions []SessionSnapshot `json:"completedScheduledSessions"`

	SchedulerPID  int   `json:"schedulerPid,omitempty"`
	UpdatedAtUnix int64 `json:"updatedAtUnix"`
}

// NewSharedState returns an empty snapshot state.
func NewSharedState() *SharedState {
	return &SharedState{ProfileSnapshots: make(map[string]ProfileSnapshot)}
}

// Snapshot returns the profile snapshot for id, if present.
func (st *SharedState) Snapshot(id uuid.UUID) (ProfileSnapshot, bool) {
	snap, ok := st.ProfileSnapshots[id.String()]
	return snap, ok
}

// SetSnapshot stores or replaces the profile snapshot.
func (st *SharedState) SetSnapshot(snap ProfileSnapshot) {
	if st.ProfileSnapshots == nil {
		st.ProfileSnapshots = make(map[string]ProfileSnapshot)
	}
	st.ProfileSnapshots[snap.ID.String()] = snap
}

// RemoveSnapshot deletes the profile snapshot for id.
func (st *SharedState) RemoveSnapshot(id uuid.UUID) {
	delete(st.ProfileSnapshots, id.String())
}

// StartScheduledSession replaces the active slot with a fresh force-started
// session owned by profileID, tagged with the profile id sentinel.
func (st *SharedState) StartScheduledSession(profileID uuid.UUID, at time.Time) {
	st.ActiveSession = &SessionSnapshot{
		ID:           uuid.NewString(),
		Tag:          profileID.String(),
		ProfileID:    profileID,
		StartTime:    at,
		ForceStarted: true,
	}
}

// EndActiveSession closes the active slot and appends it to the completed
// log. No-op when the slot is empty, so replayed callbacks are safe.
func (st *SharedState) EndActiveSession(at time.Time) {
	if st.ActiveSession == nil {
		return
	}
	s := *st.ActiveSession
	if s.EndTime == nil {
		end := at
		s.EndTime = &end
	}
	st.CompletedScheduledSessions = append(st.CompletedScheduledSessions, s)
	st.ActiveSession = nil
}

// DrainCompletedSessions empties and returns the completed-session log.
func (st *SharedState) DrainCompletedSessions() []SessionSnapshot {
	done := st.CompletedScheduledSessions
	st.CompletedScheduledSessions = nil
	return done
}
