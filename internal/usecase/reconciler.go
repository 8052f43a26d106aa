package usecase

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/schedule"
)

// Reconciler handles scheduler boundary callbacks in the background process.
// It works exclusively from the shared snapshot, never the authoritative
// store, and every callback re-verifies state before mutating because
// boundaries can be redelivered and the foreground may have acted first.
type Reconciler struct {
	snapshots domain.SnapshotStore
	enforcer  domain.Enforcer
	logger    *zap.Logger
	now       func() time.Time
}

var _ domain.IntervalHandler = (*Reconciler)(nil)

// NewReconciler creates the background boundary handler.
func NewReconciler(snapshots domain.SnapshotStore, enforcer domain.Enforcer, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		snapshots: snapshots,
		enforcer:  enforcer,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the reconciler clock (for testing).
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// OnIntervalStart handles an interval-start boundary. Only schedule
// activities start sessions; timer and pause activities are end-driven.
func (r *Reconciler) OnIntervalStart(activityID string) {
	kind, profileID, err := domain.ParseActivityID(activityID)
	if err != nil {
		r.logger.Warn("ignoring malformed activity", zap.String("activity", activityID), zap.Error(err))
		return
	}
	if kind != domain.ActivitySchedule {
		return
	}

	now := r.now()
	var started bool
	var selection domain.RestrictionSelection
	var strict, allowMode bool

	err = r.snapshots.Update(func(st *domain.SharedState) error {
		snap, ok := st.Snapshot(profileID)
		if !ok {
			r.logger.Warn("schedule fired for unknown profile", zap.Stringer("profile", profileID))
			return nil
		}
		if !snap.Schedule.IsEnabled() || !snap.Schedule.ContainsDay(now.Weekday()) {
			return nil
		}
		// A freshly edited schedule may predate this boundary; let the next
		// delivery act once the edit has settled.
		if !schedule.IsStaleEnough(snap.Schedule, now) {
			r.logger.Info("schedule too fresh, skipping boundary", zap.String("profile", snap.Name))
			return nil
		}
		if st.ActiveSession != nil {
			if st.ActiveSession.ProfileID == profileID {
				return nil // already running, redelivered boundary
			}
			// Another profile holds the slot; the schedule wins it over.
			st.EndActiveSession(now)
		}
		st.StartScheduledSession(profileID, now)
		started = true
		selection = snap.Selection
		strict = snap.EnableStrictMode
		allowMode = snap.EnableAllowMode
		return nil
	})
	if err != nil {
		r.logger.Error("failed to handle interval start", zap.String("activity", activityID), zap.Error(err))
		return
	}

	if started {
		r.enforcer.Activate(selection, strict, allowMode)
		r.logger.Info("scheduled session started", zap.Stringer("profile", profileID))
	}
}

// OnIntervalEnd handles an interval-end boundary: schedule and timer ends
// close the session, a pause end resumes restrictions.
func (r *Reconciler) OnIntervalEnd(activityID string) {
	kind, profileID, err := domain.ParseActivityID(activityID)
	if err != nil {
		r.logger.Warn("ignoring malformed activity", zap.String("activity", activityID), zap.Error(err))
		return
	}

	switch kind {
	case domain.ActivitySchedule, domain.ActivityTimer:
		r.endSessionFor(activityID, profileID, kind)
	case domain.ActivityPause:
		r.resumeFromPause(profileID)
	}
}

func (r *Reconciler) endSessionFor(activityID string, profileID uuid.UUID, kind domain.ActivityKind) {
	now := r.now()
	var ended bool

	err := r.snapshots.Update(func(st *domain.SharedState) error {
		if st.ActiveSession == nil || st.ActiveSession.ProfileID != profileID {
			return nil // foreground already closed it, or slot changed hands
		}
		if kind == domain.ActivitySchedule && st.ActiveSession.Tag != profileID.String() {
			// The slot is held by a user-started session for the same
			// profile; the schedule window closing does not end it.
			return nil
		}
		st.EndActiveSession(now)
		ended = true
		return nil
	})
	if err != nil {
		r.logger.Error("failed to handle interval end", zap.String("activity", activityID), zap.Error(err))
		return
	}

	if ended {
		r.enforcer.Deactivate()
		r.logger.Info("session ended by boundary",
			zap.Stringer("profile", profileID),
			zap.String("activity", activityID))
	}
}

// resumeFromPause closes the pause grace window: restrictions come back on
// and the break marker is cleared, leaving the session open.
func (r *Reconciler) resumeFromPause(profileID uuid.UUID) {
	var resumed bool
	var selection domain.RestrictionSelection
	var strict, allowMode bool

	err := r.snapshots.Update(func(st *domain.SharedState) error {
		if st.ActiveSession == nil || st.ActiveSession.ProfileID != profileID {
			return nil
		}
		if st.ActiveSession.BreakStart == nil {
			return nil // not paused, redelivered boundary
		}
		st.ActiveSession.BreakStart = nil
		st.ActiveSession.BreakEnd = nil
		snap, ok := st.Snapshot(profileID)
		if !ok {
			return nil
		}
		resumed = true
		selection = snap.Selection
		strict = snap.EnableStrictMode
		allowMode = snap.EnableAllowMode
		return nil
	})
	if err != nil {
		r.logger.Error("failed to resume from pause", zap.Stringer("profile", profileID), zap.Error(err))
		return
	}

	if resumed {
		r.enforcer.Activate(selection, strict, allowMode)
		r.logger.Info("session resumed after pause", zap.Stringer("profile", profileID))
	}
}
