package usecase

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/schedule"
)

// LoadActiveSession is the foreground resume hook. It reconciles the
// authoritative store with whatever the background process did while the
// foreground was away: completed scheduled sessions are drained into session
// history, a background-created active slot is adopted as a real session,
// and a stored open session that no longer matches the schedule is closed.
// Safe to call repeatedly; every step re-checks before mutating.
func (e *Engine) LoadActiveSession() (*domain.Session, error) {
	now := e.now()

	var (
		completed []domain.SessionSnapshot
		active    *domain.SessionSnapshot
	)
	if err := e.snapshots.Update(func(st *domain.SharedState) error {
		completed = st.DrainCompletedSessions()
		if st.ActiveSession != nil {
			snap := *st.ActiveSession
			active = &snap
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read shared state: %w", err)
	}

	if err := e.absorbCompleted(completed); err != nil {
		return nil, err
	}

	open, err := e.store.OpenSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}

	// Adopt a session the background process started while we were away.
	if active != nil && len(open) == 0 {
		sess, err := e.adoptSnapshot(active)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}

	if len(open) == 0 {
		return e.maybeStartScheduled(now)
	}

	sess := open[0]
	profile, err := e.store.GetProfile(sess.ProfileID)
	if err != nil {
		return nil, err
	}

	// A schedule-driven session whose window has closed gets finished here
	// if the background process never fired the end boundary. A freshly
	// edited schedule is not trusted: the background scheduler may not have
	// re-registered the new window yet.
	if sess.Tag == sess.ProfileID.String() && profile.Schedule.IsEnabled() {
		if !schedule.IsScheduledNow(profile.Schedule, now) && schedule.IsStaleEnough(profile.Schedule, now) {
			if _, err := e.endSession(profile, sess); err != nil {
				return nil, err
			}
			return e.maybeStartScheduled(now)
		}
	}

	// Re-assert restrictions: the enforcer contract is idempotent, and a
	// process restart may have lost the in-memory activation.
	e.enforcer.Activate(profile.Selection, profile.EnableStrictMode, profile.EnableAllowMode)
	return sess, nil
}

// absorbCompleted writes background-closed sessions into durable history.
func (e *Engine) absorbCompleted(snaps []domain.SessionSnapshot) error {
	for i := range snaps {
		snap := snaps[i]
		sess := &domain.Session{
			ID:           snap.ID,
			ProfileID:    snap.ProfileID,
			Tag:          snap.Tag,
			StartTime:    snap.StartTime,
			EndTime:      snap.EndTime,
			BreakStart:   snap.BreakStart,
			BreakEnd:     snap.BreakEnd,
			ForceStarted: snap.ForceStarted,
		}
		if sess.EndTime == nil {
			end := e.now()
			sess.EndTime = &end
		}
		// A session adopted on an earlier resume already has a row; close
		// that one instead of inserting a duplicate.
		err := e.store.UpdateSession(sess)
		if errors.Is(err, domain.ErrSessionNotFound) {
			err = e.store.InsertSession(sess)
		}
		if err != nil {
			return fmt.Errorf("failed to absorb completed session %s: %w", snap.ID, err)
		}
		e.logger.Info("absorbed background session",
			zap.String("session", snap.ID),
			zap.Stringer("profile", snap.ProfileID))
	}
	return nil
}

// adoptSnapshot turns a background-created active slot into a real stored
// session and re-asserts restrictions. Returns nil when the referenced
// profile no longer exists, in which case the stale slot is cleared.
func (e *Engine) adoptSnapshot(snap *domain.SessionSnapshot) (*domain.Session, error) {
	profile, err := e.store.GetProfile(snap.ProfileID)
	if err != nil {
		e.logger.Warn("active snapshot references unknown profile, clearing",
			zap.Stringer("profile", snap.ProfileID), zap.Error(err))
		if uerr := e.snapshots.Update(func(st *domain.SharedState) error {
			if st.ActiveSession != nil && st.ActiveSession.ID == snap.ID {
				st.ActiveSession = nil
			}
			return nil
		}); uerr != nil {
			return nil, uerr
		}
		return nil, nil
	}

	sess := &domain.Session{
		ID:           snap.ID,
		ProfileID:    snap.ProfileID,
		Tag:          snap.Tag,
		StartTime:    snap.StartTime,
		BreakStart:   snap.BreakStart,
		BreakEnd:     snap.BreakEnd,
		ForceStarted: snap.ForceStarted,
	}
	if err := e.store.InsertSession(sess); err != nil {
		return nil, fmt.Errorf("failed to adopt session %s: %w", snap.ID, err)
	}

	e.enforcer.Activate(profile.Selection, profile.EnableStrictMode, profile.EnableAllowMode)
	e.logger.Info("adopted background session",
		zap.String("session", sess.ID),
		zap.String("profile", profile.Name))
	e.notify()
	return sess, nil
}

// maybeStartScheduled starts a session for a profile whose schedule window
// is open right now but whose background boundary was missed, provided the
// schedule has had time to propagate to the background process.
func (e *Engine) maybeStartScheduled(now time.Time) (*domain.Session, error) {
	profiles, err := e.store.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	for _, p := range profiles {
		if !schedule.ShouldDriveSession(p.Schedule, now) {
			continue
		}
		if p.Selection.IsEmpty() {
			continue
		}
		def := e.registry.Get(p.StrategyID)
		sess, err := e.activate(p, def, p.ID.String(), true)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, nil
}
