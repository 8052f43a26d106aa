// Package usecase contains application business logic: the session
// lifecycle engine, the background reconciler, whitelist management, and the
// automation intents.
package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/strategy"
)

// Timer duration limits for deferred-expiry sessions, in minutes.
const (
	MinTimerMinutes = 15
	MaxTimerMinutes = 1440
)

// MaxPauseMinutes bounds the pause grace window. A paused session lifts
// restrictions while staying open; the bound prevents indefinite silent
// unblocking if the foreground process is killed mid-pause.
const MaxPauseMinutes = 15

// StartOptions configures a session start request.
type StartOptions struct {
	// Force waives the "same token to stop" rule for the new session.
	Force bool

	// DurationMinutes overrides the stored timer duration for timer
	// strategies. Zero means use the profile's stored duration.
	DurationMinutes int

	// Background starts skip the scan step and record the manual sentinel
	// tag; used by the automation intents, which cannot scan.
	Background bool
}

// StartResult reports how a start request concluded.
type StartResult struct {
	// Session is set when the session started synchronously.
	Session *domain.Session

	// AwaitingScan is set when the scanner has been engaged and the session
	// will start from its callback.
	AwaitingScan bool
}

// StopOutcome distinguishes a full stop from a pause transition.
type StopOutcome int

const (
	OutcomeEnded StopOutcome = iota
	OutcomePaused
)

// StopResult reports how a stop request concluded.
type StopResult struct {
	Outcome      StopOutcome
	AwaitingScan bool
}

// Engine is the session lifecycle orchestrator. It owns the single
// active-session invariant, dispatches to the selected strategy variant,
// applies the stop-gating rule, and keeps the shared snapshot in step with
// the authoritative store. One engine instance is owned by the foreground
// process entry point; the background process runs a Reconciler instead.
type Engine struct {
	store     domain.ProfileStore
	snapshots domain.SnapshotStore
	enforcer  domain.Enforcer
	scheduler domain.IntervalScheduler
	scanner   domain.Scanner
	registry  *strategy.Registry
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	scanGen  uint64
	onChange func()
}

// NewEngine creates a session lifecycle engine.
func NewEngine(
	store domain.ProfileStore,
	snapshots domain.SnapshotStore,
	enforcer domain.Enforcer,
	scheduler domain.IntervalScheduler,
	scanner domain.Scanner,
	registry *strategy.Registry,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		store:     store,
		snapshots: snapshots,
		enforcer:  enforcer,
		scheduler: scheduler,
		scanner:   scanner,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the engine clock (for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetOnChange registers a notification hook fired after every state change.
// The foreground UI observes the engine through this instead of polling.
func (e *Engine) SetOnChange(fn func()) {
	e.onChange = fn
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// Start begins a blocking session for the profile. Scan-started strategies
// engage the scanner; the session then starts from the scan callback, and a
// newer start or stop request supersedes any scan still pending.
func (e *Engine) Start(profileID uuid.UUID, opts StartOptions) (*StartResult, error) {
	open, err := e.store.OpenSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	if len(open) > 0 {
		return nil, domain.ErrAlreadyActive
	}

	profile, err := e.store.GetProfile(profileID)
	if err != nil {
		return nil, err
	}
	if profile.Selection.IsEmpty() {
		return nil, domain.ErrEmptySelection
	}

	def := e.registry.Get(profile.StrategyID)
	plan := def.Begin()

	if def.Traits.HasTimer {
		if err := e.resolveTimerDuration(profile, opts.DurationMinutes); err != nil {
			return nil, err
		}
	}

	if opts.Background {
		sess, err := e.activate(profile, def, strategy.ManualID, true)
		if err != nil {
			return nil, err
		}
		// An explicit duration bounds the session even when the profile's
		// strategy has no timer of its own.
		if opts.DurationMinutes > 0 && !def.Traits.HasTimer {
			endMinute := clampEndOfDay(e.now(), time.Duration(opts.DurationMinutes)*time.Minute)
			if err := e.scheduler.RegisterInterval(domain.TimerActivityID(profile.ID), 0, endMinute, false); err != nil {
				e.logger.Error("failed to register intent timer", zap.Error(err))
			}
		}
		return &StartResult{Session: sess}, nil
	}

	if !plan.NeedsScan {
		sess, err := e.activate(profile, def, plan.Tag, opts.Force)
		if err != nil {
			return nil, err
		}
		return &StartResult{Session: sess}, nil
	}

	gen := e.claimScan()
	done := make(chan struct{})
	var (
		sess    *domain.Session
		scanErr error
	)
	e.scanner.Scan("Scan to start "+profile.Name,
		func(tag string) {
			defer close(done)
			if !e.scanCurrent(gen) {
				return // superseded by a newer request
			}
			sess, scanErr = e.activate(profile, def, tag, opts.Force)
		},
		func(msg string) {
			defer close(done)
			if !e.scanCurrent(gen) {
				return
			}
			scanErr = fmt.Errorf("scan failed: %s", msg)
			e.logger.Warn("start scan failed", zap.String("profile", profile.Name), zap.String("reason", msg))
		},
	)

	select {
	case <-done:
		if scanErr != nil {
			return nil, scanErr
		}
		return &StartResult{Session: sess}, nil
	default:
		return &StartResult{AwaitingScan: true}, nil
	}
}

// resolveTimerDuration validates and persists the timer duration a timer
// session will run for. An explicit override replaces the stored one, the
// way picking a duration at start time did originally.
func (e *Engine) resolveTimerDuration(profile *domain.Profile, overrideMinutes int) error {
	if overrideMinutes == 0 {
		if _, err := strategy.DecodeTimerData(profile.StrategyData); err != nil {
			return fmt.Errorf("timer strategy needs a duration: %w", err)
		}
		return nil
	}
	if overrideMinutes < MinTimerMinutes || overrideMinutes > MaxTimerMinutes {
		return fmt.Errorf("duration must be between %d and %d minutes", MinTimerMinutes, MaxTimerMinutes)
	}
	data, err := strategy.EncodeTimerData(strategy.TimerData{DurationMinutes: overrideMinutes})
	if err != nil {
		return err
	}
	profile.StrategyData = data
	profile.UpdatedAt = e.now()
	if err := e.store.UpdateProfile(profile); err != nil {
		return fmt.Errorf("failed to persist timer duration: %w", err)
	}
	return nil
}

// activate performs the actual session start: enforcer on, session record,
// snapshot republish, timer registration.
func (e *Engine) activate(profile *domain.Profile, def strategy.Definition, tag string, force bool) (*domain.Session, error) {
	now := e.now()

	e.enforcer.Activate(profile.Selection, profile.EnableStrictMode, profile.EnableAllowMode)

	sess := domain.NewSession(profile.ID, tag, force, now)
	if err := e.store.InsertSession(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if err := e.snapshots.Update(func(st *domain.SharedState) error {
		st.SetSnapshot(domain.SnapshotOf(profile))
		snap := domain.SnapshotOfSession(sess)
		st.ActiveSession = &snap
		return nil
	}); err != nil {
		e.logger.Error("failed to publish session snapshot", zap.Error(err))
	}

	if def.Traits.HasTimer {
		if err := e.registerTimerExpiry(profile, now); err != nil {
			e.logger.Error("failed to register timer expiry", zap.Error(err))
		}
	}

	e.logger.Info("session started",
		zap.String("profile", profile.Name),
		zap.String("session", sess.ID),
		zap.String("strategy", def.ID),
		zap.Bool("force", force))

	e.notify()
	return sess, nil
}

// registerTimerExpiry schedules the durable auto-expiry callback for a
// timer-deferred session. The interval runs from midnight to the expiry
// minute, clamped to the end of the day.
func (e *Engine) registerTimerExpiry(profile *domain.Profile, startedAt time.Time) error {
	data, err := strategy.DecodeTimerData(profile.StrategyData)
	if err != nil {
		return err
	}
	endMinute := clampEndOfDay(startedAt, data.Duration())
	return e.scheduler.RegisterInterval(domain.TimerActivityID(profile.ID), 0, endMinute, false)
}

// Stop ends (or pauses) the active session. The presented token is checked
// against the stop gate before anything is mutated; scan-gated strategies
// without a presented token engage the scanner first.
func (e *Engine) Stop(presentedToken string) (*StopResult, error) {
	sess, profile, err := e.activeSessionAndProfile()
	if err != nil {
		return nil, err
	}

	def := e.registry.Get(profile.StrategyID)
	plan := def.End()

	if plan.NeedsScan && presentedToken == "" {
		gen := e.claimScan()
		done := make(chan struct{})
		var (
			result  *StopResult
			scanErr error
		)
		e.scanner.Scan("Scan to stop "+profile.Name,
			func(tag string) {
				defer close(done)
				if !e.scanCurrent(gen) {
					return
				}
				result, scanErr = e.completeStop(profile, sess, def, tag, false)
			},
			func(msg string) {
				defer close(done)
				if !e.scanCurrent(gen) {
					return
				}
				scanErr = fmt.Errorf("scan failed: %s", msg)
				e.logger.Warn("stop scan failed", zap.String("profile", profile.Name), zap.String("reason", msg))
			},
		)

		select {
		case <-done:
			return result, scanErr
		default:
			return &StopResult{AwaitingScan: true}, nil
		}
	}

	if presentedToken == "" {
		// Manual stop: the sentinel tag that started the session is the
		// presented trigger, so the original-trigger gate passes by
		// construction.
		presentedToken = sess.Tag
	}
	return e.completeStop(profile, sess, def, presentedToken, false)
}

// StopBackground force-ends the active session on behalf of the automation
// surface. Background stops cannot scan, so the gate is bypassed; the
// per-profile opt-out is enforced by the caller.
func (e *Engine) StopBackground() (*StopResult, error) {
	sess, profile, err := e.activeSessionAndProfile()
	if err != nil {
		return nil, err
	}
	def := e.registry.Get(profile.StrategyID)
	return e.completeStop(profile, sess, def, sess.Tag, true)
}

func (e *Engine) activeSessionAndProfile() (*domain.Session, *domain.Profile, error) {
	open, err := e.store.OpenSessions()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	if len(open) == 0 {
		return nil, nil, domain.ErrNoActiveSession
	}
	sess := open[0]
	profile, err := e.store.GetProfile(sess.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	return sess, profile, nil
}

// completeStop applies the gate, then either pauses or fully ends the
// session. bypassGate skips the token check for background stops.
func (e *Engine) completeStop(profile *domain.Profile, sess *domain.Session, def strategy.Definition, presented string, bypassGate bool) (*StopResult, error) {
	if !bypassGate {
		gate := domain.StopGateFor(profile, sess.ForceStarted)
		if err := gate.Admit(presented, sess.Tag); err != nil {
			e.logger.Info("stop rejected by gate",
				zap.String("profile", profile.Name),
				zap.Error(err))
			return nil, err
		}
	}

	if def.Traits.PauseCapable && !bypassGate {
		paused, err := e.pauseRegistered(profile.ID)
		if err != nil {
			return nil, err
		}
		if !paused {
			return e.beginPause(profile, sess)
		}
		// Second stop while paused: fall through to a full end and drop the
		// grace-window registration.
		if err := e.scheduler.Unregister(domain.PauseActivityID(profile.ID)); err != nil {
			e.logger.Error("failed to unregister pause activity", zap.Error(err))
		}
	}

	return e.endSession(profile, sess)
}

func (e *Engine) pauseRegistered(profileID uuid.UUID) (bool, error) {
	ids, err := e.scheduler.Activities()
	if err != nil {
		return false, fmt.Errorf("failed to list scheduler activities: %w", err)
	}
	want := domain.PauseActivityID(profileID)
	for _, id := range ids {
		if id == want {
			return true, nil
		}
	}
	return false, nil
}

// beginPause lifts restrictions while keeping the session open, and
// registers the bounded grace window that auto-resumes if the second stop
// never arrives.
func (e *Engine) beginPause(profile *domain.Profile, sess *domain.Session) (*StopResult, error) {
	now := e.now()
	minutes := e.pauseMinutes(profile)

	endMinute := clampEndOfDay(now, time.Duration(minutes)*time.Minute)
	if err := e.scheduler.RegisterInterval(domain.PauseActivityID(profile.ID), 0, endMinute, false); err != nil {
		return nil, fmt.Errorf("failed to register pause grace window: %w", err)
	}

	e.enforcer.Deactivate()

	breakEnd := now.Add(time.Duration(minutes) * time.Minute)
	sess.BreakStart = &now
	sess.BreakEnd = &breakEnd
	if err := e.store.UpdateSession(sess); err != nil {
		return nil, fmt.Errorf("failed to persist pause window: %w", err)
	}

	if err := e.snapshots.Update(func(st *domain.SharedState) error {
		if st.ActiveSession == nil || st.ActiveSession.ProfileID != profile.ID {
			return nil // slot belongs to someone else; do not clobber
		}
		st.ActiveSession.BreakStart = &now
		st.ActiveSession.BreakEnd = &breakEnd
		return nil
	}); err != nil {
		e.logger.Error("failed to publish pause window", zap.Error(err))
	}

	e.logger.Info("session paused",
		zap.String("profile", profile.Name),
		zap.Int("grace_minutes", minutes))

	e.notify()
	return &StopResult{Outcome: OutcomePaused}, nil
}

func (e *Engine) pauseMinutes(profile *domain.Profile) int {
	minutes := profile.BreakMinutes
	if data, err := strategy.DecodePauseData(profile.StrategyData); err == nil && data.PauseDurationMinutes > 0 {
		minutes = data.PauseDurationMinutes
	}
	if minutes <= 0 || minutes > MaxPauseMinutes {
		minutes = MaxPauseMinutes
	}
	return minutes
}

// endSession fully closes the session: store, enforcer, snapshot, timers.
func (e *Engine) endSession(profile *domain.Profile, sess *domain.Session) (*StopResult, error) {
	now := e.now()

	sess.End(now)
	if err := e.store.UpdateSession(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session end: %w", err)
	}

	// Unregistering an unknown activity is a no-op, so this also covers
	// intent-bounded sessions on non-timer strategies.
	if err := e.scheduler.Unregister(domain.TimerActivityID(profile.ID)); err != nil {
		e.logger.Error("failed to unregister timer activity", zap.Error(err))
	}

	e.enforcer.Deactivate()

	if err := e.snapshots.Update(func(st *domain.SharedState) error {
		if st.ActiveSession != nil && st.ActiveSession.ProfileID == profile.ID {
			st.ActiveSession = nil
		}
		return nil
	}); err != nil {
		e.logger.Error("failed to clear session snapshot", zap.Error(err))
	}

	e.logger.Info("session ended",
		zap.String("profile", profile.Name),
		zap.String("session", sess.ID),
		zap.Duration("duration", sess.Duration(now)))

	e.notify()
	return &StopResult{Outcome: OutcomeEnded}, nil
}

// claimScan supersedes any pending scan and returns the new generation.
// Only callbacks carrying the current generation are honored; an older scan
// that completes later is silently dropped.
func (e *Engine) claimScan() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scanGen++
	return e.scanGen
}

func (e *Engine) scanCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.scanGen
}

// clampEndOfDay converts startedAt+d to a minute of day, capped at 23:59 so
// the expiry interval never rolls past midnight.
func clampEndOfDay(startedAt time.Time, d time.Duration) int {
	endMinute := startedAt.Hour()*60 + startedAt.Minute() + int(d.Minutes())
	if endMinute >= 24*60-1 {
		endMinute = 24*60 - 1
	}
	return endMinute
}
