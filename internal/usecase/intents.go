package usecase

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

// IntentService is the automation surface: begin and end sessions by profile
// name without any scan interaction. Every intent reconciles against the
// shared snapshot first so automation sees the same world as the foreground UI.
type IntentService struct {
	engine *Engine
	store  domain.ProfileStore
	logger *zap.Logger
}

// NewIntentService creates the automation entry points.
func NewIntentService(engine *Engine, store domain.ProfileStore, logger *zap.Logger) *IntentService {
	return &IntentService{engine: engine, store: store, logger: logger}
}

// StartProfile starts a session for the named profile (case-insensitive).
// durationMinutes zero keeps the profile's configured behavior; a nonzero
// value must be within the timer bounds and runs the session on a timer.
func (i *IntentService) StartProfile(name string, durationMinutes int) error {
	if _, err := i.engine.LoadActiveSession(); err != nil {
		return err
	}

	if durationMinutes != 0 && (durationMinutes < MinTimerMinutes || durationMinutes > MaxTimerMinutes) {
		return fmt.Errorf("duration must be between %d and %d minutes", MinTimerMinutes, MaxTimerMinutes)
	}

	profile, err := i.findProfile(name)
	if err != nil {
		return err
	}

	_, err = i.engine.Start(profile.ID, StartOptions{
		Background:      true,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return err
	}

	i.logger.Info("intent started profile",
		zap.String("profile", profile.Name),
		zap.Int("duration_minutes", durationMinutes))
	return nil
}

// StopActiveSession ends the active session if its profile permits background
// stops. Returns true when a session was ended, false when there was nothing
// to stop or the profile opted out.
func (i *IntentService) StopActiveSession() (bool, error) {
	sess, err := i.engine.LoadActiveSession()
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}

	profile, err := i.store.GetProfile(sess.ProfileID)
	if err != nil {
		return false, err
	}
	if profile.DisableBackgroundStops {
		i.logger.Info("intent stop refused, background stops disabled",
			zap.String("profile", profile.Name))
		return false, nil
	}

	if _, err := i.engine.StopBackground(); err != nil {
		return false, err
	}
	i.logger.Info("intent stopped session", zap.String("profile", profile.Name))
	return true, nil
}

// IsSessionActive reports whether a session is running, reconciling first.
func (i *IntentService) IsSessionActive() (bool, error) {
	sess, err := i.engine.LoadActiveSession()
	if err != nil {
		return false, err
	}
	return sess != nil, nil
}

func (i *IntentService) findProfile(name string) (*domain.Profile, error) {
	profiles, err := i.store.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}
