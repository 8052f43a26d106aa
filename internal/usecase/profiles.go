package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/strategy"
)

// ProfileService owns profile CRUD and keeps the two downstream views in
// step with every mutation: the shared snapshot the background process reads,
// and the schedule activity registration.
type ProfileService struct {
	store     domain.ProfileStore
	snapshots domain.SnapshotStore
	scheduler domain.IntervalScheduler
	registry  *strategy.Registry
	logger    *zap.Logger
	now       func() time.Time
}

// NewProfileService creates a profile service.
func NewProfileService(
	store domain.ProfileStore,
	snapshots domain.SnapshotStore,
	scheduler domain.IntervalScheduler,
	registry *strategy.Registry,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		store:     store,
		snapshots: snapshots,
		scheduler: scheduler,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the service clock (for testing).
func (s *ProfileService) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates and persists a new profile, publishes its snapshot, and
// registers its schedule activity when one is configured.
func (s *ProfileService) Create(p *domain.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.ErrInvalidProfileName
	}
	if _, err := s.registry.Lookup(p.StrategyID); err != nil && p.StrategyID != "" {
		return err
	}
	if p.StrategyID == "" {
		p.StrategyID = strategy.DefaultID
	}
	if err := p.Schedule.Validate(); err != nil {
		return err
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	order, err := s.store.NextOrder()
	if err != nil {
		return fmt.Errorf("failed to compute profile order: %w", err)
	}
	p.Order = order
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Schedule != nil {
		p.Schedule.UpdatedAt = now
	}

	if err := s.store.CreateProfile(p); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	s.publish(p)
	s.syncScheduleActivity(p)

	s.logger.Info("profile created",
		zap.String("profile", p.Name),
		zap.Stringer("id", p.ID),
		zap.String("strategy", p.StrategyID))
	return nil
}

// Update persists changes to an existing profile and refreshes the snapshot
// and schedule registration. scheduleChanged stamps the schedule's own
// update time, which delays schedule-driven starts until the edit settles.
func (s *ProfileService) Update(p *domain.Profile, scheduleChanged bool) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.ErrInvalidProfileName
	}
	if err := p.Schedule.Validate(); err != nil {
		return err
	}

	now := s.now()
	p.UpdatedAt = now
	if scheduleChanged && p.Schedule != nil {
		p.Schedule.UpdatedAt = now
	}

	if err := s.store.UpdateProfile(p); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.publish(p)
	s.syncScheduleActivity(p)

	s.logger.Info("profile updated", zap.String("profile", p.Name))
	return nil
}

// Delete removes a profile. Any open session for it is closed first so no
// orphaned restriction state survives the profile.
func (s *ProfileService) Delete(id uuid.UUID) error {
	p, err := s.store.GetProfile(id)
	if err != nil {
		return err
	}

	open, err := s.store.OpenSessions()
	if err != nil {
		return fmt.Errorf("failed to query open sessions: %w", err)
	}
	now := s.now()
	for _, sess := range open {
		if sess.ProfileID != id {
			continue
		}
		sess.End(now)
		if err := s.store.UpdateSession(sess); err != nil {
			return fmt.Errorf("failed to close session for deleted profile: %w", err)
		}
	}

	if err := s.scheduler.Unregister(domain.ScheduleActivityID(id)); err != nil {
		s.logger.Error("failed to unregister schedule activity", zap.Error(err))
	}
	if err := s.scheduler.Unregister(domain.TimerActivityID(id)); err != nil {
		s.logger.Error("failed to unregister timer activity", zap.Error(err))
	}
	if err := s.scheduler.Unregister(domain.PauseActivityID(id)); err != nil {
		s.logger.Error("failed to unregister pause activity", zap.Error(err))
	}

	if err := s.store.DeleteProfile(id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if err := s.snapshots.Update(func(st *domain.SharedState) error {
		st.RemoveSnapshot(id)
		if st.ActiveSession != nil && st.ActiveSession.ProfileID == id {
			st.ActiveSession = nil
		}
		return nil
	}); err != nil {
		s.logger.Error("failed to remove profile snapshot", zap.Error(err))
	}

	s.logger.Info("profile deleted", zap.String("profile", p.Name))
	return nil
}

// Clone duplicates a profile's configuration under a new identity. Schedule,
// whitelist, and session history do not carry over; a cloned profile starts
// with a clean slate for both.
func (s *ProfileService) Clone(id uuid.UUID) (*domain.Profile, error) {
	src, err := s.store.GetProfile(id)
	if err != nil {
		return nil, err
	}

	dup := &domain.Profile{
		Name:                   src.Name + " (copy)",
		Selection:              append(domain.RestrictionSelection(nil), src.Selection...),
		StrategyID:             src.StrategyID,
		StrategyData:           append([]byte(nil), src.StrategyData...),
		EnableStrictMode:       src.EnableStrictMode,
		EnableAllowMode:        src.EnableAllowMode,
		EnableBreaks:           src.EnableBreaks,
		BlockWebDomains:        src.BlockWebDomains,
		DisableBackgroundStops: src.DisableBackgroundStops,
		BreakMinutes:           src.BreakMinutes,
		Domains:                append([]string(nil), src.Domains...),
		ReminderSeconds:        src.ReminderSeconds,
		ReminderMessage:        src.ReminderMessage,
	}
	if err := s.Create(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// Reorder rewrites the explicit ordering to match ids.
func (s *ProfileService) Reorder(ids []uuid.UUID) error {
	if err := s.store.ReorderProfiles(ids); err != nil {
		return fmt.Errorf("failed to reorder profiles: %w", err)
	}
	return nil
}

// Get returns one profile by id.
func (s *ProfileService) Get(id uuid.UUID) (*domain.Profile, error) {
	return s.store.GetProfile(id)
}

// List returns all profiles in display order.
func (s *ProfileService) List() ([]*domain.Profile, error) {
	return s.store.ListProfiles()
}

// RecentSessions returns session history for a profile, most recent first.
func (s *ProfileService) RecentSessions(id uuid.UUID, limit int) ([]*domain.Session, error) {
	return s.store.RecentSessions(id, limit)
}

// DeleteSession removes one session from history.
func (s *ProfileService) DeleteSession(id string) error {
	return s.store.DeleteSession(id)
}

// PublishAll republishes every profile's snapshot. Called at startup so the
// background process never works from a view older than the last run.
func (s *ProfileService) PublishAll() error {
	profiles, err := s.store.ListProfiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	return s.snapshots.Update(func(st *domain.SharedState) error {
		for _, p := range profiles {
			st.SetSnapshot(domain.SnapshotOf(p))
		}
		return nil
	})
}

func (s *ProfileService) publish(p *domain.Profile) {
	if err := s.snapshots.Update(func(st *domain.SharedState) error {
		st.SetSnapshot(domain.SnapshotOf(p))
		return nil
	}); err != nil {
		s.logger.Error("failed to publish profile snapshot",
			zap.String("profile", p.Name), zap.Error(err))
	}
}

// syncScheduleActivity keeps the durable schedule registration matching the
// profile's schedule: registered while enabled, removed otherwise.
func (s *ProfileService) syncScheduleActivity(p *domain.Profile) {
	activityID := domain.ScheduleActivityID(p.ID)
	if !p.Schedule.IsEnabled() {
		if err := s.scheduler.Unregister(activityID); err != nil {
			s.logger.Error("failed to unregister schedule activity", zap.Error(err))
		}
		return
	}
	err := s.scheduler.RegisterInterval(activityID, p.Schedule.StartMinutes(), p.Schedule.EndMinutes(), true)
	if err != nil {
		s.logger.Error("failed to register schedule activity",
			zap.String("profile", p.Name), zap.Error(err))
	}
}
