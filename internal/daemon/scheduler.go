// Package daemon implements the background scheduler daemon: the process
// that delivers durable interval boundaries to the reconciler while the
// foreground is not running.
package daemon

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/infra"
)

// SchedulerConfig holds scheduler daemon configuration.
type SchedulerConfig struct {
	TickInterval      time.Duration // how often to poll for due boundaries
	HeartbeatInterval time.Duration // how often to stamp liveness into the snapshot
}

// DefaultSchedulerConfig returns default scheduler daemon configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Scheduler is the background daemon loop. It polls the durable interval
// registrations, dispatches due boundaries to the handler, and heartbeats
// its PID into the shared snapshot so the foreground can tell it is alive.
type Scheduler struct {
	config    SchedulerConfig
	intervals *infra.FileIntervalScheduler
	handler   domain.IntervalHandler
	snapshots domain.SnapshotStore
	logger    *zap.Logger
}

// NewScheduler creates the background scheduler daemon.
func NewScheduler(
	config SchedulerConfig,
	intervals *infra.FileIntervalScheduler,
	handler domain.IntervalHandler,
	snapshots domain.SnapshotStore,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		config:    config,
		intervals: intervals,
		handler:   handler,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Run starts the scheduler daemon loop. This blocks until context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	pid := os.Getpid()
	s.logger.Info("scheduler daemon started", zap.Int("pid", pid))

	s.heartbeat(pid)
	s.tick()

	tickTicker := time.NewTicker(s.config.TickInterval)
	heartbeatTicker := time.NewTicker(s.config.HeartbeatInterval)
	defer func() {
		tickTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler daemon stopping")
			s.clearHeartbeat(pid)
			return ctx.Err()

		case <-tickTicker.C:
			s.tick()

		case <-heartbeatTicker.C:
			s.heartbeat(pid)
		}
	}
}

// tick collects due boundaries and dispatches them in order. Starts and ends
// for different activities can be due in one tick after a long sleep; the
// handler is idempotent, so redelivery after a crash here is safe.
func (s *Scheduler) tick() {
	due, err := s.intervals.Tick()
	if err != nil {
		s.logger.Error("failed to collect due boundaries", zap.Error(err))
		return
	}

	for _, b := range due {
		if b.Start {
			s.logger.Info("interval started", zap.String("activity", b.ActivityID))
			s.handler.OnIntervalStart(b.ActivityID)
		} else {
			s.logger.Info("interval ended", zap.String("activity", b.ActivityID))
			s.handler.OnIntervalEnd(b.ActivityID)
		}
	}
}

func (s *Scheduler) heartbeat(pid int) {
	if err := s.snapshots.Update(func(st *domain.SharedState) error {
		st.SchedulerPID = pid
		return nil
	}); err != nil {
		s.logger.Warn("failed to update heartbeat", zap.Error(err))
	}
}

// clearHeartbeat drops the PID stamp on clean shutdown so the foreground
// does not mistake a dead daemon for a live one with a recycled PID.
func (s *Scheduler) clearHeartbeat(pid int) {
	if err := s.snapshots.Update(func(st *domain.SharedState) error {
		if st.SchedulerPID == pid {
			st.SchedulerPID = 0
		}
		return nil
	}); err != nil {
		s.logger.Warn("failed to clear heartbeat", zap.Error(err))
	}
}
