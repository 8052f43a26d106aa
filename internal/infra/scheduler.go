package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

const activitiesFileName = "activities.json"

// registration is one durable interval. Fired markers record which boundary
// instance (keyed by the date the instance started) was already delivered,
// so a tick never re-fires a boundary the handler has seen.
type registration struct {
	ActivityID   string    `json:"activityId"`
	StartMinute  int       `json:"startMinute"`
	EndMinute    int       `json:"endMinute"`
	Repeats      bool      `json:"repeats"`
	RegisteredAt time.Time `json:"registeredAt"`

	FiredStartKey string `json:"firedStartKey,omitempty"`
	FiredEndKey   string `json:"firedEndKey,omitempty"`
}

// Boundary is one due scheduler callback.
type Boundary struct {
	ActivityID string
	Start      bool // true: interval started; false: interval ended
}

// FileIntervalScheduler implements domain.IntervalScheduler with a JSON
// registrations file shared between processes: the foreground registers and
// unregisters, the background daemon ticks and collects due boundaries.
// Registrations survive process death, standing in for the durable OS
// scheduling facility.
type FileIntervalScheduler struct {
	path string
	now  func() time.Time
}

// NewFileIntervalScheduler creates a scheduler persisting under dataDir.
func NewFileIntervalScheduler(dataDir string) *FileIntervalScheduler {
	return &FileIntervalScheduler{
		path: filepath.Join(dataDir, activitiesFileName),
		now:  time.Now,
	}
}

// NewFileIntervalSchedulerWithPath creates a scheduler at a specific path
// with a clock override (for testing).
func NewFileIntervalSchedulerWithPath(path string, now func() time.Time) *FileIntervalScheduler {
	if now == nil {
		now = time.Now
	}
	return &FileIntervalScheduler{path: path, now: now}
}

// RegisterInterval registers a recurring daily interval. Re-registering an
// activity ID replaces the previous registration and resets its markers.
func (s *FileIntervalScheduler) RegisterInterval(activityID string, startMinute, endMinute int, repeats bool) error {
	if startMinute < 0 || startMinute >= 24*60 || endMinute < 0 || endMinute >= 24*60 {
		return fmt.Errorf("interval minutes out of range: %d-%d", startMinute, endMinute)
	}
	return s.update(func(regs map[string]*registration) {
		regs[activityID] = &registration{
			ActivityID:   activityID,
			StartMinute:  startMinute,
			EndMinute:    endMinute,
			Repeats:      repeats,
			RegisteredAt: s.now(),
		}
	})
}

// Unregister removes a registration. Unknown IDs are a no-op.
func (s *FileIntervalScheduler) Unregister(activityID string) error {
	return s.update(func(regs map[string]*registration) {
		delete(regs, activityID)
	})
}

// Activities returns the currently registered activity IDs.
func (s *FileIntervalScheduler) Activities() ([]string, error) {
	regs, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(regs))
	for id := range regs {
		ids = append(ids, id)
	}
	return ids, nil
}

// Tick computes the boundaries due at now and marks them fired. The daemon
// loop calls this every few seconds and dispatches the result to the
// reconciler. Expired one-shot registrations are dropped after their end
// boundary fires.
func (s *FileIntervalScheduler) Tick() ([]Boundary, error) {
	var due []Boundary
	err := s.update(func(regs map[string]*registration) {
		now := s.now()
		for id, reg := range regs {
			due = append(due, reg.collect(now)...)
			if !reg.Repeats && reg.FiredEndKey != "" {
				delete(regs, id)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// collect appends any boundaries this registration owes at now, updating
// fired markers in place.
func (r *registration) collect(now time.Time) []Boundary {
	var due []Boundary
	key := r.instanceKey(now)

	// A missed end from a previous instance: the daemon slept through the
	// boundary and a newer instance is already current.
	if r.FiredStartKey != "" && r.FiredStartKey != key && r.FiredEndKey != r.FiredStartKey {
		r.FiredEndKey = r.FiredStartKey
		due = append(due, Boundary{ActivityID: r.ActivityID, Start: false})
	}

	if r.open(now) {
		// Never fire a start for an instance that began before registration;
		// a mid-window registration still starts (that is the point of
		// registering a window already in progress).
		if r.FiredStartKey != key {
			r.FiredStartKey = key
			due = append(due, Boundary{ActivityID: r.ActivityID, Start: true})
		}
	} else if r.FiredStartKey == key && r.FiredEndKey != key {
		r.FiredEndKey = key
		due = append(due, Boundary{ActivityID: r.ActivityID, Start: false})
	} else if !r.Repeats && r.FiredStartKey == "" && r.FiredEndKey == "" && now.After(r.oneShotEnd()) {
		// A one-shot whose whole window passed between ticks still owes its
		// end; timers must expire even when the daemon slept through them.
		r.FiredEndKey = key
		due = append(due, Boundary{ActivityID: r.ActivityID, Start: false})
	}

	return due
}

// oneShotEnd is the instant a one-shot registration's window closes on the
// day it was registered. One-shots never wrap midnight.
func (r *registration) oneShotEnd() time.Time {
	return time.Date(
		r.RegisteredAt.Year(), r.RegisteredAt.Month(), r.RegisteredAt.Day(),
		r.EndMinute/60, r.EndMinute%60, 0, 0, r.RegisteredAt.Location(),
	)
}

// open reports whether the daily interval is in progress at now.
func (r *registration) open(now time.Time) bool {
	nowMin := now.Hour()*60 + now.Minute()
	if r.EndMinute > r.StartMinute {
		return nowMin >= r.StartMinute && nowMin < r.EndMinute
	}
	// Wraps past midnight.
	return nowMin >= r.StartMinute || nowMin < r.EndMinute
}

// instanceKey identifies the current (or most recent) interval instance by
// the date it started on.
func (r *registration) instanceKey(now time.Time) string {
	nowMin := now.Hour()*60 + now.Minute()
	day := now
	if nowMin < r.StartMinute {
		day = now.AddDate(0, 0, -1)
	}
	return day.Format("2006-01-02")
}

func (s *FileIntervalScheduler) load() (map[string]*registration, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*registration), nil
		}
		return nil, fmt.Errorf("failed to read activities file: %w", err)
	}

	regs := make(map[string]*registration)
	if err := json.Unmarshal(data, &regs); err != nil {
		return nil, fmt.Errorf("failed to decode activities file: %w", err)
	}
	return regs, nil
}

func (s *FileIntervalScheduler) update(fn func(map[string]*registration)) error {
	unlock, err := acquireFileLock(s.path)
	if err != nil {
		return err
	}
	defer unlock()

	regs, err := s.load()
	if err != nil {
		return err
	}

	fn(regs)

	data, err := json.Marshal(regs)
	if err != nil {
		return fmt.Errorf("failed to encode activities: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write activities file: %w", err)
	}
	return nil
}

// Ensure FileIntervalScheduler implements domain.IntervalScheduler.
var _ domain.IntervalScheduler = (*FileIntervalScheduler)(nil)
