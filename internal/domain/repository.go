package domain

import (
	"github.com/google/uuid"
)

// ProfileStore is the authoritative persistence layer for profiles and
// session history. Only the foreground process touches it; the background
// process works exclusively from the shared snapshot.
// Implementation: SQLCipher encrypted SQLite.
type ProfileStore interface {
	// CreateProfile persists a new profile.
	CreateProfile(p *Profile) error

	// GetProfile returns the profile with whitelist loaded, or
	// ErrProfileNotFound.
	GetProfile(id uuid.UUID) (*Profile, error)

	// ListProfiles returns all profiles ordered by explicit order index,
	// then most recently created.
	ListProfiles() ([]*Profile, error)

	// UpdateProfile persists changes to an existing profile.
	UpdateProfile(p *Profile) error

	// DeleteProfile removes the profile and its sessions.
	DeleteProfile(id uuid.UUID) error

	// NextOrder returns the order index for a newly created profile.
	NextOrder() (int, error)

	// ReorderProfiles rewrites order indices to match the given sequence.
	ReorderProfiles(ids []uuid.UUID) error

	// InsertSession persists a new session record.
	InsertSession(s *Session) error

	// UpdateSession persists end time, pause window, and flags.
	UpdateSession(s *Session) error

	// OpenSessions returns all sessions with no end time, most recent first.
	OpenSessions() ([]*Session, error)

	// RecentSessions returns ended and open sessions for a profile,
	// most recent first, up to limit.
	RecentSessions(profileID uuid.UUID, limit int) ([]*Session, error)

	// DeleteSession removes a session from history.
	DeleteSession(id string) error

	// Close releases the database connection.
	Close() error
}

// SnapshotStore is the cross-process shared snapshot file. Last-writer-wins;
// Update serializes concurrent writers with a file lock but offers no
// transactional guarantees beyond that.
type SnapshotStore interface {
	// Load reads the current state. A missing file yields an empty state.
	Load() (*SharedState, error)

	// Update applies fn to the current state and writes the result
	// atomically while holding the file lock.
	Update(fn func(*SharedState) error) error

	// Path returns the snapshot file path (for status output and tests).
	Path() string
}

// Scanner yields an opaque token string asynchronously. Exactly one of the
// callbacks is invoked, at most once per Scan call; a scan may also never
// complete. Implementations must not block the caller.
type Scanner interface {
	Scan(prompt string, onToken func(tag string), onError func(msg string))
}

// Enforcer is the OS-level restriction call. Fire-and-forget: failures are
// not observable by this engine.
type Enforcer interface {
	Activate(selection RestrictionSelection, strict bool, allowModeOnly bool)
	Deactivate()
}

// IntervalScheduler is the external scheduling facility contract. Registered
// intervals are durable (they outlive process termination) and delivered to
// the background process as interval-start/interval-end callbacks.
type IntervalScheduler interface {
	// RegisterInterval registers a recurring daily interval by minute of day.
	// Re-registering an activity ID replaces the previous registration.
	RegisterInterval(activityID string, startMinute, endMinute int, repeats bool) error

	// Unregister removes a registration. Unknown IDs are a no-op.
	Unregister(activityID string) error

	// Activities returns the currently registered activity IDs.
	Activities() ([]string, error)
}

// IntervalHandler receives scheduler boundary callbacks in the background
// process. Both callbacks may be redelivered for the same boundary and must
// be idempotent.
type IntervalHandler interface {
	OnIntervalStart(activityID string)
	OnIntervalEnd(activityID string)
}

// ProcessManager exposes the little process introspection this system needs:
// liveness of the background scheduler daemon.
type ProcessManager interface {
	IsRunning(pid int) bool
	CurrentPID() int
}
