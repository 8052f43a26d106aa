package usecase

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

// fakeProfileStore is an in-memory ProfileStore.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.Profile
	sessions map[string]*domain.Session
}

var _ domain.ProfileStore = (*fakeProfileStore)(nil)

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		profiles: make(map[uuid.UUID]*domain.Profile),
		sessions: make(map[string]*domain.Session),
	}
}

func (f *fakeProfileStore) CreateProfile(p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileStore) GetProfile(id uuid.UUID) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileStore) ListProfiles() ([]*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeProfileStore) UpdateProfile(p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileStore) DeleteProfile(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, id)
	for sid, s := range f.sessions {
		if s.ProfileID == id {
			delete(f.sessions, sid)
		}
	}
	return nil
}

func (f *fakeProfileStore) NextOrder() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := -1
	for _, p := range f.profiles {
		if p.Order > max {
			max = p.Order
		}
	}
	return max + 1, nil
}

func (f *fakeProfileStore) ReorderProfiles(ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if p, ok := f.profiles[id]; ok {
			p.Order = i
		}
	}
	return nil
}

func (f *fakeProfileStore) InsertSession(s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeProfileStore) UpdateSession(s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeProfileStore) OpenSessions() ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.EndTime == nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (f *fakeProfileStore) RecentSessions(profileID uuid.UUID, limit int) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.ProfileID == profileID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProfileStore) DeleteSession(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeProfileStore) Close() error { return nil }

// fakeSnapshotStore keeps the shared state in memory.
type fakeSnapshotStore struct {
	mu    sync.Mutex
	state *domain.SharedState
}

var _ domain.SnapshotStore = (*fakeSnapshotStore)(nil)

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{state: domain.NewSharedState()}
}

func (f *fakeSnapshotStore) Load() (*domain.SharedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.state
	return &cp, nil
}

func (f *fakeSnapshotStore) Update(fn func(*domain.SharedState) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.state)
}

func (f *fakeSnapshotStore) Path() string { return "fake://shared_state" }

// fakeEnforcer records activate/deactivate calls.
type fakeEnforcer struct {
	mu          sync.Mutex
	active      bool
	activations int
	deactivates int
	lastStrict  bool
	lastAllow   bool
}

var _ domain.Enforcer = (*fakeEnforcer)(nil)

func (f *fakeEnforcer) Activate(sel domain.RestrictionSelection, strict, allowMode bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	f.activations++
	f.lastStrict = strict
	f.lastAllow = allowMode
}

func (f *fakeEnforcer) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.deactivates++
}

// fakeScheduler records interval registrations.
type fakeScheduler struct {
	mu         sync.Mutex
	registered map[string][3]int // activityID -> start, end, repeats(1/0)
}

var _ domain.IntervalScheduler = (*fakeScheduler)(nil)

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{registered: make(map[string][3]int)}
}

func (f *fakeScheduler) RegisterInterval(activityID string, startMinute, endMinute int, repeats bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := 0
	if repeats {
		r = 1
	}
	f.registered[activityID] = [3]int{startMinute, endMinute, r}
	return nil
}

func (f *fakeScheduler) Unregister(activityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, activityID)
	return nil
}

func (f *fakeScheduler) Activities() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.registered))
	for id := range f.registered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeScheduler) has(activityID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.registered[activityID]
	return ok
}

// fakeScanner delivers a preset token (or error) synchronously, or captures
// the callbacks for deferred delivery when deferred is set.
type fakeScanner struct {
	token    string
	errMsg   string
	deferred bool

	onToken func(string)
	onError func(string)
	scans   int
}

var _ domain.Scanner = (*fakeScanner)(nil)

func (f *fakeScanner) Scan(prompt string, onToken func(string), onError func(string)) {
	f.scans++
	if f.deferred {
		f.onToken = onToken
		f.onError = onError
		return
	}
	if f.errMsg != "" {
		onError(f.errMsg)
		return
	}
	onToken(f.token)
}
