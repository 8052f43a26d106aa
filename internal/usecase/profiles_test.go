package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/strategy"
)

type profileFixture struct {
	svc       *ProfileService
	store     *fakeProfileStore
	snapshots *fakeSnapshotStore
	scheduler *fakeScheduler
	now       time.Time
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		store:     newFakeProfileStore(),
		snapshots: newFakeSnapshotStore(),
		scheduler: newFakeScheduler(),
		now:       time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewProfileService(f.store, f.snapshots, f.scheduler, strategy.NewRegistry(), zap.NewNop())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func TestProfileCreatePublishesSnapshot(t *testing.T) {
	f := newProfileFixture(t)

	p := &domain.Profile{Name: "Deep Work", Selection: []byte("x")}
	require.NoError(t, f.svc.Create(p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, strategy.DefaultID, p.StrategyID)
	assert.Equal(t, 0, p.Order)

	st, _ := f.snapshots.Load()
	snap, ok := st.Snapshot(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Deep Work", snap.Name)

	q := &domain.Profile{Name: "Second", Selection: []byte("y")}
	require.NoError(t, f.svc.Create(q))
	assert.Equal(t, 1, q.Order)
}

func TestProfileCreateValidation(t *testing.T) {
	f := newProfileFixture(t)

	assert.ErrorIs(t, f.svc.Create(&domain.Profile{Name: "  "}), domain.ErrInvalidProfileName)

	err := f.svc.Create(&domain.Profile{Name: "X", StrategyID: "bogus"})
	assert.Error(t, err)

	err = f.svc.Create(&domain.Profile{
		Name: "X",
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday},
			StartHour: 9,
			EndHour:   9,
			EndMinute: 30, // 30 minutes, under the minimum
		},
	})
	assert.ErrorIs(t, err, domain.ErrScheduleTooShort)
}

func TestProfileScheduleActivityLifecycle(t *testing.T) {
	f := newProfileFixture(t)

	p := &domain.Profile{
		Name:      "Scheduled",
		Selection: []byte("x"),
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday},
			StartHour: 9,
			EndHour:   17,
		},
	}
	require.NoError(t, f.svc.Create(p))

	activityID := domain.ScheduleActivityID(p.ID)
	reg, ok := f.scheduler.registered[activityID]
	require.True(t, ok)
	assert.Equal(t, 9*60, reg[0])
	assert.Equal(t, 17*60, reg[1])
	assert.Equal(t, 1, reg[2], "schedule activities repeat daily")

	// Disabling the schedule removes the registration.
	p.Schedule.Days = nil
	require.NoError(t, f.svc.Update(p, true))
	assert.False(t, f.scheduler.has(activityID))
}

func TestProfileUpdateStampsScheduleEdit(t *testing.T) {
	f := newProfileFixture(t)

	p := &domain.Profile{
		Name:      "Scheduled",
		Selection: []byte("x"),
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday},
			StartHour: 9,
			EndHour:   17,
		},
	}
	require.NoError(t, f.svc.Create(p))
	created := p.Schedule.UpdatedAt

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.svc.Update(p, false))
	assert.Equal(t, created, p.Schedule.UpdatedAt, "non-schedule edits keep the schedule stamp")

	require.NoError(t, f.svc.Update(p, true))
	assert.Equal(t, f.now, p.Schedule.UpdatedAt)
}

func TestProfileDeleteCleansUp(t *testing.T) {
	f := newProfileFixture(t)

	p := &domain.Profile{
		Name:      "Doomed",
		Selection: []byte("x"),
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday},
			StartHour: 9,
			EndHour:   17,
		},
	}
	require.NoError(t, f.svc.Create(p))

	sess := domain.NewSession(p.ID, "manual", false, f.now)
	require.NoError(t, f.store.InsertSession(sess))
	require.NoError(t, f.snapshots.Update(func(st *domain.SharedState) error {
		snap := domain.SnapshotOfSession(sess)
		st.ActiveSession = &snap
		return nil
	}))

	require.NoError(t, f.svc.Delete(p.ID))

	_, err := f.store.GetProfile(p.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.False(t, f.scheduler.has(domain.ScheduleActivityID(p.ID)))

	st, _ := f.snapshots.Load()
	_, ok := st.Snapshot(p.ID)
	assert.False(t, ok)
	assert.Nil(t, st.ActiveSession)
}

func TestProfileClone(t *testing.T) {
	f := newProfileFixture(t)

	src := &domain.Profile{
		Name:         "Original",
		Selection:    []byte("x"),
		StrategyID:   strategy.TimerID,
		BreakMinutes: 10,
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday},
			StartHour: 9,
			EndHour:   17,
		},
	}
	require.NoError(t, f.svc.Create(src))
	_, err := f.svc.RecentSessions(src.ID, 10)
	require.NoError(t, err)

	dup, err := f.svc.Clone(src.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original (copy)", dup.Name)
	assert.Equal(t, strategy.TimerID, dup.StrategyID)
	assert.Equal(t, 10, dup.BreakMinutes)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Nil(t, dup.Schedule, "schedule does not carry over")
	assert.Empty(t, dup.Whitelist)
}

func TestProfileReorder(t *testing.T) {
	f := newProfileFixture(t)

	a := &domain.Profile{Name: "A", Selection: []byte("x")}
	b := &domain.Profile{Name: "B", Selection: []byte("y")}
	require.NoError(t, f.svc.Create(a))
	require.NoError(t, f.svc.Create(b))

	require.NoError(t, f.svc.Reorder([]uuid.UUID{b.ID, a.ID}))

	list, err := f.svc.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A", list[1].Name)
}

func TestProfilePublishAll(t *testing.T) {
	f := newProfileFixture(t)
	a := &domain.Profile{Name: "A", Selection: []byte("x")}
	require.NoError(t, f.svc.Create(a))

	// Wipe the snapshot file and republish from the store.
	require.NoError(t, f.snapshots.Update(func(st *domain.SharedState) error {
		st.ProfileSnapshots = nil
		return nil
	}))
	require.NoError(t, f.svc.PublishAll())

	st, _ := f.snapshots.Load()
	_, ok := st.Snapshot(a.ID)
	assert.True(t, ok)
}
