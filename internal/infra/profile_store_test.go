package infra

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

func newTestProfileStore(t *testing.T) *EncryptedProfileStore {
	t.Helper()
	dir := t.TempDir()
	key, err := NewFileKeyProvider(dir).EnsureKey()
	require.NoError(t, err)
	store, err := NewEncryptedProfileStore(dir, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleProfile() *domain.Profile {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	return &domain.Profile{
		ID:         uuid.New(),
		Name:       "Deep Work",
		Selection:  domain.RestrictionSelection(`{"apps":["social"]}`),
		StrategyID: "nfc",
		Schedule: &domain.Schedule{
			Days:      []time.Weekday{time.Monday, time.Wednesday},
			StartHour: 9,
			EndHour:   17,
			UpdatedAt: now,
		},
		Whitelist: []domain.WhitelistTag{
			{ID: uuid.New(), TagID: "kitchen", Name: "Kitchen", AddedAt: now},
		},
		EnableStrictMode:       true,
		DisableBackgroundStops: true,
		BreakMinutes:           10,
		Domains:                []string{"example.com"},
		ReminderSeconds:        30,
		ReminderMessage:        "stay focused",
		Order:                  2,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func TestProfileStoreRoundTrip(t *testing.T) {
	store := newTestProfileStore(t)
	p := sampleProfile()
	require.NoError(t, store.CreateProfile(p))

	got, err := store.GetProfile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Selection, got.Selection)
	assert.Equal(t, p.StrategyID, got.StrategyID)
	require.NotNil(t, got.Schedule)
	assert.Equal(t, p.Schedule.Days, got.Schedule.Days)
	assert.Equal(t, p.Schedule.StartHour, got.Schedule.StartHour)
	require.Len(t, got.Whitelist, 1)
	assert.Equal(t, "kitchen", got.Whitelist[0].TagID)
	assert.True(t, got.EnableStrictMode)
	assert.True(t, got.DisableBackgroundStops)
	assert.Equal(t, 10, got.BreakMinutes)
	assert.Equal(t, []string{"example.com"}, got.Domains)
	assert.Equal(t, uint32(30), got.ReminderSeconds)
	assert.Equal(t, "stay focused", got.ReminderMessage)
}

func TestProfileStoreGetUnknown(t *testing.T) {
	store := newTestProfileStore(t)
	_, err := store.GetProfile(uuid.New())
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestProfileStoreUpdateRewritesWhitelist(t *testing.T) {
	store := newTestProfileStore(t)
	p := sampleProfile()
	require.NoError(t, store.CreateProfile(p))

	p.Name = "Renamed"
	p.Whitelist = []domain.WhitelistTag{
		{ID: uuid.New(), TagID: "desk", Name: "Desk", AddedAt: p.UpdatedAt},
		{ID: uuid.New(), TagID: "door", Name: "Door", AddedAt: p.UpdatedAt},
	}
	require.NoError(t, store.UpdateProfile(p))

	got, err := store.GetProfile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.Len(t, got.Whitelist, 2)
}

func TestProfileStoreOrdering(t *testing.T) {
	store := newTestProfileStore(t)

	a := sampleProfile()
	a.Name, a.Order = "A", 0
	b := sampleProfile()
	b.ID, b.Name, b.Order = uuid.New(), "B", 1
	require.NoError(t, store.CreateProfile(a))
	require.NoError(t, store.CreateProfile(b))

	next, err := store.NextOrder()
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	require.NoError(t, store.ReorderProfiles([]uuid.UUID{b.ID, a.ID}))
	list, err := store.ListProfiles()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A", list[1].Name)
}

func TestProfileStoreSessions(t *testing.T) {
	store := newTestProfileStore(t)
	p := sampleProfile()
	require.NoError(t, store.CreateProfile(p))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	open := domain.NewSession(p.ID, "tag-1", false, start)
	require.NoError(t, store.InsertSession(open))

	opens, err := store.OpenSessions()
	require.NoError(t, err)
	require.Len(t, opens, 1)
	assert.Equal(t, open.ID, opens[0].ID)

	open.End(start.Add(time.Hour))
	require.NoError(t, store.UpdateSession(open))

	opens, err = store.OpenSessions()
	require.NoError(t, err)
	assert.Empty(t, opens)

	recent, err := store.RecentSessions(p.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].EndTime)
	assert.Equal(t, start.Add(time.Hour).Unix(), recent[0].EndTime.Unix())

	require.NoError(t, store.DeleteSession(open.ID))
	assert.ErrorIs(t, store.DeleteSession(open.ID), domain.ErrSessionNotFound)
}

func TestProfileStoreDeleteCascades(t *testing.T) {
	store := newTestProfileStore(t)
	p := sampleProfile()
	require.NoError(t, store.CreateProfile(p))
	sess := domain.NewSession(p.ID, "tag", false, p.CreatedAt)
	require.NoError(t, store.InsertSession(sess))

	require.NoError(t, store.DeleteProfile(p.ID))
	_, err := store.GetProfile(p.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	recent, err := store.RecentSessions(p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestProfileStoreReopensWithSameKey(t *testing.T) {
	dir := t.TempDir()
	key, err := NewFileKeyProvider(dir).EnsureKey()
	require.NoError(t, err)

	store, err := NewEncryptedProfileStore(dir, key)
	require.NoError(t, err)
	p := sampleProfile()
	require.NoError(t, store.CreateProfile(p))
	require.NoError(t, store.Close())

	reopened, err := NewEncryptedProfileStore(dir, key)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetProfile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}
