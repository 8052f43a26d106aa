package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

// Whitelist entry field limits.
const (
	MaxTagIDLength   = 100
	MaxTagNameLength = 50
)

// WhitelistManager maintains per-profile stop-token whitelists and migrates
// legacy single-token configurations into them.
type WhitelistManager struct {
	store     domain.ProfileStore
	snapshots domain.SnapshotStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewWhitelistManager creates a whitelist manager.
func NewWhitelistManager(store domain.ProfileStore, snapshots domain.SnapshotStore, logger *zap.Logger) *WhitelistManager {
	return &WhitelistManager{
		store:     store,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the manager clock (for testing).
func (m *WhitelistManager) SetClock(now func() time.Time) {
	m.now = now
}

// AddTag validates and appends a stop token to the profile's whitelist.
// The profile is left untouched when validation fails.
func (m *WhitelistManager) AddTag(profileID uuid.UUID, tagID, tagURL, name string) (*domain.WhitelistTag, error) {
	p, err := m.store.GetProfile(profileID)
	if err != nil {
		return nil, err
	}

	tagID = strings.TrimSpace(tagID)
	if tagID == "" || len(tagID) > MaxTagIDLength {
		return nil, domain.ErrInvalidTokenID
	}
	name = strings.TrimSpace(name)
	if len(name) > MaxTagNameLength {
		return nil, domain.ErrInvalidName
	}
	if p.WhitelistContains(tagID) {
		return nil, domain.ErrDuplicateToken
	}
	if len(p.Whitelist) >= domain.MaxWhitelistTags {
		return nil, domain.ErrTokenLimitExceeded
	}

	now := m.now()
	if name == "" {
		name = fmt.Sprintf("Tag %d", now.Unix())
	}

	tag := domain.WhitelistTag{
		ID:      uuid.New(),
		TagID:   tagID,
		TagURL:  strings.TrimSpace(tagURL),
		Name:    name,
		AddedAt: now,
	}
	p.Whitelist = append(p.Whitelist, tag)
	p.UpdatedAt = now

	if err := m.persist(p); err != nil {
		return nil, err
	}

	m.logger.Info("whitelist tag added",
		zap.String("profile", p.Name),
		zap.String("tag_name", name))
	return &tag, nil
}

// RemoveTag deletes one whitelist entry by its entry id.
func (m *WhitelistManager) RemoveTag(profileID, tagEntryID uuid.UUID) error {
	p, err := m.store.GetProfile(profileID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range p.Whitelist {
		if p.Whitelist[i].ID == tagEntryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrTagNotFound
	}

	p.Whitelist = append(p.Whitelist[:idx], p.Whitelist[idx+1:]...)
	p.UpdatedAt = m.now()

	if err := m.persist(p); err != nil {
		return err
	}

	m.logger.Info("whitelist tag removed", zap.String("profile", p.Name))
	return nil
}

// ListTags returns a profile's whitelist.
func (m *WhitelistManager) ListTags(profileID uuid.UUID) ([]domain.WhitelistTag, error) {
	p, err := m.store.GetProfile(profileID)
	if err != nil {
		return nil, err
	}
	return p.Whitelist, nil
}

// MigrateLegacyTokens converts pre-whitelist single-token configurations into
// whitelist entries, one pass over all profiles. A profile may carry both a
// legacy NFC tag and a legacy QR code; each becomes its own entry. The legacy
// fields are kept so older readers of the snapshot keep working; the
// empty-whitelist condition makes the migration idempotent. Returns the
// number of profiles migrated.
func (m *WhitelistManager) MigrateLegacyTokens() (int, error) {
	profiles, err := m.store.ListProfiles()
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	migrated := 0
	for _, p := range profiles {
		if p.HasWhitelist() {
			continue
		}
		legacy := make([]string, 0, 2)
		if p.UnblockTokenID != "" {
			legacy = append(legacy, p.UnblockTokenID)
		}
		if p.UnblockQRCodeID != "" && p.UnblockQRCodeID != p.UnblockTokenID {
			legacy = append(legacy, p.UnblockQRCodeID)
		}
		if len(legacy) == 0 {
			continue
		}

		now := m.now()
		for _, tokenID := range legacy {
			p.Whitelist = append(p.Whitelist, domain.WhitelistTag{
				ID:      uuid.New(),
				TagID:   tokenID,
				Name:    "Migrated token",
				AddedAt: now,
			})
		}
		p.UpdatedAt = now
		if err := m.persist(p); err != nil {
			return migrated, err
		}
		migrated++
		m.logger.Info("migrated legacy unblock token", zap.String("profile", p.Name))
	}
	return migrated, nil
}

func (m *WhitelistManager) persist(p *domain.Profile) error {
	if err := m.store.UpdateProfile(p); err != nil {
		return fmt.Errorf("failed to persist whitelist: %w", err)
	}
	if err := m.snapshots.Update(func(st *domain.SharedState) error {
		st.SetSnapshot(domain.SnapshotOf(p))
		return nil
	}); err != nil {
		m.logger.Error("failed to publish whitelist snapshot", zap.Error(err))
	}
	return nil
}
