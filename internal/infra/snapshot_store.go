// Package infra implements infrastructure concerns (snapshot file, encrypted
// profile store, interval scheduler, process introspection).
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

const snapshotFileName = "shared_state.json"

// FileSnapshotStore implements domain.SnapshotStore as a JSON file shared by
// the foreground and background processes. Writes are atomic (write to temp,
// rename) and read-modify-write cycles are serialized with a file lock; the
// store is still last-writer-wins across processes that read before locking,
// which is why every caller must be idempotent.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a snapshot store under dataDir.
func NewFileSnapshotStore(dataDir string) *FileSnapshotStore {
	return &FileSnapshotStore{path: filepath.Join(dataDir, snapshotFileName)}
}

// NewFileSnapshotStoreWithPath creates a store at a specific path (for testing).
func NewFileSnapshotStoreWithPath(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileSnapshotStore) Path() string {
	return s.path
}

// Load reads the current state. A missing file yields an empty state.
func (s *FileSnapshotStore) Load() (*domain.SharedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewSharedState(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	state := domain.NewSharedState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot file: %w", err)
	}
	return state, nil
}

// Update applies fn to the current state and writes the result atomically
// while holding an exclusive file lock.
func (s *FileSnapshotStore) Update(fn func(*domain.SharedState) error) error {
	unlock, err := acquireFileLock(s.path)
	if err != nil {
		return err
	}
	defer unlock()

	state, err := s.Load()
	if err != nil {
		return err
	}

	if err := fn(state); err != nil {
		return err
	}
	state.UpdatedAtUnix = time.Now().Unix()

	return s.write(state)
}

func (s *FileSnapshotStore) write(state *domain.SharedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// Ensure FileSnapshotStore implements domain.SnapshotStore.
var _ domain.SnapshotStore = (*FileSnapshotStore)(nil)
