package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// acquireFileLock takes an exclusive flock on path's sidecar ".lock" file.
// Used to serialize read-modify-write cycles on JSON files shared between
// the foreground and background processes.
func acquireFileLock(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	lockFile, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}

	return func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
	}, nil
}
