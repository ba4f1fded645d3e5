// Package lockfile guards the warehouse against concurrent agents.
//
// Two dwhsync processes polling the same export directory into the same
// database would race on the persisted snapshot and double-apply every
// change. Commands that write therefore take a cross-process file lock
// next to the database and refuse to start when it is already held.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock is a cross-process lock tied to the warehouse database.
// flock backs it on every supported platform, Windows included.
type FileLock struct {
	fl *flock.Flock
}

// New creates a lock for the given database path. The lock file lives
// at <dbPath>.lock so relocating the database moves the lock with it.
func New(dbPath string) *FileLock {
	return &FileLock{fl: flock.New(dbPath + ".lock")}
}

// TryLock attempts to acquire the lock without blocking. It reports
// false when another process holds the lock.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock. Unlocking a lock that was never acquired,
// or twice, is a no-op.
func (l *FileLock) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.fl.Path()
}

// IsLocked reports whether this process holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.fl.Locked()
}
