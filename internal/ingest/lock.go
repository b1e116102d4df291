package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// LockFileName is created in the lock directory while an ingestion runs.
const LockFileName = ".ingest.lock"

// FileLock is a cross-process lock that keeps two ingestion runs from
// writing the same collection at once.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock at <dir>/.ingest.lock.
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, LockFileName)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. It returns an ERR_206_LOCKED
// error when another process holds it.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return ferrors.New(ferrors.ErrCodeLocked, "another ingestion is running", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for it to finish or remove the lock file if the process is gone.")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
