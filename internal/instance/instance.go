// Package instance keeps a single tray instance running per data directory.
package instance

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockName is the lock file inside the data directory.
const LockName = "dahora.lock"

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("dahora is already running")

// Lock is a held single-instance lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock in dataDir without blocking.
func Acquire(dataDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dataDir, LockName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	slog.Debug("Acquired instance lock", "path", fl.Path())
	return &Lock{fl: fl}, nil
}

// Release gives up the lock. It's safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release %s: %w", l.fl.Path(), err)
	}
	slog.Debug("Released instance lock", "path", l.fl.Path())
	return nil
}

// Running reports whether some process currently holds the lock in dataDir.
func Running(dataDir string) (bool, error) {
	l, err := Acquire(dataDir)
	if errors.Is(err, ErrAlreadyRunning) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, l.Release()
}
