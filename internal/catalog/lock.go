package catalog

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock guards the catalog against concurrent writer processes. Scans and
// watch sessions acquire it; read-only queries do not need it.
type Lock struct {
	fl *flock.Flock
}

// NewLock creates a lock for the given lock file path without acquiring it.
func NewLock(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Acquire takes the lock, failing immediately when another writer holds it.
func (l *Lock) Acquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("catalog lock %s is held by another process", l.fl.Path())
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
