package artifacts

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"commentator/internal/services"
)

// Lock is an exclusive advisory lock on one working directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for workingDir under stateDir.
func LockPath(stateDir, workingDir string) string {
	abs, err := filepath.Abs(workingDir)
	if err != nil {
		abs = workingDir
	}
	sum := sha1.Sum([]byte(abs))
	return filepath.Join(stateDir, "locks", "workdir-"+hex.EncodeToString(sum[:6])+".lock")
}

// Acquire takes the lock without blocking. A lock held by another process is
// reported as services.ErrBusy.
func Acquire(stateDir, workingDir string) (*Lock, error) {
	path := LockPath(stateDir, workingDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	l := &Lock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "artifacts", "lock",
			fmt.Sprintf("working directory %s is in use by another commentator process", workingDir), nil)
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
