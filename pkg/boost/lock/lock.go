// Package lock keeps two boost runs from changing the system at the same
// time. The lock is a PID file; a file left behind by a crashed run is
// detected and cleared.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// ErrAlreadyRunning is returned when another live process holds the lock.
var ErrAlreadyRunning = errors.New("another boost run is in progress")

// Lock is a held run lock.
type Lock struct {
	path string
}

// Path returns the PID file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock at path. Stale locks are removed first. It returns
// ErrAlreadyRunning, wrapped with the holder's pid, when a live process
// holds the lock.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}
		if err := Recover(path); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: lock file %s keeps reappearing", ErrAlreadyRunning, path)
}

// Release removes the lock file. Releasing twice is not an error.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Holder returns the pid recorded in the lock file at path.
func Holder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// Recover removes the lock file at path if the recorded process is gone.
// A missing or unreadable file counts as stale. It returns
// ErrAlreadyRunning if the holder is alive.
func Recover(path string) error {
	pid, err := Holder(path)
	if err == nil && pid != os.Getpid() && ProcessAlive(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	if err == nil && pid == os.Getpid() {
		return fmt.Errorf("%w (this process)", ErrAlreadyRunning)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale lock: %w", err)
	}
	logging.Get("lock").Warn("removed stale lock", "path", path, "stale_pid", pid)
	return nil
}
