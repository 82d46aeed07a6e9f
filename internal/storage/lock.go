package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// LockFileName is the name of the lock file in the data directory.
const LockFileName = "bikeguard.lock"

var (
	// ErrLockAcquireFailed is returned when the lock file cannot be created or written.
	ErrLockAcquireFailed = stderrors.New("failed to acquire database lock")
	// ErrLockAlreadyHeld is returned when another live process holds the lock.
	ErrLockAlreadyHeld = stderrors.New("database is locked by another process")
)

// FileLock keeps a second bikeguard process from opening the same database.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock in dir.
func NewFileLock(dir string) *FileLock {
	return &FileLock{path: filepath.Join(dir, LockFileName)}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking and records our PID in it.
func (l *FileLock) Acquire() error {
	if err := l.cleanStaleLock(); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if err := flockAcquire(file); err != nil {
		file.Close()
		if stderrors.Is(err, ErrLockAlreadyHeld) {
			if pid := l.readPID(); pid > 0 {
				return fmt.Errorf("%w: PID %d", ErrLockAlreadyHeld, pid)
			}
		}
		return err
	}

	if err := writePID(file); err != nil {
		_ = flockRelease(file)
		file.Close()
		return fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	l.file = file
	return nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "%d", os.Getpid()); err != nil {
		return err
	}
	return file.Sync()
}

// Release drops the lock and removes the lock file. Safe to call twice.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := flockRelease(l.file); err != nil {
		l.file.Close()
		l.file = nil
		return err
	}
	if err := l.file.Close(); err != nil {
		l.file = nil
		return err
	}
	l.file = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsHeld reports whether this FileLock currently holds the lock.
func (l *FileLock) IsHeld() bool {
	return l.file != nil
}

// cleanStaleLock removes a lock file left behind by a process that no longer runs.
func (l *FileLock) cleanStaleLock() error {
	pid := l.readPID()
	if pid <= 0 || pid == os.Getpid() || isProcessRunning(pid) {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clean stale lock: %v", err)
	}
	return nil
}

// readPID returns 0 if the lock file is missing or holds no PID.
func (l *FileLock) readPID() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// LockError is a user-facing lock failure.
type LockError struct {
	Err error
	PID int
}

func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("cannot access database: another bikeguard instance (PID %d) is running", e.PID)
	}
	return fmt.Sprintf("cannot access database: %v", e.Err)
}

// Unwrap exposes both the storage error and errors.ErrLockHeld so callers
// and the error classifier agree on the category.
func (e *LockError) Unwrap() []error {
	if stderrors.Is(e.Err, ErrLockAlreadyHeld) {
		return []error{e.Err, errors.ErrLockHeld}
	}
	return []error{e.Err}
}

// NewLockError wraps err, extracting the PID from "PID n" when present.
func NewLockError(err error) *LockError {
	lockErr := &LockError{Err: err}
	if !stderrors.Is(err, ErrLockAlreadyHeld) {
		return lockErr
	}
	if _, after, ok := strings.Cut(err.Error(), "PID "); ok {
		if pid, perr := strconv.Atoi(strings.TrimSpace(after)); perr == nil {
			lockErr.PID = pid
		}
	}
	return lockErr
}
