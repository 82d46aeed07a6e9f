//go:build !windows

package storage

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func flockAcquire(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EWOULDBLOCK):
		return ErrLockAlreadyHeld
	default:
		return fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
}

func flockRelease(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}

// isProcessRunning probes pid with signal 0. EPERM means the process exists
// under another user.
func isProcessRunning(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
