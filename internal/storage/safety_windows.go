//go:build windows

package storage

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// GetDiskSpace reports space on the volume holding path, or its nearest
// existing parent.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	path = existingAncestor(path)

	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("disk space %s: %w", path, err)
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &avail, &total, &free); err != nil {
		return nil, fmt.Errorf("disk space %s: %w", path, err)
	}
	return newDiskSpaceInfo(path, total, avail), nil
}

func isDiskFullError(err error) bool {
	return errors.Is(err, windows.ERROR_DISK_FULL) || errors.Is(err, windows.ERROR_HANDLE_DISK_FULL)
}
