//go:build !windows

package storage

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// GetDiskSpace reports space on the volume holding path, or its nearest
// existing parent.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	path = existingAncestor(path)

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	return newDiskSpaceInfo(path, st.Blocks*bsize, st.Bavail*bsize), nil
}

func isDiskFullError(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT)
}
