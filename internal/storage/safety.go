package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
)

const mb = 1 << 20

// DiskSpaceInfo describes a volume.
type DiskSpaceInfo struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
	UsedBytes  uint64
}

func newDiskSpaceInfo(path string, total, free uint64) *DiskSpaceInfo {
	used := uint64(0)
	if total > free {
		used = total - free
	}
	return &DiskSpaceInfo{Path: path, TotalBytes: total, FreeBytes: free, UsedBytes: used}
}

// FreePercent returns free space as a percentage of the volume.
func (d *DiskSpaceInfo) FreePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.FreeBytes) / float64(d.TotalBytes) * 100
}

// CheckDiskSpace returns ErrDiskFull when the volume holding path has less
// than Storage.MinFreeSpace left. An unreadable volume passes.
func CheckDiskSpace(path string) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return nil
	}
	need := config.Global.Storage.MinFreeSpace
	if info.FreeBytes >= need {
		return nil
	}
	return errors.NewSystemError(
		fmt.Sprintf("insufficient disk space: %d MB free, need at least %d MB", info.FreeBytes/mb, need/mb),
		errors.ErrDiskFull)
}

// CheckDiskSpaceWarning returns a low-space warning for the health report, or "".
func CheckDiskSpaceWarning(path string) string {
	info, err := GetDiskSpace(path)
	if err != nil || info.FreeBytes >= config.Global.Storage.MinFreeSpaceWarning {
		return ""
	}
	return fmt.Sprintf("Warning: Low disk space (%d MB free)", info.FreeBytes/mb)
}

func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// SafeWrite replaces path with data through a synced temp file in the same
// directory, so readers see either the old or the new contents.
func SafeWrite(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := CheckDiskSpace(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bikeguard-*.tmp")
	if err != nil {
		return diskErr("create temp file", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return diskErr("write", err)
	}
	if err = tmp.Sync(); err != nil {
		return diskErr("sync", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return diskErr("close", err)
	}
	return os.Rename(tmp.Name(), path)
}

func diskErr(op string, err error) error {
	if isDiskFullError(err) {
		return errors.NewSystemErrorWithOp(op, "disk full", errors.ErrDiskFull)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// EnsureDirectory creates path with owner-only permissions.
func EnsureDirectory(path string) error {
	if err := CheckDiskSpace(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return diskErr("create directory", err)
	}
	return nil
}
