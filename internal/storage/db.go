// Package storage provides the badger-backed persistence layer for BikeGuard.
package storage

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

const (
	// AppName is the application name used for data directories.
	AppName = "bikeguard"
	// EnvDatabase overrides the database directory. ":memory:" selects in-memory mode.
	EnvDatabase = "BIKEGUARD_DATABASE"
	// MemoryPath is the EnvDatabase value that selects in-memory mode.
	MemoryPath = ":memory:"
)

// DB wraps a Badger database connection.
type DB struct {
	db   *badger.DB
	path string
	lock *FileLock
}

// Options configures the database connection.
type Options struct {
	// Path is the database directory. Empty means in-memory.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
	// Lock takes the process lock in the parent directory of Path.
	Lock bool
}

// DefaultPath returns $XDG_DATA_HOME/bikeguard/db.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, AppName, "db")
}

// ResolveOptions builds Options from BIKEGUARD_DATABASE, falling back to DefaultPath.
func ResolveOptions() Options {
	switch v := os.Getenv(EnvDatabase); v {
	case "":
		return Options{Path: DefaultPath(), Lock: true}
	case MemoryPath:
		return Options{InMemory: true}
	default:
		return Options{Path: v, Lock: true}
	}
}

// Open opens or creates a database.
func Open(opts Options) (*DB, error) {
	if opts.InMemory || opts.Path == "" {
		bdb, err := badger.Open(badger.DefaultOptions("").
			WithInMemory(true).
			WithLoggingLevel(badger.ERROR))
		if err != nil {
			return nil, errors.NewSystemErrorWithOp("open database", "badger failed to start", err)
		}
		return &DB{db: bdb}, nil
	}

	if err := EnsureDirectory(opts.Path); err != nil {
		return nil, err
	}

	var lock *FileLock
	if opts.Lock {
		lock = NewFileLock(filepath.Dir(opts.Path))
		if err := lock.Acquire(); err != nil {
			return nil, NewLockError(err)
		}
	}

	bdb, err := badger.Open(badger.DefaultOptions(opts.Path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		if lock != nil {
			_ = lock.Release()
		}
		if IsDatabaseCorrupted(err) {
			return nil, errors.NewSystemErrorWithOp("open database", err.Error(), errors.ErrDatabaseCorrupted)
		}
		return nil, errors.NewSystemErrorWithOp("open database", "badger failed to start", err)
	}

	return &DB{db: bdb, path: opts.Path, lock: lock}, nil
}

// Close closes the database and releases the process lock.
func (d *DB) Close() error {
	err := d.db.Close()
	if d.lock != nil {
		if lerr := d.lock.Release(); err == nil {
			err = lerr
		}
	}
	return err
}

// Path returns the on-disk directory, or "" for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// Badger returns the underlying Badger database for advanced operations.
func (d *DB) Badger() *badger.DB {
	return d.db
}

// checkWritable refuses writes when the data volume is nearly full.
func (d *DB) checkWritable() error {
	if d.path == "" {
		return nil
	}
	return CheckDiskSpace(d.path)
}
