package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

// RecoveryStatus is the result of a database health check.
type RecoveryStatus struct {
	Healthy    bool      `json:"healthy"`
	Corrupted  bool      `json:"corrupted"`
	LastCheck  time.Time `json:"last_check"`
	KeysRead   int       `json:"keys_read"`
	ErrorCount int       `json:"error_count"`
	Errors     []string  `json:"errors,omitempty"`
	// ProfileReadable is false when the bikeGuard blob exists but does not decode.
	ProfileReadable bool   `json:"profile_readable"`
	DiskWarning     string `json:"disk_warning,omitempty"`
}

// CheckDatabaseIntegrity reads every value once and tries to decode the profile.
func CheckDatabaseIntegrity(db *DB) *RecoveryStatus {
	status := &RecoveryStatus{
		LastCheck:       time.Now(),
		Healthy:         true,
		ProfileReadable: true,
	}

	if db == nil || db.db == nil {
		status.Healthy = false
		status.Corrupted = true
		status.Errors = append(status.Errors, "database not initialized")
		return status
	}

	err := db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if err := item.Value(func([]byte) error { return nil }); err != nil {
				status.Errors = append(status.Errors, fmt.Sprintf("unreadable value at key: %s", item.Key()))
				status.ErrorCount++
			}
			status.KeysRead++
		}
		return nil
	})
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("iteration error: %v", err))
		status.ErrorCount++
	}

	if _, err := NewProfileRepo(db).Load(); err != nil && !IsErrKeyNotFound(err) {
		status.ProfileReadable = false
		status.Errors = append(status.Errors, fmt.Sprintf("profile: %v", err))
		status.ErrorCount++
	}

	if db.path != "" {
		status.DiskWarning = CheckDiskSpaceWarning(db.path)
	}

	if status.ErrorCount > 0 {
		status.Healthy = false
		status.Corrupted = true
	}
	return status
}

// CreateBackup copies the database directory to <data>/backups/db-backup-<timestamp>.
func CreateBackup(dbPath string) (string, error) {
	if dbPath == "" {
		return "", fmt.Errorf("database path is empty")
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := EnsureDirectory(backupDir); err != nil {
		return "", err
	}

	backupPath := filepath.Join(backupDir, "db-backup-"+time.Now().Format("20060102-150405"))
	if err := os.CopyFS(backupPath, os.DirFS(dbPath)); err != nil {
		return "", fmt.Errorf("failed to copy database: %w", err)
	}

	logging.Info("database backup created", logging.KeyOperation, "backup", "path", backupPath)
	return backupPath, nil
}

// ExportSalvageableData writes every readable key/value to exportPath as one
// JSON object and returns how many records were written.
func ExportSalvageableData(db *DB, exportPath string) (int, error) {
	if db == nil || db.db == nil {
		return 0, fmt.Errorf("database not available")
	}

	exportData := make(map[string]any)
	err := db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))

			err := item.Value(func(val []byte) error {
				var jsonVal any
				if json.Unmarshal(val, &jsonVal) == nil {
					exportData[key] = jsonVal
				} else {
					exportData[key] = string(val)
				}
				return nil
			})
			if err != nil {
				logging.Warn("skipping unreadable entry", "key", key, logging.KeyError, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("export iteration error: %w", err)
	}

	data, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := SafeWrite(exportPath, data, 0600); err != nil {
		return 0, err
	}

	logging.Info("salvageable data exported", logging.KeyCount, len(exportData), "path", exportPath)
	return len(exportData), nil
}

var corruptionPatterns = []string{
	"checksum mismatch",
	"corrupt",
	"unexpected eof",
	"bad magic",
	"truncated",
}

// IsDatabaseCorrupted reports whether err looks like on-disk corruption.
func IsDatabaseCorrupted(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, errors.ErrDatabaseCorrupted) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range corruptionPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
