package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// =============================================================================
// DB Tests
// =============================================================================

func TestOpenClose(t *testing.T) {
	t.Run("in_memory", func(t *testing.T) {
		db, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		assert.Equal(t, "", db.Path())
		assert.Nil(t, db.lock)
		assert.NoError(t, db.Close())
	})

	t.Run("on_disk_with_lock", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "db")
		db, err := Open(Options{Path: dbPath, Lock: true})
		require.NoError(t, err)
		assert.Equal(t, dbPath, db.Path())
		assert.FileExists(t, filepath.Join(filepath.Dir(dbPath), LockFileName))

		_, err = Open(Options{Path: dbPath, Lock: true})
		var lockErr *LockError
		assert.ErrorAs(t, err, &lockErr)

		require.NoError(t, db.Close())
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dbPath), LockFileName))

		db2, err := Open(Options{Path: dbPath, Lock: true})
		require.NoError(t, err)
		db2.Close()
	})
}

func TestResolveOptions(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Setenv(EnvDatabase, MemoryPath)
		assert.True(t, ResolveOptions().InMemory)
	})

	t.Run("custom_path", func(t *testing.T) {
		t.Setenv(EnvDatabase, "/tmp/bg-test-db")
		opts := ResolveOptions()
		assert.Equal(t, "/tmp/bg-test-db", opts.Path)
		assert.True(t, opts.Lock)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvDatabase, "")
		assert.Equal(t, DefaultPath(), ResolveOptions().Path)
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Contains(t, path, AppName)
	assert.Equal(t, "db", filepath.Base(path))
}

func TestCRUD(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBytes("missing")
	assert.True(t, IsErrKeyNotFound(err))

	require.NoError(t, db.SetJSON("k:1", map[string]int{"a": 1}))
	var out map[string]int
	require.NoError(t, db.GetJSON("k:1", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, db.SetBytes("k:2", []byte(`"x"`)))
	require.NoError(t, db.SetBytes("other", []byte(`"y"`)))

	exists, err := db.Exists("k:2")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.Delete("k:2"))
	exists, err = db.Exists("k:2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestScan(t *testing.T) {
	db := setupTestDB(t)
	prefix := model.PrefixIncident + ":"

	var ids []string
	for i := 0; i < 3; i++ {
		inc := model.NewIncident(model.IncidentTest, 4, 2, time.Now())
		require.NoError(t, db.Set(inc))
		ids = append(ids, inc.ID)
		time.Sleep(2 * time.Millisecond)
	}
	// Neighbours on both sides of the prefix stay out of the scan.
	require.NoError(t, db.SetBytes(model.PrefixIncident+";", []byte(`{}`)))
	require.NoError(t, db.SetBytes(model.PrefixIncident, []byte(`{}`)))

	newInc := func() *model.Incident { return &model.Incident{} }

	forward, err := Scan(db, prefix, false, newInc)
	require.NoError(t, err)
	require.Len(t, forward, 3)
	assert.Equal(t, ids[0], forward[0].ID)
	assert.Equal(t, model.GenerateIncidentKey(ids[0]), forward[0].Key)

	backward, err := Scan(db, prefix, true, newInc)
	require.NoError(t, err)
	require.Len(t, backward, 3)
	assert.Equal(t, ids[2], backward[0].ID)
	assert.Equal(t, ids[0], backward[2].ID)

	none, err := Scan(db, "nothing:", true, newInc)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// ProfileRepo Tests
// =============================================================================

func TestProfileRepoDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db)

	p, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(), p)

	exists, err := db.Exists(model.KeyProfile)
	require.NoError(t, err)
	assert.False(t, exists, "default profile must not be persisted on read")
}

func TestProfileRepoCorruptBlob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db)
	require.NoError(t, db.SetBytes(model.KeyProfile, []byte("{broken")))

	p, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(), p)

	_, err = repo.Load()
	assert.Error(t, err)
}

func TestProfileRepoStoredShape(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db)
	repo.now = func() time.Time { return time.UnixMilli(1714550400000) }

	_, err := repo.AddContact("Alex", "+44 7700 900123")
	require.NoError(t, err)
	_, err = repo.SetThreshold(4)
	require.NoError(t, err)

	data, err := db.GetBytes("bikeGuard")
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 4.0, raw["threshold"])
	assert.Equal(t, 10.0, raw["countdownTime"])
	contacts := raw["contacts"].([]any)
	require.Len(t, contacts, 1)
	assert.Equal(t, 1714550400000.0, contacts[0].(map[string]any)["id"])
}

func TestProfileRepoContacts(t *testing.T) {
	repo := NewProfileRepo(setupTestDB(t))
	repo.now = func() time.Time { return time.UnixMilli(5000) }

	t.Run("add", func(t *testing.T) {
		c, err := repo.AddContact("  Alex ", " 555 123 4567 ")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), c.ID)
		assert.Equal(t, "Alex", c.Name)
		assert.Equal(t, "555 123 4567", c.Phone)
	})

	t.Run("same_millisecond_gets_unique_id", func(t *testing.T) {
		c, err := repo.AddContact("Sam", "555 000 1111")
		require.NoError(t, err)
		assert.Equal(t, int64(5001), c.ID)
	})

	t.Run("missing_fields", func(t *testing.T) {
		_, err := repo.AddContact("", "555")
		assert.ErrorIs(t, err, errors.ErrContactFieldsRequired)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteContact(5000))
		contacts, err := repo.Contacts()
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Sam", contacts[0].Name)
	})

	t.Run("delete_missing", func(t *testing.T) {
		assert.ErrorIs(t, repo.DeleteContact(42), errors.ErrContactNotFound)
	})
}

func TestProfileRepoUpdateSettings(t *testing.T) {
	repo := NewProfileRepo(setupTestDB(t))
	threshold, countdown, off := 6.0, 1, false

	_, err := repo.UpdateSettings(model.SettingsUpdate{Threshold: &threshold, CountdownTime: &countdown})
	assert.ErrorIs(t, err, errors.ErrInvalidCountdown)
	p, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThreshold, p.Threshold, "rejected update must not persist")

	countdown = 30
	p, err = repo.UpdateSettings(model.SettingsUpdate{Threshold: &threshold, CountdownTime: &countdown, EnableVibration: &off})
	require.NoError(t, err)
	assert.Equal(t, 6.0, p.Threshold)
	assert.Equal(t, 30, p.CountdownTime)
	assert.True(t, p.Settings.EnableSound)
	assert.False(t, p.Settings.EnableVibration)
}

func TestProfileRepoSettings(t *testing.T) {
	repo := NewProfileRepo(setupTestDB(t))

	_, err := repo.SetThreshold(0.2)
	assert.ErrorIs(t, err, errors.ErrInvalidThreshold)
	_, err = repo.SetCountdown(500)
	assert.ErrorIs(t, err, errors.ErrInvalidCountdown)

	_, err = repo.SetThreshold(5.5)
	require.NoError(t, err)
	_, err = repo.SetCountdown(20)
	require.NoError(t, err)
	_, err = repo.SetSound(false)
	require.NoError(t, err)
	p, err := repo.SetVibration(false)
	require.NoError(t, err)

	assert.Equal(t, 5.5, p.Threshold)
	assert.Equal(t, 20, p.CountdownTime)
	assert.False(t, p.Settings.EnableSound)
	assert.False(t, p.Settings.EnableVibration)

	reloaded, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, p, reloaded)
}

func TestNotifyConfigRepo(t *testing.T) {
	repo := NewNotifyConfigRepo(setupTestDB(t))

	cfg, err := repo.Get()
	require.NoError(t, err)
	assert.False(t, cfg.IsTypeEnabled(model.NotifyStatus))

	cfg.SetTypeEnabled(model.NotifyStatus, true)
	require.NoError(t, repo.Set(cfg))

	cfg, err = repo.Get()
	require.NoError(t, err)
	assert.True(t, cfg.IsTypeEnabled(model.NotifyStatus))
}

// =============================================================================
// WebhookRepo Tests
// =============================================================================

func TestWebhookRepo(t *testing.T) {
	repo := NewWebhookRepo(setupTestDB(t))

	require.NoError(t, repo.Create(model.NewWebhook("family", model.WebhookTypeDiscord, "https://discord.com/api/webhooks/1/x")))
	require.NoError(t, repo.Create(model.NewWebhook("club", model.WebhookTypeSlack, "https://hooks.slack.com/services/x")))

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "club", all[0].Name)

	require.NoError(t, repo.SetEnabled("club", false))
	enabled, err := repo.ListEnabled()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "family", enabled[0].Name)

	require.NoError(t, repo.UpdateLastUsed("family", fmt.Errorf("status 500")))
	wh, err := repo.Get("family")
	require.NoError(t, err)
	assert.Equal(t, "status 500", wh.LastError)
	assert.False(t, wh.LastUsed.IsZero())

	_, err = repo.Get("nobody")
	assert.ErrorIs(t, err, errors.ErrWebhookNotFound)
	assert.ErrorIs(t, repo.Delete("nobody"), errors.ErrWebhookNotFound)

	require.NoError(t, repo.Delete("family"))
	exists, err := repo.Exists("family")
	require.NoError(t, err)
	assert.False(t, exists)
}

// =============================================================================
// IncidentRepo Tests
// =============================================================================

func TestIncidentRepo(t *testing.T) {
	repo := NewIncidentRepo(setupTestDB(t))
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		inc := model.NewIncident(model.IncidentImpact, 4+float64(i), 2, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(inc))
		ids = append(ids, inc.ID)
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("list_newest_first", func(t *testing.T) {
		all, err := repo.List()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, ids[2], all[0].ID)
		assert.Equal(t, ids[0], all[2].ID)
	})

	t.Run("list_since", func(t *testing.T) {
		recent, err := repo.ListSince(base.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("update_and_pending", func(t *testing.T) {
		inc, err := repo.Get(ids[0])
		require.NoError(t, err)
		inc.Resolve(model.OutcomeSent, base.Add(10*time.Second))
		inc.ContactsNotified = 2
		require.NoError(t, repo.Update(inc))

		pending, err := repo.Pending()
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		got, err := repo.Get(ids[0])
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeSent, got.Outcome)
		assert.Equal(t, 2, got.ContactsNotified)
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := repo.Get("nope")
		assert.ErrorIs(t, err, errors.ErrIncidentNotFound)
	})
}

// =============================================================================
// Safety Tests
// =============================================================================

func TestDiskSpaceInfo(t *testing.T) {
	assert.Equal(t, 0.0, (&DiskSpaceInfo{TotalBytes: 0, FreeBytes: 100}).FreePercent())
	assert.Equal(t, 25.0, (&DiskSpaceInfo{TotalBytes: 1000, FreeBytes: 250}).FreePercent())
}

func TestGetDiskSpace(t *testing.T) {
	info, err := GetDiskSpace(filepath.Join(t.TempDir(), "does", "not", "exist"))
	require.NoError(t, err)
	assert.Greater(t, info.TotalBytes, uint64(0))
}

func TestSafeWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SafeWrite(path, []byte(`{"ok":true}`), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".bikeguard-*.tmp"))
	assert.Empty(t, matches)
}

func TestEnsureDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "nested")
	require.NoError(t, EnsureDirectory(path))
	assert.DirExists(t, path)
}

func TestIsDiskFullError(t *testing.T) {
	assert.False(t, isDiskFullError(nil))
	assert.False(t, isDiskFullError(fmt.Errorf("some error")))
}

// =============================================================================
// Recovery Tests
// =============================================================================

func TestCheckDatabaseIntegrity(t *testing.T) {
	t.Run("nil_database", func(t *testing.T) {
		status := CheckDatabaseIntegrity(nil)
		assert.False(t, status.Healthy)
		assert.True(t, status.Corrupted)
	})

	t.Run("healthy_database", func(t *testing.T) {
		db := setupTestDB(t)
		_, err := NewProfileRepo(db).SetSound(false)
		require.NoError(t, err)

		status := CheckDatabaseIntegrity(db)
		assert.True(t, status.Healthy)
		assert.True(t, status.ProfileReadable)
		assert.Equal(t, 1, status.KeysRead)
	})

	t.Run("corrupt_profile", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.SetBytes(model.KeyProfile, []byte("nope")))

		status := CheckDatabaseIntegrity(db)
		assert.False(t, status.Healthy)
		assert.False(t, status.ProfileReadable)
	})
}

func TestExportSalvageableData(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewProfileRepo(db).AddContact("Alex", "555")
	require.NoError(t, err)
	require.NoError(t, db.SetBytes("raw", []byte("not json")))

	path := filepath.Join(t.TempDir(), "export.json")
	n, err := ExportSalvageableData(db, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var out map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "not json", out["raw"])
	assert.Contains(t, out, "bikeGuard")
}

func TestIsDatabaseCorrupted(t *testing.T) {
	assert.False(t, IsDatabaseCorrupted(nil))
	assert.False(t, IsDatabaseCorrupted(fmt.Errorf("some error")))
	assert.True(t, IsDatabaseCorrupted(fmt.Errorf("Checksum mismatch detected")))
	assert.True(t, IsDatabaseCorrupted(fmt.Errorf("open: %w", errors.ErrDatabaseCorrupted)))
}

func TestCreateBackup(t *testing.T) {
	_, err := CreateBackup("")
	assert.Error(t, err)

	dbPath := filepath.Join(t.TempDir(), "db")
	require.NoError(t, os.MkdirAll(dbPath, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dbPath, "MANIFEST"), []byte("m"), 0600))

	backup, err := CreateBackup(dbPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(backup, "MANIFEST"))
}
