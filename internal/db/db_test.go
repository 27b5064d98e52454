package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swarmsettings/internal/models"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	if _, err := InitDB(dbPath); err != nil {
		t.Fatalf("Failed to init test DB: %v", err)
	}

	return func() {
		CloseDB()
	}
}

func TestInitDB(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	db := GetDB()
	if db == nil {
		t.Fatal("GetDB() returned nil after InitDB")
	}

	for _, table := range []string{"settings", "profiles", "instruction_templates", "setting_changes", "config"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s was not migrated", table)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", SwarmDir, DBFileName)

	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	sqlDB, _ := database.DB()
	defer sqlDB.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if GetDB() != nil {
		t.Error("Open() must not install the process-wide connection")
	}
}

func TestLoadSettingsOrderedByKey(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	db := GetDB()
	for _, key := range []string{"model", "max_tokens", "temperature"} {
		s := &models.Setting{Key: key, Type: models.TypeString, Label: key, DefaultValue: "x"}
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("Failed to create setting: %v", err)
		}
	}

	settings, err := LoadSettings(db)
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	want := []string{"max_tokens", "model", "temperature"}
	if len(settings) != len(want) {
		t.Fatalf("LoadSettings() len = %d, want %d", len(settings), len(want))
	}
	for i, s := range settings {
		if s.Key != want[i] {
			t.Errorf("LoadSettings()[%d] = %s, want %s", i, s.Key, want[i])
		}
		if s.DefaultValue != "x" {
			t.Errorf("LoadSettings()[%d] value = %v, want x", i, s.DefaultValue)
		}
	}
}

func TestLoadProfilesAndTemplates(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	db := GetDB()
	profile := &models.SettingsProfile{Name: "Creative", Settings: models.JSONMap{"temperature": 0.9}}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	template := &models.InstructionTemplate{ID: "t1", Name: "T1", Content: "Hi {who}"}
	if err := db.Create(template).Error; err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	profiles, err := LoadProfiles(db)
	if err != nil {
		t.Fatalf("LoadProfiles() error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Settings["temperature"] != 0.9 {
		t.Errorf("LoadProfiles() = %+v", profiles)
	}

	templates, err := LoadTemplates(db)
	if err != nil {
		t.Fatalf("LoadTemplates() error: %v", err)
	}
	if len(templates) != 1 || templates[0].Content != "Hi {who}" {
		t.Errorf("LoadTemplates() = %+v", templates)
	}

	settings, profileCount, templateCount, err := CountRows(db)
	if err != nil {
		t.Fatalf("CountRows() error: %v", err)
	}
	if settings != 0 || profileCount != 1 || templateCount != 1 {
		t.Errorf("CountRows() = %d, %d, %d, want 0, 1, 1", settings, profileCount, templateCount)
	}
}

func TestLoadChanges(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	db := GetDB()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := models.RecordChange(db, "temperature", 0.7, 0.2, false, at); err != nil {
		t.Fatalf("RecordChange() error: %v", err)
	}
	if err := models.RecordChange(db, "temperature", 0.2, 0.2, false, at); err != nil {
		t.Fatalf("RecordChange() error: %v", err)
	}
	if err := models.RecordChange(db, "temperature", 0.2, 0.4, false, at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordChange() error: %v", err)
	}
	if err := models.RecordChange(db, "model", "a", "b", false, at); err != nil {
		t.Fatalf("RecordChange() error: %v", err)
	}

	changes, err := LoadChanges(db, "temperature")
	if err != nil {
		t.Fatalf("LoadChanges() error: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("LoadChanges() len = %d, want 2", len(changes))
	}
	if changes[0].NewValue != "0.2" || changes[1].NewValue != "0.4" {
		t.Errorf("LoadChanges() values = %s, %s", changes[0].NewValue, changes[1].NewValue)
	}
}

func TestSetGetConfig(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	// Set config
	err := SetConfig(models.ConfigProjectName, "demo")
	if err != nil {
		t.Fatalf("SetConfig() error: %v", err)
	}

	value, err := GetConfig(models.ConfigProjectName)
	if err != nil {
		t.Fatalf("GetConfig() error: %v", err)
	}
	if value != "demo" {
		t.Errorf("GetConfig() = %s, want demo", value)
	}

	// Update config
	err = SetConfig(models.ConfigProjectName, "renamed")
	if err != nil {
		t.Fatalf("SetConfig() update error: %v", err)
	}

	value, err = GetConfig(models.ConfigProjectName)
	if err != nil {
		t.Fatalf("GetConfig() after update error: %v", err)
	}
	if value != "renamed" {
		t.Errorf("GetConfig() after update = %s, want renamed", value)
	}

	// Get non-existent config
	_, err = GetConfig("nonexistent")
	if err == nil {
		t.Error("GetConfig() should error for non-existent key")
	}
}

func TestEnsureInitialized(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	if err := EnsureInitialized(missing); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("EnsureInitialized() error = %v, want ErrNotInitialized", err)
	}

	dbPath := filepath.Join(t.TempDir(), "settings.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	sqlDB, _ := database.DB()
	sqlDB.Close()

	if err := EnsureInitialized(dbPath); err != nil {
		t.Fatalf("EnsureInitialized() error: %v", err)
	}
	defer CloseDB()
	if GetDB() == nil {
		t.Error("GetDB() returned nil after EnsureInitialized")
	}
}

func TestSchemaVersion(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	version, err := GetConfig(models.ConfigSchemaVersion)
	if err != nil {
		t.Fatalf("GetConfig() error: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %s, want %s", version, SchemaVersion)
	}

	if err := SetConfig(models.ConfigSchemaVersion, "99"); err != nil {
		t.Fatal(err)
	}
	if err := runMigrations(GetDB()); err == nil {
		t.Error("runMigrations() should refuse a newer schema")
	}

	if err := SetConfig(models.ConfigSchemaVersion, "0"); err != nil {
		t.Fatal(err)
	}
	if err := runMigrations(GetDB()); err != nil {
		t.Fatalf("runMigrations() error: %v", err)
	}
	version, _ = GetConfig(models.ConfigSchemaVersion)
	if version != SchemaVersion {
		t.Errorf("schema version after upgrade = %s, want %s", version, SchemaVersion)
	}
}

func TestRemoveDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DBFileName)
	for _, suffix := range []string{"", "-wal"} {
		if err := os.WriteFile(dbPath+suffix, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := RemoveDB(dbPath); err != nil {
		t.Fatalf("RemoveDB() error: %v", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if _, err := os.Stat(dbPath + suffix); !os.IsNotExist(err) {
			t.Errorf("%s still exists", dbPath+suffix)
		}
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, SwarmDir), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	found, err := FindProjectRoot()
	if err != nil {
		t.Fatalf("FindProjectRoot() error: %v", err)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedFound, _ := filepath.EvalSymlinks(found)
	if resolvedFound != resolvedRoot {
		t.Errorf("FindProjectRoot() = %s, want %s", found, root)
	}

	path, err := GetDefaultDBPath()
	if err != nil {
		t.Fatalf("GetDefaultDBPath() error: %v", err)
	}
	if filepath.Base(path) != DBFileName {
		t.Errorf("GetDefaultDBPath() = %s", path)
	}
}

func TestCloseDB(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	err := CloseDB()
	if err != nil {
		t.Fatalf("CloseDB() error: %v", err)
	}

	// Should be nil after close
	if GetDB() != nil {
		t.Error("GetDB() should return nil after CloseDB()")
	}

	// Calling CloseDB again should be safe
	err = CloseDB()
	if err != nil {
		t.Errorf("CloseDB() second call error: %v", err)
	}
}
