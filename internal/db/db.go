package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"swarmsettings/internal/models"
)

const (
	// SwarmDir is the directory name for settings data
	SwarmDir = ".swarm"
	// DBFileName is the database filename within the settings directory
	DBFileName = "settings.db"
	// SchemaVersion is the current schema version
	SchemaVersion = "1"
)

// ErrNotInitialized is returned when no settings store exists at the resolved path
var ErrNotInitialized = errors.New("settings store not initialized. Run 'swarmctl init' first")

var (
	db   *gorm.DB
	dbMu sync.RWMutex
)

// Open opens a settings database and runs migrations without touching the
// process-wide connection
func Open(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Configure GORM with silent logger for production
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	database, err := gorm.Open(sqlite.Open(dbPath), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports multiple readers but only one writer.
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	// WAL for concurrent readers, busy timeout to wait instead of failing on lock
	if err := database.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := database.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

// InitDB opens the database and installs it as the process-wide connection
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	dbMu.Lock()
	db = database
	dbMu.Unlock()
	return database, nil
}

// runMigrations creates the tables and stamps the schema version. A store
// written by a newer schema is refused.
func runMigrations(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.Setting{},
		&models.SettingsProfile{},
		&models.InstructionTemplate{},
		&models.SettingChange{},
		&models.Config{},
	)
	if err != nil {
		return err
	}

	var row models.Config
	err = database.Where("key = ?", models.ConfigSchemaVersion).Limit(1).Find(&row).Error
	if err != nil {
		return err
	}
	if row.Key != "" {
		stored, convErr := strconv.Atoi(row.Value)
		current, _ := strconv.Atoi(SchemaVersion)
		if convErr != nil {
			return fmt.Errorf("unreadable schema version %q", row.Value)
		}
		if stored > current {
			return fmt.Errorf("store uses schema %d, this build supports %d", stored, current)
		}
		if stored == current {
			return nil
		}
	}
	return database.Save(&models.Config{Key: models.ConfigSchemaVersion, Value: SchemaVersion}).Error
}

// RemoveDB deletes the database file at dbPath along with its WAL files
func RemoveDB(dbPath string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
	}
	return nil
}

// GetDB returns the current database connection
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// SetDB sets the database connection (used for testing)
func SetDB(database *gorm.DB) {
	dbMu.Lock()
	defer dbMu.Unlock()
	db = database
}

// CloseDB closes the database connection
func CloseDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	err = sqlDB.Close()
	db = nil
	return err
}

// FindProjectRoot searches upwards from the working directory for a .swarm directory
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		swarmPath := filepath.Join(dir, SwarmDir)
		if info, err := os.Stat(swarmPath); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a swarm project (no %s/ found)", SwarmDir)
		}
		dir = parent
	}
}

// GetDefaultDBPath returns the default database path for the current project
func GetDefaultDBPath() (string, error) {
	root, err := FindProjectRoot()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return "", cwdErr
		}
		return filepath.Join(cwd, SwarmDir, DBFileName), nil
	}
	return filepath.Join(root, SwarmDir, DBFileName), nil
}

// EnsureInitialized opens dbPath as the process-wide connection if none is open.
// An empty dbPath resolves to the project default.
func EnsureInitialized(dbPath string) error {
	dbMu.RLock()
	isNil := db == nil
	dbMu.RUnlock()

	if !isNil {
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return err
		}
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return ErrNotInitialized
	}
	_, err := InitDB(dbPath)
	return err
}
