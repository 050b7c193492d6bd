package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rewindlauncher/backend/internal/domain"
)

// kvEntry is one row of the kv_entries table
type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"column:entry_value;type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLiteStore persists keys in a local sqlite database through gorm
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the sqlite database at path.
// An empty path or ":memory:" opens a shared in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	var dsn string
	path = strings.TrimSpace(path)
	switch {
	case path == "", strings.EqualFold(path, ":memory:"):
		dsn = "file::memory:?cache=shared"
	default:
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path))
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	return NewSQLiteStore(db)
}

// NewSQLiteStore wraps an existing gorm handle and migrates the kv table
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// GetMany reads all keys with a single statement
func (s *SQLiteStore) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	var entries []kvEntry
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}
	return values, nil
}

// Commit upserts and deletes inside one transaction
func (s *SQLiteStore) Commit(ctx context.Context, set map[string]string, remove ...string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for key, value := range set {
			entry := kvEntry{Key: key, Value: value, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}

		if len(remove) > 0 {
			if err := tx.Where("entry_key IN ?", remove).Delete(&kvEntry{}).Error; err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Commit(ctx, nil, keys...)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
