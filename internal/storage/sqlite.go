//go:build !js || !wasm

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one key/value row in the SQLite backend.
type Record struct {
	Key       string `gorm:"column:record_key;primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "token_records"
}

// SQLite stores values in a single table through GORM.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite wraps an open GORM handle and migrates the records table.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate token records: %w", err)
	}
	return &SQLite{db: db}, nil
}

const sqliteMemoryPath = ":memory:"

// OpenSQLite opens (creating if needed) the database file at path. With
// verbose set, GORM logs every statement.
func OpenSQLite(path string, verbose bool) (*SQLite, error) {
	if path != sqliteMemoryPath {
		if err := EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if verbose {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if path == sqliteMemoryPath {
		// Every pooled connection would get its own empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLite(db)
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("record_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token record: %w", err)
	}
	return rec.Value, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save token record: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("record_key = ?", key).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get raw database connection: %w", err)
	}
	return sqlDB.Close()
}
