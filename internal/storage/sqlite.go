package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yorukot/apikeys/internal/models"
)

// SQLiteStore implements the Store interface with a gorm-managed SQLite table
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.CredentialRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Exists checks if a row for key is present
func (s *SQLiteStore) Exists(ctx context.Context, key int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CredentialRow{}).
		Where("api_key = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return count > 0, nil
}

// Lookup loads the credential row for key
func (s *SQLiteStore) Lookup(ctx context.Context, key int64) (models.Credential, error) {
	var row models.CredentialRow
	if err := s.db.WithContext(ctx).First(&row, "api_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}
	return row.Credential(), nil
}

// Create inserts a new row; the primary key rejects duplicates
func (s *SQLiteStore) Create(ctx context.Context, key int64, cred models.Credential) error {
	row := &models.CredentialRow{
		APIKey: key,
		Org:    cred.Org,
		Level:  cred.AuthLevel,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Ping checks the underlying database handle
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database handle
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
