package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yorukot/apikeys/internal/models"
)

// LocalStore implements the Store interface with one JSON file per key
type LocalStore struct {
	dataDir string
}

// NewLocalStore creates a new local filesystem credential store
func NewLocalStore(dataDir string) (*LocalStore, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &LocalStore{
		dataDir: dataDir,
	}, nil
}

func (l *LocalStore) path(key int64) string {
	return filepath.Join(l.dataDir, strconv.FormatInt(key, 10)+".json")
}

// Exists checks if a credential file exists
func (l *LocalStore) Exists(_ context.Context, key int64) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return true, nil
}

// Lookup reads and decodes the credential file
func (l *LocalStore) Lookup(_ context.Context, key int64) (models.Credential, error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("failed to open credential: %w", err)
	}
	return decodeCredential(data)
}

// Create writes the credential file; O_EXCL makes the create-if-absent atomic
func (l *LocalStore) Create(_ context.Context, key int64, cred models.Credential) error {
	body, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	filePath := l.path(key)
	dst, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := dst.Write(body); err != nil {
		dst.Close()
		os.Remove(filePath) // Clean up on error
		return fmt.Errorf("failed to save credential: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Ping checks the data directory is still there
func (l *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(l.dataDir)
	if err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dataDir)
	}
	return nil
}

func (l *LocalStore) Close() error {
	return nil
}
