package storage

import (
	"context"
	"errors"

	"github.com/yorukot/apikeys/internal/models"
)

var (
	ErrNotFound  = errors.New("credential not found")
	ErrKeyExists = errors.New("key already exists")
	ErrCorrupt   = errors.New("credential record is incomplete")
)

// Store defines the interface for credential storage backends
type Store interface {
	// Exists checks whether a key is already in use
	Exists(ctx context.Context, key int64) (bool, error)

	// Lookup returns the credential for key, or ErrNotFound
	Lookup(ctx context.Context, key int64) (models.Credential, error)

	// Create stores cred under key only if key is absent, returning ErrKeyExists otherwise.
	// Both fields are written in one operation.
	Create(ctx context.Context, key int64, cred models.Credential) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
