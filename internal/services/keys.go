package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/models"
	"github.com/yorukot/apikeys/internal/obs"
	"github.com/yorukot/apikeys/internal/storage"
)

// KeyService issues API keys and persists their credentials
type KeyService struct {
	store   storage.Store
	metrics *obs.Metrics
	logger  *zap.Logger
	draw    func() int64
}

// Option customises a KeyService
type Option func(*KeyService)

// WithDraw replaces the random candidate source
func WithDraw(draw func() int64) Option {
	return func(s *KeyService) {
		s.draw = draw
	}
}

// NewKeyService creates a new key service instance
func NewKeyService(store storage.Store, metrics *obs.Metrics, logger *zap.Logger, opts ...Option) *KeyService {
	s := &KeyService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		draw:    randomKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomKey draws uniformly from [MinKey, MaxKey).
// Keys are identifiers, not secrets, so math/rand is sufficient.
func randomKey() int64 {
	//nolint:gosec // G404: keys make no cryptographic claim
	return models.MinKey + rand.Int63n(models.MaxKey-models.MinKey)
}

// GenerateUniqueKey draws candidates until one is absent from the store
func (s *KeyService) GenerateUniqueKey(ctx context.Context) (int64, error) {
	for {
		key := s.draw()
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return 0, err
		}
		if !exists {
			return key, nil
		}
		s.metrics.KeyCollisions.Inc()
		s.logger.Debug("candidate key already taken, redrawing")
	}
}

// Issue generates a unique key and stores cred under it.
// A lost create race is retried with a fresh key; any other store error is returned.
func (s *KeyService) Issue(ctx context.Context, cred models.Credential) (int64, error) {
	for {
		key, err := s.GenerateUniqueKey(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to generate key: %w", err)
		}

		err = s.store.Create(ctx, key, cred)
		if errors.Is(err, storage.ErrKeyExists) {
			s.metrics.KeyCollisions.Inc()
			s.logger.Info("key taken between check and create, retrying")
			continue
		}
		if err != nil {
			return 0, err
		}

		s.metrics.KeysIssued.Inc()
		s.logger.Info("api key issued",
			zap.String("org", cred.Org),
			zap.Uint64("auth_level", cred.AuthLevel))
		return key, nil
	}
}
