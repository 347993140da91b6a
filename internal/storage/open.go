package storage

import (
	"context"
	"fmt"

	"github.com/yorukot/apikeys/internal/config"
)

// Open builds the Store selected by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DBPath)
	case config.BackendS3:
		return NewS3Store(S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	case config.BackendLocal:
		return NewLocalStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
