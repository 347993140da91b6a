package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/yorukot/apikeys/internal/models"
)

const (
	fieldOrg   = "org"
	fieldLevel = "level"
)

// createScript sets both hash fields only when the key does not exist yet.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "org", ARGV[1], "level", ARGV[2])
return 1
`)

// RedisStore implements the Store interface using a Redis hash per key
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to the Redis server at url
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key int64) string {
	return s.prefix + strconv.FormatInt(key, 10)
}

// Exists checks if a key is present in Redis
func (s *RedisStore) Exists(ctx context.Context, key int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return n > 0, nil
}

// Lookup reads the org and level fields of key
func (s *RedisStore) Lookup(ctx context.Context, key int64) (models.Credential, error) {
	vals, err := s.client.HMGet(ctx, s.redisKey(key), fieldOrg, fieldLevel).Result()
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}

	org, orgOK := vals[0].(string)
	level, levelOK := vals[1].(string)
	switch {
	case !orgOK && !levelOK:
		return models.Credential{}, ErrNotFound
	case !orgOK || !levelOK:
		return models.Credential{}, ErrCorrupt
	}

	authLevel, err := strconv.ParseUint(level, 10, 64)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: level %q", ErrCorrupt, level)
	}

	return models.Credential{Org: org, AuthLevel: authLevel}, nil
}

// Create writes both fields of cred atomically if key is unused
func (s *RedisStore) Create(ctx context.Context, key int64, cred models.Credential) error {
	created, err := createScript.Run(ctx, s.client,
		[]string{s.redisKey(key)},
		cred.Org, strconv.FormatUint(cred.AuthLevel, 10),
	).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if created == 0 {
		return ErrKeyExists
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
