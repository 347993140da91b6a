package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported store backends
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendLocal  = "local"
)

// S3 holds S3 backend settings
type S3 struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Config is the process configuration read from the environment
type Config struct {
	Host            string
	Port            string
	StoreBackend    string
	RedisURL        string
	RedisKeyPrefix  string
	DBPath          string
	DataDir         string
	S3              S3
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8000"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisURL:       getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
		RedisKeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
		DBPath:         getEnv("DB_PATH", "./data/apikeys.db"),
		DataDir:        getEnv("DATA_DIR", "./data/credentials"),
		S3: S3{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		EnvFileLoaded: loaded,
	}

	var err error
	if cfg.S3.UsePathStyle, err = getBool("S3_USE_PATH_STYLE", false); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at startup
func (c *Config) Validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}

	switch c.StoreBackend {
	case BackendRedis, BackendSQLite, BackendLocal:
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when STORE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
