// Package config defines the configuration of the options calculator server
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OPTCALC_* environment variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Provider   ProviderConfig   `toml:"provider"`
	Cache      CacheConfig      `toml:"cache"`
	Redis      RedisConfig      `toml:"redis"`
	Store      StoreConfig      `toml:"store"`
	Postgres   PostgresConfig   `toml:"postgres"`
	SQLite     SQLiteConfig     `toml:"sqlite"`
	S3         S3Config         `toml:"s3"`
	Projection ProjectionConfig `toml:"projection"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// ProviderConfig points at the quote provider.
type ProviderConfig struct {
	BaseURL            string   `toml:"base_url"`
	Timeout            duration `toml:"timeout"`
	PreloadConcurrency int      `toml:"preload_concurrency"`
}

// CacheConfig selects the chain cache backend.
type CacheConfig struct {
	Backend  string   `toml:"backend"` // memory | redis
	Capacity int      `toml:"capacity"`
	TTL      duration `toml:"ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// StoreConfig selects where shared states are kept.
type StoreConfig struct {
	Backend string `toml:"backend"` // none | postgres | sqlite | s3
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SQLiteConfig holds the database file location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ProjectionConfig sets the matrix size.
type ProjectionConfig struct {
	PriceBuckets int `toml:"price_buckets"`
	DateBuckets  int `toml:"date_buckets"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled  bool     `toml:"enabled"`
	Requests int      `toml:"requests"`
	Window   duration `toml:"window"`
}

// LogConfig controls the log level and the optional rotating log file.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults for local use:
// in-memory cache, no state sharing.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Provider: ProviderConfig{
			BaseURL:            "https://query1.finance.yahoo.com/v7/finance",
			Timeout:            duration{10 * time.Second},
			PreloadConcurrency: 4,
		},
		Cache: CacheConfig{
			Backend:  "memory",
			Capacity: 0,
			TTL:      duration{2 * time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "optcalc",
		},
		Store: StoreConfig{Backend: "none"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "optcalc",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		SQLite: SQLiteConfig{Path: "optcalc.db"},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Projection: ProjectionConfig{
			PriceBuckets: 20,
			DateBuckets:  16,
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 120,
			Window:   duration{time.Minute},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCacheBackends = map[string]bool{"memory": true, "redis": true}

var validStoreBackends = map[string]bool{"none": true, "postgres": true, "sqlite": true, "s3": true}

// NeedsRedis reports whether any enabled component talks to redis.
func (c *Config) NeedsRedis() bool {
	return strings.EqualFold(c.Cache.Backend, "redis")
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. Sections of backends that
// are not selected are not checked.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider: base_url must not be empty")
	}
	if c.Provider.Timeout.Duration <= 0 {
		errs = append(errs, "provider: timeout must be > 0")
	}

	backend := strings.ToLower(c.Cache.Backend)
	if !validCacheBackends[backend] {
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, "cache: capacity must be >= 0")
	}
	if backend == "redis" && c.Cache.TTL.Duration <= 0 {
		errs = append(errs, "cache: ttl must be > 0 for the redis backend")
	}
	if c.NeedsRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	switch store := strings.ToLower(c.Store.Backend); {
	case !validStoreBackends[store]:
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: none, postgres, sqlite, s3)", c.Store.Backend))
	case store == "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	case store == "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, "sqlite: path must not be empty")
		}
	case store == "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if c.Projection.PriceBuckets < 1 || c.Projection.DateBuckets < 1 {
		errs = append(errs, "projection: price_buckets and date_buckets must be >= 1")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests < 1 {
			errs = append(errs, "rate_limit: requests must be >= 1")
		}
		if c.RateLimit.Window.Duration <= 0 {
			errs = append(errs, "rate_limit: window must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
