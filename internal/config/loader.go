package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OPTCALC_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OPTCALC_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "OPTCALC_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setStringSlice(&cfg.Server.CORSOrigins, "OPTCALC_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "OPTCALC_SERVER_API_KEY")

	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "OPTCALC_PROVIDER_BASE_URL")
	setDuration(&cfg.Provider.Timeout, "OPTCALC_PROVIDER_TIMEOUT")
	setInt(&cfg.Provider.PreloadConcurrency, "OPTCALC_PROVIDER_PRELOAD_CONCURRENCY")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "OPTCALC_CACHE_BACKEND")
	setInt(&cfg.Cache.Capacity, "OPTCALC_CACHE_CAPACITY")
	setDuration(&cfg.Cache.TTL, "OPTCALC_CACHE_TTL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "OPTCALC_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OPTCALC_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OPTCALC_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OPTCALC_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OPTCALC_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OPTCALC_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "OPTCALC_REDIS_KEY_PREFIX")

	// ── Store ──
	setStr(&cfg.Store.Backend, "OPTCALC_STORE_BACKEND")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "OPTCALC_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "OPTCALC_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "OPTCALC_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "OPTCALC_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "OPTCALC_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "OPTCALC_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "OPTCALC_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "OPTCALC_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "OPTCALC_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "OPTCALC_POSTGRES_RUN_MIGRATIONS")

	// ── SQLite ──
	setStr(&cfg.SQLite.Path, "OPTCALC_SQLITE_PATH")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "OPTCALC_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OPTCALC_S3_REGION")
	setStr(&cfg.S3.Bucket, "OPTCALC_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "OPTCALC_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OPTCALC_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OPTCALC_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OPTCALC_S3_FORCE_PATH_STYLE")

	// ── Projection ──
	setInt(&cfg.Projection.PriceBuckets, "OPTCALC_PROJECTION_PRICE_BUCKETS")
	setInt(&cfg.Projection.DateBuckets, "OPTCALC_PROJECTION_DATE_BUCKETS")

	// ── Rate limit ──
	setBool(&cfg.RateLimit.Enabled, "OPTCALC_RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Requests, "OPTCALC_RATE_LIMIT_REQUESTS")
	setDuration(&cfg.RateLimit.Window, "OPTCALC_RATE_LIMIT_WINDOW")

	// ── Log ──
	setStr(&cfg.Log.Level, "OPTCALC_LOG_LEVEL")
	setStr(&cfg.Log.File, "OPTCALC_LOG_FILE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
