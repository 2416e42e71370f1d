package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/optionscalc/internal/blob/s3"
	"github.com/alanyoungcy/optionscalc/internal/cache/memory"
	"github.com/alanyoungcy/optionscalc/internal/cache/redis"
	"github.com/alanyoungcy/optionscalc/internal/config"
	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/platform/yahoo"
	"github.com/alanyoungcy/optionscalc/internal/server/handler"
	"github.com/alanyoungcy/optionscalc/internal/store/blobstate"
	"github.com/alanyoungcy/optionscalc/internal/store/postgres"
	"github.com/alanyoungcy/optionscalc/internal/store/sqlite"
)

// Dependencies bundles every domain-level dependency the server needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Provider    domain.QuoteProvider
	ChainCache  domain.ChainCache
	RateLimiter domain.RateLimiter // nil when rate limiting is disabled

	// StateStore is nil when sharing is disabled.
	StateStore domain.StateStore

	// Checks are reported by the health endpoint.
	Checks map[string]handler.Check
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Provider: yahoo.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout.Duration),
		Checks:   make(map[string]handler.Check),
	}

	// --- Redis (only when a component is configured to use it) ---
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		var err error
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Checks["redis"] = redisClient.Ping
	}

	// --- Chain cache ---
	if redisClient != nil {
		deps.ChainCache = redis.NewChainCache(redisClient, cfg.Cache.TTL.Duration)
	} else {
		deps.ChainCache = memory.NewChainCache(cfg.Cache.Capacity)
	}

	// --- Rate limiter ---
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			deps.RateLimiter = redis.NewRateLimiter(redisClient)
		} else {
			deps.RateLimiter = memory.NewRateLimiter()
		}
	}

	// --- State store ---
	store, storeClose, check, err := wireStateStore(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if storeClose != nil {
		closers = append(closers, storeClose)
	}
	if check != nil {
		deps.Checks["store"] = check
	}
	deps.StateStore = store

	logger.InfoContext(ctx, "wire: dependencies ready",
		slog.String("cache", cfg.Cache.Backend),
		slog.String("store", cfg.Store.Backend),
		slog.Bool("rate_limit", deps.RateLimiter != nil),
	)
	return deps, cleanup, nil
}

// wireStateStore opens the configured state store backend. It returns a nil
// store for the "none" backend.
func wireStateStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.StateStore, func(), handler.Check, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "postgres":
		pgClient, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				pgClient.Close()
				return nil, nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			if len(applied) > 0 {
				logger.InfoContext(ctx, "wire: applied migrations", slog.Any("files", applied))
			}
		}
		return postgres.NewStateStore(pgClient.Pool()), pgClient.Close, pgClient.Pool().Ping, nil

	case "sqlite":
		st, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire: sqlite: %w", err)
		}
		check := func(ctx context.Context) error {
			_, err := st.Count(ctx)
			return err
		}
		return st, func() { _ = st.Close() }, check, nil

	case "s3":
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		store := blobstate.New(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client))
		return store, nil, s3Client.Health, nil

	default:
		return nil, nil, nil, nil
	}
}

// OpenPostgres connects to the configured PostgreSQL database.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, error) {
	return postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
}
