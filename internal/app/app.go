// Package app provides the top-level application lifecycle of the options
// calculator server. It wires the provider, caches and state store into the
// services and runs the HTTP server until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/optionscalc/internal/config"
	"github.com/alanyoungcy/optionscalc/internal/logging"
	"github.com/alanyoungcy/optionscalc/internal/server"
	"github.com/alanyoungcy/optionscalc/internal/server/handler"
	"github.com/alanyoungcy/optionscalc/internal/server/ws"
	"github.com/alanyoungcy/optionscalc/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	root    *slog.Logger
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		root:   logger,
		logger: logging.Component(logger, "app"),
	}
}

// Run wires all dependencies, starts the HTTP server and blocks until the
// context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.Log.Level),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	srv := a.buildServer(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

// buildServer assembles services, handlers and middleware over deps.
func (a *App) buildServer(deps *Dependencies) *server.Server {
	base := a.root
	now := time.Now

	markets := service.NewMarketService(
		deps.Provider,
		deps.ChainCache,
		a.cfg.Provider.PreloadConcurrency,
		logging.Component(base, "market_service"),
	)
	states := service.NewStateService(deps.StateStore, logging.Component(base, "state_service"))

	handlerLogger := logging.Component(base, "handler")
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, handlerLogger),
		Book: handler.NewBookHandler(markets, handler.BookConfig{
			PriceBuckets: a.cfg.Projection.PriceBuckets,
			DateBuckets:  a.cfg.Projection.DateBuckets,
			Now:          now,
		}, handlerLogger),
		Codec:    handler.NewCodecHandler(handlerLogger),
		States:   handler.NewStatesHandler(states, handlerLogger),
		Markets:  handler.NewMarketHandler(markets, handlerLogger),
		Screener: handler.NewScreenerHandler(markets, now, handlerLogger),
	}

	sessions := ws.NewSessionHandler(markets, states, ws.Config{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		PriceBuckets:   a.cfg.Projection.PriceBuckets,
		DateBuckets:    a.cfg.Projection.DateBuckets,
		Now:            now,
	}, logging.Component(base, "ws"))

	return server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimiter:     deps.RateLimiter,
		RateLimitCount:  a.cfg.RateLimit.Requests,
		RateLimitWindow: a.cfg.RateLimit.Window.Duration,
	}, handlers, sessions, logging.Component(base, "server"))
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
