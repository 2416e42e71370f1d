// Package server assembles the HTTP and WebSocket API of the options
// calculator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/server/handler"
	"github.com/alanyoungcy/optionscalc/internal/server/middleware"
	"github.com/alanyoungcy/optionscalc/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter     domain.RateLimiter
	RateLimitCount  int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Book     *handler.BookHandler
	Codec    *handler.CodecHandler
	States   *handler.StatesHandler
	Markets  *handler.MarketHandler
	Screener *handler.ScreenerHandler
}

// publicPrefixes bypass authentication.
var publicPrefixes = []string{"/api/health", "/s/"}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// Middleware runs outermost first: CORS, logging, rate limit, auth.
func NewServer(cfg Config, handlers Handlers, sessions *ws.SessionHandler, logger *slog.Logger) *Server {
	h := middleware.Auth(cfg.APIKey, publicPrefixes...)(Routes(handlers, sessions))
	if cfg.RateLimiter != nil {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitCount, cfg.RateLimitWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Routes registers every endpoint on a fresh ServeMux. Nil handlers leave
// their routes unregistered.
func Routes(handlers Handlers, sessions *ws.SessionHandler) *http.ServeMux {
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}

	// Book and projection.
	if handlers.Book != nil {
		mux.HandleFunc("GET /api/state/default", handlers.Book.DefaultState)
		mux.HandleFunc("POST /api/book/transition", handlers.Book.Transition)
		mux.HandleFunc("POST /api/book/templates/iron-condor", handlers.Book.IronCondor)
		mux.HandleFunc("POST /api/projection", handlers.Book.Project)
	}

	// Codec.
	if handlers.Codec != nil {
		mux.HandleFunc("POST /api/codec/encode", handlers.Codec.Encode)
		mux.HandleFunc("GET /api/codec/decode", handlers.Codec.Decode)
	}

	// Shared states.
	if handlers.States != nil {
		mux.HandleFunc("POST /api/states", handlers.States.Save)
		mux.HandleFunc("GET /api/states/{id}", handlers.States.Get)
		mux.HandleFunc("GET /api/load", handlers.States.Load)
		mux.HandleFunc("GET /s/{id}", handlers.States.Short)
	}

	// Market data.
	if handlers.Markets != nil {
		mux.HandleFunc("GET /api/quote/{symbol}", handlers.Markets.GetQuote)
		mux.HandleFunc("GET /api/options/{symbol}/meta", handlers.Markets.GetMeta)
		mux.HandleFunc("GET /api/options/{symbol}/{expiration}", handlers.Markets.GetChain)
	}
	if handlers.Screener != nil {
		mux.HandleFunc("GET /api/screener/{symbol}/{expiration}", handlers.Screener.Screen)
	}

	if sessions != nil {
		mux.HandleFunc("GET /ws/session", sessions.HandleWS)
	}

	return mux
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Serve accepts connections on l until the server is shut down.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
