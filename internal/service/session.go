package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/book"
	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/projection"
)

// Hints attached to frames when background work degrades.
const (
	HintMarketUnavailable = "market data unavailable"
	HintStateNotFound     = "shared state not found"
	HintLoading           = "state is still loading"
)

// Frame is what a session emits after every change.
type Frame struct {
	State      domain.State      `json:"state"`
	Projection projection.Result `json:"projection"`
	Token      string            `json:"token"`
	Hint       string            `json:"hint,omitempty"`
}

// MarketLoader loads market data for a ticker.
type MarketLoader interface {
	Preload(ctx context.Context, symbol string) (Market, error)
}

// StateGetter fetches shared states.
type StateGetter interface {
	Get(ctx context.Context, id string) (domain.State, bool)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Initial      domain.State
	Code         string // shared state to fetch before accepting actions
	PriceBuckets int
	DateBuckets  int
	Now          func() time.Time
}

type marketResult struct {
	symbol string
	market Market
	err    error
}

type stateResult struct {
	state domain.State
	found bool
}

// Session is one live editing session. All state is owned by the goroutine
// running Run; market and store lookups run in the background and report
// back to it.
type Session struct {
	market MarketLoader
	states StateGetter
	cfg    SessionConfig
	logger *slog.Logger

	state   domain.State
	chains  book.Snapshot
	loaded  map[string]Market
	latest  string
	markets chan marketResult
	loads   chan stateResult
}

// NewSession creates a session. states may be nil when sharing is disabled.
func NewSession(market MarketLoader, states StateGetter, cfg SessionConfig, logger *slog.Logger) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	state := cfg.Initial.Clone()
	if state.Legs == nil {
		state = domain.DefaultState()
	}
	state.Loaded = cfg.Code == "" || states == nil
	return &Session{
		market:  market,
		states:  states,
		cfg:     cfg,
		logger:  logger,
		state:   state,
		chains:  book.Snapshot{},
		loaded:  make(map[string]Market),
		markets: make(chan marketResult, 1),
		loads:   make(chan stateResult, 1),
	}
}

func (s *Session) reducer() book.Reducer {
	return book.Reducer{Now: s.cfg.Now, Chains: s.chains}
}

// State returns the current state. Only safe once Run has returned.
func (s *Session) State() domain.State {
	return s.state.Clone()
}

// Run serves actions until ctx is cancelled or actions is closed. Every
// applied action, and every completed background load, emits a frame.
func (s *Session) Run(ctx context.Context, actions <-chan book.Action, frames chan<- Frame) error {
	if !s.state.Loaded {
		go s.fetchState(ctx, s.cfg.Code)
	} else {
		s.requestMarket(ctx, s.state.Symbol.Ticker)
	}
	if err := s.emit(ctx, frames, ""); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case a, ok := <-actions:
			if !ok {
				return nil
			}
			if !s.state.Loaded {
				if err := s.emit(ctx, frames, HintLoading); err != nil {
					return err
				}
				continue
			}
			prev := s.state.Symbol.Ticker
			s.state = s.reducer().Transition(s.state, a)
			if s.state.Symbol.Ticker != prev {
				s.requestMarket(ctx, s.state.Symbol.Ticker)
			}
			if err := s.emit(ctx, frames, ""); err != nil {
				return err
			}

		case res := <-s.loads:
			hint := ""
			if res.found {
				s.state = s.reducer().Transition(s.state, book.ReplaceState{State: res.state})
			} else {
				s.state = domain.DefaultState()
				hint = HintStateNotFound
			}
			s.state.Loaded = true
			s.requestMarket(ctx, s.state.Symbol.Ticker)
			if err := s.emit(ctx, frames, hint); err != nil {
				return err
			}

		case res := <-s.markets:
			if res.symbol != s.latest || res.symbol != s.state.Symbol.Ticker {
				s.logger.DebugContext(ctx, "session: discarding stale market data",
					slog.String("symbol", res.symbol),
					slog.String("latest", s.latest),
				)
				continue
			}
			hint := ""
			if res.err != nil {
				s.logger.WarnContext(ctx, "session: market load failed",
					slog.String("symbol", res.symbol),
					slog.String("error", res.err.Error()),
				)
				hint = HintMarketUnavailable
			} else {
				s.loaded[res.symbol] = res.market
				s.applyMarket(res.market)
			}
			if err := s.emit(ctx, frames, hint); err != nil {
				return err
			}
		}
	}
}

// requestMarket records symbol as the only ticker whose result will be
// applied. Markets loaded earlier in the session are applied at once;
// anything else is fetched in the background.
func (s *Session) requestMarket(ctx context.Context, symbol string) {
	s.latest = symbol
	if symbol == "" || s.market == nil {
		return
	}
	if m, ok := s.loaded[symbol]; ok {
		s.applyMarket(m)
		return
	}
	go func() {
		m, err := s.market.Preload(ctx, symbol)
		select {
		case s.markets <- marketResult{symbol: symbol, market: m, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) applyMarket(m Market) {
	for exp, chain := range m.Chains[m.Symbol] {
		s.chains.Put(m.Symbol, exp, chain)
	}
	s.state = s.reducer().Transition(s.state, m.SymbolUpdate())
}

func (s *Session) fetchState(ctx context.Context, code string) {
	state, found := s.states.Get(ctx, code)
	select {
	case s.loads <- stateResult{state: state, found: found}:
	case <-ctx.Done():
	}
}

func (s *Session) emit(ctx context.Context, frames chan<- Frame, hint string) error {
	token, err := codec.Encode(s.state)
	if err != nil {
		s.logger.WarnContext(ctx, "session: encode state failed", slog.String("error", err.Error()))
	}
	f := Frame{
		State: s.state.Clone(),
		Projection: projection.Project(s.state, projection.Options{
			Now:          s.cfg.Now(),
			PriceBuckets: s.cfg.PriceBuckets,
			DateBuckets:  s.cfg.DateBuckets,
		}),
		Token: token,
		Hint:  hint,
	}
	select {
	case frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
