package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/optionscalc/internal/book"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// DefaultPreloadConcurrency bounds the chain fetches of one Preload.
const DefaultPreloadConcurrency = 4

// MarketService fronts the quote provider with the chain cache.
type MarketService struct {
	provider    domain.QuoteProvider
	cache       domain.ChainCache
	concurrency int
	logger      *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(provider domain.QuoteProvider, cache domain.ChainCache, concurrency int, logger *slog.Logger) *MarketService {
	if concurrency < 1 {
		concurrency = DefaultPreloadConcurrency
	}
	return &MarketService{
		provider:    provider,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Quote fetches the latest quote for symbol.
func (s *MarketService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("market_service: quote %s: %w", symbol, err)
	}
	return q, nil
}

// OptionMeta fetches the strikes and expirations listed for symbol.
func (s *MarketService) OptionMeta(ctx context.Context, symbol string) (domain.OptionMeta, error) {
	m, err := s.provider.OptionMeta(ctx, symbol)
	if err != nil {
		return domain.OptionMeta{}, fmt.Errorf("market_service: option meta %s: %w", symbol, err)
	}
	return m, nil
}

// Chain returns the chain for one expiration, reading through the cache.
// Cache failures are logged and never fail the call.
func (s *MarketService) Chain(ctx context.Context, symbol string, expiration int64) (domain.OptionChain, error) {
	if s.cache != nil {
		chain, err := s.cache.Get(ctx, symbol, expiration)
		if err == nil {
			return chain, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market_service: cache get failed",
				slog.String("symbol", symbol),
				slog.Int64("expiration", expiration),
				slog.String("error", err.Error()),
			)
		}
	}

	chain, err := s.provider.Options(ctx, symbol, expiration)
	if err != nil {
		return domain.OptionChain{}, fmt.Errorf("market_service: options %s@%d: %w", symbol, expiration, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, expiration, chain); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return chain, nil
}

// Market is everything loaded for one underlying.
type Market struct {
	Symbol string
	Quote  domain.Quote
	Meta   domain.OptionMeta
	Chains book.Snapshot
}

// SymbolUpdate is the action that applies m to a state whose ticker is
// already m.Symbol.
func (m Market) SymbolUpdate() book.ModifySymbol {
	meta := m.Meta.Clone()
	name := m.Quote.DisplayName()
	a := book.ModifySymbol{Name: &name, Meta: &meta}
	if p := m.Quote.PriceToUse(); p != 0 {
		a.ActualPrice = domain.Ptr(p)
	}
	return a
}

// Preload fetches the quote and metadata of symbol, then every listed
// expiration's chain concurrently. Individual chain failures are logged
// and skipped; a quote or metadata failure fails the whole load.
func (s *MarketService) Preload(ctx context.Context, symbol string) (Market, error) {
	m := Market{Symbol: symbol, Chains: book.Snapshot{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.Quote(gctx, symbol)
		m.Quote = q
		return err
	})
	g.Go(func() error {
		meta, err := s.OptionMeta(gctx, symbol)
		m.Meta = meta
		return err
	})
	if err := g.Wait(); err != nil {
		return Market{Symbol: symbol, Chains: book.Snapshot{}}, err
	}

	var mu sync.Mutex
	cg, cctx := errgroup.WithContext(ctx)
	cg.SetLimit(s.concurrency)
	for _, exp := range m.Meta.Expirations {
		cg.Go(func() error {
			chain, err := s.Chain(cctx, symbol, exp.Timestamp)
			if err != nil {
				s.logger.WarnContext(cctx, "market_service: chain fetch failed",
					slog.String("symbol", symbol),
					slog.String("expiration", exp.Label),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			m.Chains.Put(symbol, exp.Timestamp, chain)
			mu.Unlock()
			return nil
		})
	}
	_ = cg.Wait()

	s.logger.InfoContext(ctx, "market_service: preloaded",
		slog.String("symbol", symbol),
		slog.Int("expirations", len(m.Meta.Expirations)),
		slog.Int("chains", len(m.Chains[symbol])),
	)
	return m, nil
}

// CachedChains returns a lookup answered from the chain cache alone; it
// never calls the provider.
func (s *MarketService) CachedChains(ctx context.Context) book.ChainLookup {
	return cacheLookup{ctx: ctx, cache: s.cache}
}

type cacheLookup struct {
	ctx   context.Context
	cache domain.ChainCache
}

func (l cacheLookup) Chain(symbol string, expiration int64) (domain.OptionChain, bool) {
	if l.cache == nil {
		return domain.OptionChain{}, false
	}
	chain, err := l.cache.Get(l.ctx, symbol, expiration)
	return chain, err == nil
}
