package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	OptionMeta(ctx context.Context, symbol string) (domain.OptionMeta, error)
	Chain(ctx context.Context, symbol string, expiration int64) (domain.OptionChain, error)
}

// MarketHandler proxies quote and option-chain lookups.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(pathParam(r, "symbol")))
}

func expirationParam(r *http.Request) (int64, bool) {
	ts, err := strconv.ParseInt(pathParam(r, "expiration"), 10, 64)
	return ts, err == nil && ts > 0
}

func (h *MarketHandler) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := upstreamStatus(err)
	if status == http.StatusBadGateway {
		h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("symbol", pathParam(r, "symbol")),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, op+" unavailable")
}

// GetQuote returns the latest quote for a symbol.
// GET /api/quote/{symbol}
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.markets.Quote(r.Context(), symbolParam(r))
	if err != nil {
		h.upstreamError(w, r, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quote":      q,
		"priceToUse": q.PriceToUse(),
		"name":       q.DisplayName(),
	})
}

// GetMeta returns the listed strikes and expirations.
// GET /api/options/{symbol}/meta
func (h *MarketHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	m, err := h.markets.OptionMeta(r.Context(), symbolParam(r))
	if err != nil {
		h.upstreamError(w, r, "option metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetChain returns the chain of one expiration.
// GET /api/options/{symbol}/{expiration}
func (h *MarketHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	exp, ok := expirationParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "expiration must be a unix timestamp")
		return
	}
	chain, err := h.markets.Chain(r.Context(), symbolParam(r), exp)
	if err != nil {
		h.upstreamError(w, r, "option chain", err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}
