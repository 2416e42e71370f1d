package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/screener"
)

// ScreenerHandler serves the put screener.
type ScreenerHandler struct {
	markets MarketService
	now     func() time.Time
	logger  *slog.Logger
}

// NewScreenerHandler creates a ScreenerHandler. now defaults to time.Now.
func NewScreenerHandler(markets MarketService, now func() time.Time, logger *slog.Logger) *ScreenerHandler {
	if now == nil {
		now = time.Now
	}
	return &ScreenerHandler{markets: markets, now: now, logger: logger}
}

// Screen filters and sorts the puts of one expiration.
// GET /api/screener/{symbol}/{expiration}?min_return=0.01&max_strike=&max_eff_price=&sort=return&dir=desc
func (h *ScreenerHandler) Screen(w http.ResponseWriter, r *http.Request) {
	exp, ok := expirationParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "expiration must be a unix timestamp")
		return
	}

	var f screener.Filter
	minReturn, err := queryFloat(r, "min_return")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if minReturn != nil {
		f.MinReturn = *minReturn
	}
	if f.MaxStrike, err = queryFloat(r, "max_strike"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.MaxEffectivePrice, err = queryFloat(r, "max_eff_price"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	sort, err := screener.ParseSort(q.Get("sort"), q.Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := symbolParam(r)
	chain, err := h.markets.Chain(r.Context(), symbol, exp)
	if err != nil {
		status := upstreamStatus(err)
		h.logger.WarnContext(r.Context(), "handler: screener chain failed",
			slog.String("symbol", symbol),
			slog.Int64("expiration", exp),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "option chain unavailable")
		return
	}
	writeJSON(w, http.StatusOK, screener.Screen(chain, h.now(), f, sort))
}
