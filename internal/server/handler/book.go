package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/book"
	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/projection"
)

// ChainSource exposes cached option chains to the reducer.
type ChainSource interface {
	CachedChains(ctx context.Context) book.ChainLookup
}

// BookConfig tunes the book handler.
type BookConfig struct {
	PriceBuckets int
	DateBuckets  int
	Now          func() time.Time
}

// BookHandler serves state transitions and projections.
type BookHandler struct {
	chains ChainSource
	cfg    BookConfig
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler. chains may be nil.
func NewBookHandler(chains ChainSource, cfg BookConfig, logger *slog.Logger) *BookHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookHandler{chains: chains, cfg: cfg, logger: logger}
}

// snapshotResponse is a state together with everything derived from it.
type snapshotResponse struct {
	State      domain.State      `json:"state"`
	Projection projection.Result `json:"projection"`
	View       projection.View   `json:"view"`
	Token      string            `json:"token"`
}

func (h *BookHandler) reducer(ctx context.Context) book.Reducer {
	r := book.Reducer{Now: h.cfg.Now}
	if h.chains != nil {
		r.Chains = h.chains.CachedChains(ctx)
	}
	return r
}

func (h *BookHandler) options(priceBuckets, dateBuckets int) projection.Options {
	opts := projection.DefaultOptions(h.cfg.Now())
	if h.cfg.PriceBuckets > 0 {
		opts.PriceBuckets = h.cfg.PriceBuckets
	}
	if h.cfg.DateBuckets > 0 {
		opts.DateBuckets = h.cfg.DateBuckets
	}
	if priceBuckets > 0 {
		opts.PriceBuckets = priceBuckets
	}
	if dateBuckets > 0 {
		opts.DateBuckets = dateBuckets
	}
	return opts
}

func (h *BookHandler) snapshot(ctx context.Context, s domain.State) snapshotResponse {
	res := projection.Project(s, h.options(0, 0))
	token, err := codec.Encode(s)
	if err != nil {
		h.logger.WarnContext(ctx, "handler: encode state failed", slog.String("error", err.Error()))
	}
	return snapshotResponse{
		State:      s,
		Projection: res,
		View:       projection.Render(res, s.Symbol.Price.ToUse, s.Display.Profit),
		Token:      token,
	}
}

// DefaultState returns the empty book.
// GET /api/state/default
func (h *BookHandler) DefaultState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), domain.DefaultState()))
}

type transitionRequest struct {
	State  domain.State  `json:"state"`
	Action book.Envelope `json:"action"`
}

// Transition applies one action to the posted state.
// POST /api/book/transition
func (h *BookHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action, err := req.Action.Action()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.State.Legs == nil {
		req.State.Legs = []domain.Leg{}
	}

	next := h.reducer(r.Context()).Transition(req.State, action)
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), next))
}

type ironCondorRequest struct {
	State      domain.State `json:"state"`
	Expiration string       `json:"expiration"`
}

// IronCondor replaces the legs with an iron condor around the current
// price, using the strikes listed in the state's chain metadata.
// POST /api/book/templates/iron-condor
func (h *BookHandler) IronCondor(w http.ResponseWriter, r *http.Request) {
	var req ironCondorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	meta := req.State.Symbol.Meta
	if meta == nil {
		writeError(w, http.StatusUnprocessableEntity, "symbol has no option metadata")
		return
	}
	exp, ok := meta.FindExpiration(req.Expiration)
	if !ok && len(meta.Expirations) > 0 && req.Expiration == "" {
		exp, ok = meta.Expirations[0], true
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown expiration")
		return
	}

	legs, err := book.IronCondor(req.State.Symbol.Price.ToUse, meta.Strikes, exp)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, book.ErrNotEnoughStrikes) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	next := h.reducer(r.Context()).ApplyTemplates(req.State, legs)
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), next))
}

type projectionRequest struct {
	State        domain.State `json:"state"`
	PriceBuckets int          `json:"price_buckets"`
	DateBuckets  int          `json:"date_buckets"`
}

type projectionResponse struct {
	Projection projection.Result `json:"projection"`
	View       projection.View   `json:"view"`
}

// Project computes the projection of the posted state.
// POST /api/projection
func (h *BookHandler) Project(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PriceBuckets > 200 || req.DateBuckets > 200 {
		writeError(w, http.StatusBadRequest, "at most 200 buckets per axis")
		return
	}

	res := projection.Project(req.State, h.options(req.PriceBuckets, req.DateBuckets))
	writeJSON(w, http.StatusOK, projectionResponse{
		Projection: res,
		View:       projection.Render(res, req.State.Symbol.Price.ToUse, req.State.Display.Profit),
	})
}
