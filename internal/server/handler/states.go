package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/service"
)

// StateService defines the methods the states handler requires.
type StateService interface {
	Save(ctx context.Context, state domain.State) (string, error)
	Get(ctx context.Context, id string) (domain.State, bool)
	Load(ctx context.Context, p service.LoadParams) (domain.State, service.Source)
}

// StatesHandler serves shared-state endpoints.
type StatesHandler struct {
	states StateService
	logger *slog.Logger
}

// NewStatesHandler creates a StatesHandler.
func NewStatesHandler(states StateService, logger *slog.Logger) *StatesHandler {
	return &StatesHandler{states: states, logger: logger}
}

type saveRequest struct {
	State domain.State `json:"state"`
}

// Save stores a state and returns its id.
// POST /api/states
func (h *StatesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.states.Save(r.Context(), req.State)
	if err != nil {
		if errors.Is(err, service.ErrStoreDisabled) {
			writeError(w, http.StatusServiceUnavailable, "state sharing is disabled")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: save state failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save state")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type getStateResponse struct {
	State domain.State `json:"state"`
	Found bool         `json:"found"`
}

// Get fetches a shared state. A missing state returns the default state
// with found=false instead of a 404.
// GET /api/states/{id}
func (h *StatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := h.states.Get(r.Context(), pathParam(r, "id"))
	if !ok {
		state = domain.DefaultState()
	}
	writeJSON(w, http.StatusOK, getStateResponse{State: state, Found: ok})
}

type loadResponse struct {
	State  domain.State   `json:"state"`
	Source service.Source `json:"source"`
}

// Load resolves the entry parameters of a page.
// GET /api/load?state=...|code=...
func (h *StatesHandler) Load(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, src := h.states.Load(r.Context(), service.LoadParams{
		Token: q.Get("state"),
		Code:  q.Get("code"),
	})
	writeJSON(w, http.StatusOK, loadResponse{State: state, Source: src})
}

// Short resolves a short link to a shared state.
// GET /s/{id}
func (h *StatesHandler) Short(w http.ResponseWriter, r *http.Request) {
	state, src := h.states.Load(r.Context(), service.LoadParams{Code: pathParam(r, "id")})
	writeJSON(w, http.StatusOK, loadResponse{State: state, Source: src})
}
