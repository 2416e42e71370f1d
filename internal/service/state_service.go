package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// ErrStoreDisabled is returned by Save when no state store is configured.
var ErrStoreDisabled = errors.New("state store disabled")

// Source says where a loaded state came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceToken   Source = "token"
	SourceStore   Source = "store"
)

// StateService persists shared states and resolves entry parameters.
type StateService struct {
	store  domain.StateStore
	logger *slog.Logger
}

// NewStateService creates a StateService. A nil store disables sharing.
func NewStateService(store domain.StateStore, logger *slog.Logger) *StateService {
	return &StateService{store: store, logger: logger}
}

// Enabled reports whether a store is configured.
func (s *StateService) Enabled() bool {
	return s.store != nil
}

// Save stores state and returns its id.
func (s *StateService) Save(ctx context.Context, state domain.State) (string, error) {
	if s.store == nil {
		return "", ErrStoreDisabled
	}
	id, err := s.store.Save(ctx, state)
	if err != nil {
		return "", fmt.Errorf("state_service: save: %w", err)
	}
	s.logger.InfoContext(ctx, "state_service: saved state",
		slog.String("id", id),
		slog.String("symbol", state.Symbol.Ticker),
		slog.Int("legs", len(state.Legs)),
	)
	return id, nil
}

// Get fetches the state stored under id. Every failure, including a
// missing id or a disabled store, reports found=false rather than an error.
func (s *StateService) Get(ctx context.Context, id string) (domain.State, bool) {
	id = strings.TrimSpace(id)
	if s.store == nil || id == "" {
		return domain.State{}, false
	}
	state, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "state_service: get failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return domain.State{}, false
	}
	if state.Legs == nil {
		state.Legs = []domain.Leg{}
	}
	state.Loaded = true
	return state, true
}

// LoadParams are the entry parameters of a page or session.
type LoadParams struct {
	Token string // ?state=
	Code  string // ?code= or /s/{id}
}

// Load resolves params to a state. A token wins over a code; an invalid
// token or unknown code falls back to the default state.
func (s *StateService) Load(ctx context.Context, p LoadParams) (domain.State, Source) {
	if strings.TrimSpace(p.Token) != "" {
		state, err := codec.Decode(p.Token)
		if err == nil {
			state.Loaded = true
			return state, SourceToken
		}
		s.logger.WarnContext(ctx, "state_service: invalid state token",
			slog.String("error", err.Error()),
		)
		return domain.DefaultState(), SourceDefault
	}
	if strings.TrimSpace(p.Code) != "" {
		if state, ok := s.Get(ctx, p.Code); ok {
			return state, SourceStore
		}
	}
	return domain.DefaultState(), SourceDefault
}
