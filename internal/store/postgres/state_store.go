package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// StateStore implements domain.StateStore using a JSONB column.
type StateStore struct {
	pool  *pgxpool.Pool
	newID func() string
}

// NewStateStore creates a StateStore backed by the given pool.
func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool, newID: uuid.NewString}
}

// Save inserts state under a fresh id.
func (s *StateStore) Save(ctx context.Context, state domain.State) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("postgres: marshal state: %w", err)
	}

	id := s.newID()
	const query = `INSERT INTO shared_states (id, symbol, state) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, id, state.Symbol.Ticker, data); err != nil {
		return "", fmt.Errorf("postgres: save state: %w", err)
	}
	return id, nil
}

// Get loads the state stored under id and stamps its read time.
func (s *StateStore) Get(ctx context.Context, id string) (domain.State, error) {
	const query = `
		UPDATE shared_states SET last_read_at = NOW()
		WHERE id = $1
		RETURNING state`

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.State{}, domain.ErrNotFound
		}
		return domain.State{}, fmt.Errorf("postgres: get state %s: %w", id, err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.State{}, fmt.Errorf("postgres: unmarshal state %s: %w", id, err)
	}
	return state, nil
}

var _ domain.StateStore = (*StateStore)(nil)
