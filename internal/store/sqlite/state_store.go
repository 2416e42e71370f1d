// Package sqlite stores shared states in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS shared_states (
	id         TEXT PRIMARY KEY,
	symbol     TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shared_states_symbol ON shared_states(symbol);
`

// StateStore implements domain.StateStore on database/sql.
type StateStore struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*StateStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema migration: %w", err)
	}

	return &StateStore{db: db, newID: uuid.NewString, now: time.Now}, nil
}

// Close closes the database.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Save inserts state under a fresh id.
func (s *StateStore) Save(ctx context.Context, state domain.State) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("sqlite: marshal state: %w", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shared_states (id, symbol, state, created_at) VALUES (?, ?, ?, ?)`,
		id, state.Symbol.Ticker, string(data), s.now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: save state: %w", err)
	}
	return id, nil
}

// Get returns domain.ErrNotFound for an unknown id.
func (s *StateStore) Get(ctx context.Context, id string) (domain.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM shared_states WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.State{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("sqlite: get state %s: %w", id, err)
	}

	var state domain.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return domain.State{}, fmt.Errorf("sqlite: unmarshal state %s: %w", id, err)
	}
	return state, nil
}

// Count returns the number of stored states.
func (s *StateStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shared_states`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count states: %w", err)
	}
	return n, nil
}

var _ domain.StateStore = (*StateStore)(nil)
