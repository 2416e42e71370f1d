// Package blobstate stores shared states as JSON objects in blob storage.
package blobstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

const prefix = "states/"

// StateStore implements domain.StateStore over a blob backend.
type StateStore struct {
	w     domain.BlobWriter
	r     domain.BlobReader
	newID func() string
}

// New creates a StateStore writing through w and reading through r.
func New(w domain.BlobWriter, r domain.BlobReader) *StateStore {
	return &StateStore{w: w, r: r, newID: uuid.NewString}
}

// Path returns the object key of the state stored under id.
func Path(id string) string {
	return prefix + id + ".json"
}

// Save uploads state under a fresh id.
func (s *StateStore) Save(ctx context.Context, state domain.State) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("blobstate: marshal state: %w", err)
	}
	id := s.newID()
	if err := s.w.Put(ctx, Path(id), bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("blobstate: save state: %w", err)
	}
	return id, nil
}

// Get downloads the state stored under id.
func (s *StateStore) Get(ctx context.Context, id string) (domain.State, error) {
	ok, err := s.r.Exists(ctx, Path(id))
	if err != nil {
		return domain.State{}, fmt.Errorf("blobstate: get state %s: %w", id, err)
	}
	if !ok {
		return domain.State{}, domain.ErrNotFound
	}

	body, err := s.r.Get(ctx, Path(id))
	if err != nil {
		return domain.State{}, fmt.Errorf("blobstate: get state %s: %w", id, err)
	}
	defer body.Close()

	var state domain.State
	if err := json.NewDecoder(body).Decode(&state); err != nil {
		return domain.State{}, fmt.Errorf("blobstate: decode state %s: %w", id, err)
	}
	return state, nil
}

var _ domain.StateStore = (*StateStore)(nil)
