package domain

import "context"

// StateStore persists shared states under opaque ids. Get returns
// ErrNotFound for an unknown id.
type StateStore interface {
	Save(ctx context.Context, state State) (string, error)
	Get(ctx context.Context, id string) (State, error)
}
