package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func openTemp(t *testing.T) *StateStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "states.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	state := domain.DefaultState()
	state.Symbol.Ticker = "QQQ"
	state.NextOptID = 3
	state.Legs = append(state.Legs, domain.Leg{ID: 2, Type: domain.Call, Sale: domain.Sell, IV: 0.4})

	id, err := s.Save(ctx, state)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Symbol.Ticker != "QQQ" || got.NextOptID != 3 || len(got.Legs) != 1 || got.Legs[0].Type != domain.Call {
		t.Errorf("Get = %+v", got)
	}

	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestGetUnknown(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	a, _ := s.Save(ctx, domain.DefaultState())
	b, _ := s.Save(ctx, domain.DefaultState())
	if a == b {
		t.Errorf("ids collide: %s", a)
	}
}
