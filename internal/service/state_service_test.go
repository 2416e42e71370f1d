package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func TestStateServiceSaveGet(t *testing.T) {
	ctx := context.Background()
	svc := NewStateService(newFakeStore(), discardLogger())

	state := domain.DefaultState()
	state.Symbol.Ticker = "QQQ"
	id, err := svc.Save(ctx, state)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := svc.Get(ctx, id)
	if !ok || got.Symbol.Ticker != "QQQ" || !got.Loaded {
		t.Errorf("Get = %+v, %v", got, ok)
	}
}

func TestStateServiceDegrades(t *testing.T) {
	ctx := context.Background()

	disabled := NewStateService(nil, discardLogger())
	if _, err := disabled.Save(ctx, domain.DefaultState()); !errors.Is(err, ErrStoreDisabled) {
		t.Errorf("Save err = %v, want ErrStoreDisabled", err)
	}
	if _, ok := disabled.Get(ctx, "x"); ok {
		t.Error("disabled store found a state")
	}

	broken := newFakeStore()
	broken.err = errors.New("connection refused")
	svc := NewStateService(broken, discardLogger())
	if _, ok := svc.Get(ctx, "x"); ok {
		t.Error("broken store found a state")
	}
	if _, ok := svc.Get(ctx, "  "); ok {
		t.Error("blank id found a state")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewStateService(store, discardLogger())

	stored := domain.DefaultState()
	stored.Symbol.Ticker = "IWM"
	id, _ := svc.Save(ctx, stored)

	tokenState := domain.DefaultState()
	tokenState.Symbol.Ticker = "DIA"
	token, err := codec.Encode(tokenState)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		params LoadParams
		ticker string
		source Source
	}{
		{"empty", LoadParams{}, domain.DefaultTicker, SourceDefault},
		{"token", LoadParams{Token: token}, "DIA", SourceToken},
		{"token wins over code", LoadParams{Token: token, Code: id}, "DIA", SourceToken},
		{"bad token", LoadParams{Token: "!!!"}, domain.DefaultTicker, SourceDefault},
		{"code", LoadParams{Code: id}, "IWM", SourceStore},
		{"unknown code", LoadParams{Code: "nope"}, domain.DefaultTicker, SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src := svc.Load(ctx, tt.params)
			if got.Symbol.Ticker != tt.ticker || src != tt.source {
				t.Errorf("Load = %s/%s, want %s/%s", got.Symbol.Ticker, src, tt.ticker, tt.source)
			}
			if !got.Loaded {
				t.Error("loaded state not marked loaded")
			}
		})
	}
}
