package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	expJan int64 = 1705622400 // 2024-01-19
	expFeb int64 = 1708041600 // 2024-02-16
)

type fakeProvider struct {
	mu        sync.Mutex
	quotes    map[string]domain.Quote
	quoteErr  error
	metaErr   error
	chainErr  map[int64]error
	optsCalls atomic.Int32
	block     chan struct{} // when set, Quote waits on it
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		quotes: map[string]domain.Quote{
			"SPY": {Symbol: "SPY", Bid: domain.Ptr(470.5), ShortName: "SPDR S&P 500"},
			"QQQ": {Symbol: "QQQ", RegularMarketPrice: domain.Ptr(400.0), LongName: "Invesco QQQ"},
		},
		chainErr: map[int64]error{},
	}
}

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quoteErr != nil {
		return domain.Quote{}, f.quoteErr
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func (f *fakeProvider) OptionMeta(_ context.Context, _ string) (domain.OptionMeta, error) {
	if f.metaErr != nil {
		return domain.OptionMeta{}, f.metaErr
	}
	return domain.OptionMeta{
		Strikes: []float64{460, 470, 480},
		Expirations: []domain.Expiration{
			{Timestamp: expJan, Label: "2024-01-19"},
			{Timestamp: expFeb, Label: "2024-02-16"},
		},
	}, nil
}

func (f *fakeProvider) Options(_ context.Context, _ string, expiration int64) (domain.OptionChain, error) {
	f.optsCalls.Add(1)
	f.mu.Lock()
	err := f.chainErr[expiration]
	f.mu.Unlock()
	if err != nil {
		return domain.OptionChain{}, err
	}
	return domain.OptionChain{
		Expiration: domain.Expiration{Timestamp: expiration},
		Puts: []domain.ContractData{
			{Strike: 470, Bid: 5, Ask: 5.5, ImpliedVolatility: 0.2},
		},
		Calls: []domain.ContractData{
			{Strike: 470, Bid: 6, Ask: 6.5, ImpliedVolatility: 0.18},
		},
	}, nil
}

type fakeStore struct {
	mu     sync.Mutex
	states map[string]domain.State
	err    error
	next   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[string]domain.State{}}
}

func (f *fakeStore) Save(_ context.Context, s domain.State) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	id := "id" + string(rune('0'+f.next))
	f.states[id] = s.Clone()
	return id, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.State{}, f.err
	}
	s, ok := f.states[id]
	if !ok {
		return domain.State{}, domain.ErrNotFound
	}
	return s.Clone(), nil
}
