package domain

import (
	"context"
	"time"
)

// ChainCache stores option chains keyed by (symbol, expiration timestamp).
// Get returns ErrNotFound on a miss.
type ChainCache interface {
	Get(ctx context.Context, symbol string, expiration int64) (OptionChain, error)
	Set(ctx context.Context, symbol string, expiration int64, chain OptionChain) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
