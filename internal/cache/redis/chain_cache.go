package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// DefaultChainTTL bounds how stale a shared chain may get.
const DefaultChainTTL = 2 * time.Minute

// ChainCache implements domain.ChainCache with one hash per chain.
//
// Key schema:
//
//	chain:{SYMBOL}:{expiration} - hash with field "data" containing JSON
type ChainCache struct {
	c   *Client
	ttl time.Duration
}

// NewChainCache creates a ChainCache. A non-positive ttl uses DefaultChainTTL.
func NewChainCache(c *Client, ttl time.Duration) *ChainCache {
	if ttl <= 0 {
		ttl = DefaultChainTTL
	}
	return &ChainCache{c: c, ttl: ttl}
}

func (cc *ChainCache) chainKey(symbol string, expiration int64) string {
	return cc.c.key("chain", strings.ToUpper(symbol), strconv.FormatInt(expiration, 10))
}

// Set stores chain with the cache TTL.
func (cc *ChainCache) Set(ctx context.Context, symbol string, expiration int64, chain domain.OptionChain) error {
	data, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("redis: marshal chain %s@%d: %w", symbol, expiration, err)
	}

	key := cc.chainKey(symbol, expiration)
	pipe := cc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, cc.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set chain %s@%d: %w", symbol, expiration, err)
	}
	return nil
}

// Get returns domain.ErrNotFound when the chain is not cached.
func (cc *ChainCache) Get(ctx context.Context, symbol string, expiration int64) (domain.OptionChain, error) {
	data, err := cc.c.rdb.HGet(ctx, cc.chainKey(symbol, expiration), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OptionChain{}, domain.ErrNotFound
		}
		return domain.OptionChain{}, fmt.Errorf("redis: get chain %s@%d: %w", symbol, expiration, err)
	}

	var chain domain.OptionChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return domain.OptionChain{}, fmt.Errorf("redis: unmarshal chain %s@%d: %w", symbol, expiration, err)
	}
	return chain, nil
}

var _ domain.ChainCache = (*ChainCache)(nil)
