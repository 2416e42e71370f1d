// Package memory holds in-process implementations of the chain cache and
// the rate limiter.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

type chainKey struct {
	symbol     string
	expiration int64
}

// ChainCache implements domain.ChainCache in memory. With a capacity of 0
// it never evicts; otherwise the oldest insertion is dropped first.
type ChainCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[chainKey]domain.OptionChain
	order    []chainKey
}

// NewChainCache creates a cache holding at most capacity chains.
func NewChainCache(capacity int) *ChainCache {
	if capacity < 0 {
		capacity = 0
	}
	return &ChainCache{
		capacity: capacity,
		entries:  make(map[chainKey]domain.OptionChain),
	}
}

func key(symbol string, expiration int64) chainKey {
	return chainKey{symbol: strings.ToUpper(symbol), expiration: expiration}
}

// Get returns domain.ErrNotFound on a miss.
func (c *ChainCache) Get(_ context.Context, symbol string, expiration int64) (domain.OptionChain, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chain, ok := c.entries[key(symbol, expiration)]
	if !ok {
		return domain.OptionChain{}, domain.ErrNotFound
	}
	return chain, nil
}

// Set stores chain, evicting the oldest entry when full.
func (c *ChainCache) Set(_ context.Context, symbol string, expiration int64, chain domain.OptionChain) error {
	k := key(symbol, expiration)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[k]; !exists {
		c.order = append(c.order, k)
	}
	c.entries[k] = chain

	for c.capacity > 0 && len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return nil
}

// Len returns the number of cached chains.
func (c *ChainCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ domain.ChainCache = (*ChainCache)(nil)
