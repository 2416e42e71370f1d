package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func chain(ts int64) domain.OptionChain {
	return domain.OptionChain{Expiration: domain.Expiration{Timestamp: ts}}
}

func TestChainCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewChainCache(0)

	if _, err := c.Get(ctx, "SPY", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("miss err = %v, want ErrNotFound", err)
	}
	if err := c.Set(ctx, "spy", 1, chain(1)); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "SPY", 1)
	if err != nil || got.Expiration.Timestamp != 1 {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if _, err := c.Get(ctx, "SPY", 2); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other expiration err = %v, want ErrNotFound", err)
	}
}

func TestChainCacheUnboundedNeverEvicts(t *testing.T) {
	ctx := context.Background()
	c := NewChainCache(0)
	for i := int64(0); i < 500; i++ {
		_ = c.Set(ctx, "SPY", i, chain(i))
	}
	if c.Len() != 500 {
		t.Errorf("len = %d, want 500", c.Len())
	}
}

func TestChainCacheCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewChainCache(2)
	_ = c.Set(ctx, "SPY", 1, chain(1))
	_ = c.Set(ctx, "SPY", 2, chain(2))
	_ = c.Set(ctx, "SPY", 1, chain(1)) // overwrite keeps insertion order
	_ = c.Set(ctx, "SPY", 3, chain(3))

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if _, err := c.Get(ctx, "SPY", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("oldest entry survived: %v", err)
	}
	for _, ts := range []int64{2, 3} {
		if _, err := c.Get(ctx, "SPY", ts); err != nil {
			t.Errorf("entry %d evicted: %v", ts, err)
		}
	}
}

func TestChainCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewChainCache(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				_ = c.Set(ctx, "SPY", j, chain(j))
				_, _ = c.Get(ctx, "SPY", j)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("len = %d, want <= 16", c.Len())
	}
}
