package redis

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestChainKey(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	cc := NewChainCache(Wrap(rdb, "optcalc:"), 0)
	if got := cc.chainKey("spy", 1700179200); got != "optcalc:chain:SPY:1700179200" {
		t.Errorf("key = %q", got)
	}
	if cc.ttl != DefaultChainTTL {
		t.Errorf("ttl = %v, want %v", cc.ttl, DefaultChainTTL)
	}
	if got := NewChainCache(Wrap(rdb, ""), time.Minute).ttl; got != time.Minute {
		t.Errorf("ttl = %v, want 1m", got)
	}
}
