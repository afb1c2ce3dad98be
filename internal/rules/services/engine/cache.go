package engine

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DecisionCache memoizes ShouldBlock verdicts. The engine's rules are
// immutable, so entries never need invalidation.
type DecisionCache interface {
	Get(key string) (bool, bool)
	Put(key string, blocked bool)
	Len() int
	Stats() (hits, misses, evictions uint64)
}

// decisionCache is an LRU-backed DecisionCache with basic metrics.
type decisionCache struct {
	lru       *lru.Cache[string, bool]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// newDecisionCache creates a DecisionCache with the given capacity. A size
// of zero or less disables memoization entirely.
func newDecisionCache(size int) (DecisionCache, error) {
	if size <= 0 {
		return disabledCache{}, nil
	}

	var dc decisionCache
	cache, err := lru.NewWithEvict(size, func(string, bool) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return &dc, nil
}

func (c *decisionCache) Get(key string) (bool, bool) {
	if blocked, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return blocked, true
	}
	atomic.AddUint64(&c.misses, 1)
	return false, false
}

func (c *decisionCache) Put(key string, blocked bool) {
	c.lru.Add(key, blocked)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (disabledCache) Get(string) (bool, bool)         { return false, false }
func (disabledCache) Put(string, bool)                {}
func (disabledCache) Len() int                        { return 0 }
func (disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }
