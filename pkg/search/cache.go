package search

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// resultCache is a TTL cache with a hard capacity. When a new distinct key
// would push the cache past capacity, the earliest-inserted surviving entry
// is evicted.
type resultCache struct {
	store    *gocache.Cache
	capacity int

	mu    sync.Mutex
	order []string
}

func newResultCache(ttl time.Duration, capacity int) *resultCache {
	return &resultCache{
		store:    gocache.New(ttl, 2*ttl),
		capacity: capacity,
	}
}

func (c *resultCache) Get(key string) (*Response, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Response), true
}

func (c *resultCache) Set(key string, res *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store.Get(key); exists {
		c.store.Set(key, res, gocache.DefaultExpiration)
		return
	}

	// Drop leading keys that already expired so they don't count against
	// capacity and can't soak up an eviction.
	for len(c.order) > 0 {
		if _, alive := c.store.Get(c.order[0]); alive {
			break
		}
		c.order = c.order[1:]
	}

	if len(c.order) >= c.capacity {
		c.store.Delete(c.order[0])
		c.order = c.order[1:]
	}

	c.store.Set(key, res, gocache.DefaultExpiration)
	c.order = append(c.order, key)
}
