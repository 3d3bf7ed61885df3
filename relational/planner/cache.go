package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wbrown/janus-relational/relational/cost"
)

// EstimateCache caches join cost estimates so repeated planning of the same
// join shape does not recompute them
type EstimateCache struct {
	cache map[string]*cachedEstimate
	mu    sync.RWMutex

	// Statistics
	hits   int64
	misses int64

	// Configuration
	maxSize int
	ttl     time.Duration
}

type cachedEstimate struct {
	cost      cost.Cost
	timestamp time.Time
}

// NewEstimateCache creates a new estimate cache
func NewEstimateCache(maxSize int, ttl time.Duration) *EstimateCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &EstimateCache{
		cache:   make(map[string]*cachedEstimate),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a cached estimate if it exists and is not expired
func (c *EstimateCache) Get(node *HashJoinNode, greater bool, model cost.Model) (cost.Cost, bool) {
	if c == nil {
		return cost.Cost{}, false
	}
	if !cacheable(model) {
		atomic.AddInt64(&c.misses, 1)
		return cost.Cost{}, false
	}

	key := c.computeKey(node, greater, model)

	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.cache[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return cost.Cost{}, false
	}

	// Expired entries are removed lazily on Set
	if time.Since(cached.timestamp) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		return cost.Cost{}, false
	}

	atomic.AddInt64(&c.hits, 1)
	return cached.cost, true
}

// Set stores an estimate in the cache. Estimates from a model with a
// custom Factory are not stored.
func (c *EstimateCache) Set(node *HashJoinNode, greater bool, model cost.Model, est cost.Cost) {
	if c == nil || !cacheable(model) {
		return
	}

	key := c.computeKey(node, greater, model)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		c.makeRoom(now)
	}
	c.cache[key] = &cachedEstimate{cost: est, timestamp: now}
}

// Clear drops every entry and resets the counters
func (c *EstimateCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.cache = make(map[string]*cachedEstimate, len(c.cache))
	c.mu.Unlock()

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats reports hit and miss counts and the number of live entries
func (c *EstimateCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}

	c.mu.RLock()
	size = len(c.cache)
	c.mu.RUnlock()

	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), size
}

// defaultFactory identifies cost.DefaultFactory by code pointer
var defaultFactory = reflect.ValueOf(cost.DefaultFactory).Pointer()

// cacheable reports whether estimates from model may be shared. Func
// values cannot be compared, and closures over different state share a
// code pointer, so only the default factory is safe to key on.
func cacheable(model cost.Model) bool {
	return model.Factory == nil || reflect.ValueOf(model.Factory).Pointer() == defaultFactory
}

// computeKey hashes everything the estimate depends on: the join shape,
// its statistics, the structural flag and the model's constants. The
// factory is always the default one, see cacheable.
func (c *EstimateCache) computeKey(node *HashJoinNode, greater bool, model cost.Model) string {
	h := sha256.New()

	fmt.Fprintf(h, "JOIN:%s;", node.Digest())
	fmt.Fprintf(h, "STATS:%v,%v,%v;", node.Stats.OutputRows, node.Stats.LeftRows, node.Stats.RightRows)
	fmt.Fprintf(h, "GREATER:%v;", greater)
	fmt.Fprintf(h, "MODEL:%v,%v;", model.Epsilon, model.SemiJoinFactor)

	return hex.EncodeToString(h.Sum(nil))
}

// makeRoom drops expired entries in one pass and, when none had expired,
// the least recently stored one. Callers hold the write lock.
func (c *EstimateCache) makeRoom(now time.Time) {
	var oldestKey string
	var oldest time.Time
	expired := 0

	for key, cached := range c.cache {
		if now.Sub(cached.timestamp) > c.ttl {
			delete(c.cache, key)
			expired++
			continue
		}
		if oldestKey == "" || cached.timestamp.Before(oldest) {
			oldestKey, oldest = key, cached.timestamp
		}
	}

	if expired == 0 && oldestKey != "" {
		delete(c.cache, oldestKey)
	}
}
