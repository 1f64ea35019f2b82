// Package cache provides a thread-safe LRU cache for parsed formulas.
//
// The engine uses it when caching is enabled, so that evaluating the same
// formula text repeatedly parses it only once. Parse failures are never
// cached.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrParse("SUM(A1, A2) * 2", func() (*types.Expression, error) {
//	    return parser.Parse("SUM(A1, A2) * 2")
//	})
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/sandrolain/goformula/pkg/types"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	formula string
	expr    *types.Expression
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
	Capacity  int
}

// Cache is a thread-safe LRU (Least Recently Used) cache of parsed
// formulas keyed by their source text. Once the capacity is reached, the
// least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a new LRU cache with the given capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a parsed formula and marks it most recently used.
func (c *Cache) Get(formula string) (*types.Expression, bool) {
	c.mu.RLock()
	el, ok := c.items[formula]
	// Already at the front: no need for the write lock.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if !alreadyFront {
		// Promote under the write lock; the entry may have been evicted meanwhile.
		c.mu.Lock()
		el, ok = c.items[formula]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			c.misses.Add(1)
			return nil, false
		}
	}
	c.hits.Add(1)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces a parsed formula.
func (c *Cache) Set(formula string, expr *types.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[formula]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{formula: formula, expr: expr})
	c.items[formula] = el
}

// GetOrParse returns the cached expression for formula, or calls parse,
// caches a successful result and returns it.
func (c *Cache) GetOrParse(formula string, parse func() (*types.Expression, error)) (*types.Expression, error) {
	if expr, ok := c.Get(formula); ok {
		return expr, nil
	}
	expr, err := parse()
	if err != nil {
		return nil, err
	}
	c.Set(formula, expr)
	return expr, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.Len(),
		Capacity:  c.capacity,
	}
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(formula string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[formula]; ok {
		c.ll.Remove(el)
		delete(c.items, formula)
	}
}

// Clear removes all entries. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).formula)
	c.evictions.Add(1)
}
