package types

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Context is the variable store consulted while evaluating a formula.
// Names are case-sensitive.
//
// A Context may have a parent: lookups fall through to the parent when the
// name is not bound locally, while writes only ever touch the local layer.
// This is how transient overrides are layered over a persistent store.
//
// Context is not safe for concurrent mutation.
type Context struct {
	vars   map[string]Value
	parent *Context
	rng    *rand.Rand
	clock  func() time.Time
}

// NewContext creates an empty root context with a time-seeded random
// source.
func NewContext() *Context {
	seed := uint64(time.Now().UnixNano())
	return &Context{
		vars: make(map[string]Value),
		rng:  lockedRand(rand.New(rand.NewPCG(seed, seed>>1|1))),
	}
}

// globalRand backs contexts built without NewContext.
var globalRand = lockedRand(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)))

// lockedSource serializes draws from a shared *rand.Rand. A rand.Rand
// keeps all of its state in its source, so a Rand built on lockedSource is
// safe for concurrent use.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Uint64()
}

func lockedRand(r *rand.Rand) *rand.Rand {
	return rand.New(&lockedSource{r: r})
}

// Child creates a context layered over c, pre-populated with the given
// bindings. The parent is never modified through the child.
func (c *Context) Child(bindings map[string]Value) *Context {
	child := &Context{
		vars:   make(map[string]Value, len(bindings)),
		parent: c,
	}
	for name, v := range bindings {
		child.vars[name] = v
	}
	return child
}

// Parent returns the parent context, or nil for a root context.
func (c *Context) Parent() *Context {
	return c.parent
}

// Set binds name to v in this layer.
func (c *Context) Set(name string, v Value) {
	c.vars[name] = v
}

// Get looks name up in this layer and then in the parents. The boolean
// distinguishes an absent name from one explicitly bound to Empty.
func (c *Context) Get(name string) (Value, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return Empty(), false
}

// Has reports whether name is bound in this layer or a parent.
func (c *Context) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Remove unbinds name from this layer only.
func (c *Context) Remove(name string) {
	delete(c.vars, name)
}

// Clear removes every binding from this layer.
func (c *Context) Clear() {
	c.vars = make(map[string]Value)
}

// Len returns the number of distinct visible names.
func (c *Context) Len() int {
	return len(c.Names())
}

// Names returns the visible names in sorted order.
func (c *Context) Names() []string {
	seen := make(map[string]struct{})
	for cur := c; cur != nil; cur = cur.parent {
		for name := range cur.vars {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetRand installs the random source used by RAND-style functions. Draws
// from r are serialized, so evaluations sharing the context may run
// concurrently. A nil r removes the source of this layer.
func (c *Context) SetRand(r *rand.Rand) {
	if r == nil {
		c.rng = nil
		return
	}
	c.rng = lockedRand(r)
}

// Rand returns the random source of the nearest layer that has one. The
// returned source is safe for concurrent use.
func (c *Context) Rand() *rand.Rand {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.rng != nil {
			return cur.rng
		}
	}
	return globalRand
}

// SetClock installs the time source used by TODAY and NOW.
func (c *Context) SetClock(clock func() time.Time) {
	c.clock = clock
}

// Now returns the current time according to the nearest installed clock.
func (c *Context) Now() time.Time {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.clock != nil {
			return cur.clock()
		}
	}
	return time.Now()
}

// String returns a short description of the context.
func (c *Context) String() string {
	depth := 0
	for cur := c.parent; cur != nil; cur = cur.parent {
		depth++
	}
	return fmt.Sprintf("Context{depth=%d, bindings=%d}", depth, len(c.vars))
}
