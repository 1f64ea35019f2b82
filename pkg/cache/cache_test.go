package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sandrolain/goformula/pkg/cache"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

func mustParse(t *testing.T, formula string) *types.Expression {
	t.Helper()
	expr, err := parser.Parse(formula)
	if err != nil {
		t.Fatal(err)
	}
	return expr
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
	if got := cache.New(0).Capacity(); got != cache.DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", cache.DefaultCapacity, got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	expr := mustParse(t, "A1 + 1")
	c.Set("A1 + 1", expr)
	got, ok := c.Get("A1 + 1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != expr {
		t.Fatal("expected same expression pointer")
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Len != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New(3)
	for _, k := range []string{"1", "2", "3"} {
		c.Set(k, mustParse(t, k))
	}
	// Touch "1" so that "2" becomes the oldest.
	if _, ok := c.Get("1"); !ok {
		t.Fatal("expected hit")
	}
	c.Set("4", mustParse(t, "4"))

	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("2"); ok {
		t.Fatal(`expected "2" to be evicted`)
	}
	for _, k := range []string{"1", "3", "4"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive", k)
		}
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Fatalf("evictions = %d", st.Evictions)
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := cache.New(4)
	c.Set("k", mustParse(t, "1"))
	c.Set("j", mustParse(t, "2"))
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after Invalidate")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("expected empty cache after Clear")
	}
}

func TestCacheGetOrParse(t *testing.T) {
	c := cache.New(4)
	calls := 0
	parse := func(formula string) func() (*types.Expression, error) {
		return func() (*types.Expression, error) {
			calls++
			return parser.Parse(formula)
		}
	}
	for range 3 {
		if _, err := c.GetOrParse("1 + 2", parse("1 + 2")); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Fatalf("parse called %d times, want 1", calls)
	}

	for range 2 {
		_, err := c.GetOrParse("1 +", parse("1 +"))
		var perrs types.ParseErrors
		if !errors.As(err, &perrs) {
			t.Fatalf("expected parse errors, got %v", err)
		}
	}
	if calls != 3 {
		t.Fatalf("failed parses must not be cached; parse called %d times", calls)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := cache.New(8)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				formula := fmt.Sprintf("%d + %d", g, i%16)
				if _, err := c.GetOrParse(formula, func() (*types.Expression, error) {
					return parser.Parse(formula)
				}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > c.Capacity() {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}
