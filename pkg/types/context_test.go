package types_test

import (
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

func TestContextSetGet(t *testing.T) {
	c := types.NewContext()
	c.Set("A1", types.Number(10))
	c.Set("a1", types.Text("lower"))

	v, ok := c.Get("A1")
	if !ok || !v.Equal(types.Number(10)) {
		t.Fatalf("Get(A1) = %v, %v", v, ok)
	}
	v, ok = c.Get("a1")
	if !ok || !v.Equal(types.Text("lower")) {
		t.Fatalf("names must be case-sensitive, Get(a1) = %v, %v", v, ok)
	}
	if _, ok := c.Get("B1"); ok {
		t.Fatal("Get(B1) reported a binding")
	}
}

func TestContextDistinguishesAbsentFromEmpty(t *testing.T) {
	c := types.NewContext()
	c.Set("blank", types.Empty())

	v, ok := c.Get("blank")
	if !ok || !v.IsEmpty() {
		t.Fatalf("Get(blank) = %v, %v; want Empty, true", v, ok)
	}
	v, ok = c.Get("missing")
	if ok || !v.IsEmpty() {
		t.Fatalf("Get(missing) = %v, %v; want Empty, false", v, ok)
	}
	if !c.Has("blank") || c.Has("missing") {
		t.Fatal("Has() mismatch")
	}
}

func TestContextRemoveClearNames(t *testing.T) {
	c := types.NewContext()
	c.Set("b", types.Number(2))
	c.Set("a", types.Number(1))
	c.Set("c", types.Number(3))

	if got := c.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Names() = %v", got)
	}
	c.Remove("b")
	if c.Has("b") || c.Len() != 2 {
		t.Fatalf("after Remove: Has(b)=%v Len=%d", c.Has("b"), c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("after Clear: Len=%d", c.Len())
	}
}

func TestContextChildLayering(t *testing.T) {
	parent := types.NewContext()
	parent.Set("x", types.Number(1))
	parent.Set("y", types.Number(2))

	child := parent.Child(map[string]types.Value{"x": types.Number(100)})
	child.Set("z", types.Number(3))

	if v, _ := child.Get("x"); !v.Equal(types.Number(100)) {
		t.Fatalf("child Get(x) = %v, want override", v)
	}
	if v, _ := child.Get("y"); !v.Equal(types.Number(2)) {
		t.Fatalf("child Get(y) = %v, want parent value", v)
	}
	if got := child.Names(); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("child Names() = %v", got)
	}

	if v, _ := parent.Get("x"); !v.Equal(types.Number(1)) {
		t.Fatalf("parent mutated through child: x = %v", v)
	}
	if parent.Has("z") {
		t.Fatal("parent sees child-only binding")
	}
	if child.Parent() != parent {
		t.Fatal("Parent() mismatch")
	}
}

func TestContextRandAndClock(t *testing.T) {
	c := types.NewContext()
	c.SetRand(rand.New(rand.NewPCG(1, 2)))
	want := rand.New(rand.NewPCG(1, 2)).Float64()

	child := c.Child(nil)
	if got := child.Rand().Float64(); got != want {
		t.Fatalf("child Rand() not inherited: %v vs %v", got, want)
	}

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return fixed })
	if got := child.Now(); !got.Equal(fixed) {
		t.Fatalf("child Now() = %v, want %v", got, fixed)
	}

	bare := types.NewContext()
	if bare.Rand() == nil {
		t.Fatal("default Rand() is nil")
	}
	if bare.Rand() != bare.Rand() {
		t.Fatal("default Rand() not stable")
	}
}

func TestContextRandConcurrent(t *testing.T) {
	for _, c := range []*types.Context{
		types.NewContext(),
		func() *types.Context {
			c := types.NewContext()
			c.SetRand(rand.New(rand.NewPCG(7, 8)))
			return c
		}(),
	} {
		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				r := c.Child(nil).Rand()
				for range 200 {
					if f := r.Float64(); f < 0 || f >= 1 {
						t.Errorf("Float64() = %v", f)
						return
					}
					_ = r.Int64N(10)
				}
			})
		}
		wg.Wait()
	}
}
