package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTTL_GetSet(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := NewTTLWithClock[string](10*time.Minute, clk)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache reported a hit")
	}

	c.Set("a", "one")
	if v, ok := c.Get("a"); !ok || v != "one" {
		t.Errorf("got (%q, %v), want (one, true)", v, ok)
	}

	c.Set("a", "two")
	if v, _ := c.Get("a"); v != "two" {
		t.Errorf("overwrite: got %q, want two", v)
	}
}

func TestTTL_Expiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := NewTTLWithClock[int](10*time.Minute, clk)

	c.Set("k", 42)

	clk.Advance(9 * time.Minute)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("fresh entry: got (%d, %v)", v, ok)
	}

	clk.Advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry reported as a hit")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("expired entry not swept, len = %d", got)
	}
}

func TestTTL_SetRefreshesExpiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := NewTTLWithClock[int](10*time.Minute, clk)

	c.Set("k", 1)
	clk.Advance(8 * time.Minute)
	c.Set("k", 2)
	clk.Advance(8 * time.Minute)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Errorf("refreshed entry: got (%d, %v), want (2, true)", v, ok)
	}
}

func TestTTL_SetWithTTL(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := NewTTLWithClock[int](10*time.Minute, clk)

	c.SetWithTTL("short", 1, time.Minute)
	c.Set("long", 2)

	clk.Advance(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry survived its TTL")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default-TTL entry expired early")
	}
}

func TestTTL_Delete(t *testing.T) {
	c := NewTTL[int](time.Minute)
	c.Set("k", 1)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("deleted entry reported as a hit")
	}
	c.Delete("never-existed")
}

func TestTTL_Concurrent(t *testing.T) {
	c := NewTTL[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if got := c.Len(); got != 10 {
		t.Errorf("len = %d, want 10", got)
	}
}
