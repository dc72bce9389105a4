package cache

import (
	"testing"
	"time"
)

type manualClock struct{ t time.Time }

func (m *manualClock) now() time.Time { return m.t }

func (m *manualClock) advance(d time.Duration) { m.t = m.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string, int], *manualClock) {
	clk := &manualClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string, int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("2025-01", 1)
	c.Set("2025-02", 2)

	// Touch January so February becomes the eviction candidate.
	if _, ok := c.Get("2025-01"); !ok {
		t.Fatal("expected 2025-01 to be cached")
	}
	c.Set("2025-03", 3)

	if _, ok := c.Get("2025-02"); ok {
		t.Error("2025-02 should have been evicted")
	}
	if v, ok := c.Get("2025-01"); !ok || v != 1 {
		t.Errorf("Get(2025-01) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.advance(30 * time.Second)
	c.Set("b", 3) // refreshes b's deadline

	clk.advance(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %d, %v; want 3, true", v, ok)
	}

	clk.advance(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache must stay usable after Purge")
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", 1)
	clk.advance(2 * time.Minute)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
	m.Wait()
}
