package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(t *testing.T, size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now least recently used and goes first.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)
	c.Set("u1|2024-04", 1)
	c.Set("u1|2024-05", 2)
	c.Set("u10|2024-05", 3)
	c.Set("u2|2024-05", 4)

	if n := c.DeletePrefix("u1|"); n != 2 {
		t.Fatalf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("u10|2024-05"); !ok {
		t.Error("u10 must survive u1 invalidation")
	}
	if _, ok := c.Get("u2|2024-05"); !ok {
		t.Error("u2 must survive u1 invalidation")
	}
}

func TestManager(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	c.Set("a", 1)
	clock.t = clock.t.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
}
