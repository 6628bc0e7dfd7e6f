package cache

import (
	"testing"
	"time"
)

func TestGetExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Minute)
	c.now = func() time.Time { return now }

	c.Set(EventsListKey(), []string{"a"})

	if _, ok := c.Get(EventsListKey()); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(EventsListKey()); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestInvalidateEventsKeepsOtherKeys(t *testing.T) {
	c := New(time.Minute)
	c.Set(EventsListKey(), 1)
	c.Set(EventKey("e1"), 2)
	c.Set("users:list", 3)

	c.InvalidateEvents()

	if _, ok := c.Get(EventsListKey()); ok {
		t.Fatal("list should be invalidated")
	}
	if _, ok := c.Get(EventKey("e1")); ok {
		t.Fatal("item should be invalidated")
	}
	if v, ok := c.Get("users:list"); !ok || v.(int) != 3 {
		t.Fatal("unrelated key should survive")
	}
}

func TestNewDefaultsTTL(t *testing.T) {
	c := New(0)
	if c.ttl != 5*time.Second {
		t.Fatalf("ttl = %v", c.ttl)
	}
}
