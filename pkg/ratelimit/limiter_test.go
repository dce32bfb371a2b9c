package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}
	rl := newRateLimiter(2, 3, clock.now)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}
	if rl.Allow() {
		t.Fatal("request beyond burst must be rejected")
	}

	clock.advance(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("one token should refill after 500ms at 2/s")
	}
	if rl.Allow() {
		t.Error("only one token should be available")
	}

	clock.advance(time.Hour)
	if got := rl.Tokens(); got != 3 {
		t.Errorf("tokens = %v, want capped at burst 3", got)
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.rate != 1 || rl.burst != 1 {
		t.Errorf("rate=%v burst=%v, want 1/1", rl.rate, rl.burst)
	}
}

func TestKeyedLimiter_IsolatesKeys(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}
	kl := NewKeyedLimiter(1, 1)
	kl.now = clock.now

	if !kl.Allow("10.0.0.1") {
		t.Fatal("first request rejected")
	}
	if kl.Allow("10.0.0.1") {
		t.Error("second request from same key must be rejected")
	}
	if !kl.Allow("10.0.0.2") {
		t.Error("other key must have its own bucket")
	}
	if kl.Len() != 2 {
		t.Errorf("len = %d, want 2", kl.Len())
	}

	clock.advance(2 * time.Second)
	if removed := kl.Sweep(); removed != 2 {
		t.Errorf("sweep removed %d, want 2", removed)
	}
	if kl.Len() != 0 {
		t.Errorf("len after sweep = %d", kl.Len())
	}
}
