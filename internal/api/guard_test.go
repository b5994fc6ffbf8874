package api

import (
	"testing"
	"time"
)

func TestReplayGuardExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := newReplayGuard(time.Minute, func() time.Time { return now })
	defer g.Close()

	sig := []byte("signature")

	if !g.Check(sig) {
		t.Fatal("first check should pass")
	}

	if g.Check(sig) {
		t.Fatal("duplicate inside ttl should fail")
	}

	if !g.Check([]byte("other")) {
		t.Fatal("distinct signature should pass")
	}

	now = now.Add(time.Minute)
	g.cleanup()

	if g.Len() != 0 {
		t.Errorf("expired entries kept: %d", g.Len())
	}

	if !g.Check(sig) {
		t.Error("signature should pass after expiry")
	}
}

func TestKeyedLimiter(t *testing.T) {
	l := newKeyedLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst should pass")
	}

	if l.Allow("a", now) {
		t.Fatal("request beyond burst should fail")
	}

	if !l.Allow("b", now) {
		t.Error("keys should not share a bucket")
	}

	if !l.Allow("a", now.Add(time.Second)) {
		t.Error("bucket should refill after one interval")
	}
}

func TestKeyedLimiterDisabled(t *testing.T) {
	l := newKeyedLimiter(0, 1)
	now := time.Now()

	for i := 0; i < 100; i++ {
		if !l.Allow("a", now) {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
}

func TestKeyedLimiterPrune(t *testing.T) {
	l := newKeyedLimiter(1, 1)
	start := time.Unix(1_700_000_000, 0)

	l.Allow("old", start)
	l.prune(start.Add(limiterIdle + time.Second))

	if len(l.entries) != 0 {
		t.Errorf("idle limiter kept: %d entries", len(l.entries))
	}
}
