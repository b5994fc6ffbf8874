package api

import (
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// replayCleanupInterval is the interval between expiry sweeps of the replay guard.
const replayCleanupInterval = 10 * time.Second

// replayGuard remembers request signatures for a TTL so a signed request is
// executed at most once inside its acceptance window.
type replayGuard struct {
	seen map[[32]byte]int64 // seen maps signature hash to first-seen time (unix nano)
	mu   sync.Mutex         // mu protects seen
	ttl  int64              // ttl in nanoseconds
	now  func() time.Time   // now is the guard's time source
	stop chan struct{}      // stop signals the cleanup goroutine to stop
	wg   sync.WaitGroup     // wg waits for the cleanup goroutine
}

// newReplayGuard creates a guard and starts its cleanup goroutine.
func newReplayGuard(ttl time.Duration, now func() time.Time) *replayGuard {
	g := &replayGuard{
		seen: make(map[[32]byte]int64),
		ttl:  int64(ttl),
		now:  now,
		stop: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop()

	return g
}

// Check returns true the first time sig is seen within the TTL and records it.
func (g *replayGuard) Check(sig []byte) bool {
	hash := blake3.Sum256(sig)
	now := g.now().UnixNano()

	g.mu.Lock()
	defer g.mu.Unlock()

	if ts, ok := g.seen[hash]; ok && now-ts < g.ttl {
		return false
	}

	g.seen[hash] = now

	return true
}

// Len returns the number of remembered signatures.
func (g *replayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.seen)
}

// Close stops the cleanup goroutine.
func (g *replayGuard) Close() {
	close(g.stop)
	g.wg.Wait()
}

func (g *replayGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(replayCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanup()
		case <-g.stop:
			return
		}
	}
}

// cleanup removes expired entries.
func (g *replayGuard) cleanup() {
	now := g.now().UnixNano()

	g.mu.Lock()
	defer g.mu.Unlock()

	for hash, ts := range g.seen {
		if now-ts >= g.ttl {
			delete(g.seen, hash)
		}
	}
}
