package engine

import (
	"sync"
	"time"
)

// Clock supplies the current time in unix seconds and a logical progress counter.
type Clock interface {
	Now() int64
	Slot() uint64
}

// SystemClock reads wall time and derives the slot from a genesis instant.
type SystemClock struct {
	Genesis      time.Time
	SlotDuration time.Duration
}

// NewSystemClock creates a clock whose slot 0 starts at genesis.
func NewSystemClock(genesis time.Time, slotDuration time.Duration) *SystemClock {
	if slotDuration <= 0 {
		slotDuration = time.Second
	}

	return &SystemClock{Genesis: genesis, SlotDuration: slotDuration}
}

// Now returns the wall clock in unix seconds.
func (c *SystemClock) Now() int64 {
	return time.Now().Unix()
}

// Slot returns the number of whole slot durations elapsed since genesis.
func (c *SystemClock) Slot() uint64 {
	elapsed := time.Since(c.Genesis)
	if elapsed < 0 {
		return 0
	}

	return uint64(elapsed / c.SlotDuration)
}

// ManualClock is a clock moved explicitly, for tests and replays.
type ManualClock struct {
	mu   sync.Mutex
	now  int64
	slot uint64
}

// NewManualClock creates a clock at the given time and slot 0.
func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *ManualClock) Slot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.slot
}

// Advance moves time forward by seconds and the slot by one.
func (c *ManualClock) Advance(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now += seconds
	c.slot++
}
