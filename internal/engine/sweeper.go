package engine

import (
	"sync"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
)

// defaultSweepInterval is the default interval between decay sweeps.
const defaultSweepInterval = time.Hour

// SweepDecay applies decay to every onboarded worker. It returns the total
// amount charged and the number of workers that were charged. A worker whose
// decay fails is logged and skipped.
func (e *Engine) SweepDecay() (charged uint64, workers int, err error) {
	ids, err := e.WorkerIDs()
	if err != nil {
		return 0, 0, err
	}

	for _, id := range ids {
		ev, err := e.ApplyDecay(id)
		if err != nil {
			logger.Warn("decay sweep", "worker", id.Short(), "error", err)
			continue
		}

		if ev.DecayAmount > 0 {
			charged = satAdd(charged, ev.DecayAmount)
			workers++
		}
	}

	return charged, workers, nil
}

func satAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}

	return ^uint64(0)
}

// Sweeper runs SweepDecay periodically.
type Sweeper struct {
	engine   *Engine
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSweeper creates a sweeper. A non-positive interval selects the default.
func NewSweeper(e *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		engine:   e,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	start := time.Now()

	charged, workers, err := s.engine.SweepDecay()
	if err != nil {
		logger.Error("decay sweep", "error", err)
		return
	}

	logger.Debug("decay sweep done", "charged", charged, "workers", workers, logger.Timed(start))
}
