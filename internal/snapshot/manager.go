package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
)

const (
	// defaultInterval is the default interval between snapshots.
	defaultInterval = 10 * time.Minute

	// latestFile is the name of the snapshot file written to the output directory.
	latestFile = "latest.snap.zst"
)

// Source produces compressed snapshots of a consistent store state.
type Source interface {
	Snapshot() (data []byte, slot uint64, err error)
}

// Manager creates periodic snapshots and keeps the latest one in memory.
// With a directory set it also writes each snapshot to disk.
type Manager struct {
	source   Source
	interval time.Duration
	dir      string

	mu      sync.RWMutex
	current []byte // compressed snapshot data
	slot    uint64 // slot of current snapshot

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a snapshot manager. A non-positive interval selects the
// default; an empty dir keeps snapshots in memory only.
func NewManager(source Source, interval time.Duration, dir string) *Manager {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Manager{
		source:   source,
		interval: interval,
		dir:      dir,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic snapshot loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop stops the loop and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Latest returns the most recent compressed snapshot and its slot.
// Returns nil if no snapshot has been created yet.
func (m *Manager) Latest() (data []byte, slot uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current, m.slot
}

func (m *Manager) loop() {
	defer m.wg.Done()

	m.Take()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Take()
		}
	}
}

// Take creates a snapshot now and replaces the latest one.
func (m *Manager) Take() {
	data, slot, err := m.source.Snapshot()
	if err != nil {
		logger.Error("create snapshot", "error", err)
		return
	}

	m.mu.Lock()
	m.current = data
	m.slot = slot
	m.mu.Unlock()

	if m.dir != "" {
		if err := writeFile(m.dir, data); err != nil {
			logger.Error("write snapshot", "error", err)
			return
		}
	}

	logger.Debug("snapshot created", "slot", slot, "compressed", len(data))
}

// writeFile replaces dir/latest.snap.zst through a temporary file.
func writeFile(dir string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir:\n%w", err)
	}

	tmp, err := os.CreateTemp(dir, latestFile+".*")
	if err != nil {
		return fmt.Errorf("create temp file:\n%w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file:\n%w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file:\n%w", err)
	}

	return os.Rename(tmp.Name(), filepath.Join(dir, latestFile))
}

// ReadFile loads the latest snapshot written to dir.
func ReadFile(dir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, latestFile))
}
