package engine

import (
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/snapshot"
)

// Snapshot exports the store as a compressed snapshot taken between operations.
// It implements snapshot.Source.
func (e *Engine) Snapshot() ([]byte, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := snapshot.Create(e.db, e.lastSlot, e.clock.Now())
	if err != nil {
		return nil, 0, err
	}

	compressed, err := snapshot.Compress(data)
	if err != nil {
		return nil, 0, fmt.Errorf("compress snapshot:\n%w", err)
	}

	return compressed, e.lastSlot, nil
}

// Restore replaces the store with a compressed snapshot and reloads the
// protocol state from it.
func (e *Engine) Restore(compressed []byte) (snapshot.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := snapshot.Decompress(compressed)
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	info, err := snapshot.Apply(e.db, data)
	if err != nil {
		return snapshot.Info{}, err
	}

	// A snapshot always carries p:state, so load never writes genesis here
	if err := e.load(e.state.Params); err != nil {
		return snapshot.Info{}, fmt.Errorf("reload state:\n%w", err)
	}

	logger.Info("snapshot restored", "slot", info.Slot, "entries", info.Entries)

	return info, nil
}
