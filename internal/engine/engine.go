// Package engine is the ledger runtime around the protocol core. It loads and
// stores records, serializes operations, and commits each operation's writes
// atomically.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/codec"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/token"
)

var (
	ErrWorkerNotFound  = errors.New("worker not found")
	ErrWorkerExists    = errors.New("worker already onboarded")
	ErrSelfEndorsement = errors.New("cannot endorse oneself")
)

// Config configures an Engine.
type Config struct {
	Params   protocol.Params          // Params are used only when the store has no protocol state yet
	Vault    protocol.Identity        // Vault receives staked collateral
	Verifier protocol.WitnessVerifier // Verifier checks witness attestations
	Clock    Clock                    // Clock defaults to a system clock with 1s slots
	Meter    metric.Meter             // Meter defaults to the global otel meter
}

// Engine runs protocol operations against a store.
// One mutex serializes every operation; the protocol state is shared by all of them.
type Engine struct {
	mu sync.Mutex

	db       *storage.Storage
	clock    Clock
	verifier protocol.WitnessVerifier
	vault    protocol.Identity
	metrics  *metrics

	state    *protocol.State // state is the last committed protocol state
	lastSlot uint64          // lastSlot is the slot of the last committed operation
}

// Open creates an engine over db, initializing the protocol state on first use.
func Open(db *storage.Storage, cfg Config) (*Engine, error) {
	m, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics:\n%w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = NewSystemClock(time.Now(), 0)
	}

	e := &Engine{
		db:       db,
		clock:    clock,
		verifier: cfg.Verifier,
		vault:    cfg.Vault,
		metrics:  m,
	}

	if err := e.load(cfg.Params); err != nil {
		return nil, err
	}

	return e, nil
}

// load reads the protocol state and slot, writing the genesis state if absent.
func (e *Engine) load(params protocol.Params) error {
	data, err := e.db.Get(stateKey)
	if err != nil {
		return fmt.Errorf("read protocol state:\n%w", err)
	}

	if data == nil {
		e.state = protocol.NewState(params)
		if err := e.db.Set(stateKey, codec.EncodeState(e.state)); err != nil {
			return fmt.Errorf("write genesis state:\n%w", err)
		}

		logger.Info("protocol initialized",
			"decayRateBPS", params.DecayRateBPS,
			"witnessThreshold", params.WitnessThreshold,
			"minStake", params.MinStakeToEmit,
		)
	} else if e.state, err = codec.DecodeState(data); err != nil {
		return err
	}

	slotData, err := e.db.Get(slotKey)
	if err != nil {
		return fmt.Errorf("read slot:\n%w", err)
	}

	if e.lastSlot, err = codec.DecodeUint64(slotData); err != nil {
		return fmt.Errorf("decode slot:\n%w", err)
	}

	return nil
}

// protocolFor binds a protocol handle to a working copy of the state and the
// transaction's token ledger.
func (e *Engine) protocolFor(st *protocol.State, tx *txn) *protocol.Protocol {
	return protocol.New(st,
		protocol.WithTokenLedger(token.NewLedger(tx)),
		protocol.WithVerifier(e.verifier),
		protocol.WithEligibility(tx),
		protocol.WithVault(e.vault),
	)
}

// finish commits tx together with the state and slot, then publishes the new state.
func (e *Engine) finish(tx *txn, st *protocol.State, slot uint64) error {
	if st != nil {
		tx.putState(st)
	}

	if slot > e.lastSlot {
		tx.put(slotKey, codec.EncodeUint64(slot))
	}

	if err := tx.commit(); err != nil {
		return err
	}

	if st != nil {
		e.state = st
	}

	if slot > e.lastSlot {
		e.lastSlot = slot
	}

	return nil
}

// State returns a copy of the committed protocol state.
func (e *Engine) State() protocol.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return *e.state
}

// LastSlot returns the slot of the last committed operation.
func (e *Engine) LastSlot() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastSlot
}

// Worker returns a copy of a stored worker.
func (e *Engine) Worker(id protocol.Identity) (*protocol.Worker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return newTxn(e.db).worker(id)
}

// SoulKey returns a copy of a stored soulkey.
func (e *Engine) SoulKey(id protocol.Identity) (*soulkey.SoulKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := newTxn(e.db).soulKey(id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkerNotFound, id.Short())
	}

	return s, nil
}

// Balance returns the liquid token balance of id.
func (e *Engine) Balance(id protocol.Identity) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return newTxn(e.db).Balance(id)
}

// WorkerIDs returns the identities of every onboarded worker in key order.
func (e *Engine) WorkerIDs() ([]protocol.Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []protocol.Identity

	err := e.db.IteratePrefix(workerPrefix, func(key, _ []byte) error {
		var id protocol.Identity
		if len(key) != len(workerPrefix)+len(id) {
			return fmt.Errorf("malformed worker key %x", key)
		}

		copy(id[:], key[len(workerPrefix):])
		ids = append(ids, id)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan workers:\n%w", err)
	}

	return ids, nil
}
