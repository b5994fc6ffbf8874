package engine

import (
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/codec"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
)

// txn buffers the writes of one operation over the store. Nothing reaches the
// store until commit, which applies every write in a single batch.
type txn struct {
	db      *storage.Storage
	overlay map[string][]byte
	order   []string

	workers map[protocol.Identity]*protocol.Worker
	souls   map[protocol.Identity]*soulkey.SoulKey
}

func newTxn(db *storage.Storage) *txn {
	return &txn{
		db:      db,
		overlay: make(map[string][]byte),
		workers: make(map[protocol.Identity]*protocol.Worker),
		souls:   make(map[protocol.Identity]*soulkey.SoulKey),
	}
}

func (t *txn) get(key []byte) ([]byte, error) {
	if v, ok := t.overlay[string(key)]; ok {
		return v, nil
	}

	return t.db.Get(key)
}

func (t *txn) put(key, value []byte) {
	k := string(key)
	if _, ok := t.overlay[k]; !ok {
		t.order = append(t.order, k)
	}

	t.overlay[k] = value
}

// worker loads a worker once per transaction; later calls return the same record.
func (t *txn) worker(id protocol.Identity) (*protocol.Worker, error) {
	if w, ok := t.workers[id]; ok {
		return w, nil
	}

	data, err := t.get(workerKey(id))
	if err != nil {
		return nil, fmt.Errorf("read worker:\n%w", err)
	}

	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkerNotFound, id.Short())
	}

	w, err := codec.DecodeWorker(data)
	if err != nil {
		return nil, err
	}

	t.workers[id] = w

	return w, nil
}

// soulKey loads a soulkey once per transaction. A missing record returns nil, nil.
func (t *txn) soulKey(id protocol.Identity) (*soulkey.SoulKey, error) {
	if s, ok := t.souls[id]; ok {
		return s, nil
	}

	data, err := t.get(soulKeyKey(id))
	if err != nil {
		return nil, fmt.Errorf("read soulkey:\n%w", err)
	}

	if data == nil {
		return nil, nil
	}

	s, err := codec.DecodeSoulKey(data)
	if err != nil {
		return nil, err
	}

	t.souls[id] = s

	return s, nil
}

func (t *txn) putWorker(w *protocol.Worker) {
	t.workers[w.ID] = w
	t.put(workerKey(w.ID), codec.EncodeWorker(w))
}

func (t *txn) putSoulKey(s *soulkey.SoulKey) {
	t.souls[s.Owner] = s
	t.put(soulKeyKey(s.Owner), codec.EncodeSoulKey(s))
}

func (t *txn) putState(s *protocol.State) {
	t.put(stateKey, codec.EncodeState(s))
}

// Balance implements token.BalanceStore.
func (t *txn) Balance(id protocol.Identity) (uint64, error) {
	data, err := t.get(balanceKey(id))
	if err != nil {
		return 0, err
	}

	return codec.DecodeUint64(data)
}

// SetBalance implements token.BalanceStore.
func (t *txn) SetBalance(id protocol.Identity, amount uint64) error {
	t.put(balanceKey(id), codec.EncodeUint64(amount))
	return nil
}

// CanWitnessHighValue implements protocol.WitnessEligibility from stored soulkeys.
func (t *txn) CanWitnessHighValue(id protocol.Identity) bool {
	s, err := t.soulKey(id)
	if err != nil || s == nil {
		return false
	}

	return s.CanWitnessHighValue()
}

// commit applies every buffered write atomically.
func (t *txn) commit() error {
	writes := make([]storage.Write, 0, len(t.order))
	for _, k := range t.order {
		writes = append(writes, storage.Write{Key: []byte(k), Value: t.overlay[k]})
	}

	if err := t.db.Apply(writes); err != nil {
		return fmt.Errorf("commit batch:\n%w", err)
	}

	return nil
}
