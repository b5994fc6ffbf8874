package engine

import (
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/token"
)

// OnboardWorker creates the worker record and soulkey of actor.
func (e *Engine) OnboardWorker(actor protocol.Identity) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("onboard", err) }()

	tx := newTxn(e.db)

	data, err := tx.get(workerKey(actor))
	if err != nil {
		return fmt.Errorf("read worker:\n%w", err)
	}

	if data != nil {
		return fmt.Errorf("%w: %s", ErrWorkerExists, actor.Short())
	}

	now, slot := e.clock.Now(), e.clock.Slot()

	tx.putWorker(protocol.NewWorker(actor, now))
	tx.putSoulKey(soulkey.New(actor, now))

	if err := e.finish(tx, nil, slot); err != nil {
		return err
	}

	logger.Info("worker onboarded", "worker", actor.Short(), "slot", slot)

	return nil
}

// RecordWork admits a work claim of actor and credits its emission.
func (e *Engine) RecordWork(actor protocol.Identity, claim protocol.WorkClaim) (ev protocol.WorkRecorded, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("record_work", err) }()

	tx := newTxn(e.db)

	w, err := tx.worker(actor)
	if err != nil {
		return ev, err
	}

	sk, err := tx.soulKey(actor)
	if err != nil {
		return ev, err
	}

	st := e.state.Clone()
	now, slot := e.clock.Now(), e.clock.Slot()

	// A nil soulkey must reach the core as a nil interface
	var rep protocol.Reputation
	if sk != nil {
		rep = sk
	}

	ev, err = e.protocolFor(st, tx).RecordWork(w, rep, claim, now, slot)
	if err != nil {
		return ev, err
	}

	tx.putWorker(w)
	if sk != nil {
		tx.putSoulKey(sk)
	}

	if err := e.finish(tx, st, slot); err != nil {
		return protocol.WorkRecorded{}, err
	}

	add(e.metrics.emitted, ev.EmissionAmount)

	logger.Info("work recorded",
		"worker", actor.Short(),
		"type", claim.WorkType,
		"effort", claim.EffortWeight,
		"amount", ev.EmissionAmount,
		"requiresWitness", ev.RequiresWitness,
		"slot", slot,
	)

	return ev, nil
}

// ApplyDecay charges inactivity decay to actor's pending balance.
func (e *Engine) ApplyDecay(actor protocol.Identity) (ev protocol.TokensDecayed, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("apply_decay", err) }()

	return e.applyDecayLocked(actor)
}

func (e *Engine) applyDecayLocked(actor protocol.Identity) (protocol.TokensDecayed, error) {
	tx := newTxn(e.db)

	w, err := tx.worker(actor)
	if err != nil {
		return protocol.TokensDecayed{}, err
	}

	sk, err := tx.soulKey(actor)
	if err != nil {
		return protocol.TokensDecayed{}, err
	}

	var rep protocol.Reputation
	if sk != nil {
		rep = sk
	}

	st := e.state.Clone()
	now, slot := e.clock.Now(), e.clock.Slot()

	ev, err := e.protocolFor(st, tx).ApplyDecay(w, rep, now)
	if err != nil {
		return protocol.TokensDecayed{}, err
	}

	tx.putWorker(w)
	if sk != nil && ev.DecayAmount > 0 {
		tx.putSoulKey(sk)
	}

	if err := e.finish(tx, st, slot); err != nil {
		return protocol.TokensDecayed{}, err
	}

	if ev.EpochsInactive > 0 {
		add(e.metrics.decayed, ev.DecayAmount)

		logger.Info("decay applied",
			"worker", actor.Short(),
			"amount", ev.DecayAmount,
			"remaining", ev.RemainingBalance,
			"epochs", ev.EpochsInactive,
		)
	}

	return ev, nil
}

// MintWithConsensus mints amount of actor's pending balance once the witness
// set passes the consensus gate. Every witness with a soulkey is credited a vote
// given and the worker a vote received per witness.
func (e *Engine) MintWithConsensus(actor protocol.Identity, amount uint64, sigs []protocol.WitnessSignature) (ev protocol.TokensMinted, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("mint", err) }()

	tx := newTxn(e.db)

	w, err := tx.worker(actor)
	if err != nil {
		return ev, err
	}

	st := e.state.Clone()
	slot := e.clock.Slot()

	ev, err = e.protocolFor(st, tx).MintWithConsensus(w, amount, sigs)
	if err != nil {
		return ev, err
	}

	tx.putWorker(w)

	for _, s := range sigs {
		sk, err := tx.soulKey(s.Witness)
		if err != nil {
			return protocol.TokensMinted{}, err
		}

		if sk != nil {
			sk.AddWitnessVote(true)
			tx.putSoulKey(sk)
		}
	}

	sk, err := tx.soulKey(actor)
	if err != nil {
		return protocol.TokensMinted{}, err
	}

	if sk != nil {
		for range sigs {
			sk.AddWitnessVote(false)
		}
		tx.putSoulKey(sk)
	}

	if err := e.finish(tx, st, slot); err != nil {
		return protocol.TokensMinted{}, err
	}

	add(e.metrics.minted, ev.Amount)

	logger.Info("tokens minted",
		"worker", actor.Short(),
		"amount", ev.Amount,
		"witnesses", ev.WitnessCount,
		"weight", ev.ConsensusWeight,
	)

	return ev, nil
}

// StakeToEmit moves amount of actor's liquid balance into the vault.
func (e *Engine) StakeToEmit(actor protocol.Identity, amount uint64) (ev protocol.WorkerStaked, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("stake", err) }()

	tx := newTxn(e.db)

	w, err := tx.worker(actor)
	if err != nil {
		return ev, err
	}

	now, slot := e.clock.Now(), e.clock.Slot()

	ev, err = e.protocolFor(e.state, tx).StakeToEmit(w, amount, now)
	if err != nil {
		return ev, err
	}

	tx.putWorker(w)

	if err := e.finish(tx, nil, slot); err != nil {
		return protocol.WorkerStaked{}, err
	}

	logger.Info("stake locked", "worker", actor.Short(), "amount", amount, "total", ev.TotalStaked)

	return ev, nil
}

// Endorse records an endorsement of target by actor. Both must be onboarded.
func (e *Engine) Endorse(actor, target protocol.Identity) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("endorse", err) }()

	if actor == target {
		return ErrSelfEndorsement
	}

	tx := newTxn(e.db)

	if _, err := tx.worker(actor); err != nil {
		return err
	}

	sk, err := tx.soulKey(target)
	if err != nil {
		return err
	}

	if sk == nil {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, target.Short())
	}

	sk.AddEndorsement()
	tx.putSoulKey(sk)

	if err := e.finish(tx, nil, e.clock.Slot()); err != nil {
		return err
	}

	logger.Debug("endorsement recorded", "from", actor.Short(), "to", target.Short())

	return nil
}

// RecordPoolParticipation counts a multi-worker task for actor.
func (e *Engine) RecordPoolParticipation(actor protocol.Identity) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("pool", err) }()

	tx := newTxn(e.db)

	sk, err := tx.soulKey(actor)
	if err != nil {
		return err
	}

	if sk == nil {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, actor.Short())
	}

	sk.AddPoolParticipation()
	tx.putSoulKey(sk)

	return e.finish(tx, nil, e.clock.Slot())
}

// Faucet mints amount liquid tokens to id. It exists for development networks
// where no other token source is wired.
func (e *Engine) Faucet(id protocol.Identity, amount uint64) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.op("faucet", err) }()

	tx := newTxn(e.db)

	if err := token.NewLedger(tx).Mint(id, amount); err != nil {
		return fmt.Errorf("faucet mint:\n%w", err)
	}

	if err := e.finish(tx, nil, e.clock.Slot()); err != nil {
		return err
	}

	logger.Debug("faucet", "to", id.Short(), "amount", amount)

	return nil
}
