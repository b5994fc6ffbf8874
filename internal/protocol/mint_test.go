package protocol

import (
	"errors"
	"testing"
)

func newMintProtocol() (*Protocol, *mockTokens) {
	tokens := newMockTokens()
	p := New(Initialize(),
		WithTokenLedger(tokens),
		WithVerifier(mockVerifier{}),
		WithEligibility(mockEligibility{testIdentity(10): true, testIdentity(11): true}),
	)

	return p, tokens
}

func TestMintWithConsensusScenario(t *testing.T) {
	p, tokens := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 2_000_000

	ev, err := p.MintWithConsensus(w, 500_000, []WitnessSignature{sig(10, 3000, true), sig(11, 3500, true)})
	if err != nil {
		t.Fatalf("MintWithConsensus: %v", err)
	}

	if ev.ConsensusWeight != 6500 || ev.WitnessCount != 2 || ev.Amount != 500_000 {
		t.Errorf("event = %+v", ev)
	}

	if w.PendingTokens != 1_500_000 || w.TotalTokensMinted != 500_000 {
		t.Errorf("pending = %d, minted = %d", w.PendingTokens, w.TotalTokensMinted)
	}

	if tokens.balances[w.ID] != 500_000 {
		t.Errorf("liquid balance = %d", tokens.balances[w.ID])
	}
}

func TestMintSignaturesAreSingleUse(t *testing.T) {
	tokens := newMockTokens()
	verifier := &sequenceVerifier{}
	p := New(Initialize(), WithTokenLedger(tokens), WithVerifier(verifier))

	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 500_000

	claim := MintClaim{Worker: w.ID, Amount: 500_000, Sequence: 0}
	sigs := []WitnessSignature{
		{Witness: testIdentity(10), Weight: 3000, Signature: claimSignature(claim)},
		{Witness: testIdentity(11), Weight: 3500, Signature: claimSignature(claim)},
	}

	ev, err := p.MintWithConsensus(w, 500_000, sigs)
	if err != nil {
		t.Fatalf("first mint: %v", err)
	}

	if ev.Sequence != 0 || w.MintCount != 1 {
		t.Errorf("sequence = %d, mint count = %d", ev.Sequence, w.MintCount)
	}

	if verifier.claims[0] != claim {
		t.Errorf("verified claim = %+v, want %+v", verifier.claims[0], claim)
	}

	for i := 0; i < 4; i++ {
		if _, err := p.MintWithConsensus(w, 500_000, sigs); !errors.Is(err, ErrInvalidWitnessSignature) {
			t.Fatalf("resubmission %d: err = %v, want ErrInvalidWitnessSignature", i, err)
		}
	}

	if tokens.minted != 500_000 || w.TotalTokensMinted != 500_000 || w.MintCount != 1 {
		t.Errorf("minted = %d, total = %d, count = %d", tokens.minted, w.TotalTokensMinted, w.MintCount)
	}

	// Signatures over the next sequence are accepted
	next := MintClaim{Worker: w.ID, Amount: 500_000, Sequence: 1}
	for i := range sigs {
		sigs[i].Signature = claimSignature(next)
	}

	if _, err := p.MintWithConsensus(w, 500_000, sigs); err != nil {
		t.Errorf("next sequence rejected: %v", err)
	}
}

func TestMintInsufficientConsensus(t *testing.T) {
	p, tokens := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 2_000_000

	_, err := p.MintWithConsensus(w, 500_000, []WitnessSignature{sig(10, 3000, true), sig(11, 2999, true)})
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("err = %v, want ErrInsufficientConsensus", err)
	}

	if w.PendingTokens != 2_000_000 || tokens.minted != 0 {
		t.Error("state changed on rejected mint")
	}
}

func TestMintNoWitnesses(t *testing.T) {
	p, _ := newMintProtocol()

	_, err := p.MintWithConsensus(NewWorker(testIdentity(1), 0), 1, nil)
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Errorf("err = %v, want ErrInsufficientConsensus", err)
	}
}

func TestMintSingleInvalidSignatureRejects(t *testing.T) {
	p, tokens := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 2_000_000

	sigs := []WitnessSignature{sig(10, 6000, true), sig(11, 100, false)}

	_, err := p.MintWithConsensus(w, 500_000, sigs)
	if !errors.Is(err, ErrInvalidWitnessSignature) {
		t.Fatalf("err = %v, want ErrInvalidWitnessSignature", err)
	}

	if w.PendingTokens != 2_000_000 || tokens.minted != 0 {
		t.Error("state changed on rejected mint")
	}
}

func TestMintDuplicateWitnessRejects(t *testing.T) {
	p, _ := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)

	_, err := p.MintWithConsensus(w, 100, []WitnessSignature{sig(10, 3000, true), sig(10, 3000, true)})
	if !errors.Is(err, ErrInvalidWitnessSignature) {
		t.Errorf("err = %v, want ErrInvalidWitnessSignature", err)
	}
}

func TestMintWithoutVerifierRejects(t *testing.T) {
	p := New(Initialize(), WithTokenLedger(newMockTokens()))

	_, err := p.MintWithConsensus(NewWorker(testIdentity(1), 0), 100, []WitnessSignature{sig(10, 6000, true)})
	if !errors.Is(err, ErrInvalidWitnessSignature) {
		t.Errorf("err = %v, want ErrInvalidWitnessSignature", err)
	}
}

func TestMintHighValueEligibility(t *testing.T) {
	p, _ := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 5_000_000_000

	_, err := p.MintWithConsensus(w, 2_000_000_000, []WitnessSignature{sig(10, 3000, true), sig(12, 3000, true)})
	if !errors.Is(err, ErrWitnessNotEligible) {
		t.Fatalf("err = %v, want ErrWitnessNotEligible", err)
	}

	if _, err := p.MintWithConsensus(w, 2_000_000_000, []WitnessSignature{sig(10, 3000, true), sig(11, 3000, true)}); err != nil {
		t.Fatalf("eligible witnesses rejected: %v", err)
	}

	// At the threshold itself no eligibility is required
	if _, err := p.MintWithConsensus(w, HighValueThreshold, []WitnessSignature{sig(12, 6000, true)}); err != nil {
		t.Errorf("threshold amount rejected: %v", err)
	}
}

func TestMintSaturatesPending(t *testing.T) {
	p, _ := newMintProtocol()
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 100

	if _, err := p.MintWithConsensus(w, 500, []WitnessSignature{sig(10, 6000, true)}); err != nil {
		t.Fatal(err)
	}

	if w.PendingTokens != 0 || w.TotalTokensMinted != 500 {
		t.Errorf("pending = %d, minted = %d", w.PendingTokens, w.TotalTokensMinted)
	}
}

func TestMintTokenFailureLeavesWorkerUnchanged(t *testing.T) {
	p, tokens := newMintProtocol()
	tokens.fail = errors.New("ledger offline")
	w := NewWorker(testIdentity(1), 0)
	w.PendingTokens = 1_000

	_, err := p.MintWithConsensus(w, 500, []WitnessSignature{sig(10, 6000, true)})
	if err == nil || !errors.Is(err, tokens.fail) {
		t.Fatalf("err = %v, want wrapped ledger error", err)
	}

	if w.PendingTokens != 1_000 || w.TotalTokensMinted != 0 || w.MintCount != 0 {
		t.Error("worker changed after failed mint")
	}
}

func TestMintWeightOverflow(t *testing.T) {
	p, _ := newMintProtocol()

	_, err := p.MintWithConsensus(NewWorker(testIdentity(1), 0), 1, []WitnessSignature{sig(10, ^uint64(0), true), sig(11, 1, true)})
	if !errors.Is(err, ErrMathOverflow) {
		t.Errorf("err = %v, want ErrMathOverflow", err)
	}
}

func TestStakeToEmit(t *testing.T) {
	tokens := newMockTokens()
	vault := testIdentity(0xFF)
	p := New(Initialize(), WithTokenLedger(tokens), WithVault(vault))

	w := NewWorker(testIdentity(1), 0)
	tokens.balances[w.ID] = 2_000_000

	ev, err := p.StakeToEmit(w, 1_500_000, 42)
	if err != nil {
		t.Fatal(err)
	}

	if ev.TotalStaked != 1_500_000 || w.StakedAmount != 1_500_000 || w.StakeTimestamp != 42 {
		t.Errorf("event = %+v, worker stake = %d", ev, w.StakedAmount)
	}

	if tokens.balances[w.ID] != 500_000 || tokens.balances[vault] != 1_500_000 {
		t.Errorf("balances = %v", tokens.balances)
	}

	// Stake now admits work
	if _, err := p.RecordWork(w, nil, WorkClaim{WorkType: WriteCode, EffortWeight: 100}, 50, 0); err != nil {
		t.Errorf("staked worker rejected: %v", err)
	}
}

func TestStakeToEmitInsufficientBalance(t *testing.T) {
	tokens := newMockTokens()
	p := New(Initialize(), WithTokenLedger(tokens))
	w := NewWorker(testIdentity(1), 0)

	if _, err := p.StakeToEmit(w, 10, 42); err == nil {
		t.Fatal("expected transfer failure")
	}

	if w.StakedAmount != 0 || w.StakeTimestamp != 0 {
		t.Error("stake recorded after failed transfer")
	}
}

func TestStakeToEmitOverflow(t *testing.T) {
	p := New(Initialize(), WithTokenLedger(newMockTokens()))
	w := NewWorker(testIdentity(1), 0)
	w.StakedAmount = ^uint64(0)

	if _, err := p.StakeToEmit(w, 1, 0); !errors.Is(err, ErrMathOverflow) {
		t.Errorf("err = %v, want ErrMathOverflow", err)
	}
}
