package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// mockTokens is an in-memory TokenLedger for tests.
type mockTokens struct {
	balances map[Identity]uint64
	minted   uint64
	fail     error
}

func newMockTokens() *mockTokens {
	return &mockTokens{balances: make(map[Identity]uint64)}
}

func (m *mockTokens) Mint(to Identity, amount uint64) error {
	if m.fail != nil {
		return m.fail
	}

	m.balances[to] += amount
	m.minted += amount

	return nil
}

func (m *mockTokens) Transfer(from, to Identity, amount uint64) error {
	if m.fail != nil {
		return m.fail
	}

	if m.balances[from] < amount {
		return errors.New("insufficient balance")
	}

	m.balances[from] -= amount
	m.balances[to] += amount

	return nil
}

// mockVerifier accepts signatures equal to the byte string "valid".
type mockVerifier struct{}

func (mockVerifier) VerifyWitness(sig WitnessSignature, claim MintClaim) bool {
	return bytes.Equal(sig.Signature, []byte("valid"))
}

// sequenceVerifier accepts a signature only for the claim it was made for.
type sequenceVerifier struct {
	claims []MintClaim
}

func (v *sequenceVerifier) VerifyWitness(sig WitnessSignature, claim MintClaim) bool {
	v.claims = append(v.claims, claim)

	return bytes.Equal(sig.Signature, claimSignature(claim))
}

// claimSignature is the stand-in signature sequenceVerifier accepts for claim.
func claimSignature(claim MintClaim) []byte {
	return []byte(fmt.Sprintf("%x/%d/%d", claim.Worker[:4], claim.Amount, claim.Sequence))
}

// mockEligibility allows the listed witnesses.
type mockEligibility map[Identity]bool

func (m mockEligibility) CanWitnessHighValue(id Identity) bool {
	return m[id]
}

// mockReputation records the notifications it receives.
type mockReputation struct {
	works     []WorkRecord
	diverse   []uint64
	penalties []uint64
}

func (m *mockReputation) UpdateAfterWork(rec WorkRecord, diversity uint64, now int64) {
	m.works = append(m.works, rec)
	m.diverse = append(m.diverse, diversity)
}

func (m *mockReputation) ApplyDecayPenalty(amount uint64) {
	m.penalties = append(m.penalties, amount)
}

// testIdentity returns an identity whose first byte is b.
func testIdentity(b byte) Identity {
	return Identity{b}
}

// stakedWorker returns a worker with the default minimum stake in place.
func stakedWorker(b byte) *Worker {
	w := NewWorker(testIdentity(b), 0)
	w.StakedAmount = DefaultParams().MinStakeToEmit

	return w
}

// sig builds a witness signature from witness byte, weight and validity.
func sig(b byte, weight uint64, valid bool) WitnessSignature {
	raw := []byte("forged")
	if valid {
		raw = []byte("valid")
	}

	return WitnessSignature{Witness: testIdentity(b), Weight: weight, Signature: raw}
}
