package protocol

import (
	"errors"
	"fmt"
)

// WitnessSignature is one witness' attestation of a mint request. It is supplied
// with the request and never stored.
type WitnessSignature struct {
	Witness   Identity // Witness is the attesting participant
	Weight    uint64   // Weight is the attestation weight claimed by the witness
	Signature []byte   // Signature is the raw signature over the MintClaim
	Timestamp int64    // Timestamp is when the witness signed
}

var errNoTokenLedger = errors.New("no token ledger configured")

// MintWithConsensus converts amount of w's pending balance into minted tokens once
// the witness set reaches the weight threshold and every signature verifies.
//
// Witnesses sign (amount, worker) together with the worker's MintCount, so a
// signature set is consumed by the mint it authorizes and cannot be replayed.
// A single invalid or repeated witness rejects the whole request. Above
// HighValueThreshold every witness must also pass the eligibility check.
// The pending balance is reduced with saturation.
func (p *Protocol) MintWithConsensus(w *Worker, amount uint64, sigs []WitnessSignature) (TokensMinted, error) {
	var total uint64
	for _, s := range sigs {
		var ok bool
		if total, ok = checkedAdd(total, s.Weight); !ok {
			return TokensMinted{}, ErrMathOverflow
		}
	}

	if total < p.state.WitnessThreshold {
		return TokensMinted{}, ErrInsufficientConsensus
	}

	claim := MintClaim{Worker: w.ID, Amount: amount, Sequence: w.MintCount}

	seen := make(map[Identity]struct{}, len(sigs))
	for _, s := range sigs {
		if _, dup := seen[s.Witness]; dup {
			return TokensMinted{}, fmt.Errorf("%w: duplicate witness %s", ErrInvalidWitnessSignature, s.Witness.Short())
		}
		seen[s.Witness] = struct{}{}

		if p.verifier == nil || !p.verifier.VerifyWitness(s, claim) {
			return TokensMinted{}, fmt.Errorf("%w: witness %s", ErrInvalidWitnessSignature, s.Witness.Short())
		}
	}

	if amount > HighValueThreshold {
		for _, s := range sigs {
			if p.eligible == nil || !p.eligible.CanWitnessHighValue(s.Witness) {
				return TokensMinted{}, fmt.Errorf("%w: witness %s", ErrWitnessNotEligible, s.Witness.Short())
			}
		}
	}

	minted, ok1 := checkedAdd(w.TotalTokensMinted, amount)
	sequence, ok2 := checkedAdd(w.MintCount, 1)
	if !ok1 || !ok2 {
		return TokensMinted{}, ErrMathOverflow
	}

	if p.tokens == nil {
		return TokensMinted{}, errNoTokenLedger
	}

	if err := p.tokens.Mint(w.ID, amount); err != nil {
		return TokensMinted{}, fmt.Errorf("mint tokens:\n%w", err)
	}

	w.PendingTokens = saturatingSub(w.PendingTokens, amount)
	w.TotalTokensMinted = minted
	w.MintCount = sequence
	w.rebaseDecay()

	return TokensMinted{
		Worker:          w.ID,
		Amount:          amount,
		WitnessCount:    len(sigs),
		ConsensusWeight: total,
		Sequence:        claim.Sequence,
	}, nil
}
