package protocol

import "errors"

// Errors returned by protocol operations. All are recoverable by the caller;
// an operation that returns one of them has not mutated any state.
var (
	ErrInsufficientStake       = errors.New("insufficient stake to emit tokens")
	ErrTaskCooldownActive      = errors.New("task cooldown period still active")
	ErrMathOverflow            = errors.New("mathematical overflow occurred")
	ErrInsufficientConsensus   = errors.New("insufficient witness consensus")
	ErrInvalidWitnessSignature = errors.New("invalid witness signature")
	ErrWitnessNotEligible      = errors.New("witness not eligible for high-value mint")
	ErrUnknownWorkType         = errors.New("unknown work type")
)
