package protocol

const (
	// EpochSeconds is the length of one decay epoch (one day).
	EpochSeconds = 86400

	// bpsMax is the basis point denominator (100% = 10000).
	bpsMax = 10000

	// HighValueThreshold is the emission above which a claim needs witness consensus.
	HighValueThreshold = 1_000_000_000
)

// Params holds the protocol parameters fixed at genesis.
type Params struct {
	DecayRateBPS     uint16 // DecayRateBPS is the pending-balance decay per epoch in basis points
	WitnessThreshold uint64 // WitnessThreshold is the minimum summed attestation weight for a mint
	MinStakeToEmit   uint64 // MinStakeToEmit is the stake required before work is admitted
}

// DefaultParams returns the genesis parameters: 1% decay per epoch,
// 6000 consensus weight, 1,000,000 base units of stake.
func DefaultParams() Params {
	return Params{
		DecayRateBPS:     100,
		WitnessThreshold: 6000,
		MinStakeToEmit:   1_000_000,
	}
}

// State is the protocol-wide record. There is one per protocol instance and it is
// passed explicitly to every operation.
type State struct {
	Params

	TotalWorkRecorded  uint64 // TotalWorkRecorded counts admitted work claims
	TotalTokensEmitted uint64 // TotalTokensEmitted sums emissions credited to pending balances
	TotalTokensDecayed uint64 // TotalTokensDecayed sums decay charged by the decay engine
}

// Initialize creates the genesis protocol state with default parameters.
func Initialize() *State {
	return NewState(DefaultParams())
}

// NewState creates a protocol state with the given parameters and zero totals.
func NewState(p Params) *State {
	return &State{Params: p}
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	c := *s
	return &c
}
