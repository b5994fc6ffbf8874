package protocol

// Event is a structured notification produced by a successful operation.
type Event interface {
	// Kind returns the event name.
	Kind() string
}

// WorkRecorded is emitted when a work claim is admitted.
type WorkRecorded struct {
	Worker          Identity
	WorkType        WorkType
	EffortWeight    uint64
	EmissionAmount  uint64
	Timestamp       int64
	Slot            uint64
	Fingerprint     Hash
	RequiresWitness bool // RequiresWitness is true above HighValueThreshold
}

// TokensDecayed is emitted when decay is charged to a pending balance.
type TokensDecayed struct {
	Worker           Identity
	DecayAmount      uint64
	RemainingBalance uint64
	EpochsInactive   uint64
}

// TokensMinted is emitted when pending tokens are minted under consensus.
type TokensMinted struct {
	Worker          Identity
	Amount          uint64
	WitnessCount    int
	ConsensusWeight uint64
	Sequence        uint64 // Sequence is the mint number the witnesses attested
}

// WorkerStaked is emitted when collateral is locked.
type WorkerStaked struct {
	Worker      Identity
	Amount      uint64
	TotalStaked uint64
}

// Kind implements Event.
func (WorkRecorded) Kind() string { return "WorkRecorded" }

// Kind implements Event.
func (TokensDecayed) Kind() string { return "TokensDecayed" }

// Kind implements Event.
func (TokensMinted) Kind() string { return "TokensMinted" }

// Kind implements Event.
func (WorkerStaked) Kind() string { return "WorkerStaked" }
