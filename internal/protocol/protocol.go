package protocol

// TokenLedger is the fungible-token sub-ledger that holds liquid balances.
type TokenLedger interface {
	// Mint creates amount new tokens in to's balance.
	Mint(to Identity, amount uint64) error
	// Transfer moves amount from one balance to another.
	Transfer(from, to Identity, amount uint64) error
}

// MintClaim is what a witness attests: Worker may mint Amount as its mint
// number Sequence. Binding the sequence makes every attestation single-use.
type MintClaim struct {
	Worker   Identity
	Amount   uint64
	Sequence uint64 // Sequence is the worker's MintCount when the claim was signed
}

// WitnessVerifier checks a witness attestation over a mint claim.
type WitnessVerifier interface {
	VerifyWitness(sig WitnessSignature, claim MintClaim) bool
}

// WitnessEligibility answers whether a witness may attest high-value mints.
type WitnessEligibility interface {
	CanWitnessHighValue(witness Identity) bool
}

// Reputation receives the work and decay events of one worker.
type Reputation interface {
	UpdateAfterWork(rec WorkRecord, diversity uint64, now int64)
	ApplyDecayPenalty(amount uint64)
}

// Protocol runs the accounting operations against one explicit protocol state.
// It holds no worker data; callers pass the worker records they have loaded and
// are responsible for serializing operations on the same worker.
type Protocol struct {
	state    *State
	tokens   TokenLedger
	verifier WitnessVerifier
	eligible WitnessEligibility
	vault    Identity
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithTokenLedger sets the sub-ledger used by mint and stake.
func WithTokenLedger(t TokenLedger) Option {
	return func(p *Protocol) { p.tokens = t }
}

// WithVerifier sets the witness signature verifier.
func WithVerifier(v WitnessVerifier) Option {
	return func(p *Protocol) { p.verifier = v }
}

// WithEligibility sets the high-value witness eligibility check.
func WithEligibility(e WitnessEligibility) Option {
	return func(p *Protocol) { p.eligible = e }
}

// WithVault sets the identity that receives staked collateral.
func WithVault(id Identity) Option {
	return func(p *Protocol) { p.vault = id }
}

// New creates a Protocol bound to state.
func New(state *State, opts ...Option) *Protocol {
	p := &Protocol{state: state}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// State returns the protocol state the instance operates on.
func (p *Protocol) State() *State {
	return p.state
}
