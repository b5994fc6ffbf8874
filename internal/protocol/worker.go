package protocol

// RecentTaskCapacity is the size of the duplicate-detection window.
const RecentTaskCapacity = 10

// WorkRecord is an admitted work claim. Records are appended once and never changed.
type WorkRecord struct {
	WorkType       WorkType // WorkType is the category of work performed
	EffortWeight   uint64   // EffortWeight scales the base emission in percent
	Timestamp      int64    // Timestamp is the admission time in unix seconds
	EmissionAmount uint64   // EmissionAmount is the amount credited to the pending balance
	MetadataHash   Hash     // MetadataHash is the blake3 digest of the submitted metadata
	Slot           uint64   // Slot is the clock's progress counter at admission
}

// RecentTasks is a FIFO ring of the last RecentTaskCapacity task fingerprints.
type RecentTasks struct {
	buf  [RecentTaskCapacity]Hash
	head int // head is the index of the oldest entry
	n    int
}

// NewRecentTasks rebuilds a window from fingerprints ordered oldest first.
// Only the newest RecentTaskCapacity entries are kept.
func NewRecentTasks(items []Hash) RecentTasks {
	var r RecentTasks
	for _, h := range items {
		r.Push(h)
	}

	return r
}

// Push appends a fingerprint, evicting the oldest one when the window is full.
func (r *RecentTasks) Push(h Hash) {
	if r.n < RecentTaskCapacity {
		r.buf[(r.head+r.n)%RecentTaskCapacity] = h
		r.n++
		return
	}

	r.buf[r.head] = h
	r.head = (r.head + 1) % RecentTaskCapacity
}

// Contains reports whether the fingerprint is in the window.
func (r *RecentTasks) Contains(h Hash) bool {
	for i := 0; i < r.n; i++ {
		if r.buf[(r.head+i)%RecentTaskCapacity] == h {
			return true
		}
	}

	return false
}

// Len returns the number of fingerprints in the window.
func (r *RecentTasks) Len() int {
	return r.n
}

// Items returns the fingerprints oldest first.
func (r *RecentTasks) Items() []Hash {
	out := make([]Hash, r.n)
	for i := range out {
		out[i] = r.buf[(r.head+i)%RecentTaskCapacity]
	}

	return out
}

// Worker is the token-accounting record of one participant.
type Worker struct {
	ID Identity // ID is the participant's identity

	TotalWorkCompleted uint64 // TotalWorkCompleted counts admitted claims
	StakedAmount       uint64 // StakedAmount is the collateral locked in the vault
	StakeTimestamp     int64  // StakeTimestamp is the time of the last stake

	PendingTokens      uint64 // PendingTokens is earned but not yet minted
	TotalTokensMinted  uint64 // TotalTokensMinted sums consensus mints
	TotalTokensDecayed uint64 // TotalTokensDecayed sums decay charges
	MintCount          uint64 // MintCount numbers successful mints; witnesses sign the next one

	LastWorkTimestamp     int64 // LastWorkTimestamp is the time of the last admitted claim
	LastActivityTimestamp int64 // LastActivityTimestamp is the start of the current inactivity period
	LastDecayCheck        int64 // LastDecayCheck is the time of the last decay evaluation

	// DecayedEpochs counts the epochs of the current inactivity period already
	// charged, and DecayCharged the amount charged for them since the last
	// rebase. Both restart when the pending balance changes outside decay.
	DecayedEpochs uint64
	DecayCharged  uint64

	WorkDiversityScore uint64       // WorkDiversityScore is 100 per distinct work type performed
	WorkHistory        []WorkRecord // WorkHistory is append-only, ordered by admission
	RecentTasks        RecentTasks  // RecentTasks holds the last task fingerprints
}

// NewWorker creates an onboarded worker with every watermark set to now.
func NewWorker(id Identity, now int64) *Worker {
	return &Worker{
		ID:                    id,
		LastActivityTimestamp: now,
		LastDecayCheck:        now,
	}
}

// rebaseDecay restarts the decay schedule on the current pending balance,
// keeping the epochs already charged.
func (w *Worker) rebaseDecay() {
	w.DecayCharged = 0
}

// Clone returns a deep copy of the worker.
func (w *Worker) Clone() *Worker {
	c := *w
	c.WorkHistory = append([]WorkRecord(nil), w.WorkHistory...)

	return &c
}

// diversityWith returns 100 times the number of distinct work types in the
// history, counting next as well.
func (w *Worker) diversityWith(next WorkType) uint64 {
	var seen [NumWorkTypes]bool
	distinct := uint64(0)

	mark := func(t WorkType) {
		if t.Valid() && !seen[t] {
			seen[t] = true
			distinct++
		}
	}

	for _, rec := range w.WorkHistory {
		mark(rec.WorkType)
	}
	mark(next)

	return distinct * 100
}
