package soulkey

// BadgeKind identifies an achievement. A SoulKey holds at most one badge per kind.
type BadgeKind uint8

const (
	EarlyAdopter BadgeKind = iota
	ConsistentWorker
	CodeMaster
	CommunityBuilder
	DealCloser
	Mentor
	Innovator
	TrustWorthy
	LiquidityProvider
	WitnessReliable
	LevelMilestone
)

var badgeNames = [...]string{
	EarlyAdopter:      "EarlyAdopter",
	ConsistentWorker:  "ConsistentWorker",
	CodeMaster:        "CodeMaster",
	CommunityBuilder:  "CommunityBuilder",
	DealCloser:        "DealCloser",
	Mentor:            "Mentor",
	Innovator:         "Innovator",
	TrustWorthy:       "TrustWorthy",
	LiquidityProvider: "LiquidityProvider",
	WitnessReliable:   "WitnessReliable",
	LevelMilestone:    "LevelMilestone",
}

func (k BadgeKind) String() string {
	if int(k) >= len(badgeNames) {
		return "Unknown"
	}

	return badgeNames[k]
}

// BadgeSet is a bitmask of badge kinds, one bit per kind.
type BadgeSet uint16

// Has reports whether kind is in the set.
func (b BadgeSet) Has(kind BadgeKind) bool {
	return kind < 16 && b&(1<<kind) != 0
}

// Add inserts kind and reports whether it was absent.
func (b *BadgeSet) Add(kind BadgeKind) bool {
	if kind >= 16 || b.Has(kind) {
		return false
	}

	*b |= 1 << kind

	return true
}

// Badge is an awarded achievement.
type Badge struct {
	Kind     BadgeKind
	EarnedAt int64
	Metadata string
}

// Latch is a one-way flag: once Unlocked it never returns to Locked.
type Latch uint8

const (
	Locked Latch = iota
	Unlocked
)

// Unlock moves the latch to Unlocked and reports whether it changed.
func (l *Latch) Unlock() bool {
	if *l == Unlocked {
		return false
	}

	*l = Unlocked

	return true
}

// IsSet reports whether the latch has been unlocked.
func (l Latch) IsSet() bool {
	return l == Unlocked
}

// EvolutionType classifies an evolution event.
type EvolutionType uint8

const (
	LevelUp EvolutionType = iota
	SpecializationShift
	TrustIncrease
	LeadershipUnlock
	MentorshipActivated
	FraudPenalty
	ConsistencyBonus
)

var evolutionNames = [...]string{
	LevelUp:             "LevelUp",
	SpecializationShift: "SpecializationShift",
	TrustIncrease:       "TrustIncrease",
	LeadershipUnlock:    "LeadershipUnlock",
	MentorshipActivated: "MentorshipActivated",
	FraudPenalty:        "FraudPenalty",
	ConsistencyBonus:    "ConsistencyBonus",
}

func (t EvolutionType) String() string {
	if int(t) >= len(evolutionNames) {
		return "Unknown"
	}

	return evolutionNames[t]
}

// EvolutionEvent is an entry of the append-only evolution history.
type EvolutionEvent struct {
	Timestamp int64
	Type      EvolutionType
	Trigger   string
	OldLevel  uint8
	NewLevel  uint8
}
