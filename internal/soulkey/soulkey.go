// Package soulkey maintains the long-lived reputation record of a worker.
//
// A SoulKey evolves from the same events as the worker's token accounting:
// every admitted work claim and every decay charge. Its level never decreases
// and its leadership and mentor latches are never cleared.
package soulkey

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

const (
	// MaxLevel is the highest evolution level.
	MaxLevel = 50

	// MaxSpecialization is the highest specialization depth.
	MaxSpecialization = 10

	initialTrust       = 1000
	initialConsistency = 1000
	initialFraudResist = 100

	daySeconds = 86400
)

// SoulKey is the reputation record of one worker.
type SoulKey struct {
	Owner         protocol.Identity
	CreatedAt     int64
	LastUpdate    int64 // LastUpdate is the time of the last work update, used for consistency
	LastEvolvedAt int64 // LastEvolvedAt is the time of the last evolution event

	EvolutionLevel  uint8
	TrustScore      uint64
	FraudResistance uint64

	TotalWorkCompleted     uint64
	TokensEarnedLifetime   uint64
	TokensBurnedByDecay    uint64
	PoolParticipationCount uint32
	WorkDiversityScore     uint64

	ConsecutiveActiveDays uint32
	ConsistencyRating     uint64
	CollaborationScore    uint64
	InnovationIndex       uint64
	TypesPerformed        uint16 // TypesPerformed is a bitmask of work types seen so far

	WitnessVotesReceived  uint64
	WitnessVotesGiven     uint64
	ReferralsMade         uint32
	CommunityEndorsements uint32

	DominantWorkType    protocol.WorkType
	SpecializationDepth uint8
	Leadership          Latch
	Mentor              Latch

	AvatarHash       protocol.Hash
	Badges           []Badge
	Earned           BadgeSet // Earned indexes Badges by kind
	EvolutionHistory []EvolutionEvent
}

// New creates the SoulKey of a freshly onboarded worker.
func New(owner protocol.Identity, now int64) *SoulKey {
	return &SoulKey{
		Owner:               owner,
		CreatedAt:           now,
		LastUpdate:          now,
		LastEvolvedAt:       now,
		EvolutionLevel:      1,
		TrustScore:          initialTrust,
		FraudResistance:     initialFraudResist,
		ConsistencyRating:   initialConsistency,
		DominantWorkType:    protocol.OnboardUser,
		SpecializationDepth: 1,
		AvatarHash:          initialAvatar(owner),
	}
}

// Clone returns a deep copy of the SoulKey.
func (s *SoulKey) Clone() *SoulKey {
	c := *s
	c.Badges = append([]Badge(nil), s.Badges...)
	c.EvolutionHistory = append([]EvolutionEvent(nil), s.EvolutionHistory...)

	return &c
}

// HasBadge reports whether a badge of the given kind was awarded.
func (s *SoulKey) HasBadge(kind BadgeKind) bool {
	return s.Earned.Has(kind)
}

// award adds a badge unless one of the same kind is already held.
func (s *SoulKey) award(kind BadgeKind, now int64, metadata string) bool {
	if !s.Earned.Add(kind) {
		return false
	}

	s.Badges = append(s.Badges, Badge{Kind: kind, EarnedAt: now, Metadata: metadata})

	return true
}

// EmissionMultiplier returns the reputation bonus in percent of base emission.
func (s *SoulKey) EmissionMultiplier() uint64 {
	m := uint64(100) + uint64(s.EvolutionLevel)*5 + (s.TrustScore/1000)*10
	if s.ConsecutiveActiveDays >= 7 {
		m += 25
	}

	return m
}

// CanWitnessHighValue reports whether the owner may attest mints above the
// high-value threshold.
func (s *SoulKey) CanWitnessHighValue() bool {
	return s.EvolutionLevel >= 5 && s.TrustScore >= 2000 && s.WitnessVotesGiven >= 10
}

// Summary returns a one-line reputation description.
func (s *SoulKey) Summary() string {
	return fmt.Sprintf("Level %d %s | Trust: %d | %d days active | %d work completed",
		s.EvolutionLevel,
		s.DominantWorkType.Title(),
		s.TrustScore,
		s.ConsecutiveActiveDays,
		s.TotalWorkCompleted,
	)
}

func initialAvatar(owner protocol.Identity) protocol.Hash {
	h := blake3.New()
	h.Write([]byte("c-protocol/avatar/v1"))
	h.Write(owner[:])

	var out protocol.Hash
	copy(out[:], h.Sum(nil))

	return out
}

// evolvedAvatar derives the avatar from identity, level, dominant type and trust.
func evolvedAvatar(owner protocol.Identity, level uint8, dominant protocol.WorkType, trust uint64) protocol.Hash {
	var buf [8]byte

	h := blake3.New()
	h.Write([]byte("c-protocol/avatar/v1"))
	h.Write(owner[:])
	h.Write([]byte{level, byte(dominant)})
	binary.LittleEndian.PutUint64(buf[:], trust)
	h.Write(buf[:])

	var out protocol.Hash
	copy(out[:], h.Sum(nil))

	return out
}

func satAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}

	return ^uint64(0)
}

func satAdd32(a, b uint32) uint32 {
	if s := a + b; s >= a {
		return s
	}

	return ^uint32(0)
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}

	return a - b
}
