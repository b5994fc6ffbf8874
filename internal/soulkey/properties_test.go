package soulkey

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

const (
	opWork uint8 = iota
	opReferral
	opDecay
	opVoteGiven
	opVoteReceived
	opEndorse
	opPool
	numOps
)

// replay applies one event per op to s and calls check after each one.
// amounts feeds the decay penalties, cycling when shorter than ops.
func replay(s *SoulKey, ops []uint8, amounts []uint64, check func(before, after *SoulKey) bool) bool {
	now := int64(0)

	for i, op := range ops {
		before := s.Clone()
		now += int64(i%3) * 12 * 3600

		switch op {
		case opWork:
			wt := protocol.WorkType(i % protocol.NumWorkTypes)
			s.UpdateAfterWork(work(wt, 1_000_000), uint64(i%1000), now)
		case opReferral:
			s.UpdateAfterWork(work(protocol.ReferClient, 2_000_000), 100, now)
		case opDecay:
			var amount uint64
			if len(amounts) > 0 {
				amount = amounts[i%len(amounts)]
			}
			s.ApplyDecayPenalty(amount)
		case opVoteGiven:
			s.AddWitnessVote(true)
		case opVoteReceived:
			s.AddWitnessVote(false)
		case opEndorse:
			s.AddEndorsement()
		case opPool:
			s.AddPoolParticipation()
		}

		if !check(before, s) {
			return false
		}
	}

	return true
}

// TestSoulKeyNeverRegresses drives random event sequences and checks the
// one-way parts of a SoulKey after every event.
func TestSoulKeyNeverRegresses(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ops := gen.SliceOfN(1200, gen.UInt8Range(0, numOps-1))
	amounts := gen.SliceOfN(16, gen.UInt64Range(0, 60_000_000))

	properties.Property("level and latches never regress", prop.ForAll(
		func(ops []uint8, amounts []uint64) bool {
			return replay(New(testOwner(), 0), ops, amounts, func(before, after *SoulKey) bool {
				if after.EvolutionLevel < before.EvolutionLevel || after.EvolutionLevel > MaxLevel {
					return false
				}

				if before.Leadership.IsSet() && !after.Leadership.IsSet() {
					return false
				}

				return !before.Mentor.IsSet() || after.Mentor.IsSet()
			})
		},
		ops, amounts,
	))

	properties.Property("history only grows", prop.ForAll(
		func(ops []uint8, amounts []uint64) bool {
			return replay(New(testOwner(), 0), ops, amounts, func(before, after *SoulKey) bool {
				if len(after.EvolutionHistory) < len(before.EvolutionHistory) {
					return false
				}

				for i, ev := range before.EvolutionHistory {
					if after.EvolutionHistory[i] != ev || ev.NewLevel < ev.OldLevel {
						return false
					}
				}

				return true
			})
		},
		ops, amounts,
	))

	properties.Property("badge index matches badges", prop.ForAll(
		func(ops []uint8, amounts []uint64) bool {
			return replay(New(testOwner(), 0), ops, amounts, func(_, after *SoulKey) bool {
				var seen BadgeSet
				for _, b := range after.Badges {
					if !seen.Add(b.Kind) {
						return false
					}
				}

				return seen == after.Earned
			})
		},
		ops, amounts,
	))

	properties.TestingRun(t)
}
