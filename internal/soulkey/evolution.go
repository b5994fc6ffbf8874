package soulkey

import (
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

// UpdateAfterWork folds an admitted work record into the reputation.
// diversity is the worker's work diversity score after the record was admitted.
func (s *SoulKey) UpdateAfterWork(rec protocol.WorkRecord, diversity uint64, now int64) {
	s.TotalWorkCompleted = satAdd(s.TotalWorkCompleted, 1)
	s.TokensEarnedLifetime = satAdd(s.TokensEarnedLifetime, rec.EmissionAmount)
	s.WorkDiversityScore = diversity

	if rec.WorkType == protocol.ReferClient {
		s.ReferralsMade = satAdd32(s.ReferralsMade, 1)
	}

	if rec.WorkType.Valid() {
		bit := uint16(1) << rec.WorkType
		if s.TypesPerformed&bit == 0 {
			s.TypesPerformed |= bit
			s.InnovationIndex = satAdd(s.InnovationIndex, 1)
		}
	}

	s.updateSpecialization(rec.WorkType)
	s.updateConsistency(now)
	s.evolve(now)
}

// ApplyDecayPenalty charges trust and consistency for decayed tokens.
func (s *SoulKey) ApplyDecayPenalty(amount uint64) {
	s.TokensBurnedByDecay = satAdd(s.TokensBurnedByDecay, amount)
	s.TrustScore = satSub(s.TrustScore, min(amount/1_000_000, 50))

	// Large decay is a hard inactivity signal
	if amount > 10_000_000 {
		s.ConsecutiveActiveDays = 0
		s.ConsistencyRating = satSub(s.ConsistencyRating, 100)
	}
}

// AddWitnessVote counts an attestation given by, or received by, the owner.
func (s *SoulKey) AddWitnessVote(giving bool) {
	if giving {
		s.WitnessVotesGiven = satAdd(s.WitnessVotesGiven, 1)
	} else {
		s.WitnessVotesReceived = satAdd(s.WitnessVotesReceived, 1)
	}

	s.TrustScore = satAdd(s.TrustScore, 10)
}

// AddPoolParticipation counts a multi-worker task.
func (s *SoulKey) AddPoolParticipation() {
	s.PoolParticipationCount = satAdd32(s.PoolParticipationCount, 1)
	s.CollaborationScore = satAdd(s.CollaborationScore, 50)
}

// AddEndorsement counts an endorsement from another participant.
func (s *SoulKey) AddEndorsement() {
	s.CommunityEndorsements = satAdd32(s.CommunityEndorsements, 1)
}

func (s *SoulKey) updateSpecialization(t protocol.WorkType) {
	s.DominantWorkType = t

	switch {
	case s.WorkDiversityScore > 800:
		s.SpecializationDepth = 1
	case s.WorkDiversityScore < 300 && s.SpecializationDepth < MaxSpecialization:
		s.SpecializationDepth++
	}
}

func (s *SoulKey) updateConsistency(now int64) {
	days := (now - s.LastUpdate) / daySeconds

	switch {
	case days <= 1:
		s.ConsecutiveActiveDays = satAdd32(s.ConsecutiveActiveDays, 1)
		s.ConsistencyRating = satAdd(s.ConsistencyRating, 10)
	case days > 7:
		s.ConsecutiveActiveDays = 0
		s.ConsistencyRating = satSub(s.ConsistencyRating, 50)
	}

	if now > s.LastUpdate {
		s.LastUpdate = now
	}
}

// evolve evaluates the evolution triggers in order. Level-up and the two latches
// count as evolution; badges alone do not.
func (s *SoulKey) evolve(now int64) {
	oldLevel := s.EvolutionLevel
	evolved := false
	kind := LevelUp

	target := s.TotalWorkCompleted/100 + 1
	if target > MaxLevel {
		target = MaxLevel
	}

	if uint8(target) > s.EvolutionLevel {
		s.EvolutionLevel = uint8(target)
		s.award(LevelMilestone, now, fmt.Sprintf("Reached level %d", target))
		evolved = true
	}

	if s.TrustScore >= 5000 {
		s.award(TrustWorthy, now, "High trust score achieved")
	}

	if s.ConsecutiveActiveDays >= 30 {
		s.award(ConsistentWorker, now, "30 consecutive active days")
	}

	if s.WitnessVotesGiven >= 100 && s.CommunityEndorsements >= 10 && s.Leadership.Unlock() {
		s.award(CommunityBuilder, now, "Leadership unlocked")
		if !evolved {
			kind = LeadershipUnlock
		}
		evolved = true
	}

	if s.ReferralsMade >= 20 && s.EvolutionLevel >= 10 && s.Mentor.Unlock() {
		s.award(Mentor, now, "Mentor status achieved")
		if !evolved {
			kind = MentorshipActivated
		}
		evolved = true
	}

	if !evolved {
		return
	}

	s.EvolutionHistory = append(s.EvolutionHistory, EvolutionEvent{
		Timestamp: now,
		Type:      kind,
		Trigger:   fmt.Sprintf("Work: %d, Trust: %d", s.TotalWorkCompleted, s.TrustScore),
		OldLevel:  oldLevel,
		NewLevel:  s.EvolutionLevel,
	})
	s.LastEvolvedAt = now
	s.AvatarHash = evolvedAvatar(s.Owner, s.EvolutionLevel, s.DominantWorkType, s.TrustScore)
}
