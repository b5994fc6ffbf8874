package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
)

const (
	stateSize      = 2 + 8*5
	workRecordSize = 1 + 8 + 8 + 8 + 32 + 8
	badgeMinSize   = 1 + 8 + 4
	eventMinSize   = 8 + 1 + 4 + 1 + 1
)

// EncodeState encodes the protocol state.
// Format: u16 decay_rate_bps, u64 witness_threshold, u64 min_stake, u64 work_recorded,
// u64 tokens_emitted, u64 tokens_decayed
func EncodeState(s *protocol.State) []byte {
	w := newWriter(stateSize)
	w.u16(s.DecayRateBPS)
	w.u64(s.WitnessThreshold)
	w.u64(s.MinStakeToEmit)
	w.u64(s.TotalWorkRecorded)
	w.u64(s.TotalTokensEmitted)
	w.u64(s.TotalTokensDecayed)

	return w.buf
}

// DecodeState decodes a protocol state record.
func DecodeState(data []byte) (*protocol.State, error) {
	r := newReader(data)

	s := &protocol.State{}
	s.DecayRateBPS = r.u16()
	s.WitnessThreshold = r.u64()
	s.MinStakeToEmit = r.u64()
	s.TotalWorkRecorded = r.u64()
	s.TotalTokensEmitted = r.u64()
	s.TotalTokensDecayed = r.u64()

	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("decode state:\n%w", err)
	}

	return s, nil
}

// EncodeWorker encodes a worker record, history and recent-task window included.
func EncodeWorker(wk *protocol.Worker) []byte {
	recent := wk.RecentTasks.Items()

	w := newWriter(32 + 8*13 + 4 + len(wk.WorkHistory)*workRecordSize + 4 + len(recent)*32)
	w.fixed(wk.ID[:])
	w.u64(wk.TotalWorkCompleted)
	w.u64(wk.StakedAmount)
	w.i64(wk.StakeTimestamp)
	w.u64(wk.PendingTokens)
	w.u64(wk.TotalTokensMinted)
	w.u64(wk.TotalTokensDecayed)
	w.u64(wk.MintCount)
	w.i64(wk.LastWorkTimestamp)
	w.i64(wk.LastActivityTimestamp)
	w.i64(wk.LastDecayCheck)
	w.u64(wk.DecayedEpochs)
	w.u64(wk.DecayCharged)
	w.u64(wk.WorkDiversityScore)

	w.u32(uint32(len(wk.WorkHistory)))
	for _, rec := range wk.WorkHistory {
		w.u8(uint8(rec.WorkType))
		w.u64(rec.EffortWeight)
		w.i64(rec.Timestamp)
		w.u64(rec.EmissionAmount)
		w.fixed(rec.MetadataHash[:])
		w.u64(rec.Slot)
	}

	w.u32(uint32(len(recent)))
	for _, h := range recent {
		w.fixed(h[:])
	}

	return w.buf
}

// DecodeWorker decodes a worker record.
func DecodeWorker(data []byte) (*protocol.Worker, error) {
	r := newReader(data)

	wk := &protocol.Worker{}
	r.fixed(wk.ID[:])
	wk.TotalWorkCompleted = r.u64()
	wk.StakedAmount = r.u64()
	wk.StakeTimestamp = r.i64()
	wk.PendingTokens = r.u64()
	wk.TotalTokensMinted = r.u64()
	wk.TotalTokensDecayed = r.u64()
	wk.MintCount = r.u64()
	wk.LastWorkTimestamp = r.i64()
	wk.LastActivityTimestamp = r.i64()
	wk.LastDecayCheck = r.i64()
	wk.DecayedEpochs = r.u64()
	wk.DecayCharged = r.u64()
	wk.WorkDiversityScore = r.u64()

	if n := r.count(workRecordSize); n > 0 {
		wk.WorkHistory = make([]protocol.WorkRecord, n)
		for i := range wk.WorkHistory {
			rec := &wk.WorkHistory[i]
			rec.WorkType = protocol.WorkType(r.u8())
			rec.EffortWeight = r.u64()
			rec.Timestamp = r.i64()
			rec.EmissionAmount = r.u64()
			r.fixed(rec.MetadataHash[:])
			rec.Slot = r.u64()
		}
	}

	n := r.count(32)
	if n > protocol.RecentTaskCapacity {
		return nil, fmt.Errorf("decode worker: recent task window holds %d entries", n)
	}

	recent := make([]protocol.Hash, n)
	for i := range recent {
		r.fixed(recent[i][:])
	}
	wk.RecentTasks = protocol.NewRecentTasks(recent)

	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("decode worker:\n%w", err)
	}

	return wk, nil
}

// EncodeSoulKey encodes a SoulKey record.
func EncodeSoulKey(s *soulkey.SoulKey) []byte {
	w := newWriter(512)
	w.fixed(s.Owner[:])
	w.i64(s.CreatedAt)
	w.i64(s.LastUpdate)
	w.i64(s.LastEvolvedAt)

	w.u8(s.EvolutionLevel)
	w.u64(s.TrustScore)
	w.u64(s.FraudResistance)

	w.u64(s.TotalWorkCompleted)
	w.u64(s.TokensEarnedLifetime)
	w.u64(s.TokensBurnedByDecay)
	w.u32(s.PoolParticipationCount)
	w.u64(s.WorkDiversityScore)

	w.u32(s.ConsecutiveActiveDays)
	w.u64(s.ConsistencyRating)
	w.u64(s.CollaborationScore)
	w.u64(s.InnovationIndex)
	w.u16(s.TypesPerformed)

	w.u64(s.WitnessVotesReceived)
	w.u64(s.WitnessVotesGiven)
	w.u32(s.ReferralsMade)
	w.u32(s.CommunityEndorsements)

	w.u8(uint8(s.DominantWorkType))
	w.u8(s.SpecializationDepth)
	w.bool(s.Leadership.IsSet())
	w.bool(s.Mentor.IsSet())
	w.fixed(s.AvatarHash[:])

	w.u32(uint32(len(s.Badges)))
	for _, b := range s.Badges {
		w.u8(uint8(b.Kind))
		w.i64(b.EarnedAt)
		w.str(b.Metadata)
	}

	w.u32(uint32(len(s.EvolutionHistory)))
	for _, ev := range s.EvolutionHistory {
		w.i64(ev.Timestamp)
		w.u8(uint8(ev.Type))
		w.str(ev.Trigger)
		w.u8(ev.OldLevel)
		w.u8(ev.NewLevel)
	}

	return w.buf
}

// DecodeSoulKey decodes a SoulKey record.
func DecodeSoulKey(data []byte) (*soulkey.SoulKey, error) {
	r := newReader(data)

	s := &soulkey.SoulKey{}
	r.fixed(s.Owner[:])
	s.CreatedAt = r.i64()
	s.LastUpdate = r.i64()
	s.LastEvolvedAt = r.i64()

	s.EvolutionLevel = r.u8()
	s.TrustScore = r.u64()
	s.FraudResistance = r.u64()

	s.TotalWorkCompleted = r.u64()
	s.TokensEarnedLifetime = r.u64()
	s.TokensBurnedByDecay = r.u64()
	s.PoolParticipationCount = r.u32()
	s.WorkDiversityScore = r.u64()

	s.ConsecutiveActiveDays = r.u32()
	s.ConsistencyRating = r.u64()
	s.CollaborationScore = r.u64()
	s.InnovationIndex = r.u64()
	s.TypesPerformed = r.u16()

	s.WitnessVotesReceived = r.u64()
	s.WitnessVotesGiven = r.u64()
	s.ReferralsMade = r.u32()
	s.CommunityEndorsements = r.u32()

	s.DominantWorkType = protocol.WorkType(r.u8())
	s.SpecializationDepth = r.u8()
	if r.bool() {
		s.Leadership.Unlock()
	}
	if r.bool() {
		s.Mentor.Unlock()
	}
	r.fixed(s.AvatarHash[:])

	if n := r.count(badgeMinSize); n > 0 {
		s.Badges = make([]soulkey.Badge, n)
		for i := range s.Badges {
			s.Badges[i].Kind = soulkey.BadgeKind(r.u8())
			s.Badges[i].EarnedAt = r.i64()
			s.Badges[i].Metadata = r.str()
			s.Earned.Add(s.Badges[i].Kind)
		}
	}

	if n := r.count(eventMinSize); n > 0 {
		s.EvolutionHistory = make([]soulkey.EvolutionEvent, n)
		for i := range s.EvolutionHistory {
			ev := &s.EvolutionHistory[i]
			ev.Timestamp = r.i64()
			ev.Type = soulkey.EvolutionType(r.u8())
			ev.Trigger = r.str()
			ev.OldLevel = r.u8()
			ev.NewLevel = r.u8()
		}
	}

	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("decode soulkey:\n%w", err)
	}

	return s, nil
}

// EncodeUint64 encodes a bare little-endian u64, used for balances and the slot counter.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)

	return buf
}

// DecodeUint64 decodes a bare little-endian u64. A nil record decodes to zero.
func DecodeUint64(data []byte) (uint64, error) {
	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, fmt.Errorf("%w: u64 record has %d bytes", ErrTruncated, len(data))
	}

	return binary.LittleEndian.Uint64(data), nil
}
