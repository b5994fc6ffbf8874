package api

import (
	"encoding/hex"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
)

// WorkRequest is the body of POST /work.
type WorkRequest struct {
	WorkType     string `json:"workType"`
	EffortWeight uint64 `json:"effortWeight"`
	Metadata     string `json:"metadata"`
}

// AmountRequest is the body of POST /stake.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// WitnessSignature is one attestation inside a MintRequest. Identity and
// signature are hex encoded.
type WitnessSignature struct {
	Witness   string `json:"witness"`
	Weight    uint64 `json:"weight"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// MintRequest is the body of POST /mint.
type MintRequest struct {
	Amount     uint64             `json:"amount"`
	Signatures []WitnessSignature `json:"signatures"`
}

// EndorseRequest is the body of POST /endorse.
type EndorseRequest struct {
	Target string `json:"target"`
}

// FaucetRequest is the body of POST /faucet.
type FaucetRequest struct {
	Identity string `json:"identity"`
	Amount   uint64 `json:"amount"`
}

// WorkResponse mirrors protocol.WorkRecorded.
type WorkResponse struct {
	Worker          string `json:"worker"`
	WorkType        string `json:"workType"`
	EffortWeight    uint64 `json:"effortWeight"`
	EmissionAmount  uint64 `json:"emissionAmount"`
	Timestamp       int64  `json:"timestamp"`
	Slot            uint64 `json:"slot"`
	Fingerprint     string `json:"fingerprint"`
	RequiresWitness bool   `json:"requiresWitness"`
}

// DecayResponse mirrors protocol.TokensDecayed.
type DecayResponse struct {
	Worker           string `json:"worker"`
	DecayAmount      uint64 `json:"decayAmount"`
	RemainingBalance uint64 `json:"remainingBalance"`
	EpochsInactive   uint64 `json:"epochsInactive"`
}

// MintResponse mirrors protocol.TokensMinted.
type MintResponse struct {
	Worker          string `json:"worker"`
	Amount          uint64 `json:"amount"`
	WitnessCount    int    `json:"witnessCount"`
	ConsensusWeight uint64 `json:"consensusWeight"`
	Sequence        uint64 `json:"sequence"`
}

// StakeResponse mirrors protocol.WorkerStaked.
type StakeResponse struct {
	Worker      string `json:"worker"`
	Amount      uint64 `json:"amount"`
	TotalStaked uint64 `json:"totalStaked"`
}

// WorkRecordView is one entry of a worker's history.
type WorkRecordView struct {
	WorkType       string `json:"workType"`
	EffortWeight   uint64 `json:"effortWeight"`
	Timestamp      int64  `json:"timestamp"`
	EmissionAmount uint64 `json:"emissionAmount"`
	MetadataHash   string `json:"metadataHash"`
	Slot           uint64 `json:"slot"`
}

// WorkerView is the JSON form of a worker record.
type WorkerView struct {
	ID                    string           `json:"id"`
	TotalWorkCompleted    uint64           `json:"totalWorkCompleted"`
	StakedAmount          uint64           `json:"stakedAmount"`
	StakeTimestamp        int64            `json:"stakeTimestamp"`
	PendingTokens         uint64           `json:"pendingTokens"`
	TotalTokensMinted     uint64           `json:"totalTokensMinted"`
	MintCount             uint64           `json:"mintCount"`
	TotalTokensDecayed    uint64           `json:"totalTokensDecayed"`
	LastWorkTimestamp     int64            `json:"lastWorkTimestamp"`
	LastActivityTimestamp int64            `json:"lastActivityTimestamp"`
	LastDecayCheck        int64            `json:"lastDecayCheck"`
	DecayedEpochs         uint64           `json:"decayedEpochs"`
	WorkDiversityScore    uint64           `json:"workDiversityScore"`
	RecentTasks           int              `json:"recentTasks"`
	WorkHistory           []WorkRecordView `json:"workHistory"`
}

// BadgeView is one awarded badge.
type BadgeView struct {
	Kind     string `json:"kind"`
	EarnedAt int64  `json:"earnedAt"`
	Metadata string `json:"metadata,omitempty"`
}

// EvolutionView is one evolution history entry.
type EvolutionView struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Trigger   string `json:"trigger"`
	OldLevel  uint8  `json:"oldLevel"`
	NewLevel  uint8  `json:"newLevel"`
}

// SoulKeyView is the JSON form of a reputation record.
type SoulKeyView struct {
	Owner                  string          `json:"owner"`
	Summary                string          `json:"summary"`
	CreatedAt              int64           `json:"createdAt"`
	EvolutionLevel         uint8           `json:"evolutionLevel"`
	TrustScore             uint64          `json:"trustScore"`
	FraudResistance        uint64          `json:"fraudResistance"`
	TotalWorkCompleted     uint64          `json:"totalWorkCompleted"`
	TokensEarnedLifetime   uint64          `json:"tokensEarnedLifetime"`
	TokensBurnedByDecay    uint64          `json:"tokensBurnedByDecay"`
	PoolParticipationCount uint32          `json:"poolParticipationCount"`
	WorkDiversityScore     uint64          `json:"workDiversityScore"`
	ConsecutiveActiveDays  uint32          `json:"consecutiveActiveDays"`
	ConsistencyRating      uint64          `json:"consistencyRating"`
	CollaborationScore     uint64          `json:"collaborationScore"`
	InnovationIndex        uint64          `json:"innovationIndex"`
	WitnessVotesReceived   uint64          `json:"witnessVotesReceived"`
	WitnessVotesGiven      uint64          `json:"witnessVotesGiven"`
	ReferralsMade          uint32          `json:"referralsMade"`
	CommunityEndorsements  uint32          `json:"communityEndorsements"`
	DominantWorkType       string          `json:"dominantWorkType"`
	SpecializationDepth    uint8           `json:"specializationDepth"`
	Leadership             bool            `json:"leadership"`
	Mentor                 bool            `json:"mentor"`
	EmissionMultiplier     uint64          `json:"emissionMultiplier"`
	CanWitnessHighValue    bool            `json:"canWitnessHighValue"`
	AvatarHash             string          `json:"avatarHash"`
	Badges                 []BadgeView     `json:"badges"`
	EvolutionHistory       []EvolutionView `json:"evolutionHistory"`
}

// StateView is the JSON form of the protocol state.
type StateView struct {
	DecayRateBPS       uint16 `json:"decayRateBPS"`
	WitnessThreshold   uint64 `json:"witnessThreshold"`
	MinStakeToEmit     uint64 `json:"minStakeToEmit"`
	TotalWorkRecorded  uint64 `json:"totalWorkRecorded"`
	TotalTokensEmitted uint64 `json:"totalTokensEmitted"`
	TotalTokensDecayed uint64 `json:"totalTokensDecayed"`
	LastSlot           uint64 `json:"lastSlot"`
}

// BalanceView is the liquid balance of one identity.
type BalanceView struct {
	Identity string `json:"identity"`
	Balance  uint64 `json:"balance"`
}

func newWorkerView(w *protocol.Worker) WorkerView {
	history := make([]WorkRecordView, len(w.WorkHistory))
	for i, rec := range w.WorkHistory {
		history[i] = WorkRecordView{
			WorkType:       rec.WorkType.String(),
			EffortWeight:   rec.EffortWeight,
			Timestamp:      rec.Timestamp,
			EmissionAmount: rec.EmissionAmount,
			MetadataHash:   hex.EncodeToString(rec.MetadataHash[:]),
			Slot:           rec.Slot,
		}
	}

	return WorkerView{
		ID:                    w.ID.String(),
		TotalWorkCompleted:    w.TotalWorkCompleted,
		StakedAmount:          w.StakedAmount,
		StakeTimestamp:        w.StakeTimestamp,
		PendingTokens:         w.PendingTokens,
		TotalTokensMinted:     w.TotalTokensMinted,
		MintCount:             w.MintCount,
		TotalTokensDecayed:    w.TotalTokensDecayed,
		LastWorkTimestamp:     w.LastWorkTimestamp,
		LastActivityTimestamp: w.LastActivityTimestamp,
		LastDecayCheck:        w.LastDecayCheck,
		DecayedEpochs:         w.DecayedEpochs,
		WorkDiversityScore:    w.WorkDiversityScore,
		RecentTasks:           w.RecentTasks.Len(),
		WorkHistory:           history,
	}
}

func newSoulKeyView(s *soulkey.SoulKey) SoulKeyView {
	badges := make([]BadgeView, len(s.Badges))
	for i, b := range s.Badges {
		badges[i] = BadgeView{Kind: b.Kind.String(), EarnedAt: b.EarnedAt, Metadata: b.Metadata}
	}

	history := make([]EvolutionView, len(s.EvolutionHistory))
	for i, ev := range s.EvolutionHistory {
		history[i] = EvolutionView{
			Timestamp: ev.Timestamp,
			Type:      ev.Type.String(),
			Trigger:   ev.Trigger,
			OldLevel:  ev.OldLevel,
			NewLevel:  ev.NewLevel,
		}
	}

	return SoulKeyView{
		Owner:                  s.Owner.String(),
		Summary:                s.Summary(),
		CreatedAt:              s.CreatedAt,
		EvolutionLevel:         s.EvolutionLevel,
		TrustScore:             s.TrustScore,
		FraudResistance:        s.FraudResistance,
		TotalWorkCompleted:     s.TotalWorkCompleted,
		TokensEarnedLifetime:   s.TokensEarnedLifetime,
		TokensBurnedByDecay:    s.TokensBurnedByDecay,
		PoolParticipationCount: s.PoolParticipationCount,
		WorkDiversityScore:     s.WorkDiversityScore,
		ConsecutiveActiveDays:  s.ConsecutiveActiveDays,
		ConsistencyRating:      s.ConsistencyRating,
		CollaborationScore:     s.CollaborationScore,
		InnovationIndex:        s.InnovationIndex,
		WitnessVotesReceived:   s.WitnessVotesReceived,
		WitnessVotesGiven:      s.WitnessVotesGiven,
		ReferralsMade:          s.ReferralsMade,
		CommunityEndorsements:  s.CommunityEndorsements,
		DominantWorkType:       s.DominantWorkType.String(),
		SpecializationDepth:    s.SpecializationDepth,
		Leadership:             s.Leadership.IsSet(),
		Mentor:                 s.Mentor.IsSet(),
		EmissionMultiplier:     s.EmissionMultiplier(),
		CanWitnessHighValue:    s.CanWitnessHighValue(),
		AvatarHash:             hex.EncodeToString(s.AvatarHash[:]),
		Badges:                 badges,
		EvolutionHistory:       history,
	}
}

func newStateView(st protocol.State, lastSlot uint64) StateView {
	return StateView{
		DecayRateBPS:       st.DecayRateBPS,
		WitnessThreshold:   st.WitnessThreshold,
		MinStakeToEmit:     st.MinStakeToEmit,
		TotalWorkRecorded:  st.TotalWorkRecorded,
		TotalTokensEmitted: st.TotalTokensEmitted,
		TotalTokensDecayed: st.TotalTokensDecayed,
		LastSlot:           lastSlot,
	}
}

// parseSignatures decodes the attestation list of a mint request.
func parseSignatures(in []WitnessSignature) ([]protocol.WitnessSignature, error) {
	out := make([]protocol.WitnessSignature, len(in))

	for i, s := range in {
		id, err := protocol.ParseIdentity(s.Witness)
		if err != nil {
			return nil, err
		}

		sig, err := hex.DecodeString(s.Signature)
		if err != nil {
			return nil, err
		}

		out[i] = protocol.WitnessSignature{
			Witness:   id,
			Weight:    s.Weight,
			Signature: sig,
			Timestamp: s.Timestamp,
		}
	}

	return out, nil
}
