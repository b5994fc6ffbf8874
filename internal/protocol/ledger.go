package protocol

// WorkClaim is a submitted unit of completed work.
type WorkClaim struct {
	WorkType     WorkType
	EffortWeight uint64
	Metadata     string
}

// RecordWork admits a claim for w and credits its emission to the pending balance.
// Every check, including overflow of all counters, runs before the first write;
// on error w, rep and the protocol state are unchanged. rep may be nil.
func (p *Protocol) RecordWork(w *Worker, rep Reputation, claim WorkClaim, now int64, slot uint64) (WorkRecorded, error) {
	fp, err := CheckAdmission(p.state.Params, w, claim.WorkType, claim.Metadata, now)
	if err != nil {
		return WorkRecorded{}, err
	}

	emission, err := CalculateEmission(claim.WorkType, claim.EffortWeight)
	if err != nil {
		return WorkRecorded{}, err
	}

	completed, ok1 := checkedAdd(w.TotalWorkCompleted, 1)
	pending, ok2 := checkedAdd(w.PendingTokens, emission)
	recorded, ok3 := checkedAdd(p.state.TotalWorkRecorded, 1)
	emitted, ok4 := checkedAdd(p.state.TotalTokensEmitted, emission)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return WorkRecorded{}, ErrMathOverflow
	}

	diversity := w.diversityWith(claim.WorkType)

	rec := WorkRecord{
		WorkType:       claim.WorkType,
		EffortWeight:   claim.EffortWeight,
		Timestamp:      now,
		EmissionAmount: emission,
		MetadataHash:   MetadataHash(claim.Metadata),
		Slot:           slot,
	}

	// Commit
	w.TotalWorkCompleted = completed
	w.LastWorkTimestamp = now
	w.LastActivityTimestamp = now
	w.DecayedEpochs = 0
	w.DecayCharged = 0
	w.PendingTokens = pending
	w.WorkDiversityScore = diversity
	w.RecentTasks.Push(fp)
	w.WorkHistory = append(w.WorkHistory, rec)

	p.state.TotalWorkRecorded = recorded
	p.state.TotalTokensEmitted = emitted

	if rep != nil {
		rep.UpdateAfterWork(rec, diversity, now)
	}

	return WorkRecorded{
		Worker:          w.ID,
		WorkType:        claim.WorkType,
		EffortWeight:    claim.EffortWeight,
		EmissionAmount:  emission,
		Timestamp:       now,
		Slot:            slot,
		Fingerprint:     fp,
		RequiresWitness: emission > HighValueThreshold,
	}, nil
}
