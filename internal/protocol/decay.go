package protocol

// ApplyDecay charges inactivity decay to w's pending balance.
//
// Decay is a function of the whole epochs elapsed since the last activity:
// after E epochs the inactivity period has been charged base*rate*E/10000 in
// total, where base is the pending balance the period is charged against. Each
// call charges only the difference to what earlier calls already charged, so
// the result does not depend on how often ApplyDecay runs and a repeated call
// at the same time charges nothing. LastDecayCheck only records the call.
func (p *Protocol) ApplyDecay(w *Worker, rep Reputation, now int64) (TokensDecayed, error) {
	ev := TokensDecayed{Worker: w.ID, RemainingBalance: w.PendingTokens}

	var epochs uint64
	if now > w.LastActivityTimestamp {
		epochs = uint64(now-w.LastActivityTimestamp) / EpochSeconds
	}

	if epochs <= w.DecayedEpochs {
		advanceDecayCheck(w, now)
		return ev, nil
	}

	base, ok := checkedAdd(w.PendingTokens, w.DecayCharged)
	if !ok {
		return TokensDecayed{}, ErrMathOverflow
	}

	target, ok := decayOver(base, p.state.DecayRateBPS, epochs)
	if !ok {
		return TokensDecayed{}, ErrMathOverflow
	}

	// Cannot overflow: fewer epochs than target
	already, _ := decayOver(base, p.state.DecayRateBPS, w.DecayedEpochs)
	amount := target - already

	charged, ok1 := checkedAdd(w.DecayCharged, amount)
	workerTotal, ok2 := checkedAdd(w.TotalTokensDecayed, amount)
	stateTotal, ok3 := checkedAdd(p.state.TotalTokensDecayed, amount)
	if !ok1 || !ok2 || !ok3 {
		return TokensDecayed{}, ErrMathOverflow
	}

	ev.EpochsInactive = epochs - w.DecayedEpochs

	w.PendingTokens = saturatingSub(w.PendingTokens, amount)
	w.TotalTokensDecayed = workerTotal
	w.DecayCharged = charged
	w.DecayedEpochs = epochs
	p.state.TotalTokensDecayed = stateTotal
	advanceDecayCheck(w, now)

	if rep != nil {
		rep.ApplyDecayPenalty(amount)
	}

	ev.DecayAmount = amount
	ev.RemainingBalance = w.PendingTokens

	return ev, nil
}

// decayOver returns base * rateBPS * epochs / 10000 with overflow detection.
func decayOver(base uint64, rateBPS uint16, epochs uint64) (uint64, bool) {
	scaled, ok := checkedMul(base, uint64(rateBPS))
	if !ok {
		return 0, false
	}

	scaled, ok = checkedMul(scaled, epochs)
	if !ok {
		return 0, false
	}

	return scaled / bpsMax, true
}

// advanceDecayCheck records the latest decay evaluation, never moving backward.
func advanceDecayCheck(w *Worker, now int64) {
	if now > w.LastDecayCheck {
		w.LastDecayCheck = now
	}
}
