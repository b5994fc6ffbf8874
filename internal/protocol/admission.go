package protocol

import "fmt"

// CheckAdmission decides whether worker may submit (t, metadata) at now.
// It does not mutate anything; on success it returns the task fingerprint so the
// work ledger can store it without recomputing.
func CheckAdmission(params Params, w *Worker, t WorkType, metadata string, now int64) (Hash, error) {
	if !t.Valid() {
		return Hash{}, fmt.Errorf("%w: %d", ErrUnknownWorkType, uint8(t))
	}

	if w.StakedAmount < params.MinStakeToEmit {
		return Hash{}, ErrInsufficientStake
	}

	fp := TaskFingerprint(t, metadata, w.ID)

	if w.RecentTasks.Contains(fp) && now <= w.LastWorkTimestamp+Cooldown(t) {
		return Hash{}, ErrTaskCooldownActive
	}

	return fp, nil
}
