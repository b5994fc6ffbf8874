package protocol

import "fmt"

// StakeToEmit locks amount of w's liquid tokens in the protocol vault and adds it
// to the admission bond. There is no withdrawal path.
func (p *Protocol) StakeToEmit(w *Worker, amount uint64, now int64) (WorkerStaked, error) {
	staked, ok := checkedAdd(w.StakedAmount, amount)
	if !ok {
		return WorkerStaked{}, ErrMathOverflow
	}

	if p.tokens == nil {
		return WorkerStaked{}, errNoTokenLedger
	}

	if err := p.tokens.Transfer(w.ID, p.vault, amount); err != nil {
		return WorkerStaked{}, fmt.Errorf("transfer stake:\n%w", err)
	}

	w.StakedAmount = staked
	w.StakeTimestamp = now

	return WorkerStaked{
		Worker:      w.ID,
		Amount:      amount,
		TotalStaked: staked,
	}, nil
}
