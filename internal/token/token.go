// Package token is the fungible-token sub-ledger holding liquid balances.
package token

import (
	"errors"
	"fmt"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance overflow")
)

// BalanceStore provides access to stored balances.
type BalanceStore interface {
	// Balance returns the balance of id, zero if it has none.
	Balance(id protocol.Identity) (uint64, error)
	// SetBalance stores the balance of id.
	SetBalance(id protocol.Identity, amount uint64) error
}

// Ledger moves and creates tokens on top of a BalanceStore.
// It implements protocol.TokenLedger.
type Ledger struct {
	store BalanceStore
}

// NewLedger creates a ledger over store.
func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

// Balance returns the liquid balance of id.
func (l *Ledger) Balance(id protocol.Identity) (uint64, error) {
	return l.store.Balance(id)
}

// Mint creates amount new tokens in to's balance.
func (l *Ledger) Mint(to protocol.Identity, amount uint64) error {
	return l.credit(to, amount)
}

// Transfer moves amount from one balance to another.
// Both balances are checked before either is written.
func (l *Ledger) Transfer(from, to protocol.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}

	fromBal, err := l.store.Balance(from)
	if err != nil {
		return fmt.Errorf("read sender balance:\n%w", err)
	}

	if fromBal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, fromBal, amount)
	}

	if from == to {
		return nil
	}

	toBal, err := l.store.Balance(to)
	if err != nil {
		return fmt.Errorf("read recipient balance:\n%w", err)
	}

	newTo := toBal + amount
	if newTo < toBal {
		return fmt.Errorf("%w: balance=%d + amount=%d wraps", ErrOverflow, toBal, amount)
	}

	if err := l.store.SetBalance(from, fromBal-amount); err != nil {
		return fmt.Errorf("write sender balance:\n%w", err)
	}

	if err := l.store.SetBalance(to, newTo); err != nil {
		return fmt.Errorf("write recipient balance:\n%w", err)
	}

	return nil
}

// credit adds amount to id's balance.
func (l *Ledger) credit(id protocol.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}

	balance, err := l.store.Balance(id)
	if err != nil {
		return fmt.Errorf("read balance:\n%w", err)
	}

	// Overflow check: balance + amount must not wrap
	newBalance := balance + amount
	if newBalance < balance {
		return fmt.Errorf("%w: balance=%d + amount=%d wraps", ErrOverflow, balance, amount)
	}

	if err := l.store.SetBalance(id, newBalance); err != nil {
		return fmt.Errorf("write balance:\n%w", err)
	}

	return nil
}

// MemStore is an in-memory BalanceStore.
type MemStore map[protocol.Identity]uint64

// Balance implements BalanceStore.
func (m MemStore) Balance(id protocol.Identity) (uint64, error) {
	return m[id], nil
}

// SetBalance implements BalanceStore.
func (m MemStore) SetBalance(id protocol.Identity, amount uint64) error {
	m[id] = amount
	return nil
}
