package balance

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Store tracks the virtual cash balance per account. Balances never go
// negative: Debit fails rather than overdraw. All mutations happen inside
// the ledger's per-account critical sections; nothing else writes here.
type Store struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
}

func NewStore() *Store {
	return &Store{balances: make(map[string]decimal.Decimal)}
}

func (s *Store) Get(accountID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[accountID]
}

// Set overwrites the balance outright. Used only for account bootstrap and
// admin resets, both routed through the ledger.
func (s *Store) Set(accountID string, amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	s.mu.Lock()
	s.balances[accountID] = amount
	s.mu.Unlock()
}

func (s *Store) Credit(accountID string, amount decimal.Decimal) error {
	if !amount.GreaterThan(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	s.mu.Lock()
	s.balances[accountID] = s.balances[accountID].Add(amount)
	s.mu.Unlock()
	return nil
}

func (s *Store) Debit(accountID string, amount decimal.Decimal) error {
	if !amount.GreaterThan(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.balances[accountID]
	if amount.GreaterThan(current) {
		return ErrInsufficientFunds
	}
	s.balances[accountID] = current.Sub(amount)
	return nil
}

func (s *Store) Remove(accountID string) {
	s.mu.Lock()
	delete(s.balances, accountID)
	s.mu.Unlock()
}
