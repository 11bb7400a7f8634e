// Package balance provides move-only fungible balance handles. A Balance is
// only ever passed by pointer; Join drains its argument so value is never
// duplicated, and Supply is the single place value is created or destroyed.
package balance

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	ErrInsufficientValue = errors.New("insufficient balance value")
	ErrCoinMismatch      = errors.New("coin type mismatch")
	ErrValueOverflow     = errors.New("balance value overflow")
	ErrNonZero           = errors.New("balance is not zero")
)

// CoinType identifies a fungible asset.
type CoinType string

type Balance struct {
	coin  CoinType
	value uint64
}

// Zero returns an empty balance of coin.
func Zero(coin CoinType) *Balance {
	return &Balance{coin: coin}
}

// New rebuilds a balance from persisted state. Only storage restore and
// Supply should call it.
func New(coin CoinType, value uint64) *Balance {
	return &Balance{coin: coin, value: value}
}

func (b *Balance) Value() uint64 {
	return b.value
}

func (b *Balance) Coin() CoinType {
	return b.coin
}

// Split moves amount out of b into a new balance.
func (b *Balance) Split(amount uint64) (*Balance, error) {
	if amount > b.value {
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientValue, b.coin, b.value, amount)
	}
	b.value -= amount
	return &Balance{coin: b.coin, value: amount}, nil
}

// Join moves all of other into b and returns b's new value.
func (b *Balance) Join(other *Balance) (uint64, error) {
	if other == nil {
		return b.value, nil
	}
	if other.coin != b.coin {
		return 0, fmt.Errorf("%w: %s into %s", ErrCoinMismatch, other.coin, b.coin)
	}
	if other.value > math.MaxUint64-b.value {
		return 0, fmt.Errorf("%w: %s %d + %d", ErrValueOverflow, b.coin, b.value, other.value)
	}
	b.value += other.value
	other.value = 0
	return b.value, nil
}

// Withdraw empties b into a new balance.
func (b *Balance) Withdraw() *Balance {
	out := &Balance{coin: b.coin, value: b.value}
	b.value = 0
	return out
}

// DestroyZero checks that b carries no value.
func (b *Balance) DestroyZero() error {
	if b.value != 0 {
		return fmt.Errorf("%w: %s %d", ErrNonZero, b.coin, b.value)
	}
	return nil
}

// Supply mints and burns balances of one coin and tracks the total outstanding.
type Supply struct {
	mu    sync.Mutex
	coin  CoinType
	total uint64
}

func NewSupply(coin CoinType) *Supply {
	return &Supply{coin: coin}
}

func (s *Supply) Coin() CoinType {
	return s.coin
}

func (s *Supply) Mint(amount uint64) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount > math.MaxUint64-s.total {
		return nil, fmt.Errorf("%w: supply of %s", ErrValueOverflow, s.coin)
	}
	s.total += amount
	return &Balance{coin: s.coin, value: amount}, nil
}

// Burn destroys b and returns the burned amount.
func (s *Supply) Burn(b *Balance) (uint64, error) {
	if b.coin != s.coin {
		return 0, fmt.Errorf("%w: burn %s with %s supply", ErrCoinMismatch, b.coin, s.coin)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	amount := b.value
	s.total -= amount
	b.value = 0
	return amount, nil
}

func (s *Supply) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Restore sets the outstanding total from persisted state.
func (s *Supply) Restore(total uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
}
