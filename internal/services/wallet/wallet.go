// Package wallet keeps account balances for the engine. Value only enters
// through a coin's Supply (faucet) and only leaves by Redeem; everything in
// between moves as balance handles.
package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/config"
	"github.com/hxuan190/clmm-engine/internal/services"
)

const WALLET_SERVICE = "wallet-service"

var (
	ErrFaucetDisabled = errors.New("faucet disabled")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidAccount = errors.New("invalid account")
)

type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	mu       sync.RWMutex
	faucet   bool
	supplies map[balance.CoinType]*balance.Supply
	accounts map[string]map[balance.CoinType]*balance.Balance
	dirty    map[string]struct{}
}

// New builds a wallet outside the DI container.
func New(faucet bool) *Service {
	svc := &Service{}
	svc.init(faucet)
	return svc
}

func (svc *Service) init(faucet bool) {
	svc.logger = services.NewServiceLogger(svc)
	svc.faucet = faucet
	svc.supplies = make(map[balance.CoinType]*balance.Supply)
	svc.accounts = make(map[string]map[balance.CoinType]*balance.Balance)
	svc.dirty = make(map[string]struct{})
}

func (svc *Service) ID() string {
	return WALLET_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	conf := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	svc.init(conf.FaucetEnabled)
	return nil
}

func (svc *Service) Start() error {
	svc.logger.Info().Bool("faucet", svc.faucet).Msg("[wallet] started")
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

func (svc *Service) supply(coin balance.CoinType) *balance.Supply {
	s, ok := svc.supplies[coin]
	if !ok {
		s = balance.NewSupply(coin)
		svc.supplies[coin] = s
	}
	return s
}

// account returns the owner's balance of coin, creating an empty one.
func (svc *Service) account(owner string, coin balance.CoinType) *balance.Balance {
	acc, ok := svc.accounts[owner]
	if !ok {
		acc = make(map[balance.CoinType]*balance.Balance)
		svc.accounts[owner] = acc
	}
	b, ok := acc[coin]
	if !ok {
		b = balance.Zero(coin)
		acc[coin] = b
	}
	return b
}

// Faucet mints amount of coin into owner's account.
func (svc *Service) Faucet(owner string, coin balance.CoinType, amount uint64) (uint64, error) {
	if !svc.faucet {
		return 0, ErrFaucetDisabled
	}
	if owner == "" || coin == "" {
		return 0, ErrInvalidAccount
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	minted, err := svc.supply(coin).Mint(amount)
	if err != nil {
		return 0, err
	}
	acc := svc.account(owner, coin)
	total, err := acc.Join(minted)
	if err != nil {
		_, _ = svc.supply(coin).Burn(minted)
		return 0, err
	}
	svc.dirty[owner] = struct{}{}
	svc.logger.Debug().Str("owner", owner).Str("coin", string(coin)).Uint64("amount", amount).Msg("[wallet] faucet")
	return total, nil
}

// Redeem burns amount of coin from owner's account.
func (svc *Service) Redeem(owner string, coin balance.CoinType, amount uint64) (uint64, error) {
	b, err := svc.Withdraw(owner, coin, amount)
	if err != nil {
		return 0, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.supply(coin).Burn(b)
}

// Withdraw splits amount of coin out of owner's account.
func (svc *Service) Withdraw(owner string, coin balance.CoinType, amount uint64) (*balance.Balance, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	b, err := svc.account(owner, coin).Split(amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw %d %s from %s: %w", amount, coin, owner, err)
	}
	svc.dirty[owner] = struct{}{}
	return b, nil
}

// Credit joins every balance into owner's account. Nil balances are skipped.
func (svc *Service) Credit(owner string, bs ...*balance.Balance) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, b := range bs {
		if b == nil || b.Value() == 0 {
			continue
		}
		if _, err := svc.account(owner, b.Coin()).Join(b); err != nil {
			return fmt.Errorf("credit %s: %w", owner, err)
		}
	}
	svc.dirty[owner] = struct{}{}
	return nil
}

func (svc *Service) BalanceOf(owner string, coin balance.CoinType) uint64 {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if b, ok := svc.accounts[owner][coin]; ok {
		return b.Value()
	}
	return 0
}

// Balances returns every non-zero balance of owner.
func (svc *Service) Balances(owner string) map[balance.CoinType]uint64 {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make(map[balance.CoinType]uint64, len(svc.accounts[owner]))
	for coin, b := range svc.accounts[owner] {
		if b.Value() > 0 {
			out[coin] = b.Value()
		}
	}
	return out
}

// TotalSupply is the amount of coin minted and not yet redeemed.
func (svc *Service) TotalSupply(coin balance.CoinType) uint64 {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if s, ok := svc.supplies[coin]; ok {
		return s.Total()
	}
	return 0
}

// State is the persisted form of the wallet.
type State struct {
	Accounts map[string]map[balance.CoinType]uint64
	Supplies map[balance.CoinType]uint64
}

// TakeDirty returns the accounts changed since the last call together with
// every supply total.
func (svc *Service) TakeDirty() State {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s := State{
		Accounts: make(map[string]map[balance.CoinType]uint64, len(svc.dirty)),
		Supplies: make(map[balance.CoinType]uint64, len(svc.supplies)),
	}
	for owner := range svc.dirty {
		acc := make(map[balance.CoinType]uint64, len(svc.accounts[owner]))
		for coin, b := range svc.accounts[owner] {
			acc[coin] = b.Value()
		}
		s.Accounts[owner] = acc
	}
	for coin, supply := range svc.supplies {
		s.Supplies[coin] = supply.Total()
	}
	svc.dirty = make(map[string]struct{})
	return s
}

// MarkDirty re-queues accounts whose save failed.
func (svc *Service) MarkDirty(owners ...string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, owner := range owners {
		svc.dirty[owner] = struct{}{}
	}
}

// Restore replaces all accounts and supplies.
func (svc *Service) Restore(s State) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.accounts = make(map[string]map[balance.CoinType]*balance.Balance, len(s.Accounts))
	svc.supplies = make(map[balance.CoinType]*balance.Supply, len(s.Supplies))
	for owner, acc := range s.Accounts {
		for coin, value := range acc {
			_, _ = svc.account(owner, coin).Join(balance.New(coin, value))
		}
	}
	for coin, total := range s.Supplies {
		svc.supply(coin).Restore(total)
	}
	svc.dirty = make(map[string]struct{})
	svc.logger.Info().Int("accounts", len(s.Accounts)).Int("coins", len(s.Supplies)).Msg("[wallet] restored")
}

// Owners lists every account in order.
func (svc *Service) Owners() []string {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]string, 0, len(svc.accounts))
	for owner := range svc.accounts {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}
