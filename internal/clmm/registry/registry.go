// Package registry maps canonical coin pairs and fee tiers to pools.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
)

// MaxTickSpacing bounds the spacing of an enabled fee tier.
const MaxTickSpacing uint32 = 16384

var (
	ErrUnknownFeeTier = errors.New("fee tier not enabled")
	ErrFeeTierExists  = errors.New("fee tier already enabled")
	ErrInvalidFeeTier = errors.New("invalid fee tier")
	ErrPoolExists     = errors.New("pool already exists")
	ErrPoolNotFound   = errors.New("pool not found")
)

// DefaultFeeTiers maps swap fee rate (parts per million) to tick spacing.
var DefaultFeeTiers = map[uint64]uint32{
	100:   2,
	500:   10,
	3000:  60,
	10000: 200,
}

type pairKey struct {
	coinX balance.CoinType
	coinY balance.CoinType
	fee   uint64
}

type Registry struct {
	mu     sync.RWMutex
	tiers  map[uint64]uint32
	pairs  map[pairKey]*pool.Pool
	byID   map[string]*pool.Pool
	clock  pool.Clock
	events pool.EventSink
	newID  func() string
}

func New(clock pool.Clock, events pool.EventSink) *Registry {
	r := &Registry{
		tiers:  make(map[uint64]uint32, len(DefaultFeeTiers)),
		pairs:  make(map[pairKey]*pool.Pool),
		byID:   make(map[string]*pool.Pool),
		clock:  clock,
		events: events,
		newID:  uuid.NewString,
	}
	for fee, spacing := range DefaultFeeTiers {
		r.tiers[fee] = spacing
	}
	return r
}

// SortCoins orders two coin types lexicographically.
func SortCoins(a, b balance.CoinType) (x, y balance.CoinType, swapped bool) {
	if b < a {
		return b, a, true
	}
	return a, b, false
}

func (r *Registry) EnableFeeTier(fee uint64, spacing uint32) error {
	if fee >= sqrtprice.FeeRateDenominator || spacing == 0 || spacing > MaxTickSpacing {
		return fmt.Errorf("%w: fee %d spacing %d", ErrInvalidFeeTier, fee, spacing)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tiers[fee]; ok {
		return fmt.Errorf("%w: %d", ErrFeeTierExists, fee)
	}
	r.tiers[fee] = spacing
	return nil
}

// FeeTiers returns a copy of the enabled tiers.
func (r *Registry) FeeTiers() map[uint64]uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint64]uint32, len(r.tiers))
	for k, v := range r.tiers {
		out[k] = v
	}
	return out
}

// CreatePool creates the canonical pool for the pair and fee tier. The pool
// is left uninitialized.
func (r *Registry) CreatePool(a, b balance.CoinType, fee uint64) (*pool.Pool, error) {
	if a == b {
		return nil, fmt.Errorf("%w: %s", pool.ErrIdenticalCoins, a)
	}
	x, y, _ := SortCoins(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()
	spacing, ok := r.tiers[fee]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFeeTier, fee)
	}
	key := pairKey{coinX: x, coinY: y, fee: fee}
	if _, exists := r.pairs[key]; exists {
		return nil, fmt.Errorf("%w: %s/%s fee %d", ErrPoolExists, x, y, fee)
	}

	p, err := pool.New(pool.Config{
		ID:          r.newID(),
		CoinX:       x,
		CoinY:       y,
		SwapFeeRate: fee,
		TickSpacing: spacing,
		Clock:       r.clock,
		Events:      r.events,
	})
	if err != nil {
		return nil, err
	}
	r.pairs[key] = p
	r.byID[p.ID()] = p
	return p, nil
}

// CreateAndInitialize creates a pool and sets its price. sqrtPrice is
// quoted for the canonical order, Y per X.
func (r *Registry) CreateAndInitialize(a, b balance.CoinType, fee uint64, sqrtPrice *uint256.Int) (*pool.Pool, error) {
	p, err := r.CreatePool(a, b, fee)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(sqrtPrice); err != nil {
		r.remove(p)
		return nil, err
	}
	return p, nil
}

func (r *Registry) remove(p *pool.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, pairKey{coinX: p.CoinX(), coinY: p.CoinY(), fee: p.SwapFeeRate()})
	delete(r.byID, p.ID())
}

// Register adds a pool restored from storage.
func (r *Registry) Register(p *pool.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{coinX: p.CoinX(), coinY: p.CoinY(), fee: p.SwapFeeRate()}
	if _, exists := r.pairs[key]; exists {
		return fmt.Errorf("%w: %s/%s fee %d", ErrPoolExists, p.CoinX(), p.CoinY(), p.SwapFeeRate())
	}
	if _, exists := r.byID[p.ID()]; exists {
		return fmt.Errorf("%w: id %s", ErrPoolExists, p.ID())
	}
	if _, ok := r.tiers[p.SwapFeeRate()]; !ok {
		r.tiers[p.SwapFeeRate()] = p.TickSpacing()
	}
	r.pairs[key] = p
	r.byID[p.ID()] = p
	return nil
}

// Get finds the pool for a pair in either order.
func (r *Registry) Get(a, b balance.CoinType, fee uint64) (*pool.Pool, bool) {
	x, y, _ := SortCoins(a, b)
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pairs[pairKey{coinX: x, coinY: y, fee: fee}]
	return p, ok
}

func (r *Registry) GetByID(id string) (*pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return p, nil
}

// List returns every pool ordered by id.
func (r *Registry) List() []*pool.Pool {
	r.mu.RLock()
	out := make([]*pool.Pool, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
