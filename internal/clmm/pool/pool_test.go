package pool

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

const (
	coinX balance.CoinType = "0x2::sui::SUI"
	coinY balance.CoinType = "0x5d4b::coin::USDC"
)

type fakeClock struct{ ms uint64 }

func (c *fakeClock) NowMs() uint64 { return c.ms }

func (c *fakeClock) set(seconds uint64) { c.ms = seconds * 1000 }

type recorder struct{ events []Event }

func (r *recorder) Emit(e Event) { r.events = append(r.events, e) }

// harness is a pool plus one trader account funded from tracked supplies.
type harness struct {
	t       testing.TB
	pool    *Pool
	clock   *fakeClock
	events  *recorder
	supplyX *balance.Supply
	supplyY *balance.Supply
	x       *balance.Balance
	y       *balance.Balance
}

func newHarness(t testing.TB, fee uint64, spacing uint32, price *uint256.Int) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   &fakeClock{},
		events:  &recorder{},
		supplyX: balance.NewSupply(coinX),
		supplyY: balance.NewSupply(coinY),
	}
	h.clock.set(1000)
	p, err := New(Config{
		ID:          "pool-1",
		CoinX:       coinX,
		CoinY:       coinY,
		SwapFeeRate: fee,
		TickSpacing: spacing,
		Clock:       h.clock,
		Events:      h.events,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Initialize(price); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.pool = p
	h.x, _ = h.supplyX.Mint(math.MaxUint64 / 4)
	h.y, _ = h.supplyY.Mint(math.MaxUint64 / 4)
	return h
}

func (h *harness) mint(lower, upper int32, l int64) (*Position, uint64, uint64) {
	h.t.Helper()
	pos, err := h.pool.OpenPosition(lower, upper)
	if err != nil {
		h.t.Fatalf("OpenPosition: %v", err)
	}
	ax, ay, err := h.pool.ModifyLiquidity(pos, signed.FromInt64(l), h.x, h.y)
	if err != nil {
		h.t.Fatalf("ModifyLiquidity(%d): %v", l, err)
	}
	return pos, ax, ay
}

func (h *harness) keep(bs ...*balance.Balance) {
	h.t.Helper()
	for _, b := range bs {
		if b == nil {
			continue
		}
		var err error
		if b.Coin() == coinX {
			_, err = h.x.Join(b)
		} else {
			_, err = h.y.Join(b)
		}
		if err != nil {
			h.t.Fatalf("join: %v", err)
		}
	}
}

// conserved checks that every minted unit sits in the reserves or the account.
func (h *harness) conserved() {
	h.t.Helper()
	rx, ry := h.pool.Reserves()
	if h.supplyX.Total() != rx+h.x.Value() || h.supplyY.Total() != ry+h.y.Value() {
		h.t.Errorf("balances not conserved: supply %d/%d, reserves %d/%d, account %d/%d",
			h.supplyX.Total(), h.supplyY.Total(), rx, ry, h.x.Value(), h.y.Value())
	}
}

func (h *harness) split(b *balance.Balance, amount uint64) *balance.Balance {
	h.t.Helper()
	out, err := b.Split(amount)
	if err != nil {
		h.t.Fatalf("split: %v", err)
	}
	return out
}

func minLimit() *uint256.Int { return new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1) }
func maxLimit() *uint256.Int { return new(uint256.Int).SubUint64(tickmath.MaxSqrtPrice, 1) }

func priceAt(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	p, err := tickmath.SqrtPriceAtTick(tick)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// encodePrice(1, 10): sqrt(1/10) in Q64.64.
var oneToTen = uint256.NewInt(5833372668713515884)

func TestNewAndInitialize(t *testing.T) {
	if _, err := New(Config{CoinX: coinX, CoinY: coinX, SwapFeeRate: 3000, TickSpacing: 60}); !errors.Is(err, ErrIdenticalCoins) {
		t.Errorf("identical coins err = %v", err)
	}
	if _, err := New(Config{CoinX: coinX, CoinY: coinY, SwapFeeRate: 1_000_000, TickSpacing: 60}); !errors.Is(err, ErrInvalidFeeRate) {
		t.Errorf("fee rate err = %v", err)
	}
	if _, err := New(Config{CoinX: coinX, CoinY: coinY, SwapFeeRate: 3000}); !errors.Is(err, tickmath.ErrInvalidTickSpacing) {
		t.Errorf("spacing err = %v", err)
	}

	p, err := New(Config{ID: "p", CoinX: coinX, CoinY: coinY, SwapFeeRate: 3000, TickSpacing: 60, Clock: &fakeClock{}})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Locked() || p.Initialized() {
		t.Fatalf("new pool locked=%v initialized=%v", p.Locked(), p.Initialized())
	}
	pos, _ := p.OpenPosition(-60, 60)
	if _, _, err := p.ModifyLiquidity(pos, signed.FromInt64(1), balance.Zero(coinX), balance.Zero(coinY)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("modify before initialize err = %v", err)
	}
	if err := p.Initialize(uint256.NewInt(1)); !errors.Is(err, tickmath.ErrSqrtPriceOutOfBounds) {
		t.Errorf("initialize below min err = %v", err)
	}

	p, _ = New(Config{ID: "p", CoinX: coinX, CoinY: coinY, SwapFeeRate: 3000, TickSpacing: 60, Clock: &fakeClock{}})
	if err := p.Initialize(oneToTen); err != nil {
		t.Fatal(err)
	}
	if p.TickIndex() != -23028 || p.Locked() {
		t.Errorf("tick = %d locked = %v", p.TickIndex(), p.Locked())
	}
	if err := p.Initialize(fullmath.Q64); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second initialize err = %v", err)
	}
	if _, card, next := p.ObservationState(); card != 1 || next != 1 {
		t.Errorf("oracle cardinality = %d/%d", card, next)
	}
}

func TestOpenPositionValidation(t *testing.T) {
	h := newHarness(t, 3000, 60, oneToTen)
	tests := []struct {
		name         string
		lower, upper int32
	}{
		{"reversed", 60, -60},
		{"empty", 60, 60},
		{"misaligned", -61, 60},
		{"below min", tickmath.MinTick - 60, 0},
		{"above max", 0, 443640},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.pool.OpenPosition(tt.lower, tt.upper); !errors.Is(err, ErrInvalidTickRange) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestMintFixture(t *testing.T) {
	h := newHarness(t, 3000, 60, oneToTen)
	lower, upper := tickmath.MinUsableTick(60), tickmath.MaxUsableTick(60)

	pos, _ := h.pool.OpenPosition(lower, upper)
	short := h.split(h.x, 9995)
	wide := h.split(h.y, 1000)
	if _, _, err := h.pool.ModifyLiquidity(pos, signed.FromInt64(3161), short, wide); !errors.Is(err, ErrInsufficientInputAmount) {
		t.Fatalf("short input err = %v", err)
	}
	if short.Value() != 9995 || h.pool.InitializedTicks()[lower].Initialized || !h.pool.Liquidity().IsZero() {
		t.Fatalf("failed mint changed state")
	}
	h.keep(short, wide)

	pos, ax, ay := h.mint(lower, upper, 3161)
	if ax != 9996 || ay != 1000 {
		t.Errorf("amounts = %d/%d, want 9996/1000", ax, ay)
	}
	if rx, ry := h.pool.Reserves(); rx != 9996 || ry != 1000 {
		t.Errorf("reserves = %d/%d", rx, ry)
	}
	if h.pool.Liquidity().Uint64() != 3161 || pos.Liquidity().Uint64() != 3161 {
		t.Errorf("liquidity pool=%s position=%s", h.pool.Liquidity().Dec(), pos.Liquidity().Dec())
	}
	lo, ok := h.pool.Tick(lower)
	if !ok || lo.LiquidityNet != signed.FromInt64(3161) {
		t.Errorf("lower tick = %+v", lo)
	}
	hi, _ := h.pool.Tick(upper)
	if hi.LiquidityNet != signed.FromInt64(-3161) || hi.LiquidityGross.Uint64() != 3161 {
		t.Errorf("upper tick net=%s gross=%s", hi.LiquidityNet, hi.LiquidityGross.Dec())
	}
	if !h.pool.bitmap.IsInitialized(lower, 60) || !h.pool.bitmap.IsInitialized(upper, 60) {
		t.Errorf("bitmap not flipped")
	}
	h.conserved()
}

func TestModifyLiquidityErrors(t *testing.T) {
	h := newHarness(t, 3000, 60, fullmath.Q64)

	other, _ := New(Config{ID: "pool-2", CoinX: coinX, CoinY: coinY, SwapFeeRate: 3000, TickSpacing: 60})
	foreign, _ := other.OpenPosition(-60, 60)
	if _, _, err := h.pool.ModifyLiquidity(foreign, signed.FromInt64(1), h.x, h.y); !errors.Is(err, ErrPoolIdMismatch) {
		t.Errorf("foreign position err = %v", err)
	}

	empty, _ := h.pool.OpenPosition(-60, 60)
	if _, _, err := h.pool.ModifyLiquidity(empty, signed.I128{}, nil, nil); !errors.Is(err, ErrNoPositionLiquidity) {
		t.Errorf("poke empty err = %v", err)
	}
	if _, _, err := h.pool.ModifyLiquidity(empty, signed.FromInt64(-1), nil, nil); err == nil {
		t.Errorf("removing from empty position succeeded")
	}
	if _, _, err := h.pool.ModifyLiquidity(empty, signed.FromInt64(1), h.y, h.x); !errors.Is(err, ErrCoinMismatch) {
		t.Errorf("swapped coins err = %v", err)
	}

	over, err := signed.FromU128(new(uint256.Int).AddUint64(h.pool.MaxLiquidityPerTick(), 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.pool.ModifyLiquidity(empty, over, h.x, h.y); !errors.Is(err, tick.ErrLiquidityGrossExceedsMax) {
		t.Errorf("over max err = %v", err)
	}

	// both ticks update, then the amount overflows u64 and the ticks roll back
	huge, _ := signed.FromU128(h.pool.MaxLiquidityPerTick())
	if _, _, err := h.pool.ModifyLiquidity(empty, huge, h.x, h.y); !errors.Is(err, sqrtprice.ErrAmountOverflow) {
		t.Errorf("amount overflow err = %v", err)
	}
	if n := len(h.pool.InitializedTicks()); n != 0 || h.pool.bitmap.Len() != 0 {
		t.Errorf("failed mint left %d ticks", n)
	}
	if !empty.Liquidity().IsZero() || !h.pool.Liquidity().IsZero() {
		t.Errorf("failed mint changed liquidity")
	}
	h.conserved()
}

func TestBurnAndCollect(t *testing.T) {
	h := newHarness(t, 3000, 60, oneToTen)
	lower, upper := tickmath.MinUsableTick(60), tickmath.MaxUsableTick(60)
	pos, _, _ := h.mint(lower, upper, 3161)

	if err := h.pool.ClosePosition(pos); !errors.Is(err, ErrPositionNotEmpty) {
		t.Errorf("close with liquidity err = %v", err)
	}
	ax, ay, err := h.pool.ModifyLiquidity(pos, signed.FromInt64(-3161), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ax != 9995 || ay != 999 {
		t.Errorf("burn amounts = %d/%d, want 9995/999", ax, ay)
	}
	if ox, oy := pos.CoinsOwed(); ox != 9995 || oy != 999 {
		t.Errorf("owed = %d/%d", ox, oy)
	}
	if len(h.pool.InitializedTicks()) != 0 || h.pool.bitmap.Len() != 0 {
		t.Errorf("ticks not cleared after full burn")
	}
	if !h.pool.Liquidity().IsZero() {
		t.Errorf("pool liquidity = %s", h.pool.Liquidity().Dec())
	}

	if _, _, err := h.pool.Collect(pos, 0, 0); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero collect err = %v", err)
	}
	outX, outY, err := h.pool.Collect(pos, 5000, math.MaxUint64)
	if err != nil {
		t.Fatal(err)
	}
	if outX.Value() != 5000 || outY.Value() != 999 {
		t.Errorf("collected = %d/%d", outX.Value(), outY.Value())
	}
	h.keep(outX, outY)
	if err := h.pool.ClosePosition(pos); !errors.Is(err, ErrPositionNotEmpty) {
		t.Errorf("close with owed err = %v", err)
	}
	outX, outY, _ = h.pool.Collect(pos, math.MaxUint64, math.MaxUint64)
	h.keep(outX, outY)
	if err := h.pool.ClosePosition(pos); err != nil {
		t.Errorf("close empty: %v", err)
	}
	// rounding dust stays in the pool
	if rx, ry := h.pool.Reserves(); rx != 1 || ry != 1 {
		t.Errorf("reserves after full exit = %d/%d", rx, ry)
	}
	h.conserved()
}

// swapPool is a 0.05% pool at price 1 with 2e9 liquidity over almost the
// whole range.
func swapPool(t testing.TB) (*harness, *Position) {
	t.Helper()
	h := newHarness(t, 500, 10, fullmath.Q64)
	pos, ax, ay := h.mint(-443630, 443630, 2_000_000_000)
	if ax != 2_000_000_000 || ay != 2_000_000_000 {
		t.Fatalf("mint amounts = %d/%d", ax, ay)
	}
	return h, pos
}

func TestSwapExactInFixture(t *testing.T) {
	h, pos := swapPool(t)

	quote, err := h.pool.QuoteSwap(true, true, 1_000_000_000, minLimit())
	if err != nil {
		t.Fatal(err)
	}

	h.clock.set(1010)
	outX, outY, receipt, err := h.pool.Swap(true, true, 1_000_000_000, minLimit())
	if err != nil {
		t.Fatal(err)
	}
	if outY.Value() != 666444406 || outX.Value() != 0 {
		t.Errorf("out = %d/%d, want 0/666444406", outX.Value(), outY.Value())
	}
	if h.pool.SqrtPrice().Dec() != "12299879366966330045" || h.pool.TickIndex() != -8107 {
		t.Errorf("price = %s tick = %d", h.pool.SqrtPrice().Dec(), h.pool.TickIndex())
	}
	if gx, gy := h.pool.FeeGrowthGlobal(); gx.Dec() != "4611686018427386" || !gy.IsZero() {
		t.Errorf("fee growth = %s/%s", gx.Dec(), gy.Dec())
	}
	if dx, dy := receipt.Debts(); dx != 1_000_000_000 || dy != 0 {
		t.Errorf("debts = %d/%d", dx, dy)
	}
	if quote.AmountOut != 666444406 || quote.AmountIn != 1_000_000_000 || quote.FeeAmount != 500000 || quote.Steps != 5 {
		t.Errorf("quote = %+v", quote)
	}
	h.keep(outX, outY)

	if !h.pool.Locked() {
		t.Fatalf("pool unlocked before pay")
	}
	if _, _, _, err := h.pool.Swap(true, true, 1, minLimit()); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("swap while locked err = %v", err)
	}

	short := h.split(h.x, 999_999_999)
	if err := h.pool.Pay(receipt, short, nil); !errors.Is(err, ErrInsufficientInputAmount) {
		t.Fatalf("short pay err = %v", err)
	}
	if !h.pool.Locked() || short.Value() != 999_999_999 {
		t.Fatalf("failed pay changed state")
	}
	h.keep(short)
	if err := h.pool.Pay(receipt, h.split(h.x, 1_000_000_000), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.pool.Pay(receipt, nil, nil); !errors.Is(err, ErrReceiptConsumed) {
		t.Errorf("second pay err = %v", err)
	}
	if h.pool.Locked() {
		t.Errorf("pool still locked after pay")
	}
	if rx, ry := h.pool.Reserves(); rx != 3_000_000_000 || ry != 2_000_000_000-666444406 {
		t.Errorf("reserves = %d/%d", rx, ry)
	}
	h.conserved()

	// the tick moved, so the pre-swap state was observed at t=1010
	h.clock.set(1020)
	cumulatives, _, err := h.pool.Observe([]uint64{0, 10})
	if err != nil {
		t.Fatal(err)
	}
	if cumulatives[0] != -81070 || cumulatives[1] != 0 {
		t.Errorf("tick cumulatives = %v", cumulatives)
	}

	if _, _, err := h.pool.ModifyLiquidity(pos, signed.I128{}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if ox, oy := pos.CoinsOwed(); ox != 499999 || oy != 0 {
		t.Errorf("fees owed = %d/%d, want 499999/0", ox, oy)
	}
}

func TestSwapProtocolFee(t *testing.T) {
	h, _ := swapPool(t)
	if err := h.pool.SetProtocolFeeRate(4 | 4<<4); err != nil {
		t.Fatal(err)
	}

	outX, outY, receipt, err := h.pool.Swap(true, true, 1_000_000_000, minLimit())
	if err != nil {
		t.Fatal(err)
	}
	h.keep(outX, outY)
	if err := h.pool.Pay(receipt, h.split(h.x, 1_000_000_000), nil); err != nil {
		t.Fatal(err)
	}
	if px, py := h.pool.ProtocolFees(); px != 124999 || py != 0 {
		t.Errorf("protocol fees = %d/%d", px, py)
	}
	if gx, _ := h.pool.FeeGrowthGlobal(); gx.Dec() != "3458773737192576" {
		t.Errorf("fee growth x = %s", gx.Dec())
	}

	if _, _, err := h.pool.CollectProtocolFee(0, 0); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero collect err = %v", err)
	}
	fx, fy, err := h.pool.CollectProtocolFee(math.MaxUint64, math.MaxUint64)
	if err != nil {
		t.Fatal(err)
	}
	if fx.Value() != 124999 || fy.Value() != 0 {
		t.Errorf("collected protocol fee = %d/%d", fx.Value(), fy.Value())
	}
	h.keep(fx, fy)
	if px, _ := h.pool.ProtocolFees(); px != 0 {
		t.Errorf("protocol fee left = %d", px)
	}
	h.conserved()
}

func TestSetProtocolFeeRate(t *testing.T) {
	h := newHarness(t, 500, 10, fullmath.Q64)
	tests := []struct {
		rate  uint8
		valid bool
	}{
		{0, true},
		{4, true},
		{10, true},
		{0xA4, true},
		{0x40, true},
		{3, false},
		{11, false},
		{0x30, false},
		{0xB0, false},
		{0xFF, false},
	}
	for _, tt := range tests {
		err := h.pool.SetProtocolFeeRate(tt.rate)
		if tt.valid && err != nil {
			t.Errorf("rate %#x: %v", tt.rate, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidProtocolFeeRate) {
			t.Errorf("rate %#x err = %v", tt.rate, err)
		}
	}
	if h.pool.ProtocolFeeRate() != 0x40 {
		t.Errorf("rate = %#x, want last valid 0x40", h.pool.ProtocolFeeRate())
	}
}

func TestSwapYForX(t *testing.T) {
	tests := []struct {
		name      string
		exactIn   bool
		amount    uint64
		wantIn    uint64
		wantOut   uint64
		wantTick  int32
		wantPrice string
	}{
		{"exact in", true, 1_000_000, 1_000_000, 999000, 9, "18455962834060387964"},
		{"exact out", false, 1_000_000, 1001002, 1_000_000, 10, "18455972059739421327"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := swapPool(t)
			outX, outY, receipt, err := h.pool.Swap(false, tt.exactIn, tt.amount, maxLimit())
			if err != nil {
				t.Fatal(err)
			}
			if outX.Value() != tt.wantOut || outY.Value() != 0 {
				t.Errorf("out = %d/%d", outX.Value(), outY.Value())
			}
			if _, dy := receipt.Debts(); dy != tt.wantIn {
				t.Errorf("debt y = %d, want %d", dy, tt.wantIn)
			}
			if h.pool.TickIndex() != tt.wantTick || h.pool.SqrtPrice().Dec() != tt.wantPrice {
				t.Errorf("tick = %d price = %s", h.pool.TickIndex(), h.pool.SqrtPrice().Dec())
			}
			h.keep(outX, outY)
			if err := h.pool.Pay(receipt, nil, h.split(h.y, tt.wantIn)); err != nil {
				t.Fatal(err)
			}
			h.conserved()
		})
	}
}

func TestSwapCrossesTick(t *testing.T) {
	h, wide := swapPool(t)
	narrow, ax, ay := h.mint(-100, 100, 1_000_000_000)
	if ax != 4987273 || ay != 4987273 {
		t.Fatalf("narrow mint = %d/%d", ax, ay)
	}

	outX, outY, receipt, err := h.pool.Swap(true, true, 100_000_000, minLimit())
	if err != nil {
		t.Fatal(err)
	}
	if outY.Value() != 95622643 {
		t.Errorf("out = %d, want 95622643", outY.Value())
	}
	if h.pool.SqrtPrice().Dec() != "17610780318078975934" || h.pool.TickIndex() != -928 {
		t.Errorf("price = %s tick = %d", h.pool.SqrtPrice().Dec(), h.pool.TickIndex())
	}
	if h.pool.Liquidity().Uint64() != 2_000_000_000 {
		t.Errorf("liquidity after crossing = %s", h.pool.Liquidity().Dec())
	}
	if gx, _ := h.pool.FeeGrowthGlobal(); gx.Dec() != "438042533688998" {
		t.Errorf("fee growth = %s", gx.Dec())
	}
	crossed, _ := h.pool.Tick(-100)
	if crossed.FeeGrowthOutsideX.Dec() != "46252136307481" {
		t.Errorf("crossed tick outside = %s", crossed.FeeGrowthOutsideX.Dec())
	}
	untouched, _ := h.pool.Tick(100)
	if !untouched.FeeGrowthOutsideX.IsZero() {
		t.Errorf("uncrossed tick outside = %s", untouched.FeeGrowthOutsideX.Dec())
	}
	h.keep(outX, outY)
	if err := h.pool.Pay(receipt, h.split(h.x, 100_000_000), nil); err != nil {
		t.Fatal(err)
	}

	for _, pos := range []*Position{narrow, wide} {
		if _, _, err := h.pool.ModifyLiquidity(pos, signed.I128{}, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if ox, _ := narrow.CoinsOwed(); ox != 2507 {
		t.Errorf("narrow fees = %d, want 2507", ox)
	}
	if ox, _ := wide.CoinsOwed(); ox != 47492 {
		t.Errorf("wide fees = %d, want 47492", ox)
	}
	h.conserved()
}

func TestSwapPriceLimit(t *testing.T) {
	h, _ := swapPool(t)
	h.mint(-100, 100, 1_000_000_000)

	limit := priceAt(t, -50)
	quote, err := h.pool.QuoteSwap(true, true, 1_000_000_000, limit)
	if err != nil {
		t.Fatal(err)
	}
	if quote.AmountIn != 7512763 || quote.AmountOut != 7490258 || quote.Tick != -50 || !quote.SqrtPrice.Eq(limit) {
		t.Errorf("quote = in %d out %d tick %d", quote.AmountIn, quote.AmountOut, quote.Tick)
	}
	if h.pool.TickIndex() != 0 {
		t.Errorf("quote moved the pool")
	}

	tests := []struct {
		name    string
		xForY   bool
		amount  uint64
		limit   *uint256.Int
		wantErr error
	}{
		{"zero amount", true, 0, minLimit(), ErrZeroAmount},
		{"x for y limit above price", true, 1, priceAt(t, 10), ErrPriceLimitAlreadyExceeded},
		{"x for y limit at price", true, 1, fullmath.Q64, ErrPriceLimitAlreadyExceeded},
		{"x for y limit at min", true, 1, tickmath.MinSqrtPrice, ErrPriceLimitOutOfBounds},
		{"y for x limit below price", false, 1, priceAt(t, -10), ErrPriceLimitAlreadyExceeded},
		{"y for x limit at max", false, 1, tickmath.MaxSqrtPrice, ErrPriceLimitOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := h.pool.Swap(tt.xForY, true, tt.amount, tt.limit); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if h.pool.Locked() {
				t.Errorf("failed swap left pool locked")
			}
		})
	}
}

func TestFlash(t *testing.T) {
	h := newHarness(t, 3000, 60, fullmath.Q64)
	if _, _, _, err := h.pool.Flash(1, 1); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Errorf("flash without liquidity err = %v", err)
	}
	h.mint(-443580, 443580, 2_000_000_000)
	if _, _, _, err := h.pool.Flash(2_000_000_001, 0); !errors.Is(err, ErrInsufficientReserve) {
		t.Errorf("flash over reserves err = %v", err)
	}

	outX, outY, receipt, err := h.pool.Flash(1001, 2001)
	if err != nil {
		t.Fatal(err)
	}
	if dx, dy := receipt.Debts(); dx != 1004 || dy != 2007 {
		t.Fatalf("debts = %d/%d, want 1004/2007", dx, dy)
	}
	h.keep(outX, outY)

	pos, _ := h.pool.OpenPosition(-60, 60)
	if _, _, err := h.pool.ModifyLiquidity(pos, signed.FromInt64(1), h.x, h.y); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("modify during flash err = %v", err)
	}
	if err := h.pool.SetProtocolFeeRate(4); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("fee rate during flash err = %v", err)
	}

	payX, payY := h.split(h.x, 1003), h.split(h.y, 2007)
	if err := h.pool.Repay(receipt, payX, payY); !errors.Is(err, ErrInsufficientInputAmount) {
		t.Fatalf("short repay err = %v", err)
	}
	payX2 := h.split(h.x, 1)
	if _, err := payX.Join(payX2); err != nil {
		t.Fatal(err)
	}
	if err := h.pool.Repay(receipt, payX, payY); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if h.pool.Locked() {
		t.Errorf("pool locked after repay")
	}
	if err := h.pool.Repay(receipt, nil, nil); !errors.Is(err, ErrReceiptConsumed) {
		t.Errorf("second repay err = %v", err)
	}
	if gx, gy := h.pool.FeeGrowthGlobal(); gx.Dec() != "27670116110" || gy.Dec() != "55340232221" {
		t.Errorf("fee growth = %s/%s", gx.Dec(), gy.Dec())
	}
	if rx, ry := h.pool.Reserves(); rx != 2_000_000_003 || ry != 2_000_000_006 {
		t.Errorf("reserves = %d/%d", rx, ry)
	}
	h.conserved()
}

func TestDonateThroughFlash(t *testing.T) {
	h := newHarness(t, 3000, 60, fullmath.Q64)
	h.mint(-443580, 443580, 2_000_000_000)
	if err := h.pool.SetProtocolFeeRate(4 | 4<<4); err != nil {
		t.Fatal(err)
	}

	_, _, receipt, err := h.pool.Flash(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.pool.Repay(receipt, h.split(h.x, 3), h.split(h.y, 6)); err != nil {
		t.Fatal(err)
	}
	if px, py := h.pool.ProtocolFees(); px != 0 || py != 1 {
		t.Errorf("protocol fees = %d/%d", px, py)
	}
	if gx, gy := h.pool.FeeGrowthGlobal(); gx.Dec() != "27670116110" || gy.Dec() != "46116860184" {
		t.Errorf("fee growth = %s/%s", gx.Dec(), gy.Dec())
	}
	h.conserved()
}

func TestSnapshotCumulativesInside(t *testing.T) {
	h, _ := swapPool(t)
	if _, err := h.pool.SnapshotCumulativesInside(-100, 100); !errors.Is(err, ErrTickNotInitialized) {
		t.Errorf("uninitialized range err = %v", err)
	}

	h.clock.set(1030)
	c, err := h.pool.SnapshotCumulativesInside(-443630, 443630)
	if err != nil {
		t.Fatal(err)
	}
	if c.SecondsInside != 30 || c.TickCumulativeInside != 0 {
		t.Errorf("inside = %+v", c)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(30), 128)
	want.Div(want, uint256.NewInt(2_000_000_000))
	if !c.SecondsPerLiquidityInside.Eq(want) {
		t.Errorf("seconds per liquidity inside = %s, want %s", c.SecondsPerLiquidityInside.Dec(), want.Dec())
	}
}

func TestIncreaseObservationCardinalityNext(t *testing.T) {
	h := newHarness(t, 500, 10, fullmath.Q64)
	if next, err := h.pool.IncreaseObservationCardinalityNext(5); err != nil || next != 5 {
		t.Fatalf("grow = %d, %v", next, err)
	}
	if next, err := h.pool.IncreaseObservationCardinalityNext(3); err != nil || next != 5 {
		t.Errorf("shrink = %d, %v", next, err)
	}
	if _, card, next := h.pool.ObservationState(); card != 1 || next != 5 {
		t.Errorf("cardinality = %d/%d", card, next)
	}
	last := h.events.events[len(h.events.events)-1]
	if ev, ok := last.(ObservationCardinalityEvent); !ok || ev.Old != 1 || ev.New != 5 {
		t.Errorf("last event = %#v", last)
	}
}

func TestEventsOrder(t *testing.T) {
	h, _ := swapPool(t)
	outX, outY, receipt, err := h.pool.Swap(true, true, 1000, minLimit())
	if err != nil {
		t.Fatal(err)
	}
	h.keep(outX, outY)
	if err := h.pool.Pay(receipt, h.split(h.x, 1000), nil); err != nil {
		t.Fatal(err)
	}

	want := []string{"pool_created", "initialize", "modify_liquidity", "swap", "pay"}
	if len(h.events.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(h.events.events), len(want))
	}
	for i, e := range h.events.events {
		if e.Kind() != want[i] || e.Pool() != "pool-1" {
			t.Errorf("event %d = %s/%s", i, e.Kind(), e.Pool())
		}
	}
}

func TestExportImport(t *testing.T) {
	h, _ := swapPool(t)
	h.mint(-100, 100, 1_000_000_000)
	outX, outY, receipt, err := h.pool.Swap(true, true, 100_000_000, minLimit())
	if err != nil {
		t.Fatal(err)
	}
	h.keep(outX, outY)
	if err := h.pool.Pay(receipt, h.split(h.x, 100_000_000), nil); err != nil {
		t.Fatal(err)
	}

	restored, err := Import(Config{Clock: h.clock}, h.pool.Export())
	if err != nil {
		t.Fatal(err)
	}
	if restored.ID() != h.pool.ID() || restored.TickIndex() != h.pool.TickIndex() || restored.Locked() {
		t.Errorf("restored header mismatch")
	}
	a, err := h.pool.QuoteSwap(false, true, 50_000_000, maxLimit())
	if err != nil {
		t.Fatal(err)
	}
	b, err := restored.QuoteSwap(false, true, 50_000_000, maxLimit())
	if err != nil {
		t.Fatal(err)
	}
	if a.AmountOut != b.AmountOut || !a.SqrtPrice.Eq(b.SqrtPrice) || a.TicksCrossed != b.TicksCrossed {
		t.Errorf("quotes differ: %+v vs %+v", a, b)
	}

	bad := h.pool.Export()
	bad.TickIndex += 5
	if _, err := Import(Config{}, bad); err == nil {
		t.Errorf("expected error for inconsistent tick")
	}
}

func BenchmarkSwapQuote(b *testing.B) {
	h, _ := swapPool(b)
	h.mint(-100, 100, 1_000_000_000)
	limit := minLimit()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.pool.QuoteSwap(true, true, 100_000_000, limit); err != nil {
			b.Fatal(err)
		}
	}
}
