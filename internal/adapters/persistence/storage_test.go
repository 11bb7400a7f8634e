package persistence

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

type clock struct{ ms uint64 }

func (c *clock) NowMs() uint64 { return c.ms }

// tradedPool returns a pool with two positions, a few swaps and a grown oracle.
func tradedPool(t *testing.T) (*pool.Pool, *pool.Position) {
	t.Helper()
	c := &clock{ms: 1_000_000}
	p, err := pool.New(pool.Config{ID: "p1", CoinX: "X", CoinY: "Y", SwapFeeRate: 500, TickSpacing: 10, Clock: c})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(fullmath.Q64); err != nil {
		t.Fatal(err)
	}
	if _, err := p.IncreaseObservationCardinalityNext(4); err != nil {
		t.Fatal(err)
	}
	wide, _ := p.OpenPosition(tickmath.MinUsableTick(10), tickmath.MaxUsableTick(10))
	narrow, _ := p.OpenPosition(-100, 100)
	for _, pos := range []*pool.Position{wide, narrow} {
		if _, _, err := p.ModifyLiquidity(pos, signed.FromInt64(1_000_000_000), balance.New("X", 1<<40), balance.New("Y", 1<<40)); err != nil {
			t.Fatal(err)
		}
	}
	for i, xForY := range []bool{true, false, true} {
		c.ms += 15_000
		limit := new(uint256.Int).Add(tickmath.MinSqrtPrice, fullmath.One)
		if !xForY {
			limit = new(uint256.Int).Sub(tickmath.MaxSqrtPrice, fullmath.One)
		}
		_, _, receipt, err := p.Swap(xForY, true, uint64(5_000_000*(i+1)), limit)
		if err != nil {
			t.Fatal(err)
		}
		dx, dy := receipt.Debts()
		if err := p.Pay(receipt, balance.New("X", dx), balance.New("Y", dy)); err != nil {
			t.Fatal(err)
		}
	}
	return p, narrow
}

func TestPoolBlobRoundTrip(t *testing.T) {
	p, _ := tradedPool(t)
	want := p.Export()

	stored, err := poolToStored(&want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := storedToPool(stored)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if _, err := pool.Import(pool.Config{}, got); err != nil {
		t.Fatalf("import decoded state: %v", err)
	}
}

func TestStoredToPoolRejectsBadNumbers(t *testing.T) {
	p, _ := tradedPool(t)
	st := p.Export()
	stored, _ := poolToStored(&st)
	stored.Liquidity = "-12"
	if _, err := storedToPool(stored); err == nil {
		t.Errorf("negative liquidity accepted")
	}
	stored, _ = poolToStored(&st)
	stored.State = []byte{1, 2, 3}
	if _, err := storedToPool(stored); err == nil {
		t.Errorf("truncated blob accepted")
	}
}

func TestStorageRoundTrip(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "data", "clmm.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p, pos := tradedPool(t)
	state := p.Export()
	batch := &Batch{
		Pools:     []pool.State{state},
		Positions: []PositionRecord{{ID: "pos-1", Owner: "alice", State: pos.State()}},
		Events: []EventRecord{
			{Seq: 2, Kind: "swap", PoolID: "p1", Data: []byte(`{"amount_in":5}`)},
			{Seq: 1, Kind: "initialize", PoolID: "p1", Data: []byte(`{}`)},
		},
		Accounts: map[string]map[balance.CoinType]uint64{"alice": {"X": 10, "Y": 20}},
		Supplies: map[balance.CoinType]uint64{"X": 10, "Y": 20},
	}
	if err := s.SaveBatch(batch); err != nil {
		t.Fatal(err)
	}

	pools, err := s.LoadPools()
	if err != nil || len(pools) != 1 || !reflect.DeepEqual(pools[0], state) {
		t.Fatalf("LoadPools = %d pools, %v", len(pools), err)
	}
	positions, err := s.LoadPositions()
	if err != nil || len(positions) != 1 {
		t.Fatalf("LoadPositions = %v, %v", positions, err)
	}
	if positions[0].Owner != "alice" || !reflect.DeepEqual(positions[0].State, pos.State()) {
		t.Errorf("position = %+v", positions[0])
	}
	events, err := s.LoadEvents()
	if err != nil || len(events) != 2 || events[0].Seq != 1 || events[1].Kind != "swap" {
		t.Fatalf("LoadEvents = %+v, %v", events, err)
	}
	accounts, supplies, err := s.LoadAccounts()
	if err != nil || accounts["alice"]["Y"] != 20 || supplies["X"] != 10 {
		t.Fatalf("LoadAccounts = %v %v %v", accounts, supplies, err)
	}

	if err := s.SaveBatch(&Batch{}); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
