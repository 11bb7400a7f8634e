package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
)

const (
	PoolsBucket     = "pools"
	PositionsBucket = "positions"
	EventsBucket    = "events"
	AccountsBucket  = "accounts"
	SuppliesBucket  = "supplies"

	DefaultDBPath = "./data/clmm.db"
)

type StoredPool struct {
	ID               string `json:"id"`
	CoinX            string `json:"coinX"`
	CoinY            string `json:"coinY"`
	SwapFeeRate      uint64 `json:"swapFeeRate"`
	TickSpacing      uint32 `json:"tickSpacing"`
	SqrtPrice        string `json:"sqrtPrice"`
	TickIndex        int32  `json:"tickIndex"`
	Liquidity        string `json:"liquidity"`
	FeeGrowthGlobalX string `json:"feeGrowthGlobalX"`
	FeeGrowthGlobalY string `json:"feeGrowthGlobalY"`
	ProtocolFeeRate  uint8  `json:"protocolFeeRate"`
	ProtocolFeeX     uint64 `json:"protocolFeeX"`
	ProtocolFeeY     uint64 `json:"protocolFeeY"`
	ReserveX         uint64 `json:"reserveX"`
	ReserveY         uint64 `json:"reserveY"`
	Locked           bool   `json:"locked"`

	// State holds ticks, bitmap words and oracle slots, Borsh encoded.
	State []byte `json:"state"`
}

type StoredPosition struct {
	ID                   string `json:"id"`
	Owner                string `json:"owner"`
	Closed               bool   `json:"closed"`
	PoolID               string `json:"poolId"`
	CoinX                string `json:"coinX"`
	CoinY                string `json:"coinY"`
	FeeRate              uint64 `json:"feeRate"`
	TickLower            int32  `json:"tickLower"`
	TickUpper            int32  `json:"tickUpper"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthInsideXLast string `json:"feeGrowthInsideXLast"`
	FeeGrowthInsideYLast string `json:"feeGrowthInsideYLast"`
	CoinsOwedX           uint64 `json:"coinsOwedX"`
	CoinsOwedY           uint64 `json:"coinsOwedY"`
}

// PositionRecord is a position together with its engine metadata. Closed
// positions are kept as tombstones.
type PositionRecord struct {
	ID     string
	Owner  string
	Closed bool
	State  pool.PositionState
}

// EventRecord is one pool event. Data is the event encoded as JSON.
type EventRecord struct {
	Seq         uint64          `json:"seq"`
	TimestampMs uint64          `json:"timestampMs"`
	Kind        string          `json:"kind"`
	PoolID      string          `json:"poolId"`
	Data        json.RawMessage `json:"data"`
}

// Batch is one atomic write of everything changed since the last flush.
type Batch struct {
	Pools     []pool.State
	Positions []PositionRecord
	Events    []EventRecord
	Accounts  map[string]map[balance.CoinType]uint64
	Supplies  map[balance.CoinType]uint64
}

func (b *Batch) Empty() bool {
	return len(b.Pools) == 0 && len(b.Positions) == 0 && len(b.Events) == 0 &&
		len(b.Accounts) == 0 && len(b.Supplies) == 0
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[storage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func eventKey(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// SaveBatch writes every record of b in one bolt batch.
func (s *Storage) SaveBatch(b *Batch) error {
	if b.Empty() {
		return nil
	}

	batch := s.db.NewBatch()
	add := func(bucket, key string, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s/%s: %w", bucket, key, err)
		}
		value := data
		return batch.Add(&boltdb.WriteOperation{
			Bucket: []byte(bucket),
			Key:    []byte(key),
			Value:  &value,
			Op:     boltdb.OpSet,
		})
	}

	for i := range b.Pools {
		stored, err := poolToStored(&b.Pools[i])
		if err != nil {
			return err
		}
		if err := add(PoolsBucket, stored.ID, stored); err != nil {
			return err
		}
	}
	for i := range b.Positions {
		stored := positionToStored(&b.Positions[i])
		if err := add(PositionsBucket, stored.ID, stored); err != nil {
			return err
		}
	}
	for i := range b.Events {
		if err := add(EventsBucket, eventKey(b.Events[i].Seq), &b.Events[i]); err != nil {
			return err
		}
	}
	for owner, acc := range b.Accounts {
		if err := add(AccountsBucket, owner, acc); err != nil {
			return err
		}
	}
	for coin, total := range b.Supplies {
		if err := add(SuppliesBucket, string(coin), total); err != nil {
			return err
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).
			Int("pools", len(b.Pools)).
			Int("positions", len(b.Positions)).
			Int("events", len(b.Events)).
			Msg("[storage] FAILED to execute batch")
		return err
	}

	log.Debug().
		Int("pools", len(b.Pools)).
		Int("positions", len(b.Positions)).
		Int("events", len(b.Events)).
		Int("accounts", len(b.Accounts)).
		Msg("[storage] saved batch")
	return nil
}

func (s *Storage) LoadPools() ([]pool.State, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	states := make([]pool.State, 0, len(data))
	failed := 0
	for id, value := range data {
		var stored StoredPool
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("pool", id).Err(err).Msg("[storage] failed to unmarshal pool, skipping")
			failed++
			continue
		}
		state, err := storedToPool(&stored)
		if err != nil {
			log.Error().Str("pool", id).Err(err).Msg("[storage] failed to convert stored pool, skipping")
			failed++
			continue
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })

	log.Info().
		Int("total_in_db", len(data)).
		Int("loaded", len(states)).
		Int("failed", failed).
		Msg("[storage] pool loading completed")
	return states, nil
}

func (s *Storage) LoadPositions() ([]PositionRecord, error) {
	data, err := s.db.List(PositionsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	records := make([]PositionRecord, 0, len(data))
	for id, value := range data {
		var stored StoredPosition
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("position", id).Err(err).Msg("[storage] failed to unmarshal position, skipping")
			continue
		}
		record, err := storedToPosition(&stored)
		if err != nil {
			log.Error().Str("position", id).Err(err).Msg("[storage] failed to convert stored position, skipping")
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// LoadEvents returns every stored event ordered by sequence number.
func (s *Storage) LoadEvents() ([]EventRecord, error) {
	data, err := s.db.List(EventsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]EventRecord, 0, len(data))
	for key, value := range data {
		var e EventRecord
		if err := sonic.Unmarshal(value, &e); err != nil {
			log.Warn().Str("key", key).Err(err).Msg("[storage] failed to unmarshal event, skipping")
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}

func (s *Storage) LoadAccounts() (map[string]map[balance.CoinType]uint64, map[balance.CoinType]uint64, error) {
	accData, err := s.db.List(AccountsBucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	supplyData, err := s.db.List(SuppliesBucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list supplies: %w", err)
	}

	accounts := make(map[string]map[balance.CoinType]uint64, len(accData))
	for owner, value := range accData {
		var acc map[balance.CoinType]uint64
		if err := sonic.Unmarshal(value, &acc); err != nil {
			return nil, nil, fmt.Errorf("account %s: %w", owner, err)
		}
		accounts[owner] = acc
	}
	supplies := make(map[balance.CoinType]uint64, len(supplyData))
	for coin, value := range supplyData {
		var total uint64
		if err := sonic.Unmarshal(value, &total); err != nil {
			return nil, nil, fmt.Errorf("supply %s: %w", coin, err)
		}
		supplies[balance.CoinType(coin)] = total
	}
	return accounts, supplies, nil
}

func poolToStored(st *pool.State) (*StoredPool, error) {
	blob, err := encodePoolBlob(st.Ticks, st.BitmapWords, st.Observations)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", st.ID, err)
	}
	return &StoredPool{
		ID:               st.ID,
		CoinX:            string(st.CoinX),
		CoinY:            string(st.CoinY),
		SwapFeeRate:      st.SwapFeeRate,
		TickSpacing:      st.TickSpacing,
		SqrtPrice:        decimalString(&st.SqrtPrice),
		TickIndex:        st.TickIndex,
		Liquidity:        decimalString(&st.Liquidity),
		FeeGrowthGlobalX: decimalString(&st.FeeGrowthGlobalX),
		FeeGrowthGlobalY: decimalString(&st.FeeGrowthGlobalY),
		ProtocolFeeRate:  st.ProtocolFeeRate,
		ProtocolFeeX:     st.ProtocolFeeX,
		ProtocolFeeY:     st.ProtocolFeeY,
		ReserveX:         st.ReserveX,
		ReserveY:         st.ReserveY,
		Locked:           st.Locked,
		State:            blob,
	}, nil
}

func storedToPool(stored *StoredPool) (pool.State, error) {
	st := pool.State{
		ID:              stored.ID,
		CoinX:           balance.CoinType(stored.CoinX),
		CoinY:           balance.CoinType(stored.CoinY),
		SwapFeeRate:     stored.SwapFeeRate,
		TickSpacing:     stored.TickSpacing,
		TickIndex:       stored.TickIndex,
		ProtocolFeeRate: stored.ProtocolFeeRate,
		ProtocolFeeX:    stored.ProtocolFeeX,
		ProtocolFeeY:    stored.ProtocolFeeY,
		ReserveX:        stored.ReserveX,
		ReserveY:        stored.ReserveY,
		Locked:          stored.Locked,
	}
	var err error
	if st.SqrtPrice, err = parseDecimal("sqrtPrice", stored.SqrtPrice); err != nil {
		return st, err
	}
	if st.Liquidity, err = parseDecimal("liquidity", stored.Liquidity); err != nil {
		return st, err
	}
	if st.FeeGrowthGlobalX, err = parseDecimal("feeGrowthGlobalX", stored.FeeGrowthGlobalX); err != nil {
		return st, err
	}
	if st.FeeGrowthGlobalY, err = parseDecimal("feeGrowthGlobalY", stored.FeeGrowthGlobalY); err != nil {
		return st, err
	}
	st.Ticks, st.BitmapWords, st.Observations, err = decodePoolBlob(stored.State)
	return st, err
}

func positionToStored(r *PositionRecord) *StoredPosition {
	return &StoredPosition{
		ID:                   r.ID,
		Owner:                r.Owner,
		Closed:               r.Closed,
		PoolID:               r.State.PoolID,
		CoinX:                string(r.State.CoinX),
		CoinY:                string(r.State.CoinY),
		FeeRate:              r.State.FeeRate,
		TickLower:            r.State.TickLower,
		TickUpper:            r.State.TickUpper,
		Liquidity:            decimalString(&r.State.Liquidity),
		FeeGrowthInsideXLast: decimalString(&r.State.FeeGrowthInsideXLast),
		FeeGrowthInsideYLast: decimalString(&r.State.FeeGrowthInsideYLast),
		CoinsOwedX:           r.State.CoinsOwedX,
		CoinsOwedY:           r.State.CoinsOwedY,
	}
}

func storedToPosition(stored *StoredPosition) (PositionRecord, error) {
	r := PositionRecord{
		ID:     stored.ID,
		Owner:  stored.Owner,
		Closed: stored.Closed,
		State: pool.PositionState{
			PoolID:     stored.PoolID,
			CoinX:      balance.CoinType(stored.CoinX),
			CoinY:      balance.CoinType(stored.CoinY),
			FeeRate:    stored.FeeRate,
			TickLower:  stored.TickLower,
			TickUpper:  stored.TickUpper,
			CoinsOwedX: stored.CoinsOwedX,
			CoinsOwedY: stored.CoinsOwedY,
		},
	}
	var err error
	if r.State.Liquidity, err = parseDecimal("liquidity", stored.Liquidity); err != nil {
		return r, err
	}
	if r.State.FeeGrowthInsideXLast, err = parseDecimal("feeGrowthInsideXLast", stored.FeeGrowthInsideXLast); err != nil {
		return r, err
	}
	if r.State.FeeGrowthInsideYLast, err = parseDecimal("feeGrowthInsideYLast", stored.FeeGrowthInsideYLast); err != nil {
		return r, err
	}
	return r, nil
}
