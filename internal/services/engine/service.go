// Package engine hosts CLMM pools for many accounts. Every pool operation
// runs under that pool's mutex, funds come from the wallet service and
// changed state is flushed to storage in batches.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/clmm-engine/internal/adapters/persistence"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/registry"
	"github.com/hxuan190/clmm-engine/internal/config"
	"github.com/hxuan190/clmm-engine/internal/metrics"
	"github.com/hxuan190/clmm-engine/internal/services"
	"github.com/hxuan190/clmm-engine/internal/services/wallet"
)

const ENGINE_SERVICE = "engine-service"

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrNotOwner         = errors.New("position owned by another account")
	ErrSlippage         = errors.New("slippage limit exceeded")
	ErrUnknownCoin      = errors.New("coin not traded by pool")
	ErrInvalidAccount   = errors.New("invalid account")
)

type positionEntry struct {
	id    string
	owner string
	pos   *pool.Position
}

type Service struct {
	container.BaseDIInstance
	logger  *services.ServiceLogger
	conf    *config.EngineConfig
	wallet  *wallet.Service
	storage *persistence.Storage
	clock   pool.Clock
	events  *eventLog
	pools   *registry.Registry
	newID   func() string

	mu             sync.RWMutex
	locks          map[string]*sync.Mutex
	positions      map[string]*positionEntry
	dirtyPools     map[string]struct{}
	dirtyPositions map[string]struct{}
	tombstones     map[string]persistence.PositionRecord

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an engine outside the DI container. storage may be nil.
func New(conf *config.EngineConfig, w *wallet.Service, storage *persistence.Storage, clock pool.Clock) *Service {
	svc := &Service{}
	svc.init(conf, w, storage, clock)
	return svc
}

func (svc *Service) init(conf *config.EngineConfig, w *wallet.Service, storage *persistence.Storage, clock pool.Clock) {
	if clock == nil {
		clock = pool.SystemClock{}
	}
	svc.logger = services.NewServiceLogger(svc)
	svc.conf = conf
	svc.wallet = w
	svc.storage = storage
	svc.clock = clock
	svc.events = newEventLog(clock, conf.EventBuffer, storage != nil)
	svc.pools = registry.New(clock, svc.events)
	svc.newID = uuid.NewString
	svc.locks = make(map[string]*sync.Mutex)
	svc.positions = make(map[string]*positionEntry)
	svc.dirtyPools = make(map[string]struct{})
	svc.dirtyPositions = make(map[string]struct{})
	svc.tombstones = make(map[string]persistence.PositionRecord)
	svc.stopCh = make(chan struct{})
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	conf := c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	w := c.Instance(wallet.WALLET_SERVICE).(*wallet.Service)

	var storage *persistence.Storage
	if conf.PersistenceEnabled {
		var err error
		if storage, err = persistence.NewStorage(conf.DBPath); err != nil {
			return err
		}
	}
	svc.init(conf, w, storage, pool.SystemClock{})
	return nil
}

func (svc *Service) Start() error {
	if svc.storage != nil {
		svc.load()
		svc.wg.Add(1)
		go svc.processPersistence()
	}
	svc.wg.Add(1)
	go svc.logStats()
	svc.logger.Info().Int("pools", svc.pools.Len()).Int("positions", len(svc.positions)).Msg("[engine] started")
	return nil
}

func (svc *Service) Stop() error {
	close(svc.stopCh)
	svc.wg.Wait()
	if svc.storage == nil {
		return nil
	}
	if err := svc.Flush(); err != nil {
		svc.logger.Error().Err(err).Msg("[engine] failed to persist state on shutdown")
	}
	if err := svc.storage.Close(); err != nil {
		svc.logger.Error().Err(err).Msg("[engine] failed to close storage")
		return err
	}
	return nil
}

// load restores accounts, pools, positions and the event tail.
func (svc *Service) load() {
	accounts, supplies, err := svc.storage.LoadAccounts()
	switch {
	case err != nil:
		svc.logger.Warn().Err(err).Msg("[engine] no stored accounts")
	case len(accounts) > 0 || len(supplies) > 0:
		svc.wallet.Restore(wallet.State{Accounts: accounts, Supplies: supplies})
	}

	states, err := svc.storage.LoadPools()
	if err != nil {
		svc.logger.Warn().Err(err).Msg("[engine] no stored pools")
	}
	for _, st := range states {
		p, err := pool.Import(pool.Config{Clock: svc.clock, Events: svc.events}, st)
		if err != nil {
			svc.logger.Error().Err(err).Str("pool", st.ID).Msg("[engine] failed to import pool, skipping")
			continue
		}
		if err := svc.pools.Register(p); err != nil {
			svc.logger.Error().Err(err).Str("pool", st.ID).Msg("[engine] failed to register pool, skipping")
		}
	}

	records, err := svc.storage.LoadPositions()
	if err != nil {
		svc.logger.Warn().Err(err).Msg("[engine] no stored positions")
	}
	for _, r := range records {
		if r.Closed {
			continue
		}
		pos, err := pool.RestorePosition(r.State)
		if err != nil {
			svc.logger.Error().Err(err).Str("position", r.ID).Msg("[engine] failed to restore position, skipping")
			continue
		}
		svc.positions[r.ID] = &positionEntry{id: r.ID, owner: r.Owner, pos: pos}
	}

	events, err := svc.storage.LoadEvents()
	if err != nil {
		svc.logger.Warn().Err(err).Msg("[engine] no stored events")
	}
	svc.events.seed(events)

	metrics.PoolCount.Set(float64(svc.pools.Len()))
	metrics.PositionCount.Set(float64(len(svc.positions)))
	svc.logger.Info().
		Int("pools", svc.pools.Len()).
		Int("positions", len(svc.positions)).
		Int("events", len(events)).
		Msg("[engine] loaded state from storage")
}

func (svc *Service) processPersistence() {
	defer svc.wg.Done()
	ticker := time.NewTicker(time.Duration(svc.conf.PersistInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopCh:
			return
		case <-ticker.C:
			if err := svc.Flush(); err != nil {
				svc.logger.Error().Err(err).Msg("[engine] failed to persist state")
			}
		}
	}
}

func (svc *Service) logStats() {
	defer svc.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopCh:
			return
		case <-ticker.C:
			svc.mu.RLock()
			open := len(svc.positions)
			svc.mu.RUnlock()
			metrics.PoolCount.Set(float64(svc.pools.Len()))
			metrics.PositionCount.Set(float64(open))
			svc.logger.Info().Int("pools", svc.pools.Len()).Int("positions", open).Msg("[engine] stats")
		}
	}
}

// Flush writes every dirty pool, position and account in one batch. On
// failure everything is queued again.
func (svc *Service) Flush() error {
	if svc.storage == nil {
		return nil
	}
	start := time.Now()

	svc.mu.Lock()
	poolIDs := svc.dirtyPools
	positionIDs := svc.dirtyPositions
	svc.dirtyPools = make(map[string]struct{})
	svc.dirtyPositions = make(map[string]struct{})
	svc.mu.Unlock()

	batch := &persistence.Batch{}
	for id := range poolIDs {
		p, err := svc.pools.GetByID(id)
		if err != nil {
			continue
		}
		lock := svc.poolLock(id)
		lock.Lock()
		batch.Pools = append(batch.Pools, p.Export())
		lock.Unlock()
	}
	for id := range positionIDs {
		svc.mu.RLock()
		entry, ok := svc.positions[id]
		svc.mu.RUnlock()
		if !ok {
			continue
		}
		lock := svc.poolLock(entry.pos.PoolID())
		lock.Lock()
		batch.Positions = append(batch.Positions, persistence.PositionRecord{
			ID:    entry.id,
			Owner: entry.owner,
			State: entry.pos.State(),
		})
		lock.Unlock()
	}
	svc.mu.Lock()
	for id, r := range svc.tombstones {
		batch.Positions = append(batch.Positions, r)
		delete(svc.tombstones, id)
	}
	svc.mu.Unlock()
	batch.Events = svc.events.takePending()
	ws := svc.wallet.TakeDirty()
	if len(ws.Accounts) > 0 {
		batch.Accounts = ws.Accounts
		batch.Supplies = ws.Supplies
	}

	if err := svc.storage.SaveBatch(batch); err != nil {
		metrics.PersistFailures.Inc()
		svc.requeue(batch)
		return fmt.Errorf("save batch: %w", err)
	}

	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	metrics.PersistedRecords.WithLabelValues(persistence.PoolsBucket).Add(float64(len(batch.Pools)))
	metrics.PersistedRecords.WithLabelValues(persistence.PositionsBucket).Add(float64(len(batch.Positions)))
	metrics.PersistedRecords.WithLabelValues(persistence.EventsBucket).Add(float64(len(batch.Events)))
	metrics.PersistedRecords.WithLabelValues(persistence.AccountsBucket).Add(float64(len(batch.Accounts)))
	return nil
}

func (svc *Service) requeue(batch *persistence.Batch) {
	svc.mu.Lock()
	for _, st := range batch.Pools {
		svc.dirtyPools[st.ID] = struct{}{}
	}
	for _, r := range batch.Positions {
		if r.Closed {
			svc.tombstones[r.ID] = r
			continue
		}
		svc.dirtyPositions[r.ID] = struct{}{}
	}
	svc.mu.Unlock()

	svc.events.requeue(batch.Events)
	owners := make([]string, 0, len(batch.Accounts))
	for owner := range batch.Accounts {
		owners = append(owners, owner)
	}
	svc.wallet.MarkDirty(owners...)
}

func (svc *Service) poolLock(id string) *sync.Mutex {
	svc.mu.RLock()
	lock, ok := svc.locks[id]
	svc.mu.RUnlock()
	if ok {
		return lock
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if lock, ok = svc.locks[id]; !ok {
		lock = &sync.Mutex{}
		svc.locks[id] = lock
	}
	return lock
}

// withPool runs fn under the pool's mutex. When mutate is set and fn
// succeeds the pool is marked for the next flush.
func (svc *Service) withPool(id string, mutate bool, fn func(p *pool.Pool) error) error {
	p, err := svc.pools.GetByID(id)
	if err != nil {
		return err
	}
	lock := svc.poolLock(id)
	lock.Lock()
	defer lock.Unlock()
	if err := fn(p); err != nil {
		return err
	}
	if mutate {
		svc.markPool(id)
	}
	return nil
}

func (svc *Service) markPool(id string) {
	svc.mu.Lock()
	svc.dirtyPools[id] = struct{}{}
	svc.mu.Unlock()
}

func (svc *Service) markPosition(id string) {
	svc.mu.Lock()
	svc.dirtyPositions[id] = struct{}{}
	svc.mu.Unlock()
}

// entry looks up a live position owned by owner.
func (svc *Service) entry(owner, id string) (*positionEntry, error) {
	svc.mu.RLock()
	e, ok := svc.positions[id]
	svc.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	if e.owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, id)
	}
	return e, nil
}

// live reports whether e is still the registered entry for its id. Position
// operations call it under the pool lock, after which a close cannot race them.
func (svc *Service) live(e *positionEntry) error {
	svc.mu.RLock()
	cur, ok := svc.positions[e.id]
	svc.mu.RUnlock()
	if !ok || cur != e {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, e.id)
	}
	return nil
}

func sortedIDs(m map[string]*positionEntry) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
