package engine

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/clmm-engine/internal/adapters/persistence"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/metrics"
)

// eventLog is the pool.EventSink shared by every pool. It numbers events,
// keeps the most recent ones in memory and queues them for storage.
type eventLog struct {
	mu      sync.Mutex
	clock   pool.Clock
	seq     uint64
	limit   int
	recent  []persistence.EventRecord
	pending []persistence.EventRecord
	persist bool
}

func newEventLog(clock pool.Clock, limit int, persist bool) *eventLog {
	return &eventLog{clock: clock, limit: limit, persist: persist}
}

func (l *eventLog) Emit(e pool.Event) {
	data, err := sonic.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("kind", e.Kind()).Msg("[engine] failed to encode event")
		data = []byte("null")
	}

	l.mu.Lock()
	l.seq++
	rec := persistence.EventRecord{
		Seq:         l.seq,
		TimestampMs: l.clock.NowMs(),
		Kind:        e.Kind(),
		PoolID:      e.Pool(),
		Data:        data,
	}
	l.push(rec)
	if l.persist {
		l.pending = append(l.pending, rec)
	}
	l.mu.Unlock()

	metrics.PoolEvents.WithLabelValues(e.Kind()).Inc()
	log.Debug().Uint64("seq", rec.Seq).Str("pool", rec.PoolID).Str("kind", rec.Kind).RawJSON("event", data).Msg("[engine] event")
}

func (l *eventLog) push(rec persistence.EventRecord) {
	if len(l.recent) >= l.limit {
		copy(l.recent, l.recent[1:])
		l.recent = l.recent[:len(l.recent)-1]
	}
	l.recent = append(l.recent, rec)
}

// Recent returns up to limit of the newest events, oldest first. An empty
// poolID matches every pool.
func (l *eventLog) Recent(poolID string, limit int) []persistence.EventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]persistence.EventRecord, 0, limit)
	for i := len(l.recent) - 1; i >= 0 && len(out) < limit; i-- {
		if poolID == "" || l.recent[i].PoolID == poolID {
			out = append(out, l.recent[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (l *eventLog) takePending() []persistence.EventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = nil
	return out
}

func (l *eventLog) requeue(records []persistence.EventRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(records, l.pending...)
}

// seed restores numbering and the in-memory tail from stored events.
func (l *eventLog) seed(records []persistence.EventRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		if rec.Seq > l.seq {
			l.seq = rec.Seq
		}
		l.push(rec)
	}
}
