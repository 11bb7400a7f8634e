// Package oracle implements the growable ring buffer of time-weighted tick
// and seconds-per-liquidity accumulators.
package oracle

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
)

// MaxCardinality bounds the ring size.
const MaxCardinality uint64 = 65535

var (
	ErrNotInitialized      = errors.New("oracle not initialized")
	ErrObservationTooOld   = errors.New("observation target older than oldest observation")
	ErrCardinalityExceeded = errors.New("observation cardinality exceeds maximum")
)

type Observation struct {
	Timestamp                     uint64
	TickCumulative                int64
	SecondsPerLiquidityCumulative uint256.Int
	Initialized                   bool
}

// Transform advances last to time assuming tick and liquidity held since
// last.Timestamp. The seconds-per-liquidity accumulator wraps modulo 2^256.
func Transform(last *Observation, time uint64, tick int32, liquidity *uint256.Int) Observation {
	delta := time - last.Timestamp
	divisor := liquidity
	if divisor.IsZero() {
		divisor = fullmath.One
	}
	perLiquidity := new(uint256.Int).Lsh(uint256.NewInt(delta), 128)
	perLiquidity.Div(perLiquidity, divisor)

	next := Observation{
		Timestamp:      time,
		TickCumulative: last.TickCumulative + int64(tick)*int64(delta),
		Initialized:    true,
	}
	next.SecondsPerLiquidityCumulative.Add(&last.SecondsPerLiquidityCumulative, perLiquidity)
	return next
}

type Ring struct {
	observations    []Observation
	index           uint64
	cardinality     uint64
	cardinalityNext uint64
}

func NewRing() *Ring {
	return &Ring{}
}

// Initialize seeds slot 0 at time.
func (r *Ring) Initialize(time uint64) {
	r.observations = []Observation{{Timestamp: time, Initialized: true}}
	r.index = 0
	r.cardinality = 1
	r.cardinalityNext = 1
}

func (r *Ring) Index() uint64           { return r.index }
func (r *Ring) Cardinality() uint64     { return r.cardinality }
func (r *Ring) CardinalityNext() uint64 { return r.cardinalityNext }

// LastTimestamp is the time of the most recent observation.
func (r *Ring) LastTimestamp() uint64 {
	if r.cardinality == 0 {
		return 0
	}
	return r.observations[r.index].Timestamp
}

// At returns the observation stored in slot i.
func (r *Ring) At(i uint64) (Observation, bool) {
	if i >= uint64(len(r.observations)) {
		return Observation{}, false
	}
	return r.observations[i], true
}

// Write records tick and liquidity as they were up to time. It is a no-op
// when an observation already exists for time. Reports whether a slot was written.
func (r *Ring) Write(time uint64, tick int32, liquidity *uint256.Int) bool {
	last := &r.observations[r.index]
	if last.Timestamp >= time {
		return false
	}

	cardinality := r.cardinality
	if r.cardinalityNext > r.cardinality && r.index == r.cardinality-1 {
		cardinality = r.cardinalityNext
	}

	next := (r.index + 1) % cardinality
	r.observations[next] = Transform(last, time, tick, liquidity)
	r.index = next
	r.cardinality = cardinality
	return true
}

// Grow preallocates slots up to next. Slots only join the ring once the
// write index wraps onto them. Returns the resulting cardinality next.
func (r *Ring) Grow(next uint64) (uint64, error) {
	if r.cardinality == 0 {
		return 0, ErrNotInitialized
	}
	if next > MaxCardinality {
		return 0, fmt.Errorf("%w: %d", ErrCardinalityExceeded, next)
	}
	if next <= r.cardinalityNext {
		return r.cardinalityNext, nil
	}
	for i := r.cardinalityNext; i < next; i++ {
		// non-zero timestamp marks the slot allocated
		r.observations = append(r.observations, Observation{Timestamp: 1})
	}
	r.cardinalityNext = next
	return next, nil
}

// ObserveSingle returns the accumulators as of secondsAgo before time,
// interpolating between surrounding observations when needed.
func (r *Ring) ObserveSingle(time, secondsAgo uint64, tick int32, liquidity *uint256.Int) (int64, *uint256.Int, error) {
	if r.cardinality == 0 {
		return 0, nil, ErrNotInitialized
	}
	if secondsAgo == 0 {
		last := r.observations[r.index]
		if last.Timestamp != time {
			last = Transform(&last, time, tick, liquidity)
		}
		return last.TickCumulative, new(uint256.Int).Set(&last.SecondsPerLiquidityCumulative), nil
	}
	if secondsAgo > time {
		return 0, nil, fmt.Errorf("%w: %d seconds ago", ErrObservationTooOld, secondsAgo)
	}

	target := time - secondsAgo
	before, after, err := r.surrounding(target, tick, liquidity)
	if err != nil {
		return 0, nil, err
	}

	switch target {
	case before.Timestamp:
		return before.TickCumulative, new(uint256.Int).Set(&before.SecondsPerLiquidityCumulative), nil
	case after.Timestamp:
		return after.TickCumulative, new(uint256.Int).Set(&after.SecondsPerLiquidityCumulative), nil
	}

	observationDelta := after.Timestamp - before.Timestamp
	targetDelta := target - before.Timestamp
	tickCumulative := before.TickCumulative +
		(after.TickCumulative-before.TickCumulative)/int64(observationDelta)*int64(targetDelta)

	diff := new(uint256.Int).Sub(&after.SecondsPerLiquidityCumulative, &before.SecondsPerLiquidityCumulative)
	scaled, err := fullmath.MulDivFloor(diff, uint256.NewInt(targetDelta), uint256.NewInt(observationDelta))
	if err != nil {
		return 0, nil, err
	}
	return tickCumulative, scaled.Add(scaled, &before.SecondsPerLiquidityCumulative), nil
}

// Observe runs ObserveSingle for each entry of secondsAgos.
func (r *Ring) Observe(time uint64, secondsAgos []uint64, tick int32, liquidity *uint256.Int) ([]int64, []*uint256.Int, error) {
	tickCumulatives := make([]int64, len(secondsAgos))
	perLiquidity := make([]*uint256.Int, len(secondsAgos))
	for i, ago := range secondsAgos {
		tc, spl, err := r.ObserveSingle(time, ago, tick, liquidity)
		if err != nil {
			return nil, nil, err
		}
		tickCumulatives[i] = tc
		perLiquidity[i] = spl
	}
	return tickCumulatives, perLiquidity, nil
}

func (r *Ring) surrounding(target uint64, tick int32, liquidity *uint256.Int) (Observation, Observation, error) {
	before := r.observations[r.index]
	if before.Timestamp <= target {
		if before.Timestamp == target {
			return before, before, nil
		}
		return before, Transform(&before, target, tick, liquidity), nil
	}

	oldest := r.observations[(r.index+1)%r.cardinality]
	if !oldest.Initialized {
		oldest = r.observations[0]
	}
	if target < oldest.Timestamp {
		return Observation{}, Observation{}, fmt.Errorf("%w: target %d oldest %d", ErrObservationTooOld, target, oldest.Timestamp)
	}
	return r.binarySearch(target)
}

func (r *Ring) binarySearch(target uint64) (Observation, Observation, error) {
	l := (r.index + 1) % r.cardinality
	h := l + r.cardinality - 1
	for l <= h {
		i := (l + h) / 2
		before := r.observations[i%r.cardinality]
		if !before.Initialized {
			l = i + 1
			continue
		}
		after := r.observations[(i+1)%r.cardinality]

		atOrAfter := before.Timestamp <= target
		if atOrAfter && target <= after.Timestamp {
			return before, after, nil
		}
		if !atOrAfter {
			if i == 0 {
				break
			}
			h = i - 1
		} else {
			l = i + 1
		}
	}
	return Observation{}, Observation{}, fmt.Errorf("%w: target %d", ErrObservationTooOld, target)
}

// Snapshot is the persisted form of the ring.
type Snapshot struct {
	Observations    []Observation
	Index           uint64
	Cardinality     uint64
	CardinalityNext uint64
}

func (r *Ring) Snapshot() Snapshot {
	obs := make([]Observation, len(r.observations))
	copy(obs, r.observations)
	return Snapshot{
		Observations:    obs,
		Index:           r.index,
		Cardinality:     r.cardinality,
		CardinalityNext: r.cardinalityNext,
	}
}

func (r *Ring) Restore(s Snapshot) error {
	if s.Cardinality > s.CardinalityNext || s.CardinalityNext != uint64(len(s.Observations)) ||
		(s.Cardinality > 0 && s.Index >= s.Cardinality) {
		return fmt.Errorf("inconsistent oracle snapshot: index %d cardinality %d/%d slots %d",
			s.Index, s.Cardinality, s.CardinalityNext, len(s.Observations))
	}
	r.observations = make([]Observation, len(s.Observations))
	copy(r.observations, s.Observations)
	r.index = s.Index
	r.cardinality = s.Cardinality
	r.cardinalityNext = s.CardinalityNext
	return nil
}
