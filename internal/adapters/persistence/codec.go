package persistence

import (
	"bytes"
	"fmt"
	"sort"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/oracle"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
)

// Borsh layout of the per-tick, bitmap and oracle state of one pool.
type storedTick struct {
	Index                      int32
	LiquidityGross             [4]uint64
	LiquidityNetHi             uint64
	LiquidityNetLo             uint64
	FeeGrowthOutsideX          [4]uint64
	FeeGrowthOutsideY          [4]uint64
	TickCumulativeOutside      int64
	SecondsPerLiquidityOutside [4]uint64
	SecondsOutside             uint64
	Initialized                bool
}

type storedWord struct {
	Word int32
	Bits [4]uint64
}

type storedObservation struct {
	Timestamp                     uint64
	TickCumulative                int64
	SecondsPerLiquidityCumulative [4]uint64
	Initialized                   bool
}

type poolBlob struct {
	Ticks           []storedTick
	Words           []storedWord
	Observations    []storedObservation
	Index           uint64
	Cardinality     uint64
	CardinalityNext uint64
}

func encodePoolBlob(ticks map[int32]tick.Info, words map[int32]uint256.Int, obs oracle.Snapshot) ([]byte, error) {
	blob := poolBlob{
		Ticks:           make([]storedTick, 0, len(ticks)),
		Words:           make([]storedWord, 0, len(words)),
		Observations:    make([]storedObservation, 0, len(obs.Observations)),
		Index:           obs.Index,
		Cardinality:     obs.Cardinality,
		CardinalityNext: obs.CardinalityNext,
	}
	for index, info := range ticks {
		hi, lo := info.LiquidityNet.Bits()
		blob.Ticks = append(blob.Ticks, storedTick{
			Index:                      index,
			LiquidityGross:             [4]uint64(info.LiquidityGross),
			LiquidityNetHi:             hi,
			LiquidityNetLo:             lo,
			FeeGrowthOutsideX:          [4]uint64(info.FeeGrowthOutsideX),
			FeeGrowthOutsideY:          [4]uint64(info.FeeGrowthOutsideY),
			TickCumulativeOutside:      info.TickCumulativeOutside,
			SecondsPerLiquidityOutside: [4]uint64(info.SecondsPerLiquidityOutside),
			SecondsOutside:             info.SecondsOutside,
			Initialized:                info.Initialized,
		})
	}
	sort.Slice(blob.Ticks, func(i, j int) bool { return blob.Ticks[i].Index < blob.Ticks[j].Index })
	for word, bits := range words {
		blob.Words = append(blob.Words, storedWord{Word: word, Bits: [4]uint64(bits)})
	}
	sort.Slice(blob.Words, func(i, j int) bool { return blob.Words[i].Word < blob.Words[j].Word })
	for _, o := range obs.Observations {
		blob.Observations = append(blob.Observations, storedObservation{
			Timestamp:                     o.Timestamp,
			TickCumulative:                o.TickCumulative,
			SecondsPerLiquidityCumulative: [4]uint64(o.SecondsPerLiquidityCumulative),
			Initialized:                   o.Initialized,
		})
	}

	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(&blob); err != nil {
		return nil, fmt.Errorf("encode pool blob: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePoolBlob(data []byte) (map[int32]tick.Info, map[int32]uint256.Int, oracle.Snapshot, error) {
	var blob poolBlob
	if err := bin.NewBorshDecoder(data).Decode(&blob); err != nil {
		return nil, nil, oracle.Snapshot{}, fmt.Errorf("decode pool blob: %w", err)
	}
	ticks := make(map[int32]tick.Info, len(blob.Ticks))
	for _, st := range blob.Ticks {
		ticks[st.Index] = tick.Info{
			LiquidityGross:             uint256.Int(st.LiquidityGross),
			LiquidityNet:               signed.FromBits(st.LiquidityNetHi, st.LiquidityNetLo),
			FeeGrowthOutsideX:          uint256.Int(st.FeeGrowthOutsideX),
			FeeGrowthOutsideY:          uint256.Int(st.FeeGrowthOutsideY),
			TickCumulativeOutside:      st.TickCumulativeOutside,
			SecondsPerLiquidityOutside: uint256.Int(st.SecondsPerLiquidityOutside),
			SecondsOutside:             st.SecondsOutside,
			Initialized:                st.Initialized,
		}
	}
	words := make(map[int32]uint256.Int, len(blob.Words))
	for _, w := range blob.Words {
		words[w.Word] = uint256.Int(w.Bits)
	}
	obs := oracle.Snapshot{
		Observations:    make([]oracle.Observation, 0, len(blob.Observations)),
		Index:           blob.Index,
		Cardinality:     blob.Cardinality,
		CardinalityNext: blob.CardinalityNext,
	}
	for _, so := range blob.Observations {
		obs.Observations = append(obs.Observations, oracle.Observation{
			Timestamp:                     so.Timestamp,
			TickCumulative:                so.TickCumulative,
			SecondsPerLiquidityCumulative: uint256.Int(so.SecondsPerLiquidityCumulative),
			Initialized:                   so.Initialized,
		})
	}
	return ticks, words, obs, nil
}

func decimalString(x *uint256.Int) string {
	return x.Dec()
}

func parseDecimal(field, s string) (uint256.Int, error) {
	var out uint256.Int
	if err := out.SetFromDecimal(s); err != nil {
		return out, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return out, nil
}
