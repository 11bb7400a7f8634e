// Package tickmath converts between tick indices and Q64.64 square-root
// prices, where price = 1.0001^tick.
package tickmath

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
)

const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

var (
	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")
	ErrInvalidTickSpacing   = errors.New("invalid tick spacing")
)

var (
	MinSqrtPrice = uint256.MustFromDecimal("4295048016")
	MaxSqrtPrice = uint256.MustFromDecimal("79226673515401279992447579055")
)

// Floor of 2^64 / sqrt(1.0001)^(2^i).
var negRatios = mustDecimals(
	"18445821805675392311",
	"18444899583751176498",
	"18443055278223354162",
	"18439367220385604838",
	"18431993317065449817",
	"18417254355718160513",
	"18387811781193591352",
	"18329067761203520168",
	"18212142134806087854",
	"17980523815641551639",
	"17526086738831147013",
	"16651378430235024244",
	"15030750278693429944",
	"12247334978882834399",
	"8131365268884726200",
	"3584323654723342297",
	"696457651847595233",
	"26294789957452057",
	"37481735321082",
)

// Floor of 2^96 * sqrt(1.0001)^(2^i).
var posRatios = mustDecimals(
	"79232123823359799118286999567",
	"79236085330515764027303304731",
	"79244008939048815603706035061",
	"79259858533276714757314932305",
	"79291567232598584799939703904",
	"79355022692464371645785046466",
	"79482085999252804386437311141",
	"79736823300114093921829183326",
	"80248749790819932309965073892",
	"81282483887344747381513967011",
	"83390072131320151908154831281",
	"87770609709833776024991924138",
	"97234110755111693312479820773",
	"119332217159966728226237229890",
	"179736315981702064433883588727",
	"407748233172238350107850275304",
	"2098478828474011932436660412517",
	"55581415166113811149459800483533",
	"38992368544603139932233054999993551",
)

var q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

func mustDecimals(values ...string) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = uint256.MustFromDecimal(v)
	}
	return out
}

// SqrtPriceAtTick returns sqrt(1.0001^tick) as a Q64.64 value.
func SqrtPriceAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	if tick < 0 {
		return negativeTickRatio(uint32(-tick)), nil
	}
	return positiveTickRatio(uint32(tick)), nil
}

func negativeTickRatio(abs uint32) *uint256.Int {
	ratio := new(uint256.Int).Set(fullmath.Q64)
	if abs&1 != 0 {
		ratio.Set(negRatios[0])
	}
	for i := 1; i < len(negRatios); i++ {
		if abs&(1<<i) != 0 {
			ratio.Mul(ratio, negRatios[i])
			ratio.Rsh(ratio, 64)
		}
	}
	return ratio
}

func positiveTickRatio(abs uint32) *uint256.Int {
	ratio := new(uint256.Int).Set(q96)
	if abs&1 != 0 {
		ratio.Set(posRatios[0])
	}
	for i := 1; i < len(posRatios); i++ {
		if abs&(1<<i) != 0 {
			ratio.Mul(ratio, posRatios[i])
			ratio.Rsh(ratio, 96)
		}
	}
	return ratio.Rsh(ratio, 32)
}

// TickAtSqrtPrice returns the greatest tick whose sqrt price is <= sqrtPrice.
func TickAtSqrtPrice(sqrtPrice *uint256.Int) (int32, error) {
	if sqrtPrice.Lt(MinSqrtPrice) || sqrtPrice.Gt(MaxSqrtPrice) {
		return 0, fmt.Errorf("%w: %s", ErrSqrtPriceOutOfBounds, sqrtPrice.Dec())
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		p, err := SqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if p.Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// MinUsableTick is the smallest tick aligned to spacing.
func MinUsableTick(spacing uint32) int32 {
	return MinTick / int32(spacing) * int32(spacing)
}

// MaxUsableTick is the largest tick aligned to spacing.
func MaxUsableTick(spacing uint32) int32 {
	return MaxTick / int32(spacing) * int32(spacing)
}

// MaxLiquidityPerTick spreads the u128 liquidity space evenly over every
// usable tick for the spacing.
func MaxLiquidityPerTick(spacing uint32) (*uint256.Int, error) {
	if spacing == 0 || int64(spacing) > int64(MaxTick) {
		return nil, ErrInvalidTickSpacing
	}
	numTicks := uint64((MaxUsableTick(spacing)-MinUsableTick(spacing))/int32(spacing)) + 1
	return new(uint256.Int).Div(fullmath.MaxU128, uint256.NewInt(numTicks)), nil
}

// IsValidIndex reports whether tick lies in range and on the spacing grid.
func IsValidIndex(tick int32, spacing uint32) bool {
	if spacing == 0 || tick < MinTick || tick > MaxTick {
		return false
	}
	return tick%int32(spacing) == 0
}
