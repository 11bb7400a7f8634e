// Package fullmath implements full-precision fixed-point kernels over
// 128/256-bit unsigned integers. Products are formed at 512 bits before
// division so intermediate values are never truncated.
package fullmath

import (
	"errors"
	"math"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrMulDivOverflow = errors.New("mul div result overflow")
	ErrU128Overflow   = errors.New("u128 overflow")
	ErrU64Overflow    = errors.New("u64 overflow")
	ErrSubUnderflow   = errors.New("subtraction underflow")
)

var (
	One     = uint256.NewInt(1)
	Q64     = new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	Q128    = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	MaxU64  = uint256.NewInt(math.MaxUint64)
	MaxU128 = new(uint256.Int).Sub(Q128, One)
	MaxU256 = new(uint256.Int).SetAllOne()
)

// MulDivFloor returns floor(a*b/d).
func MulDivFloor(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return z, nil
}

// MulDivCeil returns ceil(a*b/d).
func MulDivCeil(a, b, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivFloor(a, b, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(a, b, d).IsZero() {
		if z.Eq(MaxU256) {
			return nil, ErrMulDivOverflow
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

// MulDivRound returns a*b/d rounded half up.
func MulDivRound(a, b, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivFloor(a, b, d)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, d)
	half := new(uint256.Int).Sub(d, rem)
	if rem.Cmp(half) >= 0 && !rem.IsZero() {
		if z.Eq(MaxU256) {
			return nil, ErrMulDivOverflow
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

// MulShr returns (a*b) >> shift. The product must fit 256 bits.
func MulShr(a, b *uint256.Int, shift uint) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return z.Rsh(z, shift), nil
}

// MulShl returns (a*b) << shift, failing if any bit is lost.
func MulShl(a, b *uint256.Int, shift uint) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	if shift > 0 && z.BitLen()+int(shift) > 256 {
		return nil, ErrMulDivOverflow
	}
	return z.Lsh(z, shift), nil
}

func DivRoundUp(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(a, b, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}

func FitsU128(x *uint256.Int) bool {
	return x[2] == 0 && x[3] == 0
}

func AddU128(a, b *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Add(a, b)
	if !FitsU128(z) {
		return nil, ErrU128Overflow
	}
	return z, nil
}

func SubU128(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrSubUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// WrappingAddU128 returns (a+b) mod 2^128.
func WrappingAddU128(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Add(a, b)
	z[2], z[3] = 0, 0
	return z
}

// WrappingSubU128 returns (a-b) mod 2^128.
func WrappingSubU128(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Sub(a, b)
	z[2], z[3] = 0, 0
	return z
}

// ToU64 narrows x, failing when it does not fit.
func ToU64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrU64Overflow
	}
	return x.Uint64(), nil
}

func MulDivFloorU64(a, b, d uint64) (uint64, error) {
	q, _, err := mulDivU64(a, b, d)
	return q, err
}

func MulDivCeilU64(a, b, d uint64) (uint64, error) {
	q, r, err := mulDivU64(a, b, d)
	if err != nil {
		return 0, err
	}
	if r != 0 {
		if q == math.MaxUint64 {
			return 0, ErrU64Overflow
		}
		q++
	}
	return q, nil
}

// MulDivRoundU64 returns a*b/d rounded half up.
func MulDivRoundU64(a, b, d uint64) (uint64, error) {
	q, r, err := mulDivU64(a, b, d)
	if err != nil {
		return 0, err
	}
	if r != 0 && r >= d-r {
		if q == math.MaxUint64 {
			return 0, ErrU64Overflow
		}
		q++
	}
	return q, nil
}

func mulDivU64(a, b, d uint64) (uint64, uint64, error) {
	if d == 0 {
		return 0, 0, ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, 0, ErrU64Overflow
	}
	q, r := bits.Div64(hi, lo, d)
	return q, r, nil
}

func AddU64(a, b uint64) (uint64, error) {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrU64Overflow
	}
	return s, nil
}
