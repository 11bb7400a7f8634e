// Package signed provides fixed-width two's-complement integers that the
// pool math needs beyond Go's native int32/int64.
package signed

import (
	"errors"
	"math/bits"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("signed integer overflow")
	ErrDivisionByZero = errors.New("signed division by zero")
	ErrInvalidString  = errors.New("invalid signed integer string")
)

// I128 is a 128-bit two's-complement integer stored as its unsigned bit pattern.
type I128 struct {
	hi uint64
	lo uint64
}

var (
	MaxI128 = I128{hi: 1<<63 - 1, lo: ^uint64(0)}
	MinI128 = I128{hi: 1 << 63}
)

func FromInt64(v int64) I128 {
	return I128{hi: uint64(v >> 63), lo: uint64(v)}
}

// FromBits builds a value from its raw high and low words.
func FromBits(hi, lo uint64) I128 {
	return I128{hi: hi, lo: lo}
}

// FromU128 converts an unsigned magnitude. Values above MaxI128 are rejected.
func FromU128(u *uint256.Int) (I128, error) {
	if u[2] != 0 || u[3] != 0 || u[1]>>63 != 0 {
		return I128{}, ErrOverflow
	}
	return I128{hi: u[1], lo: u[0]}, nil
}

// NegFromU128 returns -u, accepting magnitudes up to 2^127.
func NegFromU128(u *uint256.Int) (I128, error) {
	if u[2] != 0 || u[3] != 0 {
		return I128{}, ErrOverflow
	}
	v := I128{hi: u[1], lo: u[0]}
	if v.hi>>63 != 0 && v != MinI128 {
		return I128{}, ErrOverflow
	}
	return v.Neg(), nil
}

func (x I128) Bits() (hi, lo uint64) {
	return x.hi, x.lo
}

func (x I128) IsNeg() bool {
	return x.hi>>63 == 1
}

func (x I128) IsZero() bool {
	return x.hi == 0 && x.lo == 0
}

func (x I128) Sign() int {
	switch {
	case x.IsZero():
		return 0
	case x.IsNeg():
		return -1
	default:
		return 1
	}
}

// Neg wraps: Neg(MinI128) == MinI128.
func (x I128) Neg() I128 {
	lo, borrow := bits.Sub64(0, x.lo, 0)
	hi, _ := bits.Sub64(0, x.hi, borrow)
	return I128{hi: hi, lo: lo}
}

// Abs returns the magnitude as an unsigned value, so Abs(MinI128) is 2^127.
func (x I128) Abs() *uint256.Int {
	if x.IsNeg() {
		n := x.Neg()
		return &uint256.Int{n.lo, n.hi, 0, 0}
	}
	return &uint256.Int{x.lo, x.hi, 0, 0}
}

func (x I128) WrappingAdd(y I128) I128 {
	lo, carry := bits.Add64(x.lo, y.lo, 0)
	hi, _ := bits.Add64(x.hi, y.hi, carry)
	return I128{hi: hi, lo: lo}
}

func (x I128) WrappingSub(y I128) I128 {
	lo, borrow := bits.Sub64(x.lo, y.lo, 0)
	hi, _ := bits.Sub64(x.hi, y.hi, borrow)
	return I128{hi: hi, lo: lo}
}

func (x I128) Add(y I128) (I128, error) {
	r := x.WrappingAdd(y)
	if x.IsNeg() == y.IsNeg() && r.IsNeg() != x.IsNeg() {
		return I128{}, ErrOverflow
	}
	return r, nil
}

func (x I128) Sub(y I128) (I128, error) {
	r := x.WrappingSub(y)
	if x.IsNeg() != y.IsNeg() && r.IsNeg() != x.IsNeg() {
		return I128{}, ErrOverflow
	}
	return r, nil
}

func (x I128) Mul(y I128) (I128, error) {
	prod, overflow := new(uint256.Int).MulOverflow(x.Abs(), y.Abs())
	if overflow || prod[2] != 0 || prod[3] != 0 {
		return I128{}, ErrOverflow
	}
	if x.IsNeg() != y.IsNeg() {
		return NegFromU128(prod)
	}
	return FromU128(prod)
}

// Div truncates toward zero.
func (x I128) Div(y I128) (I128, error) {
	if y.IsZero() {
		return I128{}, ErrDivisionByZero
	}
	if x == MinI128 && y == FromInt64(-1) {
		return I128{}, ErrOverflow
	}
	q := new(uint256.Int).Div(x.Abs(), y.Abs())
	if x.IsNeg() != y.IsNeg() {
		return NegFromU128(q)
	}
	return FromU128(q)
}

// Shr is an arithmetic right shift.
func (x I128) Shr(n uint) I128 {
	if n >= 128 {
		if x.IsNeg() {
			return FromInt64(-1)
		}
		return I128{}
	}
	if n >= 64 {
		return I128{hi: uint64(int64(x.hi) >> 63), lo: uint64(int64(x.hi) >> (n - 64))}
	}
	if n == 0 {
		return x
	}
	return I128{hi: uint64(int64(x.hi) >> n), lo: x.lo>>n | x.hi<<(64-n)}
}

// Shl shifts left, dropping bits shifted past the top.
func (x I128) Shl(n uint) I128 {
	if n >= 128 {
		return I128{}
	}
	if n >= 64 {
		return I128{hi: x.lo << (n - 64)}
	}
	if n == 0 {
		return x
	}
	return I128{hi: x.hi<<n | x.lo>>(64-n), lo: x.lo << n}
}

func (x I128) Cmp(y I128) int {
	xs, ys := int64(x.hi), int64(y.hi)
	switch {
	case xs < ys:
		return -1
	case xs > ys:
		return 1
	case x.lo < y.lo:
		return -1
	case x.lo > y.lo:
		return 1
	default:
		return 0
	}
}

// Int64 reports the value as int64 when it fits.
func (x I128) Int64() (int64, bool) {
	v := int64(x.lo)
	return v, FromInt64(v) == x
}

func (x I128) String() string {
	if x.IsNeg() {
		return "-" + x.Abs().Dec()
	}
	return x.Abs().Dec()
}

func Parse(s string) (I128, error) {
	neg := strings.HasPrefix(s, "-")
	mag, err := uint256.FromDecimal(strings.TrimPrefix(s, "-"))
	if err != nil {
		return I128{}, ErrInvalidString
	}
	if neg {
		return NegFromU128(mag)
	}
	return FromU128(mag)
}

func (x I128) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *I128) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*x = v
	return nil
}
