package signed

import "math"

func AddInt32(a, b int32) (int32, error) {
	r := int64(a) + int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, ErrOverflow
	}
	return int32(r), nil
}

func SubInt32(a, b int32) (int32, error) {
	r := int64(a) - int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, ErrOverflow
	}
	return int32(r), nil
}

func MulInt32(a, b int32) (int32, error) {
	r := int64(a) * int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, ErrOverflow
	}
	return int32(r), nil
}

func AddInt64(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, ErrOverflow
	}
	return r, nil
}

func SubInt64(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, ErrOverflow
	}
	return r, nil
}

func MulInt64(a, b int64) (int64, error) {
	r, err := FromInt64(a).Mul(FromInt64(b))
	if err != nil {
		return 0, err
	}
	v, ok := r.Int64()
	if !ok {
		return 0, ErrOverflow
	}
	return v, nil
}

// DivInt64 truncates toward zero.
func DivInt64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, ErrOverflow
	}
	return a / b, nil
}

// Accumulators such as tick_cumulative wrap modulo 2^64; Go's native
// int64 arithmetic already does, these name the intent at call sites.

func WrappingAddInt64(a, b int64) int64 { return a + b }

func WrappingSubInt64(a, b int64) int64 { return a - b }

func WrappingMulInt64(a, b int64) int64 { return a * b }
