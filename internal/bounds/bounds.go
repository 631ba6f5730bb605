// Package bounds holds the overflow-checked arithmetic used to turn block
// indices and counts into element ranges.
package bounds

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false when the
// result would overflow int or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CeilDiv returns ceil(n / d) for n >= 0 and d > 0.
func CeilDiv(n, d int) int {
	q := n / d
	if n%d != 0 {
		q++
	}
	return q
}

// Span converts a run of blocks into the half-open element range [lo, hi).
// ok is false when the range does not fit in an int.
//
//	lo, hi, ok := bounds.Span(start, blocks, blockSize)
//	if !ok {
//	    return ErrTooLarge
//	}
//	run := data[lo:hi]
func Span(start, blocks, blockSize int) (lo, hi int, ok bool) {
	lo, ok = MulOverflowSafe(start, blockSize)
	if !ok {
		return 0, 0, false
	}
	n, ok := MulOverflowSafe(blocks, blockSize)
	if !ok {
		return 0, 0, false
	}
	hi, ok = AddOverflowSafe(lo, n)
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
