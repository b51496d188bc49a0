package common

import "math"

// IsDigit reports whether c is an ASCII decimal digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// CountDigits returns the length of the run of decimal digits at the start of b.
func CountDigits(b []byte) int {
	for i, c := range b {
		if !IsDigit(c) {
			return i
		}
	}
	return len(b)
}

// ParseUint decodes an unsigned decimal from b, rejecting empty input,
// non-digits, leading zeros (other than "0" itself) and values above max.
func ParseUint(b []byte, max uint64) (uint64, bool) {
	if len(b) == 0 || (b[0] == '0' && len(b) > 1) {
		return 0, false
	}
	var x uint64
	for _, c := range b {
		if !IsDigit(c) {
			return 0, false
		}
		d := uint64(c - '0')
		if d > max || x > (max-d)/10 {
			return 0, false
		}
		x = x*10 + d
	}
	return x, true
}

// ParseInt decodes an optionally negative decimal. "-0" is rejected.
func ParseInt(b []byte) (int64, bool) {
	if len(b) > 0 && b[0] == '-' {
		u, ok := ParseUint(b[1:], 1<<63)
		if !ok || u == 0 {
			return 0, false
		}
		// 1<<63 wraps to MinInt64, which is its own negation.
		return -int64(u), true
	}
	u, ok := ParseUint(b, math.MaxInt64)
	return int64(u), ok
}
