// Package numutil provides overflow-checked integer helpers, in the same
// spirit as a standard-library-adjacent math helper package: small and
// allocation-free. No other package in this module imports it, and it
// has no tests of its own.
package numutil

import (
	"crypto/rand"
	"math"
	"math/big"
	"math/bits"
	"strconv"
)

// ParseUint64 parses s as a decimal or 0x-prefixed hexadecimal integer.
// The empty string parses as zero.
func ParseUint64(s string) (uint64, bool) {
	if s == "" {
		return 0, true
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// AbsoluteDifference returns |x-y| without risking signed overflow.
func AbsoluteDifference(x, y uint64) uint64 {
	if x > y {
		return x - y
	}
	return y - x
}

// RandUint64 returns a cryptographically random uint64.
func RandUint64() (uint64, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).SetUint64(math.MaxUint64))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// SafeAdd returns x+y and whether the addition overflowed, so an
// overflow is reported to the caller instead of wrapping silently.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// SafeMul returns x*y and whether the multiplication overflowed.
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// CeilDiv divides rounding up; a zero divisor yields 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}
