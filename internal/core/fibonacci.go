package core

import (
	"math/big"
	"strconv"
	"strings"
)

const (
	// DefaultCeiling is the highest index computed unless configured otherwise.
	DefaultCeiling uint64 = 1000

	// DefaultIndex is what Extract returns for any path that does not name
	// an index. It is the same value as an explicit /api/fib/0.
	DefaultIndex uint64 = 0
)

// Extract recovers the index from a path of the form /api/fib/<n>.
// Leading and trailing slashes are ignored and segments after the third are
// not inspected. Anything that does not match, including a third segment that
// is empty, negative, non-numeric or larger than a uint64, yields DefaultIndex.
func Extract(path string) uint64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "fib" {
		return DefaultIndex
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(parts[2], "+"), 10, 64)
	if err != nil {
		return DefaultIndex
	}
	return n
}

// Clamp bounds n to ceiling.
func Clamp(n, ceiling uint64) uint64 {
	return min(n, ceiling)
}

// Compute returns F(n) with F(0) = 0 and F(1) = 1. It does not clamp, so
// callers must bound n first; the work grows with n.
func Compute(n uint64) *big.Int {
	if n == 0 {
		return big.NewInt(0)
	}
	if n == 1 {
		return big.NewInt(1)
	}

	prev, curr := big.NewInt(0), big.NewInt(1)
	for k := uint64(1); k < n; k++ {
		prev.Add(prev, curr)
		prev, curr = curr, prev
	}
	return curr
}
