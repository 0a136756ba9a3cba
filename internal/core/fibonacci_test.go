package core

import (
	"math"
	"math/big"
	"strconv"
	"testing"
)

// fibPair returns F(n), F(n+1) by fast doubling, independent of Compute.
func fibPair(n uint64) (*big.Int, *big.Int) {
	if n == 0 {
		return big.NewInt(0), big.NewInt(1)
	}
	a, b := fibPair(n / 2)
	t := new(big.Int).Lsh(b, 1)
	t.Sub(t, a)
	c := new(big.Int).Mul(a, t)
	d := new(big.Int).Mul(a, a)
	d.Add(d, new(big.Int).Mul(b, b))
	if n%2 == 0 {
		return c, d
	}
	return d, new(big.Int).Add(c, d)
}

func TestComputeKnownValues(t *testing.T) {
	cases := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{2, "1"},
		{3, "2"},
		{10, "55"},
		{20, "6765"},
		{93, "12200160415121876738"},
		{100, "354224848179261915075"},
	}
	for _, c := range cases {
		if got := Compute(c.n).String(); got != c.want {
			t.Fatalf("F(%d) = %s, want %s", c.n, got, c.want)
		}
	}
}

func TestComputeMatchesReference(t *testing.T) {
	for n := uint64(0); n <= DefaultCeiling; n++ {
		want, _ := fibPair(n)
		if got := Compute(n); got.Cmp(want) != 0 {
			t.Fatalf("F(%d) mismatch: got %s want %s", n, got, want)
		}
	}
}

func TestComputeRecurrenceAndMonotonic(t *testing.T) {
	terms := make([]*big.Int, DefaultCeiling+1)
	for n := range terms {
		terms[n] = Compute(uint64(n))
	}
	for n := 2; n <= int(DefaultCeiling); n++ {
		sum := new(big.Int).Add(terms[n-1], terms[n-2])
		if terms[n].Cmp(sum) != 0 {
			t.Fatalf("F(%d) != F(%d) + F(%d)", n, n-1, n-2)
		}
	}
	for n := 1; n < int(DefaultCeiling); n++ {
		if terms[n].Cmp(terms[n+1]) > 0 {
			t.Fatalf("F(%d) > F(%d)", n, n+1)
		}
	}
}

func TestComputeCeilingDigits(t *testing.T) {
	got := Compute(DefaultCeiling).String()
	if len(got) != 209 {
		t.Fatalf("F(1000) has %d digits, want 209", len(got))
	}
	if got[:10] != "4346655768" {
		t.Fatalf("F(1000) starts with %s", got[:10])
	}
}

func TestComputeReturnsFreshValues(t *testing.T) {
	a := Compute(50)
	a.SetInt64(-1)
	if got := Compute(50).String(); got != "12586269025" {
		t.Fatalf("F(50) = %s after mutating a previous result", got)
	}
	if Compute(0) == Compute(0) {
		t.Fatalf("Compute(0) should not return a shared value")
	}
}

func TestComputeIdempotent(t *testing.T) {
	first := Compute(777).String()
	for i := 0; i < 5; i++ {
		if got := Compute(777).String(); got != first {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestExtract(t *testing.T) {
	cases := []struct {
		path string
		want uint64
	}{
		{"/api/fib/10", 10},
		{"api/fib/10", 10},
		{"/api/fib/10/", 10},
		{"///api/fib/7///", 7},
		{"/api/fib/0", 0},
		{"/api/fib/42/extra/segments", 42},
		{"/api/fib/+5", 5},
		{"/api/fib/5000", 5000},
		{"/api/fib/" + strconv.FormatUint(math.MaxUint64, 10), math.MaxUint64},
		{"/api/fib/18446744073709551616", DefaultIndex},
		{"/api/fib/abc", DefaultIndex},
		{"/api/fib/-3", DefaultIndex},
		{"/api/fib/1.5", DefaultIndex},
		{"/api/fib/ 3", DefaultIndex},
		{"/api/fib/++3", DefaultIndex},
		{"/api/fib/+", DefaultIndex},
		{"/api/fib/", DefaultIndex},
		{"/api/fib", DefaultIndex},
		{"/api//fib/5", DefaultIndex},
		{"/API/fib/5", DefaultIndex},
		{"/foo/bar/5", DefaultIndex},
		{"/", DefaultIndex},
		{"", DefaultIndex},
	}
	for _, c := range cases {
		if got := Extract(c.path); got != c.want {
			t.Fatalf("Extract(%q) = %d, want %d", c.path, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ n, ceiling, want uint64 }{
		{0, 1000, 0},
		{999, 1000, 999},
		{1000, 1000, 1000},
		{5000, 1000, 1000},
		{math.MaxUint64, 1000, 1000},
		{7, 5, 5},
	}
	for _, c := range cases {
		if got := Clamp(c.n, c.ceiling); got != c.want {
			t.Fatalf("Clamp(%d, %d) = %d, want %d", c.n, c.ceiling, got, c.want)
		}
	}
}

func BenchmarkComputeCeiling(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Compute(DefaultCeiling)
	}
}
