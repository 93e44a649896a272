// Package primes supplies prime candidates to the curve search. It is a
// small, non-cryptographic utility: an Eratosthenes sieve for test-scale
// bit lengths plus a trial-division primality check.
package primes

import (
	"math/big"
	"math/rand/v2"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

const (
	MinBits = 3
	// MaxBits keeps sieving and the O(p) point scans practical.
	MaxBits = 24
)

// ErrBits is returned for a bit length outside [MinBits, MaxBits].
var ErrBits = errors.Errorf("bit length must be in [%d, %d]", MinBits, MaxBits)

// Source yields prime candidates in order until exhausted.
type Source interface {
	Next() (*big.Int, bool)
}

// SliceSource hands out a fixed list of primes.
type SliceSource struct {
	primes []*big.Int
	pos    int
}

func NewSliceSource(ps ...*big.Int) *SliceSource {
	cp := make([]*big.Int, len(ps))
	for i, p := range ps {
		cp[i] = new(big.Int).Set(p)
	}
	return &SliceSource{primes: cp}
}

// FromInt64 is NewSliceSource for literals.
func FromInt64(ps ...int64) *SliceSource {
	out := make([]*big.Int, len(ps))
	for i, p := range ps {
		out[i] = big.NewInt(p)
	}
	return NewSliceSource(out...)
}

func (s *SliceSource) Next() (*big.Int, bool) {
	if s.pos >= len(s.primes) {
		return nil, false
	}
	p := s.primes[s.pos]
	s.pos++
	return new(big.Int).Set(p), true
}

// Len returns how many candidates remain.
func (s *SliceSource) Len() int { return len(s.primes) - s.pos }

// IsPrime reports primality by trial division.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Sieve returns every prime < limit in ascending order.
func Sieve(limit uint) []uint64 {
	if limit < 3 {
		return nil
	}
	composite := bitset.New(limit)
	composite.Set(0).Set(1)
	for i := uint(2); i*i < limit; i++ {
		if composite.Test(i) {
			continue
		}
		for j := i * i; j < limit; j += i {
			composite.Set(j)
		}
	}
	out := make([]uint64, 0, limit/8)
	for i, ok := composite.NextClear(2); ok && i < limit; i, ok = composite.NextClear(i + 1) {
		out = append(out, uint64(i))
	}
	return out
}

// Candidates returns the primes with exactly the given bit length, keeping
// only p ≡ 1 (mod 4) when oneModFour is set, shuffled by seed.
func Candidates(bits int, oneModFour bool, seed uint64) (*SliceSource, error) {
	if bits < MinBits || bits > MaxBits {
		return nil, errors.Wrapf(ErrBits, "got %d", bits)
	}
	lo := uint64(1) << (bits - 1)
	var ps []*big.Int
	for _, p := range Sieve(uint(1) << bits) {
		if p < lo || p == 2 {
			continue
		}
		if oneModFour && p%4 != 1 {
			continue
		}
		ps = append(ps, new(big.Int).SetUint64(p))
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
	return &SliceSource{primes: ps}, nil
}
