package search

import (
	"math/big"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"

	"ecgen/internal/field"
)

// Counting selects how the group order is computed.
type Counting string

const (
	// CountEnumerate lists every point, O(p).
	CountEnumerate Counting = "enumerate"
	// CountAnalytic uses the Z[i] decomposition of p, O(√p), p ≡ 1 (mod 4) only.
	CountAnalytic Counting = "analytic"
	// CountAuto is analytic when p ≡ 1 (mod 4), enumeration otherwise.
	CountAuto Counting = "auto"
)

func ParseCounting(s string) (Counting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return CountAuto, nil
	case "enumerate", "enum", "brute":
		return CountEnumerate, nil
	case "analytic", "gaussian":
		return CountAnalytic, nil
	default:
		return CountAuto, errors.Errorf("unknown counting method %q", s)
	}
}

// ResolveCounting turns CountAuto into the concrete method for field f:
// analytic when p ≡ 1 (mod 4), enumeration otherwise.
func ResolveCounting(method Counting, f field.Field) Counting {
	if method != CountAuto && method != "" {
		return method
	}
	if f.IsOneModFour() {
		return CountAnalytic
	}
	return CountEnumerate
}

// Config bounds the search. Nothing here is global; two Searchers with the
// same Config, prime list and coefficient seed behave identically.
type Config struct {
	// MaxAttemptsPerPrime is how many coefficients are tried per prime.
	MaxAttemptsPerPrime int
	// MaxPrimes caps how many primes are pulled from the source; 0 means
	// until the source is empty.
	MaxPrimes int
	// RequireOneModFour skips primes p ≢ 1 (mod 4).
	RequireOneModFour bool
	Counting          Counting
	// KeepPoints stores the full point list in the Descriptor.
	KeepPoints bool
}

func DefaultConfig() Config {
	return Config{
		MaxAttemptsPerPrime: 10,
		MaxPrimes:           0,
		RequireOneModFour:   true,
		Counting:            CountAuto,
	}
}

func (c Config) Validate() error {
	if c.MaxAttemptsPerPrime <= 0 {
		return errors.Errorf("max attempts per prime must be positive, got %d", c.MaxAttemptsPerPrime)
	}
	if c.MaxPrimes < 0 {
		return errors.Errorf("max primes must not be negative, got %d", c.MaxPrimes)
	}
	if _, err := ParseCounting(string(c.Counting)); err != nil {
		return err
	}
	return nil
}

// ---------- coefficient sources ----------

// CoefficientSource picks the curve coefficient a for a prime p.
type CoefficientSource interface {
	Coefficient(p *big.Int) *big.Int
}

type randomCoefficients struct {
	r *rand.Rand
}

// RandomCoefficients draws a uniformly from [1, p-1] with a PCG generator
// seeded by seed.
func RandomCoefficients(seed uint64) CoefficientSource {
	return &randomCoefficients{r: rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))}
}

func (s *randomCoefficients) Coefficient(p *big.Int) *big.Int {
	span := new(big.Int).Sub(p, big.NewInt(1)) // p-1 values
	var a *big.Int
	if span.IsUint64() {
		a = new(big.Int).SetUint64(s.r.Uint64N(span.Uint64()))
	} else {
		// rejection sample on the bit length of span
		n := span.BitLen()
		words := (n + 63) / 64
		for {
			a = new(big.Int)
			for i := 0; i < words; i++ {
				a.Lsh(a, 64)
				a.Or(a, new(big.Int).SetUint64(s.r.Uint64()))
			}
			a.Rsh(a, uint(words*64-n))
			if a.Cmp(span) < 0 {
				break
			}
		}
	}
	return a.Add(a, big.NewInt(1))
}

// FixedCoefficients replays a list of coefficients, wrapping around, each
// reduced mod p.
type FixedCoefficients struct {
	vals []int64
	pos  int
}

func NewFixedCoefficients(vals ...int64) *FixedCoefficients {
	return &FixedCoefficients{vals: vals}
}

func (s *FixedCoefficients) Coefficient(p *big.Int) *big.Int {
	if len(s.vals) == 0 {
		return big.NewInt(1)
	}
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return new(big.Int).Mod(big.NewInt(v), p)
}
