// Package field implements arithmetic in the prime field F_p on math/big
// integers: reduction, inverses, Legendre symbols and square roots.
//
// Every result is normalised into [0, p). Values passed in may be any
// integer, negative ones included.
package field

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrNoInverse is returned when a value shares a factor with p (0 included).
	ErrNoInverse = errors.New("no modular inverse")
	// ErrNoSquareRoot is returned when a value is a quadratic non-residue.
	ErrNoSquareRoot = errors.New("no square root: quadratic non-residue")
	// ErrNotPrime is returned by New for a modulus that is not an odd prime.
	ErrNotPrime = errors.New("modulus is not an odd prime")
)

var (
	zero  = big.NewInt(0)
	one   = big.NewInt(1)
	three = big.NewInt(3)
	four  = big.NewInt(4)
)

// Field is F_p for an odd prime p. The zero value is not usable; build one
// with New or MustNew.
type Field struct {
	P *big.Int
}

// New validates p and returns the field it defines.
func New(p *big.Int) (Field, error) {
	if p == nil || p.Cmp(three) < 0 || p.Bit(0) == 0 || !p.ProbablyPrime(32) {
		return Field{}, errors.Wrapf(ErrNotPrime, "p=%v", p)
	}
	return Field{P: new(big.Int).Set(p)}, nil
}

// MustNew is New for constants known to be prime.
func MustNew(p int64) Field {
	f, err := New(big.NewInt(p))
	if err != nil {
		panic(err)
	}
	return f
}

// ---------- reduction & ring ops ----------

func (f Field) Mod(a *big.Int) *big.Int {
	z := new(big.Int).Mod(a, f.P)
	if z.Sign() < 0 {
		z.Add(z, f.P)
	}
	return z
}

func (f Field) Add(a, b *big.Int) *big.Int { return f.Mod(new(big.Int).Add(a, b)) }

func (f Field) Sub(a, b *big.Int) *big.Int { return f.Mod(new(big.Int).Sub(a, b)) }

func (f Field) Mul(a, b *big.Int) *big.Int { return f.Mod(new(big.Int).Mul(a, b)) }

func (f Field) Neg(a *big.Int) *big.Int { return f.Sub(zero, a) }

// Exp computes a^e mod p for e >= 0.
func (f Field) Exp(a, e *big.Int) *big.Int { return new(big.Int).Exp(f.Mod(a), e, f.P) }

// IsOneModFour reports whether p ≡ 1 (mod 4).
func (f Field) IsOneModFour() bool {
	return new(big.Int).Mod(f.P, four).Cmp(one) == 0
}

// ---------- inverses ----------

// Inverse returns the unique x in [0, p) with a·x ≡ 1 (mod p).
func (f Field) Inverse(a *big.Int) (*big.Int, error) {
	return ModInverse(a, f.P)
}

// ModInverse returns a⁻¹ mod m using the extended Euclidean algorithm. It
// fails with ErrNoInverse when gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	r := new(big.Int).Mod(a, m)
	if r.Sign() == 0 {
		return nil, errors.Wrapf(ErrNoInverse, "%v mod %v", a, m)
	}
	inv := new(big.Int).ModInverse(r, m)
	if inv == nil {
		return nil, errors.Wrapf(ErrNoInverse, "%v mod %v", a, m)
	}
	return inv, nil
}

// ---------- residues & roots ----------

// Legendre returns the symbol (a|p): -1, 0 or +1 (Euler's criterion).
func (f Field) Legendre(a *big.Int) int {
	A := f.Mod(a)
	if A.Sign() == 0 {
		return 0
	}
	e := new(big.Int).Rsh(new(big.Int).Sub(f.P, one), 1)
	if f.Exp(A, e).Cmp(one) == 0 {
		return 1
	}
	return -1
}

// IsQuadraticResidue reports whether a has a square root in F_p. Zero counts
// as a residue with root 0.
func (f Field) IsQuadraticResidue(a *big.Int) bool {
	return f.Legendre(a) >= 0
}

// Sqrt returns a square root of a. Of the two roots x and p-x it always
// returns the smaller one, so results are reproducible across calls.
func (f Field) Sqrt(a *big.Int) (*big.Int, error) {
	x, err := f.tonelliShanks(f.Mod(a))
	if err != nil {
		return nil, err
	}
	if alt := f.Neg(x); alt.Cmp(x) < 0 {
		x = alt
	}
	return x, nil
}

// Tonelli–Shanks for odd prime p
func (f Field) tonelliShanks(A *big.Int) (*big.Int, error) {
	p := f.P
	if A.Sign() == 0 {
		return new(big.Int), nil
	}
	if f.Legendre(A) != 1 {
		return nil, errors.Wrapf(ErrNoSquareRoot, "%v mod %v", A, p)
	}
	// p ≡ 3 mod 4 shortcut
	if new(big.Int).Mod(p, four).Cmp(three) == 0 {
		e := new(big.Int).Add(p, one)
		e.Rsh(e, 2)
		return f.Exp(A, e), nil
	}
	// p-1 = q·2^s, q odd
	q := new(big.Int).Sub(p, one)
	s := 0
	for q.Bit(0) == 0 {
		q.Rsh(q, 1)
		s++
	}
	z := big.NewInt(2)
	for f.Legendre(z) != -1 {
		z.Add(z, one)
	}
	c := f.Exp(z, q)
	x := f.Exp(A, new(big.Int).Rsh(new(big.Int).Add(q, one), 1))
	t := f.Exp(A, q)
	m := s
	for t.Cmp(one) != 0 {
		i := 1
		t2i := f.Mul(t, t)
		for t2i.Cmp(one) != 0 {
			t2i = f.Mul(t2i, t2i)
			i++
			if i == m {
				return nil, errors.Wrapf(ErrNoSquareRoot, "tonelli-shanks did not converge for %v mod %v", A, p)
			}
		}
		// b = c^{2^{m-i-1}}
		b := new(big.Int).Set(c)
		for j := 0; j < m-i-1; j++ {
			b = f.Mul(b, b)
		}
		x = f.Mul(x, b)
		c = f.Mul(b, b)
		t = f.Mul(t, c)
		m = i
	}
	return x, nil
}

// IsqrtFloor returns ⌊√n⌋ for n >= 0.
func IsqrtFloor(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(n)
}
