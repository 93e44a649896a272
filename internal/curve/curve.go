// Package curve implements the group E(F_p) of the curve y² = x³ + a·x:
// the affine group law, scalar multiplication, point enumeration and
// counting, and subgroup order / cyclicity analysis.
//
// All functions are pure. A Curve holds only its parameters; points are
// computed on demand and never cached.
package curve

import (
	"math/big"

	"github.com/pkg/errors"

	"ecgen/internal/field"
)

// ErrNegativeScalar is returned by ScalarMult for k < 0.
var ErrNegativeScalar = errors.New("negative scalar")

var (
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigThree = big.NewInt(3)
	bigFour  = big.NewInt(4)
)

// Curve is y² = x³ + A·x over F_p (B is fixed to 0).
type Curve struct {
	F field.Field
	A *big.Int
}

// New validates p and reduces a into [0, p).
func New(p, a *big.Int) (Curve, error) {
	f, err := field.New(p)
	if err != nil {
		return Curve{}, err
	}
	return Curve{F: f, A: f.Mod(a)}, nil
}

// MustNew is New for test and example constants.
func MustNew(p, a int64) Curve {
	c, err := New(big.NewInt(p), big.NewInt(a))
	if err != nil {
		panic(err)
	}
	return c
}

// P returns the field characteristic.
func (c Curve) P() *big.Int { return c.F.P }

// IsSingular reports whether Δ = -16·4A³ ≡ 0 (mod p). With B = 0 this is
// exactly A ≡ 0; y² = x³ has a cusp at the origin.
func (c Curve) IsSingular() bool {
	A3 := c.F.Mul(c.A, c.F.Mul(c.A, c.A))
	return c.F.Mul(bigFour, A3).Sign() == 0
}

// RHS evaluates x³ + A·x mod p.
func (c Curve) RHS(x *big.Int) *big.Int {
	f := c.F
	return f.Add(f.Mul(x, f.Mul(x, x)), f.Mul(c.A, x))
}

// IsOnCurve reports whether P satisfies the curve equation. O always does.
func (c Curve) IsOnCurve(P Point) bool {
	if P.IsInfinity() {
		return true
	}
	if P.x.Sign() < 0 || P.x.Cmp(c.F.P) >= 0 || P.y.Sign() < 0 || P.y.Cmp(c.F.P) >= 0 {
		return false
	}
	return c.F.Mul(P.y, P.y).Cmp(c.RHS(P.x)) == 0
}

// ---------- group law ----------

func (c Curve) Neg(P Point) Point {
	if P.IsInfinity() {
		return P
	}
	return Point{x: new(big.Int).Set(P.x), y: c.F.Neg(P.y), affine: true}
}

// Add returns P + Q. Whenever the slope denominator is not invertible the
// line is vertical and the result is O; that is a normal outcome, not an
// error.
func (c Curve) Add(P, Q Point) Point {
	f := c.F
	if P.IsInfinity() {
		return Q
	}
	if Q.IsInfinity() {
		return P
	}
	var s *big.Int
	if P.x.Cmp(Q.x) == 0 {
		// P == -Q (doubling with y = 0 included) -> O
		if f.Add(P.y, Q.y).Sign() == 0 {
			return Infinity()
		}
		num := f.Add(f.Mul(bigThree, f.Mul(P.x, P.x)), c.A)
		inv, err := f.Inverse(f.Mul(bigTwo, P.y))
		if err != nil {
			return Infinity()
		}
		s = f.Mul(num, inv)
	} else {
		inv, err := f.Inverse(f.Sub(Q.x, P.x))
		if err != nil {
			return Infinity()
		}
		s = f.Mul(f.Sub(Q.y, P.y), inv)
	}
	x3 := f.Sub(f.Sub(f.Mul(s, s), P.x), Q.x)
	y3 := f.Sub(f.Mul(s, f.Sub(P.x, x3)), P.y)
	return Point{x: x3, y: y3, affine: true}
}

func (c Curve) Double(P Point) Point { return c.Add(P, P) }

// ScalarMult returns k·P by least-significant-bit-first double-and-add.
func (c Curve) ScalarMult(P Point, k *big.Int) (Point, error) {
	if k.Sign() < 0 {
		return Point{}, errors.Wrapf(ErrNegativeScalar, "k=%v", k)
	}
	R := Infinity()
	Q := P
	for i := 0; i < k.BitLen(); i++ {
		// once Q is O every later Q is O and R is final
		if Q.IsInfinity() {
			break
		}
		if k.Bit(i) == 1 {
			R = c.Add(R, Q)
		}
		Q = c.Double(Q)
	}
	return R, nil
}

// ScalarMultInt64 is ScalarMult for small non-negative k.
func (c Curve) ScalarMultInt64(P Point, k int64) (Point, error) {
	return c.ScalarMult(P, big.NewInt(k))
}
