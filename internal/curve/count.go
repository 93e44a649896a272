package curve

import (
	"math/big"

	"github.com/pkg/errors"

	"ecgen/internal/field"
)

var (
	// ErrNotOneModFour is returned by CountPointsAnalytic when p ≢ 1 (mod 4).
	ErrNotOneModFour = errors.New("analytic count needs p ≡ 1 (mod 4)")
	// ErrSingular is returned for A ≡ 0, where y² = x³ is not an elliptic curve.
	ErrSingular = errors.New("singular curve")
)

// GaussianPrime is π = D + E·i with p = D² + E².
type GaussianPrime struct {
	D, E *big.Int
}

// DecomposeSumOfSquares finds p = d² + e² with d odd and e even, normalised
// so that d + e·i is primary: d ≡ 1 (mod 4) when e ≡ 0 (mod 4), d ≡ 3 (mod 4)
// when e ≡ 2 (mod 4). Runs in O(√p).
func DecomposeSumOfSquares(p *big.Int) (GaussianPrime, error) {
	if new(big.Int).Mod(p, bigFour).Cmp(bigOne) != 0 {
		return GaussianPrime{}, errors.Wrapf(ErrNotOneModFour, "p=%v", p)
	}
	limit := field.IsqrtFloor(p)
	for x := big.NewInt(1); x.Cmp(limit) <= 0; x.Add(x, bigOne) {
		r := new(big.Int).Sub(p, new(big.Int).Mul(x, x))
		y := field.IsqrtFloor(r)
		if new(big.Int).Mul(y, y).Cmp(r) != 0 {
			continue
		}
		d, e := new(big.Int).Set(x), y
		if d.Bit(0) == 0 {
			d, e = e, d
		}
		eMod4 := new(big.Int).Mod(e, bigFour).Int64()
		dMod4 := new(big.Int).Mod(d, bigFour).Int64()
		if (eMod4 == 0 && dMod4 != 1) || (eMod4 == 2 && dMod4 != 3) {
			d.Neg(d)
			e.Neg(e)
		}
		return GaussianPrime{D: d, E: e}, nil
	}
	return GaussianPrime{}, errors.Errorf("p=%v is not a sum of two squares", p)
}

// CountPointsAnalytic returns #E(F_p) for p ≡ 1 (mod 4) in O(√p) using
//
//	#E = p + 1 - 2·Re(conj(χ)·π),  χ = (-A/π)₄
//
// where π is the primary Gaussian prime above p and χ the quartic residue
// character, evaluated in F_p via i ↦ -d/e.
func (c Curve) CountPointsAnalytic() (*big.Int, error) {
	f := c.F
	if c.IsSingular() {
		return nil, errors.Wrapf(ErrSingular, "a=%v p=%v", c.A, f.P)
	}
	pi, err := DecomposeSumOfSquares(f.P)
	if err != nil {
		return nil, err
	}
	inv, err := f.Inverse(pi.E)
	if err != nil {
		return nil, errors.WithMessage(err, "decomposition has e ≡ 0")
	}
	iImage := f.Neg(f.Mul(pi.D, inv)) // image of i, a root of -1
	e := new(big.Int).Rsh(new(big.Int).Sub(f.P, bigOne), 2)
	t := f.Exp(f.Neg(c.A), e)

	var re, im int64 // χ
	switch {
	case t.Cmp(bigOne) == 0:
		re = 1
	case t.Cmp(f.Neg(bigOne)) == 0:
		re = -1
	case t.Cmp(iImage) == 0:
		im = 1
	case t.Cmp(f.Neg(iImage)) == 0:
		im = -1
	default:
		return nil, errors.Errorf("quartic character of %v mod %v is not a unit", f.Neg(c.A), f.P)
	}
	// Re((re - im·i)(d + e·i)) = re·d + im·e
	trace := new(big.Int).Mul(big.NewInt(re), pi.D)
	trace.Add(trace, new(big.Int).Mul(big.NewInt(im), pi.E))
	n := new(big.Int).Add(f.P, bigOne)
	return n.Sub(n, trace.Lsh(trace, 1)), nil
}
