package curve

import (
	"math/big"

	"github.com/pkg/errors"
)

// MaxEnumerationPrime caps the O(p) scans below. Above it, point lists
// and Legendre counts are refused rather than run for hours.
const MaxEnumerationPrime = 1 << 24

// ErrFieldTooLarge is returned by the O(p) operations for p > MaxEnumerationPrime.
var ErrFieldTooLarge = errors.New("field too large for brute-force enumeration")

func (c Curve) checkEnumerable() error {
	if c.F.P.Cmp(big.NewInt(MaxEnumerationPrime)) > 0 {
		return errors.Wrapf(ErrFieldTooLarge, "p=%v > %d", c.F.P, MaxEnumerationPrime)
	}
	return nil
}

// EnumeratePoints lists every point of E(F_p): O first, then for x = 0..p-1
// the point (x, y) with y the smaller root and, when y != 0, (x, p-y). The
// slice length is the group order.
func (c Curve) EnumeratePoints() ([]Point, error) {
	if err := c.checkEnumerable(); err != nil {
		return nil, err
	}
	f := c.F
	pts := []Point{Infinity()}
	for x := new(big.Int); x.Cmp(f.P) < 0; x.Add(x, bigOne) {
		rhs := c.RHS(x)
		if !f.IsQuadraticResidue(rhs) {
			continue
		}
		y, err := f.Sqrt(rhs)
		if err != nil {
			return nil, errors.WithMessagef(err, "enumerate x=%v", x)
		}
		pts = append(pts, Affine(x, y))
		if y.Sign() != 0 {
			pts = append(pts, Affine(x, f.Neg(y)))
		}
	}
	return pts, nil
}

// CountPoints returns #E(F_p) by a Legendre scan over x without building
// the point list.
func (c Curve) CountPoints() (*big.Int, error) {
	if err := c.checkEnumerable(); err != nil {
		return nil, err
	}
	f := c.F
	cnt := int64(1) // O
	for x := new(big.Int); x.Cmp(f.P) < 0; x.Add(x, bigOne) {
		switch f.Legendre(c.RHS(x)) {
		case 0:
			cnt++
		case 1:
			cnt += 2
		}
	}
	return big.NewInt(cnt), nil
}
