package curve

import (
	"math/big"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/pkg/errors"

	"ecgen/internal/field"
)

// ErrOrderNotFound is returned when no multiple of a point up to the Hasse
// ceiling is O, which means the point is not on the curve.
var ErrOrderNotFound = errors.New("subgroup order not found within Hasse ceiling")

// HasseBounds returns [p+1-⌊2√p⌋, p+1+⌊2√p⌋]; ⌊2√p⌋ is isqrt(4p).
func HasseBounds(p *big.Int) (lo, hi *big.Int) {
	w := field.IsqrtFloor(new(big.Int).Lsh(p, 2))
	mid := new(big.Int).Add(p, bigOne)
	return new(big.Int).Sub(mid, w), new(big.Int).Add(mid, w)
}

// WithinHasse reports whether n is a possible order of E(F_p).
func WithinHasse(p, n *big.Int) bool {
	lo, hi := HasseBounds(p)
	return n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0
}

// Index maps a point to a distinct integer: 0 for O, x·p + y + 1 otherwise.
func (c Curve) Index(P Point) uint64 {
	if P.IsInfinity() {
		return 0
	}
	p := c.F.P.Uint64()
	return P.x.Uint64()*p + P.y.Uint64() + 1
}

// SubgroupOrder returns the smallest m >= 1 with m·P = O, walking
// P, 2P, 3P, ... up to the Hasse ceiling.
func (c Curve) SubgroupOrder(P Point) (*big.Int, error) {
	if err := c.checkEnumerable(); err != nil {
		return nil, err
	}
	_, hi := HasseBounds(c.F.P)
	bound := hi.Uint64()
	Q := P
	for m := uint64(1); m <= bound; m++ {
		if Q.IsInfinity() {
			return new(big.Int).SetUint64(m), nil
		}
		Q = c.Add(Q, P)
	}
	return nil, errors.Wrapf(ErrOrderNotFound, "P=%v bound=%d", P, bound)
}

// IsCyclicOfOrder walks P, 2P, ..., order·P and reports whether those
// multiples are pairwise distinct and the walk ends at O, i.e. whether ⟨P⟩
// is cyclic of exactly the given size. It says nothing about points outside
// ⟨P⟩.
func (c Curve) IsCyclicOfOrder(P Point, order *big.Int) (bool, error) {
	if err := c.checkEnumerable(); err != nil {
		return false, err
	}
	if order.Sign() <= 0 || !order.IsUint64() {
		return false, nil
	}
	n := order.Uint64()
	seen := roaring64.New()
	Q := P
	for i := uint64(0); i < n; i++ {
		idx := c.Index(Q)
		if seen.Contains(idx) {
			return false, nil
		}
		seen.Add(idx)
		if i+1 < n {
			Q = c.Add(Q, P)
		}
	}
	return seen.GetCardinality() == n && Q.IsInfinity(), nil
}
