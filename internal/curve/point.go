package curve

import (
	"fmt"
	"math/big"
)

// Point is an element of E(F_p): either the point at infinity or an affine
// pair (x, y). Points are immutable values; build them with Infinity or
// Affine. The zero Point is the point at infinity.
type Point struct {
	x, y   *big.Int
	affine bool
}

// Infinity returns the group identity O.
func Infinity() Point { return Point{} }

// Affine returns the affine point (x, y). Coordinates are copied.
func Affine(x, y *big.Int) Point {
	return Point{x: new(big.Int).Set(x), y: new(big.Int).Set(y), affine: true}
}

// AffineInt64 is Affine for small literals.
func AffineInt64(x, y int64) Point { return Affine(big.NewInt(x), big.NewInt(y)) }

func (P Point) IsInfinity() bool { return !P.affine }

// X returns a copy of the x coordinate, or nil for O.
func (P Point) X() *big.Int {
	if !P.affine {
		return nil
	}
	return new(big.Int).Set(P.x)
}

// Y returns a copy of the y coordinate, or nil for O.
func (P Point) Y() *big.Int {
	if !P.affine {
		return nil
	}
	return new(big.Int).Set(P.y)
}

// Equal is structural equality; O equals only O.
func (P Point) Equal(Q Point) bool {
	if P.affine != Q.affine {
		return false
	}
	if !P.affine {
		return true
	}
	return P.x.Cmp(Q.x) == 0 && P.y.Cmp(Q.y) == 0
}

func (P Point) String() string {
	if !P.affine {
		return "O"
	}
	return fmt.Sprintf("(%s, %s)", P.x, P.y)
}
