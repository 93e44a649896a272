// Package plot renders the affine points of a curve over F_p as an ASCII
// raster, x to the right and y upwards, origin in the bottom-left corner.
package plot

import (
	"bufio"
	"fmt"
	"io"
	"math/big"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"ecgen/internal/curve"
)

const (
	DefaultMaxSide = 64

	markSet   = '*'
	markEmpty = '.'
)

// Grid is a side×side raster over [0, p)². Index = row*side + col.
type Grid struct {
	p     *big.Int
	side  int
	cells *bitset.BitSet
}

// NewGrid sizes the raster to min(p, maxSide) cells per axis.
func NewGrid(p *big.Int, maxSide int) (*Grid, error) {
	if maxSide < 1 {
		return nil, errors.Errorf("plot size must be positive, got %d", maxSide)
	}
	if p == nil || p.Sign() <= 0 {
		return nil, errors.New("plot needs a positive modulus")
	}
	side := maxSide
	if p.IsInt64() && p.Int64() < int64(maxSide) {
		side = int(p.Int64())
	}
	return &Grid{p: new(big.Int).Set(p), side: side, cells: bitset.New(uint(side * side))}, nil
}

func (g *Grid) Side() int { return g.side }

// cell maps a coordinate in [0, p) onto [0, side).
func (g *Grid) cell(v *big.Int) int {
	c := new(big.Int).Mul(v, big.NewInt(int64(g.side)))
	return int(c.Quo(c, g.p).Int64())
}

func (g *Grid) idx(col, row int) uint { return uint(row*g.side + col) }

// Mark sets the cell holding P. O has no place in the plane and is ignored.
func (g *Grid) Mark(P curve.Point) {
	if P.IsInfinity() {
		return
	}
	g.cells.Set(g.idx(g.cell(P.X()), g.cell(P.Y())))
}

func (g *Grid) IsSet(col, row int) bool { return g.cells.Test(g.idx(col, row)) }

// Marked is the number of non-empty cells.
func (g *Grid) Marked() int { return int(g.cells.Count()) }

// WriteTo prints the top row first so y grows upwards.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	line := make([]byte, g.side+1)
	line[g.side] = '\n'
	var n int64
	for row := g.side - 1; row >= 0; row-- {
		for col := 0; col < g.side; col++ {
			line[col] = markEmpty
			if g.IsSet(col, row) {
				line[col] = markSet
			}
		}
		k, err := bw.Write(line)
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Render writes a one-line header followed by the raster of points.
func Render(w io.Writer, p *big.Int, points []curve.Point, maxSide int) error {
	g, err := NewGrid(p, maxSide)
	if err != nil {
		return err
	}
	affine := 0
	for _, P := range points {
		if !P.IsInfinity() {
			affine++
		}
		g.Mark(P)
	}
	if _, err := fmt.Fprintf(w, "p=%v affine=%d grid=%dx%d\n", p, affine, g.side, g.side); err != nil {
		return errors.Wrap(err, "write plot header")
	}
	_, err = g.WriteTo(w)
	return errors.Wrap(err, "write plot")
}
