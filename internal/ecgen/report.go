package ecgen

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"ecgen/internal/curve"
	"ecgen/internal/search"
)

// Pt is a point with decimal coordinates; O has Inf set and no coordinates.
type Pt struct {
	X   string `json:"x,omitempty" yaml:"x,omitempty"`
	Y   string `json:"y,omitempty" yaml:"y,omitempty"`
	Inf bool   `json:"inf" yaml:"inf"`
}

func toPt(P curve.Point) Pt {
	if P.IsInfinity() {
		return Pt{Inf: true}
	}
	return Pt{X: P.X().String(), Y: P.Y().String()}
}

func (p Pt) String() string {
	if p.Inf {
		return "O"
	}
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// Report is what every command prints. Big integers are decimal strings.
type Report struct {
	Command    string `json:"command" yaml:"command"`
	P          string `json:"p" yaml:"p"`
	A          string `json:"a" yaml:"a"`
	GroupOrder string `json:"groupOrder,omitempty" yaml:"groupOrder,omitempty"`
	Counting   string `json:"counting,omitempty" yaml:"counting,omitempty"`
	HasseLow   string `json:"hasseLow" yaml:"hasseLow"`
	HasseHigh  string `json:"hasseHigh" yaml:"hasseHigh"`
	Base       *Pt    `json:"base,omitempty" yaml:"base,omitempty"`
	BaseOrder  string `json:"baseOrder,omitempty" yaml:"baseOrder,omitempty"`
	Cyclic     bool   `json:"cyclic" yaml:"cyclic"`
	Attempts   int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Seed       uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Points     []Pt   `json:"points,omitempty" yaml:"points,omitempty"`
}

func newReport(cmd string, p, a *big.Int) *Report {
	lo, hi := curve.HasseBounds(p)
	return &Report{
		Command:   cmd,
		P:         p.String(),
		A:         a.String(),
		HasseLow:  lo.String(),
		HasseHigh: hi.String(),
	}
}

// DescriptorReport reports an accepted curve.
func DescriptorReport(d *search.Descriptor, seed uint64) *Report {
	r := newReport("generate", d.P, d.A)
	base := toPt(d.Base)
	r.GroupOrder = d.GroupOrder.String()
	r.Counting = string(d.Counting)
	r.Base = &base
	r.BaseOrder = d.SubgroupOrder.String()
	r.Cyclic = true
	r.Attempts = d.Attempts
	r.Seed = seed
	r.setPoints(d.Points)
	return r
}

func (r *Report) setPoints(pts []curve.Point) {
	if len(pts) == 0 {
		return
	}
	r.Points = make([]Pt, len(pts))
	for i, P := range pts {
		r.Points[i] = toPt(P)
	}
}

// Encode writes r in the requested format.
func (r *Report) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(r), "encode json report")
	case FormatYAML:
		b, err := yaml.Marshal(r)
		if err != nil {
			return errors.Wrap(err, "encode yaml report")
		}
		_, err = w.Write(b)
		return err
	default:
		return r.writeText(w)
	}
}

func (r *Report) writeText(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("Curve: y^2 = x^3 + a x over F_p\np = %s\na = %s\n", r.P, r.A)
	if r.GroupOrder != "" {
		ew.printf("Group order: %s (counting: %s)\n", r.GroupOrder, r.Counting)
	}
	ew.printf("Hasse interval: [%s, %s]\n", r.HasseLow, r.HasseHigh)
	switch {
	case r.Base != nil && r.BaseOrder != "":
		ew.printf("Base point: %s of order %s\n", r.Base, r.BaseOrder)
		ew.printf("Cyclic: %v\n", r.Cyclic)
	case r.Base != nil:
		ew.printf("Base point: %s\n", r.Base)
	}
	if r.Attempts > 0 {
		ew.printf("Attempts: %d (seed %d)\n", r.Attempts, r.Seed)
	}
	if len(r.Points) > 0 {
		ew.printf("\nPoints (%d):\n", len(r.Points))
		for _, pt := range r.Points {
			ew.printf("  %s\n", pt)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
