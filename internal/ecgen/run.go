package ecgen

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ecgen/internal/curve"
	"ecgen/internal/plot"
	"ecgen/internal/primes"
	"ecgen/internal/search"
)

// Runner executes one command against cfg. Stdout receives reports, points
// and plots addressed to "-".
type Runner struct {
	Cfg    *Config
	Logger *zap.Logger
	Stdout io.Writer
	// Now seeds the search when Cfg.Seed is 0.
	Now func() time.Time
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) seed() uint64 {
	if r.Cfg.Seed != 0 {
		return r.Cfg.Seed
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return uint64(now().UnixNano())
}

// PrimeSource returns the --primes list if given, otherwise the shuffled
// candidates of --bits bits.
func (r *Runner) PrimeSource(seed uint64) (primes.Source, error) {
	if len(r.Cfg.Primes) > 0 {
		ps := make([]*big.Int, len(r.Cfg.Primes))
		for i, s := range r.Cfg.Primes {
			p, err := parseBig(s)
			if err != nil {
				return nil, err
			}
			ps[i] = p
		}
		return primes.NewSliceSource(ps...), nil
	}
	src, err := primes.Candidates(r.Cfg.Bits, r.Cfg.OneModFour, seed)
	if err != nil {
		return nil, err
	}
	r.logger().Debug("prime candidates ready", zap.Int("bits", r.Cfg.Bits), zap.Int("count", src.Len()))
	return src, nil
}

// Generate searches for a curve and reports it.
func (r *Runner) Generate(ctx context.Context) (*search.Descriptor, error) {
	log := r.logger()
	seed := r.seed()
	log.Info("starting search",
		zap.Uint64("seed", seed),
		zap.Int("bits", r.Cfg.Bits),
		zap.Strings("primes", r.Cfg.Primes),
		zap.String("counting", string(r.Cfg.Counting)))

	src, err := r.PrimeSource(seed)
	if err != nil {
		return nil, err
	}
	s, err := search.New(r.Cfg.SearchConfig(), src, search.RandomCoefficients(seed), search.WithLogger(log))
	if err != nil {
		return nil, err
	}
	d, err := s.Search(ctx)
	if err != nil {
		return nil, err
	}

	rep := DescriptorReport(d, seed)
	if !r.Cfg.KeepPoints {
		rep.Points = nil
	}
	if err := r.emit(rep, d.P, d.Points); err != nil {
		return nil, err
	}
	return d, nil
}

// Count reports #E for --p/--a together with the base point analysis.
func (r *Runner) Count(ctx context.Context) (*Report, error) {
	c, err := r.curve()
	if err != nil {
		return nil, err
	}
	log := r.logger().With(zap.Stringer("p", c.P()), zap.Stringer("a", c.A))

	method := search.ResolveCounting(r.Cfg.Counting, c.F)
	var n *big.Int
	if method == search.CountAnalytic {
		n, err = c.CountPointsAnalytic()
	} else {
		n, err = c.CountPoints()
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debug("points counted", zap.Stringer("order", n), zap.String("counting", string(method)))

	rep := newReport("count", c.P(), c.A)
	rep.GroupOrder = n.String()
	rep.Counting = string(method)
	if !curve.WithinHasse(c.P(), n) {
		log.Warn("point count outside Hasse bound", zap.Stringer("order", n))
	}

	base, err := search.FindBasePoint(c)
	switch {
	case errors.Is(err, search.ErrNoBasePoint):
		log.Debug("no base point", zap.Error(err))
	case err != nil:
		return nil, err
	default:
		bp := toPt(base)
		rep.Base = &bp
		if err := r.baseOrder(rep, c, base, n, log); err != nil {
			return nil, err
		}
	}

	var pts []curve.Point
	if r.Cfg.KeepPoints || r.Cfg.Plot || r.Cfg.PointsOut != "" {
		if pts, err = c.EnumeratePoints(); err != nil {
			return nil, err
		}
		if r.Cfg.KeepPoints {
			rep.setPoints(pts)
		}
	}
	return rep, r.emit(rep, c.P(), pts)
}

// baseOrder fills in the order of base. Past the enumeration limit the order
// walk is skipped; n·base = O is still checked against the count.
func (r *Runner) baseOrder(rep *Report, c curve.Curve, base curve.Point, n *big.Int, log *zap.Logger) error {
	ord, err := c.SubgroupOrder(base)
	if errors.Is(err, curve.ErrFieldTooLarge) {
		log.Debug("base point order not walked", zap.Error(err))
		nP, err := c.ScalarMult(base, n)
		if err != nil {
			return err
		}
		if !nP.IsInfinity() {
			return errors.Wrapf(search.ErrInconsistentCount, "%v·%v is not O", n, base)
		}
		return nil
	}
	if err != nil {
		return err
	}
	rep.BaseOrder = ord.String()
	rep.Cyclic = ord.Cmp(n) == 0
	return nil
}

// Points enumerates --p/--a. In text format the points are streamed as
// "x y" lines to --out; json and yaml embed them in the report.
func (r *Runner) Points(ctx context.Context) ([]curve.Point, error) {
	c, err := r.curve()
	if err != nil {
		return nil, err
	}
	pts, err := c.EnumeratePoints()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger().Debug("points enumerated", zap.Stringer("p", c.P()), zap.Int("count", len(pts)))

	if r.Cfg.Format == FormatText {
		if _, err := writePoints(r.Cfg.OutPath, r.Stdout, pts); err != nil {
			return nil, err
		}
		if r.Cfg.PointsOut != "" && r.Cfg.PointsOut != r.Cfg.OutPath {
			if _, err := writePoints(r.Cfg.PointsOut, r.Stdout, pts); err != nil {
				return nil, err
			}
		}
		return pts, r.plot(c.P(), pts)
	}

	rep := newReport("points", c.P(), c.A)
	rep.GroupOrder = big.NewInt(int64(len(pts))).String()
	rep.Counting = string(search.CountEnumerate)
	rep.setPoints(pts)
	return pts, r.emit(rep, c.P(), pts)
}

func (r *Runner) curve() (curve.Curve, error) {
	p, a, err := r.Cfg.Curve()
	if err != nil {
		return curve.Curve{}, err
	}
	c, err := curve.New(p, a)
	if err != nil {
		return curve.Curve{}, err
	}
	if c.IsSingular() {
		return curve.Curve{}, errors.Wrapf(curve.ErrSingular, "a=%v", c.A)
	}
	return c, nil
}

// emit writes the report, then the optional point dump and plot.
func (r *Runner) emit(rep *Report, p *big.Int, pts []curve.Point) error {
	w, closeFn, err := openOutput(r.Cfg.OutPath, r.Stdout)
	if err != nil {
		return err
	}
	if err := rep.Encode(w, r.Cfg.Format); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return errors.Wrap(err, "close report")
	}
	if r.Cfg.PointsOut != "" {
		n, err := writePoints(r.Cfg.PointsOut, r.Stdout, pts)
		if err != nil {
			return err
		}
		r.logger().Debug("points written", zap.String("path", r.Cfg.PointsOut), zap.Int("count", n))
	}
	return r.plot(p, pts)
}

func (r *Runner) plot(p *big.Int, pts []curve.Point) error {
	if !r.Cfg.Plot {
		return nil
	}
	return plot.Render(r.Stdout, p, pts, r.Cfg.PlotSize)
}
