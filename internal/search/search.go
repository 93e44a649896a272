// Package search drives the curve generation loop: pull a prime, pick a
// coefficient, find a base point, count the group, check Hasse and
// cyclicity, then accept or retry.
//
// Every attempt builds its own Curve and points; nothing is shared between
// attempts, so the only state is the retry bookkeeping inside Search.
package search

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ecgen/internal/curve"
	"ecgen/internal/field"
	"ecgen/internal/primes"
)

// Rejection reasons. Search recovers from all of them by retrying; only
// ErrSearchExhausted reaches the caller.
var (
	ErrNoBasePoint        = errors.New("no base point found")
	ErrHasseViolation     = errors.New("group order outside Hasse bound")
	ErrInconsistentCount  = errors.New("point counts disagree")
	ErrNotCyclic          = errors.New("base point does not generate a cyclic group of the full order")
	ErrSearchExhausted    = errors.New("no curve found: search exhausted")
	errPrimeNotOneModFour = errors.New("prime is not 1 mod 4")
)

// State names the controller steps; they appear as the "state" log field.
type State string

const (
	StateSelectPrime       State = "SelectPrime"
	StateSelectCoefficient State = "SelectCoefficient"
	StateFindBasePoint     State = "FindBasePoint"
	StateCountPoints       State = "CountPoints"
	StateValidateHasse     State = "ValidateHasse"
	StateValidateCyclicity State = "ValidateCyclicity"
	StateAccept            State = "Accept"
	StateRetry             State = "Retry"
	StateExhausted         State = "Exhausted"
)

// Descriptor is an accepted curve. It is never modified after Search returns it.
type Descriptor struct {
	P             *big.Int
	A             *big.Int
	Base          curve.Point
	GroupOrder    *big.Int
	SubgroupOrder *big.Int
	// Points is the full point list, O first; nil unless Config.KeepPoints.
	Points   []curve.Point
	Counting Counting
	// Attempts is the number of (p, a) pairs evaluated, this one included.
	Attempts int
}

// Curve rebuilds the curve the descriptor describes.
func (d *Descriptor) Curve() (curve.Curve, error) { return curve.New(d.P, d.A) }

type Option func(*Searcher)

func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

type Searcher struct {
	cfg    Config
	primes primes.Source
	coeffs CoefficientSource
	logger *zap.Logger
	// countFn computes #E; s.count unless replaced in tests.
	countFn func(curve.Curve) (*big.Int, []curve.Point, Counting, error)
}

func New(cfg Config, src primes.Source, coeffs CoefficientSource, opts ...Option) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("nil prime source")
	}
	if coeffs == nil {
		return nil, errors.New("nil coefficient source")
	}
	s := &Searcher{cfg: cfg, primes: src, coeffs: coeffs, logger: zap.NewNop()}
	s.countFn = s.count
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Search runs until a curve is accepted, the candidates run out
// (ErrSearchExhausted) or ctx is done (ctx.Err()).
func (s *Searcher) Search(ctx context.Context) (*Descriptor, error) {
	attempts := 0
	for primesTried := 0; s.cfg.MaxPrimes == 0 || primesTried < s.cfg.MaxPrimes; primesTried++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := s.primes.Next()
		if !ok {
			break
		}
		log := s.logger.With(zap.Stringer("p", p))
		log.Debug("prime selected", zap.String("state", string(StateSelectPrime)), zap.Int("prime_index", primesTried))

		if err := s.checkPrime(p); err != nil {
			log.Debug("prime skipped", zap.String("state", string(StateRetry)), zap.Error(err))
			continue
		}

		for try := 1; try <= s.cfg.MaxAttemptsPerPrime; try++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempts++
			a := s.coeffs.Coefficient(p)
			alog := log.With(zap.Stringer("a", a), zap.Int("attempt", try))
			alog.Debug("coefficient selected", zap.String("state", string(StateSelectCoefficient)))

			d, err := s.evaluate(p, a, alog)
			if err == nil {
				d.Attempts = attempts
				alog.Info("curve accepted",
					zap.String("state", string(StateAccept)),
					zap.Stringer("base", d.Base),
					zap.Stringer("order", d.GroupOrder),
					zap.Int("attempts", attempts))
				return d, nil
			}
			alog.Debug("candidate rejected", zap.String("state", string(StateRetry)), zap.Error(err))
			if errors.Is(err, curve.ErrFieldTooLarge) || errors.Is(err, curve.ErrNotOneModFour) {
				break // every coefficient on this prime would fail the same way
			}
		}
	}
	s.logger.Info("search exhausted", zap.String("state", string(StateExhausted)), zap.Int("attempts", attempts))
	return nil, errors.Wrapf(ErrSearchExhausted, "%d attempts", attempts)
}

func (s *Searcher) checkPrime(p *big.Int) error {
	f, err := field.New(p)
	if err != nil {
		return err
	}
	if s.cfg.RequireOneModFour && !f.IsOneModFour() {
		return errors.Wrapf(errPrimeNotOneModFour, "p=%v", p)
	}
	return nil
}

// Evaluate runs every validation step on the single candidate (p, a) and
// returns the descriptor or the first rejection.
func (s *Searcher) Evaluate(p, a *big.Int) (*Descriptor, error) {
	d, err := s.evaluate(p, a, s.logger.With(zap.Stringer("p", p), zap.Stringer("a", a)))
	if err != nil {
		return nil, err
	}
	d.Attempts = 1
	return d, nil
}

func (s *Searcher) evaluate(p, a *big.Int, log *zap.Logger) (*Descriptor, error) {
	c, err := curve.New(p, a)
	if err != nil {
		return nil, err
	}
	if c.IsSingular() {
		return nil, errors.Wrapf(curve.ErrSingular, "a=%v", c.A)
	}

	log.Debug("searching base point", zap.String("state", string(StateFindBasePoint)))
	base, err := FindBasePoint(c)
	if err != nil {
		return nil, err
	}

	log.Debug("counting points", zap.String("state", string(StateCountPoints)), zap.Stringer("base", base))
	order, pts, method, err := s.countFn(c)
	if err != nil {
		return nil, err
	}

	log.Debug("checking Hasse bound", zap.String("state", string(StateValidateHasse)), zap.Stringer("order", order))
	if !curve.WithinHasse(c.P(), order) {
		lo, hi := curve.HasseBounds(c.P())
		log.Warn("point count outside Hasse bound, count is inconsistent",
			zap.Stringer("order", order), zap.Stringer("lo", lo), zap.Stringer("hi", hi))
		return nil, errors.Wrapf(ErrHasseViolation, "order %v not in [%v, %v]", order, lo, hi)
	}

	log.Debug("checking cyclicity", zap.String("state", string(StateValidateCyclicity)))
	sub, err := c.SubgroupOrder(base)
	if err != nil {
		return nil, err
	}
	if sub.Cmp(order) != 0 {
		return nil, errors.Wrapf(ErrNotCyclic, "ord(%v) = %v, #E = %v", base, sub, order)
	}
	ok, err := c.IsCyclicOfOrder(base, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrNotCyclic, "multiples of %v repeat before %v", base, order)
	}

	return &Descriptor{
		P:             new(big.Int).Set(c.P()),
		A:             new(big.Int).Set(c.A),
		Base:          base,
		GroupOrder:    order,
		SubgroupOrder: sub,
		Points:        pts,
		Counting:      method,
	}, nil
}

func (s *Searcher) count(c curve.Curve) (*big.Int, []curve.Point, Counting, error) {
	method := ResolveCounting(s.cfg.Counting, c.F)

	var pts []curve.Point
	if s.cfg.KeepPoints || method == CountEnumerate {
		var err error
		if pts, err = c.EnumeratePoints(); err != nil {
			return nil, nil, method, err
		}
	}
	if method == CountEnumerate {
		n := big.NewInt(int64(len(pts)))
		if !s.cfg.KeepPoints {
			pts = nil
		}
		return n, pts, method, nil
	}

	n, err := c.CountPointsAnalytic()
	if err != nil {
		return nil, nil, method, err
	}
	if pts != nil && int64(len(pts)) != n.Int64() {
		return nil, nil, method, errors.Wrapf(ErrInconsistentCount, "analytic %v, enumerated %d", n, len(pts))
	}
	return n, pts, method, nil
}

// FindBasePoint returns the first point (x, y) with x = 0, 1, 2, ... whose
// x³ + a·x is a non-zero square, y being the smaller root. Points with y = 0
// have order 2 and are passed over.
func FindBasePoint(c curve.Curve) (curve.Point, error) {
	f := c.F
	for x := new(big.Int); x.Cmp(f.P) < 0; x.Add(x, big.NewInt(1)) {
		rhs := c.RHS(x)
		if f.Legendre(rhs) != 1 {
			continue
		}
		y, err := f.Sqrt(rhs)
		if err != nil {
			return curve.Point{}, err
		}
		return curve.Affine(x, y), nil
	}
	return curve.Point{}, errors.Wrapf(ErrNoBasePoint, "p=%v a=%v", f.P, c.A)
}
