package search

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"ecgen/internal/curve"
	"ecgen/internal/field"
	"ecgen/internal/primes"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func newSearcher(t *testing.T, cfg Config, src primes.Source, coeffs CoefficientSource) *Searcher {
	t.Helper()
	s, err := New(cfg, src, coeffs, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return s
}

func TestFindBasePoint(t *testing.T) {
	P, err := FindBasePoint(curve.MustNew(17, 6))
	require.NoError(t, err)
	assert.True(t, P.Equal(curve.AffineInt64(5, 6)), "%v", P)

	// x = 0 always gives (0, 0); it is skipped
	P, err = FindBasePoint(curve.MustNew(5, 3))
	require.NoError(t, err)
	assert.True(t, P.Equal(curve.AffineInt64(1, 2)), "%v", P)

	// y² = x³ + x over F_5 has only 2-torsion
	_, err = FindBasePoint(curve.MustNew(5, 1))
	assert.True(t, errors.Is(err, ErrNoBasePoint))
}

func TestEvaluate(t *testing.T) {
	s := newSearcher(t, DefaultConfig(), primes.FromInt64(), NewFixedCoefficients())

	d, err := s.Evaluate(bi(17), bi(6))
	require.NoError(t, err)
	assert.Equal(t, int64(17), d.P.Int64())
	assert.Equal(t, int64(6), d.A.Int64())
	assert.True(t, d.Base.Equal(curve.AffineInt64(5, 6)))
	assert.Equal(t, int64(10), d.GroupOrder.Int64())
	assert.Equal(t, int64(10), d.SubgroupOrder.Int64())
	assert.Equal(t, CountAnalytic, d.Counting)
	assert.Nil(t, d.Points)
	assert.Equal(t, 1, d.Attempts)

	c, err := d.Curve()
	require.NoError(t, err)
	assert.True(t, c.IsOnCurve(d.Base))

	_, err = s.Evaluate(bi(5), bi(1))
	assert.True(t, errors.Is(err, ErrNoBasePoint))

	_, err = s.Evaluate(bi(5), bi(3)) // (1,2) has order 5 in a group of 10
	assert.True(t, errors.Is(err, ErrNotCyclic))

	_, err = s.Evaluate(bi(5), bi(4)) // Z2×Z4
	assert.True(t, errors.Is(err, ErrNotCyclic))

	_, err = s.Evaluate(bi(17), bi(0))
	assert.True(t, errors.Is(err, curve.ErrSingular))
}

func TestEvaluateHasseViolation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := New(DefaultConfig(), primes.FromInt64(), NewFixedCoefficients(), WithLogger(zap.New(core)))
	require.NoError(t, err)
	// 17 + 1 + isqrt(68) = 26 is the largest order Hasse allows for p=17
	s.countFn = func(curve.Curve) (*big.Int, []curve.Point, Counting, error) {
		return bi(27), nil, CountEnumerate, nil
	}
	_, err = s.Evaluate(bi(17), bi(6))
	assert.True(t, errors.Is(err, ErrHasseViolation), "%v", err)
	assert.Contains(t, err.Error(), "order 27 not in [10, 26]")
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	s.countFn = func(curve.Curve) (*big.Int, []curve.Point, Counting, error) {
		return bi(26), nil, CountEnumerate, nil
	}
	_, err = s.Evaluate(bi(17), bi(6))
	assert.True(t, errors.Is(err, ErrNotCyclic), "an order inside the bound passes on to the cyclicity check")
}

func TestResolveCounting(t *testing.T) {
	f17, f19 := field.MustNew(17), field.MustNew(19)
	assert.Equal(t, CountAnalytic, ResolveCounting(CountAuto, f17))
	assert.Equal(t, CountEnumerate, ResolveCounting(CountAuto, f19))
	assert.Equal(t, CountEnumerate, ResolveCounting("", f19))
	assert.Equal(t, CountEnumerate, ResolveCounting(CountEnumerate, f17))
	assert.Equal(t, CountAnalytic, ResolveCounting(CountAnalytic, f19))
}

func TestEvaluateKeepPoints(t *testing.T) {
	for _, counting := range []Counting{CountEnumerate, CountAnalytic, CountAuto} {
		cfg := DefaultConfig()
		cfg.KeepPoints = true
		cfg.Counting = counting
		s := newSearcher(t, cfg, primes.FromInt64(), NewFixedCoefficients())
		d, err := s.Evaluate(bi(17), bi(6))
		require.NoError(t, err, "%s", counting)
		require.Len(t, d.Points, 10)
		assert.True(t, d.Points[0].IsInfinity())
		assert.Equal(t, int64(10), d.GroupOrder.Int64())
	}

	cfg := DefaultConfig()
	cfg.Counting = CountEnumerate
	s := newSearcher(t, cfg, primes.FromInt64(), NewFixedCoefficients())
	d, err := s.Evaluate(bi(17), bi(6))
	require.NoError(t, err)
	assert.Nil(t, d.Points)
	assert.Equal(t, CountEnumerate, d.Counting)
}

func TestSearchRetriesThenAccepts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 2
	// p=5: a=1 has no base point, a=3 is not cyclic; p=17: a=6 is accepted
	s := newSearcher(t, cfg, primes.FromInt64(5, 17), NewFixedCoefficients(1, 3, 6))
	d, err := s.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), d.P.Int64())
	assert.Equal(t, int64(6), d.A.Int64())
	assert.True(t, d.Base.Equal(curve.AffineInt64(5, 6)))
	assert.Equal(t, 3, d.Attempts)
}

func TestSearchExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 3
	s := newSearcher(t, cfg, primes.FromInt64(5, 13), NewFixedCoefficients(1, 2, 3, 4))
	_, err := s.Search(context.Background())
	assert.True(t, errors.Is(err, ErrSearchExhausted))

	// empty source
	s = newSearcher(t, cfg, primes.FromInt64(), NewFixedCoefficients(6))
	_, err = s.Search(context.Background())
	assert.True(t, errors.Is(err, ErrSearchExhausted))
}

func TestSearchMaxPrimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 1
	cfg.MaxPrimes = 1
	src := primes.FromInt64(5, 17)
	s := newSearcher(t, cfg, src, NewFixedCoefficients(6))
	_, err := s.Search(context.Background())
	assert.True(t, errors.Is(err, ErrSearchExhausted))
	assert.Equal(t, 1, src.Len(), "17 must not be pulled")
}

func TestSearchRequireOneModFour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 1
	// 7 and 19 are 3 mod 4 and 15 is not prime; all are skipped without
	// consuming a coefficient
	s := newSearcher(t, cfg, primes.FromInt64(7, 15, 19, 17), NewFixedCoefficients(6))
	d, err := s.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), d.P.Int64())
	assert.Equal(t, 1, d.Attempts)
}

func TestSearchAnalyticOnThreeModFour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequireOneModFour = false
	cfg.Counting = CountAnalytic
	cfg.MaxAttemptsPerPrime = 5
	s := newSearcher(t, cfg, primes.FromInt64(7), NewFixedCoefficients(1, 2, 3))
	_, err := s.Search(context.Background())
	assert.True(t, errors.Is(err, ErrSearchExhausted))
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSearcher(t, DefaultConfig(), primes.FromInt64(17), NewFixedCoefficients(6))
	_, err := s.Search(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestSearchRandomCandidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 20
	src, err := primes.Candidates(8, true, 3)
	require.NoError(t, err)
	s := newSearcher(t, cfg, src, RandomCoefficients(3))
	d, err := s.Search(context.Background())
	require.NoError(t, err)

	c, err := d.Curve()
	require.NoError(t, err)
	assert.True(t, c.F.IsOneModFour())
	assert.True(t, c.IsOnCurve(d.Base))
	assert.True(t, curve.WithinHasse(d.P, d.GroupOrder))
	assert.Equal(t, 0, d.GroupOrder.Cmp(d.SubgroupOrder))
	n, err := c.CountPoints()
	require.NoError(t, err)
	assert.Equal(t, 0, n.Cmp(d.GroupOrder))
	Pn, err := c.ScalarMult(d.Base, d.GroupOrder)
	require.NoError(t, err)
	assert.True(t, Pn.IsInfinity())
}

func TestSearchDeterministic(t *testing.T) {
	run := func() *Descriptor {
		cfg := DefaultConfig()
		cfg.MaxAttemptsPerPrime = 20
		src, err := primes.Candidates(9, true, 11)
		require.NoError(t, err)
		s := newSearcher(t, cfg, src, RandomCoefficients(11))
		d, err := s.Search(context.Background())
		require.NoError(t, err)
		return d
	}
	d1, d2 := run(), run()
	assert.Equal(t, 0, d1.P.Cmp(d2.P))
	assert.Equal(t, 0, d1.A.Cmp(d2.A))
	assert.True(t, d1.Base.Equal(d2.Base))
	assert.Equal(t, d1.Attempts, d2.Attempts)
}

func TestSearchLogsStates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPrime = 2
	s, err := New(cfg, primes.FromInt64(5, 17), NewFixedCoefficients(1, 3, 6), WithLogger(zap.New(core)))
	require.NoError(t, err)
	_, err = s.Search(context.Background())
	require.NoError(t, err)

	states := map[string]int{}
	for _, e := range logs.All() {
		if st, ok := e.ContextMap()["state"].(string); ok {
			states[st]++
		}
	}
	assert.Equal(t, 2, states[string(StateSelectPrime)])
	assert.Equal(t, 3, states[string(StateSelectCoefficient)])
	assert.Equal(t, 2, states[string(StateRetry)])
	assert.Equal(t, 1, states[string(StateAccept)])
	assert.Equal(t, 0, states[string(StateExhausted)])

	accepted := logs.FilterMessage("curve accepted").All()
	require.Len(t, accepted, 1)
	assert.Equal(t, "17", accepted[0].ContextMap()["p"])
	assert.Equal(t, "6", accepted[0].ContextMap()["a"])
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{}, primes.FromInt64(), NewFixedCoefficients())
	assert.Error(t, err)
	_, err = New(DefaultConfig(), nil, NewFixedCoefficients())
	assert.Error(t, err)
	_, err = New(DefaultConfig(), primes.FromInt64(), nil)
	assert.Error(t, err)
	cfg := DefaultConfig()
	cfg.Counting = "bogus"
	_, err = New(cfg, primes.FromInt64(), NewFixedCoefficients())
	assert.Error(t, err)
}

func TestParseCounting(t *testing.T) {
	for in, want := range map[string]Counting{"": CountAuto, "AUTO": CountAuto, "enum": CountEnumerate, "analytic": CountAnalytic} {
		got, err := ParseCounting(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCounting("magic")
	assert.Error(t, err)
}

func TestRandomCoefficientsRange(t *testing.T) {
	src := RandomCoefficients(99)
	p := bi(13)
	seen := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		a := src.Coefficient(p)
		require.True(t, a.Int64() >= 1 && a.Int64() <= 12, "a=%v", a)
		seen[a.Int64()] = true
	}
	assert.Len(t, seen, 12, "every value in [1, p-1] is reachable")

	q := new(big.Int).Lsh(bi(1), 130)
	q.Add(q, bi(51))
	for i := 0; i < 50; i++ {
		a := src.Coefficient(q)
		require.True(t, a.Sign() > 0 && a.Cmp(q) < 0)
	}
}

func TestFixedCoefficientsWrap(t *testing.T) {
	src := NewFixedCoefficients(3, 20)
	p := bi(17)
	assert.Equal(t, int64(3), src.Coefficient(p).Int64())
	assert.Equal(t, int64(3), src.Coefficient(p).Int64()) // 20 mod 17
	assert.Equal(t, int64(3), src.Coefficient(p).Int64())
	assert.Equal(t, int64(1), NewFixedCoefficients().Coefficient(p).Int64())
}
