package ecgen

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ecgen/internal/plot"
	"ecgen/internal/primes"
	"ecgen/internal/search"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. ECGEN_MAX_ATTEMPTS.
const EnvPrefix = "ECGEN"

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Config is the validated command line. Integers stay decimal strings until
// a command needs them.
type Config struct {
	Bits        int
	Primes      []string // explicit candidates, overrides Bits
	Seed        uint64   // 0 picks one from the clock
	MaxAttempts int
	MaxPrimes   int
	OneModFour  bool
	Counting    search.Counting
	KeepPoints  bool

	P string // count / points
	A string

	Format    Format
	OutPath   string // "-" for stdout
	PointsOut string // "" disables the point dump
	Plot      bool
	PlotSize  int

	LogLevel  string
	LogFormat string
}

// BindFlags registers every flag on fs and binds it into v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	def := search.DefaultConfig()
	fs.Int("bits", 10, "bit length of the prime candidates")
	fs.StringSlice("primes", nil, "explicit prime candidates (decimal or 0x-hex), tried in order")
	fs.Uint64("seed", 0, "seed for prime shuffling and coefficient draws (0 = from clock)")
	fs.Int("max-attempts", def.MaxAttemptsPerPrime, "coefficients tried per prime")
	fs.Int("max-primes", 0, "primes tried before giving up (0 = all candidates)")
	fs.Bool("one-mod-four", def.RequireOneModFour, "only use primes p ≡ 1 (mod 4)")
	fs.String("counting", string(def.Counting), "point counting: auto|enumerate|analytic")
	fs.Bool("keep-points", false, "include every point of the accepted curve in the report")
	fs.String("p", "", "prime modulus p (count, points)")
	fs.String("a", "", "curve coefficient a (count, points)")
	fs.String("format", string(FormatText), "report format: text|json|yaml")
	fs.String("out", "-", "report path, or - for stdout")
	fs.String("points-out", "", "write every point as an \"x y\" line to this path (- for stdout)")
	fs.Bool("plot", false, "print an ASCII plot of the points")
	fs.Int("plot-size", plot.DefaultMaxSide, "maximum plot width and height in cells")
	fs.String("log-level", "info", "log level: debug|info|warn|error")
	fs.String("log-format", "console", "log encoding: console|json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v.BindPFlags(fs)
}

// LoadConfig reads the bound keys from v and validates them.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Bits:        v.GetInt("bits"),
		Primes:      v.GetStringSlice("primes"),
		Seed:        v.GetUint64("seed"),
		MaxAttempts: v.GetInt("max-attempts"),
		MaxPrimes:   v.GetInt("max-primes"),
		OneModFour:  v.GetBool("one-mod-four"),
		KeepPoints:  v.GetBool("keep-points"),
		P:           strings.TrimSpace(v.GetString("p")),
		A:           strings.TrimSpace(v.GetString("a")),
		OutPath:     v.GetString("out"),
		PointsOut:   v.GetString("points-out"),
		Plot:        v.GetBool("plot"),
		PlotSize:    v.GetInt("plot-size"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
	}

	var err error
	if cfg.Counting, err = search.ParseCounting(v.GetString("counting")); err != nil {
		return nil, err
	}
	if cfg.Format, err = parseFormat(v.GetString("format")); err != nil {
		return nil, err
	}
	if len(cfg.Primes) == 0 && (cfg.Bits < primes.MinBits || cfg.Bits > primes.MaxBits) {
		return nil, errors.Wrapf(primes.ErrBits, "bad --bits %d", cfg.Bits)
	}
	for _, s := range cfg.Primes {
		if _, err := parseBig(s); err != nil {
			return nil, errors.Wrap(err, "bad --primes")
		}
	}
	if cfg.P != "" {
		if _, err := parseBig(cfg.P); err != nil {
			return nil, errors.Wrap(err, "bad --p")
		}
	}
	if cfg.A != "" {
		if _, err := parseBig(cfg.A); err != nil {
			return nil, errors.Wrap(err, "bad --a")
		}
	}
	if cfg.OutPath == "" {
		cfg.OutPath = "-"
	}
	if cfg.Plot && cfg.PlotSize < 1 {
		return nil, errors.Errorf("bad --plot-size %d", cfg.PlotSize)
	}
	if err := cfg.SearchConfig().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchConfig is the part of cfg the search controller consumes.
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		MaxAttemptsPerPrime: c.MaxAttempts,
		MaxPrimes:           c.MaxPrimes,
		RequireOneModFour:   c.OneModFour,
		Counting:            c.Counting,
		KeepPoints:          c.KeepPoints || c.Plot || c.PointsOut != "",
	}
}

// Curve parses --p and --a, both required.
func (c *Config) Curve() (p, a *big.Int, err error) {
	if c.P == "" {
		return nil, nil, errors.New("missing required --p")
	}
	if c.A == "" {
		return nil, nil, errors.New("missing required --a")
	}
	if p, err = parseBig(c.P); err != nil {
		return nil, nil, err
	}
	if a, err = parseBig(c.A); err != nil {
		return nil, nil, err
	}
	return p, a, nil
}

func parseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "human":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatText, errors.Errorf("unknown format %q", s)
	}
}

// parseBig accepts decimal, a leading minus sign, or 0x-prefixed hex.
func parseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if h, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		if len(h)%2 == 1 {
			h = "0" + h
		}
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse integer %q", s)
		}
		return new(big.Int).SetBytes(b), nil
	}
	z, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("cannot parse integer %q", s)
	}
	return z, nil
}
