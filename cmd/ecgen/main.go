package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ecgen/internal/ecgen"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// On failure cobra prints the usage and error, so only the exit status
	// is left to set.
	if newRootCmd(os.Stdout).ExecuteContext(ctx) != nil {
		os.Exit(1)
	}
}

type action func(ctx context.Context, r *ecgen.Runner) error

func newRootCmd(stdout io.Writer) *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "ecgen",
		Short: "Search for cyclic elliptic curves y^2 = x^3 + a x over F_p",
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML or TOML file with default flag values")
	if err := ecgen.BindFlags(flags, v); err != nil {
		panic(err)
	}

	wrap := func(run action) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "read config %s", configFile)
				}
			}
			cfg, err := ecgen.LoadConfig(v)
			if err != nil {
				return err
			}
			logger, err := ecgen.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			// usage is for flag mistakes, not search failures
			cmd.SilenceUsage = true
			err = run(cmd.Context(), &ecgen.Runner{Cfg: cfg, Logger: logger, Stdout: stdout})
			if err != nil {
				logger.Debug("command failed", zap.String("command", cmd.Name()), zap.Error(err))
			}
			return err
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Search random primes and coefficients until a cyclic curve is found",
			Args:  cobra.NoArgs,
			RunE: wrap(func(ctx context.Context, r *ecgen.Runner) error {
				_, err := r.Generate(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "count",
			Short: "Count the points of the curve given by --p and --a",
			Args:  cobra.NoArgs,
			RunE: wrap(func(ctx context.Context, r *ecgen.Runner) error {
				_, err := r.Count(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "points",
			Short: "List every point of the curve given by --p and --a",
			Args:  cobra.NoArgs,
			RunE: wrap(func(ctx context.Context, r *ecgen.Runner) error {
				_, err := r.Points(ctx)
				return err
			}),
		},
	)
	return root
}
