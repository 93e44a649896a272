package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecgen/internal/ecgen"
)

func main() {
	if newRootCmd().Execute() != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		bin      string
		runs     int
		timeout  time.Duration
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "ecbench",
		Short: "Time the ecgen binary over a fixed set of scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(bin); err != nil {
				return errors.Errorf("ecgen not found at %s (build it first)", bin)
			}
			logger, err := ecgen.NewLogger(logLevel, "console")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			cmd.SilenceUsage = true
			return bench(cmd.Context(), logger, bin, runs, timeout)
		},
	}
	cmd.Flags().StringVar(&bin, "ecgen", "./ecgen", "path to the ecgen binary")
	cmd.Flags().IntVar(&runs, "runs", 1, "timed runs per scenario (best is reported)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "per-run timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func bench(ctx context.Context, logger *zap.Logger, bin string, runs int, timeout time.Duration) error {
	fmt.Println("ecgen bench")
	failed := 0
	for _, sc := range defaultScenarios {
		var best result
		var err error
		for i := 0; i < runs; i++ {
			var res result
			res, err = runOnce(ctx, bin, sc, timeout)
			if err != nil {
				break
			}
			logger.Debug("run finished", zap.String("scenario", sc.Name), zap.Int("run", i+1), zap.Duration("took", res.Duration))
			if i == 0 || res.Duration < best.Duration {
				best = res
			}
		}
		if err != nil {
			failed++
			logger.Error("scenario failed", zap.String("scenario", sc.Name), zap.Error(err))
			fmt.Printf("%-34s : ERROR\n", sc.Name)
			continue
		}
		fmt.Printf("%-34s : %10s  %s\n", sc.Name, best.Duration.Truncate(time.Microsecond), summary(best))
	}
	if failed > 0 {
		return errors.Errorf("%d of %d scenarios failed", failed, len(defaultScenarios))
	}
	return nil
}

func summary(r result) string {
	if r.Report == nil {
		return fmt.Sprintf("points=%d", r.Points)
	}
	s := fmt.Sprintf("p=%s a=%s order=%s counting=%s", r.Report.P, r.Report.A, r.Report.GroupOrder, r.Report.Counting)
	if r.Report.Attempts > 0 {
		s += fmt.Sprintf(" attempts=%d", r.Report.Attempts)
	}
	return s
}
