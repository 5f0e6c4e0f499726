// Package cli implements the wakerbench command.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/go-wakerbench"
	"github.com/joeycumines/go-wakerbench/internal/loop"
	"github.com/joeycumines/go-wakerbench/internal/report"
)

// benchConfig is the fixed configuration of a run.
type benchConfig struct {
	iterations      int
	warmup          int
	burst           int
	logLevel        logiface.Level
	shutdownTimeout time.Duration
}

func defaultBenchConfig() benchConfig {
	return benchConfig{
		iterations:      wakerbench.DefaultIterations,
		warmup:          wakerbench.DefaultWarmup,
		burst:           1000,
		logLevel:        logiface.LevelNotice,
		shutdownTimeout: 5 * time.Second,
	}
}

// NewRootCmd creates the root cobra command. It takes no flags or arguments.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultBenchConfig())
}

func newRootCmd(cfg benchConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "wakerbench",
		Short: "Measure cross-thread event loop wakeup latency",
		Long: "wakerbench measures how quickly a foreign OS thread can wake a single-threaded\n" +
			"event loop: by writing to a registered eventfd or pipe, by enqueueing a callback\n" +
			"under the global execution lock, and via the loop's executor bridge.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// run performs the benchmark, writing the report to out only once every
// measurement has succeeded. Logs go to errOut.
func run(ctx context.Context, cfg benchConfig, out, errOut io.Writer) error {
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(errOut)),
		stumpy.L.WithLevel(cfg.logLevel),
	).Logger()

	lock := wakerbench.GlobalExecutionLock

	l, err := loop.New(
		loop.WithLogger(logger),
		loop.WithExecutionLock(lock),
	)
	if err != nil {
		return fmt.Errorf("creating event loop: %w", err)
	}

	progress := report.NewWriter(out)

	harness, err := wakerbench.NewHarness(
		wakerbench.NewLoopScheduler(l),
		wakerbench.WithIterations(cfg.iterations),
		wakerbench.WithWarmup(cfg.warmup),
		wakerbench.WithLogger(logger),
		wakerbench.WithProgress(func(mechanism string, warmup bool) {
			if warmup {
				_ = progress.Progress("  warming up %s...", mechanism)
			} else {
				_ = progress.Progress("  running %s...", mechanism)
			}
		}),
	)
	if err != nil {
		_ = l.Close()
		return err
	}

	if err := progress.Banner(report.Config{
		Iterations: cfg.iterations,
		Warmup:     cfg.warmup,
		Burst:      cfg.burst,
	}); err != nil {
		_ = l.Close()
		return err
	}

	var buf bytes.Buffer

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := l.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, loop.ErrLoopTerminated) {
			return fmt.Errorf("event loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
			defer cancel()
			_ = l.Shutdown(shutdownCtx)
		}()
		return measure(gctx, harness, cfg, report.NewWriter(&buf), lock)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

func measure(ctx context.Context, harness *wakerbench.Harness, cfg benchConfig, w *report.Writer, lock *wakerbench.ExecutionLock) error {
	results, err := harness.RunAll(
		ctx,
		wakerbench.NewFdMechanism(),
		wakerbench.NewCallbackMechanism(wakerbench.WithExecutionLock(lock)),
		wakerbench.NewExecutorMechanism(),
	)
	if err != nil {
		return err
	}

	var bursts []*wakerbench.BurstResult
	if cfg.burst > 0 {
		for _, m := range []wakerbench.BurstMechanism{
			wakerbench.NewFdMechanism(wakerbench.WithChannelKind(wakerbench.ChannelEventfd)),
			wakerbench.NewCallbackMechanism(wakerbench.WithExecutionLock(lock)),
		} {
			result, err := harness.Burst(ctx, m, cfg.burst)
			if err != nil {
				return err
			}
			bursts = append(bursts, result)
		}
	}

	if err := w.Results(results); err != nil {
		return err
	}
	if err := w.Bursts(bursts); err != nil {
		return err
	}
	return w.Lock(lock.Stats())
}
