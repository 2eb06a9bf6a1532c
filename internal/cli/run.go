package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"coopsched/internal/host"
	"coopsched/internal/job"
	"coopsched/internal/metrics"
	"coopsched/internal/sched"
	"coopsched/internal/trace"
)

type runOptions struct {
	csvPath     string
	metricsAddr string
	timeout     time.Duration
	frameRate   int
	verbose     bool
	pollEvery   time.Duration
	work        func(time.Duration) // one unit of simulated work
}

func newRunCmd() *cobra.Command {
	var scenarioPath string
	opts := runOptions{
		pollEvery: 20 * time.Millisecond,
		work:      time.Sleep,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario until every task has finished",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := job.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			return runScenario(cmd.Context(), cmd.OutOrStdout(), sc, opts)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "scenario.yml", "Scenario YAML")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Write a CSV event trace to this file")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Give up if the scenario has not drained by then")
	cmd.Flags().IntVar(&opts.frameRate, "fps", 0, "Force a frame rate (1-125); 0 keeps slice_ms from the config")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print every scheduler event")
	return cmd
}

// runScenario drives sc on a real event loop and returns once the queues
// are empty, ctx is done, or the timeout passes.
func runScenario(ctx context.Context, out io.Writer, sc *job.Scenario, opts runOptions) error {
	runID := uuid.NewString()
	runLog := log.With().Str("run_id", runID).Logger()
	loop := host.NewLoop(runLog)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	schedOpts := []sched.Option{
		sched.WithLogger(log),
		sched.WithRunID(runID),
		sched.WithObserver(collector),
	}

	if opts.csvPath != "" {
		csvTrace, err := trace.CreateCSV(opts.csvPath, runID)
		if err != nil {
			return err
		}
		defer func() {
			if err := csvTrace.Close(); err != nil {
				runLog.Error().Err(err).Msg("csv trace incomplete")
			}
		}()
		schedOpts = append(schedOpts, sched.WithObserver(csvTrace))
	}
	if opts.verbose {
		schedOpts = append(schedOpts, sched.WithObserver(trace.NewPrinter(out, loop.Count)))
	}

	s := sched.New(loop, cfg, schedOpts...)
	if opts.frameRate != 0 {
		if err := s.ForceFrameRate(opts.frameRate); err != nil {
			return err
		}
	}

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:    opts.metricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			runLog.Info().Str("addr", opts.metricsAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				runLog.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	finished := 0
	drained := false
	loop.Post(func() {
		sc.Submit(s, opts.work, runLog, func(string) { finished++ })
	})
	go watchQueues(ctx, loop, opts.pollEvery, func() {
		ready, delayed := s.Pending()
		collector.SetQueueDepth(ready, delayed)
		if ready+delayed == 0 && !drained {
			drained = true
			cancel()
		}
	})

	start := time.Now()
	runLog.Info().Int("tasks", len(sc.Tasks)).Msg("scenario started")
	err := loop.Run(ctx)
	switch {
	case drained:
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("scenario did not drain within %s: %w", opts.timeout, err)
	default:
		return err
	}

	runLog.Info().
		Int("runs", finished).
		Int64("turns", loop.Count()).
		Dur("elapsed", time.Since(start)).
		Msg("scenario drained")
	fmt.Fprintf(out, "run %s: %d runs finished in %d turns\n", s.RunID(), finished, loop.Count())
	return nil
}

// watchQueues posts check onto the loop every interval until ctx is done.
func watchQueues(ctx context.Context, loop *host.Loop, interval time.Duration, check func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loop.Post(check)
		}
	}
}
