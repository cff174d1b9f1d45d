package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	taskscheduler "github.com/Swind/go-task-scheduler"
	"github.com/Swind/go-task-scheduler/core"
	"github.com/Swind/go-task-scheduler/internal/bench"
	promadapter "github.com/Swind/go-task-scheduler/observability/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

const metricsPollInterval = 500 * time.Millisecond

// newRunCmd creates the run command
func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark grid",
		Long: `Run every selected scenario against every selected strategy over the
product of task counts and thread counts, then print one row per case.

Task counts default to 1000, 10000, 100000; thread counts to 1, 2, 4, ...
up to GOMAXPROCS.`,
		Example: `  taskbench run --scenario payload-tasks --threads 1,2,4 --tasks 1000
  taskbench run -o json --strategy work-stealing,shared-queue
  TASKBENCH_ITERATIONS=10 taskbench run --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBench(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("scenario", nil, "scenarios to run (default all, see 'taskbench list')")
	flags.StringSlice("strategy", nil, "strategies to compare (work-stealing, shared-queue, spawn; default all)")
	flags.IntSlice("tasks", nil, "task counts (default 1000,10000,100000)")
	flags.IntSlice("threads", nil, "thread counts, the waiting caller included (default 1..GOMAXPROCS, x2)")
	flags.IntP("iterations", "n", 3, "timed iterations per case")
	flags.Duration("payload", 100*time.Microsecond, "busy time of one payload task")
	flags.Uint64("seed", 0, "seed for matrix values (0 = random)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9090)")

	a.bind(flags.Lookup("scenario"), "scenarios")
	a.bind(flags.Lookup("strategy"), "strategies")
	a.bind(flags.Lookup("tasks"), "tasks")
	a.bind(flags.Lookup("threads"), "threads")
	a.bind(flags.Lookup("iterations"), "iterations")
	a.bind(flags.Lookup("payload"), "payload")
	a.bind(flags.Lookup("seed"), "seed")
	a.bind(flags.Lookup("metrics-addr"), "metrics-addr")

	return cmd
}

func (a *app) runBench(cmd *cobra.Command) error {
	ctx := cmd.Context()

	formatter, err := a.formatter()
	if err != nil {
		return err
	}

	tasks, err := a.intList("tasks")
	if err != nil {
		return err
	}
	threads, err := a.intList("threads")
	if err != nil {
		return err
	}

	cfg := bench.Config{
		Scenarios:  a.stringList("scenarios"),
		Tasks:      tasks,
		Threads:    threads,
		Iterations: a.v.GetInt("iterations"),
		Payload:    a.v.GetDuration("payload"),
		Seed:       a.v.GetUint64("seed"),
		Logger:     a.logger,
		OnResult: func(r bench.Result) {
			a.logger.Info("case finished",
				core.F("scenario", r.Scenario),
				core.F("strategy", r.Strategy),
				core.F("tasks", r.Tasks),
				core.F("threads", r.Threads),
				core.F("mean", r.Mean.String()),
			)
		},
	}
	for _, name := range a.stringList("strategies") {
		s, err := bench.ParseStrategy(name)
		if err != nil {
			return err
		}
		cfg.Strategies = append(cfg.Strategies, s)
	}

	if addr := a.v.GetString("metrics-addr"); addr != "" {
		stop, err := a.serveMetrics(ctx, addr, &cfg)
		if err != nil {
			return err
		}
		defer stop()
	}

	runner, err := bench.NewRunner(cfg)
	if err != nil {
		return err
	}
	a.logger.Debug("starting benchmark", core.F("cases", len(runner.Cases())))

	results, runErr := runner.Run(ctx)
	if err := formatter.Results(cmd.OutOrStdout(), results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return runErr
}

// Environment variables reach viper as one raw string, so list keys set
// through TASKBENCH_* are split on commas and whitespace here.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func (a *app) stringList(key string) []string {
	if s, ok := a.v.Get(key).(string); ok {
		return splitList(s)
	}
	return a.v.GetStringSlice(key)
}

func (a *app) intList(key string) ([]int, error) {
	var (
		out []int
		err error
	)
	switch v := a.v.Get(key).(type) {
	case nil:
		return nil, nil
	case string:
		out, err = cast.ToIntSliceE(splitList(v))
	case int:
		out = []int{v}
	default:
		out, err = cast.ToIntSliceE(v)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return out, nil
}

// serveMetrics wires a Prometheus exporter and snapshot poller into cfg and
// serves them on addr until the returned stop function is called.
func (a *app) serveMetrics(ctx context.Context, addr string, cfg *bench.Config) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := promadapter.NewMetricsExporter("taskbench", reg, promadapter.ExporterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	poller, err := promadapter.NewSnapshotPoller(reg, metricsPollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot poller: %w", err)
	}

	cfg.Registry = taskscheduler.NewRegistry(&core.SchedulerConfig{Logger: a.logger, Metrics: exporter})
	cfg.Observer = poller
	poller.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", core.F("addr", addr), core.F("error", err))
		}
	}()
	a.logger.Info("serving metrics", core.F("addr", addr))

	return func() {
		poller.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		cfg.Registry.Clear()
	}, nil
}
