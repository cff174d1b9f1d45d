// Package bench runs the scheduler comparison suite: every scenario against
// every strategy over a product of task and thread counts.
package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	taskscheduler "github.com/Swind/go-task-scheduler"
	"github.com/Swind/go-task-scheduler/core"
	"github.com/Swind/go-task-scheduler/internal/kernels"
	promadapter "github.com/Swind/go-task-scheduler/observability/prometheus"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidConfig   = errors.New("invalid benchmark config")
)

const (
	defaultIterations = 3
	schedulerName     = "bench"
)

// Observer receives the executor of every case while it runs.
// *prometheus.SnapshotPoller satisfies it.
type Observer interface {
	AddPool(name string, provider promadapter.SnapshotProvider)
	RemovePool(name string)
}

type statsFunc func() core.PoolStats

func (f statsFunc) Stats() core.PoolStats { return f() }

// Config selects what the runner measures. Zero values take defaults.
type Config struct {
	Scenarios  []string
	Strategies []Strategy
	Tasks      []int
	Threads    []int
	Iterations int
	Payload    time.Duration
	// Seed for the matrix values; 0 picks a random seed.
	Seed uint64

	// Registry supplies the work-stealing scheduler. Nil uses a private one.
	Registry *taskscheduler.Registry
	// Metrics is only used by the private registry.
	Metrics  core.Metrics
	Logger   core.Logger
	Observer Observer
	// OnResult is called after every case.
	OnResult func(Result)
}

// Result is the measurement of one case.
type Result struct {
	Scenario   string        `json:"scenario" yaml:"scenario"`
	Strategy   string        `json:"strategy" yaml:"strategy"`
	Tasks      int           `json:"tasks" yaml:"tasks"`
	Threads    int           `json:"threads" yaml:"threads"`
	Iterations int           `json:"iterations" yaml:"iterations"`
	Mean       time.Duration `json:"mean_ns" yaml:"mean"`
	Min        time.Duration `json:"min_ns" yaml:"min"`
	Max        time.Duration `json:"max_ns" yaml:"max"`
	TheoryMs   float64       `json:"theory_ms,omitempty" yaml:"theory_ms,omitempty"`
	Executed   int64         `json:"executed" yaml:"executed"`
	Stolen     int64         `json:"stolen" yaml:"stolen"`
}

// Efficiency is TheoryMs over the mean wall time, 0 for untimed scenarios.
func (r Result) Efficiency() float64 {
	if r.TheoryMs == 0 || r.Mean <= 0 {
		return 0
	}
	return r.TheoryMs / (float64(r.Mean) / float64(time.Millisecond))
}

// Case is one point of the argument product.
type Case struct {
	Scenario Scenario
	Strategy Strategy
	Tasks    int
	Threads  int
}

// Runner executes a validated Config.
type Runner struct {
	cfg        Config
	scenarios  []Scenario
	strategies []Strategy
	values     *kernels.RandomValuePool
}

// NewRunner validates cfg and fills in defaults.
func NewRunner(cfg Config) (*Runner, error) {
	r := &Runner{}

	if len(cfg.Scenarios) == 0 {
		r.scenarios = Scenarios
	}
	for _, name := range cfg.Scenarios {
		s, err := FindScenario(name)
		if err != nil {
			return nil, err
		}
		r.scenarios = append(r.scenarios, s)
	}

	r.strategies = cfg.Strategies
	if len(r.strategies) == 0 {
		r.strategies = AllStrategies
	}
	for _, s := range r.strategies {
		if _, err := ParseStrategy(string(s)); err != nil {
			return nil, err
		}
	}

	if len(cfg.Tasks) == 0 {
		cfg.Tasks = DefaultTasks()
	}
	if len(cfg.Threads) == 0 {
		cfg.Threads = DefaultThreads()
	}
	for _, n := range cfg.Tasks {
		if n < 1 {
			return nil, fmt.Errorf("task count %d: %w", n, ErrInvalidConfig)
		}
	}
	for _, n := range cfg.Threads {
		if n < 1 {
			return nil, fmt.Errorf("thread count %d: %w", n, ErrInvalidConfig)
		}
	}
	if cfg.Iterations < 0 {
		return nil, fmt.Errorf("iterations %d: %w", cfg.Iterations, ErrInvalidConfig)
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = defaultIterations
	}
	if cfg.Payload <= 0 {
		cfg.Payload = kernels.DefaultPayload
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NewNoOpLogger()
	}
	if cfg.Registry == nil {
		cfg.Registry = taskscheduler.NewRegistry(&core.SchedulerConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}

	maxTasks := 0
	for _, n := range cfg.Tasks {
		maxTasks = max(maxTasks, n)
	}
	r.values = kernels.NewRandomValuePool(18*maxTasks, cfg.Seed)
	r.cfg = cfg
	return r, nil
}

// Cases lists every case Run will execute, in order.
func (r *Runner) Cases() []Case {
	var cases []Case
	for _, sc := range r.scenarios {
		for _, st := range r.strategies {
			for _, threads := range r.cfg.Threads {
				for _, tasks := range r.cfg.Tasks {
					cases = append(cases, Case{Scenario: sc, Strategy: st, Tasks: tasks, Threads: threads})
				}
			}
		}
	}
	return cases
}

// Run executes every case. On cancellation it returns the results gathered
// so far together with the context error.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, sc := range r.scenarios {
		for _, st := range r.strategies {
			for _, threads := range r.cfg.Threads {
				res, err := r.runGroup(ctx, sc, st, threads)
				results = append(results, res...)
				if err != nil {
					return results, err
				}
			}
		}
	}
	return results, nil
}

// runGroup runs all task counts of one (scenario, strategy, threads) on a
// single executor.
func (r *Runner) runGroup(ctx context.Context, sc Scenario, st Strategy, threads int) ([]Result, error) {
	name := fmt.Sprintf("%s/threads=%d", st, threads)
	ex, err := r.newExecutor(ctx, st, name, threads)
	if err != nil {
		return nil, err
	}
	defer ex.close()

	if r.cfg.Observer != nil {
		r.cfg.Observer.AddPool(name, statsFunc(ex.stats))
		defer r.cfg.Observer.RemovePool(name)
	}

	var results []Result
	for _, tasks := range r.cfg.Tasks {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("benchmark interrupted: %w", err)
		}

		before := ex.stats()
		res := r.runCase(ctx, ex, sc, st, tasks, threads)
		after := ex.stats()
		res.Executed = after.Executed - before.Executed
		res.Stolen = after.Stolen - before.Stolen

		r.cfg.Logger.Debug("benchmark case finished",
			core.F("scenario", sc.Name),
			core.F("strategy", string(st)),
			core.F("tasks", tasks),
			core.F("threads", threads),
			core.F("mean", res.Mean),
		)
		if r.cfg.OnResult != nil {
			r.cfg.OnResult(res)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, ex executor, sc Scenario, st Strategy, tasks, threads int) Result {
	env := &caseEnv{
		tasks:   tasks,
		payload: r.cfg.Payload,
		values: func(n int) []float32 {
			return r.values.Values()[:n]
		},
	}
	run := sc.prepare(env)

	res := Result{
		Scenario:   sc.Name,
		Strategy:   string(st),
		Tasks:      tasks,
		Threads:    threads,
		Iterations: r.cfg.Iterations,
	}
	if sc.Timed {
		res.TheoryMs = kernels.TheoryMs(tasks, r.cfg.Payload, threads)
	}

	var total time.Duration
	for i := range r.cfg.Iterations {
		start := time.Now()
		run(ctx, ex)
		d := time.Since(start)

		total += d
		if i == 0 || d < res.Min {
			res.Min = d
		}
		res.Max = max(res.Max, d)
	}
	res.Mean = total / time.Duration(r.cfg.Iterations)
	return res
}

func (r *Runner) newExecutor(ctx context.Context, st Strategy, name string, threads int) (executor, error) {
	switch st {
	case StrategyWorkStealing:
		return newWorkStealingExecutor(r.cfg.Registry, schedulerName, threads)
	case StrategySharedQueue:
		return newSharedQueueExecutor(ctx, name, threads, r.cfg.Logger), nil
	case StrategySpawn:
		return newSpawnExecutor(name, threads), nil
	default:
		return nil, fmt.Errorf("strategy %q: %w", st, ErrUnknownStrategy)
	}
}

// Range returns lo, every power of mult strictly between lo and hi, and hi.
// Thread and task sweeps use it.
func Range(lo, hi, mult int) []int {
	if hi < lo {
		return nil
	}
	if mult < 2 {
		mult = 2
	}
	out := []int{lo}
	for v := 1; v < hi; v *= mult {
		if v > lo {
			out = append(out, v)
		}
	}
	if hi != lo {
		out = append(out, hi)
	}
	return out
}

// DefaultTasks is 1e3, 1e4, 1e5.
func DefaultTasks() []int {
	return Range(1000, 100000, 10)
}

// DefaultThreads is 1, 2, 4, ... up to GOMAXPROCS.
func DefaultThreads() []int {
	return Range(1, runtime.GOMAXPROCS(0), 2)
}
