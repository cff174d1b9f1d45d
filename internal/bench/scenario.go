package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/Swind/go-task-scheduler/core"
	"github.com/Swind/go-task-scheduler/internal/kernels"
)

// Scenario is one workload shape run against every selected strategy.
type Scenario struct {
	Name        string
	Description string
	// Timed scenarios run fixed-length payloads and report a theoretical
	// zero-overhead time.
	Timed bool

	prepare func(env *caseEnv) func(ctx context.Context, ex executor)
}

type caseEnv struct {
	tasks   int
	payload time.Duration
	values  func(n int) []float32
}

type emptyTask struct {
	core.CPUTask
}

func (t *emptyTask) Run(ctx context.Context) core.MemoryAlloc { return core.MemoryAllocStack }

type payloadTask struct {
	core.CPUTask
	d      time.Duration
	result int64
}

func (t *payloadTask) Run(ctx context.Context) core.MemoryAlloc {
	t.result = kernels.Payload(t.d)
	return core.MemoryAllocStack
}

// Scenarios lists the built-in scenarios in report order.
var Scenarios = []Scenario{
	{
		Name:        "empty-tasks",
		Description: "N tasks with an empty body; measures pure dispatch overhead",
		prepare: func(env *caseEnv) func(context.Context, executor) {
			newTask := func(status *core.CompletionStatus) core.Task {
				return &emptyTask{CPUTask: core.NewCPUTask(status)}
			}
			return func(ctx context.Context, ex executor) {
				ex.submitN(ctx, env.tasks, newTask, func() {})
			}
		},
	},
	{
		Name:        "payload-tasks",
		Description: "N tasks each busy for the payload duration",
		Timed:       true,
		prepare: func(env *caseEnv) func(context.Context, executor) {
			d := env.payload
			newTask := func(status *core.CompletionStatus) core.Task {
				return &payloadTask{CPUTask: core.NewCPUTask(status), d: d}
			}
			return func(ctx context.Context, ex executor) {
				ex.submitN(ctx, env.tasks, newTask, func() { kernels.Payload(d) })
			}
		},
	},
	{
		Name:        "payload-loop",
		Description: "parallel for-each over N indices, one payload per index",
		Timed:       true,
		prepare: func(env *caseEnv) func(context.Context, executor) {
			d := env.payload
			return func(ctx context.Context, ex executor) {
				ex.forEach(ctx, int64(env.tasks), func(int64) { kernels.Payload(d) })
			}
		},
	},
	{
		Name:        "payload-loop-range",
		Description: "parallel for-each-range over N indices, one payload per index",
		Timed:       true,
		prepare: func(env *caseEnv) func(context.Context, executor) {
			d := env.payload
			return func(ctx context.Context, ex executor) {
				ex.forEachRange(ctx, int64(env.tasks), func(a, b int64) {
					for i := a; i < b; i++ {
						kernels.Payload(d)
					}
				})
			}
		},
	},
	{
		Name:        "matrix-mult-transpose",
		Description: "N independent 3x3 transpose-multiply products over random matrices",
		prepare: func(env *caseEnv) func(context.Context, executor) {
			lhs, rhs := kernels.MatrixPairs(env.values(18*env.tasks), env.tasks)
			out := make([]kernels.Mat3, env.tasks)
			return func(ctx context.Context, ex executor) {
				ex.forEachRange(ctx, int64(env.tasks), func(a, b int64) {
					for i := a; i < b; i++ {
						out[i] = lhs[i].MultTranspose(&rhs[i])
					}
				})
			}
		},
	},
}

// FindScenario returns the built-in scenario called name.
func FindScenario(name string) (Scenario, error) {
	for _, s := range Scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("scenario %q: %w", name, ErrUnknownScenario)
}
