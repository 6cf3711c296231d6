package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// LocalEngine is the in-process saga engine. It is stateless and safe for
// concurrent use; each Execute call is independent.
type LocalEngine struct{}

// NewLocalEngine constructs the in-process fallback engine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{}
}

var _ Engine = (*LocalEngine)(nil)

// Execute implements Engine.
func (e *LocalEngine) Execute(ctx context.Context, name string, steps []Step, initial Context) *ExecutionResult {
	return run(ctx, name, steps, initial)
}

// run is the single implementation of saga semantics. Both the local engine and
// the instrumented engine delegate here so their behavior cannot drift.
func run(ctx context.Context, name string, steps []Step, initial Context) *ExecutionResult {
	sc := Context{}
	sc.Merge(initial)

	res := &ExecutionResult{
		SagaID:  uuid.NewString(),
		Name:    name,
		Status:  StatusCompleted,
		Context: sc,
	}

	executed := make([]Step, 0, len(steps))

	for _, step := range steps {
		out := step.Action(ctx, sc)
		if out.Aborted() {
			res.Errors = append(res.Errors, fmt.Sprintf("step %s: %v", step.Name, out.abort))
			compensate(ctx, executed, sc, res)
			if len(res.CompensationErrors) > 0 {
				res.Status = StatusCompensationFailed
			} else {
				res.Status = StatusCompensated
			}
			return res
		}
		sc.Merge(out.partial)
		res.Warnings = append(res.Warnings, out.warnings...)
		res.ExecutedSteps = append(res.ExecutedSteps, step.Name)
		executed = append(executed, step)
	}

	return res
}

// compensate unwinds executed steps in reverse order. Compensation failures are
// collected and do not stop the remaining compensations.
func compensate(ctx context.Context, executed []Step, sc Context, res *ExecutionResult) {
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := safeCompensate(ctx, step, sc); err != nil {
			res.CompensationErrors = append(res.CompensationErrors,
				fmt.Sprintf("compensation %s: %v", step.Name, err))
		}
	}
}

// safeCompensate runs one compensation, converting a panic into an error so a
// misbehaving compensation cannot halt the unwind.
func safeCompensate(ctx context.Context, step Step, sc Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Compensate(ctx, sc)
}
