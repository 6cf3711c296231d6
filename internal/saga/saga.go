package saga

import (
	"context"
	"fmt"
)

// Package saga implements sequential execution of compensable steps.
// A saga approximates a distributed transaction: each step has an action and an
// optional compensation, and a failure unwinds the already-executed steps in
// reverse order. The engine never retries; retry policy belongs to callers.

// Context is the mutable state shared by the steps of one saga invocation.
// Actions contribute partial maps that are merged back into it; later steps
// must treat keys they did not introduce as read-only.
type Context map[string]any

// Merge copies all entries of partial into the context.
func (c Context) Merge(partial map[string]any) {
	for k, v := range partial {
		c[k] = v
	}
}

// StepOutcome is the tagged result of one step action. Exactly one of the three
// constructors produces it, so the engine branches by tag instead of catching.
type StepOutcome struct {
	partial  map[string]any
	warnings []string
	abort    error
}

// Ok reports success with an optional partial context contribution.
func Ok(partial map[string]any) StepOutcome {
	return StepOutcome{partial: partial}
}

// Warn reports success with a recorded warning, e.g. a skipped optional backend.
func Warn(warning string, partial map[string]any) StepOutcome {
	return StepOutcome{partial: partial, warnings: []string{warning}}
}

// Abort reports a fatal failure that triggers compensation of prior steps.
func Abort(err error) StepOutcome {
	return StepOutcome{abort: err}
}

// Abortf is Abort with formatting.
func Abortf(format string, args ...any) StepOutcome {
	return Abort(fmt.Errorf(format, args...))
}

// Aborted reports whether the outcome is fatal.
func (o StepOutcome) Aborted() bool { return o.abort != nil }

// Step is one unit of work in a saga.
type Step struct {
	// Name is unique within one saga and identifies the step in logs and errors.
	Name string
	// Action performs the work. It may read and contribute to the saga context.
	Action func(ctx context.Context, sc Context) StepOutcome
	// Compensate undoes the action. Optional; best-effort. A compensation error
	// is collected, never propagated, and never stops the remaining compensations.
	Compensate func(ctx context.Context, sc Context) error
}

// Status is the terminal state of one saga execution.
type Status string

const (
	// StatusCompleted: every step succeeded.
	StatusCompleted Status = "COMPLETED"
	// StatusCompensated: a step failed and all compensations succeeded.
	StatusCompensated Status = "COMPENSATED"
	// StatusCompensationFailed: a step failed and at least one compensation also
	// failed; manual operator intervention is required.
	StatusCompensationFailed Status = "COMPENSATION_FAILED"
)

// ExecutionResult is the full account of one saga run. It is owned by the
// caller for the duration of the invocation and is not persisted by the engine.
type ExecutionResult struct {
	SagaID             string   `json:"saga_id"`
	Name               string   `json:"name"`
	Status             Status   `json:"status"`
	Context            Context  `json:"-"`
	ExecutedSteps      []string `json:"executed_steps"`
	Warnings           []string `json:"warnings,omitempty"`
	Errors             []string `json:"errors,omitempty"`
	CompensationErrors []string `json:"compensation_errors,omitempty"`
}

// Completed reports whether every step ran without a fatal error.
func (r *ExecutionResult) Completed() bool {
	return r.Status == StatusCompleted
}

// Engine executes a saga. Implementations must share the semantics documented
// on Execute; the coordinator works against this interface so an external
// orchestrator can be injected while the in-process engine remains the fallback.
type Engine interface {
	// Execute runs steps strictly in order against a fresh copy of initial.
	// On the first aborting step, compensations of the already-executed steps run
	// in reverse order; each compensation failure is recorded and swallowed.
	// Execute never returns an error: failures are reported in the result.
	Execute(ctx context.Context, name string, steps []Step, initial Context) *ExecutionResult
}
