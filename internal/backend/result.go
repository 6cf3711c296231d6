package backend

import (
	"context"
	"fmt"
	"strings"
)

// Outcome tags a backend call result so callers branch exhaustively instead of
// sniffing error strings.
type Outcome int

const (
	// OutcomeApplied means the backend performed the operation.
	OutcomeApplied Outcome = iota
	// OutcomeFailed means the backend attempted the operation and failed.
	OutcomeFailed
	// OutcomeUnavailable means the backend is not configured or not reachable in a
	// way that the lifecycle treats as "skip", not as an error.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the uniform return value of every adapter call.
type Result struct {
	Outcome Outcome
	// Payload carries backend-reported fields (native id, counts, mode, ...).
	// Nil for failed and unavailable results.
	Payload map[string]any
	// Err is set for OutcomeFailed.
	Err error
	// Reason is a short human-readable note for OutcomeUnavailable.
	Reason string
}

// Applied builds a success result.
func Applied(payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	return Result{Outcome: OutcomeApplied, Payload: payload}
}

// Failure builds a hard-failure result.
func Failure(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Failuref builds a hard-failure result from a format string.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Errorf(format, args...))
}

// Unavailable builds a skip result for a backend that is not configured.
func Unavailable(reason string) Result {
	return Result{Outcome: OutcomeUnavailable, Reason: reason}
}

// unavailableMarkers are the legacy substrings emitted by external collaborators
// that predate the typed Result. Matched case-insensitively.
var unavailableMarkers = []string{
	"not configured",
	"not available",
	"unavailable",
}

// FromLegacyError converts an error from a collaborator that still signals
// "backend missing" through its message into the proper Result variant.
func FromLegacyError(err error) Result {
	if err == nil {
		return Applied(nil)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return Unavailable(err.Error())
		}
	}
	return Failure(err)
}

// OperationError is the error carried out of a failed mandatory backend call.
// It wraps the underlying cause and names the backend and operation.
type OperationError struct {
	Backend   Kind
	Operation string
	Cause     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }

// unconfigured is the stand-in adapter for a backend kind with no wired client.
type unconfigured struct {
	kind Kind
}

// Unconfigured returns an adapter whose every call reports Unavailable.
func Unconfigured(kind Kind) Adapter {
	return unconfigured{kind: kind}
}

func (u unconfigured) Kind() Kind { return u.kind }

func (u unconfigured) Create(context.Context, string, map[string]any) Result {
	return Unavailable(fmt.Sprintf("%s backend not configured", u.kind))
}

func (u unconfigured) Read(context.Context, string) Result {
	return Unavailable(fmt.Sprintf("%s backend not configured", u.kind))
}

func (u unconfigured) Update(context.Context, string, map[string]any) Result {
	return Unavailable(fmt.Sprintf("%s backend not configured", u.kind))
}

func (u unconfigured) Delete(context.Context, string, DeleteOptions) Result {
	return Unavailable(fmt.Sprintf("%s backend not configured", u.kind))
}
