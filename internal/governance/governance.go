package governance

import (
	"fmt"

	"docsaga/internal/backend"
)

// Package governance gates every backend call behind policy and payload checks.
// A rejection is always fatal to the calling saga; there is no silent tolerance
// for governance violations, unlike optional-backend skips.

// Operation names a CRUD primitive as seen by the gate.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Violation is the error produced by a rejected operation or payload.
type Violation struct {
	Backend   backend.Kind
	Operation Operation
	Reason    string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("governance violation: %s %s: %s", v.Backend, v.Operation, v.Reason)
}

// Policy decides which operations are permitted per backend and whether a
// payload satisfies that backend's structural constraints. Both methods return
// a *Violation on rejection.
type Policy interface {
	EnsureOperationAllowed(kind backend.Kind, op Operation) error
	EnforcePayload(kind backend.Kind, op Operation, payload map[string]any) error
}

// Gate runs pre-flight checks before a backend call. A nil policy means
// unconditional allow.
type Gate struct {
	policy Policy
}

// NewGate constructs a gate over an optional policy.
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy}
}

// Check validates that op is permitted for kind and that payload satisfies the
// backend's constraints. Absence of a configured policy allows everything.
func (g *Gate) Check(kind backend.Kind, op Operation, payload map[string]any) error {
	if g == nil || g.policy == nil {
		return nil
	}
	if err := g.policy.EnsureOperationAllowed(kind, op); err != nil {
		return err
	}
	return g.policy.EnforcePayload(kind, op, payload)
}
