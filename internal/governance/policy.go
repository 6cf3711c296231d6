package governance

import (
	"fmt"

	"docsaga/internal/backend"
)

// RulePolicy is a declarative Policy: an operation allow-list per backend and
// required payload fields per (backend, operation). Empty rule sets allow
// everything for that dimension.
type RulePolicy struct {
	// AllowedOperations restricts which operations a backend accepts. A backend
	// absent from the map accepts all operations.
	AllowedOperations map[backend.Kind][]Operation
	// RequiredFields lists payload keys that must be present and non-empty for a
	// given backend operation.
	RequiredFields map[backend.Kind]map[Operation][]string
}

var _ Policy = (*RulePolicy)(nil)

// DefaultPolicy returns the structural constraints every deployment carries:
// creates must ship the representation the backend exists to hold.
func DefaultPolicy() *RulePolicy {
	return &RulePolicy{
		RequiredFields: map[backend.Kind]map[Operation][]string{
			backend.Vector: {
				OpCreate: {"chunks"},
			},
			backend.Relational: {
				OpCreate: {"title"},
			},
			backend.File: {
				OpCreate: {"file_path"},
			},
		},
	}
}

// EnsureOperationAllowed implements Policy.
func (p *RulePolicy) EnsureOperationAllowed(kind backend.Kind, op Operation) error {
	allowed, ok := p.AllowedOperations[kind]
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if a == op {
			return nil
		}
	}
	return &Violation{
		Backend:   kind,
		Operation: op,
		Reason:    "operation not permitted under current policy",
	}
}

// EnforcePayload implements Policy.
func (p *RulePolicy) EnforcePayload(kind backend.Kind, op Operation, payload map[string]any) error {
	required, ok := p.RequiredFields[kind]
	if !ok {
		return nil
	}
	fields, ok := required[op]
	if !ok {
		return nil
	}
	for _, f := range fields {
		v, present := payload[f]
		if !present || isEmptyValue(v) {
			return &Violation{
				Backend:   kind,
				Operation: op,
				Reason:    fmt.Sprintf("payload field %q is required", f),
			}
		}
	}
	return nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
