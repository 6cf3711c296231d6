package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docsaga/internal/backend"
	"docsaga/internal/config"
	"docsaga/internal/governance"
	"docsaga/internal/identity"
	"docsaga/internal/model"
	"docsaga/internal/registry"
	"docsaga/internal/saga"
	"docsaga/internal/validate"
)

// Coordinator assembles and runs the create/update/delete/restore sagas that
// keep a document consistent across the vector, graph, relational and file
// backends.
//
// Sagas for different document ids may run concurrently; the coordinator does
// not serialize sagas for the same document id, callers must impose their own
// per-document mutual exclusion.
type Coordinator struct {
	engine    saga.Engine
	backends  backend.Set
	gate      *governance.Gate
	identity  *identity.Service
	registry  registry.Registry
	validator *validate.Validator
	cfg       config.LifecycleConfig
	now       func() time.Time
}

// Options carries the coordinator's dependencies. Engine is optional: when nil
// the in-process saga engine is used, so the coordinator functions whether or
// not an external orchestrator is wired.
type Options struct {
	Engine   saga.Engine
	Backends backend.Set
	Gate     *governance.Gate
	Identity *identity.Service
	Registry registry.Registry
	Config   config.LifecycleConfig
}

// New constructs a Coordinator.
func New(opts Options) *Coordinator {
	engine := opts.Engine
	if engine == nil {
		engine = saga.NewLocalEngine()
	}
	gate := opts.Gate
	if gate == nil {
		gate = governance.NewGate(nil)
	}
	return &Coordinator{
		engine:    engine,
		backends:  opts.Backends,
		gate:      gate,
		identity:  opts.Identity,
		registry:  opts.Registry,
		validator: validate.New(),
		cfg:       opts.Config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Saga context keys shared between steps. Later steps treat keys they did not
// introduce as read-only.
const (
	ctxRequest      = "request"
	ctxDocumentID   = "document_id"
	ctxUUID         = "uuid"
	ctxAktenzeichen = "aktenzeichen"
	ctxContentHash  = "content_hash"
	ctxValidation   = "validation"
	ctxEntry        = "mapping_entry"
	ctxDeleteMode   = "delete_mode"
)

func opKey(kind backend.Kind) string   { return "op_" + string(kind) }
func snapKey(kind backend.Kind) string { return "snapshot_" + string(kind) }

// Get resolves the mapping entry and, when possible, the canonical identity
// for a document.
func (c *Coordinator) Get(ctx context.Context, documentID string) (registry.Entry, *identity.Identity, error) {
	entry, err := c.registry.Get(ctx, documentID)
	if err != nil {
		return registry.Entry{}, nil, err
	}
	ident, err := c.identity.ResolveByUUID(ctx, entry.UUID)
	if err != nil {
		// Identity bookkeeping is best-effort; the mapping entry alone is a
		// valid answer.
		return entry, nil, nil
	}
	return entry, ident, nil
}

// assembleResult converts one saga execution into the caller-visible shape.
func (c *Coordinator) assembleResult(operationType string, res *saga.ExecutionResult) *model.LifecycleResult {
	out := &model.LifecycleResult{
		OperationType:      operationType,
		Timestamp:          c.now(),
		Success:            res.Completed(),
		DatabaseOperations: map[string]map[string]any{},
		Issues:             append([]string(nil), res.Warnings...),
		Saga: model.SagaSummary{
			SagaID:             res.SagaID,
			Status:             string(res.Status),
			Errors:             res.Errors,
			CompensationErrors: res.CompensationErrors,
		},
	}
	if id, ok := res.Context[ctxDocumentID].(string); ok {
		out.DocumentID = id
	}
	for _, kind := range backend.Kinds() {
		if payload, ok := res.Context[opKey(kind)].(map[string]any); ok {
			out.DatabaseOperations[string(kind)] = payload
		}
	}
	if v, ok := res.Context[ctxValidation].(*model.ConsistencyValidationResult); ok {
		out.ValidationResults = v
		out.Issues = append(out.Issues, v.Issues...)
	}
	return out
}

// collectOperations gathers the per-backend payloads from the saga context.
func collectOperations(sc saga.Context) map[backend.Kind]map[string]any {
	ops := make(map[backend.Kind]map[string]any)
	for _, kind := range backend.Kinds() {
		if payload, ok := sc[opKey(kind)].(map[string]any); ok {
			ops[kind] = payload
		}
	}
	return ops
}

// skippedPayload is the uniform payload recorded for a backend that did not
// participate: counted as success, flagged as skipped.
func skippedPayload(documentID, reason string) map[string]any {
	return map[string]any{
		"success":     true,
		"skipped":     true,
		"document_id": documentID,
		"reason":      reason,
	}
}

// handlebackendResult converts an adapter result into a step outcome under the
// mandatory-backend rules: applied merges the payload, unavailable skips with a
// warning, failure aborts the saga.
func handleBackendResult(kind backend.Kind, operation string, documentID string, res backend.Result, enrich map[string]any) saga.StepOutcome {
	switch res.Outcome {
	case backend.OutcomeApplied:
		payload := res.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		if _, ok := payload["success"]; !ok {
			payload["success"] = true
		}
		if _, ok := payload["document_id"]; !ok {
			payload["document_id"] = documentID
		}
		for k, v := range enrich {
			if _, ok := payload[k]; !ok {
				payload[k] = v
			}
		}
		return saga.Ok(map[string]any{opKey(kind): payload})
	case backend.OutcomeUnavailable:
		warning := fmt.Sprintf("%s %s skipped: %s", kind, operation, res.Reason)
		return saga.Warn(warning, map[string]any{opKey(kind): skippedPayload(documentID, res.Reason)})
	default:
		return saga.Abort(&backend.OperationError{Backend: kind, Operation: operation, Cause: res.Err})
	}
}

// wasApplied reports whether the step for kind actually wrote to the backend
// (present and not skipped), i.e. whether a compensation is owed.
func wasApplied(sc saga.Context, kind backend.Kind) bool {
	payload, ok := sc[opKey(kind)].(map[string]any)
	if !ok {
		return false
	}
	skipped, _ := payload["skipped"].(bool)
	return !skipped
}

// compensationError normalizes an adapter result inside a compensation: an
// unavailable backend owes nothing, a failure is reported to the engine.
func compensationError(kind backend.Kind, operation string, res backend.Result) error {
	switch res.Outcome {
	case backend.OutcomeFailed:
		return &backend.OperationError{Backend: kind, Operation: operation, Cause: res.Err}
	default:
		return nil
	}
}

// documentIDFrom reads the document id out of the saga context.
func documentIDFrom(sc saga.Context) string {
	id, _ := sc[ctxDocumentID].(string)
	return id
}

func joinIssues(issues []string) string {
	return strings.Join(issues, "; ")
}
