package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"docsaga/internal/backend"
	"docsaga/internal/governance"
	"docsaga/internal/identity"
	"docsaga/internal/model"
	"docsaga/internal/registry"
	"docsaga/internal/saga"
)

// Update runs the 7-step update saga. Backend steps execute only when the
// update payload intersects the backend's routed fields; untouched backends
// report skipped=true. A failed step, including a failed final consistency
// check, restores every touched backend from the pre-update snapshot.
func (c *Coordinator) Update(ctx context.Context, documentID string, updates map[string]any) *model.LifecycleResult {
	steps := []saga.Step{
		{Name: "load_current_state", Action: c.loadStateAction(documentID)},
	}
	for _, kind := range backend.Kinds() {
		steps = append(steps, c.updateBackendStep(kind, updates))
	}
	steps = append(steps,
		saga.Step{Name: "identity_update", Action: c.identityUpdateAction(updates)},
		saga.Step{Name: "validation_and_finalize", Action: c.updateFinalizeAction()},
	)

	res := c.engine.Execute(ctx, "document_update", steps, saga.Context{
		ctxRequest:    updates,
		ctxDocumentID: documentID,
	})
	return c.assembleResult("update", res)
}

// loadStateAction resolves the mapping entry and captures a read-only snapshot
// of every backend's current representation. It has no compensation.
func (c *Coordinator) loadStateAction(documentID string) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		entry, err := c.registry.Get(ctx, documentID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return saga.Abortf("document %s is not registered", documentID)
			}
			return saga.Abortf("load mapping entry: %v", err)
		}

		partial := map[string]any{
			ctxEntry:        entry,
			ctxUUID:         entry.UUID,
			ctxAktenzeichen: entry.IdentityKey,
		}

		var warnings []string
		for _, kind := range backend.Kinds() {
			res := c.backends.Adapter(kind).Read(ctx, documentID)
			switch res.Outcome {
			case backend.OutcomeApplied:
				partial[snapKey(kind)] = res.Payload
			case backend.OutcomeFailed:
				// Without a snapshot the step for this backend cannot be
				// compensated; record the gap rather than aborting a read.
				warnings = append(warnings,
					fmt.Sprintf("%s snapshot unavailable: %v", kind, res.Err))
			}
		}

		if len(warnings) > 0 {
			return saga.Warn(joinIssues(warnings), partial)
		}
		return saga.Ok(partial)
	}
}

// updateBackendStep applies updates to one backend when the payload routes to
// it; its compensation restores the pre-update snapshot.
func (c *Coordinator) updateBackendStep(kind backend.Kind, updates map[string]any) saga.Step {
	return saga.Step{
		Name: string(kind) + "_update",
		Action: func(ctx context.Context, sc saga.Context) saga.StepOutcome {
			documentID := documentIDFrom(sc)
			if !routesTo(kind, updates) {
				return saga.Ok(map[string]any{
					opKey(kind): skippedPayload(documentID, "no routed fields in update"),
				})
			}

			payload := buildBackendPayload(sc, updates)
			if c.backends.Configured(kind) {
				if err := c.gate.Check(kind, governance.OpUpdate, payload); err != nil {
					return saga.Abort(err)
				}
			}

			res := c.backends.Adapter(kind).Update(ctx, documentID, payload)
			return handleBackendResult(kind, "update", documentID, res, enrichment(kind, updates))
		},
		Compensate: func(ctx context.Context, sc saga.Context) error {
			if !wasApplied(sc, kind) {
				return nil
			}
			snapshot, ok := sc[snapKey(kind)].(map[string]any)
			if !ok {
				return fmt.Errorf("%s: no snapshot captured, manual restore required", kind)
			}
			documentID := documentIDFrom(sc)
			res := c.backends.Adapter(kind).Update(ctx, documentID, snapshot)
			return compensationError(kind, "update compensation", res)
		},
	}
}

// identityUpdateAction refreshes identity bindings best-effort; it never aborts
// the saga.
func (c *Coordinator) identityUpdateAction(updates map[string]any) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		canonical, _ := sc[ctxUUID].(string)

		if aktenzeichen, ok := updates["aktenzeichen"].(string); ok && aktenzeichen != "" {
			if err := c.identity.RegisterAktenzeichen(ctx, canonical, aktenzeichen); err != nil {
				return saga.Warn(fmt.Sprintf("identity update issue: %v", err), nil)
			}
			sc[ctxAktenzeichen] = aktenzeichen
		}

		if ids := backendIDsFrom(collectOperations(sc)); ids != (identity.BackendIDs{}) {
			if err := c.identity.BindBackendIDs(ctx, canonical, ids); err != nil {
				return saga.Warn(fmt.Sprintf("identity update issue: %v", err), nil)
			}
		}
		return saga.Ok(nil)
	}
}

// updateFinalizeAction validates the touched backends and re-commits the
// mapping entry with any refreshed native ids.
func (c *Coordinator) updateFinalizeAction() func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		documentID := documentIDFrom(sc)
		ops := collectOperations(sc)

		vres := c.validator.Validate(documentID, ops)
		sc[ctxValidation] = vres
		if !vres.OverallValid {
			return saga.Abortf("consistency validation failed: %s", joinIssues(vres.Issues))
		}

		entry, _ := sc[ctxEntry].(registry.Entry)
		refreshed := entryFrom(sc, ops)
		mergeEntryIDs(&entry, refreshed)
		entry.IdentityKey = refreshed.IdentityKey
		if err := c.registry.Put(ctx, entry); err != nil {
			return saga.Abortf("mapping registry commit: %v", err)
		}
		return saga.Ok(nil)
	}
}

// mergeEntryIDs overlays the non-empty native ids of refreshed onto entry.
func mergeEntryIDs(entry *registry.Entry, refreshed registry.Entry) {
	if refreshed.VectorID != "" {
		entry.VectorID = refreshed.VectorID
	}
	if refreshed.GraphID != "" {
		entry.GraphID = refreshed.GraphID
	}
	if refreshed.RelationalID != "" {
		entry.RelationalID = refreshed.RelationalID
	}
	if refreshed.FileStorageID != "" {
		entry.FileStorageID = refreshed.FileStorageID
	}
}
