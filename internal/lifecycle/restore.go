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

// Restore reverses a soft delete: the relational row and the archived file
// object are un-archived, the identity is reactivated and the mapping entry's
// archived flag is cleared. Only soft-deleted documents can be restored; the
// vector and graph representations of a deleted document are gone and must be
// re-ingested separately.
func (c *Coordinator) Restore(ctx context.Context, documentID string) *model.LifecycleResult {
	steps := []saga.Step{
		{Name: "load_archived_state", Action: c.loadArchivedAction(documentID)},
		c.restoreBackendStep(backend.Relational),
		c.restoreBackendStep(backend.File),
		{Name: "identity_activate", Action: c.identityActivateAction()},
		{Name: "finalize_restore", Action: c.restoreFinalizeAction()},
	}

	res := c.engine.Execute(ctx, "document_restore", steps, saga.Context{
		ctxDocumentID: documentID,
	})
	return c.assembleResult("restore", res)
}

// loadArchivedAction requires an archived mapping entry.
func (c *Coordinator) loadArchivedAction(documentID string) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		entry, err := c.registry.Get(ctx, documentID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return saga.Abortf("document %s is not registered", documentID)
			}
			return saga.Abortf("load mapping entry: %v", err)
		}
		if !entry.Archived {
			return saga.Abortf("document %s is not archived", documentID)
		}
		return saga.Ok(map[string]any{
			ctxEntry:        entry,
			ctxUUID:         entry.UUID,
			ctxAktenzeichen: entry.IdentityKey,
		})
	}
}

// restoreBackendStep un-archives one backend; its compensation re-archives.
func (c *Coordinator) restoreBackendStep(kind backend.Kind) saga.Step {
	return saga.Step{
		Name: string(kind) + "_restore",
		Action: func(ctx context.Context, sc saga.Context) saga.StepOutcome {
			documentID := documentIDFrom(sc)
			payload := map[string]any{"archived": false}
			if kind == backend.File {
				entry, _ := sc[ctxEntry].(registry.Entry)
				payload["file_storage_id"] = entry.FileStorageID
			}
			if c.backends.Configured(kind) {
				if err := c.gate.Check(kind, governance.OpUpdate, payload); err != nil {
					return saga.Abort(err)
				}
			}
			res := c.backends.Adapter(kind).Update(ctx, documentID, payload)
			return handleBackendResult(kind, "restore", documentID, res, nil)
		},
		Compensate: func(ctx context.Context, sc saga.Context) error {
			if !wasApplied(sc, kind) {
				return nil
			}
			documentID := documentIDFrom(sc)
			res := c.backends.Adapter(kind).Delete(ctx, documentID, backend.DeleteOptions{Mode: backend.DeleteSoft})
			return compensationError(kind, "restore compensation", res)
		},
	}
}

// identityActivateAction reactivates the identity best-effort.
func (c *Coordinator) identityActivateAction() func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		canonical, _ := sc[ctxUUID].(string)
		if err := c.identity.SetStatus(ctx, canonical, identity.StatusActive, false); err != nil {
			return saga.Warn(fmt.Sprintf("identity activate issue: %v", err), nil)
		}
		return saga.Ok(nil)
	}
}

// restoreFinalizeAction clears the archived flag on the mapping entry.
func (c *Coordinator) restoreFinalizeAction() func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		documentID := documentIDFrom(sc)
		if err := c.registry.SetArchived(ctx, documentID, false); err != nil {
			return saga.Abortf("mapping registry restore: %v", err)
		}
		return saga.Ok(nil)
	}
}
