package lifecycle

import (
	"context"
	"fmt"

	"docsaga/internal/backend"
	"docsaga/internal/governance"
	"docsaga/internal/identity"
	"docsaga/internal/model"
	"docsaga/internal/saga"
)

// Delete runs the 7-step delete saga. strategy selects the relational and file
// behavior: "soft" marks rows archived and moves the object to the archive,
// "hard" removes them; the vector and graph representations are always removed.
// Compensations restore each backend from the load_current_state snapshot.
func (c *Coordinator) Delete(ctx context.Context, documentID string, strategy string) *model.LifecycleResult {
	mode := c.deleteMode(strategy)

	steps := []saga.Step{
		{Name: "load_current_state", Action: c.loadStateAction(documentID)},
	}
	for _, kind := range backend.Kinds() {
		steps = append(steps, c.deleteBackendStep(kind, mode))
	}
	steps = append(steps,
		saga.Step{
			Name:       "identity_retire",
			Action:     c.identityRetireAction(mode),
			Compensate: c.identityReviveCompensation(),
		},
		saga.Step{Name: "finalize_delete", Action: c.deleteFinalizeAction(mode)},
	)

	res := c.engine.Execute(ctx, "document_delete", steps, saga.Context{
		ctxDocumentID: documentID,
		ctxDeleteMode: string(mode),
	})
	return c.assembleResult("delete", res)
}

func (c *Coordinator) deleteMode(strategy string) backend.DeleteMode {
	switch strategy {
	case string(backend.DeleteHard):
		return backend.DeleteHard
	case string(backend.DeleteSoft):
		return backend.DeleteSoft
	case "":
		if c.cfg.DefaultDeleteStrategy == string(backend.DeleteHard) {
			return backend.DeleteHard
		}
		return backend.DeleteSoft
	default:
		return backend.DeleteSoft
	}
}

// backendDeleteMode narrows the saga-level strategy per backend: the vector
// index and graph store have no archived representation, so their delete is
// always physical.
func backendDeleteMode(kind backend.Kind, mode backend.DeleteMode) backend.DeleteMode {
	switch kind {
	case backend.Relational, backend.File:
		return mode
	default:
		return backend.DeleteHard
	}
}

// deleteBackendStep removes one backend's representation; its compensation
// re-creates or un-archives it from the captured snapshot.
func (c *Coordinator) deleteBackendStep(kind backend.Kind, mode backend.DeleteMode) saga.Step {
	stepMode := backendDeleteMode(kind, mode)
	return saga.Step{
		Name: string(kind) + "_delete",
		Action: func(ctx context.Context, sc saga.Context) saga.StepOutcome {
			documentID := documentIDFrom(sc)
			if c.backends.Configured(kind) {
				if err := c.gate.Check(kind, governance.OpDelete, nil); err != nil {
					return saga.Abort(err)
				}
			}
			res := c.backends.Adapter(kind).Delete(ctx, documentID, backend.DeleteOptions{Mode: stepMode})
			return handleBackendResult(kind, "delete", documentID, res,
				map[string]any{"mode": string(stepMode)})
		},
		Compensate: func(ctx context.Context, sc saga.Context) error {
			if !wasApplied(sc, kind) {
				return nil
			}
			documentID := documentIDFrom(sc)
			adapter := c.backends.Adapter(kind)

			if stepMode == backend.DeleteSoft {
				// Un-archive in place; the record still exists.
				restore := map[string]any{"archived": false}
				if snapshot, ok := sc[snapKey(kind)].(map[string]any); ok {
					if id, ok := snapshot[kind.IDField()].(string); ok {
						restore[kind.IDField()] = id
					}
				}
				return compensationError(kind, "delete compensation", adapter.Update(ctx, documentID, restore))
			}

			snapshot, ok := sc[snapKey(kind)].(map[string]any)
			if !ok {
				return fmt.Errorf("%s: no snapshot captured, manual restore required", kind)
			}
			return compensationError(kind, "delete compensation", adapter.Create(ctx, documentID, snapshot))
		},
	}
}

// identityRetireAction marks the identity archived (soft) or deleted (hard);
// a hard delete also clears the backend id bindings. Identity faults are
// recorded as issues only.
func (c *Coordinator) identityRetireAction(mode backend.DeleteMode) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		canonical, _ := sc[ctxUUID].(string)
		status := identity.StatusArchived
		clearBindings := false
		if mode == backend.DeleteHard {
			status = identity.StatusDeleted
			clearBindings = true
		}
		if err := c.identity.SetStatus(ctx, canonical, status, clearBindings); err != nil {
			return saga.Warn(fmt.Sprintf("identity retire issue: %v", err), nil)
		}
		return saga.Ok(nil)
	}
}

// identityReviveCompensation reactivates the identity if the saga unwinds
// after the retire step ran.
func (c *Coordinator) identityReviveCompensation() func(context.Context, saga.Context) error {
	return func(ctx context.Context, sc saga.Context) error {
		canonical, _ := sc[ctxUUID].(string)
		// Best effort, mirroring the forward step's non-fatal stance.
		_ = c.identity.SetStatus(ctx, canonical, identity.StatusActive, false)
		return nil
	}
}

// deleteFinalizeAction marks or removes the mapping entry.
func (c *Coordinator) deleteFinalizeAction(mode backend.DeleteMode) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		documentID := documentIDFrom(sc)
		if mode == backend.DeleteHard {
			if err := c.registry.Delete(ctx, documentID); err != nil {
				return saga.Abortf("mapping registry delete: %v", err)
			}
			return saga.Ok(nil)
		}
		if err := c.registry.SetArchived(ctx, documentID, true); err != nil {
			return saga.Abortf("mapping registry archive: %v", err)
		}
		return saga.Ok(nil)
	}
}
