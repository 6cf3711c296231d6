package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"docsaga/internal/backend"
	"docsaga/internal/governance"
	"docsaga/internal/identity"
	"docsaga/internal/model"
	"docsaga/internal/registry"
	"docsaga/internal/saga"
)

// Create runs the 7-step create saga: identity, one create per backend, id
// binding, then validation and the mapping-registry commit. Any mandatory
// backend failure compensates every already-completed step; unconfigured
// backends are skipped and reported as warnings.
func (c *Coordinator) Create(ctx context.Context, request map[string]any) *model.LifecycleResult {
	steps := []saga.Step{
		{Name: "security_and_identity", Action: c.createIdentityAction(request)},
	}
	for _, kind := range backend.Kinds() {
		steps = append(steps, c.createBackendStep(kind, request))
	}
	steps = append(steps,
		saga.Step{Name: "identity_mapping", Action: c.identityMappingAction()},
		saga.Step{Name: "validation_and_finalize", Action: c.createFinalizeAction()},
	)

	res := c.engine.Execute(ctx, "document_create", steps, saga.Context{ctxRequest: request})
	return c.assembleResult("create", res)
}

// createIdentityAction hashes the content, obtains the canonical UUID and
// derives the document id.
func (c *Coordinator) createIdentityAction(request map[string]any) func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		aktenzeichen, _ := request["aktenzeichen"].(string)

		canonical, _ := request["uuid"].(string)
		if canonical == "" {
			canonical = c.identity.GenerateUUID(c.cfg.SourceSystem, aktenzeichen)
		}
		documentID := DeriveDocumentID(canonical)

		partial := map[string]any{
			ctxUUID:         canonical,
			ctxDocumentID:   documentID,
			ctxAktenzeichen: aktenzeichen,
			ctxContentHash:  hashContent(request),
		}

		_, err := c.identity.EnsureIdentity(ctx, canonical, aktenzeichen, c.cfg.SourceSystem, "")
		switch {
		case err == nil:
			return saga.Ok(partial)
		case isConflict(err):
			// A business key owned by another identity is a real error, not
			// identity bookkeeping noise.
			return saga.Abort(err)
		default:
			return saga.Warn(fmt.Sprintf("identity service issue: %v", err), partial)
		}
	}
}

// createBackendStep builds one per-backend create step with its compensating
// delete.
func (c *Coordinator) createBackendStep(kind backend.Kind, request map[string]any) saga.Step {
	return saga.Step{
		Name: string(kind) + "_create",
		Action: func(ctx context.Context, sc saga.Context) saga.StepOutcome {
			documentID := documentIDFrom(sc)
			payload := buildBackendPayload(sc, request)

			// An absent backend guards no call; its step reports a skip, so
			// policy has nothing to enforce.
			if c.backends.Configured(kind) {
				if err := c.gate.Check(kind, governance.OpCreate, payload); err != nil {
					return saga.Abort(err)
				}
			}

			res := c.backends.Adapter(kind).Create(ctx, documentID, payload)
			return handleBackendResult(kind, "create", documentID, res, enrichment(kind, request))
		},
		Compensate: func(ctx context.Context, sc saga.Context) error {
			if !wasApplied(sc, kind) {
				return nil
			}
			documentID := documentIDFrom(sc)
			res := c.backends.Adapter(kind).Delete(ctx, documentID, backend.DeleteOptions{Mode: backend.DeleteHard})
			return compensationError(kind, "create compensation", res)
		},
	}
}

// identityMappingAction binds the produced backend ids to the identity.
// Identity faults are recorded as issues, never as grounds to abort.
func (c *Coordinator) identityMappingAction() func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		canonical, _ := sc[ctxUUID].(string)
		ids := backendIDsFrom(collectOperations(sc))
		if err := c.identity.BindBackendIDs(ctx, canonical, ids); err != nil {
			return saga.Warn(fmt.Sprintf("identity mapping issue: %v", err), nil)
		}
		return saga.Ok(nil)
	}
}

// createFinalizeAction validates cross-backend agreement and commits the
// mapping entry only when valid.
func (c *Coordinator) createFinalizeAction() func(context.Context, saga.Context) saga.StepOutcome {
	return func(ctx context.Context, sc saga.Context) saga.StepOutcome {
		documentID := documentIDFrom(sc)
		ops := collectOperations(sc)

		vres := c.validator.Validate(documentID, ops)
		sc[ctxValidation] = vres
		if !vres.OverallValid {
			return saga.Abortf("consistency validation failed: %s", joinIssues(vres.Issues))
		}

		entry := entryFrom(sc, ops)
		if err := c.registry.Put(ctx, entry); err != nil {
			return saga.Abortf("mapping registry commit: %v", err)
		}
		return saga.Ok(nil)
	}
}

// buildBackendPayload merges the request with the identity fields the earlier
// steps produced.
func buildBackendPayload(sc saga.Context, request map[string]any) map[string]any {
	payload := make(map[string]any, len(request)+3)
	for k, v := range request {
		payload[k] = v
	}
	payload["document_id"] = documentIDFrom(sc)
	if canonical, ok := sc[ctxUUID].(string); ok {
		payload["uuid"] = canonical
	}
	if hash, ok := sc[ctxContentHash].(string); ok && hash != "" {
		payload["file_hash"] = hash
	}
	return payload
}

// enrichment supplies the fields the consistency validator checks when a
// backend's own response omits them.
func enrichment(kind backend.Kind, request map[string]any) map[string]any {
	switch kind {
	case backend.Vector:
		if chunks, ok := request["chunks"]; ok {
			return map[string]any{"chunks": chunks}
		}
	case backend.Graph:
		if rels, ok := request["relationships"]; ok {
			return map[string]any{"relationships": rels}
		}
	case backend.Relational:
		if title, ok := request["title"]; ok {
			return map[string]any{"title": title}
		}
	}
	return nil
}

// backendIDsFrom extracts every native id reported by the backend payloads.
func backendIDsFrom(ops map[backend.Kind]map[string]any) identity.BackendIDs {
	var ids identity.BackendIDs
	for kind, payload := range ops {
		id, _ := payload[kind.IDField()].(string)
		switch kind {
		case backend.Vector:
			ids.VectorID = id
		case backend.Graph:
			ids.GraphID = id
		case backend.Relational:
			ids.RelationalID = id
		case backend.File:
			ids.FileStorageID = id
		}
	}
	return ids
}

// entryFrom builds the mapping entry committed by a successful create/update.
func entryFrom(sc saga.Context, ops map[backend.Kind]map[string]any) registry.Entry {
	ids := backendIDsFrom(ops)
	canonical, _ := sc[ctxUUID].(string)
	aktenzeichen, _ := sc[ctxAktenzeichen].(string)
	return registry.Entry{
		DocumentID:    documentIDFrom(sc),
		UUID:          canonical,
		IdentityKey:   aktenzeichen,
		VectorID:      ids.VectorID,
		GraphID:       ids.GraphID,
		RelationalID:  ids.RelationalID,
		FileStorageID: ids.FileStorageID,
	}
}

func hashContent(request map[string]any) string {
	content, _ := request["content"].(string)
	if content == "" {
		content, _ = request["binary_content"].(string)
	}
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func isConflict(err error) bool {
	var conflict *identity.ConflictError
	return errors.As(err, &conflict)
}
