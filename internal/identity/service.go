package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// uuidNamespace seeds the deterministic UUID derived for a business key, so
// re-ingesting the same (source system, Aktenzeichen) pair lands on the same
// canonical identity.
var uuidNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Service coordinates identity records: canonical UUID, business key and
// per-backend native ids, with an append-only audit trail.
//
// All mutating calls are serialized by an internal lock; reads go straight to
// the store. The lock is independent of any saga-level locking.
type Service struct {
	mu    sync.Mutex
	store Store
	actor string
	now   func() time.Time
}

// NewService constructs an identity service over the given store. actor is
// recorded on every audit entry written by this instance.
func NewService(store Store, actor string) *Service {
	return &Service{
		store: store,
		actor: actor,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GenerateUUID returns the canonical UUID for a new document. With an
// Aktenzeichen the UUID is derived deterministically from the business key;
// without one a random UUID is issued.
func (s *Service) GenerateUUID(sourceSystem, aktenzeichen string) string {
	if aktenzeichen != "" {
		return uuid.NewSHA1(uuidNamespace, []byte(sourceSystem+"/"+aktenzeichen)).String()
	}
	return uuid.NewString()
}

// EnsureIdentity is an idempotent get-or-create. If the identity exists and the
// supplied Aktenzeichen differs from the stored one, the business key is
// re-registered on the same identity rather than duplicating it; a key owned by
// another identity is rejected with a ConflictError. status applies only when
// the identity is created; an empty status defaults to active.
func (s *Service) EnsureIdentity(ctx context.Context, id, aktenzeichen, sourceSystem, status string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		if aktenzeichen != "" && existing.Aktenzeichen != aktenzeichen {
			if err := s.registerLocked(ctx, existing, aktenzeichen); err != nil {
				return nil, err
			}
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return nil, serviceErr("ensure_identity", err)
	}

	if aktenzeichen != "" {
		if err := s.checkAktenzeichenFree(ctx, id, aktenzeichen); err != nil {
			return nil, err
		}
	}

	if status == "" {
		status = StatusActive
	}
	now := s.now()
	created := &Identity{
		UUID:         id,
		Aktenzeichen: aktenzeichen,
		Status:       status,
		SourceSystem: sourceSystem,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Save(ctx, created); err != nil {
		return nil, serviceErr("ensure_identity", err)
	}
	s.audit(ctx, id, "identity_created", map[string]any{
		"aktenzeichen":  aktenzeichen,
		"source_system": sourceSystem,
	})
	return created, nil
}

// RegisterAktenzeichen binds a business key to an identity, enforcing the
// one-key-one-uuid invariant. Re-registering the same key on the same identity
// is a no-op; a key held by a different identity is rejected.
func (s *Service) RegisterAktenzeichen(ctx context.Context, id, aktenzeichen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return serviceErr("register_aktenzeichen", err)
	}
	if ident.Aktenzeichen == aktenzeichen {
		return nil
	}
	return s.registerLocked(ctx, ident, aktenzeichen)
}

// registerLocked assumes s.mu is held.
func (s *Service) registerLocked(ctx context.Context, ident *Identity, aktenzeichen string) error {
	if err := s.checkAktenzeichenFree(ctx, ident.UUID, aktenzeichen); err != nil {
		return err
	}
	previous := ident.Aktenzeichen
	ident.Aktenzeichen = aktenzeichen
	ident.UpdatedAt = s.now()
	if err := s.store.Save(ctx, ident); err != nil {
		return serviceErr("register_aktenzeichen", err)
	}
	s.audit(ctx, ident.UUID, "aktenzeichen_registered", map[string]any{
		"aktenzeichen": aktenzeichen,
		"previous":     previous,
	})
	return nil
}

func (s *Service) checkAktenzeichenFree(ctx context.Context, id, aktenzeichen string) error {
	owner, err := s.store.GetByAktenzeichen(ctx, aktenzeichen)
	switch {
	case err == nil:
		if owner.UUID != id {
			return &ConflictError{
				Aktenzeichen:  aktenzeichen,
				ExistingUUID:  owner.UUID,
				RequestedUUID: id,
			}
		}
		return nil
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return serviceErr("register_aktenzeichen", err)
	}
}

// BindBackendIDs merges the supplied native ids into the identity's mappings.
// Fields the caller leaves empty keep their previously bound values.
func (s *Service) BindBackendIDs(ctx context.Context, id string, ids BackendIDs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return serviceErr("bind_backend_ids", err)
	}
	ident.Mappings.MergeFrom(ids)
	ident.UpdatedAt = s.now()
	if err := s.store.Save(ctx, ident); err != nil {
		return serviceErr("bind_backend_ids", err)
	}
	s.audit(ctx, id, "backend_ids_bound", map[string]any{
		"relational_id":   ids.RelationalID,
		"graph_id":        ids.GraphID,
		"vector_id":       ids.VectorID,
		"file_storage_id": ids.FileStorageID,
	})
	return nil
}

// SetStatus transitions the identity's status. clearBindings additionally drops
// all backend id bindings, used by hard deletes.
func (s *Service) SetStatus(ctx context.Context, id, status string, clearBindings bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return serviceErr("set_status", err)
	}
	previous := ident.Status
	ident.Status = status
	if clearBindings {
		ident.Mappings.Clear()
	}
	ident.UpdatedAt = s.now()
	if err := s.store.Save(ctx, ident); err != nil {
		return serviceErr("set_status", err)
	}
	s.audit(ctx, id, "status_changed", map[string]any{
		"status":           status,
		"previous":         previous,
		"bindings_cleared": clearBindings,
	})
	return nil
}

// ResolveByUUID returns the identity for a canonical UUID. Reads are unlocked.
func (s *Service) ResolveByUUID(ctx context.Context, id string) (*Identity, error) {
	ident, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, serviceErr("resolve_by_uuid", err)
	}
	return ident, nil
}

// ResolveByAktenzeichen returns the identity owning a business key.
func (s *Service) ResolveByAktenzeichen(ctx context.Context, aktenzeichen string) (*Identity, error) {
	ident, err := s.store.GetByAktenzeichen(ctx, aktenzeichen)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, serviceErr("resolve_by_aktenzeichen", err)
	}
	return ident, nil
}

// audit appends an entry best-effort; a failed audit write never fails the
// mutation it describes.
func (s *Service) audit(ctx context.Context, id, action string, details map[string]any) {
	_ = s.store.AppendAudit(ctx, AuditEntry{
		UUID:      id,
		Action:    action,
		Actor:     s.actor,
		Details:   details,
		CreatedAt: s.now(),
	})
}
