package identity

import (
	"context"
	"time"
)

// Package identity binds a canonical UUID to an optional business key
// (Aktenzeichen) and to the native identifiers of each persistence backend.
// The service is the exclusive owner of identity records; everything else in
// the system resolves identities through it.

// Identity status values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// BackendIDs holds the native key of each backend for one identity.
// Empty fields mean "not bound".
type BackendIDs struct {
	RelationalID  string `json:"relational_id,omitempty"`
	GraphID       string `json:"graph_id,omitempty"`
	VectorID      string `json:"vector_id,omitempty"`
	FileStorageID string `json:"file_storage_id,omitempty"`
}

// MergeFrom copies the non-empty fields of other into b, preserving existing
// bindings the caller did not supply.
func (b *BackendIDs) MergeFrom(other BackendIDs) {
	if other.RelationalID != "" {
		b.RelationalID = other.RelationalID
	}
	if other.GraphID != "" {
		b.GraphID = other.GraphID
	}
	if other.VectorID != "" {
		b.VectorID = other.VectorID
	}
	if other.FileStorageID != "" {
		b.FileStorageID = other.FileStorageID
	}
}

// Clear drops every binding. Used when an identity is hard-deleted.
func (b *BackendIDs) Clear() {
	*b = BackendIDs{}
}

// Identity is one canonical identity record.
// Invariant: a non-empty Aktenzeichen maps to exactly one UUID.
type Identity struct {
	UUID         string         `json:"uuid"`
	Aktenzeichen string         `json:"aktenzeichen,omitempty"`
	Status       string         `json:"status"`
	SourceSystem string         `json:"source_system"`
	Mappings     BackendIDs     `json:"mappings"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AuditEntry is one append-only record of an identity mutation.
type AuditEntry struct {
	UUID      string         `json:"uuid"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the durable backing of the identity service. Implementations must
// return ErrNotFound for lookup misses and treat Save as an upsert.
type Store interface {
	Get(ctx context.Context, uuid string) (*Identity, error)
	GetByAktenzeichen(ctx context.Context, aktenzeichen string) (*Identity, error)
	Save(ctx context.Context, id *Identity) error
	AppendAudit(ctx context.Context, entry AuditEntry) error
}
