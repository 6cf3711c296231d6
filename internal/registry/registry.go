package registry

import (
	"context"
	"errors"
	"time"
)

// Package registry holds the process-wide record of document_id to per-backend
// native ids. Entries are written only by the final step of a successful saga
// and read by later sagas for the same document.

// ErrNotFound is returned when no entry exists for a document id.
var ErrNotFound = errors.New("mapping entry not found")

// Entry maps one document to its canonical identity and backend ids.
type Entry struct {
	DocumentID    string    `json:"document_id"`
	UUID          string    `json:"uuid"`
	IdentityKey   string    `json:"identity_key,omitempty"`
	VectorID      string    `json:"vector_id,omitempty"`
	GraphID       string    `json:"graph_id,omitempty"`
	RelationalID  string    `json:"relational_id,omitempty"`
	FileStorageID string    `json:"file_storage_id,omitempty"`
	Archived      bool      `json:"archived"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Registry is the mapping store contract. The in-memory implementation is
// single-process; a multi-instance deployment must back this with a durable,
// externally-consistent store.
type Registry interface {
	// Put creates or replaces the entry for entry.DocumentID.
	Put(ctx context.Context, entry Entry) error
	// Get returns the entry for a document id, or ErrNotFound.
	Get(ctx context.Context, documentID string) (Entry, error)
	// SetArchived flips the archived flag, or returns ErrNotFound.
	SetArchived(ctx context.Context, documentID string, archived bool) error
	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, documentID string) error
	// List returns all entries in unspecified order.
	List(ctx context.Context) ([]Entry, error)
}
