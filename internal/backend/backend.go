package backend

import "context"

// Package backend defines the uniform contract the lifecycle coordinator uses to talk
// to the four heterogeneous persistence systems. Concrete clients live in subpackages;
// anything satisfying Adapter can be plugged in.

// Kind identifies one of the four persistence backends.
type Kind string

const (
	Vector     Kind = "vector"
	Graph      Kind = "graph"
	Relational Kind = "relational"
	File       Kind = "file"
)

// Kinds lists all backends in their canonical create order.
func Kinds() []Kind {
	return []Kind{Vector, Graph, Relational, File}
}

// IDField returns the payload key under which a backend reports its native identifier.
func (k Kind) IDField() string {
	switch k {
	case Vector:
		return "vector_id"
	case Graph:
		return "graph_id"
	case Relational:
		return "relational_id"
	case File:
		return "file_storage_id"
	}
	return ""
}

// DeleteMode selects between marking a record archived and physically removing it.
type DeleteMode string

const (
	DeleteSoft DeleteMode = "soft"
	DeleteHard DeleteMode = "hard"
)

// DeleteOptions carries per-call delete behavior.
type DeleteOptions struct {
	Mode DeleteMode
}

// Adapter is the uniform CRUD surface of a single backend.
//
// Every method returns a Result rather than a bare error so that callers can
// distinguish a hard failure from an unconfigured backend without string matching.
type Adapter interface {
	// Kind reports which backend this adapter fronts.
	Kind() Kind

	// Create persists the document representation owned by this backend.
	Create(ctx context.Context, documentID string, payload map[string]any) Result

	// Read returns the backend's current representation of the document.
	Read(ctx context.Context, documentID string) Result

	// Update applies a partial payload to an existing document.
	Update(ctx context.Context, documentID string, payload map[string]any) Result

	// Delete removes or archives the document per opts.Mode.
	Delete(ctx context.Context, documentID string, opts DeleteOptions) Result
}

// Set maps each backend kind to its adapter. Missing kinds are treated as
// unconfigured and resolve to an Unavailable result.
type Set map[Kind]Adapter

// Adapter returns the adapter for kind, or an always-unavailable stand-in.
func (s Set) Adapter(kind Kind) Adapter {
	if a, ok := s[kind]; ok && a != nil {
		return a
	}
	return Unconfigured(kind)
}

// Configured reports whether a real adapter is wired for kind.
func (s Set) Configured(kind Kind) bool {
	a, ok := s[kind]
	return ok && a != nil
}
