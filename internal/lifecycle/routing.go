package lifecycle

import "docsaga/internal/backend"

// routingTable maps each backend to the request fields that concern it.
// An update step for a backend runs only when the update payload intersects
// its field set; otherwise the step is a no-op reported as skipped.
//
// file_path belongs to the file backend alone: a path change is a storage
// concern, and the relational row's copy is refreshed on create, not by
// routing updates through the relational step.
var routingTable = map[backend.Kind][]string{
	backend.Vector:     {"content", "chunks", "text", "title"},
	backend.Graph:      {"relationships", "tags", "author", "citations", "rechtsgebiet"},
	backend.Relational: {"metadata", "keywords", "file_hash", "behoerde"},
	backend.File:       {"file_path", "binary_content", "new_file_version"},
}

// routesTo reports whether payload carries at least one field owned by kind.
func routesTo(kind backend.Kind, payload map[string]any) bool {
	for _, field := range routingTable[kind] {
		if _, ok := payload[field]; ok {
			return true
		}
	}
	return false
}
