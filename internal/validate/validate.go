package validate

import (
	"fmt"

	"docsaga/internal/backend"
	"docsaga/internal/model"
)

// Package validate implements the cross-backend agreement check run after a
// create or update saga. It inspects the per-backend result payloads;
// skipped backends are excluded from every check.

// Check names, stable for callers branching on Checks.
const (
	CheckIDConsistency    = "id_consistency"
	CheckOperationSuccess = "operation_success"
	CheckDataPresence     = "data_presence"
	CheckFileStorage      = "file_storage"
)

// Validator performs cross-database consistency validation.
type Validator struct{}

// New constructs a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks the per-backend payloads of one document against each other.
// overall_valid is the conjunction of all checks; every failing check adds a
// human-readable issue.
func (v *Validator) Validate(documentID string, operations map[backend.Kind]map[string]any) *model.ConsistencyValidationResult {
	res := &model.ConsistencyValidationResult{
		DocumentID: documentID,
		Checks: map[string]bool{
			CheckIDConsistency:    true,
			CheckOperationSuccess: true,
			CheckDataPresence:     true,
			CheckFileStorage:      true,
		},
	}

	for kind, payload := range operations {
		if payload == nil || isSkipped(payload) {
			continue
		}

		if id, ok := payload["document_id"].(string); ok && id != documentID {
			res.Checks[CheckIDConsistency] = false
			res.Issues = append(res.Issues,
				fmt.Sprintf("%s reports document id %q, expected %q", kind, id, documentID))
		}

		if !isSuccess(payload) {
			res.Checks[CheckOperationSuccess] = false
			res.Issues = append(res.Issues,
				fmt.Sprintf("%s did not report a successful operation", kind))
		}

		switch kind {
		case backend.Vector:
			if chunkCount(payload) < 1 {
				res.Checks[CheckDataPresence] = false
				res.Issues = append(res.Issues, "vector backend holds no chunks")
			}
		case backend.Graph:
			if relationshipCount(payload) < 1 {
				res.Checks[CheckDataPresence] = false
				res.Issues = append(res.Issues, "graph backend holds no relationships")
			}
		case backend.Relational:
			if title, _ := payload["title"].(string); title == "" {
				res.Checks[CheckDataPresence] = false
				res.Issues = append(res.Issues, "relational backend holds no title")
			}
		case backend.File:
			if id, _ := payload[backend.File.IDField()].(string); id == "" {
				res.Checks[CheckFileStorage] = false
				res.Issues = append(res.Issues, "file backend reports an empty storage id")
			}
		}
	}

	res.OverallValid = res.Checks[CheckIDConsistency] &&
		res.Checks[CheckOperationSuccess] &&
		res.Checks[CheckDataPresence] &&
		res.Checks[CheckFileStorage]
	return res
}

func isSkipped(payload map[string]any) bool {
	skipped, _ := payload["skipped"].(bool)
	return skipped
}

func isSuccess(payload map[string]any) bool {
	success, _ := payload["success"].(bool)
	return success
}

func chunkCount(payload map[string]any) int {
	if n, ok := asInt(payload["chunk_count"]); ok {
		return n
	}
	return sliceLen(payload["chunks"])
}

func relationshipCount(payload map[string]any) int {
	if n, ok := asInt(payload["relationship_count"]); ok {
		return n
	}
	return sliceLen(payload["relationships"])
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

func sliceLen(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	case []map[string]any:
		return len(t)
	}
	return 0
}
