package relationaldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"docsaga/internal/backend"
)

// Adapter is the relational backend over PostgreSQL. It owns the documents
// table and exposes the uniform CRUD surface the coordinator drives.
type Adapter struct {
	db *sql.DB
}

var _ backend.Adapter = (*Adapter)(nil)

// schema is applied idempotently by New, mirroring how the file adapter
// ensures its bucket.
const schema = `CREATE TABLE IF NOT EXISTS documents (
  document_id   TEXT        PRIMARY KEY,
  relational_id TEXT        NOT NULL UNIQUE,
  title         TEXT,
  behoerde      TEXT,
  file_path     TEXT,
  file_hash     TEXT,
  keywords      JSONB       NOT NULL DEFAULT '[]'::jsonb,
  metadata      JSONB       NOT NULL DEFAULT '{}'::jsonb,
  archived      BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// New constructs the adapter and ensures the documents table exists.
func New(ctx context.Context, db *sql.DB) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("relational adapter requires a database handle")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &Adapter{db: db}, nil
}

// NewWithoutMigration wraps an existing handle without touching the schema.
// Used by tests that drive the adapter against a mocked connection.
func NewWithoutMigration(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

func (a *Adapter) Kind() backend.Kind { return backend.Relational }

// Create inserts the relational representation of a document.
func (a *Adapter) Create(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	relationalID := uuid.NewString()
	keywords, metadata, err := marshalAux(payload)
	if err != nil {
		return backend.Failure(err)
	}

	const q = `
		INSERT INTO documents (document_id, relational_id, title, behoerde, file_path, file_hash, keywords, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = a.db.ExecContext(ctx, q,
		documentID, relationalID,
		stringField(payload, "title"),
		stringField(payload, "behoerde"),
		stringField(payload, "file_path"),
		stringField(payload, "file_hash"),
		keywords, metadata,
	)
	if err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.Relational, Operation: "create", Cause: err})
	}

	return backend.Applied(map[string]any{
		"success":       true,
		"document_id":   documentID,
		"relational_id": relationalID,
		"title":         stringField(payload, "title"),
	})
}

// Read returns the stored row as a payload map.
func (a *Adapter) Read(ctx context.Context, documentID string) backend.Result {
	const q = `
		SELECT relational_id, COALESCE(title, ''), COALESCE(behoerde, ''),
		       COALESCE(file_path, ''), COALESCE(file_hash, ''), keywords, metadata, archived
		FROM documents
		WHERE document_id = $1
	`
	var (
		relationalID, title, behoerde, filePath, fileHash string
		keywordsRaw, metadataRaw                          []byte
		archived                                          bool
	)
	err := a.db.QueryRowContext(ctx, q, documentID).Scan(
		&relationalID, &title, &behoerde, &filePath, &fileHash, &keywordsRaw, &metadataRaw, &archived,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.Failuref("relational document %s not found", documentID)
		}
		return backend.Failure(&backend.OperationError{Backend: backend.Relational, Operation: "read", Cause: err})
	}

	payload := map[string]any{
		"success":       true,
		"document_id":   documentID,
		"relational_id": relationalID,
		"title":         title,
		"behoerde":      behoerde,
		"file_path":     filePath,
		"file_hash":     fileHash,
		"archived":      archived,
	}
	var keywords []any
	if json.Unmarshal(keywordsRaw, &keywords) == nil {
		payload["keywords"] = keywords
	}
	var metadata map[string]any
	if json.Unmarshal(metadataRaw, &metadata) == nil {
		payload["metadata"] = metadata
	}
	return backend.Applied(payload)
}

// updatableColumns maps payload keys to SQL columns for Update.
var updatableColumns = map[string]string{
	"title":     "title",
	"behoerde":  "behoerde",
	"file_path": "file_path",
	"file_hash": "file_hash",
	"archived":  "archived",
}

// Update applies the supplied fields; keys outside the routing set are ignored.
// An {"archived": false} payload restores a soft-deleted row.
func (a *Adapter) Update(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	set := ""
	args := []any{documentID}
	n := 2
	for key, col := range updatableColumns {
		v, ok := payload[key]
		if !ok {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, n)
		args = append(args, v)
		n++
	}
	keywords, metadata, err := marshalAux(payload)
	if err != nil {
		return backend.Failure(err)
	}
	if _, ok := payload["keywords"]; ok {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("keywords = $%d", n)
		args = append(args, keywords)
		n++
	}
	if _, ok := payload["metadata"]; ok {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("metadata = $%d", n)
		args = append(args, metadata)
		n++
	}
	if set == "" {
		return backend.Applied(map[string]any{
			"success":     true,
			"document_id": documentID,
			"updated":     false,
		})
	}

	q := fmt.Sprintf(`UPDATE documents SET %s, updated_at = now() WHERE document_id = $1 RETURNING relational_id`, set)
	var relationalID string
	if err := a.db.QueryRowContext(ctx, q, args...).Scan(&relationalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.Failuref("relational document %s not found", documentID)
		}
		return backend.Failure(&backend.OperationError{Backend: backend.Relational, Operation: "update", Cause: err})
	}

	result := map[string]any{
		"success":       true,
		"document_id":   documentID,
		"relational_id": relationalID,
		"updated":       true,
	}
	if title, ok := payload["title"].(string); ok {
		result["title"] = title
	}
	return backend.Applied(result)
}

// Delete removes the row (hard) or marks it archived (soft).
func (a *Adapter) Delete(ctx context.Context, documentID string, opts backend.DeleteOptions) backend.Result {
	mode := opts.Mode
	if mode == "" {
		mode = backend.DeleteSoft
	}

	var q string
	if mode == backend.DeleteHard {
		q = `DELETE FROM documents WHERE document_id = $1`
	} else {
		q = `UPDATE documents SET archived = TRUE, updated_at = now() WHERE document_id = $1`
	}
	res, err := a.db.ExecContext(ctx, q, documentID)
	if err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.Relational, Operation: "delete", Cause: err})
	}
	affected, _ := res.RowsAffected()

	return backend.Applied(map[string]any{
		"success":     true,
		"document_id": documentID,
		"mode":        string(mode),
		"affected":    affected,
	})
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func marshalAux(payload map[string]any) (keywords, metadata []byte, err error) {
	kw := payload["keywords"]
	if kw == nil {
		kw = []any{}
	}
	if keywords, err = json.Marshal(kw); err != nil {
		return nil, nil, err
	}
	md := payload["metadata"]
	if md == nil {
		md = map[string]any{}
	}
	if metadata, err = json.Marshal(md); err != nil {
		return nil, nil, err
	}
	return keywords, metadata, nil
}
