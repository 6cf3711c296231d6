package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"docsaga/internal/identity"
)

// Store is the PostgreSQL implementation of identity.Store over the
// identities/identity_mappings/identity_audit schema. It uses database/sql with
// parameterized queries and contains no business logic.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL identity store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ identity.Store = (*Store)(nil)

const selectIdentity = `
	SELECT i.uuid, COALESCE(i.aktenzeichen, ''), i.status, i.source_system,
	       COALESCE(m.relational_id, ''), COALESCE(m.graph_id, ''),
	       COALESCE(m.vector_id, ''), COALESCE(m.file_storage_id, ''),
	       COALESCE(m.metadata, '{}'::jsonb), i.created_at, i.updated_at
	FROM identities i
	LEFT JOIN identity_mappings m ON m.uuid = i.uuid
`

// Get fetches one identity with its backend mappings by canonical UUID.
func (s *Store) Get(ctx context.Context, uuid string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, selectIdentity+` WHERE i.uuid = $1`, uuid)
	return scanIdentity(row)
}

// GetByAktenzeichen fetches one identity by its business key.
func (s *Store) GetByAktenzeichen(ctx context.Context, aktenzeichen string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, selectIdentity+` WHERE i.aktenzeichen = $1`, aktenzeichen)
	return scanIdentity(row)
}

// Save upserts the identity row and its mapping row in one transaction.
func (s *Store) Save(ctx context.Context, id *identity.Identity) error {
	meta, err := json.Marshal(metadataOrEmpty(id.Metadata))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertIdentity = `
		INSERT INTO identities (uuid, aktenzeichen, status, source_system, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		ON CONFLICT (uuid) DO UPDATE SET
			aktenzeichen = NULLIF($2, ''),
			status       = $3,
			updated_at   = $6
	`
	if _, err := tx.ExecContext(ctx, upsertIdentity,
		id.UUID, id.Aktenzeichen, id.Status, id.SourceSystem, id.CreatedAt, id.UpdatedAt,
	); err != nil {
		return err
	}

	const upsertMapping = `
		INSERT INTO identity_mappings (uuid, aktenzeichen, relational_id, graph_id, vector_id, file_storage_id, metadata, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		ON CONFLICT (uuid) DO UPDATE SET
			aktenzeichen    = NULLIF($2, ''),
			relational_id   = NULLIF($3, ''),
			graph_id        = NULLIF($4, ''),
			vector_id       = NULLIF($5, ''),
			file_storage_id = NULLIF($6, ''),
			metadata        = $7,
			updated_at      = $8
	`
	if _, err := tx.ExecContext(ctx, upsertMapping,
		id.UUID, id.Aktenzeichen,
		id.Mappings.RelationalID, id.Mappings.GraphID, id.Mappings.VectorID, id.Mappings.FileStorageID,
		meta, id.UpdatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// AppendAudit inserts one append-only audit row.
func (s *Store) AppendAudit(ctx context.Context, entry identity.AuditEntry) error {
	details, err := json.Marshal(metadataOrEmpty(entry.Details))
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO identity_audit (uuid, action, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, q, entry.UUID, entry.Action, entry.Actor, details, entry.CreatedAt)
	return err
}

func scanIdentity(row *sql.Row) (*identity.Identity, error) {
	var (
		ident identity.Identity
		meta  []byte
	)
	err := row.Scan(
		&ident.UUID,
		&ident.Aktenzeichen,
		&ident.Status,
		&ident.SourceSystem,
		&ident.Mappings.RelationalID,
		&ident.Mappings.GraphID,
		&ident.Mappings.VectorID,
		&ident.Mappings.FileStorageID,
		&meta,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &ident.Metadata); err != nil {
			return nil, err
		}
	}
	return &ident, nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
