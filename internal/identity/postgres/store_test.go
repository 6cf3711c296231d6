package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docsaga/internal/identity"
)

const testUUID = "11111111-2222-3333-4444-555555555555"

func identityColumns() []string {
	return []string{
		"uuid", "aktenzeichen", "status", "source_system",
		"relational_id", "graph_id", "vector_id", "file_storage_id",
		"metadata", "created_at", "updated_at",
	}
}

func TestStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		rows := sqlmock.NewRows(identityColumns()).
			AddRow(testUUID, "AZ-1", "active", "docsaga",
				"rel-1", "gr-1", "vec-1", "file-1",
				[]byte(`{"origin":"import"}`), now, now)

		mock.ExpectQuery("SELECT").
			WithArgs(testUUID).
			WillReturnRows(rows)

		ident, err := store.Get(ctx, testUUID)

		assert.NoError(t, err)
		assert.Equal(t, testUUID, ident.UUID)
		assert.Equal(t, "AZ-1", ident.Aktenzeichen)
		assert.Equal(t, "active", ident.Status)
		assert.Equal(t, "vec-1", ident.Mappings.VectorID)
		assert.Equal(t, "file-1", ident.Mappings.FileStorageID)
		assert.Equal(t, "import", ident.Metadata["origin"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(identityColumns()))

		ident, err := store.Get(ctx, "missing")

		assert.ErrorIs(t, err, identity.ErrNotFound)
		assert.Nil(t, ident)
	})
}

func TestStore_GetByAktenzeichen(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		rows := sqlmock.NewRows(identityColumns()).
			AddRow(testUUID, "AZ-1", "active", "docsaga", "", "", "", "", []byte(`{}`), now, now)

		mock.ExpectQuery("SELECT").
			WithArgs("AZ-1").
			WillReturnRows(rows)

		ident, err := store.GetByAktenzeichen(ctx, "AZ-1")

		assert.NoError(t, err)
		assert.Equal(t, testUUID, ident.UUID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WithArgs("AZ-missing").
			WillReturnRows(sqlmock.NewRows(identityColumns()))

		_, err := store.GetByAktenzeichen(ctx, "AZ-missing")

		assert.ErrorIs(t, err, identity.ErrNotFound)
	})
}

func TestStore_Save(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	ident := &identity.Identity{
		UUID:         testUUID,
		Aktenzeichen: "AZ-1",
		Status:       "active",
		SourceSystem: "docsaga",
		Mappings: identity.BackendIDs{
			RelationalID: "rel-1",
			VectorID:     "vec-1",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.Run("success commits both upserts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO identities").
			WithArgs(testUUID, "AZ-1", "active", "docsaga", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO identity_mappings").
			WithArgs(testUUID, "AZ-1", "rel-1", "", "vec-1", "", sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, NewStore(db).Save(ctx, ident))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed mapping upsert rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO identities").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO identity_mappings").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		assert.Error(t, NewStore(db).Save(ctx, ident))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_AppendAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO identity_audit").
		WithArgs(testUUID, "identity_created", "lifecycle-coordinator", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewStore(db).AppendAudit(context.Background(), identity.AuditEntry{
		UUID:      testUUID,
		Action:    "identity_created",
		Actor:     "lifecycle-coordinator",
		Details:   map[string]any{"aktenzeichen": "AZ-1"},
		CreatedAt: now,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
