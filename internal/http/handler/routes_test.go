package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docsaga/internal/backend"
	backendMocks "docsaga/internal/backend/mocks"
	"docsaga/internal/config"
	"docsaga/internal/governance"
	"docsaga/internal/identity"
	"docsaga/internal/lifecycle"
	"docsaga/internal/model"
	"docsaga/internal/registry"
	"docsaga/internal/storage"
	storageMocks "docsaga/internal/storage/mocks"
)

type routeFixture struct {
	vector     *backendMocks.MockAdapter
	graph      *backendMocks.MockAdapter
	relational *backendMocks.MockAdapter
	file       *backendMocks.MockAdapter
	identity   *identity.Service
	registry   *registry.Memory
	objStore   *storageMocks.MockStorage
	app        *fiber.App
}

// newRouteFixture wires the full route table over mock backend adapters and
// in-memory identity and mapping stores. db may be nil; only /health uses it.
func newRouteFixture(db *sql.DB) *routeFixture {
	f := &routeFixture{
		vector:     &backendMocks.MockAdapter{BackendKind: backend.Vector},
		graph:      &backendMocks.MockAdapter{BackendKind: backend.Graph},
		relational: &backendMocks.MockAdapter{BackendKind: backend.Relational},
		file:       &backendMocks.MockAdapter{BackendKind: backend.File},
		registry:   registry.NewMemory(),
		objStore:   new(storageMocks.MockStorage),
	}
	f.identity = identity.NewService(identity.NewMemoryStore(), "test-actor")

	coord := lifecycle.New(lifecycle.Options{
		Backends: backend.Set{
			backend.Vector:     f.vector,
			backend.Graph:      f.graph,
			backend.Relational: f.relational,
			backend.File:       f.file,
		},
		Gate:     governance.NewGate(governance.DefaultPolicy()),
		Identity: f.identity,
		Registry: f.registry,
		Config: config.LifecycleConfig{
			SourceSystem:          "docsaga",
			Actor:                 "test-actor",
			DefaultDeleteStrategy: "soft",
		},
	})

	f.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(f.app, db, coord, f.identity, f.objStore)
	return f
}

func createBody() map[string]any {
	return map[string]any{
		"aktenzeichen":   "AZ-2024-0815",
		"title":          "Bescheid zur Baugenehmigung",
		"content":        "full document text",
		"chunks":         []any{"chunk-1", "chunk-2"},
		"relationships":  []any{map[string]any{"type": "cites", "target": "doc_x"}},
		"file_path":      "/docs/bescheid.pdf",
		"binary_content": "pdf bytes",
	}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	f := newRouteFixture(db)

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})

	t.Run("no database wired", func(t *testing.T) {
		noDB := newRouteFixture(nil)

		resp, _ := noDB.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	f := newRouteFixture(nil)

	resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newRouteFixture(nil)
		f.vector.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(map[string]any{"vector_id": "vec-9", "chunk_count": 2}))
		f.graph.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(map[string]any{"graph_id": "gr-9", "relationship_count": 1}))
		f.relational.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(map[string]any{"relational_id": "rel-9", "title": "Bescheid zur Baugenehmigung"}))
		f.file.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(map[string]any{"file_storage_id": "file-9"}))

		resp, _ := f.app.Test(jsonRequest(http.MethodPost, "/documents", createBody()))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.LifecycleResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.Success)
		assert.Equal(t, "create", result.OperationType)
		assert.Contains(t, result.DocumentID, "doc_")
		assert.Equal(t, "COMPLETED", result.Saga.Status)
	})

	t.Run("backend failure returns 422 with the full result", func(t *testing.T) {
		f := newRouteFixture(nil)
		f.vector.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(map[string]any{"vector_id": "vec-9", "chunk_count": 2}))
		f.graph.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Failure(errors.New("connection reset")))
		f.vector.On("Delete", mock.Anything, mock.Anything, mock.Anything).
			Return(backend.Applied(nil))

		resp, _ := f.app.Test(jsonRequest(http.MethodPost, "/documents", createBody()))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var result model.LifecycleResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.False(t, result.Success)
		assert.Equal(t, "COMPENSATED", result.Saga.Status)
		assert.NotEmpty(t, result.Saga.Errors)
	})

	t.Run("invalid body", func(t *testing.T) {
		f := newRouteFixture(nil)

		req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBufferString("not json"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := f.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_BODY", body.Error.Code)
	})
}

func TestDeleteDocument_InvalidStrategy(t *testing.T) {
	f := newRouteFixture(nil)

	resp, _ := f.app.Test(httptest.NewRequest(http.MethodDelete, "/documents/doc_4711?strategy=purge", nil))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorPayload
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "INVALID_STRATEGY", body.Error.Code)
}

func TestGetDocument(t *testing.T) {
	const docID = "doc_11111111222233334444555555555555"
	const docUUID = "11111111-2222-3333-4444-555555555555"

	f := newRouteFixture(nil)
	ctx := context.Background()
	_, err := f.identity.EnsureIdentity(ctx, docUUID, "AZ-2024-0815", "docsaga", "")
	require.NoError(t, err)
	require.NoError(t, f.registry.Put(ctx, registry.Entry{
		DocumentID:  docID,
		UUID:        docUUID,
		IdentityKey: "AZ-2024-0815",
		VectorID:    "vec-1",
	}))

	t.Run("found", func(t *testing.T) {
		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var view struct {
			Mapping  registry.Entry     `json:"mapping"`
			Identity *identity.Identity `json:"identity"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
		assert.Equal(t, docID, view.Mapping.DocumentID)
		assert.Equal(t, "vec-1", view.Mapping.VectorID)
		require.NotNil(t, view.Identity)
		assert.Equal(t, docUUID, view.Identity.UUID)
	})

	t.Run("not found", func(t *testing.T) {
		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/doc_unknown", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})
}

func TestDownloadDocument(t *testing.T) {
	const docID = "doc_11111111222233334444555555555555"
	const docUUID = "11111111-2222-3333-4444-555555555555"

	seed := func(f *routeFixture, fileStorageID string, archived bool) {
		require.NoError(t, f.registry.Put(context.Background(), registry.Entry{
			DocumentID:    docID,
			UUID:          docUUID,
			FileStorageID: fileStorageID,
			Archived:      archived,
		}))
	}

	t.Run("presigned url", func(t *testing.T) {
		f := newRouteFixture(nil)
		seed(f, "live/"+docID+"/content", false)
		f.objStore.On("PresignGet", mock.Anything, "live/"+docID+"/content", mock.Anything).
			Return("https://minio.local/signed", nil)

		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "https://minio.local/signed", body["url"])
		assert.Equal(t, float64(900), body["expires_in_seconds"])
		f.objStore.AssertExpectations(t)
	})

	t.Run("archived document has no live file", func(t *testing.T) {
		f := newRouteFixture(nil)
		seed(f, "live/"+docID+"/content", true)

		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/download", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		f.objStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newRouteFixture(nil)

		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/doc_unknown/download", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDocumentContent(t *testing.T) {
	const docID = "doc_11111111222233334444555555555555"

	f := newRouteFixture(nil)
	require.NoError(t, f.registry.Put(context.Background(), registry.Entry{
		DocumentID:    docID,
		UUID:          "11111111-2222-3333-4444-555555555555",
		FileStorageID: "live/" + docID + "/content",
	}))
	f.objStore.On("Get", mock.Anything, "live/"+docID+"/content").
		Return(io.NopCloser(strings.NewReader("pdf bytes")), storage.ObjectInfo{
			Size:        9,
			ContentType: "application/pdf",
		}, nil)

	resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/content", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(body))
	f.objStore.AssertExpectations(t)
}

func TestGetIdentity(t *testing.T) {
	const docUUID = "11111111-2222-3333-4444-555555555555"

	f := newRouteFixture(nil)
	_, err := f.identity.EnsureIdentity(context.Background(), docUUID, "AZ-2024-0815", "docsaga", "")
	require.NoError(t, err)

	t.Run("by uuid", func(t *testing.T) {
		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/identities/"+docUUID, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var ident identity.Identity
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ident))
		assert.Equal(t, "AZ-2024-0815", ident.Aktenzeichen)
	})

	t.Run("by aktenzeichen", func(t *testing.T) {
		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/identities/aktenzeichen/AZ-2024-0815", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var ident identity.Identity
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ident))
		assert.Equal(t, docUUID, ident.UUID)
	})

	t.Run("unknown uuid", func(t *testing.T) {
		resp, _ := f.app.Test(httptest.NewRequest(http.MethodGet, "/identities/99999999-0000-0000-0000-000000000000", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
