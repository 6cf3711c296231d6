package filestore

import (
	"context"
	"fmt"
	"strings"

	"docsaga/internal/backend"
	"docsaga/internal/storage"
)

// Adapter is the file backend over S3-compatible object storage.
// Documents live under live/, soft-deleted documents are moved to archive/.
type Adapter struct {
	store storage.Storage
}

const (
	livePrefix    = "live/"
	archivePrefix = "archive/"
)

var _ backend.Adapter = (*Adapter)(nil)

// New wraps an object storage client as the file backend.
func New(store storage.Storage) (*Adapter, error) {
	if store == nil {
		return nil, fmt.Errorf("file adapter requires a storage client")
	}
	return &Adapter{store: store}, nil
}

func (a *Adapter) Kind() backend.Kind { return backend.File }

func liveKey(documentID string) string {
	return livePrefix + documentID + "/content"
}

// Create uploads the document's binary content under a fixed per-document key;
// the original file path travels in object metadata.
func (a *Adapter) Create(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	filePath, _ := payload["file_path"].(string)
	content := binaryContent(payload)
	key := liveKey(documentID)

	info, err := a.store.Put(ctx, key, strings.NewReader(content), storage.PutObjectOptions{
		Size:        int64(len(content)),
		ContentType: "application/octet-stream",
		Metadata: map[string]string{
			"document-id":   documentID,
			"original-path": filePath,
		},
	})
	if err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "create", Cause: err})
	}

	return backend.Applied(map[string]any{
		"success":         true,
		"document_id":     documentID,
		"file_storage_id": info.Key,
		"file_path":       filePath,
		"size":            info.Size,
	})
}

// Read stats the live object for a document.
func (a *Adapter) Read(ctx context.Context, documentID string) backend.Result {
	info, err := a.store.Stat(ctx, liveKey(documentID))
	if err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "read", Cause: err})
	}
	return backend.Applied(map[string]any{
		"success":         true,
		"document_id":     documentID,
		"file_storage_id": info.Key,
		"file_path":       info.Metadata["Original-Path"],
		"size":            info.Size,
	})
}

// Update uploads a new file version when the payload carries content, and
// restores an archived object when the payload asks for {"archived": false}.
func (a *Adapter) Update(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	if archived, ok := payload["archived"].(bool); ok && !archived {
		return a.restore(ctx, documentID, payload)
	}

	content := binaryContent(payload)
	if content == "" {
		// Nothing binary changed; treat as a metadata-only no-op.
		return backend.Applied(map[string]any{
			"success":     true,
			"document_id": documentID,
			"updated":     false,
		})
	}
	return a.Create(ctx, documentID, payload)
}

// Delete archives (soft) or removes (hard) the live object.
func (a *Adapter) Delete(ctx context.Context, documentID string, opts backend.DeleteOptions) backend.Result {
	mode := opts.Mode
	if mode == "" {
		mode = backend.DeleteSoft
	}

	key := liveKey(documentID)
	if mode == backend.DeleteSoft {
		archiveKey := archivePrefix + strings.TrimPrefix(key, livePrefix)
		if err := a.store.Copy(ctx, key, archiveKey); err != nil {
			return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "delete", Cause: err})
		}
	}
	if err := a.store.Delete(ctx, key); err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "delete", Cause: err})
	}

	return backend.Applied(map[string]any{
		"success":         true,
		"document_id":     documentID,
		"file_storage_id": key,
		"mode":            string(mode),
	})
}

// restore copies the archived object back under live/.
func (a *Adapter) restore(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	storageID, _ := payload["file_storage_id"].(string)
	if storageID == "" {
		return backend.Failuref("file restore for %s: file_storage_id is required", documentID)
	}
	archiveKey := archivePrefix + strings.TrimPrefix(storageID, livePrefix)
	if err := a.store.Copy(ctx, archiveKey, storageID); err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "restore", Cause: err})
	}
	if err := a.store.Delete(ctx, archiveKey); err != nil {
		return backend.Failure(&backend.OperationError{Backend: backend.File, Operation: "restore", Cause: err})
	}
	return backend.Applied(map[string]any{
		"success":         true,
		"document_id":     documentID,
		"file_storage_id": storageID,
		"restored":        true,
	})
}

func binaryContent(payload map[string]any) string {
	if s, ok := payload["binary_content"].(string); ok {
		return s
	}
	if b, ok := payload["binary_content"].([]byte); ok {
		return string(b)
	}
	if s, ok := payload["new_file_version"].(string); ok {
		return s
	}
	if s, ok := payload["content"].(string); ok {
		return s
	}
	return ""
}
