package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"docsaga/internal/identity"
	"docsaga/internal/lifecycle"
	"docsaga/internal/model"
	"docsaga/internal/registry"
	"docsaga/internal/storage"
)

// downloadURLExpiry bounds how long a presigned file download link stays valid.
const downloadURLExpiry = 15 * time.Minute

// documentView is the response of GET /documents/:id.
type documentView struct {
	Entry    registry.Entry     `json:"mapping"`
	Identity *identity.Identity `json:"identity,omitempty"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate to the coordinator, translate the result.
// db may be nil when the deployment runs without a relational store, and
// objStore may be nil when no file backend is configured.
func RegisterRoutes(app *fiber.App, db *sql.DB, coord *lifecycle.Coordinator, idSvc *identity.Service, objStore storage.Storage) {
	// Health endpoint: checks DB connectivity when a DB is wired.
	app.Get("/health", func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Create a document across all configured backends.
	app.Post("/documents", func(c *fiber.Ctx) error {
		var request map[string]any
		if err := c.BodyParser(&request); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		result := coord.Create(c.UserContext(), request)
		return writeResult(c, result, fiber.StatusCreated)
	})

	// Update routed fields of a document.
	app.Patch("/documents/:id", func(c *fiber.Ctx) error {
		var updates map[string]any
		if err := c.BodyParser(&updates); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		result := coord.Update(c.UserContext(), c.Params("id"), updates)
		return writeResult(c, result, fiber.StatusOK)
	})

	// Delete a document; ?strategy=soft|hard (default from configuration).
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		strategy := c.Query("strategy")
		if strategy != "" && strategy != "soft" && strategy != "hard" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STRATEGY", "strategy must be soft or hard")
		}
		result := coord.Delete(c.UserContext(), c.Params("id"), strategy)
		return writeResult(c, result, fiber.StatusOK)
	})

	// Restore a soft-deleted document.
	app.Post("/documents/:id/restore", func(c *fiber.Ctx) error {
		result := coord.Restore(c.UserContext(), c.Params("id"))
		return writeResult(c, result, fiber.StatusOK)
	})

	// Resolve a document's mapping entry and identity.
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		entry, ident, err := coord.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(documentView{Entry: entry, Identity: ident})
	})

	// Issue a time-limited download URL for the document's stored file.
	app.Get("/documents/:id/download", func(c *fiber.Ctx) error {
		if objStore == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no file backend configured")
		}
		entry, _, err := coord.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if entry.FileStorageID == "" || entry.Archived {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document has no downloadable file")
		}
		url, err := objStore.PresignGet(c.UserContext(), entry.FileStorageID, downloadURLExpiry)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{
			"url":                url,
			"expires_in_seconds": int(downloadURLExpiry.Seconds()),
		})
	})

	// Stream the stored file's bytes through the API. For large files prefer
	// the presigned /download URL; this route exists for callers that cannot
	// reach the object store directly.
	app.Get("/documents/:id/content", func(c *fiber.Ctx) error {
		if objStore == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no file backend configured")
		}
		entry, _, err := coord.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if entry.FileStorageID == "" || entry.Archived {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document has no downloadable file")
		}
		rc, info, err := objStore.Get(c.UserContext(), entry.FileStorageID)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		contentType := info.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.SendStream(rc, int(info.Size))
	})

	// Resolve an identity by canonical UUID.
	app.Get("/identities/:uuid", func(c *fiber.Ctx) error {
		ident, err := idSvc.ResolveByUUID(c.UserContext(), c.Params("uuid"))
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "identity not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(ident)
	})

	// Resolve an identity by business key.
	app.Get("/identities/aktenzeichen/:aktenzeichen", func(c *fiber.Ctx) error {
		ident, err := idSvc.ResolveByAktenzeichen(c.UserContext(), c.Params("aktenzeichen"))
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "identity not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(ident)
	})
}

// writeResult serializes a lifecycle result. The body always carries the full
// structured result; the status code reflects overall success so callers can
// branch without parsing.
func writeResult(c *fiber.Ctx, result *model.LifecycleResult, successStatus int) error {
	status := successStatus
	if !result.Success {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(result)
}
