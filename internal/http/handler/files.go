package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fileapi/internal/model"
	"fileapi/internal/service"
)

// uploadResponse is the body returned for a successful upload batch.
// Rejected lists the per-file failures that did not abort the batch.
type uploadResponse struct {
	Message  string                 `json:"message"`
	Files    []model.FileRecord     `json:"files"`
	Rejected []service.RejectedFile `json:"rejected,omitempty"`
}

// HealthCheck reports liveness plus database connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"message": "server is running",
		})
	}
}

// LivenessProbe is a bare liveness probe with no dependency checks.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadFiles accepts a multipart batch under the "files" field and stores
// each part independently.
func UploadFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "EMPTY_BATCH", "no files uploaded")
		}
		parts := form.File["files"]
		if len(parts) == 0 {
			return writeError(c, fiber.StatusBadRequest, "EMPTY_BATCH", "no files uploaded")
		}

		inputs := make([]service.FileInput, 0, len(parts))
		for _, fh := range parts {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			inputs = append(inputs, service.FileInput{
				Reader:      f,
				Filename:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		res, err := svc.UploadBatch(c.UserContext(), inputs)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyBatch):
				return writeError(c, fiber.StatusBadRequest, "EMPTY_BATCH", "no files uploaded")
			case errors.Is(err, service.ErrTooManyFiles):
				return writeError(c, fiber.StatusBadRequest, "TOO_MANY_FILES", "too many files in batch")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Message:  "Files uploaded successfully",
			Files:    res.Stored,
			Rejected: res.Rejected,
		})
	}
}

// ListFiles returns every stored file record, most recent first.
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(items)
	}
}

// DownloadFile streams blob content with attachment headers. Caching is
// disabled so a deleted file is never served from an intermediary.
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, rec, err := svc.Download(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
		c.Set(fiber.HeaderContentType, rec.ContentType)
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderPragma, "no-cache")
		// SendStream closes rc once the response body has been written.
		return c.SendStream(rc, int(rec.SizeBytes))
	}
}

// DeleteFile removes the blob, then the record.
func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "File deleted successfully"})
	}
}
