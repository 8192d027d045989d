package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"fileapi/internal/model"
	"fileapi/internal/service"
	serviceMocks "fileapi/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// addFormFile appends a multipart part under the "files" field with an
// explicit content type, the way browsers send uploads.
func addFormFile(t *testing.T, w *multipart.Writer, filename, contentType, content string) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "server is running", body["message"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Post("/files/upload", UploadFiles(mockSvc))

	t.Run("success", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		addFormFile(t, writer, "a.pdf", "application/pdf", "pdf-bytes")
		addFormFile(t, writer, "b.png", "image/png", "png-bytes")
		writer.Close()

		stored := []model.FileRecord{
			{ID: uuid.New().String(), OriginalName: "a.pdf"},
			{ID: uuid.New().String(), OriginalName: "b.png"},
		}
		mockSvc.On("UploadBatch", mock.Anything, mock.MatchedBy(func(in []service.FileInput) bool {
			return len(in) == 2 && in[0].Filename == "a.pdf" && in[0].ContentType == "application/pdf" &&
				in[1].Filename == "b.png" && in[1].Size == int64(len("png-bytes"))
		})).Return(&service.BatchResult{Stored: stored}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "Files uploaded successfully", result.Message)
		assert.Len(t, result.Files, 2)
		assert.Empty(t, result.Rejected)
		mockSvc.AssertExpectations(t)
	})

	t.Run("partial failure surfaces rejected entries", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		addFormFile(t, writer, "a.pdf", "application/pdf", "pdf-bytes")
		addFormFile(t, writer, "notes.txt", "text/plain", "txt")
		writer.Close()

		res := &service.BatchResult{
			Stored:   []model.FileRecord{{ID: uuid.New().String(), OriginalName: "a.pdf"}},
			Rejected: []service.RejectedFile{{Filename: "notes.txt", Reason: "unsupported content type"}},
		}
		mockSvc.On("UploadBatch", mock.Anything, mock.Anything).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Files, 1)
		require.Len(t, result.Rejected, 1)
		assert.Equal(t, "notes.txt", result.Rejected[0].Filename)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("unrelated", "value")
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "EMPTY_BATCH", res.Error.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/files/upload", strings.NewReader("plain"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "EMPTY_BATCH", res.Error.Code)
	})

	t.Run("too many files", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		addFormFile(t, writer, "a.pdf", "application/pdf", "x")
		writer.Close()

		mockSvc.On("UploadBatch", mock.Anything, mock.Anything).Return(nil, service.ErrTooManyFiles).Once()

		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "TOO_MANY_FILES", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		addFormFile(t, writer, "a.pdf", "application/pdf", "x")
		writer.Close()

		mockSvc.On("UploadBatch", mock.Anything, mock.Anything).Return(nil, errors.New("storage down")).Once()

		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/files", ListFiles(mockSvc))

	t.Run("success", func(t *testing.T) {
		newer := time.Now().UTC()
		older := newer.Add(-time.Hour)
		items := []model.FileRecord{
			{ID: uuid.New().String(), OriginalName: "new.pdf", UploadedAt: newer},
			{ID: uuid.New().String(), OriginalName: "old.pdf", UploadedAt: older},
		}
		mockSvc.On("List", mock.Anything).Return(items, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.FileRecord
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 2)
		assert.Equal(t, "new.pdf", result[0].OriginalName)
		assert.True(t, !result[0].UploadedAt.Before(result[1].UploadedAt))
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, errors.New("db fail")).Once()

		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/files/download/:id", DownloadFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		rec := &model.FileRecord{
			ID:           id,
			OriginalName: "report.pdf",
			ContentType:  "application/pdf",
			SizeBytes:    int64(len("pdf-bytes")),
		}
		mockSvc.On("Download", mock.Anything, id).
			Return(io.NopCloser(strings.NewReader("pdf-bytes")), rec, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/download/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="report.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))
		assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))
		assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderPragma))

		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "pdf-bytes", string(b))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Download", mock.Anything, id).Return(nil, nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/download/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/files/download/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Download", mock.Anything, id).Return(nil, nil, errors.New("io error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/download/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Delete("/files/:id", DeleteFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "File deleted successfully", body["message"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("second delete also reports not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		req = httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ = app.Test(req)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/files/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockFileService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Upload endpoint only allows POST
		req := httptest.NewRequest(http.MethodPut, "/files/upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
