package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipuploader/internal/auth"
	"zipuploader/internal/config"
	"zipuploader/internal/service"
	"zipuploader/internal/service/s3"
)

// stubStorage — хранилище в памяти ровно на нужды хендлеров
type stubStorage struct {
	objects  map[string]*s3.Object
	listPage *s3.ListResult
	listErr  error
	abortErr error

	lastPut     string
	partNumbers []int32
	completed   []s3.CompletedPart
	aborted     int
}

func newStubStorage() *stubStorage {
	return &stubStorage{objects: map[string]*s3.Object{}}
}

func (f *stubStorage) PutObject(_ context.Context, key string, body io.Reader, opts s3.PutOptions) (string, error) {
	data, _ := io.ReadAll(body)
	f.lastPut = key
	f.objects[key] = &s3.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		ContentType:   opts.ContentType,
		ETag:          `"stub-etag"`,
		Metadata:      opts.Metadata,
	}
	return `"stub-etag"`, nil
}

func (f *stubStorage) GetObject(_ context.Context, key string) (*s3.Object, error) {
	obj, ok := f.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return obj, nil
}

func (f *stubStorage) HeadObject(_ context.Context, key string) (*s3.ObjectInfo, error) {
	if _, ok := f.objects[key]; !ok {
		return nil, s3.ErrObjectNotFound
	}
	return &s3.ObjectInfo{Key: key}, nil
}

func (f *stubStorage) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *stubStorage) ListObjects(_ context.Context, _ s3.ListInput) (*s3.ListResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listPage != nil {
		return f.listPage, nil
	}
	return &s3.ListResult{}, nil
}

func (f *stubStorage) CreateMultipartUpload(_ context.Context, _ string, _ s3.PutOptions) (string, error) {
	return "upl-1", nil
}

func (f *stubStorage) UploadPart(_ context.Context, _, _ string, partNumber int32, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	f.partNumbers = append(f.partNumbers, partNumber)
	return `"part-etag"`, nil
}

func (f *stubStorage) CompleteMultipartUpload(_ context.Context, _, _ string, parts []s3.CompletedPart) error {
	f.completed = parts
	return nil
}

func (f *stubStorage) AbortMultipartUpload(_ context.Context, _, _ string) error {
	f.aborted++
	return f.abortErr
}

func newTestRouter(storage s3.Storage) http.Handler {
	uploadService := service.NewUploadService(storage, config.UploadConfig{
		MaxFileSize:   5 << 30,
		SimpleMaxSize: 100 << 20,
		KeyPrefix:     "uploads/",
	})
	listingService := service.NewListingService(storage, config.ListingConfig{
		RootPrefix:     "feeds/",
		MaxSearchPages: 10,
		SearchPageSize: 1000,
	})
	h := NewFileHandler(uploadService, listingService)

	r := chi.NewRouter()
	r.Use(auth.WithCorrelationID)
	r.Post("/api/upload", h.Upload)
	r.Post("/api/upload/multipart/init", h.MultipartInit)
	r.Post("/api/upload/multipart/part", h.MultipartPart)
	r.Post("/api/upload/multipart/complete", h.MultipartComplete)
	r.Post("/api/upload/multipart/abort", h.MultipartAbort)
	r.Get("/api/files", h.ListFiles)
	r.Get("/api/search", h.SearchFiles)
	r.Get("/api/files/*", h.DownloadFile)
	r.Get("/api/files-inline/*", h.InlineFile)
	r.Delete("/api/files/*", h.DeleteFile)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		storage := newStubStorage()
		router := newTestRouter(storage)

		buf, contentType := multipartBody(t, map[string]string{"sha256": "ABCDEF"}, "file", "report.zip", []byte("zip-bytes"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(auth.HeaderCorrelationID, "corr-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Contains(t, body["key"], "uploads/")
		// Идентификатор корреляции возвращается и в теле, и в заголовке
		assert.Equal(t, "corr-42", body["correlationId"])
		assert.Equal(t, "corr-42", rec.Header().Get(auth.HeaderCorrelationID))

		// Контрольная сумма сохранена в метаданных объекта
		obj := storage.objects[storage.lastPut]
		require.NotNil(t, obj)
		assert.Equal(t, "abcdef", obj.Metadata["sha256"])
	})

	t.Run("no file field", func(t *testing.T) {
		router := newTestRouter(newStubStorage())

		buf, contentType := multipartBody(t, map[string]string{}, "", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file provided", decodeBody(t, rec)["error"])
	})

	t.Run("non-zip rejected", func(t *testing.T) {
		router := newTestRouter(newStubStorage())

		buf, contentType := multipartBody(t, nil, "file", "movie.mp4", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMultipartEndpoints(t *testing.T) {
	storage := newStubStorage()
	router := newTestRouter(storage)

	t.Run("init", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/init",
			strings.NewReader(`{"filename":"big.zip","size":524288000,"sha256":"cafe"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "upl-1", body["uploadId"])
		assert.Contains(t, body["key"], "uploads/")
	})

	t.Run("init invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/init", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("part", func(t *testing.T) {
		buf, contentType := multipartBody(t, map[string]string{
			"key": "uploads/big.zip", "uploadId": "upl-1", "partNumber": "2",
		}, "chunk", "part-2", []byte("chunk-data"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/part", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(2), body["partNumber"])
		assert.Equal(t, `"part-etag"`, body["etag"])
		assert.Equal(t, []int32{2}, storage.partNumbers)
	})

	t.Run("part missing fields", func(t *testing.T) {
		buf, contentType := multipartBody(t, map[string]string{"key": "uploads/big.zip"}, "chunk", "c", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/part", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields", decodeBody(t, rec)["error"])
	})

	t.Run("part invalid number", func(t *testing.T) {
		buf, contentType := multipartBody(t, map[string]string{
			"key": "k", "uploadId": "u", "partNumber": "abc",
		}, "chunk", "c", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/part", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid part number", decodeBody(t, rec)["error"])
	})

	t.Run("complete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/complete",
			strings.NewReader(`{"key":"uploads/big.zip","uploadId":"upl-1","parts":[
				{"PartNumber":2,"ETag":"b"},{"PartNumber":1,"ETag":"a"}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, storage.completed, 2)
		assert.Equal(t, 1, storage.completed[0].PartNumber)
		assert.Equal(t, 2, storage.completed[1].PartNumber)
	})

	t.Run("complete with gap", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/complete",
			strings.NewReader(`{"key":"k","uploadId":"u","parts":[{"PartNumber":1,"ETag":"a"},{"PartNumber":3,"ETag":"c"}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("abort", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/multipart/abort",
			strings.NewReader(`{"key":"uploads/big.zip","uploadId":"upl-1"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, storage.aborted)
	})
}

func TestListEndpoint(t *testing.T) {
	storage := newStubStorage()
	storage.listPage = &s3.ListResult{
		CommonPrefixes: []string{"feeds/2024/"},
		Objects:        []s3.ObjectInfo{{Key: "feeds/report.zip", Size: 42}},
		Truncated:      true,
		NextCursor:     "cur-2",
	}
	router := newTestRouter(storage)

	t.Run("page with cursor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files?prefix=feeds/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["truncated"])
		assert.Equal(t, "cur-2", body["cursor"])
		assert.NotEmpty(t, body["correlationId"])
	})

	t.Run("prefix outside root", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files?prefix=secret/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	storage := newStubStorage()
	storage.listPage = &s3.ListResult{
		Objects: []s3.ObjectInfo{
			{Key: "feeds/Annual-Report.zip"},
			{Key: "feeds/other.zip"},
		},
	}
	router := newTestRouter(storage)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "report", body["q"])
	files := body["files"].([]any)
	require.Len(t, files, 1)
}

func TestDownloadEndpoints(t *testing.T) {
	storage := newStubStorage()
	storage.objects["uploads/1700-report.zip"] = &s3.Object{
		Body:          io.NopCloser(strings.NewReader("zip-bytes")),
		ContentLength: 9,
		ContentType:   "application/zip",
		ETag:          `"etag-1"`,
		Metadata:      map[string]string{"sha256": "abc123"},
	}
	router := newTestRouter(storage)

	t.Run("attachment with checksum headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/uploads/1700-report.zip", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "zip-bytes", rec.Body.String())
		assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
		assert.Equal(t, `"etag-1"`, rec.Header().Get("ETag"))
		assert.Equal(t, "abc123", rec.Header().Get("X-Checksum-SHA256"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "1700-report.zip")
	})

	t.Run("inline omits attachment disposition", func(t *testing.T) {
		storage.objects["uploads/1700-report.zip"].Body = io.NopCloser(strings.NewReader("zip-bytes"))

		req := httptest.NewRequest(http.MethodGet, "/api/files-inline/uploads/1700-report.zip", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
	})

	t.Run("missing object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/uploads/nope.zip", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		storage := newStubStorage()
		storage.objects["uploads/old.zip"] = &s3.Object{Body: io.NopCloser(strings.NewReader(""))}
		router := newTestRouter(storage)

		req := httptest.NewRequest(http.MethodDelete, "/api/files/uploads/old.zip", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
		assert.NotContains(t, storage.objects, "uploads/old.zip")
	})

	t.Run("missing object", func(t *testing.T) {
		router := newTestRouter(newStubStorage())

		req := httptest.NewRequest(http.MethodDelete, "/api/files/uploads/ghost.zip", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
