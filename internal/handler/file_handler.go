package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zipuploader/internal/auth"
	"zipuploader/internal/domain"
	"zipuploader/internal/service"
)

// Максимальный объем формы, удерживаемый в памяти; остальное уходит на диск
const maxFormMemory = 32 * 1024 * 1024 // 32MB

// UploadResponse представляет ответ на простую загрузку
type UploadResponse struct {
	Success       bool   `json:"success"`
	Key           string `json:"key"`
	Filename      string `json:"filename"`
	Size          int64  `json:"size"`
	CorrelationID string `json:"correlationId"`
}

// MultipartInitRequest представляет запрос на создание multipart-сессии
type MultipartInitRequest struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
}

// MultipartInitResponse представляет созданную multipart-сессию
type MultipartInitResponse struct {
	UploadID      string `json:"uploadId"`
	Key           string `json:"key"`
	Filename      string `json:"filename"`
	CorrelationID string `json:"correlationId"`
}

// MultipartPartResponse представляет результат загрузки одной части
type MultipartPartResponse struct {
	PartNumber    int    `json:"partNumber"`
	ETag          string `json:"etag"`
	Success       bool   `json:"success"`
	CorrelationID string `json:"correlationId"`
}

// MultipartCompleteRequest представляет запрос завершения сессии
type MultipartCompleteRequest struct {
	Key      string            `json:"key"`
	UploadID string            `json:"uploadId"`
	Parts    []json.RawMessage `json:"parts"`
}

// MultipartAbortRequest представляет запрос отмены сессии
type MultipartAbortRequest struct {
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

type successResponse struct {
	Success       bool   `json:"success"`
	Key           string `json:"key,omitempty"`
	Message       string `json:"message,omitempty"`
	CorrelationID string `json:"correlationId"`
}

type listResponse struct {
	domain.ListingPage
	CorrelationID string `json:"correlationId"`
}

type searchResponse struct {
	domain.SearchResult
	CorrelationID string `json:"correlationId"`
}

type FileHandler struct {
	uploadService  *service.UploadService
	listingService *service.ListingService
}

func NewFileHandler(uploadService *service.UploadService, listingService *service.ListingService) *FileHandler {
	return &FileHandler{
		uploadService:  uploadService,
		listingService: listingService,
	}
}

// Upload обрабатывает простую загрузку файла одним запросом
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	result, err := h.uploadService.SimpleUpload(
		r.Context(),
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
		r.FormValue("sha256"),
		file,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:       true,
		Key:           result.Key,
		Filename:      result.Filename,
		Size:          result.Size,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// MultipartInit создает multipart-сессию
func (h *FileHandler) MultipartInit(w http.ResponseWriter, r *http.Request) {
	var req MultipartInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.uploadService.Initiate(r.Context(), req.Filename, req.Size, req.ContentType, req.SHA256)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MultipartInitResponse{
		UploadID:      result.UploadID,
		Key:           result.Key,
		Filename:      result.Filename,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// MultipartPart принимает одну часть файла
func (h *FileHandler) MultipartPart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	chunk, _, err := r.FormFile("chunk")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Missing required fields")
		return
	}
	defer chunk.Close()

	key := r.FormValue("key")
	uploadID := r.FormValue("uploadId")
	partNumberRaw := r.FormValue("partNumber")
	if key == "" || uploadID == "" || partNumberRaw == "" {
		writeError(w, r, http.StatusBadRequest, "Missing required fields")
		return
	}

	partNumber, err := strconv.Atoi(partNumberRaw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid part number")
		return
	}

	etag, err := h.uploadService.UploadPart(r.Context(), key, uploadID, partNumber, chunk)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MultipartPartResponse{
		PartNumber:    partNumber,
		ETag:          etag,
		Success:       true,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// MultipartComplete завершает сессию собранным списком частей
func (h *FileHandler) MultipartComplete(w http.ResponseWriter, r *http.Request) {
	var req MultipartCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	parts, err := coerceParts(req.Parts)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.uploadService.Complete(r.Context(), req.Key, req.UploadID, parts); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Success:       true,
		Key:           req.Key,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// MultipartAbort отменяет сессию и освобождает ресурсы хранилища
func (h *FileHandler) MultipartAbort(w http.ResponseWriter, r *http.Request) {
	var req MultipartAbortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.uploadService.Abort(r.Context(), req.Key, req.UploadID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Success:       true,
		Message:       "upload aborted",
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// ListFiles возвращает одну страницу листинга каталога
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	page, err := h.listingService.List(
		r.Context(),
		r.URL.Query().Get("prefix"),
		r.URL.Query().Get("cursor"),
		queryInt(r, "limit", 100),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		ListingPage:   *page,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// SearchFiles выполняет рекурсивный поиск по подстроке
func (h *FileHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	result, err := h.listingService.Search(
		r.Context(),
		r.URL.Query().Get("prefix"),
		r.URL.Query().Get("q"),
		r.URL.Query().Get("cursor"),
		queryInt(r, "limit", 100),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		SearchResult:  *result,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// DownloadFile отдает объект как вложение
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, true)
}

// InlineFile отдает объект без Content-Disposition: attachment
func (h *FileHandler) InlineFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, false)
}

func (h *FileHandler) serveFile(w http.ResponseWriter, r *http.Request, asAttachment bool) {
	key, err := keyFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid file key")
		return
	}

	object, err := h.uploadService.Download(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer object.Body.Close()

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if object.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(object.ContentLength, 10))
	}
	if object.ETag != "" {
		w.Header().Set("ETag", object.ETag)
	}
	if sum, ok := object.Metadata["sha256"]; ok && sum != "" {
		w.Header().Set("X-Checksum-SHA256", sum)
	}
	if asAttachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	}

	if _, err := io.Copy(w, object.Body); err != nil {
		log.Printf("[Handler] failed to stream object %s: %v", key, err)
	}
}

// DeleteFile удаляет объект из хранилища
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid file key")
		return
	}

	if err := h.uploadService.Delete(r.Context(), key); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Success:       true,
		Key:           key,
		Message:       "file deleted",
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// keyFromRequest достает ключ объекта из wildcard-части маршрута.
// Ключи содержат слеши, поэтому маршрут объявлен с маской "/*"
func keyFromRequest(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	if raw == "" {
		return "", errors.New("empty key")
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("empty key")
	}
	return key, nil
}

// coerceParts приводит произвольные JSON-записи частей к {PartNumber, ETag}
func coerceParts(raw []json.RawMessage) ([]domain.PartETag, error) {
	parts := make([]domain.PartETag, 0, len(raw))
	for i, entry := range raw {
		var part domain.PartETag
		if err := json.Unmarshal(entry, &part); err != nil {
			return nil, fmt.Errorf("invalid part entry at position %d", i)
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
