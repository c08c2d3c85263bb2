package handler

import (
	"net/http"
	"time"

	"zipuploader/internal/service/s3"
)

const serviceName = "zip-uploader"

type HealthHandler struct {
	storage    s3.Storage
	rootPrefix string
}

func NewHealthHandler(storage s3.Storage, rootPrefix string) *HealthHandler {
	return &HealthHandler{storage: storage, rootPrefix: rootPrefix}
}

type healthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	StorageConnected bool   `json:"storageConnected"`
	Timestamp        string `json:"timestamp"`
	Error            string `json:"error,omitempty"`
}

// Health проверяет доступность хранилища одним минимальным листингом
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "healthy",
		Service:          serviceName,
		StorageConnected: true,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}

	_, err := h.storage.ListObjects(r.Context(), s3.ListInput{
		Prefix:  h.rootPrefix,
		MaxKeys: 1,
	})
	if err != nil {
		resp.Status = "unhealthy"
		resp.StorageConnected = false
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Root отдает краткое описание сервиса и список эндпоинтов
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": "1.0.0",
		"endpoints": []string{
			"GET /api/health",
			"POST /api/upload",
			"POST /api/upload/multipart/init",
			"POST /api/upload/multipart/part",
			"POST /api/upload/multipart/complete",
			"POST /api/upload/multipart/abort",
			"GET /api/files",
			"GET /api/files/{key}",
			"GET /api/files-inline/{key}",
			"DELETE /api/files/{key}",
			"GET /api/search",
			"GET /api/publishers",
			"POST /api/publishers",
			"GET /api/publishers/{normalizedName}",
		},
	})
}
