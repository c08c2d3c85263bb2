package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"zipuploader/internal/auth"
	"zipuploader/internal/repository"
	"zipuploader/internal/service"
	"zipuploader/internal/service/s3"
)

// errorResponse — единый формат тела ошибки с идентификатором запроса
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Handler] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:         message,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

// writeServiceError переводит ошибки сервисного слоя в HTTP-статусы.
// Текст ошибки отдается клиенту дословно
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrNotZipFile),
		errors.Is(err, service.ErrInvalidPartNumber),
		errors.Is(err, service.ErrEmptyParts),
		errors.Is(err, service.ErrPartSequence),
		errors.Is(err, service.ErrPrefixOutsideRoot),
		errors.Is(err, service.ErrInvalidPublisherName):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, s3.ErrObjectNotFound),
		errors.Is(err, repository.ErrPublisherNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		log.Printf("[Handler] internal error: %v correlation_id=%s",
			err, auth.CorrelationID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
