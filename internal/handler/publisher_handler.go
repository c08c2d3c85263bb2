package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zipuploader/internal/auth"
	"zipuploader/internal/domain"
	"zipuploader/internal/service"
)

type PublisherHandler struct {
	publisherService *service.PublisherService
}

func NewPublisherHandler(publisherService *service.PublisherService) *PublisherHandler {
	return &PublisherHandler{publisherService: publisherService}
}

// CreatePublisherRequest представляет запрос на регистрацию издателя
type CreatePublisherRequest struct {
	DisplayName string `json:"displayName"`
}

type publisherResponse struct {
	*domain.Publisher
	CorrelationID string `json:"correlationId"`
}

type publisherListResponse struct {
	Publishers    []domain.Publisher `json:"publishers"`
	CorrelationID string             `json:"correlationId"`
}

func (h *PublisherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePublisherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	publisher, err := h.publisherService.Create(r.Context(), req.DisplayName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, publisherResponse{
		Publisher:     publisher,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

func (h *PublisherHandler) Get(w http.ResponseWriter, r *http.Request) {
	publisher, err := h.publisherService.Get(r.Context(), chi.URLParam(r, "normalizedName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, publisherResponse{
		Publisher:     publisher,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}

func (h *PublisherHandler) List(w http.ResponseWriter, r *http.Request) {
	publishers, err := h.publisherService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, publisherListResponse{
		Publishers:    publishers,
		CorrelationID: auth.CorrelationID(r.Context()),
	})
}
