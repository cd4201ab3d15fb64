package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quorumhq/quorum/internal/api"
	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/service"
)

type SourceService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Source, error)
	RegisterTranscript(ctx context.Context, meetingID, text string) (*domain.Source, error)
	Get(ctx context.Context, id string) (*domain.Source, error)
	List(ctx context.Context, meetingID string) ([]*domain.Source, error)
	Reingest(ctx context.Context, id string) (*domain.Source, error)
	Delete(ctx context.Context, id string) error
}

type SourceHandler struct {
	svc SourceService
}

func NewSourceHandler(svc SourceService) *SourceHandler {
	return &SourceHandler{svc: svc}
}

type RegisterTranscriptRequest struct {
	Text string `json:"text"`
}

type SourceResponse struct {
	ID                  string `json:"id"`
	MeetingID           string `json:"meeting_id"`
	Kind                string `json:"kind"`
	FileName            string `json:"file_name"`
	Status              string `json:"status"`
	ErrorMessage        string `json:"error_message,omitempty"`
	ChunkCount          int    `json:"chunk_count"`
	EmbeddingsCreatedAt string `json:"embeddings_created_at,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

func sourceToResponse(s *domain.Source) *SourceResponse {
	resp := &SourceResponse{
		ID:           s.ID,
		MeetingID:    s.MeetingID,
		Kind:         string(s.Kind),
		FileName:     s.FileName,
		Status:       string(s.Status),
		ErrorMessage: s.ErrorMessage,
		ChunkCount:   s.ChunkCount,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
	if s.EmbeddingsCreatedAt != nil {
		resp.EmbeddingsCreatedAt = s.EmbeddingsCreatedAt.Format(time.RFC3339)
	}
	return resp
}

// Upload accepts a multipart file upload and queues it for ingestion
func (h *SourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	src, err := h.svc.Upload(r.Context(), service.UploadInput{
		MeetingID: meetingID,
		FileName:  header.Filename,
		File:      file,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, sourceToResponse(src))
}

// RegisterTranscript registers raw transcript text for a meeting
func (h *SourceHandler) RegisterTranscript(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	var req RegisterTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	src, err := h.svc.RegisterTranscript(r.Context(), meetingID, req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, sourceToResponse(src))
}

// Get returns one source with its ingestion status
func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	src, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(src))
}

// List returns a meeting's sources
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	sources, err := h.svc.List(r.Context(), meetingID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*SourceResponse, len(sources))
	for i, s := range sources {
		resp[i] = sourceToResponse(s)
	}
	api.Success(w, http.StatusOK, resp)
}

// Reingest queues a forced re-ingestion of an existing source
func (h *SourceHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	src, err := h.svc.Reingest(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, sourceToResponse(src))
}

// Delete removes a source and everything derived from it
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
