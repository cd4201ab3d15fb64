package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quorumhq/quorum/internal/api"
	"github.com/quorumhq/quorum/internal/api/middleware"
	"github.com/quorumhq/quorum/internal/domain"
)

const defaultHistoryLimit = 20

type HistoryStore interface {
	GetRecent(ctx context.Context, meetingID, userID string, limit int) ([]*domain.ConversationTurn, error)
	DeleteByMeeting(ctx context.Context, meetingID string) error
}

type HistoryHandler struct {
	store HistoryStore
}

func NewHistoryHandler(store HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

type TurnResponse struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CitedOrdinals []int  `json:"cited_ordinals,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// List returns the caller's recent turns for a meeting, oldest first
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	userID := middleware.GetUserID(r.Context())
	turns, err := h.store.GetRecent(r.Context(), meetingID, userID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*TurnResponse, len(turns))
	for i, t := range turns {
		resp[i] = &TurnResponse{
			ID:            t.ID,
			Question:      t.Question,
			Answer:        t.Answer,
			CitedOrdinals: t.CitedOrdinals,
			CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		}
	}
	api.Success(w, http.StatusOK, resp)
}

// Clear drops all recorded turns for a meeting
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	if err := h.store.DeleteByMeeting(r.Context(), meetingID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
