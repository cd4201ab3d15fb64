package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quorumhq/quorum/internal/api"
	"github.com/quorumhq/quorum/internal/api/middleware"
	"github.com/quorumhq/quorum/internal/rag"
	"github.com/quorumhq/quorum/internal/vecindex"
)

type QueryService interface {
	Ask(ctx context.Context, meetingID *string, userID, question string, topK int) (*rag.Answer, error)
	AskStream(ctx context.Context, meetingID *string, userID, question string, topK int) (*rag.AnswerStream, error)
}

type AgendaService interface {
	Suggest(ctx context.Context, meetingID string) ([]string, error)
}

type QueryHandler struct {
	svc    QueryService
	agenda AgendaService
}

func NewQueryHandler(svc QueryService, agenda AgendaService) *QueryHandler {
	return &QueryHandler{svc: svc, agenda: agenda}
}

type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	Stream   bool   `json:"stream"`
}

type CitationResponse struct {
	SourceID     string  `json:"source_id"`
	SourceType   string  `json:"source_type"`
	DocumentName string  `json:"document_name"`
	Ordinal      int     `json:"ordinal"`
	Score        float64 `json:"score"`
}

type AskResponse struct {
	Answer    string             `json:"answer"`
	Citations []CitationResponse `json:"citations"`
}

// Ask answers a question scoped to one meeting
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}
	h.ask(w, r, &meetingID)
}

// AskGlobal answers a question across all meetings. Global turns are not
// remembered.
func (h *QueryHandler) AskGlobal(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, nil)
}

func (h *QueryHandler) ask(w http.ResponseWriter, r *http.Request, meetingID *string) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())

	if req.Stream {
		h.askStream(w, r, meetingID, userID, req.Question, req.TopK)
		return
	}

	answer, err := h.svc.Ask(r.Context(), meetingID, userID, req.Question, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:    answer.Text,
		Citations: citations(answer.Results),
	})
}

type streamEvent struct {
	Delta     string             `json:"delta,omitempty"`
	Done      bool               `json:"done,omitempty"`
	Citations []CitationResponse `json:"citations,omitempty"`
}

// askStream delivers the answer as server-sent events: one event per
// fragment, then a final done event carrying the citations.
func (h *QueryHandler) askStream(w http.ResponseWriter, r *http.Request, meetingID *string, userID, question string, topK int) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	stream, err := h.svc.AskStream(r.Context(), meetingID, userID, question, topK)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		fragment, ok := stream.Recv()
		if !ok {
			break
		}
		writeEvent(w, streamEvent{Delta: fragment})
		flusher.Flush()
	}

	writeEvent(w, streamEvent{Done: true, Citations: citations(stream.Results)})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event streamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func citations(results []vecindex.SearchResult) []CitationResponse {
	out := make([]CitationResponse, len(results))
	for i, r := range results {
		out[i] = CitationResponse{
			SourceID:     r.SourceID,
			SourceType:   r.SourceType,
			DocumentName: r.DocumentName,
			Ordinal:      r.Ordinal,
			Score:        r.Score,
		}
	}
	return out
}

// AgendaSuggestions proposes follow-up agenda items for a meeting
func (h *QueryHandler) AgendaSuggestions(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting id is required")
		return
	}

	items, err := h.agenda.Suggest(r.Context(), meetingID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string][]string{"suggestions": items})
}
