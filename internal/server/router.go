package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quorumhq/quorum/internal/api"
	"github.com/quorumhq/quorum/internal/api/handlers"
	"github.com/quorumhq/quorum/internal/api/middleware"
)

type RouterConfig struct {
	SourceHandler  *handlers.SourceHandler
	QueryHandler   *handlers.QueryHandler
	HistoryHandler *handlers.HistoryHandler
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		// Audio uploads dominate body size.
		maxBodyBytes = 100 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.UserID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/meetings/{meetingID}", func(r chi.Router) {
		r.Post("/sources", cfg.SourceHandler.Upload)
		r.Get("/sources", cfg.SourceHandler.List)
		r.Post("/transcript", cfg.SourceHandler.RegisterTranscript)
		r.Post("/ask", cfg.QueryHandler.Ask)
		r.Get("/agenda-suggestions", cfg.QueryHandler.AgendaSuggestions)
		r.Get("/history", cfg.HistoryHandler.List)
		r.Delete("/history", cfg.HistoryHandler.Clear)
	})

	r.Route("/sources/{id}", func(r chi.Router) {
		r.Get("/", cfg.SourceHandler.Get)
		r.Post("/reingest", cfg.SourceHandler.Reingest)
		r.Delete("/", cfg.SourceHandler.Delete)
	})

	r.Post("/ask", cfg.QueryHandler.AskGlobal)

	return r
}
