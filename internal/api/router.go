package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prismis/prismis/internal/models"
)

// Storage is the subset of *database.Handle the API layer depends on.
type Storage interface {
	Ping() error

	AddSource(url string, kind models.SourceKind, name string) (int64, error)
	UpdateSource(id int64, name, url *string) error
	RemoveSource(id int64) (bool, error)
	ListSources() ([]models.Source, error)
	SourceByID(id int64) (models.Source, error)
	SetSourceActive(id int64, active bool) error

	ContentByID(id int64) (models.ContentItem, error)
	ContentByPriority(p models.Priority, limit int, includeArchived bool) ([]models.ContentItem, error)
	ContentSince(since *time.Time, includeArchived bool) ([]models.ContentItem, error)
	UpdateContentStatus(id int64, read, favorited *bool) error

	SearchContent(queryVec []float32, limit int, minScore float64) ([]models.SearchResult, error)

	DeleteUnprioritized(days *int) (int64, error)
	CountUnprioritized(days *int) (int64, error)

	ArchiveOldContent(w models.ArchivalWindows) (int64, error)
	ArchivalCounts() (models.ArchivalCounts, error)
}

// LLMQuery is the query-embedding dependency search needs, satisfied by
// *llm.Coordinator.
type LLMQuery interface {
	Embed(ctx context.Context, title, text string) ([]float32, error)
}

// Deps bundles every dependency a handler needs, injected once at startup
// by cmd/prismisd rather than threaded through globals.
type Deps struct {
	Storage        Storage
	LLM            LLMQuery
	APIKey         string
	ArchivalWindow models.ArchivalWindows
}

// NewRouter assembles the chi mux: CORS, request-id/real-ip/recoverer,
// health unauthenticated, everything else behind the API key.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware())

	r.Get("/health", deps.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(apiKeyAuth(deps.APIKey))

		r.Route("/api/sources", func(r chi.Router) {
			r.Post("/", deps.handleAddSource)
			r.Get("/", deps.handleListSources)
			r.Patch("/{id}", deps.handleUpdateSource)
			r.Delete("/{id}", deps.handleRemoveSource)
			r.Patch("/{id}/pause", deps.handlePauseSource)
			r.Patch("/{id}/resume", deps.handleResumeSource)
		})

		r.Route("/api/entries", func(r chi.Router) {
			r.Get("/", deps.handleListEntries)
			r.Get("/{id}", deps.handleGetEntry)
			r.Get("/{id}/raw", deps.handleGetEntryRaw)
			r.Patch("/{id}", deps.handleUpdateEntry)
		})

		r.Get("/api/search", deps.handleSearch)

		r.Post("/api/prune", deps.handlePruneDelete)
		r.Get("/api/prune/count", deps.handlePruneCount)

		r.Post("/api/audio/briefings", deps.handleAudioBriefings)

		r.Get("/api/archive/status", deps.handleArchiveStatus)

		r.Handle("/metrics", promhttp.Handler())
	})

	return r
}

func writeNotImplemented(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotImplemented, Envelope{Success: false, Message: what + " is not implemented in this deployment"})
}
