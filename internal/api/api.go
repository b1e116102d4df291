// Package api serves the public HTTP surface: the paginated relational
// search, recommendations through the search engine, single lookups,
// health and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/search"
	"github.com/lukketsvane/frivillig-db/internal/store"
	"github.com/lukketsvane/frivillig-db/internal/telemetry"
)

// Store is the relational store as seen by the handlers. *store.Store
// implements it.
type Store interface {
	Search(ctx context.Context, p store.Params) (*store.Page, error)
	UniqueKommuner(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Recommender runs the fallback chain. *search.Engine implements it.
type Recommender interface {
	Search(ctx context.Context, req search.Request) search.Result
}

// Resolver resolves an id or organisasjonsnummer. *search.Lookup
// implements it.
type Resolver interface {
	Get(ctx context.Context, ref string) (*organization.Organization, error)
}

// CorpusCache is the flat-file cache. *corpus.Cache implements it.
type CorpusCache interface {
	Get(ctx context.Context) []organization.Organization
	Invalidate()
	Stats() corpus.Stats
}

// VectorStatus reports vector backend availability. *vector.Qdrant,
// *vector.Hosted and *vector.LocalIndex implement it.
type VectorStatus interface {
	Name() string
	Available(ctx context.Context) bool
}

// Deps are the handler dependencies. Corpus, Vector, Metrics and Stats are
// optional.
type Deps struct {
	Store   Store
	Engine  Recommender
	Lookup  Resolver
	Corpus  CorpusCache
	Vector  VectorStatus
	Metrics *telemetry.Metrics
	Stats   *telemetry.QueryStats
	Logger  *slog.Logger

	// DefaultLimit and MaxLimit bound /search; zero means 20 and 100.
	DefaultLimit int
	MaxLimit     int
}

// Handler holds the endpoint implementations.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandler creates the handlers.
func NewHandler(deps Deps) *Handler {
	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = store.DefaultLimit
	}
	if deps.MaxLimit <= 0 {
		deps.MaxLimit = store.MaxOverFetch
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		deps:   deps,
		logger: logger.With(slog.String("component", "api")),
	}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search", h.HandleSearch)
	r.Get("/recommendations", h.HandleRecommendations)
	r.Get("/organizations/{ref}", h.HandleOrganization)
	r.Get("/kommuner", h.HandleKommuner)
	r.Get("/healthz", h.HandleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/corpus/reload", h.HandleCorpusReload)
		r.Get("/stats", h.HandleStats)
	})

	if h.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.deps.Metrics.Handler())
	}
}

// NewRouter returns the full router with middleware.
func NewRouter(deps Deps) http.Handler {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger, deps.Metrics))
	r.Use(middleware.Recoverer)
	h.Register(r)
	return r
}
