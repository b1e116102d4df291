package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
	"github.com/lukketsvane/frivillig-db/internal/telemetry"
)

const healthTimeout = 2 * time.Second

type searchMeta struct {
	Total       int     `json:"total"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
	Returned    int     `json:"returned"`
	HasMore     bool    `json:"has_more"`
	QueryTimeMS float64 `json:"query_time_ms"`
}

type searchResponse struct {
	Data []record   `json:"data"`
	Meta searchMeta `json:"meta"`
}

type recommendationMeta struct {
	Backend     string   `json:"backend"`
	Fallbacks   []string `json:"fallbacks"`
	Returned    int      `json:"returned"`
	QueryTimeMS float64  `json:"query_time_ms"`
}

type recommendationResponse struct {
	Data []record           `json:"data"`
	Meta recommendationMeta `json:"meta"`
}

func elapsedMS(start time.Time) float64 {
	ms := float64(time.Since(start).Microseconds()) / 1000
	return math.Round(ms*100) / 100
}

// HandleSearch handles GET /search. Parameters are validated before any
// query runs.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	opts, perr := parseSearch(r.URL.Query(), h.deps.DefaultLimit, h.deps.MaxLimit)
	if perr != nil {
		writeError(w, http.StatusBadRequest, perr.message, perr.details)
		return
	}

	page, err := h.deps.Store.Search(ctx, opts.params)
	if err != nil {
		h.logger.ErrorContext(ctx, "search query failed",
			append([]any{slog.String("query", opts.params.Query)}, ferrors.LogAttrs(err)...)...)
		writeError(w, http.StatusInternalServerError, "Database query failed", errorDetails(err))
		return
	}

	data := projectAll(page.Organizations, opts.includeContact, opts.includeDetailed)
	writeJSON(w, http.StatusOK, searchResponse{
		Data: data,
		Meta: searchMeta{
			Total:       page.Total,
			Limit:       opts.params.Limit,
			Offset:      opts.params.Offset,
			Returned:    len(data),
			HasMore:     opts.params.Offset+len(data) < page.Total,
			QueryTimeMS: elapsedMS(start),
		},
	})
}

// HandleRecommendations handles GET /recommendations. It never fails once
// the parameters are valid: total backend failure is an empty list.
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	req, perr := parseRecommendation(r.URL.Query(), h.deps.MaxLimit)
	if perr != nil {
		writeError(w, http.StatusBadRequest, perr.message, perr.details)
		return
	}

	res := h.deps.Engine.Search(ctx, req)
	h.deps.Stats.Record(telemetry.QueryEvent{
		Query:       req.Text(),
		Backend:     res.Backend,
		ResultCount: len(res.Organizations),
		Latency:     time.Since(start),
	})

	fallbacks := res.Fallbacks
	if fallbacks == nil {
		fallbacks = []string{}
	}
	data := projectAll(res.Organizations, true, false)
	writeJSON(w, http.StatusOK, recommendationResponse{
		Data: data,
		Meta: recommendationMeta{
			Backend:     res.Backend,
			Fallbacks:   fallbacks,
			Returned:    len(data),
			QueryTimeMS: elapsedMS(start),
		},
	})
}

// HandleOrganization handles GET /organizations/{ref}.
func (h *Handler) HandleOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	org, err := h.deps.Lookup.Get(ctx, ref)
	switch {
	case errors.Is(err, organization.ErrInvalidRef):
		writeError(w, http.StatusBadRequest, "Invalid organization reference",
			"expected a UUID or a 9-digit organisasjonsnummer")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Organization not found", "")
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "organization lookup failed",
			append([]any{slog.String("ref", ref)}, ferrors.LogAttrs(err)...)...)
		writeError(w, ferrors.HTTPStatus(err), "Lookup failed", errorDetails(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": project(org, true, true)})
}

// HandleKommuner handles GET /kommuner.
func (h *Handler) HandleKommuner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kommuner, err := h.deps.Store.UniqueKommuner(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list kommuner failed", ferrors.LogAttrs(err)...)
		writeError(w, http.StatusInternalServerError, "Database query failed", errorDetails(err))
		return
	}
	if kommuner == nil {
		kommuner = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": kommuner})
}

type vectorHealth struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Vector   *vectorHealth `json:"vector,omitempty"`
	Corpus   any           `json:"corpus,omitempty"`
}

// HandleHealth handles GET /healthz: 200 when the database answers, 503
// otherwise. Vector and corpus state are reported but do not fail the
// check; search falls back without them.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := h.deps.Store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check: database unavailable", ferrors.LogAttrs(err)...)
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.deps.Vector != nil {
		resp.Vector = &vectorHealth{
			Backend:   h.deps.Vector.Name(),
			Available: h.deps.Vector.Available(ctx),
		}
		if !resp.Vector.Available && status == http.StatusOK {
			resp.Status = "degraded"
		}
	}
	if h.deps.Corpus != nil {
		resp.Corpus = h.deps.Corpus.Stats()
	}

	writeJSON(w, status, resp)
}

// HandleCorpusReload handles POST /admin/corpus/reload: the cache is
// dropped and loaded again before responding.
func (h *Handler) HandleCorpusReload(w http.ResponseWriter, r *http.Request) {
	if h.deps.Corpus == nil {
		writeError(w, http.StatusNotFound, "Corpus not configured", "")
		return
	}
	h.deps.Corpus.Invalidate()
	orgs := h.deps.Corpus.Get(r.Context())
	h.logger.InfoContext(r.Context(), "corpus reloaded", slog.Int("organizations", len(orgs)))
	writeJSON(w, http.StatusOK, h.deps.Corpus.Stats())
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Stats == nil {
		writeError(w, http.StatusNotFound, "Query statistics disabled", "")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Stats.Snapshot(20))
}
