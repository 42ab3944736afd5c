// Package handler exposes the search facade over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/service"
	"idsearch/pkg/platform/httputil"
	"idsearch/pkg/platform/sentinel"
)

// HeaderSearchID carries the search ID of a /search response.
const HeaderSearchID = "X-Search-ID"

const defaultHealthTimeout = 3 * time.Second

// Searcher is the facade surface the handler needs.
type Searcher interface {
	Search(ctx context.Context, raw string) (*models.Outcome, error)
	Invalidate(ctx context.Context, raw string) error
}

// HealthReporter probes every identity source; *providers.Registry satisfies it.
type HealthReporter interface {
	HealthCheck(ctx context.Context) map[string]error
}

// Health statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status       string            `json:"status"`
	Sources      map[string]string `json:"sources"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type Handler struct {
	search        Searcher
	health        HealthReporter
	checks        map[string]func(context.Context) error
	logger        *slog.Logger
	healthTimeout time.Duration
}

type Option func(*Handler)

// WithDependencyCheck adds an infrastructure probe (cache, database, broker)
// to /healthz. A failing dependency degrades but never downs the service.
func WithDependencyCheck(name string, check func(context.Context) error) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func WithHealthTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.healthTimeout = d
		}
	}
}

func New(search Searcher, health HealthReporter, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		search:        search,
		health:        health,
		checks:        make(map[string]func(context.Context) error),
		logger:        logger,
		healthTimeout: defaultHealthTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the lookup routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search", h.HandleSearch)
	r.Delete("/search/cache", h.HandleInvalidate)
	r.Get("/healthz", h.HandleHealth)
}

// HandleSearch answers GET /search?q=. Found and ambiguous outcomes are 200,
// not_found is 404; every outcome carries the same JSON shape.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}

	w.Header().Set(HeaderSearchID, outcome.SearchID)
	status := http.StatusOK
	if outcome.Kind == models.OutcomeNotFound {
		status = http.StatusNotFound
	}
	httputil.WriteJSON(w, status, outcome)
}

// HandleInvalidate answers DELETE /search/cache?q=.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.search.Invalidate(r.Context(), r.URL.Query().Get("q")); err != nil {
		h.writeSearchError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrEmptyQuery) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeBadRequest, "query parameter q is required")
		return
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		h.logger.WarnContext(r.Context(), "search cache unavailable", "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.CodeUnavailable, "result cache is unavailable, retry later")
		return
	}
	h.logger.ErrorContext(r.Context(), "search request failed", "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "")
}

// HandleHealth answers GET /healthz. The service is down only when every
// identity source fails its probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: StatusOK, Sources: make(map[string]string)}
	failed := 0
	for name, err := range h.health.HealthCheck(ctx) {
		resp.Sources[name] = describe(err)
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		resp.Status = StatusDegraded
	}

	deps := h.checkDependencies(ctx)
	if len(deps) > 0 {
		resp.Dependencies = deps
		for _, v := range deps {
			if v != StatusOK {
				resp.Status = StatusDegraded
			}
		}
	}

	status := http.StatusOK
	if len(resp.Sources) > 0 && failed == len(resp.Sources) {
		resp.Status = StatusDown
		status = http.StatusServiceUnavailable
	}
	if resp.Status != StatusOK {
		h.logger.WarnContext(r.Context(), "health check not ok",
			"status", resp.Status,
			"sources", resp.Sources,
			"dependencies", resp.Dependencies,
		)
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) checkDependencies(ctx context.Context) map[string]string {
	if len(h.checks) == 0 {
		return nil
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]string, len(h.checks))
	)
	for name, check := range h.checks {
		wg.Go(func() {
			res := describe(check(ctx))
			mu.Lock()
			out[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()
	return out
}

func describe(err error) string {
	if err == nil {
		return StatusOK
	}
	return err.Error()
}
