package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idsearch/internal/platform/middleware"
)

// Routes is implemented by every feature handler.
type Routes interface {
	Register(r chi.Router)
}

// NewRouter wires the shared middleware chain, every feature's routes and the
// optional /metrics endpoint.
func NewRouter(logger *slog.Logger, metrics http.Handler, routes ...Routes) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recover(logger))

	for _, rt := range routes {
		rt.Register(r)
	}
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}
