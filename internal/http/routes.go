// Package httpx serves the job item resolvers over HTTP.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-jobitems/internal/core"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	JobItems core.JobItemResolver
	// WaitTimeout caps ?wait=true requests.
	WaitTimeout time.Duration
	Logger      *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.JobItems))

	if services.JobItems != nil {
		h := &JobItemHandlers{
			Resolver:    services.JobItems,
			WaitTimeout: services.WaitTimeout,
			Logger:      services.Logger,
		}
		registerJobItemRoutes(mux, h)
	}

	mux.Handle("/", http.HandlerFunc(notFound))
	return mux
}

func registerJobItemRoutes(mux *http.ServeMux, h *JobItemHandlers) {
	mux.HandleFunc("GET /api/job-items/{id}", h.Get)
	mux.HandleFunc("GET /api/job-items", h.List)
	mux.HandleFunc("POST /api/job-items/{id}/invalidate", h.Invalidate)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, ErrorParams{
		Code:    http.StatusNotFound,
		ErrCode: "not_found",
		Err:     errors.New("no route for " + r.Method + " " + r.URL.Path),
	})
}
