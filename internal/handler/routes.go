package handler

import (
	"net/http"

	"go-school-admin/internal/logger"
	"go-school-admin/internal/metrics"
	"go-school-admin/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Mounter is implemented by the handlers that serve one owner type.
type Mounter interface {
	// Plural is the path segment under /api, e.g. "business-listings".
	Plural() string
	Routes(r chi.Router, wrap func(middleware.AppHandler) http.Handler)
}

// NewRouter creates and configures a new chi router.
func NewRouter(log logger.Logger, m *metrics.Metrics, media *MediaHandler, owners ...Mounter) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Actor)

	wrap := middleware.Error(log, m)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/media/{kind}", func(r chi.Router) {
			media.Routes(r, wrap)
		})
		for _, o := range owners {
			o := o
			r.Route("/"+o.Plural(), func(r chi.Router) {
				o.Routes(r, wrap)
			})
		}
	})

	return r
}
