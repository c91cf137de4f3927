// Package httpapi wires the HTTP surface: routing, middleware and handlers.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"earthtour/internal/httpapi/handlers"
	"earthtour/internal/httpkit"
	"earthtour/internal/pkg/logger"
	"earthtour/internal/pkg/middleware"
)

type Deps struct {
	Handlers handlers.Deps
	// CORSOrigins overrides the allowed origins; empty allows any origin.
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Handlers.Log
	if log == nil {
		log = logger.NewDefault()
		d.Handlers.Log = log
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(d.Handlers)

	r.Get("/", h.Info)
	r.Get("/health", h.Health)
	r.Post("/generate-animation", h.PostAnimation)
	r.Get("/job/{jobId}", h.GetJob)
	r.Get("/videos/{videoFileName}", h.StreamVideo)

	return r
}
