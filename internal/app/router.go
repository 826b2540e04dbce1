package app

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/smallwat3r/safes/internal/domain"
)

type RouterConfig struct {
	MaxBodySize    int64
	RequireHTTPS   bool
	RequestTimeout time.Duration
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxBodySize:    domain.MaxRequestBodySize,
		RequestTimeout: 60 * time.Second,
	}
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: cfg.RequireHTTPS}))
	r.Use(middleware.RedirectSlashes)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", h.HandleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	fs := http.FileServer(http.Dir(filepath.Join(h.webDir, "static")))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))
	r.Get("/", h.HandleIndexHTML)

	r.Route("/safes", func(r chi.Router) {
		r.Use(ContentLengthValidator(cfg.MaxBodySize))
		r.Post("/", h.HandleLock)
		r.Get("/{id}", h.HandleIndexHTML)
		r.Post("/{id}", h.HandleUnlock)
	})

	return r
}
