// Package api exposes the registry and upload storage over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/neuroserve/neuroserve/internal/cache"
	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/registry"
	"github.com/neuroserve/neuroserve/internal/storage"
)

// PDFStore saves uploaded PDFs.
type PDFStore interface {
	SavePDF(ctx context.Context, filename string, r io.Reader) (*storage.SavedFile, error)
	MaxBytes() int64
}

// UploadStore records and lists stored uploads.
type UploadStore interface {
	Create(ctx context.Context, u *domain.Upload) error
	List(ctx context.Context, limit int) ([]domain.Upload, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds everything the router needs.
type Deps struct {
	Logger   *observability.Logger
	Registry *registry.Registry
	Files    PDFStore
	Uploads  UploadStore
	DB       Pinger
	Cache    cache.Client
	Server   config.ServerConfig
	Auth     config.AuthConfig
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = observability.Nop()
	}
	timeout := deps.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(deps.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(timeout))

	health := NewHealthHandler(logger, deps.DB, deps.Cache)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	plugins := NewPluginHandler(logger, deps.Registry)
	uploads := NewUploadHandler(logger, deps.Files, deps.Uploads)

	r.Group(func(r chi.Router) {
		r.Use(APIKey(deps.Auth))

		r.Route("/plugins", plugins.Routes("plugins"))
		r.Route("/services", plugins.Routes("services"))

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/", uploads.List)
			r.Post("/pdf", uploads.UploadPDF)
		})
	})

	return r
}
