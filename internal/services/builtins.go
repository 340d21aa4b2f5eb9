// Package services wires the built-in services into a registry.
package services

import (
	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/extract"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/registry"
	"github.com/neuroserve/neuroserve/internal/services/pdfreader"
	"github.com/neuroserve/neuroserve/internal/services/texttools"
	"github.com/neuroserve/neuroserve/internal/storage"
)

// Deps are the runtime dependencies shared by the built-in services.
type Deps struct {
	Storage *storage.LocalStorage
	Opener  domain.Opener
	OCR     domain.OCREngine
	Logger  *observability.Logger
}

// Builtins returns the built-in services enabled by cfg, in registration order.
func Builtins(cfg *config.Config, deps Deps) []registry.Service {
	logger := deps.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	var out []registry.Service
	if cfg.ServiceEnabled(pdfreader.Name) {
		var store pdfreader.Storage
		if deps.Storage != nil {
			store = deps.Storage
		}
		var extractor *extract.Service
		if deps.Opener != nil {
			extractor = extract.NewService(deps.Opener, deps.OCR, logger)
		}
		out = append(out, pdfreader.New(cfg.Services.PDFReader, store, extractor))
	}
	if cfg.ServiceEnabled(texttools.Name) {
		out = append(out, texttools.New(cfg.Services.TextTools, logger))
	}
	return out
}

// Register adds the enabled built-in services to r.
func Register(r *registry.Registry, cfg *config.Config, deps Deps) error {
	for _, svc := range Builtins(cfg, deps) {
		if err := r.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

// Metas describes every built-in service without loading it. The index
// builder uses it as the primary metadata source.
func Metas() []domain.ServiceMeta {
	cfg := config.DefaultConfig()
	cfg.Services.Enabled = nil

	r := registry.New()
	for _, svc := range Builtins(cfg, Deps{}) {
		r.MustRegister(svc)
	}
	return r.List()
}
