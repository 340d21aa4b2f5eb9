package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/registry"
)

const maxPayloadBytes = 10 << 20

// PluginHandler serves service listing and task dispatch.
type PluginHandler struct {
	logger   *observability.Logger
	registry *registry.Registry
}

// NewPluginHandler creates a new plugin handler.
func NewPluginHandler(logger *observability.Logger, reg *registry.Registry) *PluginHandler {
	if logger == nil {
		logger = observability.Nop()
	}
	if reg == nil {
		reg = registry.New()
	}
	return &PluginHandler{logger: logger, registry: reg}
}

// PluginMetaDTO is the listing shape of a service.
type PluginMetaDTO struct {
	Name     string   `json:"name"`
	Provider *string  `json:"provider"`
	Tasks    []string `json:"tasks"`
}

func toDTO(meta domain.ServiceMeta) PluginMetaDTO {
	dto := PluginMetaDTO{Name: meta.Name, Tasks: meta.Tasks}
	if dto.Tasks == nil {
		dto.Tasks = []string{}
	}
	if meta.Provider != "" {
		p := meta.Provider
		dto.Provider = &p
	}
	return dto
}

// Routes mounts the handler under a prefix; label is reported by /ping.
func (h *PluginHandler) Routes(label string) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": label})
		})
		r.Get("/", h.List)
		r.Get("/{name}", h.Get)
		r.Post("/{name}/{task}", h.Run)
	}
}

// List handles GET /plugins.
func (h *PluginHandler) List(w http.ResponseWriter, r *http.Request) {
	metas := h.registry.List()
	out := make([]PluginMetaDTO, 0, len(metas))
	for _, m := range metas {
		out = append(out, toDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /plugins/{name}.
func (h *PluginHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta, err := h.registry.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(meta))
}

// Run handles POST /plugins/{name}/{task}. The body must be a JSON object.
func (h *PluginHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	task := chi.URLParam(r, "task")

	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.WithContext(ctx).Debug().
		Str("service", name).
		Str("task", task).
		Msg("Running task")

	res, err := h.registry.Run(ctx, name, task, payload)
	if err != nil {
		writeError(w, h.logger.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodePayload(w http.ResponseWriter, r *http.Request) (domain.Payload, error) {
	body := http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	dec := json.NewDecoder(body)

	var payload domain.Payload
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, domain.TooLargeError("request body too large", err)
		case errors.Is(err, io.EOF):
			return nil, domain.ValidationError("request body must be a JSON object", err)
		default:
			return nil, domain.ValidationError("invalid JSON body: "+err.Error(), err)
		}
	}
	if payload == nil {
		return nil, domain.ValidationError("request body must be a JSON object", nil)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, domain.ValidationError("request body must contain a single JSON object", err)
	}
	return payload, nil
}
