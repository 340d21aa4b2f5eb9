package main

import (
	"context"
	"encoding/json"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/ocr"
	"github.com/neuroserve/neuroserve/internal/pdf"
	"github.com/neuroserve/neuroserve/internal/registry"
	"github.com/neuroserve/neuroserve/internal/services"
	"github.com/neuroserve/neuroserve/internal/storage"
	"github.com/neuroserve/neuroserve/pkg/client"
)

type serviceRow struct {
	Name     string   `json:"name"`
	Provider string   `json:"provider,omitempty"`
	Tasks    []string `json:"tasks"`
}

// backend runs commands either in-process or against a server.
type backend interface {
	List(ctx context.Context) ([]serviceRow, error)
	Run(ctx context.Context, service, task string, payload domain.Payload) (*domain.TaskResult, error)
}

func newBackend(opts *rootOptions) backend {
	if opts.server != "" {
		return &remoteBackend{c: client.New(opts.server, client.WithAPIKey(opts.apiKey), client.WithRetry(client.DefaultRetryConfig()))}
	}

	reg := registry.New(
		registry.WithLogger(opts.logger),
		registry.WithTaskTimeout(opts.cfg.Services.TaskTimeout),
	)
	// Registration only fails on duplicate names, which the builtins never have.
	_ = services.Register(reg, opts.cfg, services.Deps{
		Storage: storage.NewLocalStorage(opts.cfg.Uploads),
		Opener:  pdf.NewOpener(),
		OCR:     ocr.New(),
		Logger:  opts.logger,
	})
	return &localBackend{reg: reg}
}

type localBackend struct {
	reg *registry.Registry
}

func (b *localBackend) List(ctx context.Context) ([]serviceRow, error) {
	metas := b.reg.List()
	rows := make([]serviceRow, 0, len(metas))
	for _, m := range metas {
		rows = append(rows, serviceRow{Name: m.Name, Provider: m.Provider, Tasks: m.Tasks})
	}
	return rows, nil
}

func (b *localBackend) Run(ctx context.Context, service, task string, payload domain.Payload) (*domain.TaskResult, error) {
	return b.reg.Run(ctx, service, task, payload)
}

type remoteBackend struct {
	c *client.Client
}

func (b *remoteBackend) List(ctx context.Context) ([]serviceRow, error) {
	infos, err := b.c.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]serviceRow, 0, len(infos))
	for _, s := range infos {
		row := serviceRow{Name: s.Name, Tasks: s.Tasks}
		if s.Provider != nil {
			row.Provider = *s.Provider
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *remoteBackend) Run(ctx context.Context, service, task string, payload domain.Payload) (*domain.TaskResult, error) {
	res, err := b.c.RunTask(ctx, service, task, map[string]any(payload))
	if err != nil {
		return nil, err
	}
	var result any
	if len(res.Result) > 0 {
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return nil, err
		}
	}
	return &domain.TaskResult{Service: res.Service, Task: res.Task, Result: result}, nil
}
