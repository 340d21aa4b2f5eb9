package registry

import (
	"context"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// TaskFunc executes one task against a JSON payload.
type TaskFunc func(ctx context.Context, payload domain.Payload) (any, error)

// Service is a named unit that exposes tasks.
type Service interface {
	Name() string
	Tasks() []string

	// Load performs deferred initialization. It is called once before the
	// first task runs and again on the next run if it returned an error.
	Load(ctx context.Context) error

	// Task returns the handler for a declared task.
	Task(name string) (TaskFunc, bool)
}

// Inferrer is implemented by services that accept arbitrary tasks through a
// single entry point. The task name is forwarded in the payload under "task".
type Inferrer interface {
	Infer(ctx context.Context, payload domain.Payload) (any, error)
}

// Describer is implemented by services that expose index metadata.
type Describer interface {
	Meta() domain.ServiceMeta
}

// Cacheable is implemented by services whose task results depend only on the
// payload and may be served from the result cache.
type Cacheable interface {
	Cacheable(task string) bool
}

// Base carries the metadata and handler table shared by code services.
// Services embed *Base and register handlers with Handle.
type Base struct {
	meta     domain.ServiceMeta
	handlers map[string]TaskFunc
}

// NewBase creates a Base for the given metadata. Declared tasks without a
// handler fall through to Infer when the embedding service implements it.
func NewBase(meta domain.ServiceMeta) *Base {
	if meta.Kind == "" {
		meta.Kind = domain.KindService
	}
	if meta.Folder == "" {
		meta.Folder = meta.Name
	}
	meta.Tasks = append([]string(nil), meta.Tasks...)
	return &Base{
		meta:     meta,
		handlers: make(map[string]TaskFunc),
	}
}

// Handle registers fn for task, declaring the task if needed.
func (b *Base) Handle(task string, fn TaskFunc) {
	if !b.meta.HasTask(task) {
		b.meta.Tasks = append(b.meta.Tasks, task)
	}
	b.handlers[task] = fn
}

// Name returns the service name.
func (b *Base) Name() string {
	return b.meta.Name
}

// Tasks returns a copy of the declared tasks.
func (b *Base) Tasks() []string {
	return append([]string(nil), b.meta.Tasks...)
}

// Task returns the handler registered for name.
func (b *Base) Task(name string) (TaskFunc, bool) {
	fn, ok := b.handlers[name]
	return fn, ok
}

// Meta returns a copy of the service metadata.
func (b *Base) Meta() domain.ServiceMeta {
	m := b.meta
	m.Tasks = b.Tasks()
	return m
}

// Load is a no-op by default.
func (b *Base) Load(ctx context.Context) error {
	return nil
}
