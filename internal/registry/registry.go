// Package registry holds the set of services the API exposes and dispatches
// task runs to them.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neuroserve/neuroserve/internal/cache"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
)

// Registry stores services by name and runs their tasks.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	logger   *observability.Logger
	cache    cache.Client
	cacheTTL time.Duration
	timeout  time.Duration
}

type entry struct {
	svc Service

	loadMu sync.Mutex
	loaded bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCache enables result caching for Cacheable services.
func WithCache(c cache.Client, ttl time.Duration) Option {
	return func(r *Registry) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithTaskTimeout bounds every task run. Zero disables the bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  observability.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a service. Names must be non-empty and unique.
func (r *Registry) Register(svc Service) error {
	name := strings.TrimSpace(svc.Name())
	if name == "" {
		return domain.ValidationError("service name cannot be empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return domain.ConflictError(fmt.Sprintf("service already registered: %s", name), nil)
	}
	r.entries[name] = &entry{svc: svc}

	r.logger.Debug().Str("name", name).Strs("tasks", svc.Tasks()).Msg("service registered")
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(svc Service) {
	if err := r.Register(svc); err != nil {
		panic(err)
	}
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns metadata for every service, sorted by name.
func (r *Registry) List() []domain.ServiceMeta {
	r.mu.RLock()
	out := make([]domain.ServiceMeta, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, metaOf(e.svc))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns metadata for the named service.
func (r *Registry) Get(name string) (domain.ServiceMeta, error) {
	e, ok := r.lookup(name)
	if !ok {
		return domain.ServiceMeta{}, notFound(name)
	}
	return metaOf(e.svc), nil
}

// FindByTask returns the names of services declaring task, sorted.
// Matching is case-insensitive.
func (r *Registry) FindByTask(task string) []string {
	var names []string
	for _, m := range r.List() {
		for _, t := range m.Tasks {
			if strings.EqualFold(t, task) {
				names = append(names, m.Name)
				break
			}
		}
	}
	return names
}

// LoadAll eagerly loads every service. Failures are logged and returned
// joined; services that failed will be retried on first use.
func (r *Registry) LoadAll(ctx context.Context) error {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		if err := e.ensureLoaded(ctx); err != nil {
			r.logger.Warn().Err(err).Str("name", e.svc.Name()).Msg("service load failed")
			errs = append(errs, fmt.Errorf("%s: %w", e.svc.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Run executes task on the named service.
//
// Resolution order: the service's handler for task; otherwise Infer with the
// task name added to a copy of the payload; otherwise a not_found error
// listing the available tasks.
func (r *Registry) Run(ctx context.Context, name, task string, payload domain.Payload) (*domain.TaskResult, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, notFound(name)
	}
	if strings.TrimSpace(task) == "" {
		return nil, domain.ValidationError("task name cannot be empty", nil)
	}
	if payload == nil {
		payload = domain.Payload{}
	}

	if err := e.ensureLoaded(ctx); err != nil {
		return nil, domain.UnavailableError(fmt.Sprintf("Plugin '%s' failed to load", name), err)
	}

	call, failMsg, err := resolve(e.svc, name, task)
	if err != nil {
		return nil, err
	}

	logger := r.logger.WithContext(ctx)
	cacheKey := ""
	if r.cacheable(e.svc, task) {
		cacheKey = resultCacheKey(name, task, payload)
		if cached, ok := r.cachedResult(ctx, cacheKey); ok {
			logger.Debug().Str("name", name).Str("task", task).Msg("task result served from cache")
			return &domain.TaskResult{Service: name, Task: task, Result: cached}, nil
		}
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := call(runCtx, payload)
	if err != nil {
		logger.Warn().Err(err).Str("name", name).Str("task", task).Dur("took", time.Since(start)).Msg("task failed")
		return nil, wrapTaskError(failMsg, err)
	}
	logger.Debug().Str("name", name).Str("task", task).Dur("took", time.Since(start)).Msg("task completed")

	if cacheKey != "" {
		r.storeResult(ctx, cacheKey, result)
	}

	return &domain.TaskResult{Service: name, Task: task, Result: result}, nil
}

func resolve(svc Service, name, task string) (TaskFunc, string, error) {
	if fn, ok := svc.Task(task); ok {
		return fn, fmt.Sprintf("Task '%s' failed", task), nil
	}

	if inf, ok := svc.(Inferrer); ok {
		call := func(ctx context.Context, payload domain.Payload) (any, error) {
			forwarded := payload.Clone()
			if _, has := forwarded["task"]; !has {
				forwarded["task"] = task
			}
			return inf.Infer(ctx, forwarded)
		}
		return call, fmt.Sprintf("Infer for '%s' failed", task), nil
	}

	available := svc.Tasks()
	if len(available) == 0 {
		available = []string{"<none>"}
	}
	return nil, "", domain.NotFoundError(
		fmt.Sprintf("Task '%s' not found in plugin '%s'. Available: [%s]", task, name, strings.Join(available, ", ")),
		nil,
	)
}

// wrapTaskError keeps caller-facing error types intact and wraps the rest as
// task failures.
func wrapTaskError(msg string, err error) error {
	switch domain.ErrorTypeOf(err) {
	case domain.ErrorTypeValidation, domain.ErrorTypeNotFound, domain.ErrorTypeTooLarge:
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.UnavailableError(msg+": timed out", err)
	}
	return domain.TaskError(msg, err)
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) cacheable(svc Service, task string) bool {
	if r.cache == nil || r.cacheTTL <= 0 {
		return false
	}
	c, ok := svc.(Cacheable)
	return ok && c.Cacheable(task)
}

func (r *Registry) cachedResult(ctx context.Context, key string) (any, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn().Err(err).Str("key", key).Msg("result cache read failed")
		}
		return nil, false
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("result cache entry corrupt")
		return nil, false
	}
	return out, true
}

func (r *Registry) storeResult(ctx context.Context, key string, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("task result not cacheable")
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("result cache write failed")
	}
}

// resultCacheKey hashes the canonical JSON of the payload. encoding/json sorts
// map keys, so equal payloads produce equal keys.
func resultCacheKey(name, task string, payload domain.Payload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(data)
	return cache.CacheKey("task", name, task, hex.EncodeToString(sum[:]))
}

func (e *entry) ensureLoaded(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.loaded {
		return nil
	}
	if err := e.svc.Load(ctx); err != nil {
		return err
	}
	e.loaded = true
	return nil
}

func metaOf(svc Service) domain.ServiceMeta {
	var m domain.ServiceMeta
	if d, ok := svc.(Describer); ok {
		m = d.Meta()
	}
	m.Name = svc.Name()
	m.Tasks = svc.Tasks()
	if m.Tasks == nil {
		m.Tasks = []string{}
	}
	if m.Folder == "" {
		m.Folder = m.Name
	}
	if m.Kind == "" {
		m.Kind = domain.KindService
	}
	return m
}

func notFound(name string) error {
	return domain.NotFoundError(fmt.Sprintf("Plugin not found: %s", name), nil)
}
