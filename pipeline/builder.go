package pipeline

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/taskpipe/taskpipe/logging"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/task"
)

// Builder constructs and caches task pipelines. Construction goes through a
// model.Factory so a cache hit provably skips invoker setup, which may open
// network clients. Safe for concurrent use.
type Builder struct {
	registry *task.Registry
	factory  model.Factory
	logger   logging.Logger

	mu    sync.RWMutex
	cache map[string]Pipeline
	group singleflight.Group
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Builder) { b.logger = logging.OrNoOp(l) }
}

// WithRegistry overrides the task catalogue.
func WithRegistry(r *task.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// NewBuilder creates a Builder backed by the given invoker factory.
func NewBuilder(factory model.Factory, opts ...Option) *Builder {
	b := &Builder{
		registry: task.NewRegistry(),
		factory:  factory,
		logger:   logging.NoOpLogger{},
		cache:    make(map[string]Pipeline),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the task catalogue the builder validates against.
func (b *Builder) Registry() *task.Registry { return b.registry }

// Build constructs a fresh pipeline for the task. The task is validated
// before the invoker factory runs, so unknown tasks never touch model or
// network resources.
func (b *Builder) Build(taskName string, cfg model.Config, opts task.Options) (Pipeline, error) {
	tmpl, err := b.registry.Template(taskName, opts)
	if err != nil {
		return nil, err
	}

	invoker, err := b.factory(cfg)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("pipeline.built", "task", tmpl.Task(), "provider", invoker.Info().Provider)
	return &taskPipeline{template: tmpl, invoker: invoker, logger: b.logger}, nil
}

// BuildTemplate constructs a fresh pipeline from a caller-supplied template,
// bypassing the task catalogue. Specialized chains use it for prompt shapes
// the built-in tasks do not cover.
func (b *Builder) BuildTemplate(tmpl *task.Template, cfg model.Config) (Pipeline, error) {
	invoker, err := b.factory(cfg)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("pipeline.built", "task", tmpl.Task(), "provider", invoker.Info().Provider)
	return &taskPipeline{template: tmpl, invoker: invoker, logger: b.logger}, nil
}

// GetOrCreate returns the cached pipeline for cacheKey, building it on first
// use. The key defaults to the lower-cased task name. Once an entry exists,
// later calls under the same key return the original pipeline regardless of
// differing cfg or opts — there is no parameter-aware invalidation; callers
// wanting a differently configured pipeline must use a distinct key. Under
// concurrent first use at most one build runs per key.
func (b *Builder) GetOrCreate(taskName, cacheKey string, cfg model.Config, opts task.Options) (Pipeline, error) {
	key := cacheKey
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(taskName))
	}

	b.mu.RLock()
	p, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		b.mu.RLock()
		cached, ok := b.cache[key]
		b.mu.RUnlock()
		if ok {
			return cached, nil
		}

		built, err := b.Build(taskName, cfg, opts)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = built
		b.mu.Unlock()
		b.logger.Debug("pipeline.cached", "key", key, "task", taskName)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Pipeline), nil
}

// CachedKeys reports the cache keys currently populated, mainly for
// introspection and tests.
func (b *Builder) CachedKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.cache))
	for k := range b.cache {
		keys = append(keys, k)
	}
	return keys
}

// Chat returns the cached general assistant pipeline.
func (b *Builder) Chat(cfg model.Config) (Pipeline, error) {
	return b.GetOrCreate("assistant", "", cfg, task.Options{})
}

// Summarize returns a summarizer pipeline with the desired length
// ("brief", "medium" or "detailed") pre-bound, cached per length.
func (b *Builder) Summarize(cfg model.Config, length string) (Pipeline, error) {
	p, err := b.GetOrCreate("summarizer", "summarizer:"+length, cfg, task.Options{})
	if err != nil {
		return nil, err
	}
	return Bind(p, map[string]any{"length": length}), nil
}
