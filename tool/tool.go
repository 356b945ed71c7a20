// Package tool implements named text-in/text-out capabilities that can be
// bound into pipelines as auxiliary context. Tools never panic and never
// return execution failures as Go errors: failures are encoded as textual
// error messages in the returned string, so a model (or user) always gets a
// readable outcome. Tool execution must not mutate pipeline or memory state.
package tool

import (
	"context"
	"sync"
)

// Tool is a named callable capability.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description provided to models to
	// help them understand when and how to use the tool.
	Description() string

	// Call executes the tool. Failures are reported inside the returned
	// text; the error return exists for interface symmetry and is nil for
	// all built-in tools.
	Call(ctx context.Context, input string) (string, error)
}

// Func adapts a function to the Tool interface.
type Func struct {
	ToolName        string
	ToolDescription string
	Fn              func(ctx context.Context, input string) (string, error)
}

// Name implements Tool.
func (f Func) Name() string { return f.ToolName }

// Description implements Tool.
func (f Func) Description() string { return f.ToolDescription }

// Call implements Tool.
func (f Func) Call(ctx context.Context, input string) (string, error) { return f.Fn(ctx, input) }

// Registry holds named tools for lookup and dispatch. Built-in tools are
// registered at construction; callers may add their own. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry pre-populated with the built-in tools.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(newCalculatorTool())
	r.Register(newTimeTool())
	r.Register(newWebSearchTool())
	r.Register(newFileReaderTool())
	r.Register(newTextProcessorTool())
	r.Register(newUnitConverterTool())
	r.Register(newWeatherTool())
	r.Register(newWikipediaSearchTool())
	return r
}

// NewEmptyRegistry creates a registry without built-ins.
func NewEmptyRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// GetMany returns tools in the requested order, silently skipping unknown
// names. With no names it returns all tools in registration order.
func (r *Registry) GetMany(names ...string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(names) == 0 {
		names = r.order
	}
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// List returns a name to description mapping of all registered tools.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Description()
	}
	return out
}
