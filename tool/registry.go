// Package tool provides a named registry of debugging and export helper
// tools, plus the built-in tool set installed at construction time.
package tool

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunFunc is a tool's executable. Arguments are loosely typed; each tool
// documents the shapes it accepts.
type RunFunc func(ctx context.Context, args ...any) (any, error)

// Tool is a named, registered unit of executable debugging/utility logic.
type Tool struct {
	Name        string
	Description string
	Run         RunFunc
}

// Info is the (name, description) projection returned by List.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExecuteObservation describes one tool execution for observability.
type ExecuteObservation struct {
	ToolName string
	Duration time.Duration
	Success  bool
	Err      string
}

// Observer receives a signal after every Execute. Implementations must
// be safe to call concurrently.
type Observer interface {
	ObserveExecute(o ExecuteObservation)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets an observer notified after every execution.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry holds all registered tools. Tools are registered at
// construction (built-ins) or any later point; there is no unregister
// operation, the whole set is discarded with the registry.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	order    []string // preserves first-registration order
	logger   *slog.Logger
	observer Observer
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Registering under a name that already exists
// replaces the previous tool and logs a warning; it never fails.
// A tool with an empty name or nil executable is ignored.
func (r *Registry) Register(t Tool) {
	if t.Name == "" || t.Run == nil {
		r.logger.Warn("ignoring invalid tool registration", "name", t.Name)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		r.logger.Warn("tool already registered, overwriting", "name", t.Name)
	} else {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Execute looks up a tool by name and invokes it. An unknown name fails
// with *NotFoundError. A failure raised by the tool itself is logged
// with context and returned unchanged; the registry never transforms
// tool-level errors.
func (r *Registry) Execute(ctx context.Context, name string, args ...any) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	observer := r.observer
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	start := time.Now()
	result, err := t.Run(ctx, args...)
	elapsed := time.Since(start)

	if observer != nil {
		obs := ExecuteObservation{
			ToolName: name,
			Duration: elapsed,
			Success:  err == nil,
		}
		if err != nil {
			obs.Err = err.Error()
		}
		observer.ObserveExecute(obs)
	}

	if err != nil {
		r.logger.Error("tool execution failed", "name", name, "error", err)
		return result, err
	}
	return result, nil
}

// List returns (name, description) pairs for every registered tool, in
// registration order. Pure read, no side effects.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		result = append(result, Info{Name: t.Name, Description: t.Description})
	}
	return result
}

// Has returns true if a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
