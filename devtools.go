// Package devtools is a small developer-utility toolkit: a named
// registry of debugging/export helper tools, a constrained facade over
// it, and (in the server subpackage) an HTTP event-intake service.
//
// Consumers construct a Kit and pass it where needed:
//
//	kit := devtools.New(devtools.Options{Development: true})
//	v := kit.DebugState(ctx, v)
//
// A process-wide shared instance is available through Default() for
// call sites that cannot thread a Kit; it is constructed once, with
// development mode taken from the DEVTOOLS_DEV environment variable.
package devtools

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/petal-labs/devtools/store"
	"github.com/petal-labs/devtools/tool"
)

// EnvDevelopment enables development mode for the Default() kit when
// set to any non-empty value.
const EnvDevelopment = "DEVTOOLS_DEV"

// Options configures a Kit.
type Options struct {
	// Development gates DebugState and MeasurePerformance. When false
	// both become passthroughs with no instrumentation overhead.
	Development bool

	// Store enables the sync tool and remote persistence. Optional.
	Store store.Store

	// ExportDir is where the export tool writes files. Defaults to the
	// working directory.
	ExportDir string

	// Observer receives a signal for every tool execution. Optional.
	Observer tool.Observer

	Logger *slog.Logger
}

// Kit is the consumer facade over a tool registry with the default
// tool set installed.
type Kit struct {
	registry    *tool.Registry
	development bool
}

// New constructs a Kit: a fresh registry with the built-in tools
// installed (sync only when a store is supplied).
func New(opts Options) *Kit {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	regOpts := []tool.Option{tool.WithLogger(logger)}
	if opts.Observer != nil {
		regOpts = append(regOpts, tool.WithObserver(opts.Observer))
	}
	registry := tool.NewRegistry(regOpts...)
	tool.RegisterBuiltins(registry, tool.BuiltinConfig{
		Logger:    logger,
		Store:     opts.Store,
		ExportDir: opts.ExportDir,
	})

	return &Kit{
		registry:    registry,
		development: opts.Development,
	}
}

// DebugState inspects a value through the registry in development mode.
// Outside development mode it returns the value unchanged without
// touching the registry, so call sites keep their data flow intact.
func (k *Kit) DebugState(ctx context.Context, v any) any {
	if !k.development {
		return v
	}
	result, err := k.registry.Execute(ctx, tool.ToolInspect, v)
	if err != nil {
		return v
	}
	return result
}

// MeasurePerformance times fn through the registry in development mode.
// Outside development mode fn is invoked directly, with no timing
// instrumentation or output.
func (k *Kit) MeasurePerformance(ctx context.Context, label string, fn func() (any, error)) (any, error) {
	if !k.development {
		return fn()
	}
	return k.registry.Execute(ctx, tool.ToolMeasure, label, fn)
}

// ExportData serializes v to pretty-printed JSON and saves it under
// filename (default export.json). Always forwarded to the registry.
func (k *Kit) ExportData(ctx context.Context, v any, filename string) (bool, error) {
	result, err := k.registry.Execute(ctx, tool.ToolExport, v, filename)
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

// CheckCompatibility probes the host's capability set. Always forwarded
// to the registry.
func (k *Kit) CheckCompatibility(ctx context.Context) (map[string]bool, error) {
	result, err := k.registry.Execute(ctx, tool.ToolProbe)
	if err != nil {
		return nil, err
	}
	caps, _ := result.(map[string]bool)
	return caps, nil
}

// Registry exposes the underlying registry for call sites that need
// tools beyond the facade surface.
func (k *Kit) Registry() *tool.Registry {
	return k.registry
}

var (
	defaultKit  *Kit
	defaultOnce sync.Once
)

// Default returns the process-wide shared Kit. It is constructed on
// first use and lives for the remainder of the process; prefer passing
// an explicitly constructed Kit where possible.
func Default() *Kit {
	defaultOnce.Do(func() {
		defaultKit = New(Options{
			Development: os.Getenv(EnvDevelopment) != "",
		})
	})
	return defaultKit
}
