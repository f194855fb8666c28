package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/petal-labs/devtools/store"
)

// Built-in tool names.
const (
	ToolInspect = "inspect"
	ToolMeasure = "measure"
	ToolExport  = "export"
	ToolProbe   = "probe"
	ToolSync    = "sync"
)

// DefaultExportFilename is used when the export tool is given no filename.
const DefaultExportFilename = "export.json"

// BuiltinConfig configures the default tool set.
type BuiltinConfig struct {
	// Logger receives inspect/measure output. Defaults to slog.Default().
	Logger *slog.Logger

	// Store enables the sync tool. When nil, sync is not registered.
	Store store.Store

	// ExportDir is where the export tool writes files. Defaults to the
	// working directory.
	ExportDir string
}

// RegisterBuiltins installs the default tool set into a registry. Each
// registration is idempotent: re-installing replaces the previous entry.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Register(Tool{
		Name:        ToolInspect,
		Description: "Log a structured dump of a value and return it unchanged.",
		Run:         inspectTool(logger),
	})
	r.Register(Tool{
		Name:        ToolMeasure,
		Description: "Measure wall-clock duration of a function call.",
		Run:         measureTool(logger),
	})
	r.Register(Tool{
		Name:        ToolExport,
		Description: "Serialize a value to pretty-printed JSON and save it to a file.",
		Run:         exportTool(cfg.ExportDir),
	})
	r.Register(Tool{
		Name:        ToolProbe,
		Description: "Probe host runtime capabilities and report availability.",
		Run: func(ctx context.Context, _ ...any) (any, error) {
			return Probe(ctx), nil
		},
	})

	if cfg.Store != nil {
		r.Register(Tool{
			Name:        ToolSync,
			Description: "Upsert a record or batch into a store collection, keyed on id.",
			Run:         syncTool(cfg.Store, logger),
		})
	}
}

// inspectTool logs a grouped view of its single argument and returns it
// unchanged, so call sites can wrap a value without altering data flow.
func inspectTool(logger *slog.Logger) RunFunc {
	return func(_ context.Context, args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("inspect: value argument is required")
		}
		value := args[0]
		logger.Info("state inspection",
			slog.Group("state",
				"type", fmt.Sprintf("%T", value),
				"value", value,
			),
		)
		return value, nil
	}
}

// measureTool invokes the supplied callable, logging the elapsed
// wall-clock time of its synchronous extent. The callable's result and
// error are returned as-is.
func measureTool(logger *slog.Logger) RunFunc {
	return func(_ context.Context, args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("measure: callable argument is required")
		}

		// An optional label may precede the callable.
		label := ToolMeasure
		if name, ok := args[0].(string); ok {
			label = name
			args = args[1:]
			if len(args) == 0 {
				return nil, fmt.Errorf("measure: callable argument is required")
			}
		}

		call, rest, err := asCallable(args[0], args[1:])
		if err != nil {
			return nil, err
		}

		start := time.Now()
		result, callErr := call(rest)
		elapsed := time.Since(start)

		logger.Info("timing measurement", "label", label, "elapsed", elapsed)
		return result, callErr
	}
}

// asCallable adapts the supported callable shapes to a single form.
func asCallable(v any, rest []any) (func([]any) (any, error), []any, error) {
	switch fn := v.(type) {
	case func(...any) (any, error):
		return func(args []any) (any, error) { return fn(args...) }, rest, nil
	case func() (any, error):
		return func([]any) (any, error) { return fn() }, nil, nil
	case func() any:
		return func([]any) (any, error) { return fn(), nil }, nil, nil
	case func():
		return func([]any) (any, error) { fn(); return nil, nil }, nil, nil
	default:
		return nil, nil, fmt.Errorf("measure: unsupported callable type %T", v)
	}
}

// exportTool serializes a value to indented JSON and writes it to a
// file. Returns true on success; a marshal or write failure propagates.
func exportTool(dir string) RunFunc {
	return func(_ context.Context, args ...any) (any, error) {
		if len(args) == 0 {
			return false, fmt.Errorf("export: value argument is required")
		}
		value := args[0]

		filename := DefaultExportFilename
		if len(args) > 1 {
			if name, ok := args[1].(string); ok && name != "" {
				filename = name
			}
		}

		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return false, fmt.Errorf("export: marshal: %w", err)
		}

		path := filename
		if dir != "" && !filepath.IsAbs(filename) {
			path = filepath.Join(dir, filename)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return false, fmt.Errorf("export: write %s: %w", path, err)
		}
		return true, nil
	}
}

// syncTool upserts a record or batch into a store collection, keyed on
// the "id" field. Store failures are logged and propagated unchanged.
func syncTool(st store.Store, logger *slog.Logger) RunFunc {
	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("sync: collection and record arguments are required")
		}
		collection, ok := args[0].(string)
		if !ok || collection == "" {
			return nil, fmt.Errorf("sync: collection argument must be a non-empty string")
		}

		var records []store.Record
		switch v := args[1].(type) {
		case store.Record:
			records = []store.Record{v}
		case []store.Record:
			records = v
		default:
			return nil, fmt.Errorf("sync: unsupported record type %T", args[1])
		}

		stored, err := st.Upsert(ctx, collection, records, "id")
		if err != nil {
			logger.Error("sync upsert failed", "collection", collection, "error", err)
			return nil, err
		}
		return stored, nil
	}
}
