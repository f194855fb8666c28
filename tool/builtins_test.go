package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/petal-labs/devtools/store"
)

func builtinRegistry(t *testing.T, cfg BuiltinConfig) *Registry {
	t.Helper()
	r := NewRegistry()
	RegisterBuiltins(r, cfg)
	return r
}

func TestBuiltins_DefaultSet(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})

	for _, name := range []string{ToolInspect, ToolMeasure, ToolExport, ToolProbe} {
		if !r.Has(name) {
			t.Errorf("builtin %q not registered", name)
		}
	}
	if r.Has(ToolSync) {
		t.Error("sync must not be registered without a store")
	}
}

func TestBuiltins_SyncRequiresStore(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{Store: store.NewMemStore()})
	if !r.Has(ToolSync) {
		t.Fatal("sync should be registered when a store is supplied")
	}
}

func TestInspect_ReturnsValueUnchanged(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})

	value := map[string]int{"x": 1}
	result, err := r.Execute(context.Background(), ToolInspect, value)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !reflect.DeepEqual(result, value) {
		t.Errorf("inspect returned %#v, want the input unchanged", result)
	}
}

func TestInspect_RequiresValue(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})
	if _, err := r.Execute(context.Background(), ToolInspect); err == nil {
		t.Fatal("inspect with no arguments should fail")
	}
}

func TestMeasure_ReturnsCallableResult(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})

	fn := func() (any, error) { return 42, nil }
	result, err := r.Execute(context.Background(), ToolMeasure, fn)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 42 {
		t.Errorf("measure returned %v, want 42", result)
	}
}

func TestMeasure_LabelAndVariadicArgs(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})

	fn := func(args ...any) (any, error) {
		sum := 0
		for _, a := range args {
			sum += a.(int)
		}
		return sum, nil
	}
	result, err := r.Execute(context.Background(), ToolMeasure, "summing", fn, 1, 2, 3)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 6 {
		t.Errorf("measure returned %v, want 6", result)
	}
}

func TestMeasure_RejectsNonCallable(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{})
	if _, err := r.Execute(context.Background(), ToolMeasure, 123); err == nil {
		t.Fatal("measure with a non-callable should fail")
	}
}

func TestExport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := builtinRegistry(t, BuiltinConfig{ExportDir: dir})

	input := map[string]any{"name": "widget", "count": float64(3)}
	result, err := r.Execute(context.Background(), ToolExport, input, "widgets.json")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != true {
		t.Fatalf("export returned %v, want true", result)
	}

	data, err := os.ReadFile(filepath.Join(dir, "widgets.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Errorf("round-trip = %#v, want %#v", decoded, input)
	}
}

func TestExport_DefaultFilename(t *testing.T) {
	dir := t.TempDir()
	r := builtinRegistry(t, BuiltinConfig{ExportDir: dir})

	if _, err := r.Execute(context.Background(), ToolExport, []int{1, 2}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultExportFilename)); err != nil {
		t.Errorf("expected %s to exist: %v", DefaultExportFilename, err)
	}
}

type cyclic struct {
	Self *cyclic
}

func TestExport_CyclicFails(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{ExportDir: t.TempDir()})

	c := &cyclic{}
	c.Self = c
	_, err := r.Execute(context.Background(), ToolExport, c)
	if err == nil {
		t.Fatal("exporting cyclic data should fail, not hang")
	}
}

func TestSync_UpsertsByID(t *testing.T) {
	mem := store.NewMemStore()
	r := builtinRegistry(t, BuiltinConfig{Store: mem})

	first := store.Record{"id": "r1", "type": "note", "data": "old"}
	if _, err := r.Execute(context.Background(), ToolSync, "notes", first); err != nil {
		t.Fatalf("sync insert: %v", err)
	}
	second := store.Record{"id": "r1", "type": "note", "data": "new"}
	if _, err := r.Execute(context.Background(), ToolSync, "notes", second); err != nil {
		t.Fatalf("sync update: %v", err)
	}

	records, err := mem.Select(context.Background(), "notes", store.Filter{}, store.OrderNone)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records after upsert, want 1", len(records))
	}
	if records[0]["data"] != "new" {
		t.Errorf("record data = %v, want %q", records[0]["data"], "new")
	}
}

func TestSync_Batch(t *testing.T) {
	mem := store.NewMemStore()
	r := builtinRegistry(t, BuiltinConfig{Store: mem})

	batch := []store.Record{
		{"id": "a", "type": "note"},
		{"id": "b", "type": "note"},
	}
	if _, err := r.Execute(context.Background(), ToolSync, "notes", batch); err != nil {
		t.Fatalf("sync batch: %v", err)
	}
	if mem.Len("notes") != 2 {
		t.Errorf("got %d records, want 2", mem.Len("notes"))
	}
}

func TestSync_RequiresCollection(t *testing.T) {
	r := builtinRegistry(t, BuiltinConfig{Store: store.NewMemStore()})

	if _, err := r.Execute(context.Background(), ToolSync, "", store.Record{}); err == nil {
		t.Fatal("sync without a collection should fail")
	}
	if _, err := r.Execute(context.Background(), ToolSync, "notes", 42); err == nil {
		t.Fatal("sync with an unsupported record type should fail")
	}
}
