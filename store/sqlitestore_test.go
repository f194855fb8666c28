package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteStoreConfig{
		DSN: filepath.Join(t.TempDir(), "devtools.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLiteStore_InsertAndSelect(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	stored, err := s.Insert(ctx, "events", []Record{
		{"type": "click", "data": map[string]any{"x": float64(1)}, "user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id, _ := stored[0]["id"].(string); id == "" {
		t.Fatal("inserted record should have an id")
	}

	got, err := s.Select(ctx, "events", Filter{}, OrderNone)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0]["type"] != "click" {
		t.Errorf("type = %v, want click", got[0]["type"])
	}
	if got[0]["user_id"] != "u1" {
		t.Errorf("user_id = %v, want u1", got[0]["user_id"])
	}
	data, ok := got[0]["data"].(map[string]any)
	if !ok || data["x"] != float64(1) {
		t.Errorf("data = %#v, want map with x=1", got[0]["data"])
	}
}

func TestSQLiteStore_UpsertReplacesByID(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "c", []Record{{"id": "k", "type": "note", "v": float64(1)}}, "id"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, "c", []Record{{"id": "k", "type": "note", "v": float64(2)}}, "id"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Select(ctx, "c", Filter{}, OrderNone)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after upsert, want 1", len(got))
	}
	if got[0]["v"] != float64(2) {
		t.Errorf("v = %v, want 2", got[0]["v"])
	}
}

func TestSQLiteStore_UpsertUnsupportedConflictKey(t *testing.T) {
	s := newTestSQLiteStore(t)
	if _, err := s.Upsert(context.Background(), "c", []Record{{"id": "k"}}, "name"); err == nil {
		t.Fatal("Upsert with a non-id conflict key should fail")
	}
}

func TestSQLiteStore_SelectFilterAndOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	records := []Record{
		{"type": "performance", "timestamp": Timestamp(now.Add(-48 * time.Hour)), "name": "old"},
		{"type": "performance", "timestamp": Timestamp(now.Add(-time.Hour)), "name": "recent"},
		{"type": "performance", "timestamp": Timestamp(now.Add(-time.Minute)), "name": "newest"},
		{"type": "click", "timestamp": Timestamp(now), "name": "other-type"},
	}
	if _, err := s.Insert(ctx, "events", records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Select(ctx, "events",
		Filter{Type: "performance", Since: now.Add(-24 * time.Hour)},
		OrderTimeDesc,
	)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0]["name"] != "newest" || got[1]["name"] != "recent" {
		t.Errorf("order = [%v %v], want [newest recent]", got[0]["name"], got[1]["name"])
	}
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "a", []Record{{"type": "x"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Insert(ctx, "b", []Record{{"type": "x"}, {"type": "y"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Select(ctx, "a", Filter{}, OrderNone)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("collection a has %d records, want 1", len(got))
	}

	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Collections = %v, want [a b]", names)
	}
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := s.Insert(ctx, "events", []Record{
		{"type": "x", "timestamp": Timestamp(now.Add(-72 * time.Hour))},
		{"type": "x", "timestamp": Timestamp(now)},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	removed, err := s.DeleteOlderThan(ctx, "events", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d records, want 1", removed)
	}

	got, err := s.Select(ctx, "events", Filter{}, OrderNone)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records after prune, want 1", len(got))
	}
}
