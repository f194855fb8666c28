// Package store defines the persistence boundary for devtools events.
// Records are loosely-typed documents addressed by collection; the two
// implementations are an in-memory store and a SQLite store.
package store

import (
	"context"
	"errors"
	"time"
)

// Record is a single stored document. Well-known fields: "id" (string,
// assigned by the store when absent), "type", "timestamp" (RFC 3339
// string), "user_id", "data".
type Record = map[string]any

// Filter narrows a Select. Zero values mean "no constraint".
type Filter struct {
	// Type matches the record's "type" field exactly.
	Type string

	// Since keeps records whose timestamp is at or after this instant.
	Since time.Time
}

// Order controls Select result ordering.
type Order int

const (
	// OrderNone returns records in storage order.
	OrderNone Order = iota

	// OrderTimeDesc returns records newest-first by timestamp.
	OrderTimeDesc
)

// ErrEmptyCollection is returned when an operation names no collection.
var ErrEmptyCollection = errors.New("store: collection name is required")

// Store persists event records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Insert appends records to a collection and returns them as stored,
	// with ids and timestamps filled in.
	Insert(ctx context.Context, collection string, records []Record) ([]Record, error)

	// Upsert inserts records, replacing any existing record whose
	// conflictKey field matches.
	Upsert(ctx context.Context, collection string, records []Record, conflictKey string) ([]Record, error)

	// Select returns records from a collection matching the filter.
	Select(ctx context.Context, collection string, f Filter, order Order) ([]Record, error)

	// Close releases underlying resources.
	Close() error
}

// Timestamp formats an instant the way records store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a record timestamp. It accepts both RFC 3339
// with and without sub-second precision.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
