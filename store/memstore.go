package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is a thread-safe in-memory store. It backs tests and
// ephemeral runs where no SQLite path is configured.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]Record // collection -> records
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string][]Record),
	}
}

func (s *MemStore) Insert(_ context.Context, collection string, records []Record) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	stored := normalize(records, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[collection] = append(s.records[collection], stored...)
	return stored, nil
}

func (s *MemStore) Upsert(_ context.Context, collection string, records []Record, conflictKey string) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	stored := normalize(records, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.records[collection]
	for _, rec := range stored {
		replaced := false
		for i, old := range existing {
			if old[conflictKey] == rec[conflictKey] {
				existing[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, rec)
		}
	}
	s.records[collection] = existing
	return stored, nil
}

func (s *MemStore) Select(_ context.Context, collection string, f Filter, order Order) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Record
	for _, rec := range s.records[collection] {
		if f.Type != "" {
			if t, _ := rec["type"].(string); t != f.Type {
				continue
			}
		}
		if !f.Since.IsZero() && recordTime(rec).Before(f.Since) {
			continue
		}
		result = append(result, rec)
	}

	if order == OrderTimeDesc {
		sort.SliceStable(result, func(i, j int) bool {
			return recordTime(result[i]).After(recordTime(result[j]))
		})
	}
	return result, nil
}

// Len returns the number of records in a collection.
func (s *MemStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[collection])
}

func (s *MemStore) Close() error {
	return nil
}

// normalize copies records and fills in missing ids and timestamps.
func normalize(records []Record, now time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		cp := make(Record, len(r)+2)
		for k, v := range r {
			cp[k] = v
		}
		if id, _ := cp["id"].(string); id == "" {
			cp["id"] = uuid.New().String()
		}
		if ts, _ := cp["timestamp"].(string); ts == "" {
			cp["timestamp"] = Timestamp(now)
		}
		out = append(out, cp)
	}
	return out
}

// recordTime extracts a record's timestamp, zero if missing or invalid.
func recordTime(rec Record) time.Time {
	ts, _ := rec["timestamp"].(string)
	if ts == "" {
		return time.Time{}
	}
	t, err := ParseTimestamp(ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)
