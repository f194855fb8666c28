package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// Fixed-width UTC layout for the time column so string comparison
// matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DSN is the database connection string.
	DSN string
}

// SQLiteStore persists records to a SQLite database. It satisfies the
// Store interface and enables WAL mode for concurrent read access.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set WAL mode: %w", err)
	}

	// Create schema.
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Insert appends records to a collection. Records without an id or
// timestamp have them assigned.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, records []Record) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	stored := normalize(records, time.Now())

	for _, rec := range stored {
		cols, err := recordColumns(rec)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO records (id, collection, type, time, user_id, payload)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			cols.id, collection, cols.typ, cols.time, cols.userID, cols.payload,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: insert: %w", err)
		}
	}
	return stored, nil
}

// Upsert inserts records, replacing any existing record with the same
// id. Only "id" is supported as the conflict key; it is the table's
// primary key within a collection.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, records []Record, conflictKey string) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	if conflictKey != "id" {
		return nil, fmt.Errorf("sqlitestore: unsupported conflict key %q", conflictKey)
	}
	stored := normalize(records, time.Now())

	for _, rec := range stored {
		cols, err := recordColumns(rec)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO records (id, collection, type, time, user_id, payload)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE SET
			     type = excluded.type,
			     time = excluded.time,
			     user_id = excluded.user_id,
			     payload = excluded.payload`,
			cols.id, collection, cols.typ, cols.time, cols.userID, cols.payload,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: upsert: %w", err)
		}
	}
	return stored, nil
}

// Select returns records from a collection matching the filter.
func (s *SQLiteStore) Select(ctx context.Context, collection string, f Filter, order Order) ([]Record, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	query := `SELECT id, type, time, user_id, payload FROM records WHERE collection = ?`
	args := []any{collection}

	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if !f.Since.IsZero() {
		query += " AND time >= ?"
		args = append(args, f.Since.UTC().Format(sqliteTimeLayout))
	}
	if order == OrderTimeDesc {
		query += " ORDER BY time DESC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: select: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteOlderThan removes records in a collection older than cutoff.
// It returns the number of records removed.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, collection string, cutoff time.Time) (int64, error) {
	if collection == "" {
		return 0, ErrEmptyCollection
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND time < ?`,
		collection, cutoff.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: delete older than: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: rows affected: %w", err)
	}
	return n, nil
}

// Collections returns distinct collection names in the store.
func (s *SQLiteStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type columns struct {
	id      string
	typ     string
	time    string
	userID  sql.NullString
	payload string
}

// recordColumns projects a record onto table columns. The full record
// is kept as JSON payload; id, type, time, and user_id are extracted
// for indexing.
func recordColumns(rec Record) (columns, error) {
	var cols columns
	cols.id, _ = rec["id"].(string)
	cols.typ, _ = rec["type"].(string)

	ts, _ := rec["timestamp"].(string)
	t, err := ParseTimestamp(ts)
	if err != nil {
		return columns{}, fmt.Errorf("sqlitestore: parse timestamp %q: %w", ts, err)
	}
	cols.time = t.UTC().Format(sqliteTimeLayout)

	if userID, ok := rec["user_id"].(string); ok && userID != "" {
		cols.userID = sql.NullString{String: userID, Valid: true}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return columns{}, fmt.Errorf("sqlitestore: marshal record: %w", err)
	}
	cols.payload = string(payload)
	return cols, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			id          string
			typ         string
			timeStr     string
			userID      sql.NullString
			payloadJSON string
		)
		if err := rows.Scan(&id, &typ, &timeStr, &userID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan record: %w", err)
		}

		rec := Record{}
		if err := json.Unmarshal([]byte(payloadJSON), &rec); err != nil {
			return nil, fmt.Errorf("sqlitestore: unmarshal record: %w", err)
		}
		rec["id"] = id
		rec["type"] = typ
		if userID.Valid {
			rec["user_id"] = userID.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
