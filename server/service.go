package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/petal-labs/devtools/store"
)

// DefaultCollection is the store collection events are written to.
const DefaultCollection = "events"

// PerformanceEventType marks events picked up by the metrics query.
const PerformanceEventType = "performance"

// DefaultMetricsWindowDays bounds the metrics query when no window is given.
const DefaultMetricsWindowDays = 7

// Features advertised by Status.
var serviceFeatures = []string{
	"performance-monitoring",
	"compatibility-check",
	"event-logging",
}

// ServiceConfig configures an EventService. Immutable after construction.
type ServiceConfig struct {
	// Store persists events. Nil disables persistence: submissions are
	// still accepted but reported as not persisted.
	Store store.Store

	// Collection is the target store collection. Defaults to "events".
	Collection string

	// Version is reported by Status.
	Version string

	// Enabled is reported by Status. Defaults to true; set Disabled to
	// turn it off.
	Disabled bool

	Logger *slog.Logger
}

// EventService implements the event intake operations independent of
// the HTTP surface.
type EventService struct {
	store      store.Store
	collection string
	version    string
	enabled    bool
	logger     *slog.Logger
	now        func() time.Time
}

// NewEventService creates an EventService.
func NewEventService(cfg ServiceConfig) *EventService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return &EventService{
		store:      cfg.Store,
		collection: collection,
		version:    cfg.Version,
		enabled:    !cfg.Disabled,
		logger:     logger,
		now:        time.Now,
	}
}

// SubmitRequest is a client-originated event submission.
type SubmitRequest struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Persisted bool
	Event     store.Record
}

// Submit validates and persists one event. A missing type or data fails
// with *ValidationError. With no store configured the event is accepted
// but not persisted; this is a deliberate degraded mode, not a failure.
func (s *EventService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if req.Type == "" {
		return SubmitResult{}, &ValidationError{Field: "type"}
	}
	if req.Data == nil {
		return SubmitResult{}, &ValidationError{Field: "data"}
	}

	if s.store == nil {
		s.logger.Debug("event accepted without persistence", "type", req.Type)
		return SubmitResult{Persisted: false}, nil
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = store.Timestamp(s.now())
	}
	rec := store.Record{
		"type":      req.Type,
		"data":      req.Data,
		"timestamp": timestamp,
	}
	if req.UserID != "" {
		rec["user_id"] = req.UserID
	}

	stored, err := s.store.Insert(ctx, s.collection, []store.Record{rec})
	if err != nil {
		s.logger.Error("event insert failed", "type", req.Type, "error", err)
		return SubmitResult{}, &StoreError{Op: "insert", Err: err}
	}
	return SubmitResult{Persisted: true, Event: stored[0]}, nil
}

// Metric is one projected performance event.
type Metric struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Operation string  `json:"operation"`
	Duration  float64 `json:"duration"`
	UserID    string  `json:"userId,omitempty"`
}

// PerformanceMetrics returns performance events newer than the given
// window, newest first. Fails with ErrUnconfigured when no store is set.
func (s *EventService) PerformanceMetrics(ctx context.Context, days int) ([]Metric, error) {
	if s.store == nil {
		return nil, ErrUnconfigured
	}
	if days <= 0 {
		days = DefaultMetricsWindowDays
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	records, err := s.store.Select(ctx, s.collection,
		store.Filter{Type: PerformanceEventType, Since: cutoff},
		store.OrderTimeDesc,
	)
	if err != nil {
		s.logger.Error("metrics query failed", "days", days, "error", err)
		return nil, &StoreError{Op: "select", Err: err}
	}

	metrics := make([]Metric, 0, len(records))
	for _, rec := range records {
		metrics = append(metrics, projectMetric(rec))
	}
	return metrics, nil
}

// projectMetric pulls the metric fields from a record's nested payload.
func projectMetric(rec store.Record) Metric {
	m := Metric{}
	m.ID, _ = rec["id"].(string)
	m.Timestamp, _ = rec["timestamp"].(string)
	m.UserID, _ = rec["user_id"].(string)

	if data, ok := rec["data"].(map[string]any); ok {
		m.Operation, _ = data["operation"].(string)
		switch d := data["duration"].(type) {
		case float64:
			m.Duration = d
		case int:
			m.Duration = float64(d)
		case int64:
			m.Duration = float64(d)
		}
	}
	return m
}

// Status is the static service descriptor.
type Status struct {
	Enabled  bool     `json:"enabled"`
	Version  string   `json:"version"`
	Store    bool     `json:"store"`
	Features []string `json:"features"`
}

// Status reports the service configuration. Always succeeds; Store is
// true whenever a store is configured, reachable or not.
func (s *EventService) Status() Status {
	return Status{
		Enabled:  s.enabled,
		Version:  s.version,
		Store:    s.store != nil,
		Features: append([]string(nil), serviceFeatures...),
	}
}

// LogEvent is the server-originated variant of Submit, for events not
// tied to an HTTP request. It never fails: validation and store errors
// are logged and reported as false.
func (s *EventService) LogEvent(ctx context.Context, eventType string, data any, userID string) bool {
	result, err := s.Submit(ctx, SubmitRequest{
		Type:   eventType,
		Data:   data,
		UserID: userID,
	})
	if err != nil {
		s.logger.Error("server event logging failed", "type", eventType, "error", err)
		return false
	}
	if !result.Persisted {
		s.logger.Debug("server event logged without persistence", "type", eventType)
	}
	return true
}

// Collection returns the configured store collection name.
func (s *EventService) Collection() string {
	return s.collection
}
