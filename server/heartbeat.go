package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// HeartbeatEventType marks server-originated liveness events.
const HeartbeatEventType = "heartbeat"

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// Pruner removes old records from a collection. *store.SQLiteStore
// satisfies it.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, collection string, cutoff time.Time) (int64, error)
}

// HeartbeatConfig configures the heartbeat scheduler.
type HeartbeatConfig struct {
	// Service receives the server-originated heartbeat events. Required.
	Service *EventService

	// Spec is a UTC cron expression for heartbeat ticks. Required.
	Spec string

	// Retention prunes events older than this duration on every tick.
	// Zero disables pruning.
	Retention time.Duration

	// Pruner performs the retention pass. Ignored when Retention is zero.
	Pruner Pruner

	Logger *slog.Logger
}

// Heartbeat periodically logs a server-originated liveness event and,
// when retention is configured, prunes old events from the store.
type Heartbeat struct {
	service   *EventService
	schedule  cron.Schedule
	spec      string
	retention time.Duration
	pruner    Pruner
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewHeartbeat validates the configuration and creates a Heartbeat.
func NewHeartbeat(cfg HeartbeatConfig) (*Heartbeat, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("heartbeat: service is required")
	}
	schedule, err := parseCronExpressionUTC(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{
		service:   cfg.Service,
		schedule:  schedule,
		spec:      strings.TrimSpace(cfg.Spec),
		retention: cfg.Retention,
		pruner:    cfg.Pruner,
		logger:    logger,
	}, nil
}

// Start begins the schedule. It returns an error if already started.
func (h *Heartbeat) Start() error {
	if h.cron != nil {
		return fmt.Errorf("heartbeat: already started")
	}
	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(h.schedule, cron.FuncJob(h.Tick))
	c.Start()
	h.cron = c
	h.logger.Info("heartbeat scheduler started", "spec", h.spec)
	return nil
}

// Stop halts the schedule and waits for a running tick to finish, or
// for the context to expire.
func (h *Heartbeat) Stop(ctx context.Context) error {
	if h.cron == nil {
		return nil
	}
	stopped := h.cron.Stop()
	h.cron = nil
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs one heartbeat pass. Exported for testing and for one-shot
// invocation outside the schedule.
func (h *Heartbeat) Tick() {
	ctx := context.Background()

	ok := h.service.LogEvent(ctx, HeartbeatEventType, map[string]any{"status": "ok"}, "")
	if !ok {
		h.logger.Warn("heartbeat event was not recorded")
	}

	if h.retention <= 0 || h.pruner == nil {
		return
	}
	cutoff := time.Now().Add(-h.retention)
	removed, err := h.pruner.DeleteOlderThan(ctx, h.service.Collection(), cutoff)
	if err != nil {
		h.logger.Error("retention prune failed", "error", err)
		return
	}
	if removed > 0 {
		h.logger.Info("retention prune removed events", "count", removed)
	}
}
