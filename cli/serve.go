package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/devtools"
	devotel "github.com/petal-labs/devtools/otel"
	"github.com/petal-labs/devtools/server"
	"github.com/petal-labs/devtools/store"
)

// Version is reported by the status endpoint and the root command.
// Set via ldflags at build time.
var Version = "dev"

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the event intake HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "Listen port")
	cmd.Flags().String("host", "0.0.0.0", "Listen host")
	cmd.Flags().String("base-path", server.DefaultBasePath, "Base path for all routes")
	cmd.Flags().String("cors-origin", "*", "Allowed CORS origin")
	cmd.Flags().String("sqlite-path", "", "Path to SQLite event store (empty disables persistence)")
	cmd.Flags().String("collection", server.DefaultCollection, "Store collection for events")
	cmd.Flags().String("config", "", "Path to devtools.yaml")
	cmd.Flags().String("heartbeat", "", "UTC cron expression for heartbeat events")
	cmd.Flags().Duration("retention", 0, "Prune stored events older than this on heartbeat ticks")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP collector endpoint for traces")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Int64("max-body", 1<<20, "Max request body size in bytes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	maxBody, _ := cmd.Flags().GetInt64("max-body")
	explicitConfigPath, _ := cmd.Flags().GetString("config")

	cfg, err := resolveServeConfig(cmd, explicitConfigPath)
	if err != nil {
		return exitError(exitConfig, "%s", err)
	}

	logger := slog.Default()

	// Tracing export is optional; with no endpoint the global no-op
	// providers stay in place.
	otelShutdown, err := devotel.Setup(cmd.Context(), devotel.SetupConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "devtools",
		Insecure:    true,
	})
	if err != nil {
		return exitError(exitRuntime, "initializing tracing: %v", err)
	}
	defer func() {
		_ = otelShutdown(context.Background())
	}()

	observer, err := devotel.NewToolObserver(
		otelapi.GetMeterProvider().Meter("devtools/tool"),
		otelapi.GetTracerProvider().Tracer("devtools/tool"),
	)
	if err != nil {
		return exitError(exitRuntime, "initializing tool observability: %v", err)
	}

	var eventStore store.Store
	var pruner server.Pruner
	if cfg.SQLitePath != "" {
		sqlite, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: cfg.SQLitePath})
		if err != nil {
			return exitError(exitRuntime, "opening sqlite event store: %v", err)
		}
		defer func() {
			_ = sqlite.Close()
		}()
		eventStore = sqlite
		pruner = sqlite
	}

	service := server.NewEventService(server.ServiceConfig{
		Store:      eventStore,
		Collection: cfg.Collection,
		Version:    Version,
		Disabled:   cfg.Enabled != nil && !*cfg.Enabled,
		Logger:     logger,
	})

	// Record the host capability set as a server-originated event at
	// startup, through the same facade consumers use.
	kit := devtools.New(devtools.Options{
		Development: true,
		Store:       eventStore,
		Observer:    observer,
		Logger:      logger,
	})
	if caps, err := kit.CheckCompatibility(cmd.Context()); err == nil {
		service.LogEvent(cmd.Context(), "compatibility", caps, "")
	}

	if cfg.Heartbeat != "" {
		heartbeat, err := server.NewHeartbeat(server.HeartbeatConfig{
			Service:   service,
			Spec:      cfg.Heartbeat,
			Retention: cfg.Retention,
			Pruner:    pruner,
			Logger:    logger,
		})
		if err != nil {
			return exitError(exitConfig, "%s", err)
		}
		if err := heartbeat.Start(); err != nil {
			return exitError(exitRuntime, "starting heartbeat: %v", err)
		}
		defer func() {
			_ = heartbeat.Stop(context.Background())
		}()
	}

	srv := server.NewServer(server.Config{
		Service:    service,
		BasePath:   cfg.BasePath,
		CORSOrigin: cfg.CORSOrigin,
		MaxBody:    maxBody,
		Logger:     logger,
	})

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "devtools listening on %s%s\n", addr, srv.BasePath())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

// resolveServeConfig loads the config file (if any) and applies flag
// overrides. Flags that were explicitly set win over file values.
func resolveServeConfig(cmd *cobra.Command, explicitConfigPath string) (Config, error) {
	var cfg Config
	path, found, err := DiscoverConfigPath(explicitConfigPath)
	if err != nil {
		return Config{}, err
	}
	if found {
		cfg, err = LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
	}

	if cmd.Flags().Changed("sqlite-path") {
		cfg.SQLitePath, _ = cmd.Flags().GetString("sqlite-path")
	}
	if v, _ := cmd.Flags().GetString("collection"); cmd.Flags().Changed("collection") || cfg.Collection == "" {
		cfg.Collection = v
	}
	if v, _ := cmd.Flags().GetString("base-path"); cmd.Flags().Changed("base-path") || cfg.BasePath == "" {
		cfg.BasePath = v
	}
	if v, _ := cmd.Flags().GetString("cors-origin"); cmd.Flags().Changed("cors-origin") || cfg.CORSOrigin == "" {
		cfg.CORSOrigin = v
	}
	if cmd.Flags().Changed("heartbeat") {
		cfg.Heartbeat, _ = cmd.Flags().GetString("heartbeat")
	}
	if cmd.Flags().Changed("retention") {
		cfg.Retention, _ = cmd.Flags().GetDuration("retention")
	}
	if cmd.Flags().Changed("otlp-endpoint") {
		cfg.OTLPEndpoint, _ = cmd.Flags().GetString("otlp-endpoint")
	}
	return cfg, nil
}
