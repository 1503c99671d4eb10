package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/shalun/raidlogs/internal/adapters/http/api"
	"github.com/shalun/raidlogs/internal/adapters/http/swagger"
	"github.com/shalun/raidlogs/internal/adapters/repository"
	app "github.com/shalun/raidlogs/internal/app"
	"github.com/shalun/raidlogs/internal/config"
	"github.com/shalun/raidlogs/internal/domain/admission"
	"github.com/shalun/raidlogs/internal/domain/dedupe"
	"github.com/shalun/raidlogs/internal/gamedata"
	"github.com/shalun/raidlogs/pkg/logger"
	"github.com/shalun/raidlogs/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// -config is a convenience alias for the RAIDLOGS_CONFIG env var.
	configPath := pflag.String("config", "", "path to YAML config file")
	pflag.Parse()
	if *configPath != "" {
		_ = os.Setenv("RAIDLOGS_CONFIG", *configPath)
	}

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Game tables: built-in defaults, optionally overlaid from file
	tables, err := gamedata.Load(ctx, cfg.GamedataPath)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load game tables", logger.Error(err))
		return
	}

	// SQLite store backs players, runs and upload tokens
	store, err := repository.NewSQLite(cfg.DBPath)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open database", logger.Error(err))
		return
	}
	defer func() {
		_ = store.Close()
	}()

	// Duplicate cache shares the admission time window
	deduper := dedupe.NewTTLDeduper(
		dedupe.WithTTL(time.Duration(cfg.MaxAllowedTimeDiffSec)*time.Second),
		dedupe.WithSweepInterval(time.Duration(cfg.DedupeSweepSec)*time.Second),
	)
	go deduper.Run(ctx)

	svc := app.New(store, store, store, deduper, *tables,
		app.WithLogger(loggerInstance),
		app.WithAllowAnonymous(cfg.AllowAnonymousUpload),
		app.WithRunIDLength(cfg.RunIDLength),
		app.WithRunURLBase(cfg.RunURLBase),
		app.WithRecentLimit(cfg.RecentRunsAmount),
		app.WithTopLimit(cfg.TopPlacesAmount),
		app.WithLimits(admission.Limits{
			MaxAllowedTimeDiff: time.Duration(cfg.MaxAllowedTimeDiffSec) * time.Second,
			MinPartyDps:        cfg.MinPartyDps,
			MinMembers:         cfg.MinMembersCount,
			MaxMembers:         cfg.MaxMembersCount,
		}),
	)

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, api.WithAuthHeader(cfg.AuthHeader))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the dedupe size gauge as a side effect.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
