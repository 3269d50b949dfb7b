package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/oho/clusterlab/internal/api"
	"github.com/oho/clusterlab/internal/config"
	"github.com/oho/clusterlab/internal/pipeline"
	"github.com/oho/clusterlab/internal/plot"
	"github.com/oho/clusterlab/internal/server"
	"github.com/oho/clusterlab/internal/storage"
)

func main() {
	// Configure structured logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("Starting clusterlab daemon...")

	// Load config
	cfg := config.LoadConfig()
	slog.Info("Configuration loaded", "data_dir", cfg.DataDir, "port", cfg.Port, "default_k", cfg.Cluster.DefaultK)

	// Initialize database
	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Runs left running by a previous process will never finish
	stale := storage.RunRunning
	if runs, err := db.ListRuns(&stale, 0); err == nil {
		msg := "interrupted by daemon restart"
		for _, r := range runs {
			db.UpdateRunStatus(r.ID, storage.RunFailed, &msg)
		}
		if len(runs) > 0 {
			slog.Warn("Marked interrupted runs failed", "count", len(runs))
		}
	}

	runner := pipeline.NewRunner(db, cfg)
	orch := pipeline.NewOrchestrator(db, cfg)

	// Build HTTP router
	r := server.NewRouter()

	// Health endpoint
	r.Get("/health", server.HealthHandler(cfg, db, orch))

	r.Mount("/runs", api.RunsRouter(db, runner, plot.NewCache(cfg.PlotsDir)))
	r.Mount("/text", api.TextRouter(orch))
	r.Mount("/dataflow", api.DataflowRouter(cfg.Dataflow.Partitions))

	// Write PID file
	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
	defer os.Remove(pidPath)

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	fmt.Printf("  clusterlab\n")
	fmt.Printf("  http://%s\n", addr)
	fmt.Printf("  Data dir: %s\n", cfg.DataDir)
	fmt.Printf("%s\n\n", strings.Repeat("=", 60))

	slog.Info("Daemon ready", "addr", addr)

	// Graceful shutdown on signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	orch.Stop()

	slog.Info("Daemon stopped")
}
