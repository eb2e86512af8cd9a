package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leozw/wp-maintenance/internal/config"
	"github.com/leozw/wp-maintenance/internal/db"
	"github.com/leozw/wp-maintenance/internal/logging"
	"github.com/leozw/wp-maintenance/internal/metrics"
	"github.com/leozw/wp-maintenance/internal/scheduler"
	"github.com/leozw/wp-maintenance/pkg/wpagent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log).With(zap.String("component", "worker"))
	defer func() { _ = logger.Sync() }()

	database, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	repo := db.NewRepository(database)
	metricsCollector := metrics.NewCollector(cfg.Mimir)
	agent := wpagent.NewClient(cfg.Agent.APIKey, cfg.Agent.Timeout)
	resolver := scheduler.NewDNSResolver(cfg.Sync.Resolver)

	sched := scheduler.NewScheduler(repo, agent, resolver, metricsCollector, logger, cfg.Sync, cfg.Agent)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	go metricsCollector.StartRemoteWrite(ctx, logger)

	// The worker has no API; it only exposes its own metrics.
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           metricsCollector.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop in time")
	}

	logger.Info("Worker exited")
}
