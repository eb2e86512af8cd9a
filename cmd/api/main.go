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

	"github.com/leozw/wp-maintenance/internal/api"
	"github.com/leozw/wp-maintenance/internal/api/handlers"
	"github.com/leozw/wp-maintenance/internal/config"
	"github.com/leozw/wp-maintenance/internal/db"
	"github.com/leozw/wp-maintenance/internal/db/migrations"
	"github.com/leozw/wp-maintenance/internal/logging"
	"github.com/leozw/wp-maintenance/internal/metrics"
	"github.com/leozw/wp-maintenance/internal/reports"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log).With(zap.String("component", "api"))
	defer func() { _ = logger.Sync() }()

	database, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.MigrateUp(database.DB); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	repo := db.NewRepository(database)
	metricsCollector := metrics.NewCollector(cfg.Mimir)

	reportService := reports.NewService(repo, metricsCollector, reports.RealClock{}, logger, reports.Options{
		CollectorTimeout: cfg.Reports.CollectorTimeout,
		PerformanceLimit: cfg.Reports.PerformanceLimit,
		SecurityLimit:    cfg.Reports.SecurityLimit,
		UpdateLimit:      cfg.Reports.UpdateLimit,
	})

	h := handlers.NewHandler(reportService, repo, logger)
	router := api.NewRouter(cfg, h, metricsCollector.Handler(), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go metricsCollector.StartRemoteWrite(ctx, logger)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
