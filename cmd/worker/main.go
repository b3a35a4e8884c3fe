package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/procurehub/backend/internal/catalog"
	"github.com/procurehub/backend/internal/export"
	"github.com/procurehub/backend/internal/feed"
	"github.com/procurehub/backend/internal/ingest"
	"github.com/procurehub/backend/internal/jobs"
	"github.com/procurehub/backend/internal/notify"
	"github.com/procurehub/backend/internal/orders"
	"github.com/procurehub/backend/internal/users"
	"github.com/procurehub/backend/pkg/config"
	"github.com/procurehub/backend/pkg/db"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/mailer"
	"github.com/procurehub/backend/pkg/metrics"
	"github.com/procurehub/backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	jobMetrics := metrics.NewJobMetrics(registry)

	jobService, err := jobs.NewService(jobs.NewRepository(dbClient.DB()), cfg.Jobs, jobMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create jobs service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ingestService, err := ingest.NewService(
		dbClient,
		catalogRepo,
		feed.NewFetcher(cfg.Feed, logg),
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	exportService, err := export.NewService(catalogRepo, cfg.Export, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create export service", err)
		os.Exit(1)
	}

	notifyService, err := notify.NewService(
		orders.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		mailer.NewLogMailer(logg),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notify service", err)
		os.Exit(1)
	}

	jobs.RegisterHandlers(jobService, ingestService, exportService, notifyService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	logg.Info(logg.WithField(ctx, "poll_interval", cfg.Jobs.PollInterval.String()), "starting job worker")

	if err := jobService.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
}
