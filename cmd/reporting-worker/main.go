package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomontes/vendortax-backend/internal/orders"
	"github.com/dariomontes/vendortax-backend/internal/reporting"
	"github.com/dariomontes/vendortax-backend/internal/settings"
	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/metrics"
	"github.com/dariomontes/vendortax-backend/pkg/migrate"
	"github.com/dariomontes/vendortax-backend/pkg/pubsub"
	"github.com/dariomontes/vendortax-backend/pkg/taxprovider"
	"github.com/dariomontes/vendortax-backend/pkg/vendordir"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "reporting-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "reporting-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reporting-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	settingsService, err := settings.NewService(dbClient.DB())
	requireResource(ctx, logg, "settings service", err)

	providerClient, err := taxprovider.NewClient(cfg.TaxProvider)
	requireResource(ctx, logg, "tax provider client", err)

	worker, err := reporting.NewWorker(
		reporting.NewRepository(dbClient.DB()),
		orders.NewRepository(dbClient.DB()),
		vendordir.NewGormDirectory(dbClient.DB()),
		providerClient,
		settingsService,
		metrics.NewReportingMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	requireResource(ctx, logg, "reporting worker", err)

	subscription := pubsubClient.ReportingSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "reporting subscription", errors.New("subscription not configured"))
	}

	consumer, err := reporting.NewConsumer(subscription, worker, logg)
	requireResource(ctx, logg, "reporting consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "reporting worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "reporting worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "reporting worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
