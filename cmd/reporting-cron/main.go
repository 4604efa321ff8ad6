package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomontes/vendortax-backend/internal/cron"
	"github.com/dariomontes/vendortax-backend/internal/reporting"
	"github.com/dariomontes/vendortax-backend/internal/settings"
	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/metrics"
	"github.com/dariomontes/vendortax-backend/pkg/migrate"
	"github.com/dariomontes/vendortax-backend/pkg/pubsub"
	"github.com/dariomontes/vendortax-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "reporting-cron"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "reporting-cron"

	logg = logger.New(logger.Options{
		ServiceName: "reporting-cron",
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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	settingsService, err := settings.NewService(dbClient.DB())
	requireResource(ctx, logg, "settings service", err)

	publisher, err := reporting.NewPublisher(pubsubClient.ReportingPublisher())
	requireResource(ctx, logg, "report job publisher", err)

	reportingRepo := reporting.NewRepository(dbClient.DB())
	job, err := reporting.NewJob(reportingRepo, publisher, settingsService, cfg.Reporting, logg)
	requireResource(ctx, logg, "reporting enumeration job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(reporting.JobName), 0)
	requireResource(ctx, logg, "cron lock", err)

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reporting.CronInterval,
		Jobs:     []cron.Job{job},
	})
	requireResource(ctx, logg, "cron scheduler", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting reporting cron")

	if err := scheduler.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "reporting cron stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "reporting cron shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
