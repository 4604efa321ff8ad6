package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomontes/vendortax-backend/api/routes"
	"github.com/dariomontes/vendortax-backend/internal/allocate"
	"github.com/dariomontes/vendortax-backend/internal/nexus"
	"github.com/dariomontes/vendortax-backend/internal/orders"
	"github.com/dariomontes/vendortax-backend/internal/refunds"
	"github.com/dariomontes/vendortax-backend/internal/settings"
	"github.com/dariomontes/vendortax-backend/internal/taxcalc"
	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db"
	"github.com/dariomontes/vendortax-backend/pkg/env"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/migrate"
	"github.com/dariomontes/vendortax-backend/pkg/redis"
	"github.com/dariomontes/vendortax-backend/pkg/taxprovider"
	"github.com/dariomontes/vendortax-backend/pkg/vendordir"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	settingsService, err := settings.NewService(dbClient.DB())
	requireResource(ctx, logg, "settings service", err)

	providerClient, err := taxprovider.NewClient(cfg.TaxProvider)
	requireResource(ctx, logg, "tax provider client", err)

	directory := vendordir.NewGormDirectory(dbClient.DB())
	resolver, err := nexus.NewResolver(directory, settingsService, logg)
	requireResource(ctx, logg, "nexus resolver", err)

	taxCache, err := taxcalc.NewCache(redisClient, cfg.Tax.CacheTTL, logg)
	requireResource(ctx, logg, "tax cache", err)

	taxService, err := taxcalc.NewService(providerClient, resolver, taxCache, logg)
	requireResource(ctx, logg, "tax computation service", err)

	allocator, err := allocate.NewService(logg)
	requireResource(ctx, logg, "tax allocator", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	orderTaxService, err := orders.NewService(ordersRepo, settingsService, taxService, allocator, logg)
	requireResource(ctx, logg, "order tax service", err)

	refundsRepo := refunds.NewRepository(dbClient.DB())
	dispatcher, err := refunds.NewDispatcher(logg)
	requireResource(ctx, logg, "refund dispatcher", err)

	replicator, err := refunds.NewReplicator(ordersRepo, refundsRepo, dispatcher, logg)
	requireResource(ctx, logg, "refund replicator", err)
	dispatcher.Register(replicator)

	refundService, err := refunds.NewService(ordersRepo, refundsRepo, dispatcher, logg)
	requireResource(ctx, logg, "refund service", err)

	registry := prometheus.NewRegistry()

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DBPinger:      dbClient,
		RedisPinger:   redisClient,
		OrderTax:      orderTaxService,
		Refunds:       refundService,
		MetricsGather: registry,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-runCtx.Done()
		_ = server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server shut down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
