package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/caseflow-backend/api/routes"
	"github.com/angelmondragon/caseflow-backend/internal/buyerlinks"
	"github.com/angelmondragon/caseflow-backend/internal/catalog"
	"github.com/angelmondragon/caseflow-backend/internal/orders"
	"github.com/angelmondragon/caseflow-backend/internal/reporting"
	"github.com/angelmondragon/caseflow-backend/pkg/config"
	"github.com/angelmondragon/caseflow-backend/pkg/db"
	"github.com/angelmondragon/caseflow-backend/pkg/instance"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
	"github.com/angelmondragon/caseflow-backend/pkg/metrics"
	"github.com/angelmondragon/caseflow-backend/pkg/migrate"
	"github.com/angelmondragon/caseflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	caps, err := migrate.VerifySchema(ctx, cfg, logg, dbClient.DB())
	if err != nil {
		logg.Error(ctx, "schema contract check failed", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	catalogRepo := catalog.NewRepository(dbClient.DB())
	snapshots, err := catalog.NewSnapshotLoader(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create catalog loader", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:          orders.NewRepository(dbClient.DB()),
		Links:         buyerlinks.NewRepository(dbClient.DB()),
		Catalog:       snapshots,
		Logger:        logg,
		Metrics:       metrics.NewOrderMetrics(registry),
		WriteMetadata: caps.OrderMetadata,
		MaxLines:      cfg.Orders.MaxLines,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	reportingSvc, err := reporting.NewService(
		reporting.NewRepository(dbClient.DB()),
		catalogRepo,
		logg,
		metrics.NewReportingMetrics(registry),
	)
	if err != nil {
		logg.Error(ctx, "failed to create reporting service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, reportingSvc, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(serverCtx, "shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}()

	logg.Info(serverCtx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
