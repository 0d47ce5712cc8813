package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/internal/cron"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/internal/users"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/instance"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/metrics"
	"github.com/angelmondragon/clips-backend/pkg/migrate"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.ForApp("cron-worker", cfg.App)

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockPrefix(cfg.App.Env))
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	catalogService, err := catalog.NewService(catalog.ServiceParams{Repo: catalog.NewRepository(conn)})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	usageService, err := usage.NewService(usage.ServiceParams{Repo: usage.NewRepository(conn)})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:          ledger.NewRepository(conn),
		Users:         users.NewRepository(conn),
		Plans:         catalogService,
		Usage:         usageService,
		Outbox:        outbox.NewService(outboxRepo, logg),
		Tx:            dbClient,
		Logger:        logg,
		PaymentAnchor: cfg.Ledger.PaymentAnchor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewClipExpiryJob(cron.ClipExpiryJobParams{
		Logger:    logg,
		Expirer:   ledgerService,
		BatchSize: cfg.Cron.ExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create clip expiry job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:         logg,
		Repository:     outboxRepo,
		Retention:      cfg.Cron.OutboxRetention,
		ParkedAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	schedule := cron.NewSchedule().
		Every(cfg.Cron.Interval, expiryJob).
		Every(cfg.Cron.RetentionInterval, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Schedule: schedule,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"workerId":    instance.ID(cfg.Service.Kind),
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer, err := metrics.Listen(ctx, cfg.Cron.MetricsAddr, logg)
	if err != nil {
		logg.Error(ctx, "failed to start metrics listener", err)
		os.Exit(1)
	}
	defer metricsServer.Shutdown(ctx)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockPrefix(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
