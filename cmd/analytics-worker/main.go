package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/clips-backend/internal/analytics"
	"github.com/angelmondragon/clips-backend/pkg/bigquery"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/instance"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/metrics"
	"github.com/angelmondragon/clips-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/clips-backend/pkg/pubsub"
	"github.com/angelmondragon/clips-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

var errNoSubscription = errors.New("clips subscription not configured")

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.ForApp(serviceKind, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"workerId":    instance.ID(serviceKind),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
}

// stage names the resource a bootstrap step failed on.
type stage struct {
	name string
	err  error
}

func (s stage) Error() string { return "resource not working: " + s.name + ": " + s.err.Error() }
func (s stage) Unwrap() error { return s.err }

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return stage{"redis", err}
	}
	defer closeWith(ctx, logg, "redis client", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return stage{"pubsub", err}
	}
	defer closeWith(ctx, logg, "pubsub client", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg,
		analytics.ClipEventsTable(cfg.BigQuery.ClipEventsTable))
	if err != nil {
		return stage{"bigquery", err}
	}
	defer closeWith(ctx, logg, "bigquery client", bqClient.Close)

	subscription := pubsubClient.ClipsSubscription()
	if subscription == nil {
		return stage{"subscription", errNoSubscription}
	}
	guard, err := idempotency.NewGuard(redisClient, cfg.Eventing.ProcessedTTL)
	if err != nil {
		return stage{"idempotency guard", err}
	}
	writer, err := analytics.NewWriter(bqClient, cfg.BigQuery.ClipEventsTable, analytics.RetryPolicy{})
	if err != nil {
		return stage{"clip events writer", err}
	}
	service, err := analytics.NewService(subscription, writer, guard, logg)
	if err != nil {
		return stage{"analytics service", err}
	}

	metricsServer, err := metrics.Listen(ctx, cfg.Eventing.MetricsAddr, logg)
	if err != nil {
		return stage{"metrics listener", err}
	}
	defer metricsServer.Shutdown(ctx)

	logg.Info(ctx, "analytics worker ready")
	return service.Run(ctx)
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "failed to close "+name, err)
	}
}
