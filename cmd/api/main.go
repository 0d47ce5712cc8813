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

	"github.com/angelmondragon/clips-backend/api/routes"
	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/offers"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/internal/users"
	"github.com/angelmondragon/clips-backend/pkg/auth"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("api", cfg.App)

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

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

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
		Repo:          ledgerRepo,
		Users:         userRepo,
		Plans:         catalogService,
		Usage:         usageService,
		Outbox:        outboxService,
		Tx:            dbClient,
		Logger:        logg,
		PaymentAnchor: cfg.Ledger.PaymentAnchor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	consumptionService, err := consumption.NewService(consumption.ServiceParams{
		Ledger:  ledgerRepo,
		Users:   userRepo,
		Offers:  offers.NewRepository(conn),
		Usage:   usageService,
		Outbox:  outboxService,
		Tx:      dbClient,
		Metrics: metrics.NewClipMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create consumption service", err)
		os.Exit(1)
	}

	if err := dbClient.RegisterMetrics(prometheus.DefaultRegisterer, "clips"); err != nil {
		logg.Warn(context.Background(), "database pool metrics not registered: "+err.Error())
	}

	tokens, err := auth.NewTokens(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to configure token verification", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("api"),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, tokens, dbClient, redisClient, catalogService, ledgerService, usageService, consumptionService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server drained")
	}
}
