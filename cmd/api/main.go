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

	"github.com/paylivhq/payliv-backend/api/routes"
	"github.com/paylivhq/payliv-backend/internal/assets"
	"github.com/paylivhq/payliv-backend/internal/dropship"
	"github.com/paylivhq/payliv-backend/internal/finalize"
	"github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/internal/payouts"
	"github.com/paylivhq/payliv-backend/internal/webhooks"
	"github.com/paylivhq/payliv-backend/internal/webhooks/cinetpay"
	"github.com/paylivhq/payliv-backend/internal/webhooks/paydunya"
	"github.com/paylivhq/payliv-backend/pkg/config"
	"github.com/paylivhq/payliv-backend/pkg/db"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/metrics"
	"github.com/paylivhq/payliv-backend/pkg/migrate"
	"github.com/paylivhq/payliv-backend/pkg/redis"
	"github.com/paylivhq/payliv-backend/pkg/signing"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notifySvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}
	directory := notifications.NewDirectory(dbClient.DB())

	signer, err := signing.New(cfg.Assets.SigningSecret, cfg.Assets.DownloadURLExpiry)
	if err != nil {
		logg.Error(context.Background(), "failed to create download signer", err)
		os.Exit(1)
	}
	assetsSvc, err := assets.NewService(assets.NewRepository(dbClient.DB()), signer, cfg.Assets, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create asset service", err)
		os.Exit(1)
	}

	dropshipSvc, err := dropship.NewService(dropship.NewRepository(dbClient.DB()), dbClient, notifySvc, directory, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dropship service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	finalizer, err := finalize.NewService(
		dbClient,
		orderRepo,
		ledgerSvc,
		dropship.NewRepository(dbClient.DB()),
		assets.NewRepository(dbClient.DB()),
		notifySvc,
		directory,
		logg,
		int64(cfg.Ledger.PlatformFeeBPS),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create finalization service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orderRepo, dbClient, finalizer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	payoutsSvc, err := payouts.NewService(
		payouts.NewRepository(dbClient.DB()),
		dbClient,
		ledgerSvc,
		notifySvc,
		directory,
		pipelineMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	guard, err := webhooks.NewGuard(redisClient, cfg.Payments.EventDedupTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookSvc, err := webhooks.NewService(webhooks.NewRepository(dbClient.DB()), guard, ordersSvc, pipelineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	paydunyaParser, err := paydunya.NewParser(cfg.Payments.PaydunyaSecret)
	if err != nil {
		logg.Error(context.Background(), "failed to create paydunya parser", err)
		os.Exit(1)
	}
	cinetpayParser, err := cinetpay.NewParser(cfg.Payments.CinetpaySecret, cfg.Payments.CinetpaySiteID)
	if err != nil {
		logg.Error(context.Background(), "failed to create cinetpay parser", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			webhookSvc,
			paydunyaParser,
			cinetpayParser,
			ordersSvc,
			finalizer,
			dropshipSvc,
			payoutsSvc,
			ledgerSvc,
			assetsSvc,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
