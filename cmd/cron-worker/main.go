package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openannounce/announce-backend/internal/cron"
	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/config"
	"github.com/openannounce/announce-backend/pkg/db"
	"github.com/openannounce/announce-backend/pkg/logger"
	"github.com/openannounce/announce-backend/pkg/metrics"
	"github.com/openannounce/announce-backend/pkg/migrate"
	"github.com/openannounce/announce-backend/pkg/pubsub"
	"github.com/openannounce/announce-backend/pkg/redis"
	"github.com/openannounce/announce-backend/pkg/storage/gcs"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer gcsClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	mediaRepo := media.NewRepository(dbClient.DB())

	eventPublisher, err := media.NewEventPublisher(pubsubClient.MediaDeletionPublisher(), logg)
	requireResource(ctx, logg, "event publisher", err)

	sweepJob, err := cron.NewStaleMediaSweepJob(cron.StaleMediaSweepJobParams{
		Logger:        logg,
		MediaRepo:     mediaRepo,
		Store:         gcsClient,
		RetentionDays: cfg.Cron.MediaRetentionDays,
	})
	requireResource(ctx, logg, "stale media sweep job", err)

	retryJob, err := cron.NewDeletionRetryJob(cron.DeletionRetryJobParams{
		Logger:        logg,
		MediaRepo:     mediaRepo,
		Publisher:     eventPublisher,
		RetentionDays: cfg.Cron.DeletionRetentionDays,
	})
	requireResource(ctx, logg, "deletion retry job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker-"+cfg.App.Env), cfg.Cron.LockTTL)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, retryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
