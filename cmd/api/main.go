package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openannounce/announce-backend/api/routes"
	"github.com/openannounce/announce-backend/internal/announcements"
	"github.com/openannounce/announce-backend/internal/collection"
	"github.com/openannounce/announce-backend/internal/ingest"
	"github.com/openannounce/announce-backend/internal/ingest/convertsvc"
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

	convertClient, err := convertsvc.New(cfg.Convert, logg)
	requireResource(ctx, logg, "convert service client", err)

	converter, err := ingest.NewConverter(convertClient, logg)
	requireResource(ctx, logg, "converter", err)

	uploader, err := ingest.NewUploader(gcsClient, cfg.GCS.ObjectPrefix, cfg.GCS.CacheControl, logg)
	requireResource(ctx, logg, "uploader", err)

	progressStore, err := ingest.NewProgressStore(redisClient, cfg.Ingest.ProgressTTL, logg)
	requireResource(ctx, logg, "progress store", err)

	ingestMetrics := metrics.NewIngestMetrics(prometheus.DefaultRegisterer)

	orchestrator, err := ingest.NewOrchestrator(converter, uploader, progressStore, ingestMetrics, logg, cfg.Ingest.DedupEnabled)
	requireResource(ctx, logg, "orchestrator", err)

	mediaRepo := media.NewRepository(dbClient.DB())
	announcementRepo := announcements.NewRepository(dbClient.DB())

	collectionService, err := collection.NewService(collection.NewRepository(dbClient.DB()), cfg.Ingest.CollectionMaxItems)
	requireResource(ctx, logg, "collection service", err)

	eventPublisher, err := media.NewEventPublisher(pubsubClient.MediaDeletionPublisher(), logg)
	requireResource(ctx, logg, "event publisher", err)

	mediaService, err := media.NewService(orchestrator, mediaRepo, collectionService, announcementRepo, eventPublisher, progressStore, logg)
	requireResource(ctx, logg, "media service", err)

	announcementService, err := announcements.NewService(announcementRepo, collectionService)
	requireResource(ctx, logg, "announcement service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:            dbClient,
			Redis:         redisClient,
			GCS:           gcsClient,
			PubSub:        pubsubClient,
			Announcements: announcementService,
			Media:         mediaService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
