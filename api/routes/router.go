package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openannounce/announce-backend/api/controllers"
	"github.com/openannounce/announce-backend/api/middleware"
	"github.com/openannounce/announce-backend/internal/announcements"
	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/config"
	"github.com/openannounce/announce-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil for
// deployments that do not wire the matching dependency.
type Deps struct {
	DB     controllers.Pinger
	Redis  controllers.Pinger
	GCS    controllers.Pinger
	PubSub controllers.Pinger

	Announcements announcements.Service
	Media         media.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: deps.DB},
			controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis},
			controllers.ReadinessCheck{Name: "gcs", Pinger: deps.GCS},
			controllers.ReadinessCheck{Name: "pubsub", Pinger: deps.PubSub},
		))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.Ping())

		r.Route("/announcements", func(r chi.Router) {
			r.Post("/", controllers.CreateAnnouncement(deps.Announcements, logg))
			r.Get("/", controllers.ListAnnouncements(deps.Announcements, logg))

			r.Route("/{announcementID}", func(r chi.Router) {
				r.Get("/", controllers.GetAnnouncement(deps.Announcements, logg))
				r.Patch("/", controllers.UpdateAnnouncement(deps.Announcements, logg))
				r.Delete("/", controllers.DeleteAnnouncement(deps.Announcements, logg))

				r.Route("/media", func(r chi.Router) {
					r.Post("/", controllers.UploadMedia(deps.Media, cfg.Ingest, logg))
					r.Put("/order", controllers.ReorderMedia(deps.Media, logg))
					r.Delete("/{index}", controllers.RemoveMedia(deps.Media, logg))
				})
			})
		})

		r.Get("/uploads/{batchID}/progress", controllers.UploadProgress(deps.Media, logg))
	})

	return r
}
