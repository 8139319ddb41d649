package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/openannounce/announce-backend/api/responses"
	"github.com/openannounce/announce-backend/pkg/config"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const envHeader = "X-Announce-Env"

const readinessTimeout = 5 * time.Second

// Pinger is the readiness hook every wired dependency client exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency the ready probe must reach.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency and reports the first failure.
// Nil pingers are skipped so partial deployments (worker-only, no redis)
// can reuse the handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := map[string]string{}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" not ready").
						WithDetails(map[string]string{"dependency": check.Name}))
				return
			}
			results[check.Name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
