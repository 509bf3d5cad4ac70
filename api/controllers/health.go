package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/giftdrop-backend/api/responses"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

const envHeader = "X-GiftDrop-Env"

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		statuses := map[string]string{"status": "ready"}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				logg.Error(r.Context(), "readiness check failed for "+name, err)
				statuses[name] = "down"
				ready = false
				continue
			}
			statuses[name] = "up"
		}
		if !ready {
			statuses["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, statuses)
			return
		}
		responses.WriteSuccess(w, statuses)
	}
}
