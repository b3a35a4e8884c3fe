package controllers

import (
	"context"
	"net/http"

	"github.com/procurehub/backend/api/responses"
	"github.com/procurehub/backend/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ProcureHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// Pinger is a connectivity probe for a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthReady(cfg *config.Config, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ProcureHub-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		for name, probe := range map[string]Pinger{"database": db, "redis": cache} {
			if probe == nil {
				checks[name] = "skipped"
				continue
			}
			if err := probe.Ping(r.Context()); err != nil {
				checks[name] = "down"
				healthy = false
				continue
			}
			checks[name] = "up"
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
