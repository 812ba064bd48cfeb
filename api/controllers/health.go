package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/sponsorlens-backend/api/responses"
	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a pinger checked by readiness. Optional dependencies
// report their failure without failing the probe.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SponsorLens-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each configured dependency.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SponsorLens-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "unavailable"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": dep.Name, "error": err.Error()}), "readiness check failed")
				}
				if !dep.Optional {
					failed = append(failed, dep.Name)
				}
				continue
			}
			checks[dep.Name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"failed": failed, "checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
