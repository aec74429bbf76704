package controllers

import (
	"context"
	"net/http"

	"github.com/dekorekillian57-star/spendo/api/responses"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const envHeader = "X-Spendo-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and redis answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		for name, p := range map[string]pinger{"database": dbPinger, "redis": redisPinger} {
			if p == nil {
				checks[name] = "not configured"
				failed = pkgerrors.New(pkgerrors.CodeDependency, name+" not configured")
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "unreachable"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unreachable")
			}
		}
		if failed != nil {
			if logg != nil {
				logg.Error(r.Context(), "readiness check failed", failed)
			}
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": checks})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
