package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/attos/attos-backend/api/responses"
	"github.com/attos/attos-backend/pkg/config"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

// ReadyFunc reports whether backing dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attos-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, ready ReadyFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attos-Env", cfg.App.Env)
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependencies unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
