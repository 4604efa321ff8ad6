package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dariomontes/vendortax-backend/api/responses"
	"github.com/dariomontes/vendortax-backend/pkg/db"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

const healthTimeout = 2 * time.Second

// Healthz reports readiness: the process is up and its datastores answer.
func Healthz(dbP db.Pinger, redisP db.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["db"] = err.Error()
				healthy = false
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ok", "checks": checks})
	}
}
