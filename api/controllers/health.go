package controllers

import (
	"context"
	"net/http"

	"github.com/digikart/digikart-backend/api/responses"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

// Pinger is the dependency health surface the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db     Pinger
	redis  Pinger
	logger *logger.Logger
}

func NewHealthController(db, redis Pinger, logg *logger.Logger) *HealthController {
	return &HealthController{db: db, redis: redis, logger: logg}
}

// Live reports process liveness only.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Ready reports whether the service can actually take traffic.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true

	if err := c.db.Ping(r.Context()); err != nil {
		checks["database"] = "unreachable"
		healthy = false
		c.logger.Error(r.Context(), "readiness: database ping failed", err)
	}
	if err := c.redis.Ping(r.Context()); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
		c.logger.Error(r.Context(), "readiness: redis ping failed", err)
	}

	if !healthy {
		responses.WriteError(r.Context(), w, c.logger,
			pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
		return
	}
	responses.WriteSuccess(w, checks)
}
