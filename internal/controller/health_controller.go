package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthController exposes liveness and readiness probes.
type HealthController struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

// NewHealthController creates a health controller. redis may be nil when
// distributed locking is disabled.
func NewHealthController(pool *pgxpool.Pool, redisClient *redis.Client) *HealthController {
	return &HealthController{pool: pool, redis: redisClient}
}

// Health handles GET /health.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Live handles GET /health/live.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready handles GET /health/ready, checking backing services.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if c.pool != nil {
		if err := c.pool.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}
