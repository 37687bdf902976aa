package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/askgov/askgov/internal/log"
)

// health is a liveness probe for container orchestrators.
// Returns 200 OK with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the storage dependencies answer pings.
// A nil pool or client is skipped so partial deployments can still
// come up.
func readiness(pool *pgxpool.Pool, rdb *redis.Client, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				logger.Error("readiness check failed", "dependency", "postgres", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "database not ready", logger)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				logger.Error("readiness check failed", "dependency", "redis", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "conversation store not ready", logger)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	}
}
