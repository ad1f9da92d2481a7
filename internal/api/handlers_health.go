package api

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Time   string `json:"time" example:"2025-10-22T12:00:00Z"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Status string `json:"status" example:"ready"`
}

// HandleHealth godoc
// @Summary Health check (liveness)
// @Description Always returns 200 with the current server time if the service is running.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse "Service alive"
// @Router /health [get]
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HandleReadyz godoc
// @Summary Readiness check
// @Description Checks connectivity to the optional Redis rate cache. Returns 200 when no cache is configured.
// @Tags health
// @Produce json
// @Success 200 {object} ReadyResponse "All dependencies ready"
// @Failure 503 {object} ErrorResponse "Cache unavailable"
// @Router /readyz [get]
func HandleReadyz(cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache != nil {
			if err := cache.Ping(r.Context()).Err(); err != nil {
				writeError(w, http.StatusServiceUnavailable, "cache_unavailable", "Cache not ready")
				return
			}
		}

		writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
	}
}
