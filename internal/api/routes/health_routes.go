package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp" example:"2025-04-17T02:00:00Z"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Pinger is satisfied by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupHealthRoutes registers liveness, readiness, cache status and metrics
// endpoints. None of them require authentication.
func SetupHealthRoutes(router *gin.Engine, db Pinger, c *cache.Client) {
	// @Summary Health check endpoint
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health [get]
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	// @Summary Readiness check endpoint
	// @Description Reports 503 when the database is unreachable. A down cache
	// @Description only degrades the status since callers fail open.
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health/ready [get]
	router.GET("/health/ready", func(ctx *gin.Context) {
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ready", Timestamp: time.Now().UTC(), Checks: map[string]string{}}
		code := http.StatusOK

		if db != nil {
			if err := db.Ping(reqCtx); err != nil {
				resp.Checks["database"] = err.Error()
				resp.Status = "unavailable"
				code = http.StatusServiceUnavailable
			} else {
				resp.Checks["database"] = "ok"
			}
		}

		if c.Enabled() {
			resp.Checks["cache"] = "ok"
		} else {
			resp.Checks["cache"] = "disabled"
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
		}
		ctx.JSON(code, resp)
	})

	// @Summary Cache status and pool statistics
	// @Tags health
	// @Produce json
	// @Router /health/cache [get]
	router.GET("/health/cache", func(ctx *gin.Context) {
		stats := c.Stats()
		if err := c.HealthCheck(ctx.Request.Context()); err != nil {
			stats["error"] = err.Error()
		}
		ctx.JSON(http.StatusOK, stats)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
