package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/api/handlers"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/ratelimit"
)

type HabitsRoutes struct {
	handler *handlers.HabitsHandler
	auth    gin.HandlerFunc
	limiter *ratelimit.Limiter
}

func NewHabitsRoutes(handler *handlers.HabitsHandler, auth gin.HandlerFunc, limiter *ratelimit.Limiter) *HabitsRoutes {
	return &HabitsRoutes{
		handler: handler,
		auth:    auth,
		limiter: limiter,
	}
}

// RegisterRoutes registers all habit-related routes
func (h *HabitsRoutes) RegisterRoutes(router *gin.Engine, validation *middleware.ValidationMiddleware) {
	habits := router.Group("/api/habits")
	habits.Use(h.auth, middleware.RateLimit(h.limiter, ratelimit.EndpointAPI))

	// Specific routes first
	habits.GET("", h.handler.ListHabits)
	habits.POST("",
		middleware.RateLimit(h.limiter, ratelimit.EndpointCreateHabit),
		validation.ValidateRequest(&dto.CreateHabitRequest{}),
		h.handler.CreateHabit)
	habits.GET("/heatmap", gzip.Gzip(gzip.DefaultCompression), h.handler.GetHeatmap)
	habits.GET("/activity", h.handler.ListActivity)

	// Operations on a single habit
	habits.GET("/:id", h.handler.GetHabit)
	habits.PUT("/:id",
		middleware.RateLimit(h.limiter, ratelimit.EndpointUpdateHabit),
		validation.ValidateRequest(&dto.UpdateHabitRequest{}),
		h.handler.UpdateHabit)
	habits.DELETE("/:id", h.handler.DeleteHabit)
	habits.POST("/:id/complete",
		middleware.RateLimit(h.limiter, ratelimit.EndpointCompleteHabit),
		h.handler.CompleteHabit)
	habits.DELETE("/:id/complete", h.handler.UncompleteHabit)
	habits.GET("/:id/streak-history", h.handler.GetStreakHistory)

	stats := router.Group("/api/stats")
	stats.Use(h.auth, middleware.RateLimit(h.limiter, ratelimit.EndpointAPI))
	stats.GET("", gzip.Gzip(gzip.DefaultCompression), h.handler.GetStats)
}
