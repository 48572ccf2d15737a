package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/handlers"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/ratelimit"
)

type XPRoutes struct {
	handler *handlers.XPHandler
	auth    gin.HandlerFunc
	limiter *ratelimit.Limiter
}

func NewXPRoutes(handler *handlers.XPHandler, auth gin.HandlerFunc, limiter *ratelimit.Limiter) *XPRoutes {
	return &XPRoutes{handler: handler, auth: auth, limiter: limiter}
}

func (r *XPRoutes) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(r.auth)

	api.GET("/xp", middleware.RateLimit(r.limiter, ratelimit.EndpointAPI), r.handler.GetProfile)
	api.GET("/leaderboard", middleware.RateLimit(r.limiter, ratelimit.EndpointGetLeaderboard), r.handler.Leaderboard)
}
