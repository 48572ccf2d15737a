package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/api/handlers"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/internal/ratelimit"
)

type UserRoutes struct {
	handler *handlers.UserHandler
	auth    gin.HandlerFunc
	limiter *ratelimit.Limiter
	pages   *middleware.CacheMiddleware
}

func NewUserRoutes(handler *handlers.UserHandler, auth gin.HandlerFunc, limiter *ratelimit.Limiter, c *cache.Client) *UserRoutes {
	return &UserRoutes{
		handler: handler,
		auth:    auth,
		limiter: limiter,
		pages:   middleware.NewCacheMiddleware(c, "page", cache.TTLMedium),
	}
}

func (r *UserRoutes) RegisterRoutes(router *gin.Engine, validation *middleware.ValidationMiddleware) {
	users := router.Group("/api/users")
	users.Use(r.auth, middleware.RateLimit(r.limiter, ratelimit.EndpointAPI))

	users.GET("/me", r.handler.GetMe)
	users.GET("/username/check", r.handler.CheckUsername)
	users.PUT("/username",
		validation.ValidateRequest(&dto.SetUsernameRequest{}),
		r.pages.CacheInvalidate("api/profiles/*"),
		r.handler.SetUsername)

	// Public profiles are shared between viewers, so they are cached unscoped.
	profiles := router.Group("/api/profiles")
	profiles.Use(middleware.RateLimit(r.limiter, ratelimit.EndpointAPI))
	profiles.GET("/:username", r.pages.CacheResponse(), r.handler.GetProfile)
}
