package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/handlers"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/internal/ratelimit"
	"github.com/habitquest/backend/pkg/config"
	"github.com/habitquest/backend/pkg/logger"
	"github.com/habitquest/backend/pkg/security/auth"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       Pinger
	Cache    *cache.Client
	Limiter  *ratelimit.Limiter
	Tokens   *auth.JWTService
	Habits   habits.Service
	Rewards  gamification.Service
	Users    user.Service
	Location *time.Location
}

// NewRouter builds the gin engine with global middleware and every route
// group registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORS.AllowedOrigins,
		AllowMethods:     d.Config.CORS.AllowedMethods,
		AllowHeaders:     d.Config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: d.Config.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := middleware.NewAuthMiddleware(d.Tokens, d.Logger)
	validation := middleware.NewValidationMiddleware(d.Logger)

	SetupHealthRoutes(router, d.DB, d.Cache)

	NewHabitsRoutes(handlers.NewHabitsHandler(d.Habits, d.Location, d.Logger), authMiddleware, d.Limiter).
		RegisterRoutes(router, validation)
	NewXPRoutes(handlers.NewXPHandler(d.Rewards, d.Logger), authMiddleware, d.Limiter).
		RegisterRoutes(router)
	NewUserRoutes(handlers.NewUserHandler(d.Users, d.Config.App.ProfileBaseURL, d.Logger), authMiddleware, d.Limiter, d.Cache).
		RegisterRoutes(router, validation)

	return router
}
