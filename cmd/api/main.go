package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/habitquest/backend/internal/api/routes"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/migrations"
	"github.com/habitquest/backend/internal/infrastructure/scheduler"
	"github.com/habitquest/backend/internal/ratelimit"
	"github.com/habitquest/backend/pkg/config"
	"github.com/habitquest/backend/pkg/logger"
	"github.com/habitquest/backend/pkg/security/auth"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// @title           HabitQuest API
// @version         1.0
// @description     Habit tracking with streaks, XP and levels.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer logr.Sync()

	loc := cfg.App.Location()
	logr.Info("Starting HabitQuest API",
		zap.String("mode", cfg.Server.Mode),
		zap.String("timezone", loc.String()),
	)

	db, err := connection.NewDatabase(cfg)
	if err != nil {
		logr.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.AutoMigrate(db, logr.Logger); err != nil {
		logr.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional; every cache call degrades to a miss when it is down
	cacheClient := cache.New(cache.NewConfigFromEnv(cfg), logr)
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cacheClient.Connect(connectCtx); err != nil {
		logr.Warn("Redis unavailable, continuing without cache", zap.Error(err))
	}
	cancelConnect()
	defer cacheClient.Close()

	rewards := gamification.NewService(gamification.NewRepository(db), cacheClient, logr)
	habitsService := habits.NewService(habits.NewRepository(db), rewards, cacheClient, logr, loc)
	userService := user.NewService(user.NewRepository(db), cfg.App.ProfileBaseURL, logr)

	limiter := ratelimit.New(cacheClient, cfg.RateLimits, logr)
	tokens := auth.NewJWTService(cfg)

	var habitScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		habitScheduler = scheduler.NewScheduler(habitsService, cfg.Scheduler.StreakRefreshSpec, loc, logr)
		if err := habitScheduler.Start(); err != nil {
			logr.Fatal("Failed to start habit scheduler", zap.Error(err))
		}
	}

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	go logHabitEvents(eventsCtx, cacheClient, logr)

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logr,
		DB:       db,
		Cache:    cacheClient,
		Limiter:  limiter,
		Tokens:   tokens,
		Habits:   habitsService,
		Rewards:  rewards,
		Users:    userService,
		Location: loc,
	})

	for _, route := range router.Routes() {
		logr.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logr.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("Shutting down server...")

	// Shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error("Server forced to shutdown", zap.Error(err))
	}
	if habitScheduler != nil {
		habitScheduler.Stop(ctx)
	}
	stopEvents()

	logr.Info("Server exiting")
}

// logHabitEvents tails the habit event channel into the log, resubscribing
// whenever Redis drops.
func logHabitEvents(ctx context.Context, c *cache.Client, logr *logger.Logger) {
	err := c.Listen(ctx, habits.EventChannel, 0, func(payload []byte) {
		var event habits.HabitEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logr.Warn("Malformed habit event", zap.Error(err))
			return
		}
		logr.Debug("Habit event",
			zap.String("action", event.Action),
			zap.String("user_id", event.UserID.String()),
			zap.String("habit_id", event.HabitID.String()),
		)
	})
	if errors.Is(err, cache.ErrCacheDisabled) {
		logr.Info("Cache disabled, habit events are not tailed")
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logr.Warn("Habit event subscription ended", zap.Error(err))
	}
}
