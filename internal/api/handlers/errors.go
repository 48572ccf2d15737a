package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, habits.ErrHabitNotFound), errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, habits.ErrInvalidInput), errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, gamification.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, habits.ErrHabitAlreadyExists), errors.Is(err, user.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, habits.ErrNotCompleted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal errors are logged and their
// text withheld from the client.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
