package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/habitquest/backend/pkg/logger"
)

type UserHandler struct {
	service        user.Service
	profileBaseURL string
	log            *logger.Logger
}

func NewUserHandler(service user.Service, profileBaseURL string, log *logger.Logger) *UserHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &UserHandler{service: service, profileBaseURL: profileBaseURL, log: log.Named("user_handler")}
}

// GetMe godoc
// @Summary The caller's profile, created on first call
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse
// @Router /api/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.service.EnsureUser(c.Request.Context(), userID, middleware.GetEmail(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": UserToResponse(u, h.profileBaseURL)})
}

// CheckUsername godoc
// @Summary Check whether a username can be claimed
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username query string true "Candidate username"
// @Success 200 {object} dto.UsernameCheckResponse
// @Router /api/users/username/check [get]
func (h *UserHandler) CheckUsername(c *gin.Context) {
	check := h.service.CheckUsername(c.Request.Context(), c.Query("username"))
	c.JSON(http.StatusOK, gin.H{"data": dto.UsernameCheckResponse{
		Username:    check.Username,
		Valid:       check.Valid,
		Error:       check.Error,
		Suggestions: check.Suggestions,
	}})
}

// SetUsername godoc
// @Summary Claim a username
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SetUsernameRequest true "Username"
// @Success 200 {object} dto.ProfileResponse
// @Failure 422 {object} dto.UsernameCheckResponse "Username rejected"
// @Router /api/users/username [put]
func (h *UserHandler) SetUsername(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.SetUsernameRequest](c)
	if !ok {
		return
	}

	profile, res, err := h.service.SetUsername(c.Request.Context(), userID, req.Username)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !res.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": res.Error,
			"data":  dto.UsernameCheckResponse{Username: req.Username, Error: res.Error},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ProfileToResponse(profile)})
}

// GetProfile godoc
// @Summary Public profile by username
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} dto.ProfileResponse
// @Router /api/profiles/{username} [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ProfileToResponse(profile)})
}
