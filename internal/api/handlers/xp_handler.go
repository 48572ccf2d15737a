package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/pkg/logger"
)

type XPHandler struct {
	service gamification.Service
	log     *logger.Logger
}

func NewXPHandler(service gamification.Service, log *logger.Logger) *XPHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &XPHandler{service: service, log: log.Named("xp_handler")}
}

// GetProfile godoc
// @Summary The caller's XP, level and progress
// @Tags xp
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.XPProfileResponse
// @Router /api/xp [get]
func (h *XPHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": XPProfileToResponse(profile)})
}

// Leaderboard godoc
// @Summary Top users by total XP
// @Tags xp
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Entries to return (max 100)"
// @Success 200 {object} dto.LeaderboardResponse
// @Router /api/leaderboard [get]
func (h *XPHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	me, _ := middleware.GetUserID(c)
	resp := dto.LeaderboardResponse{Entries: make([]dto.LeaderboardEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.LeaderboardEntryResponse{
			Rank:        e.Rank,
			UserID:      e.UserID,
			Username:    e.Username,
			AvatarColor: e.AvatarColor,
			TotalXP:     e.TotalXP,
			Level:       e.Level,
			Title:       gamification.LevelTitle(e.Level),
			IsMe:        e.UserID == me,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
