package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/api/middleware"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/pkg/logger"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	defaultStatsDays = 30
)

// HabitsHandler handles HTTP requests for habits operations
type HabitsHandler struct {
	service habits.Service
	loc     *time.Location
	log     *logger.Logger
}

// NewHabitsHandler creates a new HabitsHandler instance
func NewHabitsHandler(service habits.Service, loc *time.Location, log *logger.Logger) *HabitsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &HabitsHandler{service: service, loc: loc, log: log.Named("habits_handler")}
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func habitID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid habit ID"})
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
	}
	return userID, ok
}

// bindBody prefers the model stored by the validation middleware.
func bindBody[T any](c *gin.Context) (*T, bool) {
	if req, ok := middleware.GetValidated[T](c); ok {
		return req, true
	}
	req := new(T)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return nil, false
	}
	return req, true
}

// CreateHabit godoc
// @Summary Create a new habit
// @Tags habits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param habit body dto.CreateHabitRequest true "Habit creation request"
// @Success 201 {object} dto.HabitResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "Habit with this name exists"
// @Router /api/habits [post]
func (h *HabitsHandler) CreateHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.CreateHabitRequest](c)
	if !ok {
		return
	}

	habit, err := h.service.CreateHabit(c.Request.Context(), habits.CreateHabitInput{
		UserID:          userID,
		Name:            req.Name,
		Description:     req.Description,
		Frequency:       habits.Frequency(req.Frequency),
		CustomDays:      req.CustomDays,
		ReminderTime:    req.ReminderTime,
		ReminderEnabled: req.ReminderEnabled,
		GoalDays:        req.GoalDays,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": HabitToResponse(habit)})
}

// ListHabits godoc
// @Summary List the caller's habits
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param active query bool false "Only active habits"
// @Success 200 {object} dto.HabitListResponse
// @Router /api/habits [get]
func (h *HabitsHandler) ListHabits(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	activeOnly, _ := strconv.ParseBool(c.Query("active"))

	list, total, err := h.service.ListHabits(c.Request.Context(), habits.HabitFilter{
		UserID:     &userID,
		ActiveOnly: activeOnly,
		Page:       page - 1,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := dto.HabitListResponse{
		Habits:     make([]dto.HabitResponse, 0, len(list)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for i := range list {
		resp.Habits = append(resp.Habits, *HabitToResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetHabit godoc
// @Summary Get a habit with its streak figures
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Success 200 {object} dto.HabitDetailResponse
// @Failure 404 {object} map[string]string
// @Router /api/habits/{id} [get]
func (h *HabitsHandler) GetHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetHabitDetail(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": HabitDetailToResponse(detail)})
}

// UpdateHabit godoc
// @Summary Update a habit
// @Tags habits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Param habit body dto.UpdateHabitRequest true "Fields to change"
// @Success 200 {object} dto.HabitResponse
// @Router /api/habits/{id} [put]
func (h *HabitsHandler) UpdateHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.UpdateHabitRequest](c)
	if !ok {
		return
	}

	input := habits.UpdateHabitInput{
		Name:            req.Name,
		Description:     req.Description,
		CustomDays:      req.CustomDays,
		ReminderTime:    req.ReminderTime,
		ReminderEnabled: req.ReminderEnabled,
		GoalDays:        req.GoalDays,
		Active:          req.Active,
	}
	if req.Frequency != nil {
		f := habits.Frequency(*req.Frequency)
		input.Frequency = &f
	}

	habit, err := h.service.UpdateHabit(c.Request.Context(), id, userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": HabitToResponse(habit)})
}

// DeleteHabit godoc
// @Summary Delete a habit and its history
// @Tags habits
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Success 204
// @Router /api/habits/{id} [delete]
func (h *HabitsHandler) DeleteHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteHabit(c.Request.Context(), id, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteHabit godoc
// @Summary Mark a habit as completed
// @Tags habits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Param completion body dto.HabitCompletionRequest false "Completion time and note"
// @Success 200 {object} dto.CompletionResponse
// @Router /api/habits/{id}/complete [post]
func (h *HabitsHandler) CompleteHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	var req dto.HabitCompletionRequest
	if v, found := middleware.GetValidated[dto.HabitCompletionRequest](c); found {
		req = *v
	} else if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	res, err := h.service.CompleteHabit(c.Request.Context(), id, userID, req.CompletedAt, req.Note)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": CompletionToResponse(res)})
}

// UncompleteHabit godoc
// @Summary Remove the completions of a day
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Param date query string false "Day to clear (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.HabitDetailResponse
// @Router /api/habits/{id}/complete [delete]
func (h *HabitsHandler) UncompleteHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = &d
	}

	detail, err := h.service.UncompleteHabit(c.Request.Context(), id, userID, day)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": HabitDetailToResponse(detail)})
}

// GetStreakHistory godoc
// @Summary List archived streaks of a habit
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Habit ID" format(uuid)
// @Success 200 {array} dto.StreakHistoryResponse
// @Router /api/habits/{id}/streak-history [get]
func (h *HabitsHandler) GetStreakHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	history, err := h.service.GetStreakHistory(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := make([]dto.StreakHistoryResponse, 0, len(history))
	for i := range history {
		resp = append(resp, *StreakHistoryToResponse(&history[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetHeatmap godoc
// @Summary Completions per day
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Param period query string false "week, month or year" Enums(week, month, year)
// @Success 200 {object} dto.HeatmapResponse
// @Router /api/habits/heatmap [get]
func (h *HabitsHandler) GetHeatmap(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "year")
	if period != "week" && period != "month" && period != "year" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be week, month or year"})
		return
	}

	data, err := h.service.GetHeatmapData(c.Request.Context(), userID, period)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := dto.HeatmapResponse{Data: data, Period: period}
	first := true
	for _, v := range data {
		if first || v < resp.MinValue {
			resp.MinValue = v
		}
		if first || v > resp.MaxValue {
			resp.MaxValue = v
		}
		first = false
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListActivity godoc
// @Summary Recent habit activity of the caller
// @Tags habits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ActivityListResponse
// @Router /api/habits/activity [get]
func (h *HabitsHandler) ListActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	list, total, err := h.service.ListActivity(c.Request.Context(), userID, page-1, pageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := dto.ActivityListResponse{
		Activities: make([]dto.ActivityResponse, 0, len(list)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for i := range list {
		resp.Activities = append(resp.Activities, ActivityToResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetStats godoc
// @Summary Completion statistics
// @Description Range rollup plus weekly and monthly rates and the perfect-day streak.
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param start query string false "Range start (YYYY-MM-DD)"
// @Param end query string false "Range end (YYYY-MM-DD), defaults to today"
// @Failure 400 {object} map[string]string "Range inverted or longer than 366 days"
// @Success 200 {object} dto.StatsResponse
// @Router /api/stats [get]
func (h *HabitsHandler) GetStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q dto.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	end := time.Now().In(h.loc)
	if q.End != "" {
		d, err := time.ParseInLocation(dateLayout, q.End, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
			return
		}
		end = d
	}
	start := end.AddDate(0, 0, -(defaultStatsDays - 1))
	if q.Start != "" {
		d, err := time.ParseInLocation(dateLayout, q.Start, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
			return
		}
		start = d
	}
	if err := habits.CheckStatsRange(start, end); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID, start, end)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": StatsToResponse(stats, start.Format(dateLayout), end.Format(dateLayout))})
}
