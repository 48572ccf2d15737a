package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateHabitRequest represents the request to create a new habit
type CreateHabitRequest struct {
	Name            string   `json:"name" validate:"required,not_empty,max=100"`
	Description     string   `json:"description" validate:"max=1000"`
	Frequency       string   `json:"frequency" validate:"omitempty,oneof=daily weekly custom"`
	CustomDays      []string `json:"custom_days" validate:"omitempty,max=7,dive,weekday"`
	ReminderTime    *string  `json:"reminder_time" validate:"omitempty,clock"`
	ReminderEnabled bool     `json:"reminder_enabled"`
	GoalDays        int      `json:"goal_days" validate:"gte=0,lte=3650"`
}

// UpdateHabitRequest represents the request to update an existing habit
type UpdateHabitRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,not_empty,max=100"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Frequency       *string  `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly custom"`
	CustomDays      []string `json:"custom_days,omitempty" validate:"omitempty,max=7,dive,weekday"`
	ReminderTime    *string  `json:"reminder_time,omitempty" validate:"omitempty,clock"`
	ReminderEnabled *bool    `json:"reminder_enabled,omitempty"`
	GoalDays        *int     `json:"goal_days,omitempty" validate:"omitempty,gte=0,lte=3650"`
	Active          *bool    `json:"active,omitempty"`
}

// HabitCompletionRequest marks a habit done. CompletedAt defaults to now.
type HabitCompletionRequest struct {
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Note        string     `json:"note,omitempty" validate:"max=500"`
}

// HabitResponse represents a habit in API responses
type HabitResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Frequency       string    `json:"frequency"`
	CustomDays      []string  `json:"custom_days"`
	ReminderTime    *string   `json:"reminder_time,omitempty"`
	ReminderEnabled bool      `json:"reminder_enabled"`
	GoalDays        int       `json:"goal_days"`
	Active          bool      `json:"active"`
	CurrentStreak   int       `json:"current_streak"`
	LongestStreak   int       `json:"longest_streak"`
	StreakQuality   float64   `json:"streak_quality"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HabitListResponse represents the response for listing habits
type HabitListResponse struct {
	Habits     []HabitResponse `json:"habits"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

type StreakTierResponse struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// HabitDetailResponse is a habit with its live streak figures.
type HabitDetailResponse struct {
	Habit              HabitResponse      `json:"habit"`
	CurrentStreak      int                `json:"current_streak"`
	LongestStreak      int                `json:"longest_streak"`
	GoalProgress       int                `json:"goal_progress"`
	NextMilestone      int                `json:"next_milestone"`
	DaysUntilMilestone int                `json:"days_until_milestone"`
	Tier               StreakTierResponse `json:"tier"`
	CompletedToday     bool               `json:"completed_today"`
	DueToday           bool               `json:"due_today"`
}

type CompletionResponse struct {
	ID            uuid.UUID `json:"id"`
	HabitID       uuid.UUID `json:"habit_id"`
	CompletedAt   time.Time `json:"completed_at"`
	Note          string    `json:"note,omitempty"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	NewRecord     bool      `json:"new_record"`
	XPEarned      int       `json:"xp_earned"`
	LeveledUp     bool      `json:"leveled_up"`
	Level         int       `json:"level,omitempty"`
}

// StreakHistoryResponse represents a streak history record in API responses
type StreakHistoryResponse struct {
	ID            uuid.UUID `json:"id"`
	HabitID       uuid.UUID `json:"habit_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	StreakLength  int       `json:"streak_length"`
	CompletedDays int       `json:"completed_days"`
	CreatedAt     time.Time `json:"created_at"`
}

// HeatmapResponse represents habit completion heatmap data
type HeatmapResponse struct {
	Data     map[string]int `json:"data"`
	Period   string         `json:"period"`
	MinValue int            `json:"min_value"`
	MaxValue int            `json:"max_value"`
}

type ActivityResponse struct {
	ID        uuid.UUID              `json:"id"`
	HabitID   uuid.UUID              `json:"habit_id"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type ActivityListResponse struct {
	Activities []ActivityResponse `json:"activities"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}
