package habits

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

type Habit struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description"`
	Frequency       Frequency      `gorm:"type:varchar(16);not null;default:'daily'" json:"frequency"`
	CustomDays      pq.StringArray `gorm:"type:text[]" json:"custom_days"`
	ReminderTime    *string        `gorm:"type:varchar(5)" json:"reminder_time,omitempty"`
	ReminderEnabled bool           `gorm:"default:false;not null" json:"reminder_enabled"`
	GoalDays        int            `gorm:"default:30;not null" json:"goal_days"`
	Active          bool           `gorm:"default:true;not null" json:"active"`
	CurrentStreak   int            `gorm:"default:0;not null" json:"current_streak"`
	LongestStreak   int            `gorm:"default:0;not null" json:"longest_streak"`
	StreakQuality   float64        `gorm:"default:0;not null" json:"streak_quality"`
	CreatedAt       time.Time      `gorm:"not null;default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:current_timestamp;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Habit model
func (Habit) TableName() string {
	return "habits"
}

// BeforeCreate is called before creating a new habit record
func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// BeforeUpdate is called before updating a habit record
func (h *Habit) BeforeUpdate(tx *gorm.DB) error {
	h.UpdatedAt = time.Now()
	return nil
}

// HabitCompletion is one check-off of a habit. Several per day are allowed.
type HabitCompletion struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	HabitID     uuid.UUID `gorm:"type:uuid;not null;index:idx_habit_completion,priority:1" json:"habit_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_user_completed,priority:1" json:"user_id"`
	CompletedAt time.Time `gorm:"not null;index:idx_habit_completion,priority:2;index:idx_user_completed,priority:2" json:"completed_at"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
}

// TableName specifies the table name for the HabitCompletion model
func (HabitCompletion) TableName() string {
	return "habit_completions"
}

func (c *HabitCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}

// StreakHistory represents a historical record of a habit streak
type StreakHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	HabitID       uuid.UUID `gorm:"type:uuid;not null;index" json:"habit_id"`
	StartDate     time.Time `gorm:"not null" json:"start_date"`
	EndDate       time.Time `gorm:"not null" json:"end_date"`
	StreakLength  int       `gorm:"not null" json:"streak_length"`
	CompletedDays int       `gorm:"not null" json:"completed_days"`
	CreatedAt     time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
}

func (StreakHistory) TableName() string {
	return "streak_histories"
}

// CreateHabitInput represents the input for creating a new habit
type CreateHabitInput struct {
	UserID          uuid.UUID
	Name            string
	Description     string
	Frequency       Frequency
	CustomDays      []string
	ReminderTime    *string
	ReminderEnabled bool
	GoalDays        int
}

// UpdateHabitInput represents the input for updating a habit
type UpdateHabitInput struct {
	Name            *string
	Description     *string
	Frequency       *Frequency
	CustomDays      []string
	ReminderTime    *string
	ReminderEnabled *bool
	GoalDays        *int
	Active          *bool
}

// HabitDetail is a habit with its derived streak figures.
type HabitDetail struct {
	Habit              Habit      `json:"habit"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	GoalProgress       int        `json:"goal_progress"`
	NextMilestone      int        `json:"next_milestone"`
	DaysUntilMilestone int        `json:"days_until_milestone"`
	Tier               StreakTier `json:"tier"`
	CompletedToday     bool       `json:"completed_today"`
	DueToday           bool       `json:"due_today"`
}

// CompletionResult is returned after a habit is checked off.
type CompletionResult struct {
	Completion    HabitCompletion `json:"completion"`
	CurrentStreak int             `json:"current_streak"`
	LongestStreak int             `json:"longest_streak"`
	NewRecord     bool            `json:"new_record"`
	XPEarned      int             `json:"xp_earned"`
	LeveledUp     bool            `json:"leveled_up"`
	Level         int             `json:"level"`
}

// Stats is the dashboard statistics bundle for one user.
type Stats struct {
	Range         CompletionStats `json:"range"`
	Weekly        []WeeklyRate    `json:"weekly"`
	Monthly       []MonthlyRate   `json:"monthly"`
	PerfectDays   int             `json:"perfect_days"`
	RateColor     string          `json:"rate_color"`
	RateLabel     string          `json:"rate_label"`
	ActiveHabits  int             `json:"active_habits"`
	TotalAchieved int             `json:"total_completions"`
}
