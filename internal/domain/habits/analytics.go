package habits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// HabitActivity is an audit row for habit-related actions.
type HabitActivity struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	HabitID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"habit_id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Action    string            `gorm:"type:varchar(50);not null" json:"action"`
	Timestamp time.Time         `gorm:"not null;default:now()" json:"timestamp"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName specifies the table name for the HabitActivity model
func (HabitActivity) TableName() string {
	return "habit_activities"
}

// ActivityFilter defines filtering options for habit activity
type ActivityFilter struct {
	HabitID   *uuid.UUID
	UserID    *uuid.UUID
	Action    *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// Common activity actions
const (
	ActionHabitCreated     = "habit_created"
	ActionHabitUpdated     = "habit_updated"
	ActionHabitDeleted     = "habit_deleted"
	ActionHabitCompleted   = "habit_completed"
	ActionHabitUncompleted = "habit_uncompleted"
	ActionStreakBroken     = "streak_broken"
	ActionStreakMilestone  = "streak_milestone"
	ActionStreakRecord     = "streak_record"
)

// HabitEvent is published on the habits channel after a state change.
type HabitEvent struct {
	Action    string                 `json:"action"`
	UserID    uuid.UUID              `json:"user_id"`
	HabitID   uuid.UUID              `json:"habit_id"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// EventChannel is the pubsub channel habit events are published on.
const EventChannel = "habits:events"
