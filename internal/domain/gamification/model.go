package gamification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserXP is the running XP total of one user.
type UserXP struct {
	UserID           uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	TotalXP          int       `gorm:"default:0;not null;index" json:"total_xp"`
	Level            int       `gorm:"default:1;not null" json:"level"`
	LongestStreak    int       `gorm:"default:0;not null" json:"longest_streak"`
	TotalCompletions int       `gorm:"default:0;not null" json:"total_completions"`
	CreatedAt        time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:current_timestamp;autoUpdateTime" json:"updated_at"`
}

func (UserXP) TableName() string {
	return "user_xp"
}

// XPEvent is a ledger row for one award.
type XPEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Action    Action            `gorm:"type:varchar(32);not null" json:"action"`
	Amount    int               `gorm:"not null" json:"amount"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:current_timestamp" json:"created_at"`
}

func (XPEvent) TableName() string {
	return "xp_events"
}

func (e *XPEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return nil
}

// Award describes the outcome of AwardXP.
type Award struct {
	Action        Action `json:"action"`
	Amount        int    `json:"amount"`
	Bonus         int    `json:"bonus"`
	TotalXP       int    `json:"total_xp"`
	Level         int    `json:"level"`
	PreviousLevel int    `json:"previous_level"`
	LeveledUp     bool   `json:"leveled_up"`
}

// Profile is the XP summary shown to the user.
type Profile struct {
	UserID           uuid.UUID   `json:"user_id"`
	TotalXP          int         `json:"total_xp"`
	Level            int         `json:"level"`
	Title            string      `json:"title"`
	Emoji            string      `json:"emoji"`
	Progress         int         `json:"progress"`
	XPToNextLevel    int         `json:"xp_to_next_level"`
	NextLevel        int         `json:"next_level"`
	NextReward       LevelReward `json:"next_reward"`
	LongestStreak    int         `json:"longest_streak"`
	TotalCompletions int         `json:"total_completions"`
	RecentEvents     []XPEvent   `json:"recent_events"`
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	AvatarColor string    `json:"avatar_color"`
	TotalXP     int       `json:"total_xp"`
	Level       int       `json:"level"`
}
