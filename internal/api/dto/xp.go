package dto

import (
	"time"

	"github.com/google/uuid"
)

type XPEventResponse struct {
	Action    string    `json:"action"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type LevelRewardResponse struct {
	Title  string `json:"title"`
	Reward string `json:"reward"`
}

// XPProfileResponse is the caller's level card.
type XPProfileResponse struct {
	TotalXP          int                 `json:"total_xp"`
	Level            int                 `json:"level"`
	Title            string              `json:"title"`
	Emoji            string              `json:"emoji"`
	Progress         int                 `json:"progress"`
	XPToNextLevel    int                 `json:"xp_to_next_level"`
	NextLevel        int                 `json:"next_level"`
	NextReward       LevelRewardResponse `json:"next_reward"`
	LongestStreak    int                 `json:"longest_streak"`
	TotalCompletions int                 `json:"total_completions"`
	RecentEvents     []XPEventResponse   `json:"recent_events"`
}

type LeaderboardEntryResponse struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	AvatarColor string    `json:"avatar_color"`
	TotalXP     int       `json:"total_xp"`
	Level       int       `json:"level"`
	Title       string    `json:"title"`
	IsMe        bool      `json:"is_me"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntryResponse `json:"entries"`
}
