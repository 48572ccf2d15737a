package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("unknown xp action")

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
	recentEventsLimit      = 10
)

type Service interface {
	AwardXP(ctx context.Context, userID uuid.UUID, action Action, streakDays int, metadata map[string]interface{}) (*Award, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type service struct {
	repo   Repository
	cache  *cache.Client
	logger *logger.Logger
}

func NewService(repo Repository, cache *cache.Client, log *logger.Logger) Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &service{
		repo:   repo,
		cache:  cache,
		logger: log.Named("gamification"),
	}
}

func profileKey(userID uuid.UUID) string {
	return cache.Key("xp", userID)
}

// AwardXP grants the streak-scaled reward for action. Crossing into a new
// level adds the level-up bonus once.
func (s *service) AwardXP(ctx context.Context, userID uuid.UUID, action Action, streakDays int, metadata map[string]interface{}) (*Award, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	award := &Award{Action: action}
	_, err := s.repo.Apply(ctx, userID, func(xp *UserXP) []XPEvent {
		amount := ApplyStreakMultiplier(XPRewards[action], streakDays)
		award.Amount = amount
		award.PreviousLevel = CalculateLevel(xp.TotalXP)

		xp.TotalXP += amount
		if action == ActionHabitCompletion {
			xp.TotalCompletions++
		}
		if streakDays > xp.LongestStreak {
			xp.LongestStreak = streakDays
		}

		events := []XPEvent{{Action: action, Amount: amount, Metadata: withStreak(metadata, streakDays)}}

		if CalculateLevel(xp.TotalXP) > award.PreviousLevel {
			award.LeveledUp = true
			award.Bonus = XPRewards[ActionLevelUpBonus]
			xp.TotalXP += award.Bonus
			events = append(events, XPEvent{
				Action: ActionLevelUpBonus,
				Amount: award.Bonus,
				Metadata: map[string]interface{}{
					"from_level": award.PreviousLevel,
					"to_level":   CalculateLevel(xp.TotalXP),
				},
			})
		}

		xp.Level = CalculateLevel(xp.TotalXP)
		award.TotalXP = xp.TotalXP
		award.Level = xp.Level
		return events
	})
	if err != nil {
		s.logger.Error("Failed to award XP",
			zap.String("user_id", userID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, fmt.Errorf("award xp: %w", err)
	}

	s.cache.Delete(ctx, profileKey(userID))
	if award.LeveledUp {
		s.logger.Info("User leveled up",
			zap.String("user_id", userID.String()),
			zap.Int("from", award.PreviousLevel),
			zap.Int("to", award.Level))
	}
	return award, nil
}

func withStreak(metadata map[string]interface{}, streakDays int) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	if streakDays > 0 {
		out["streak_days"] = streakDays
		out["multiplier"] = StreakMultiplier(streakDays)
	}
	return out
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return cache.GetOrSet(ctx, s.cache, profileKey(userID), cache.TTLMedium, func(ctx context.Context) (*Profile, error) {
		xp, err := s.repo.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		events, err := s.repo.RecentEvents(ctx, userID, recentEventsLimit)
		if err != nil {
			return nil, err
		}
		return BuildProfile(xp, events), nil
	})
}

// BuildProfile derives the display fields from a stored XP row.
func BuildProfile(xp *UserXP, events []XPEvent) *Profile {
	level := CalculateLevel(xp.TotalXP)
	next := NextLevel(xp.TotalXP)
	if events == nil {
		events = []XPEvent{}
	}
	return &Profile{
		UserID:           xp.UserID,
		TotalXP:          xp.TotalXP,
		Level:            level,
		Title:            LevelTitle(level),
		Emoji:            LevelEmoji(level),
		Progress:         LevelProgress(xp.TotalXP),
		XPToNextLevel:    XPToNextLevel(xp.TotalXP),
		NextLevel:        next,
		NextReward:       NextLevelReward(next),
		LongestStreak:    xp.LongestStreak,
		TotalCompletions: xp.TotalCompletions,
		RecentEvents:     events,
	}
}

func (s *service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	return cache.GetOrSet(ctx, s.cache, cache.Key("leaderboard", limit), cache.TTLShort, func(ctx context.Context) ([]LeaderboardEntry, error) {
		return s.repo.Leaderboard(ctx, limit)
	})
}
