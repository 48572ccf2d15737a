package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	refreshBatchSize = 200
	statsHistory     = 1 // years of completions loaded for stats

	// MaxStatsRangeDays bounds the inclusive day span of a stats request.
	MaxStatsRangeDays = 366
)

var weekdays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

type Service interface {
	CreateHabit(ctx context.Context, input CreateHabitInput) (*Habit, error)
	GetHabit(ctx context.Context, id, userID uuid.UUID) (*Habit, error)
	ListHabits(ctx context.Context, filter HabitFilter) ([]Habit, int64, error)
	UpdateHabit(ctx context.Context, id, userID uuid.UUID, input UpdateHabitInput) (*Habit, error)
	DeleteHabit(ctx context.Context, id, userID uuid.UUID) error

	CompleteHabit(ctx context.Context, id, userID uuid.UUID, at *time.Time, note string) (*CompletionResult, error)
	UncompleteHabit(ctx context.Context, id, userID uuid.UUID, day *time.Time) (*HabitDetail, error)
	GetHabitDetail(ctx context.Context, id, userID uuid.UUID) (*HabitDetail, error)
	GetStreakHistory(ctx context.Context, id, userID uuid.UUID) ([]StreakHistory, error)

	GetStats(ctx context.Context, userID uuid.UUID, start, end time.Time) (*Stats, error)
	GetHeatmapData(ctx context.Context, userID uuid.UUID, period string) (map[string]int, error)
	ListActivity(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]HabitActivity, int64, error)

	RefreshStreaks(ctx context.Context) (int, error)
}

type service struct {
	repo    Repository
	rewards gamification.Service
	cache   *cache.Client
	logger  *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewService wires the habit service. rewards and cache may be nil.
func NewService(repo Repository, rewards gamification.Service, cache *cache.Client, log *logger.Logger, loc *time.Location) Service {
	if log == nil {
		log = logger.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:    repo,
		rewards: rewards,
		cache:   cache,
		logger:  log.Named("habits"),
		loc:     loc,
		now:     time.Now,
	}
}

func (s *service) today() time.Time {
	return s.now().In(s.loc)
}

func (s *service) localTimes(completions []HabitCompletion) []time.Time {
	out := make([]time.Time, len(completions))
	for i, c := range completions {
		out[i] = c.CompletedAt.In(s.loc)
	}
	return out
}

func (s *service) localCompletions(completions []HabitCompletion) []HabitCompletion {
	for i := range completions {
		completions[i].CompletedAt = completions[i].CompletedAt.In(s.loc)
	}
	return completions
}

func normalizeDays(frequency Frequency, days []string) ([]string, error) {
	if frequency != FrequencyCustom {
		return nil, nil
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: custom frequency requires at least one day", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToLower(strings.TrimSpace(d))
		if !weekdays[d] {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalidInput, d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *service) CreateHabit(ctx context.Context, input CreateHabitInput) (*Habit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Frequency == "" {
		input.Frequency = FrequencyDaily
	}
	if !input.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, input.Frequency)
	}
	days, err := normalizeDays(input.Frequency, input.CustomDays)
	if err != nil {
		return nil, err
	}
	if input.GoalDays < 0 {
		return nil, fmt.Errorf("%w: goal_days must not be negative", ErrInvalidInput)
	}

	if _, err := s.repo.FindByName(ctx, name, input.UserID); err == nil {
		return nil, ErrHabitAlreadyExists
	} else if !errors.Is(err, ErrHabitNotFound) {
		return nil, err
	}

	habit := &Habit{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Name:            name,
		Description:     input.Description,
		Frequency:       input.Frequency,
		CustomDays:      days,
		ReminderTime:    input.ReminderTime,
		ReminderEnabled: input.ReminderEnabled,
		GoalDays:        input.GoalDays,
		Active:          true,
	}
	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, habit, ActionHabitCreated, map[string]interface{}{
		"name":      habit.Name,
		"frequency": string(habit.Frequency),
	})
	s.award(ctx, habit.UserID, gamification.ActionHabitCreation, 0, map[string]interface{}{"habit_id": habit.ID.String()})
	s.invalidate(ctx, habit)
	s.publish(ctx, habit, ActionHabitCreated, nil)

	return habit, nil
}

// GetHabit returns the habit if it belongs to userID.
func (s *service) GetHabit(ctx context.Context, id, userID uuid.UUID) (*Habit, error) {
	habit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, ErrHabitNotFound
	}
	return habit, nil
}

func (s *service) ListHabits(ctx context.Context, filter HabitFilter) ([]Habit, int64, error) {
	return s.repo.FindAll(ctx, filter)
}

func (s *service) UpdateHabit(ctx context.Context, id, userID uuid.UUID, input UpdateHabitInput) (*Habit, error) {
	habit, err := s.GetHabit(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	changed := false

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if name != habit.Name {
			existing, err := s.repo.FindByName(ctx, name, userID)
			switch {
			case err == nil && existing.ID != habit.ID:
				return nil, ErrHabitAlreadyExists
			case err != nil && !errors.Is(err, ErrHabitNotFound):
				return nil, err
			}
			habit.Name = name
			changed = true
		}
	}
	if input.Description != nil && *input.Description != habit.Description {
		habit.Description = *input.Description
		changed = true
	}
	if input.Frequency != nil || input.CustomDays != nil {
		frequency := habit.Frequency
		if input.Frequency != nil {
			frequency = *input.Frequency
		}
		if !frequency.Valid() {
			return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, frequency)
		}
		days := input.CustomDays
		if days == nil {
			days = habit.CustomDays
		}
		normalized, err := normalizeDays(frequency, days)
		if err != nil {
			return nil, err
		}
		habit.Frequency = frequency
		habit.CustomDays = normalized
		changed = true
	}
	if input.ReminderTime != nil {
		habit.ReminderTime = input.ReminderTime
		changed = true
	}
	if input.ReminderEnabled != nil && *input.ReminderEnabled != habit.ReminderEnabled {
		habit.ReminderEnabled = *input.ReminderEnabled
		changed = true
	}
	if input.GoalDays != nil && *input.GoalDays != habit.GoalDays {
		if *input.GoalDays < 0 {
			return nil, fmt.Errorf("%w: goal_days must not be negative", ErrInvalidInput)
		}
		habit.GoalDays = *input.GoalDays
		changed = true
	}
	if input.Active != nil && *input.Active != habit.Active {
		habit.Active = *input.Active
		changed = true
	}

	if !changed {
		return habit, nil
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, habit, ActionHabitUpdated, map[string]interface{}{"name": habit.Name})
	s.invalidate(ctx, habit)
	s.publish(ctx, habit, ActionHabitUpdated, nil)
	return habit, nil
}

func (s *service) DeleteHabit(ctx context.Context, id, userID uuid.UUID) error {
	habit, err := s.GetHabit(ctx, id, userID)
	if err != nil {
		return err
	}

	s.recordActivity(ctx, habit, ActionHabitDeleted, map[string]interface{}{
		"name":           habit.Name,
		"current_streak": habit.CurrentStreak,
		"longest_streak": habit.LongestStreak,
	})

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, habit)
	s.publish(ctx, habit, ActionHabitDeleted, nil)
	return nil
}

// streaksFor recomputes both streak figures from the completion log.
func (s *service) streaksFor(ctx context.Context, habit *Habit) (current, longest int, completions []time.Time, err error) {
	logs, err := s.repo.ListCompletions(ctx, habit.ID)
	if err != nil {
		return 0, 0, nil, err
	}
	completions = s.localTimes(logs)
	current = CalculateStreak(completions, *habit, s.today())
	longest = CalculateLongestStreak(completions, *habit)
	if current > longest {
		longest = current
	}
	return current, longest, completions, nil
}

// CompleteHabit logs a completion and recomputes streaks. XP is only awarded
// for the first completion of a calendar day.
func (s *service) CompleteHabit(ctx context.Context, id, userID uuid.UUID, at *time.Time, note string) (*CompletionResult, error) {
	habit, err := s.GetHabit(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !habit.Active {
		return nil, fmt.Errorf("%w: habit is archived", ErrInvalidInput)
	}

	when := s.today()
	if at != nil {
		when = at.In(s.loc)
		if civilDay(when).After(civilDay(s.today())) {
			return nil, fmt.Errorf("%w: completion is in the future", ErrInvalidInput)
		}
	}

	completion := &HabitCompletion{
		ID:          uuid.New(),
		HabitID:     habit.ID,
		UserID:      userID,
		CompletedAt: when.UTC(),
		Note:        note,
	}
	if err := s.repo.AddCompletion(ctx, completion); err != nil {
		return nil, err
	}

	current, longest, completions, err := s.streaksFor(ctx, habit)
	if err != nil {
		return nil, err
	}
	previousLongest := habit.LongestStreak
	if err := s.repo.UpdateStreaks(ctx, habit.ID, current, longest); err != nil {
		return nil, err
	}
	habit.CurrentStreak, habit.LongestStreak = current, longest

	result := &CompletionResult{
		Completion:    *completion,
		CurrentStreak: current,
		LongestStreak: longest,
		NewRecord:     longest > previousLongest && longest > 1,
	}

	firstToday := 0
	day := civilDay(when)
	for _, c := range completions {
		if civilDay(c).Equal(day) {
			firstToday++
		}
	}
	if firstToday == 1 {
		meta := map[string]interface{}{"habit_id": habit.ID.String()}
		if award := s.award(ctx, userID, gamification.ActionHabitCompletion, current, meta); award != nil {
			result.XPEarned += award.Amount + award.Bonus
			result.LeveledUp = award.LeveledUp
			result.Level = award.Level
		}
		if result.NewRecord {
			if award := s.award(ctx, userID, gamification.ActionNewStreakRecord, 0, meta); award != nil {
				result.XPEarned += award.Amount + award.Bonus
				result.LeveledUp = result.LeveledUp || award.LeveledUp
				result.Level = award.Level
			}
		}
	}

	s.recordActivity(ctx, habit, ActionHabitCompleted, map[string]interface{}{
		"completed_at":   completion.CompletedAt.Format(time.RFC3339),
		"current_streak": current,
	})
	if IsMilestone(current) && firstToday == 1 {
		s.recordActivity(ctx, habit, ActionStreakMilestone, map[string]interface{}{"streak": current})
	}
	if result.NewRecord {
		s.recordActivity(ctx, habit, ActionStreakRecord, map[string]interface{}{"longest_streak": longest})
	}

	s.invalidate(ctx, habit)
	s.publish(ctx, habit, ActionHabitCompleted, map[string]interface{}{
		"current_streak": current,
		"xp_earned":      result.XPEarned,
	})

	return result, nil
}

// UncompleteHabit removes every completion logged on the given calendar day
// (today when nil) and recomputes streaks.
func (s *service) UncompleteHabit(ctx context.Context, id, userID uuid.UUID, day *time.Time) (*HabitDetail, error) {
	habit, err := s.GetHabit(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	target := s.today()
	if day != nil {
		target = day.In(s.loc)
	}
	y, m, d := target.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	removed, err := s.repo.RemoveCompletions(ctx, habit.ID, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrNotCompleted
	}

	current, longest, completions, err := s.streaksFor(ctx, habit)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStreaks(ctx, habit.ID, current, longest); err != nil {
		return nil, err
	}
	habit.CurrentStreak, habit.LongestStreak = current, longest

	s.recordActivity(ctx, habit, ActionHabitUncompleted, map[string]interface{}{
		"day":     from.Format("2006-01-02"),
		"removed": removed,
	})
	s.invalidate(ctx, habit)
	s.publish(ctx, habit, ActionHabitUncompleted, map[string]interface{}{"current_streak": current})

	return s.detail(habit, completions), nil
}

func (s *service) detail(habit *Habit, completions []time.Time) *HabitDetail {
	now := s.today()
	today := civilDay(now)
	completedToday := false
	for _, c := range completions {
		if civilDay(c).Equal(today) {
			completedToday = true
			break
		}
	}
	current := CalculateStreak(completions, *habit, now)
	longest := max(CalculateLongestStreak(completions, *habit), current)
	return &HabitDetail{
		Habit:              *habit,
		CurrentStreak:      current,
		LongestStreak:      longest,
		GoalProgress:       StreakProgress(current, habit.GoalDays),
		NextMilestone:      NextMilestone(current),
		DaysUntilMilestone: DaysUntilMilestone(current),
		Tier:               StreakTierFor(current),
		CompletedToday:     completedToday,
		DueToday:           IsHabitDueOn(*habit, now),
	}
}

func (s *service) GetHabitDetail(ctx context.Context, id, userID uuid.UUID) (*HabitDetail, error) {
	return cache.GetOrSet(ctx, s.cache, detailKey(userID, id), cache.TTLShort, func(ctx context.Context) (*HabitDetail, error) {
		habit, err := s.GetHabit(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		logs, err := s.repo.ListCompletions(ctx, habit.ID)
		if err != nil {
			return nil, err
		}
		return s.detail(habit, s.localTimes(logs)), nil
	})
}

func (s *service) GetStreakHistory(ctx context.Context, id, userID uuid.UUID) ([]StreakHistory, error) {
	if _, err := s.GetHabit(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.repo.GetStreakHistory(ctx, id)
}

// CheckStatsRange rejects ranges that end before they start or span more
// than MaxStatsRangeDays calendar days. Times are read in their own location.
func CheckStatsRange(start, end time.Time) error {
	first, last := civilDay(start), civilDay(end)
	if last.Before(first) {
		return fmt.Errorf("%w: end before start", ErrInvalidInput)
	}
	if daysBetween(last, first)+1 > MaxStatsRangeDays {
		return fmt.Errorf("%w: range longer than %d days", ErrInvalidInput, MaxStatsRangeDays)
	}
	return nil
}

// GetStats aggregates completion figures for [start, end] plus the default
// weekly and monthly rollups.
func (s *service) GetStats(ctx context.Context, userID uuid.UUID, start, end time.Time) (*Stats, error) {
	start, end = start.In(s.loc), end.In(s.loc)
	if err := CheckStatsRange(start, end); err != nil {
		return nil, err
	}
	// today is part of the key: the missed/upcoming split moves at midnight
	key := cache.Key("stats", userID, start.Format("2006-01-02"), end.Format("2006-01-02"), s.today().Format("2006-01-02"))

	return cache.GetOrSet(ctx, s.cache, key, cache.TTLMedium, func(ctx context.Context) (*Stats, error) {
		habits, _, err := s.repo.FindAll(ctx, HabitFilter{UserID: &userID})
		if err != nil {
			return nil, err
		}

		now := s.today()
		since := now.AddDate(-statsHistory, 0, 0)
		if start.Before(since) {
			since = start
		}
		logs, err := s.repo.ListUserCompletions(ctx, userID, since.UTC())
		if err != nil {
			return nil, err
		}
		logs = s.localCompletions(logs)

		total, err := s.repo.CountUserCompletions(ctx, userID)
		if err != nil {
			return nil, err
		}

		active := 0
		for _, h := range habits {
			if h.Active {
				active++
			}
		}

		rangeStats := CalculateCompletionRate(habits, logs, start, end, now)
		return &Stats{
			Range:         rangeStats,
			Weekly:        WeeklyCompletionRates(habits, logs, DefaultWeeks, now),
			Monthly:       MonthlyCompletionRates(habits, logs, DefaultMonths, now),
			PerfectDays:   ConsecutivePerfectDays(logs, habits, now),
			RateColor:     CompletionRateColor(rangeStats.CompletionRate),
			RateLabel:     CompletionRateLabel(rangeStats.CompletionRate),
			ActiveHabits:  active,
			TotalAchieved: int(total),
		}, nil
	})
}

// GetHeatmapData returns completions per day for the last week, month or year.
func (s *service) GetHeatmapData(ctx context.Context, userID uuid.UUID, period string) (map[string]int, error) {
	now := s.today()
	var start time.Time
	switch period {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	default:
		start = now.AddDate(-1, 0, 0)
	}
	return s.repo.GetHeatmapData(ctx, userID, start.UTC(), now.UTC(), s.loc)
}

func (s *service) ListActivity(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]HabitActivity, int64, error) {
	return s.repo.ListActivity(ctx, ActivityFilter{UserID: &userID, Page: page, PageSize: pageSize})
}

// RefreshStreaks recomputes the denormalised streak columns of every active
// habit from its completion log. Streaks that dropped to zero are archived
// in the streak history. Returns the number of habits updated.
func (s *service) RefreshStreaks(ctx context.Context) (int, error) {
	updated := 0
	after := uuid.Nil
	for {
		batch, err := s.repo.FindWithStreaks(ctx, after, refreshBatchSize)
		if err != nil {
			return updated, fmt.Errorf("load habits: %w", err)
		}
		if len(batch) == 0 {
			return updated, nil
		}

		for i := range batch {
			habit := &batch[i]
			after = habit.ID
			if err := ctx.Err(); err != nil {
				return updated, err
			}

			current, longest, completions, err := s.streaksFor(ctx, habit)
			if err != nil {
				s.logger.Error("Failed to load completions", zap.String("habit_id", habit.ID.String()), zap.Error(err))
				continue
			}
			if current == habit.CurrentStreak && longest == habit.LongestStreak {
				continue
			}

			if current == 0 && habit.CurrentStreak > 0 {
				s.archiveStreak(ctx, habit, completions)
			}
			if err := s.repo.UpdateStreaks(ctx, habit.ID, current, longest); err != nil {
				s.logger.Error("Failed to update streaks", zap.String("habit_id", habit.ID.String()), zap.Error(err))
				continue
			}
			s.invalidate(ctx, habit)
			updated++
		}

		if len(batch) < refreshBatchSize {
			return updated, nil
		}
	}
}

func (s *service) archiveStreak(ctx context.Context, habit *Habit, completions []time.Time) {
	var last time.Time
	for _, c := range completions {
		if c.After(last) {
			last = c
		}
	}
	if last.IsZero() {
		return
	}
	if err := s.repo.LogStreakHistory(ctx, habit.ID, habit.CurrentStreak, civilDay(last)); err != nil {
		s.logger.Error("Failed to log streak history", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		return
	}
	history, err := s.repo.GetStreakHistory(ctx, habit.ID)
	if err == nil {
		if err := s.repo.UpdateStreakQuality(ctx, habit.ID, CalculateStreakQuality(history)); err != nil {
			s.logger.Warn("Failed to update streak quality", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		}
	}
	s.recordActivity(ctx, habit, ActionStreakBroken, map[string]interface{}{"previous_streak": habit.CurrentStreak})
}

func (s *service) award(ctx context.Context, userID uuid.UUID, action gamification.Action, streak int, meta map[string]interface{}) *gamification.Award {
	if s.rewards == nil {
		return nil
	}
	award, err := s.rewards.AwardXP(ctx, userID, action, streak, meta)
	if err != nil {
		s.logger.Error("Failed to award XP",
			zap.String("user_id", userID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil
	}
	return award
}

func (s *service) recordActivity(ctx context.Context, habit *Habit, action string, metadata map[string]interface{}) {
	activity := &HabitActivity{
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	if err := s.repo.RecordActivity(ctx, activity); err != nil {
		s.logger.Warn("Failed to record habit activity",
			zap.String("habit_id", habit.ID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

func detailKey(userID, id uuid.UUID) string {
	return cache.Key("habit", userID, id, "detail")
}

func (s *service) invalidate(ctx context.Context, habit *Habit) {
	s.cache.Delete(ctx, detailKey(habit.UserID, habit.ID))
	s.cache.DeleteByPattern(ctx, cache.Key("stats", habit.UserID, "*"))
}

func (s *service) publish(ctx context.Context, habit *Habit, action string, details map[string]interface{}) {
	s.cache.Publish(ctx, EventChannel, HabitEvent{
		Action:    action,
		UserID:    habit.UserID,
		HabitID:   habit.ID,
		Timestamp: time.Now().UTC(),
		Details:   details,
	})
}
