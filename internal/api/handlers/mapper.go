package handlers

import (
	"github.com/habitquest/backend/internal/api/dto"
	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
)

const dateLayout = "2006-01-02"

// Habits
func HabitToResponse(h *habits.Habit) *dto.HabitResponse {
	if h == nil {
		return nil
	}
	days := []string(h.CustomDays)
	if days == nil {
		days = []string{}
	}
	return &dto.HabitResponse{
		ID:              h.ID,
		Name:            h.Name,
		Description:     h.Description,
		Frequency:       string(h.Frequency),
		CustomDays:      days,
		ReminderTime:    h.ReminderTime,
		ReminderEnabled: h.ReminderEnabled,
		GoalDays:        h.GoalDays,
		Active:          h.Active,
		CurrentStreak:   h.CurrentStreak,
		LongestStreak:   h.LongestStreak,
		StreakQuality:   h.StreakQuality,
		CreatedAt:       h.CreatedAt,
		UpdatedAt:       h.UpdatedAt,
	}
}

func HabitDetailToResponse(d *habits.HabitDetail) *dto.HabitDetailResponse {
	if d == nil {
		return nil
	}
	return &dto.HabitDetailResponse{
		Habit:              *HabitToResponse(&d.Habit),
		CurrentStreak:      d.CurrentStreak,
		LongestStreak:      d.LongestStreak,
		GoalProgress:       d.GoalProgress,
		NextMilestone:      d.NextMilestone,
		DaysUntilMilestone: d.DaysUntilMilestone,
		Tier:               dto.StreakTierResponse{Label: d.Tier.Label, Emoji: d.Tier.Emoji},
		CompletedToday:     d.CompletedToday,
		DueToday:           d.DueToday,
	}
}

func CompletionToResponse(r *habits.CompletionResult) *dto.CompletionResponse {
	return &dto.CompletionResponse{
		ID:            r.Completion.ID,
		HabitID:       r.Completion.HabitID,
		CompletedAt:   r.Completion.CompletedAt,
		Note:          r.Completion.Note,
		CurrentStreak: r.CurrentStreak,
		LongestStreak: r.LongestStreak,
		NewRecord:     r.NewRecord,
		XPEarned:      r.XPEarned,
		LeveledUp:     r.LeveledUp,
		Level:         r.Level,
	}
}

func StreakHistoryToResponse(h *habits.StreakHistory) *dto.StreakHistoryResponse {
	if h == nil {
		return nil
	}
	return &dto.StreakHistoryResponse{
		ID:            h.ID,
		HabitID:       h.HabitID,
		StartDate:     h.StartDate,
		EndDate:       h.EndDate,
		StreakLength:  h.StreakLength,
		CompletedDays: h.CompletedDays,
		CreatedAt:     h.CreatedAt,
	}
}

func ActivityToResponse(a *habits.HabitActivity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:        a.ID,
		HabitID:   a.HabitID,
		Action:    a.Action,
		Metadata:  a.Metadata,
		Timestamp: a.Timestamp,
	}
}

// Stats
func StatsToResponse(s *habits.Stats, start, end string) *dto.StatsResponse {
	resp := &dto.StatsResponse{
		Range: dto.RangeStatsResponse{
			Start:          start,
			End:            end,
			TotalDue:       s.Range.TotalDue,
			TotalCompleted: s.Range.TotalCompleted,
			CompletionRate: s.Range.CompletionRate,
			CompletedDays:  make([]string, 0, len(s.Range.CompletedDays)),
			MissedDays:     make([]string, 0, len(s.Range.MissedDays)),
		},
		Weekly:           make([]dto.WeeklyRateResponse, 0, len(s.Weekly)),
		Monthly:          make([]dto.MonthlyRateResponse, 0, len(s.Monthly)),
		PerfectDays:      s.PerfectDays,
		RateColor:        s.RateColor,
		RateLabel:        s.RateLabel,
		ActiveHabits:     s.ActiveHabits,
		TotalCompletions: s.TotalAchieved,
	}
	for _, d := range s.Range.CompletedDays {
		resp.Range.CompletedDays = append(resp.Range.CompletedDays, d.Format(dateLayout))
	}
	for _, d := range s.Range.MissedDays {
		resp.Range.MissedDays = append(resp.Range.MissedDays, d.Format(dateLayout))
	}
	for _, w := range s.Weekly {
		resp.Weekly = append(resp.Weekly, dto.WeeklyRateResponse(w))
	}
	for _, m := range s.Monthly {
		resp.Monthly = append(resp.Monthly, dto.MonthlyRateResponse(m))
	}
	return resp
}

// XP
func XPProfileToResponse(p *gamification.Profile) *dto.XPProfileResponse {
	resp := &dto.XPProfileResponse{
		TotalXP:          p.TotalXP,
		Level:            p.Level,
		Title:            p.Title,
		Emoji:            p.Emoji,
		Progress:         p.Progress,
		XPToNextLevel:    p.XPToNextLevel,
		NextLevel:        p.NextLevel,
		NextReward:       dto.LevelRewardResponse(p.NextReward),
		LongestStreak:    p.LongestStreak,
		TotalCompletions: p.TotalCompletions,
		RecentEvents:     make([]dto.XPEventResponse, 0, len(p.RecentEvents)),
	}
	for _, e := range p.RecentEvents {
		resp.RecentEvents = append(resp.RecentEvents, dto.XPEventResponse{
			Action:    string(e.Action),
			Amount:    e.Amount,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}

// Users
func UserToResponse(u *user.User, profileBaseURL string) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarColor: u.AvatarColor,
	}
	if u.Username != nil {
		resp.Username = *u.Username
		resp.ProfileURL = user.ProfileURL(*u.Username, profileBaseURL)
	}
	return resp
}

func ProfileToResponse(p *user.Profile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarColor: p.AvatarColor,
		URL:         p.URL,
	}
}
