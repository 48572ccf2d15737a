package habits

import (
	"math"
	"sort"
	"strings"
	"time"
)

// A timestamp's calendar day is taken in its own location. Callers convert
// completions and "now" into the user's timezone before calling in.

// civilDay truncates t to midnight of its calendar date, expressed in UTC so
// day arithmetic is free of DST shifts.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(later, earlier time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

func dueOnWeekday(h Habit, wd time.Weekday) bool {
	switch h.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return wd == time.Monday
	case FrequencyCustom:
		name := strings.ToLower(wd.String())
		for _, d := range h.CustomDays {
			if strings.ToLower(d) == name {
				return true
			}
		}
	}
	return false
}

// IsHabitDueOn reports whether h is scheduled on the calendar day of day.
func IsHabitDueOn(h Habit, day time.Time) bool {
	return dueOnWeekday(h, civilDay(day).Weekday())
}

// dueDays keeps completions on due days and collapses them to distinct
// calendar days, sorted oldest first.
func dueDays(completions []time.Time, h Habit) []time.Time {
	seen := make(map[time.Time]struct{}, len(completions))
	days := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		d := civilDay(c)
		if !dueOnWeekday(h, d.Weekday()) {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// CalculateStreak returns the current streak as of now. Walking newest first
// from today, each completion day at most one calendar day before the
// previous one extends the streak; the first larger gap ends it. Days after
// today are ignored.
func CalculateStreak(completions []time.Time, h Habit, now time.Time) int {
	days := dueDays(completions, h)
	if len(days) == 0 {
		return 0
	}

	streak := 0
	ref := civilDay(now)
	for i := len(days) - 1; i >= 0; i-- {
		diff := daysBetween(ref, days[i])
		if diff < 0 {
			continue
		}
		if diff > 1 {
			break
		}
		streak++
		ref = days[i]
	}
	return streak
}

// longestStreakGap is the widest gap, in calendar days, tolerated between two
// completions of the same run.
const longestStreakGap = 7

// CalculateLongestStreak returns the longest run of due-day completions where
// consecutive days are at most a week apart.
func CalculateLongestStreak(completions []time.Time, h Habit) int {
	days := dueDays(completions, h)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) <= longestStreakGap {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// StreakProgress is the streak as a percentage of goal, capped at 100.
func StreakProgress(current, goal int) int {
	if goal <= 0 {
		return 100
	}
	p := int(math.Round(float64(current) / float64(goal) * 100))
	if p > 100 {
		return 100
	}
	return p
}

var milestones = []int{7, 14, 30, 60, 90, 100, 180, 365}

// NextMilestone returns the first milestone above current. Past the ladder
// milestones repeat every 30 days.
func NextMilestone(current int) int {
	for _, m := range milestones {
		if current < m {
			return m
		}
	}
	return current + 30
}

func DaysUntilMilestone(current int) int {
	return NextMilestone(current) - current
}

// IsMilestone reports whether streak lands exactly on a ladder rung.
func IsMilestone(streak int) bool {
	for _, m := range milestones {
		if streak == m {
			return true
		}
	}
	return false
}

type StreakTier struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// StreakTierFor maps a streak length to its decorative tier.
func StreakTierFor(streak int) StreakTier {
	switch {
	case streak <= 0:
		return StreakTier{"Start", "💪"}
	case streak < 7:
		return StreakTier{"On fire", "🔥"}
	case streak < 14:
		return StreakTier{"Charged", "⚡"}
	case streak < 30:
		return StreakTier{"Diamond", "💎"}
	case streak < 60:
		return StreakTier{"Star", "🌟"}
	case streak < 100:
		return StreakTier{"Champion", "🏆"}
	case streak < 365:
		return StreakTier{"Royal", "👑"}
	default:
		return StreakTier{"Legendary", "🚀"}
	}
}

// CalculateStreakQuality is the ratio of completed days to the days spanned
// by the streak history, 0 for an empty history.
func CalculateStreakQuality(history []StreakHistory) float64 {
	if len(history) == 0 {
		return 0
	}

	earliest := history[0].StartDate
	latest := history[0].EndDate
	totalCompleted := 0
	for _, h := range history {
		if h.StartDate.Before(earliest) {
			earliest = h.StartDate
		}
		if h.EndDate.After(latest) {
			latest = h.EndDate
		}
		totalCompleted += h.CompletedDays
	}

	totalDays := daysBetween(civilDay(latest), civilDay(earliest)) + 1
	if totalDays <= 0 {
		return 0
	}
	quality := float64(totalCompleted) / float64(totalDays)
	if quality > 1 {
		return 1
	}
	return quality
}
