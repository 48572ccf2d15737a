package habits

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultWeeks  = 4
	DefaultMonths = 6

	// perfectDaysLookback bounds the backwards walk of ConsecutivePerfectDays.
	perfectDaysLookback = 3650
)

type CompletionStats struct {
	TotalDue       int         `json:"total_due"`
	TotalCompleted int         `json:"total_completed"`
	CompletionRate int         `json:"completion_rate"`
	CompletedDays  []time.Time `json:"completed_days"`
	MissedDays     []time.Time `json:"missed_days"`
}

type WeeklyRate struct {
	Week      int `json:"week"`
	Rate      int `json:"rate"`
	Completed int `json:"completed"`
	Due       int `json:"due"`
}

type MonthlyRate struct {
	Month     string `json:"month"`
	Year      int    `json:"year"`
	Rate      int    `json:"rate"`
	Completed int    `json:"completed"`
	Due       int    `json:"due"`
}

type completionIndex map[uuid.UUID]map[time.Time]struct{}

func indexCompletions(completions []HabitCompletion) completionIndex {
	idx := make(completionIndex)
	for _, c := range completions {
		days, ok := idx[c.HabitID]
		if !ok {
			days = make(map[time.Time]struct{})
			idx[c.HabitID] = days
		}
		days[civilDay(c.CompletedAt)] = struct{}{}
	}
	return idx
}

func (idx completionIndex) has(habitID uuid.UUID, day time.Time) bool {
	_, ok := idx[habitID][day]
	return ok
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// CalculateCompletionRate walks every active habit day by day across
// [start, end]. Due days with a completion count as completed; due days up to
// today without one count as missed. Later due days are neither.
func CalculateCompletionRate(habits []Habit, completions []HabitCompletion, start, end, now time.Time) CompletionStats {
	return completionRate(habits, indexCompletions(completions), civilDay(start), civilDay(end), civilDay(now))
}

func completionRate(habits []Habit, idx completionIndex, first, last, today time.Time) CompletionStats {
	stats := CompletionStats{
		CompletedDays: []time.Time{},
		MissedDays:    []time.Time{},
	}

	for _, h := range habits {
		if !h.Active {
			continue
		}
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			if !dueOnWeekday(h, day.Weekday()) {
				continue
			}
			stats.TotalDue++
			if idx.has(h.ID, day) {
				stats.TotalCompleted++
				stats.CompletedDays = append(stats.CompletedDays, day)
			} else if !day.After(today) {
				stats.MissedDays = append(stats.MissedDays, day)
			}
		}
	}

	stats.CompletionRate = percent(stats.TotalCompleted, stats.TotalDue)
	return stats
}

// WeeklyCompletionRates returns one row per trailing 7-day window ending
// today, oldest first. weeks <= 0 uses DefaultWeeks.
func WeeklyCompletionRates(habits []Habit, completions []HabitCompletion, weeks int, now time.Time) []WeeklyRate {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	idx := indexCompletions(completions)
	today := civilDay(now)

	rates := make([]WeeklyRate, weeks)
	for i := 0; i < weeks; i++ {
		end := today.AddDate(0, 0, -7*i)
		start := end.AddDate(0, 0, -6)
		s := completionRate(habits, idx, start, end, today)
		rates[weeks-1-i] = WeeklyRate{
			Week:      weeks - i,
			Rate:      s.CompletionRate,
			Completed: s.TotalCompleted,
			Due:       s.TotalDue,
		}
	}
	return rates
}

// MonthlyCompletionRates returns one row per calendar month ending with the
// current one, oldest first. months <= 0 uses DefaultMonths.
func MonthlyCompletionRates(habits []Habit, completions []HabitCompletion, months int, now time.Time) []MonthlyRate {
	if months <= 0 {
		months = DefaultMonths
	}
	idx := indexCompletions(completions)
	today := civilDay(now)
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	rates := make([]MonthlyRate, months)
	for i := 0; i < months; i++ {
		start := firstOfMonth.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, -1)
		s := completionRate(habits, idx, start, end, today)
		rates[months-1-i] = MonthlyRate{
			Month:     start.Month().String()[:3],
			Year:      start.Year(),
			Rate:      s.CompletionRate,
			Completed: s.TotalCompleted,
			Due:       s.TotalDue,
		}
	}
	return rates
}

// ConsecutivePerfectDays counts days, walking back from today, on which every
// due active habit was completed. Days with nothing due are skipped; an
// unfinished today does not end the run.
func ConsecutivePerfectDays(completions []HabitCompletion, habits []Habit, now time.Time) int {
	active := make([]Habit, 0, len(habits))
	for _, h := range habits {
		if h.Active {
			active = append(active, h)
		}
	}
	if !anyEverDue(active) {
		return 0
	}

	idx := indexCompletions(completions)
	today := civilDay(now)
	count := 0
	for i := 0; i < perfectDaysLookback; i++ {
		day := today.AddDate(0, 0, -i)
		due, done := 0, 0
		for _, h := range active {
			if !dueOnWeekday(h, day.Weekday()) {
				continue
			}
			due++
			if idx.has(h.ID, day) {
				done++
			}
		}

		switch {
		case due == 0:
			continue
		case done == due:
			count++
		case i == 0:
			continue
		default:
			return count
		}
	}
	return count
}

func anyEverDue(habits []Habit) bool {
	for _, h := range habits {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if dueOnWeekday(h, wd) {
				return true
			}
		}
	}
	return false
}

func CompletionRateColor(rate int) string {
	switch {
	case rate >= 90:
		return "#10b981"
	case rate >= 70:
		return "#3b82f6"
	case rate >= 50:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

func CompletionRateLabel(rate int) string {
	switch {
	case rate == 100:
		return "Perfect"
	case rate >= 90:
		return "Excellent"
	case rate >= 70:
		return "Good"
	case rate >= 50:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}
