package dto

// StatsQuery bounds the range rollup. Dates are YYYY-MM-DD; both default
// to a window ending today.
type StatsQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

type RangeStatsResponse struct {
	Start          string   `json:"start"`
	End            string   `json:"end"`
	TotalDue       int      `json:"total_due"`
	TotalCompleted int      `json:"total_completed"`
	CompletionRate int      `json:"completion_rate"`
	CompletedDays  []string `json:"completed_days"`
	MissedDays     []string `json:"missed_days"`
}

type WeeklyRateResponse struct {
	Week      int `json:"week"`
	Rate      int `json:"rate"`
	Completed int `json:"completed"`
	Due       int `json:"due"`
}

type MonthlyRateResponse struct {
	Month     string `json:"month"`
	Year      int    `json:"year"`
	Rate      int    `json:"rate"`
	Completed int    `json:"completed"`
	Due       int    `json:"due"`
}

// StatsResponse is the dashboard statistics payload.
type StatsResponse struct {
	Range            RangeStatsResponse    `json:"range"`
	Weekly           []WeeklyRateResponse  `json:"weekly"`
	Monthly          []MonthlyRateResponse `json:"monthly"`
	PerfectDays      int                   `json:"perfect_days"`
	RateColor        string                `json:"rate_color"`
	RateLabel        string                `json:"rate_label"`
	ActiveHabits     int                   `json:"active_habits"`
	TotalCompletions int                   `json:"total_completions"`
}
