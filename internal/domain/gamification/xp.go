package gamification

import (
	"math"
	"sort"
)

type LevelThreshold struct {
	Level int
	XP    int
}

// LevelThresholds is sparse: levels between entries are skipped, so XP jumps
// straight from 15 to 20 and so on.
var LevelThresholds = []LevelThreshold{
	{1, 0},
	{2, 100},
	{3, 250},
	{4, 500},
	{5, 1000},
	{6, 1800},
	{7, 2900},
	{8, 4300},
	{9, 6000},
	{10, 8000},
	{11, 10500},
	{12, 13500},
	{13, 17000},
	{14, 21000},
	{15, 25500},
	{20, 45000},
	{25, 75000},
	{30, 135000},
	{40, 305000},
	{50, 580000},
	{100, 2900000},
}

// MaxLevel is the highest defined level.
var MaxLevel = LevelThresholds[len(LevelThresholds)-1].Level

type Action string

const (
	ActionHabitCompletion   Action = "habitCompletion"
	ActionStreakDay         Action = "streakDay"
	ActionNewStreakRecord   Action = "newStreakRecord"
	ActionHabitCreation     Action = "habitCreation"
	ActionChallengeComplete Action = "challengeComplete"
	ActionAchievementUnlock Action = "achievementUnlock"
	ActionLevelUpBonus      Action = "levelUpBonus"
)

var XPRewards = map[Action]int{
	ActionHabitCompletion:   10,
	ActionStreakDay:         5,
	ActionNewStreakRecord:   50,
	ActionHabitCreation:     20,
	ActionChallengeComplete: 200,
	ActionAchievementUnlock: 50,
	ActionLevelUpBonus:      100,
}

func (a Action) Valid() bool {
	_, ok := XPRewards[a]
	return ok
}

// CalculateLevel returns the highest level whose threshold does not exceed xp.
func CalculateLevel(xp int) int {
	level := 1
	for _, t := range LevelThresholds {
		if xp < t.XP {
			break
		}
		level = t.Level
	}
	return level
}

// XPForLevel returns the threshold of a defined level, 0 for levels not in the table.
func XPForLevel(level int) int {
	for _, t := range LevelThresholds {
		if t.Level == level {
			return t.XP
		}
	}
	return 0
}

// nextThreshold returns the first defined threshold above level.
func nextThreshold(level int) (LevelThreshold, bool) {
	i := sort.Search(len(LevelThresholds), func(i int) bool {
		return LevelThresholds[i].Level > level
	})
	if i == len(LevelThresholds) {
		return LevelThreshold{}, false
	}
	return LevelThresholds[i], true
}

// NextLevel is the next level reachable from xp, or the current one at the top.
func NextLevel(xp int) int {
	level := CalculateLevel(xp)
	if next, ok := nextThreshold(level); ok {
		return next.Level
	}
	return level
}

// XPToNextLevel returns the XP still needed for the next defined level, 0 at the top.
func XPToNextLevel(xp int) int {
	next, ok := nextThreshold(CalculateLevel(xp))
	if !ok {
		return 0
	}
	return max(0, next.XP-xp)
}

// LevelProgress is the 0-100 position of xp between the current and next
// defined thresholds. At the top level it is 100.
func LevelProgress(xp int) int {
	level := CalculateLevel(xp)
	next, ok := nextThreshold(level)
	if !ok {
		return 100
	}
	current := XPForLevel(level)
	span := next.XP - current
	if span <= 0 {
		return 100
	}
	p := int(math.Round(float64(xp-current) / float64(span) * 100))
	return min(100, max(0, p))
}

// CalculateXPReward scales the base reward of action by multiplier. Unknown actions earn nothing.
func CalculateXPReward(action Action, multiplier float64) int {
	return int(math.Round(float64(XPRewards[action]) * multiplier))
}

type streakBonus struct {
	days   int
	tenths int
}

var streakBonuses = []streakBonus{
	{7, 1},
	{14, 1},
	{30, 2},
	{60, 2},
	{100, 3},
}

func streakTenths(streakDays int) int {
	tenths := 0
	for _, b := range streakBonuses {
		if streakDays >= b.days {
			tenths += b.tenths
		}
	}
	return tenths
}

// StreakMultiplier returns the reward multiplier for a streak, from 1.0 up to 1.9.
func StreakMultiplier(streakDays int) float64 {
	return float64(10+streakTenths(streakDays)) / 10
}

// ApplyStreakMultiplier scales base by the streak multiplier, rounding to the nearest point.
func ApplyStreakMultiplier(base, streakDays int) int {
	return int(math.Round(float64(base*(10+streakTenths(streakDays))) / 10))
}

func LevelTitle(level int) string {
	switch {
	case level < 5:
		return "Novice"
	case level < 10:
		return "Beginner"
	case level < 20:
		return "Intermediate"
	case level < 30:
		return "Advanced"
	case level < 40:
		return "Expert"
	case level < 50:
		return "Master"
	case level < 75:
		return "Grandmaster"
	case level < 100:
		return "Legend"
	default:
		return "Immortal"
	}
}

func LevelEmoji(level int) string {
	switch {
	case level < 5:
		return "🌱"
	case level < 10:
		return "🌿"
	case level < 20:
		return "🌳"
	case level < 30:
		return "⭐"
	case level < 40:
		return "💫"
	case level < 50:
		return "🌟"
	case level < 75:
		return "🏅"
	case level < 100:
		return "🏆"
	default:
		return "👑"
	}
}

type LevelReward struct {
	Title  string `json:"title"`
	Reward string `json:"reward"`
}

var levelRewards = map[int]LevelReward{
	5:   {"Beginner Badge", "Profile customization unlock"},
	10:  {"Rising Star", "New achievement category unlock"},
	20:  {"Achiever", "Special badge unlock"},
	30:  {"Dedicated", "Golden border on profile"},
	40:  {"Expert", "Custom theme unlock"},
	50:  {"Master", "Legendary avatar border"},
	75:  {"Grandmaster", "Mentor status"},
	100: {"Legend", "Immortal title"},
}

// NextLevelReward returns what is unlocked on reaching level.
func NextLevelReward(level int) LevelReward {
	if r, ok := levelRewards[level]; ok {
		return r
	}
	return LevelReward{Title: "Level up!", Reward: "Keep going!"}
}
