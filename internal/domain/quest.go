package domain

import "time"

// Frequency is the rotation period of a quest.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Frequencies lists every frequency in generation order.
var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

// Difficulty is the tier shown on a quest card.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyPro    Difficulty = "pro"
)

// MetricType selects how a quest's progress is measured.
type MetricType string

const (
	MetricProfit      MetricType = "profit"
	MetricVolume      MetricType = "volume"
	MetricStreak      MetricType = "streak"
	MetricConsistency MetricType = "consistency"
	MetricDiscipline  MetricType = "discipline"
	MetricTags        MetricType = "tags"
	MetricTime        MetricType = "time"
)

// TimeBracket narrows a time-of-day quest to part of the day.
type TimeBracket string

const (
	BracketNone    TimeBracket = ""
	BracketMorning TimeBracket = "morning" // created before 12:00
	BracketNight   TimeBracket = "night"   // created at or after 20:00
)

// QuestTemplate is an immutable catalog entry.
type QuestTemplate struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Frequency   Frequency   `json:"frequency"`
	Difficulty  Difficulty  `json:"difficulty"`
	Metric      MetricType  `json:"type"`
	Bracket     TimeBracket `json:"bracket,omitempty"`
	Target      float64     `json:"target_value"`
	RewardXP    int         `json:"reward_xp"`
	ProOnly     bool        `json:"is_pro,omitempty"`
	Icon        string      `json:"icon"`
}

// ActiveQuest is a template bound to a generation window.
type ActiveQuest struct {
	QuestTemplate
	CurrentValue float64    `json:"current_value"`
	Completed    bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	GeneratedAt  string     `json:"generated_at"` // window anchor, YYYY-MM-DD
	ExpiresAt    string     `json:"expires_at"`   // YYYY-MM-DD
}

// Progress returns completion as a 0-100 percentage.
func (q ActiveQuest) Progress() float64 {
	if q.Completed {
		return 100
	}
	if q.Target <= 0 {
		return 0
	}
	p := q.CurrentValue / q.Target * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
