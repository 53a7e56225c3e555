package domain

import "time"

// SecretPlaceholder replaces the title and description of a locked secret achievement.
const SecretPlaceholder = "???"

// Achievement is a permanent milestone. Once Unlocked is set it never reverts.
type Achievement struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Icon         string     `json:"icon"`
	Color        string     `json:"color"`
	RewardXP     int        `json:"reward_xp"`
	Secret       bool       `json:"is_secret,omitempty"`
	Target       float64    `json:"target_value,omitempty"` // 0 means no numeric target
	Unlocked     bool       `json:"is_unlocked"`
	UnlockedAt   *time.Time `json:"unlocked_at,omitempty"`
	CurrentValue float64    `json:"current_value"`
	Progress     float64    `json:"progress"` // 0-100
}

// Masked returns the achievement as it may be shown to the user: secret
// achievements hide their text until unlocked.
func (a Achievement) Masked() Achievement {
	if a.Secret && !a.Unlocked {
		a.Title = SecretPlaceholder
		a.Description = SecretPlaceholder
	}
	return a
}
