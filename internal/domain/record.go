package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestRecord is the persisted form of an active or historical quest. Title,
// description and reward are not stored; they come from the catalog on load.
type QuestRecord struct {
	MissionID   string     `json:"mission_id"`
	Frequency   Frequency  `json:"frequency"`
	Progress    float64    `json:"progress"`
	Target      *float64   `json:"target,omitempty"`
	Completed   bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	GeneratedAt string     `json:"generated_at"`
	ExpiresAt   string     `json:"expires_at"`
}

// UnlockRecord is the persisted form of an unlocked achievement.
type UnlockRecord struct {
	AchievementID string     `json:"id"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
}

// StoredState is what the persistence adapter reads and writes.
type StoredState struct {
	UserID    uuid.UUID      `json:"user_id"`
	Profile   Profile        `json:"profile"`
	Quests    []QuestRecord  `json:"quests"`
	Unlocks   []UnlockRecord `json:"unlocks"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Version is the store's version at load time. Save rejects the state
	// with a CONFLICT error when the stored version has moved on since.
	Version int64 `json:"version"`
}

// DateRange bounds a history read. Empty bounds are open.
type DateRange struct {
	From string // inclusive, YYYY-MM-DD
	To   string // inclusive, YYYY-MM-DD
}
