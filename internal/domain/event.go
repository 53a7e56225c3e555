package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the gamification events emitted after a pass.
type EventType string

const (
	EventQuestCompleted      EventType = "gamification.quest.completed"
	EventAchievementUnlocked EventType = "gamification.achievement.unlocked"
	EventLevelUp             EventType = "gamification.profile.level_up"
	EventCycleRecorded       EventType = "cycles.cycle.recorded"
)

// Event is the envelope published to the event bus.
type Event struct {
	EventID    uuid.UUID       `json:"event_id"`
	UserID     uuid.UUID       `json:"user_id"`
	EventType  EventType       `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent builds an event with a fresh id. A payload that cannot be
// marshalled is sent as an empty object.
func NewEvent(userID uuid.UUID, eventType EventType, payload interface{}, at time.Time) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = json.RawMessage(`{}`)
	}
	return Event{
		EventID:    uuid.New(),
		UserID:     userID,
		EventType:  eventType,
		Payload:    data,
		OccurredAt: at,
	}
}

// CycleRecorded is the payload of EventCycleRecorded, produced by the CRUD layer.
type CycleRecorded struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Plan    Plan      `json:"plan"`
	CycleID uuid.UUID `json:"cycle_id"`
	// Timezone is an IANA zone name; empty means the service default.
	Timezone string `json:"tz,omitempty"`
}

// LevelUp is the payload of EventLevelUp.
type LevelUp struct {
	From int `json:"from"`
	To   int `json:"to"`
}
