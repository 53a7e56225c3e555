package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is granted to every new profile.
const DefaultTitle = "Rookie"

// Profile is the per-user gamification aggregate.
type Profile struct {
	Level          int      `json:"level"`
	CurrentXP      int      `json:"current_xp"`
	NextLevelXP    int      `json:"next_level_xp"`
	TotalXP        int      `json:"total_xp"`
	StreakDays     int      `json:"streak_days"`
	LastActiveDate string   `json:"last_active_date"`
	Titles         []string `json:"titles"`
	EquippedTitle  string   `json:"equipped_title,omitempty"`
}

// DefaultProfile returns the profile of a user that has never been evaluated.
func DefaultProfile() Profile {
	return Profile{
		Level:         1,
		NextLevelXP:   100,
		Titles:        []string{DefaultTitle},
		EquippedTitle: DefaultTitle,
	}
}

// WithDefaults fills zero-valued fields of p from DefaultProfile.
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if p.Level < 1 {
		p.Level = d.Level
	}
	if p.NextLevelXP <= 0 {
		p.NextLevelXP = d.NextLevelXP
	}
	if p.CurrentXP < 0 {
		p.CurrentXP = 0
	}
	if p.TotalXP < 0 {
		p.TotalXP = 0
	}
	if p.StreakDays < 0 {
		p.StreakDays = 0
	}
	if len(p.Titles) == 0 {
		p.Titles = d.Titles
	}
	if p.EquippedTitle == "" {
		p.EquippedTitle = p.Titles[0]
	}
	return p
}

// State is the durable gamification state of one user. It is always written
// back as a whole.
type State struct {
	UserID       uuid.UUID     `json:"user_id"`
	Profile      Profile       `json:"profile"`
	ActiveQuests []ActiveQuest `json:"active_quests"`
	History      []ActiveQuest `json:"history,omitempty"`
	Achievements []Achievement `json:"achievements"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Version      int64         `json:"version"` // stored version the state was computed from or saved as
}

// Clone returns a deep copy so a snapshot can be handed out without sharing slices.
func (s State) Clone() State {
	out := s
	out.Profile.Titles = append([]string(nil), s.Profile.Titles...)
	out.ActiveQuests = cloneQuests(s.ActiveQuests)
	out.History = cloneQuests(s.History)
	out.Achievements = make([]Achievement, len(s.Achievements))
	for i, a := range s.Achievements {
		if a.UnlockedAt != nil {
			t := *a.UnlockedAt
			a.UnlockedAt = &t
		}
		out.Achievements[i] = a
	}
	return out
}

func cloneQuests(in []ActiveQuest) []ActiveQuest {
	if in == nil {
		return nil
	}
	out := make([]ActiveQuest, len(in))
	for i, q := range in {
		if q.CompletedAt != nil {
			t := *q.CompletedAt
			q.CompletedAt = &t
		}
		out[i] = q
	}
	return out
}
