package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// UserContext carries what the engine needs to know about a user.
type UserContext struct {
	ID       uuid.UUID
	Email    string
	Plan     Plan
	Location *time.Location
}

// IsPro reports whether the user has access to pro-only quests.
func (u UserContext) IsPro() bool {
	return u.Plan == PlanPro
}

// Loc returns the user's location, falling back to the process-local zone.
func (u UserContext) Loc() *time.Location {
	if u.Location == nil {
		return time.Local
	}
	return u.Location
}
