package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for cycle dates and window anchors.
const DateLayout = "2006-01-02"

// ProfitTolerance is the largest allowed gap between a stored profit and the
// derived one before the stored value is discarded.
var ProfitTolerance = decimal.NewFromFloat(0.01)

// Cycle is one recorded deposit/withdrawal round on a platform.
// Cycles are append-only from the engine's point of view.
type Cycle struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Date       string     `json:"date"` // YYYY-MM-DD, local to the user
	Deposit    float64    `json:"deposit"`
	Withdrawal float64    `json:"withdrawal"`
	Chest      float64    `json:"chest"`
	Profit     float64    `json:"profit"`
	Platform   string     `json:"platform"`
	Notes      string     `json:"notes,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// DerivedProfit returns withdrawal + chest - deposit.
func (c Cycle) DerivedProfit() float64 {
	return derivedProfit(c).InexactFloat64()
}

// IsDeleted reports whether the cycle carries a soft-delete marker.
func (c Cycle) IsDeleted() bool {
	return c.DeletedAt != nil
}

// HasTags reports whether at least one non-empty tag is attached.
func (c Cycle) HasTags() bool {
	for _, t := range c.Tags {
		if t != "" {
			return true
		}
	}
	return false
}

// NormalizeCycle replaces the stored profit with the derived one when they
// diverge by more than ProfitTolerance.
func NormalizeCycle(c Cycle) Cycle {
	derived := derivedProfit(c)
	if decimal.NewFromFloat(c.Profit).Sub(derived).Abs().GreaterThan(ProfitTolerance) {
		c.Profit = derived.InexactFloat64()
	}
	return c
}

// ActiveCycles drops soft-deleted cycles and normalizes profit on the rest.
func ActiveCycles(cycles []Cycle) []Cycle {
	out := make([]Cycle, 0, len(cycles))
	for _, c := range cycles {
		if c.IsDeleted() {
			continue
		}
		out = append(out, NormalizeCycle(c))
	}
	return out
}

// LocalDate formats t as a calendar day in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

func derivedProfit(c Cycle) decimal.Decimal {
	return decimal.NewFromFloat(c.Withdrawal).
		Add(decimal.NewFromFloat(c.Chest)).
		Sub(decimal.NewFromFloat(c.Deposit))
}
