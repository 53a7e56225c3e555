package gamification

import (
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// Totals are the cumulative aggregates achievements are measured against.
type Totals struct {
	Volume     int
	Profit     float64
	Chest      float64
	AnyWin     bool
	WinStreak  int // longest run of profitable cycles
	StreakDays int // consecutive activity days ending today or yesterday
}

// ComputeTotals aggregates a cycle history. Day boundaries for StreakDays
// are taken in loc.
func ComputeTotals(cycles []domain.Cycle, now time.Time, loc *time.Location) Totals {
	var t Totals
	for _, c := range cycles {
		t.Volume++
		t.Profit += c.Profit
		t.Chest += c.Chest
		if c.Profit > 0 {
			t.AnyWin = true
		}
	}
	t.WinStreak = LongestWinStreak(cycles)
	t.StreakDays = CalculateStreak(cycles, now, loc)
	return t
}

// EvaluateAchievements checks every locked achievement against the history
// and returns the updated list along with the entries unlocked in this pass.
// Unlocked achievements are passed through untouched.
func (e *Engine) EvaluateAchievements(achievements []domain.Achievement, cycles []domain.Cycle, now time.Time, loc *time.Location) ([]domain.Achievement, []domain.Achievement) {
	totals := ComputeTotals(domain.ActiveCycles(cycles), now, loc)

	var unlocked []domain.Achievement
	out := make([]domain.Achievement, len(achievements))
	for i, a := range achievements {
		if a.Unlocked {
			out[i] = a
			continue
		}

		var current float64
		reached := false
		switch e.catalog.rules[a.ID] {
		case aggVolume:
			current = float64(totals.Volume)
			reached = a.Target > 0 && current >= a.Target
		case aggProfit:
			current = totals.Profit
			reached = a.Target > 0 && current >= a.Target
		case aggChest:
			current = totals.Chest
			reached = a.Target > 0 && current >= a.Target
		case aggWinStreak:
			current = float64(totals.WinStreak)
			reached = a.Target > 0 && current >= a.Target
		case aggStreakDays:
			current = float64(totals.StreakDays)
			reached = a.Target > 0 && current >= a.Target
		case aggFirstWin:
			reached = totals.AnyWin
		}

		a.CurrentValue = current
		if reached {
			at := now
			a.Unlocked = true
			a.UnlockedAt = &at
			a.Progress = 100
			unlocked = append(unlocked, a)
		} else {
			a.Progress = percent(current, a.Target)
		}
		out[i] = a
	}
	return out, unlocked
}

func percent(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	p := current / target * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
