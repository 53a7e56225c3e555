package gamification

import (
	"sort"
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// HeavyLossThreshold is the per-cycle profit below which a discipline quest fails.
const HeavyLossThreshold = -100.0

const (
	morningEndHour = 12
	nightStartHour = 20
)

// EvaluateQuests recomputes progress of every open quest and returns a new
// slice along with the experience earned by quests completed in this pass.
//
// Daily quests only see cycles dated today. Weekly and monthly quests see the
// whole history the caller passes in.
func (e *Engine) EvaluateQuests(quests []domain.ActiveQuest, cycles []domain.Cycle, user domain.UserContext, now time.Time) ([]domain.ActiveQuest, int) {
	loc := user.Loc()
	history := domain.ActiveCycles(cycles)
	today := domain.LocalDate(now, loc)
	var todays []domain.Cycle
	for _, c := range history {
		if c.Date == today {
			todays = append(todays, c)
		}
	}

	xp := 0
	out := make([]domain.ActiveQuest, len(quests))
	for i, q := range quests {
		if q.Completed {
			out[i] = q
			continue
		}
		scope := history
		if q.Frequency == domain.FrequencyDaily {
			scope = todays
		}
		q.CurrentValue = measure(q.QuestTemplate, scope, loc)
		if q.CurrentValue >= q.Target {
			q.Completed = true
			at := now
			q.CompletedAt = &at
			xp += q.RewardXP
		}
		out[i] = q
	}
	return out, xp
}

func measure(t domain.QuestTemplate, cycles []domain.Cycle, loc *time.Location) float64 {
	switch t.Metric {
	case domain.MetricVolume:
		return float64(len(cycles))
	case domain.MetricProfit:
		return sumProfit(cycles)
	case domain.MetricTags:
		n := 0
		for _, c := range cycles {
			if c.HasTags() {
				n++
			}
		}
		return float64(n)
	case domain.MetricDiscipline:
		for _, c := range cycles {
			if c.Profit < HeavyLossThreshold {
				return 0
			}
		}
		return 1
	case domain.MetricTime:
		return float64(countInBracket(cycles, t.Bracket, loc))
	case domain.MetricStreak:
		return float64(LongestWinStreak(cycles))
	case domain.MetricConsistency:
		return float64(distinctDates(cycles))
	}
	return 0
}

func sumProfit(cycles []domain.Cycle) float64 {
	var total float64
	for _, c := range cycles {
		total += c.Profit
	}
	return total
}

func countInBracket(cycles []domain.Cycle, b domain.TimeBracket, loc *time.Location) int {
	n := 0
	for _, c := range cycles {
		h := c.CreatedAt.In(loc).Hour()
		switch b {
		case domain.BracketMorning:
			if h < morningEndHour {
				n++
			}
		case domain.BracketNight:
			if h >= nightStartHour {
				n++
			}
		}
	}
	return n
}

func distinctDates(cycles []domain.Cycle) int {
	seen := make(map[string]struct{}, len(cycles))
	for _, c := range cycles {
		seen[c.Date] = struct{}{}
	}
	return len(seen)
}

// LongestWinStreak returns the longest run of consecutive profitable cycles,
// ordered by creation time. Any cycle with profit <= 0 breaks the run.
func LongestWinStreak(cycles []domain.Cycle) int {
	sorted := append([]domain.Cycle(nil), cycles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	best, run := 0, 0
	for _, c := range sorted {
		if c.Profit > 0 {
			run++
		} else {
			run = 0
		}
		if run > best {
			best = run
		}
	}
	return best
}
