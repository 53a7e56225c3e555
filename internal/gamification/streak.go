package gamification

import (
	"sort"
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// CalculateStreak counts consecutive activity days ending today or yesterday.
// A history whose latest day is older than yesterday has no streak.
// Unparseable dates are ignored.
func CalculateStreak(cycles []domain.Cycle, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	seen := make(map[string]time.Time)
	for _, c := range cycles {
		if c.IsDeleted() {
			continue
		}
		if _, ok := seen[c.Date]; ok {
			continue
		}
		d, err := time.ParseInLocation(domain.DateLayout, c.Date, loc)
		if err != nil {
			continue
		}
		seen[c.Date] = d
	}
	if len(seen) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			break
		}
		streak++
	}
	return streak
}
