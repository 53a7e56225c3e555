package gamification

import (
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// Window identifies one generation period of a frequency.
type Window struct {
	Frequency domain.Frequency
	Anchor    string // first day of the window
	ExpiresAt string
}

// WindowFor returns the window that contains now, in loc.
//
// Daily windows anchor on the current day and expire on it. Weekly windows
// anchor on Monday (a Sunday belongs to the week that started six days
// earlier) and expire seven days later. Monthly windows anchor on the first
// of the month and expire one month later.
func WindowFor(freq domain.Frequency, now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var anchor, expiry time.Time
	switch freq {
	case domain.FrequencyWeekly:
		wd := int(day.Weekday())
		diff := 1 - wd
		if wd == 0 {
			diff = -6
		}
		anchor = day.AddDate(0, 0, diff)
		expiry = anchor.AddDate(0, 0, 7)
	case domain.FrequencyMonthly:
		anchor = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		expiry = anchor.AddDate(0, 1, 0)
	default:
		anchor = day
		expiry = day
	}
	return Window{
		Frequency: freq,
		Anchor:    anchor.Format(domain.DateLayout),
		ExpiresAt: expiry.Format(domain.DateLayout),
	}
}
