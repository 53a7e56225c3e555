package gamification

import (
	"strings"
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// FirstWinID is the achievement unlocked by the first profitable cycle.
const FirstWinID = "ach_win"

// SniperID is the achievement for a run of profitable cycles.
const SniperID = "ach_sniper"

// aggregate names the cumulative figure an achievement is measured against.
type aggregate int

const (
	aggNone aggregate = iota
	aggVolume
	aggProfit
	aggChest
	aggFirstWin
	aggWinStreak
	aggStreakDays
)

// Catalog is the static registry of quest templates and achievements with
// keyed lookups built once.
type Catalog struct {
	templates    []domain.QuestTemplate
	byID         map[string]domain.QuestTemplate
	achievements []domain.Achievement
	achByID      map[string]domain.Achievement
	rules        map[string]aggregate
}

// NewCatalog indexes the given templates and achievements. Later duplicates
// of an id are ignored.
func NewCatalog(templates []domain.QuestTemplate, achievements []domain.Achievement) *Catalog {
	c := &Catalog{
		byID:    make(map[string]domain.QuestTemplate, len(templates)),
		achByID: make(map[string]domain.Achievement, len(achievements)),
		rules:   make(map[string]aggregate, len(achievements)),
	}
	for _, t := range templates {
		if _, dup := c.byID[t.ID]; dup || t.ID == "" {
			continue
		}
		c.byID[t.ID] = t
		c.templates = append(c.templates, t)
	}
	for _, a := range achievements {
		if _, dup := c.achByID[a.ID]; dup || a.ID == "" {
			continue
		}
		a.Unlocked = false
		a.UnlockedAt = nil
		c.achByID[a.ID] = a
		c.achievements = append(c.achievements, a)
		c.rules[a.ID] = ruleFor(a.ID)
	}
	return c
}

func ruleFor(id string) aggregate {
	switch {
	case id == FirstWinID:
		return aggFirstWin
	case id == "ach_start":
		return aggVolume
	case id == "ach_chest":
		return aggChest
	case id == SniperID:
		return aggWinStreak
	case strings.HasPrefix(id, "ach_str"):
		return aggStreakDays
	case strings.HasPrefix(id, "ach_vol"):
		return aggVolume
	case strings.HasPrefix(id, "ach_prof"):
		return aggProfit
	}
	return aggNone
}

// Template looks up a quest template by id.
func (c *Catalog) Template(id string) (domain.QuestTemplate, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Templates returns every quest template in catalog order.
func (c *Catalog) Templates() []domain.QuestTemplate {
	return append([]domain.QuestTemplate(nil), c.templates...)
}

// Pool returns the templates of one frequency in catalog order, without
// pro-only entries unless pro is set.
func (c *Catalog) Pool(freq domain.Frequency, pro bool) []domain.QuestTemplate {
	var pool []domain.QuestTemplate
	for _, t := range c.templates {
		if t.Frequency != freq {
			continue
		}
		if t.ProOnly && !pro {
			continue
		}
		pool = append(pool, t)
	}
	return pool
}

// Achievements returns a fresh, fully locked copy of the achievement catalog.
func (c *Catalog) Achievements() []domain.Achievement {
	return append([]domain.Achievement(nil), c.achievements...)
}

// Achievement looks up an achievement definition by id.
func (c *Catalog) Achievement(id string) (domain.Achievement, bool) {
	a, ok := c.achByID[id]
	return a, ok
}

// HydrateQuests maps persisted quest records back onto their templates.
// Records that reference an unknown template are dropped.
func (c *Catalog) HydrateQuests(records []domain.QuestRecord) []domain.ActiveQuest {
	out := make([]domain.ActiveQuest, 0, len(records))
	for _, r := range records {
		t, ok := c.byID[r.MissionID]
		if !ok {
			continue
		}
		q := domain.ActiveQuest{
			QuestTemplate: t,
			CurrentValue:  r.Progress,
			Completed:     r.Completed,
			CompletedAt:   r.CompletedAt,
			GeneratedAt:   r.GeneratedAt,
			ExpiresAt:     r.ExpiresAt,
		}
		if r.Target != nil && *r.Target > 0 {
			q.Target = *r.Target
		}
		out = append(out, q)
	}
	return out
}

// MergeUnlocks overlays persisted unlocks onto a fresh copy of the catalog.
// Unlocks for unknown achievements are dropped.
func (c *Catalog) MergeUnlocks(unlocks []domain.UnlockRecord, now time.Time) []domain.Achievement {
	byID := make(map[string]domain.UnlockRecord, len(unlocks))
	for _, u := range unlocks {
		byID[u.AchievementID] = u
	}
	out := c.Achievements()
	for i, a := range out {
		u, ok := byID[a.ID]
		if !ok {
			continue
		}
		at := now
		if u.UnlockedAt != nil {
			at = *u.UnlockedAt
		}
		a.Unlocked = true
		a.UnlockedAt = &at
		a.Progress = 100
		out[i] = a
	}
	return out
}

// Records converts quests back to their persisted form.
func Records(quests []domain.ActiveQuest) []domain.QuestRecord {
	out := make([]domain.QuestRecord, 0, len(quests))
	for _, q := range quests {
		target := q.Target
		out = append(out, domain.QuestRecord{
			MissionID:   q.ID,
			Frequency:   q.Frequency,
			Progress:    q.CurrentValue,
			Target:      &target,
			Completed:   q.Completed,
			CompletedAt: q.CompletedAt,
			GeneratedAt: q.GeneratedAt,
			ExpiresAt:   q.ExpiresAt,
		})
	}
	return out
}

// UnlockRecords returns the persisted form of every unlocked achievement.
func UnlockRecords(achievements []domain.Achievement) []domain.UnlockRecord {
	var out []domain.UnlockRecord
	for _, a := range achievements {
		if !a.Unlocked {
			continue
		}
		out = append(out, domain.UnlockRecord{AchievementID: a.ID, UnlockedAt: a.UnlockedAt})
	}
	return out
}
