package gamification

import (
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

// maxDrawAttempts bounds redraws on a collision before falling back to the
// next unused index.
const maxDrawAttempts = 20

// Engine evaluates quests and achievements against one catalog. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an engine over the given catalog.
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// QuestCount returns how many quests a window of freq holds.
func QuestCount(freq domain.Frequency) int {
	if freq == domain.FrequencyMonthly {
		return 2
	}
	return 3
}

// GenerateQuests returns the quest set of the current window for freq.
//
// When existing already holds quests of freq anchored on the current window
// they are returned unchanged. Otherwise a fresh set is drawn from the
// frequency pool with a generator seeded from the window anchor and the
// user's email, so the same user and window always get the same quests.
func (e *Engine) GenerateQuests(user domain.UserContext, freq domain.Frequency, existing []domain.ActiveQuest, now time.Time) []domain.ActiveQuest {
	w := WindowFor(freq, now, user.Loc())

	var current []domain.ActiveQuest
	for _, q := range existing {
		if q.Frequency == freq && q.GeneratedAt == w.Anchor {
			current = append(current, q)
		}
	}
	if len(current) > 0 {
		return current
	}

	pool := e.catalog.Pool(freq, user.IsPro())
	count := QuestCount(freq)
	if count > len(pool) {
		count = len(pool)
	}

	rng := newSplitMix(questSeed(w.Anchor, user.Email))
	used := make(map[int]bool, count)
	out := make([]domain.ActiveQuest, 0, count)
	for i := 0; i < count; i++ {
		idx := rng.intn(len(pool))
		for attempt := 0; used[idx] && attempt < maxDrawAttempts; attempt++ {
			idx = rng.intn(len(pool))
		}
		for used[idx] {
			idx = (idx + 1) % len(pool)
		}
		used[idx] = true

		out = append(out, domain.ActiveQuest{
			QuestTemplate: pool[idx],
			GeneratedAt:   w.Anchor,
			ExpiresAt:     w.ExpiresAt,
		})
	}
	return out
}

// RotateQuests generates every frequency and splits existing quests into the
// current set and those whose window has passed.
func (e *Engine) RotateQuests(user domain.UserContext, existing []domain.ActiveQuest, now time.Time) (active, expired []domain.ActiveQuest) {
	current := make(map[domain.Frequency]string, len(domain.Frequencies))
	for _, freq := range domain.Frequencies {
		active = append(active, e.GenerateQuests(user, freq, existing, now)...)
		current[freq] = WindowFor(freq, now, user.Loc()).Anchor
	}
	for _, q := range existing {
		if anchor, ok := current[q.Frequency]; ok && anchor == q.GeneratedAt {
			continue
		}
		expired = append(expired, q)
	}
	return active, expired
}
