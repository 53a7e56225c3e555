package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/gamification"
	"github.com/cyclelog/platform/internal/guard"
	"github.com/cyclelog/platform/internal/metrics"
	"github.com/cyclelog/platform/internal/projection"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CycleSource reads a user's cycle history.
type CycleSource interface {
	History(ctx context.Context, userID uuid.UUID) ([]domain.Cycle, error)
}

// StateStore loads and saves persisted gamification state. Save must write
// the state and events atomically.
type StateStore interface {
	Load(ctx context.Context, userID uuid.UUID) (domain.StoredState, bool, error)
	Save(ctx context.Context, state domain.StoredState, events []domain.Event) error
}

// RefreshResult is the outcome of one evaluation pass.
type RefreshResult struct {
	State           domain.State         `json:"state"`
	CompletedQuests []domain.ActiveQuest `json:"completed_quests"`
	Unlocked        []domain.Achievement `json:"unlocked"`
	LevelUp         *domain.LevelUp      `json:"level_up,omitempty"`
	XPGained        int                  `json:"xp_gained"`
	Changed         bool                 `json:"changed"`
	Saved           bool                 `json:"saved"`
}

// GamificationService runs evaluation passes and serves snapshots.
type GamificationService struct {
	cycles      CycleSource
	store       StateStore
	cache       projection.Store
	engine      *gamification.Engine
	locks       *guard.UserLocks
	snapshotTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewGamificationService creates a GamificationService. cache may be nil.
func NewGamificationService(
	cycles CycleSource,
	store StateStore,
	cache projection.Store,
	engine *gamification.Engine,
	snapshotTTL time.Duration,
	logger *slog.Logger,
) *GamificationService {
	if engine == nil {
		engine = gamification.NewEngine(nil)
	}
	return &GamificationService{
		cycles:      cycles,
		store:       store,
		cache:       cache,
		engine:      engine,
		locks:       guard.NewUserLocks(),
		snapshotTTL: snapshotTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Catalog exposes the quest and achievement catalog in use.
func (s *GamificationService) Catalog() *gamification.Catalog {
	return s.engine.Catalog()
}

// maxPassAttempts bounds how often a pass is rerun after losing a save race.
const maxPassAttempts = 3

// Refresh runs one full pass for the user: rotate and evaluate quests,
// evaluate achievements, recompute streak and level, then persist when
// anything changed. Passes for the same user run one at a time in this
// process; a pass that loses a save race to another process is rerun on
// the fresh state.
//
// A failure to load history aborts the pass. A failure to load state
// degrades to the default state and the pass is not saved. A failure to
// save is logged and the computed state is still returned.
func (s *GamificationService) Refresh(ctx context.Context, user domain.UserContext) (*RefreshResult, error) {
	started := time.Now()

	release, err := s.locks.Acquire(ctx, user.ID.String())
	if err != nil {
		metrics.RecordPass(metrics.OutcomeError, time.Since(started))
		return nil, domain.ErrBusy("another evaluation is in progress")
	}
	defer release()

	var (
		result  *RefreshResult
		outcome string
	)
	for attempt := 1; ; attempt++ {
		result, outcome, err = s.pass(ctx, user)
		if err != nil {
			metrics.RecordPass(metrics.OutcomeError, time.Since(started))
			return nil, err
		}
		if outcome != metrics.OutcomeConflict || attempt == maxPassAttempts {
			break
		}
		s.logger.Debug("gamification state moved, rerunning pass", "user_id", user.ID, "attempt", attempt)
	}

	if outcome == metrics.OutcomeSaved || outcome == metrics.OutcomeUnchanged {
		s.cacheSnapshot(ctx, result.State)
	}
	metrics.RecordPass(outcome, time.Since(started))

	s.logger.Info("gamification pass",
		"user_id", user.ID,
		"outcome", outcome,
		"xp_gained", result.XPGained,
		"quests_completed", len(result.CompletedQuests),
		"achievements_unlocked", len(result.Unlocked),
		"level", result.State.Profile.Level,
	)
	return result, nil
}

// pass loads, evaluates and saves once.
func (s *GamificationService) pass(ctx context.Context, user domain.UserContext) (*RefreshResult, string, error) {
	var (
		history  []domain.Cycle
		stored   domain.StoredState
		found    bool
		stateErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.cycles.History(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("load cycle history: %w", err)
		}
		history = h
		return nil
	})
	g.Go(func() error {
		stored, found, stateErr = s.store.Load(gctx, user.ID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", domain.ErrInternal("load cycle history", err)
	}
	if stateErr != nil {
		if errors.Is(stateErr, context.Canceled) || errors.Is(stateErr, context.DeadlineExceeded) {
			return nil, "", stateErr
		}
		s.logger.Warn("state load failed, using defaults", "user_id", user.ID, "error", stateErr)
		stored = domain.StoredState{}
		found = false
	}

	now := s.now()
	prev := s.hydrate(user.ID, stored, now)
	result := s.evaluate(user, prev, history, now)
	events := s.events(user.ID, result, now)

	next := s.persisted(result.State)
	result.Changed = !found || changed(s.persisted(prev), next)

	switch {
	case stateErr != nil:
		return result, metrics.OutcomeDegraded, nil
	case !result.Changed:
		return result, metrics.OutcomeUnchanged, nil
	}

	next.Version = prev.Version
	if err := s.store.Save(ctx, next, events); err != nil {
		if domain.HasCode(err, domain.CodeConflict) {
			return result, metrics.OutcomeConflict, nil
		}
		s.logger.Error("save gamification state failed", "user_id", user.ID, "error", err)
		return result, metrics.OutcomeSaveFailed, nil
	}
	result.Saved = true
	result.State.Version = prev.Version + 1
	s.recordSaved(result)
	return result, metrics.OutcomeSaved, nil
}

// Snapshot returns the cached state when it was computed for the user's
// current local day, otherwise runs a pass.
func (s *GamificationService) Snapshot(ctx context.Context, user domain.UserContext) (*domain.State, error) {
	if s.cache != nil {
		cached, err := projection.GetSnapshot(ctx, s.cache, user.ID)
		switch {
		case err == nil && cached.Profile.LastActiveDate == domain.LocalDate(s.now(), user.Loc()):
			return cached, nil
		case err == nil:
			s.logger.Debug("snapshot from a previous day, rerunning pass", "user_id", user.ID, "cached_day", cached.Profile.LastActiveDate)
		case !errors.Is(err, projection.ErrNotFound):
			s.logger.Warn("snapshot cache read failed", "user_id", user.ID, "error", err)
		}
	}

	result, err := s.Refresh(ctx, user)
	if err != nil {
		return nil, err
	}
	return &result.State, nil
}

// hydrate maps stored records onto the catalog.
func (s *GamificationService) hydrate(userID uuid.UUID, stored domain.StoredState, now time.Time) domain.State {
	catalog := s.engine.Catalog()
	return domain.State{
		UserID:       userID,
		Profile:      stored.Profile.WithDefaults(),
		ActiveQuests: catalog.HydrateQuests(stored.Quests),
		Achievements: catalog.MergeUnlocks(stored.Unlocks, now),
		UpdatedAt:    stored.UpdatedAt,
		Version:      stored.Version,
	}
}

func (s *GamificationService) evaluate(user domain.UserContext, prev domain.State, history []domain.Cycle, now time.Time) *RefreshResult {
	active, expired := s.engine.RotateQuests(user, prev.ActiveQuests, now)
	evaluated, questXP := s.engine.EvaluateQuests(active, history, user, now)

	result := &RefreshResult{}
	for i, q := range evaluated {
		if q.Completed && !active[i].Completed {
			result.CompletedQuests = append(result.CompletedQuests, q)
		}
	}

	achievements, unlocked := s.engine.EvaluateAchievements(prev.Achievements, history, now, user.Loc())
	result.Unlocked = unlocked
	unlockXP := 0
	for _, a := range unlocked {
		unlockXP += a.RewardXP
	}

	total := prev.Profile.TotalXP + questXP + unlockXP
	if floor := earnedXP(evaluated, expired, achievements); floor > total {
		total = floor
	}
	result.XPGained = total - prev.Profile.TotalXP

	level := gamification.CalculateLevel(total)
	profile := prev.Profile
	profile.TotalXP = total
	profile.Level = level.Level
	profile.CurrentXP = level.CurrentXP
	profile.NextLevelXP = level.NextLevelXP
	profile.StreakDays = gamification.CalculateStreak(history, now, user.Loc())
	profile.LastActiveDate = domain.LocalDate(now, user.Loc())

	if profile.Level > prev.Profile.Level {
		result.LevelUp = &domain.LevelUp{From: prev.Profile.Level, To: profile.Level}
	}

	result.State = domain.State{
		UserID:       user.ID,
		Profile:      profile,
		ActiveQuests: evaluated,
		History:      expired,
		Achievements: achievements,
		UpdatedAt:    now,
		Version:      prev.Version,
	}
	return result
}

// earnedXP is the XP implied by everything completed or unlocked so far.
func earnedXP(active, history []domain.ActiveQuest, achievements []domain.Achievement) int {
	xp := 0
	for _, q := range active {
		if q.Completed {
			xp += q.RewardXP
		}
	}
	for _, q := range history {
		if q.Completed {
			xp += q.RewardXP
		}
	}
	for _, a := range achievements {
		if a.Unlocked {
			xp += a.RewardXP
		}
	}
	return xp
}

func (s *GamificationService) events(userID uuid.UUID, r *RefreshResult, now time.Time) []domain.Event {
	var events []domain.Event
	for _, q := range r.CompletedQuests {
		events = append(events, domain.NewEvent(userID, domain.EventQuestCompleted, map[string]interface{}{
			"quest_id":     q.ID,
			"frequency":    q.Frequency,
			"reward_xp":    q.RewardXP,
			"generated_at": q.GeneratedAt,
		}, now))
	}
	for _, a := range r.Unlocked {
		events = append(events, domain.NewEvent(userID, domain.EventAchievementUnlocked, map[string]interface{}{
			"achievement_id": a.ID,
			"reward_xp":      a.RewardXP,
		}, now))
	}
	if r.LevelUp != nil {
		events = append(events, domain.NewEvent(userID, domain.EventLevelUp, r.LevelUp, now))
	}
	return events
}

func (s *GamificationService) persisted(state domain.State) domain.StoredState {
	quests := append(gamification.Records(state.ActiveQuests), gamification.Records(state.History)...)
	return domain.StoredState{
		UserID:    state.UserID,
		Profile:   state.Profile,
		Quests:    quests,
		Unlocks:   gamification.UnlockRecords(state.Achievements),
		UpdatedAt: state.UpdatedAt,
	}
}

func (s *GamificationService) recordSaved(r *RefreshResult) {
	for _, q := range r.CompletedQuests {
		metrics.RecordQuestCompleted(string(q.Frequency))
	}
	metrics.RecordUnlocks(len(r.Unlocked))
	if r.LevelUp != nil {
		metrics.RecordLevelUp()
	}
}

func (s *GamificationService) cacheSnapshot(ctx context.Context, state domain.State) {
	if s.cache == nil {
		return
	}
	if err := projection.PutSnapshot(ctx, s.cache, state, s.snapshotTTL); err != nil {
		s.logger.Warn("snapshot cache write failed", "user_id", state.UserID, "error", err)
	}
}

// changed compares two persisted states by value. LastActiveDate and
// timestamps do not count as changes.
func changed(a, b domain.StoredState) bool {
	pa, pb := a.Profile, b.Profile
	pa.LastActiveDate, pb.LastActiveDate = "", ""
	if !profilesEqual(pa, pb) {
		return true
	}

	if len(a.Quests) != len(b.Quests) {
		return true
	}
	type questKey struct{ id, anchor string }
	prev := make(map[questKey]domain.QuestRecord, len(a.Quests))
	for _, q := range a.Quests {
		prev[questKey{q.MissionID, q.GeneratedAt}] = q
	}
	for _, q := range b.Quests {
		p, ok := prev[questKey{q.MissionID, q.GeneratedAt}]
		if !ok || p.Progress != q.Progress || p.Completed != q.Completed || p.ExpiresAt != q.ExpiresAt || targetOf(p) != targetOf(q) {
			return true
		}
	}

	if len(a.Unlocks) != len(b.Unlocks) {
		return true
	}
	unlocked := make(map[string]bool, len(a.Unlocks))
	for _, u := range a.Unlocks {
		unlocked[u.AchievementID] = true
	}
	for _, u := range b.Unlocks {
		if !unlocked[u.AchievementID] {
			return true
		}
	}
	return false
}

func profilesEqual(a, b domain.Profile) bool {
	if a.Level != b.Level || a.CurrentXP != b.CurrentXP || a.NextLevelXP != b.NextLevelXP ||
		a.TotalXP != b.TotalXP || a.StreakDays != b.StreakDays || a.EquippedTitle != b.EquippedTitle ||
		len(a.Titles) != len(b.Titles) {
		return false
	}
	for i := range a.Titles {
		if a.Titles[i] != b.Titles[i] {
			return false
		}
	}
	return true
}

func targetOf(q domain.QuestRecord) float64 {
	if q.Target == nil {
		return 0
	}
	return *q.Target
}
