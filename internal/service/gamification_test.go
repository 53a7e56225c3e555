package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/gamification"
	"github.com/cyclelog/platform/internal/projection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCycles struct {
	mu     sync.Mutex
	cycles []domain.Cycle
	err    error
}

func (f *fakeCycles) History(_ context.Context, _ uuid.UUID) ([]domain.Cycle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Cycle(nil), f.cycles...), nil
}

func (f *fakeCycles) add(c domain.Cycle) {
	f.mu.Lock()
	f.cycles = append(f.cycles, c)
	f.mu.Unlock()
}

// fakeStore versions its state the way PgStateStore does: Save only
// succeeds against the version the state was loaded at.
type fakeStore struct {
	mu        sync.Mutex
	state     *domain.StoredState
	version   int64
	events    []domain.Event
	saves     int
	conflicts int
	loadErr   error
	saveErr   error
	loadHook  func()
	saveHook  func()
}

func (f *fakeStore) Load(_ context.Context, _ uuid.UUID) (domain.StoredState, bool, error) {
	if f.loadHook != nil {
		f.loadHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domain.StoredState{}, false, f.loadErr
	}
	if f.state == nil {
		return domain.StoredState{Profile: domain.DefaultProfile(), Version: f.version}, false, nil
	}
	st := *f.state
	st.Version = f.version
	return st, true, nil
}

func (f *fakeStore) Save(_ context.Context, state domain.StoredState, events []domain.Event) error {
	if f.saveHook != nil {
		f.saveHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if state.Version != f.version {
		f.conflicts++
		return domain.ErrConflict("stale state")
	}
	f.version++
	f.state = &state
	f.events = append(f.events, events...)
	f.saves++
	return nil
}

func (f *fakeStore) eventTypes() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.EventType
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testCatalog is small enough that every template is always drawn.
func testCatalog() *gamification.Catalog {
	return gamification.NewCatalog(
		[]domain.QuestTemplate{
			{ID: "d_start", Title: "Warm-up", Frequency: domain.FrequencyDaily, Metric: domain.MetricVolume, Target: 1, RewardXP: 50},
			{ID: "d_vol_3", Title: "Three", Frequency: domain.FrequencyDaily, Metric: domain.MetricVolume, Target: 3, RewardXP: 100},
			{ID: "w_profit", Title: "Weekly", Frequency: domain.FrequencyWeekly, Metric: domain.MetricProfit, Target: 1000, RewardXP: 600},
			{ID: "m_days", Title: "Monthly", Frequency: domain.FrequencyMonthly, Metric: domain.MetricConsistency, Target: 15, RewardXP: 1500},
		},
		[]domain.Achievement{
			{ID: "ach_start", Title: "First Step", RewardXP: 50, Target: 1},
			{ID: gamification.FirstWinID, Title: "First Green", RewardXP: 100},
			{ID: "ach_prof_1k", Title: "First K", RewardXP: 200, Target: 1000},
			{ID: "sec_perfect", Title: "Hand of God", RewardXP: 5000, Secret: true},
		},
	)
}

func newTestService(cycles *fakeCycles, store *fakeStore, cache projection.Store, now time.Time) *GamificationService {
	svc := NewGamificationService(cycles, store, cache, gamification.NewEngine(testCatalog()), time.Minute, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func testUser() domain.UserContext {
	return domain.UserContext{ID: uuid.New(), Email: "player@example.com", Plan: domain.PlanFree, Location: time.UTC}
}

func win(date string, hour int, profit float64) domain.Cycle {
	d, _ := time.Parse(domain.DateLayout, date)
	return domain.Cycle{ID: uuid.New(), Date: date, Deposit: 100, Withdrawal: 100 + profit, Profit: profit, CreatedAt: d.Add(time.Duration(hour) * time.Hour)}
}

var passTime = time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

func TestRefresh_NewUserWithoutHistory(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(&fakeCycles{}, store, nil, passTime)

	res, err := svc.Refresh(context.Background(), testUser())
	require.NoError(t, err)

	assert.True(t, res.Saved, "first pass persists the default state")
	assert.Equal(t, 1, res.State.Profile.Level)
	assert.Equal(t, 100, res.State.Profile.NextLevelXP)
	assert.Zero(t, res.XPGained)
	assert.Len(t, res.State.ActiveQuests, 4)
	assert.Empty(t, res.Unlocked)
	assert.Empty(t, store.eventTypes())
}

func TestRefresh_CompletesQuestsAndUnlocks(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 600), win("2026-10-16", 10, 500)}}
	store := &fakeStore{}
	svc := newTestService(cycles, store, nil, passTime)

	res, err := svc.Refresh(context.Background(), testUser())
	require.NoError(t, err)

	completed := make([]string, 0, len(res.CompletedQuests))
	for _, q := range res.CompletedQuests {
		completed = append(completed, q.ID)
	}
	assert.ElementsMatch(t, []string{"d_start", "w_profit"}, completed)

	unlocked := make([]string, 0, len(res.Unlocked))
	for _, a := range res.Unlocked {
		unlocked = append(unlocked, a.ID)
	}
	assert.ElementsMatch(t, []string{"ach_start", gamification.FirstWinID, "ach_prof_1k"}, unlocked)

	// 50 + 600 quest XP, 50 + 100 + 200 achievement XP.
	assert.Equal(t, 1000, res.XPGained)
	assert.Equal(t, 1000, res.State.Profile.TotalXP)
	assert.Equal(t, 4, res.State.Profile.Level)
	require.NotNil(t, res.LevelUp)
	assert.Equal(t, domain.LevelUp{From: 1, To: 4}, *res.LevelUp)
	assert.Equal(t, 1, res.State.Profile.StreakDays)

	assert.ElementsMatch(t, []domain.EventType{
		domain.EventQuestCompleted, domain.EventQuestCompleted,
		domain.EventAchievementUnlocked, domain.EventAchievementUnlocked, domain.EventAchievementUnlocked,
		domain.EventLevelUp,
	}, store.eventTypes())
}

func TestRefresh_SecondPassIsIdempotent(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 50)}}
	store := &fakeStore{}
	svc := newTestService(cycles, store, nil, passTime)
	user := testUser()

	first, err := svc.Refresh(context.Background(), user)
	require.NoError(t, err)
	require.True(t, first.Saved)
	eventsAfterFirst := len(store.eventTypes())

	second, err := svc.Refresh(context.Background(), user)
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.False(t, second.Saved)
	assert.Zero(t, second.XPGained)
	assert.Equal(t, first.State.Profile.TotalXP, second.State.Profile.TotalXP)
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.eventTypes(), eventsAfterFirst)
}

func TestRefresh_XPNeverDecreases(t *testing.T) {
	cycles := &fakeCycles{}
	store := &fakeStore{}
	user := testUser()
	ctx := context.Background()

	prev := 0
	for day := 0; day < 20; day++ {
		now := passTime.AddDate(0, 0, day)
		date := now.Format(domain.DateLayout)
		profit := 200.0
		if day%3 == 0 {
			profit = -400
		}
		cycles.add(win(date, 9, profit))

		svc := newTestService(cycles, store, nil, now)
		res, err := svc.Refresh(ctx, user)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.State.Profile.TotalXP, prev, "day %d", day)
		prev = res.State.Profile.TotalXP
	}
}

func TestRefresh_RotatesExpiredQuestsToHistory(t *testing.T) {
	store := &fakeStore{}
	user := testUser()
	ctx := context.Background()

	_, err := newTestService(&fakeCycles{}, store, nil, passTime).Refresh(ctx, user)
	require.NoError(t, err)

	res, err := newTestService(&fakeCycles{}, store, nil, passTime.AddDate(0, 0, 1)).Refresh(ctx, user)
	require.NoError(t, err)

	for _, q := range res.State.ActiveQuests {
		if q.Frequency == domain.FrequencyDaily {
			assert.Equal(t, "2026-10-17", q.GeneratedAt)
		}
	}
	require.Len(t, res.State.History, 2)
	for _, q := range res.State.History {
		assert.Equal(t, "2026-10-16", q.GeneratedAt)
	}
	assert.Len(t, store.state.Quests, 6)
}

func TestRefresh_HistoryFailureAborts(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(&fakeCycles{err: errors.New("connection reset")}, store, nil, passTime)

	_, err := svc.Refresh(context.Background(), testUser())
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	assert.Zero(t, store.saves)
}

func TestRefresh_StateLoadFailureDegradesWithoutSaving(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 50)}}
	store := &fakeStore{loadErr: errors.New("timeout")}
	cache := projection.NewInMemoryStore()
	svc := newTestService(cycles, store, cache, passTime)
	user := testUser()

	res, err := svc.Refresh(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotEmpty(t, res.State.ActiveQuests)
	assert.Zero(t, store.saves)

	_, err = projection.GetSnapshot(context.Background(), cache, user.ID)
	assert.ErrorIs(t, err, projection.ErrNotFound)
}

func TestRefresh_SaveFailureStillReturnsSnapshot(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 50)}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := newTestService(cycles, store, nil, passTime)

	res, err := svc.Refresh(context.Background(), testUser())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Saved)
	assert.Positive(t, res.State.Profile.TotalXP)
	assert.Empty(t, store.eventTypes())
}

func TestRefresh_HonoursCancelledContext(t *testing.T) {
	svc := newTestService(&fakeCycles{}, &fakeStore{}, nil, passTime)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Refresh(ctx, testUser())
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "BUSY", appErr.Code)
}

func TestRefresh_ConcurrentPassesForSameUser(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 600), win("2026-10-16", 10, 500)}}
	store := &fakeStore{}
	svc := newTestService(cycles, store, nil, passTime)
	user := testUser()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), user)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Rewards are granted exactly once however the passes interleave.
	assert.Equal(t, 1000, store.state.Profile.TotalXP)
	assert.Equal(t, 1, store.saves)
}

func TestRefresh_InstancesSharingStoreSaveOnce(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 600)}}
	store := &fakeStore{}
	user := testUser()

	// Hold the first two loads until both passes have read the empty state.
	var (
		loads   atomic.Int32
		arrived sync.WaitGroup
		release = make(chan struct{})
	)
	arrived.Add(2)
	store.loadHook = func() {
		if loads.Add(1) <= 2 {
			arrived.Done()
			<-release
		}
	}
	go func() {
		arrived.Wait()
		close(release)
	}()

	instances := []*GamificationService{
		newTestService(cycles, store, nil, passTime),
		newTestService(cycles, store, nil, passTime),
	}
	results := make([]*RefreshResult, len(instances))
	errs := make([]error, len(instances))
	var wg sync.WaitGroup
	for i, svc := range instances {
		wg.Add(1)
		go func(i int, svc *GamificationService) {
			defer wg.Done()
			results[i], errs[i] = svc.Refresh(context.Background(), user)
		}(i, svc)
	}
	wg.Wait()

	for i := range instances {
		require.NoError(t, errs[i])
		assert.Equal(t, 200, results[i].State.Profile.TotalXP)
	}
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.conflicts)
	assert.Equal(t, 200, store.state.Profile.TotalXP)

	counts := make(map[domain.EventType]int)
	for _, et := range store.eventTypes() {
		counts[et]++
	}
	assert.Equal(t, 1, counts[domain.EventQuestCompleted])
	assert.Equal(t, 2, counts[domain.EventAchievementUnlocked])
}

func TestRefresh_GivesUpAfterRepeatedConflicts(t *testing.T) {
	cycles := &fakeCycles{cycles: []domain.Cycle{win("2026-10-16", 9, 50)}}
	cache := projection.NewInMemoryStore()
	user := testUser()

	// Another writer commits between every load and save.
	store := &fakeStore{}
	store.saveHook = func() {
		store.mu.Lock()
		store.version++
		store.mu.Unlock()
	}
	svc := newTestService(cycles, store, cache, passTime)

	res, err := svc.Refresh(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Saved)
	assert.Zero(t, store.saves)
	assert.Equal(t, maxPassAttempts, store.conflicts)
	assert.Empty(t, store.eventTypes())

	_, err = projection.GetSnapshot(context.Background(), cache, user.ID)
	assert.ErrorIs(t, err, projection.ErrNotFound)
}

func TestSnapshot_ServesCacheThenFallsBackToPass(t *testing.T) {
	cache := projection.NewInMemoryStore()
	store := &fakeStore{}
	svc := newTestService(&fakeCycles{}, store, cache, passTime)
	user := testUser()
	ctx := context.Background()

	state, err := svc.Snapshot(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	cached, err := svc.Snapshot(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves, "cache hit must not run another pass")
	assert.Equal(t, state.Profile, cached.Profile)
	assert.Len(t, cached.ActiveQuests, len(state.ActiveQuests))
}

func TestSnapshot_RerunsPassAfterLocalMidnight(t *testing.T) {
	cache := projection.NewInMemoryStore()
	store := &fakeStore{}
	svc := newTestService(&fakeCycles{}, store, cache, time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	user := testUser()
	ctx := context.Background()

	before, err := svc.Snapshot(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", before.Profile.LastActiveDate)

	svc.now = func() time.Time { return time.Date(2026, 10, 17, 1, 0, 0, 0, time.UTC) }
	after, err := svc.Snapshot(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, "2026-10-17", after.Profile.LastActiveDate)
	for _, q := range after.ActiveQuests {
		if q.Frequency == domain.FrequencyDaily {
			assert.Equal(t, "2026-10-17", q.GeneratedAt)
		}
	}

	cached, err := projection.GetSnapshot(ctx, cache, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", cached.Profile.LastActiveDate)
}

func TestChanged_IgnoresLastActiveDate(t *testing.T) {
	target := 3.0
	a := domain.StoredState{
		Profile: domain.Profile{Level: 1, NextLevelXP: 100, LastActiveDate: "2026-10-15", Titles: []string{"Rookie"}},
		Quests:  []domain.QuestRecord{{MissionID: "d_vol_3", GeneratedAt: "2026-10-16", Progress: 1, Target: &target}},
		Unlocks: []domain.UnlockRecord{{AchievementID: "ach_start"}},
	}
	b := a
	b.Profile.LastActiveDate = "2026-10-16"
	assert.False(t, changed(a, b))

	c := a
	c.Quests = []domain.QuestRecord{{MissionID: "d_vol_3", GeneratedAt: "2026-10-16", Progress: 2, Target: &target}}
	assert.True(t, changed(a, c))

	d := a
	d.Unlocks = []domain.UnlockRecord{{AchievementID: "ach_win"}}
	assert.True(t, changed(a, d))

	e := a
	e.Profile.Titles = []string{"Grinder"}
	assert.True(t, changed(a, e))
}
