//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/cyclelog/platform/internal/repository"
	"github.com/cyclelog/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refreshResponse struct {
	Profile struct {
		Level   int `json:"level"`
		TotalXP int `json:"total_xp"`
	} `json:"profile"`
	ActiveQuests []struct {
		MissionID string `json:"mission_id"`
	} `json:"active_quests"`
	Unlocked []struct {
		ID string `json:"id"`
	} `json:"unlocked"`
	XPGained int  `json:"xp_gained"`
	Saved    bool `json:"saved"`
}

func today() string {
	return time.Now().UTC().Format(domain.DateLayout)
}

func TestHealth(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/health")
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestRefresh_RequiresToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.POST("/gamification/refresh", nil, "")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
	testutil.AssertErrorCode(t, resp, "UNAUTHORIZED")
}

func TestRefresh_FirstCycleUnlocksAndPersists(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("first@cyclelog.io", domain.PlanFree)
	env.SeedCycle(userID, today(), 100, 150, "alpha")
	token := env.TokenFor(userID, "first@cyclelog.io", domain.PlanFree)

	resp := env.AuthPOST("/gamification/refresh", nil, token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body refreshResponse
	testutil.DecodeJSON(t, resp, &body)
	assert.True(t, body.Saved)
	assert.NotEmpty(t, body.ActiveQuests)
	assert.GreaterOrEqual(t, body.Profile.TotalXP, 50)

	ids := make([]string, 0, len(body.Unlocked))
	for _, a := range body.Unlocked {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "ach_start")

	// The pass and its events are committed together.
	ctx := context.Background()
	var missions, unlocks int
	require.NoError(t, env.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM missions WHERE user_id = $1`, userID).Scan(&missions))
	require.NoError(t, env.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM achievements WHERE user_id = $1`, userID).Scan(&unlocks))
	assert.Equal(t, len(body.ActiveQuests), missions)
	assert.GreaterOrEqual(t, unlocks, 1)
	assert.GreaterOrEqual(t, testutil.CountOutboxEvents(t, env, userID, string(domain.EventAchievementUnlocked)), 1)
}

func TestRefresh_SecondPassIsUnchanged(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("twice@cyclelog.io", domain.PlanPro)
	env.SeedCycle(userID, today(), 200, 260, "beta")
	token := env.TokenFor(userID, "twice@cyclelog.io", domain.PlanPro)

	var first, second refreshResponse
	testutil.DecodeJSON(t, env.AuthPOST("/gamification/refresh", nil, token), &first)
	eventsAfterFirst := testutil.CountOutboxEvents(t, env, userID, "")

	testutil.DecodeJSON(t, env.AuthPOST("/gamification/refresh", nil, token), &second)

	assert.True(t, first.Saved)
	assert.False(t, second.Saved)
	assert.Zero(t, second.XPGained)
	assert.Equal(t, first.Profile.TotalXP, second.Profile.TotalXP)
	assert.Equal(t, eventsAfterFirst, testutil.CountOutboxEvents(t, env, userID, ""))
}

func TestRefresh_ConcurrentRequestsSaveOnce(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("race@cyclelog.io", domain.PlanFree)
	env.SeedCycle(userID, today(), 50, 80, "gamma")
	token := env.TokenFor(userID, "race@cyclelog.io", domain.PlanFree)

	const n = 5
	var wg sync.WaitGroup
	responses := make([]*http.Response, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = env.AuthPOST("/gamification/refresh", nil, token)
		}(i)
	}
	wg.Wait()

	saved := 0
	for _, resp := range responses {
		testutil.AssertStatus(t, resp, http.StatusOK)
		var body refreshResponse
		testutil.DecodeJSON(t, resp, &body)
		if body.Saved {
			saved++
		}
	}
	assert.Equal(t, 1, saved)

	var unlocks int
	require.NoError(t, env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM achievements WHERE user_id = $1`, userID).Scan(&unlocks))
	assert.Equal(t, unlocks, testutil.CountOutboxEvents(t, env, userID, string(domain.EventAchievementUnlocked)))
}

func TestGetMe_MasksSecretAchievements(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("me@cyclelog.io", domain.PlanFree)
	token := env.TokenFor(userID, "me@cyclelog.io", domain.PlanFree)

	resp := env.AuthGET("/gamification/achievements", token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body []domain.Achievement
	testutil.DecodeJSON(t, resp, &body)
	require.NotEmpty(t, body)
	for _, a := range body {
		if a.Secret && !a.Unlocked {
			assert.Equal(t, domain.SecretPlaceholder, a.Title, "secret achievement %s leaks its title", a.ID)
			assert.Equal(t, domain.SecretPlaceholder, a.Description)
		}
	}
}

func TestGetAchievement_ByID(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("one@cyclelog.io", domain.PlanFree)
	token := env.TokenFor(userID, "one@cyclelog.io", domain.PlanFree)

	resp := env.AuthGET("/gamification/achievements/ach_start", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var got domain.Achievement
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, "ach_start", got.ID)
	assert.False(t, got.Unlocked)

	resp = env.AuthGET("/gamification/achievements/ach_nope", token)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")
}

func TestListQuests_RejectsUnknownFrequency(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("filter@cyclelog.io", domain.PlanFree)
	token := env.TokenFor(userID, "filter@cyclelog.io", domain.PlanFree)

	resp := env.AuthGET("/gamification/quests?frequency=yearly", token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestCycleRepository_ExcludesDeleted(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("deleted@cyclelog.io", domain.PlanFree)
	kept := env.SeedCycle(userID, "2026-10-01", 100, 120, "alpha")
	gone := env.SeedCycle(userID, "2026-10-02", 100, 90, "alpha")
	env.DeleteCycle(gone)

	reader := repository.NewCycleReader(env.Pool, repository.NewCycleRepository())
	cycles, err := reader.History(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, kept, cycles[0].ID)
	assert.InDelta(t, 20.0, cycles[0].Profit, 0.001)
}

func TestPgStateStore_RoundTrip(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("store@cyclelog.io", domain.PlanFree)
	store := repository.NewPgStateStore(env.Pool,
		repository.NewPgProfileRepository(),
		repository.NewMissionRepository(),
		repository.NewAchievementRepository(),
		repository.NewOutboxRepository(),
	)
	ctx := context.Background()

	_, found, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.False(t, found)

	unlockedAt := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	target := 3.0
	state := domain.StoredState{
		UserID: userID,
		Profile: domain.Profile{
			Level:          2,
			CurrentXP:      20,
			NextLevelXP:    400,
			TotalXP:        120,
			StreakDays:     1,
			LastActiveDate: "2026-10-16",
			Titles:         []string{},
		},
		Quests: []domain.QuestRecord{
			{MissionID: "d_vol_3", Frequency: domain.FrequencyDaily, Progress: 1, Target: &target, GeneratedAt: "2026-10-16", ExpiresAt: "2026-10-16"},
		},
		Unlocks: []domain.UnlockRecord{{AchievementID: "ach_start", UnlockedAt: &unlockedAt}},
	}
	event := domain.NewEvent(userID, domain.EventAchievementUnlocked, map[string]string{"id": "ach_start"}, unlockedAt)
	require.NoError(t, store.Save(ctx, state, []domain.Event{event}))

	loaded, found, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 120, loaded.Profile.TotalXP)
	assert.Equal(t, "2026-10-16", loaded.Profile.LastActiveDate)
	require.Len(t, loaded.Quests, 1)
	assert.Equal(t, "d_vol_3", loaded.Quests[0].MissionID)
	require.Len(t, loaded.Unlocks, 1)
	require.NotNil(t, loaded.Unlocks[0].UnlockedAt)
	assert.True(t, unlockedAt.Equal(*loaded.Unlocks[0].UnlockedAt))
	assert.Equal(t, int64(1), loaded.Version)

	// Saving the same event id twice does not duplicate the outbox row.
	state.Version = loaded.Version
	require.NoError(t, store.Save(ctx, state, []domain.Event{event}))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, userID, ""))
}

func TestPgStateStore_RejectsStaleVersion(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("stale@cyclelog.io", domain.PlanFree)
	store := repository.NewPgStateStore(env.Pool,
		repository.NewPgProfileRepository(),
		repository.NewMissionRepository(),
		repository.NewAchievementRepository(),
		repository.NewOutboxRepository(),
	)
	ctx := context.Background()

	first, _, err := store.Load(ctx, userID)
	require.NoError(t, err)
	second, _, err := store.Load(ctx, userID)
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	first.Profile = domain.DefaultProfile()
	first.Profile.TotalXP = 50
	require.NoError(t, store.Save(ctx, first, []domain.Event{
		domain.NewEvent(userID, domain.EventAchievementUnlocked, map[string]string{"id": "ach_start"}, now),
	}))

	second.Profile = domain.DefaultProfile()
	second.Profile.TotalXP = 50
	err = store.Save(ctx, second, []domain.Event{
		domain.NewEvent(userID, domain.EventAchievementUnlocked, map[string]string{"id": "ach_start"}, now),
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeConflict))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, userID, ""))

	reloaded, _, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.Version)
}

type recordingProducer struct {
	mu       sync.Mutex
	keys     []string
	failFrom int
}

func (p *recordingProducer) Publish(_ context.Context, _ string, key, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFrom > 0 && len(p.keys) >= p.failFrom {
		return assert.AnError
	}
	p.keys = append(p.keys, string(key))
	return nil
}

func TestOutboxPoller_PublishesAndMarks(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("outbox@cyclelog.io", domain.PlanFree)
	env.SeedCycle(userID, today(), 100, 150, "alpha")
	token := env.TokenFor(userID, "outbox@cyclelog.io", domain.PlanFree)
	testutil.AssertStatus(t, env.AuthPOST("/gamification/refresh", nil, token), http.StatusOK)

	pending := testutil.CountPendingOutbox(t, env, userID)
	require.Greater(t, pending, 0)

	producer := &recordingProducer{}
	poller := infra.NewOutboxPoller(env.Pool, producer, "gamification.events", testutil.Logger())
	n, err := poller.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pending, n)
	assert.Zero(t, testutil.CountPendingOutbox(t, env, userID))
	for _, key := range producer.keys {
		assert.Equal(t, userID.String(), key)
	}
}

func TestOutboxPoller_StopsAtFirstFailure(t *testing.T) {
	env := testutil.NewTestEnv(t)

	userID := env.SeedProfile("stuck@cyclelog.io", domain.PlanFree)
	store := repository.NewOutboxRepository()
	at := time.Now().UTC()
	events := []domain.Event{
		domain.NewEvent(userID, domain.EventQuestCompleted, map[string]string{"id": "a"}, at),
		domain.NewEvent(userID, domain.EventQuestCompleted, map[string]string{"id": "b"}, at),
		domain.NewEvent(userID, domain.EventQuestCompleted, map[string]string{"id": "c"}, at),
	}
	require.NoError(t, store.Insert(context.Background(), env.Pool, events))

	producer := &recordingProducer{failFrom: 1}
	poller := infra.NewOutboxPoller(env.Pool, producer, "gamification.events", testutil.Logger())
	n, err := poller.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, 2, testutil.CountPendingOutbox(t, env, userID))
}
