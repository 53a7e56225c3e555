package handler

import (
	"context"
	"net/http"

	"github.com/cyclelog/platform/internal/auth"
	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/gamification"
	"github.com/cyclelog/platform/internal/guard"
	"github.com/cyclelog/platform/internal/service"
	"github.com/go-chi/chi/v5"
)

// GamificationService is what the handler needs from service.GamificationService.
type GamificationService interface {
	Refresh(ctx context.Context, user domain.UserContext) (*service.RefreshResult, error)
	Snapshot(ctx context.Context, user domain.UserContext) (*domain.State, error)
	Catalog() *gamification.Catalog
}

// GamificationHandler handles the /gamification endpoints.
type GamificationHandler struct {
	svc     GamificationService
	limiter *guard.RefreshLimiter
}

// NewGamificationHandler creates a new GamificationHandler. limiter bounds
// manual refreshes per user.
func NewGamificationHandler(svc GamificationService, limiter *guard.RefreshLimiter) *GamificationHandler {
	return &GamificationHandler{svc: svc, limiter: limiter}
}

type questView struct {
	domain.ActiveQuest
	Progress float64 `json:"progress"`
}

type profileView struct {
	domain.Profile
	LevelProgress float64 `json:"level_progress"`
}

type stateView struct {
	Profile      profileView          `json:"profile"`
	ActiveQuests []questView          `json:"active_quests"`
	Achievements []domain.Achievement `json:"achievements"`
}

type refreshView struct {
	stateView
	CompletedQuests []questView          `json:"completed_quests"`
	Unlocked        []domain.Achievement `json:"unlocked"`
	LevelUp         *domain.LevelUp      `json:"level_up,omitempty"`
	XPGained        int                  `json:"xp_gained"`
	Saved           bool                 `json:"saved"`
}

// GetMe handles GET /gamification/me.
func (h *GamificationHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	state, err := h.svc.Snapshot(r.Context(), user)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, newStateView(*state))
}

// Refresh handles POST /gamification/refresh.
func (h *GamificationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if h.limiter != nil {
		if res := h.limiter.Check(r.Context(), user.ID); !res.Allowed {
			RespondError(w, domain.ErrRateLimited(res.Reason))
			return
		}
	}

	result, err := h.svc.Refresh(r.Context(), user)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, refreshView{
		stateView:       newStateView(result.State),
		CompletedQuests: questViews(result.CompletedQuests),
		Unlocked:        nonNil(result.Unlocked),
		LevelUp:         result.LevelUp,
		XPGained:        result.XPGained,
		Saved:           result.Saved,
	})
}

// ListQuests handles GET /gamification/quests. ?frequency= narrows the list.
func (h *GamificationHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	freq := domain.Frequency(r.URL.Query().Get("frequency"))
	switch freq {
	case "", domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyMonthly:
	default:
		RespondError(w, domain.ErrValidation("frequency must be daily, weekly or monthly"))
		return
	}

	state, err := h.svc.Snapshot(r.Context(), user)
	if err != nil {
		RespondError(w, err)
		return
	}

	quests := make([]domain.ActiveQuest, 0, len(state.ActiveQuests))
	for _, q := range state.ActiveQuests {
		if freq == "" || q.Frequency == freq {
			quests = append(quests, q)
		}
	}
	RespondJSON(w, http.StatusOK, questViews(quests))
}

// ListAchievements handles GET /gamification/achievements.
func (h *GamificationHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	state, err := h.svc.Snapshot(r.Context(), user)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, masked(state.Achievements))
}

// GetAchievement handles GET /gamification/achievements/{id}. Ids outside
// the catalog are 404 without running a pass.
func (h *GamificationHandler) GetAchievement(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Catalog().Achievement(id); !ok {
		RespondError(w, domain.ErrNotFound("achievement", id))
		return
	}

	state, err := h.svc.Snapshot(r.Context(), user)
	if err != nil {
		RespondError(w, err)
		return
	}
	for _, a := range state.Achievements {
		if a.ID == id {
			RespondJSON(w, http.StatusOK, a.Masked())
			return
		}
	}
	RespondError(w, domain.ErrNotFound("achievement", id))
}

func newStateView(s domain.State) stateView {
	return stateView{
		Profile: profileView{
			Profile:       s.Profile,
			LevelProgress: gamification.CalculateLevel(s.Profile.TotalXP).Progress,
		},
		ActiveQuests: questViews(s.ActiveQuests),
		Achievements: masked(s.Achievements),
	}
}

func questViews(quests []domain.ActiveQuest) []questView {
	out := make([]questView, 0, len(quests))
	for _, q := range quests {
		out = append(out, questView{ActiveQuest: q, Progress: q.Progress()})
	}
	return out
}

// masked hides locked secret achievements.
func masked(achievements []domain.Achievement) []domain.Achievement {
	out := make([]domain.Achievement, 0, len(achievements))
	for _, a := range achievements {
		out = append(out, a.Masked())
	}
	return out
}

func nonNil(a []domain.Achievement) []domain.Achievement {
	if a == nil {
		return []domain.Achievement{}
	}
	return a
}

// userFromContext extracts the authenticated user from the request.
func userFromContext(r *http.Request) (domain.UserContext, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return domain.UserContext{}, domain.ErrUnauthorized("no user in context")
	}
	return user, nil
}
