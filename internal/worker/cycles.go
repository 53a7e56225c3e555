package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/guard"
	"github.com/cyclelog/platform/internal/metrics"
	"github.com/cyclelog/platform/internal/projection"
	"github.com/cyclelog/platform/internal/service"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Message results reported to metrics.RecordWorkerMessage.
const (
	ResultScheduled = "scheduled"
	ResultInvalid   = "invalid"
	ResultDuplicate = "duplicate"
	ResultRefreshed = "refreshed"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

// refreshTimeout bounds one debounced pass.
const refreshTimeout = 30 * time.Second

// Refresher runs an evaluation pass.
type Refresher interface {
	Refresh(ctx context.Context, user domain.UserContext) (*service.RefreshResult, error)
}

// MessageReader is satisfied by infra.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// CycleHandler turns cycle-recorded messages into debounced evaluation
// passes. Redelivered messages for the same cycle are ignored unless the
// pass they triggered was dropped, failed, or could not be saved.
type CycleHandler struct {
	refresher Refresher
	cache     projection.Store
	seen      *guard.IdempotencyGuard
	debouncer *guard.Debouncer
	fallback  *time.Location
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID][]string // cycle ids awaiting each user's next pass
}

// NewCycleHandler creates a CycleHandler. cache may be nil.
func NewCycleHandler(refresher Refresher, cache projection.Store, debounce time.Duration, fallback *time.Location, logger *slog.Logger) *CycleHandler {
	if fallback == nil {
		fallback = time.UTC
	}
	return &CycleHandler{
		refresher: refresher,
		cache:     cache,
		seen:      guard.NewIdempotencyGuard(time.Hour),
		debouncer: guard.NewDebouncer(debounce),
		fallback:  fallback,
		logger:    logger,
		pending:   make(map[uuid.UUID][]string),
	}
}

// Handle processes one message value and reports what happened to it.
// The pass itself runs later, once the user's burst of messages settles.
func (h *CycleHandler) Handle(ctx context.Context, value []byte) string {
	var evt domain.CycleRecorded
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Warn("undecodable cycle event", "error", err)
		return h.done(ResultInvalid)
	}
	if err := domain.ValidateCycleRecorded(evt); err != nil {
		h.logger.Warn("invalid cycle event", "user_id", evt.UserID, "error", err)
		return h.done(ResultInvalid)
	}

	key := ""
	if evt.CycleID != uuid.Nil {
		key = evt.CycleID.String()
		if res := h.seen.Check(ctx, key); !res.Allowed {
			h.logger.Debug("duplicate cycle event", "cycle_id", evt.CycleID, "reason", res.Reason)
			return h.done(ResultDuplicate)
		}
	}

	if h.cache != nil {
		if err := projection.InvalidateSnapshot(ctx, h.cache, evt.UserID); err != nil {
			h.logger.Warn("snapshot invalidation failed", "user_id", evt.UserID, "error", err)
		}
	}

	user := h.userContext(evt)
	h.track(user.ID, key)
	if !h.debouncer.Trigger(user.ID.String(), func() { h.refresh(user) }) {
		h.forget(h.take(user.ID))
		return h.done(ResultDropped)
	}
	return h.done(ResultScheduled)
}

// Run reads messages until ctx is cancelled or the reader fails.
func (h *CycleHandler) Run(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.Handle(ctx, msg.Value)
	}
}

// Stop cancels pending passes and waits for running ones.
func (h *CycleHandler) Stop() {
	h.debouncer.Stop()
}

func (h *CycleHandler) refresh(user domain.UserContext) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	keys := h.take(user.ID)
	result, err := h.refresher.Refresh(ctx, user)
	if err != nil {
		h.logger.Error("debounced refresh failed", "user_id", user.ID, "error", err)
		h.forget(keys)
		h.done(ResultFailed)
		return
	}
	if result.Changed && !result.Saved {
		h.logger.Warn("debounced refresh not saved", "user_id", user.ID)
		h.forget(keys)
	}
	h.logger.Info("debounced refresh",
		"user_id", user.ID,
		"xp_gained", result.XPGained,
		"saved", result.Saved,
	)
	h.done(ResultRefreshed)
}

func (h *CycleHandler) track(userID uuid.UUID, key string) {
	if key == "" {
		return
	}
	h.mu.Lock()
	h.pending[userID] = append(h.pending[userID], key)
	h.mu.Unlock()
}

func (h *CycleHandler) take(userID uuid.UUID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := h.pending[userID]
	delete(h.pending, userID)
	return keys
}

// forget lets redeliveries of keys trigger a new pass.
func (h *CycleHandler) forget(keys []string) {
	for _, k := range keys {
		h.seen.Remove(k)
	}
}

func (h *CycleHandler) userContext(evt domain.CycleRecorded) domain.UserContext {
	loc := h.fallback
	if evt.Timezone != "" {
		if l, err := time.LoadLocation(evt.Timezone); err == nil {
			loc = l
		}
	}
	plan := evt.Plan
	if plan == "" {
		plan = domain.PlanFree
	}
	return domain.UserContext{
		ID:       evt.UserID,
		Email:    evt.Email,
		Plan:     plan,
		Location: loc,
	}
}

func (h *CycleHandler) done(result string) string {
	metrics.RecordWorkerMessage(result)
	return result
}
