package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
)

// DefaultSnapshotTTL applies when the caller passes a non-positive ttl.
const DefaultSnapshotTTL = 10 * time.Minute

func snapshotKey(userID uuid.UUID) string {
	return fmt.Sprintf("projection:gamification:%s", userID)
}

// PutSnapshot caches a user's gamification state. A cached state with a
// higher version is kept.
func PutSnapshot(ctx context.Context, store Store, state domain.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	var existing domain.State
	if err := GetJSON(ctx, store, snapshotKey(state.UserID), &existing); err == nil && existing.Version > state.Version {
		return nil
	}
	return SetJSON(ctx, store, snapshotKey(state.UserID), state, ttl)
}

// GetSnapshot retrieves a cached gamification state.
func GetSnapshot(ctx context.Context, store Store, userID uuid.UUID) (*domain.State, error) {
	var s domain.State
	if err := GetJSON(ctx, store, snapshotKey(userID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// InvalidateSnapshot removes a user's cached state.
func InvalidateSnapshot(ctx context.Context, store Store, userID uuid.UUID) error {
	return store.Delete(ctx, snapshotKey(userID))
}
