package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
)

type achievementRepo struct{}

// NewAchievementRepository returns a pgx-backed AchievementRepository.
func NewAchievementRepository() AchievementRepository {
	return &achievementRepo{}
}

func (r *achievementRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.UnlockRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT id, unlocked_at FROM achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var unlocks []domain.UnlockRecord
	for rows.Next() {
		var (
			u  domain.UnlockRecord
			at time.Time
		)
		if err := rows.Scan(&u.AchievementID, &at); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		u.UnlockedAt = &at
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

// Insert never overwrites an existing unlock, so unlocked_at is the first one seen.
func (r *achievementRepo) Insert(ctx context.Context, db DBTX, userID uuid.UUID, unlocks []domain.UnlockRecord) error {
	for _, u := range unlocks {
		at := time.Now()
		if u.UnlockedAt != nil {
			at = *u.UnlockedAt
		}
		_, err := db.Exec(ctx, `
			INSERT INTO achievements (user_id, id, unlocked_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, id) DO NOTHING`,
			userID, u.AchievementID, at)
		if err != nil {
			return fmt.Errorf("insert achievement %s: %w", u.AchievementID, err)
		}
	}
	return nil
}
