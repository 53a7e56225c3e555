package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type missionRepo struct{}

// NewMissionRepository returns a pgx-backed MissionRepository.
func NewMissionRepository() MissionRepository {
	return &missionRepo{}
}

func (r *missionRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.QuestRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT mission_id, frequency, progress, target, is_completed, completed_at,
		       generated_at::text, expires_at::text
		FROM missions
		WHERE user_id = $1
		ORDER BY generated_at ASC, mission_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	defer rows.Close()

	var records []domain.QuestRecord
	for rows.Next() {
		var (
			rec              domain.QuestRecord
			frequency        string
			progress, target pgtype.Numeric
			completedAt      *time.Time
		)
		if err := rows.Scan(&rec.MissionID, &frequency, &progress, &target, &rec.Completed,
			&completedAt, &rec.GeneratedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		rec.Frequency = domain.Frequency(frequency)
		rec.Progress = infra.NumericToFloat64(progress)
		if target.Valid {
			t := infra.NumericToFloat64(target)
			rec.Target = &t
		}
		rec.CompletedAt = completedAt
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *missionRepo) Upsert(ctx context.Context, db DBTX, userID uuid.UUID, records []domain.QuestRecord) error {
	for _, rec := range records {
		var target interface{}
		if rec.Target != nil {
			target = infra.Float64ToNumeric(*rec.Target)
		}
		_, err := db.Exec(ctx, `
			INSERT INTO missions
			  (user_id, mission_id, frequency, progress, target, is_completed, completed_at, generated_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9::date)
			ON CONFLICT (user_id, mission_id, generated_at) DO UPDATE SET
			  progress = EXCLUDED.progress,
			  target = EXCLUDED.target,
			  is_completed = EXCLUDED.is_completed,
			  completed_at = EXCLUDED.completed_at,
			  expires_at = EXCLUDED.expires_at`,
			userID,
			rec.MissionID,
			string(rec.Frequency),
			infra.Float64ToNumeric(rec.Progress),
			target,
			rec.Completed,
			rec.CompletedAt,
			rec.GeneratedAt,
			rec.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("upsert mission %s: %w", rec.MissionID, err)
		}
	}
	return nil
}
