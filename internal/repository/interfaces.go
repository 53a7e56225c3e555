package repository

import (
	"context"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxBeginner starts a transaction. *pgxpool.Pool implements it.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CycleRepository provides read access to cycles.
type CycleRepository interface {
	// ListByUser returns the user's non-deleted cycles within r, ordered by
	// date then created_at.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, r domain.DateRange) ([]domain.Cycle, error)
}

// ProfileRepository provides access to the gamification document in profiles.settings.
type ProfileRepository interface {
	// FindGamification returns the stored profile and its version. found is
	// false when the user has no profile row or no gamification document yet.
	FindGamification(ctx context.Context, db DBTX, userID uuid.UUID) (profile domain.Profile, version int64, found bool, err error)

	// LockVersion row-locks the profile, creating it when missing, and
	// returns the current version. db must be a transaction.
	LockVersion(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error)

	// SaveGamification writes the profile into settings.gamification,
	// creating the profile row when missing, and increments the version.
	SaveGamification(ctx context.Context, db DBTX, userID uuid.UUID, profile domain.Profile) error
}

// MissionRepository provides access to missions.
type MissionRepository interface {
	// ListByUser returns every mission row of the user, oldest window first.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.QuestRecord, error)

	// Upsert writes records keyed by (user_id, mission_id, generated_at).
	Upsert(ctx context.Context, db DBTX, userID uuid.UUID, records []domain.QuestRecord) error
}

// AchievementRepository provides access to achievements.
type AchievementRepository interface {
	// ListByUser returns the user's unlocks.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.UnlockRecord, error)

	// Insert records unlocks. Existing unlocks keep their original timestamp.
	Insert(ctx context.Context, db DBTX, userID uuid.UUID, unlocks []domain.UnlockRecord) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes events within the same transaction as the state they describe.
	Insert(ctx context.Context, db DBTX, events []domain.Event) error
}
