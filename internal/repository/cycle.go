package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type cycleRepo struct{}

// NewCycleRepository returns a pgx-backed CycleRepository.
func NewCycleRepository() CycleRepository {
	return &cycleRepo{}
}

func (r *cycleRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, dr domain.DateRange) ([]domain.Cycle, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, date::text, deposit, withdrawal, chest, profit,
		       platform, notes, tags, created_at
		FROM cycles
		WHERE user_id = $1
		  AND deleted_at IS NULL
		  AND ($2::date IS NULL OR date >= $2::date)
		  AND ($3::date IS NULL OR date <= $3::date)
		ORDER BY date ASC, created_at ASC`,
		userID, nullableDate(dr.From), nullableDate(dr.To))
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

func scanCycle(row pgx.Row) (domain.Cycle, error) {
	var (
		c                                  domain.Cycle
		deposit, withdrawal, chest, profit pgtype.Numeric
		platform, notes                    *string
		createdAt                          time.Time
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Date, &deposit, &withdrawal, &chest, &profit,
		&platform, &notes, &c.Tags, &createdAt)
	if err != nil {
		return domain.Cycle{}, fmt.Errorf("scan cycle: %w", err)
	}

	c.Deposit = infra.NumericToFloat64(deposit)
	c.Withdrawal = infra.NumericToFloat64(withdrawal)
	c.Chest = infra.NumericToFloat64(chest)
	c.Profit = infra.NumericToFloat64(profit)
	if platform != nil {
		c.Platform = *platform
	}
	if notes != nil {
		c.Notes = *notes
	}
	c.CreatedAt = createdAt
	return domain.NormalizeCycle(c), nil
}

// nullableDate maps an open bound to SQL NULL.
func nullableDate(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CycleReader binds a CycleRepository to a connection so callers only pass the user.
type CycleReader struct {
	db   DBTX
	repo CycleRepository
}

// NewCycleReader creates a new CycleReader.
func NewCycleReader(db DBTX, repo CycleRepository) *CycleReader {
	return &CycleReader{db: db, repo: repo}
}

// History returns the user's full non-deleted cycle history.
func (r *CycleReader) History(ctx context.Context, userID uuid.UUID) ([]domain.Cycle, error) {
	return r.repo.ListByUser(ctx, r.db, userID, domain.DateRange{})
}
