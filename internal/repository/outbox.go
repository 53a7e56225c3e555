package repository

import (
	"context"
	"fmt"

	"github.com/cyclelog/platform/internal/domain"
)

type outboxRepo struct{}

// NewOutboxRepository returns a pgx-backed OutboxRepository.
func NewOutboxRepository() OutboxRepository {
	return &outboxRepo{}
}

func (r *outboxRepo) Insert(ctx context.Context, db DBTX, events []domain.Event) error {
	for _, e := range events {
		_, err := db.Exec(ctx, `
			INSERT INTO event_outbox (event_id, user_id, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id) DO NOTHING`,
			e.EventID,
			e.UserID,
			string(e.EventType),
			[]byte(e.Payload),
			e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox event %s: %w", e.EventType, err)
		}
	}
	return nil
}
