package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OutboxDB is the subset of pgxpool.Pool the poller needs.
type OutboxDB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// EventProducer publishes one message. KafkaProducer implements it.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller polls the event_outbox table and publishes gamification events to Kafka.
type OutboxPoller struct {
	db        OutboxDB
	producer  EventProducer
	topic     string
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(db OutboxDB, producer EventProducer, topic string, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		db:        db,
		producer:  producer,
		topic:     topic,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize, "topic", p.topic)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

// Poll publishes one batch of pending events in insertion order and returns
// how many were published. Publishing stops at the first failure so the
// per-user order is kept on the topic.
func (p *OutboxPoller) Poll(ctx context.Context) (int, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, event_id, user_id, event_type, payload, occurred_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1`, p.batchSize)
	if err != nil {
		return 0, err
	}

	type outboxRow struct {
		seq   int64
		event domain.Event
	}

	var pending []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.seq, &r.event.EventID, &r.event.UserID, &r.event.EventType, &r.event.Payload, &r.event.OccurredAt); err != nil {
			rows.Close()
			return 0, err
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	published := 0
	for _, r := range pending {
		msg, err := json.Marshal(r.event)
		if err != nil {
			p.logger.Error("marshal outbox event failed", "event_id", r.event.EventID, "error", err)
			continue
		}

		if err := p.producer.Publish(ctx, p.topic, []byte(r.event.UserID.String()), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", r.event.EventID, "error", err)
			break
		}

		if _, err := p.db.Exec(ctx,
			`UPDATE event_outbox SET published_at = now() WHERE id = $1`, r.seq); err != nil {
			p.logger.Error("mark published failed", "event_id", r.event.EventID, "error", err)
		}
		published++
	}

	if published > 0 {
		p.logger.Debug("outbox poll complete", "published", published)
	}
	return published, nil
}
