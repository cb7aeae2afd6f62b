package repository

import (
	"context"
	"fmt"
	"time"

	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(db DBTX, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		db:     db,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

func (r *outboxRepository) WithTx(tx pgx.Tx) OutboxRepository {
	return &outboxRepository{db: tx, logger: r.logger}
}

// Enqueue records events for later delivery.
func (r *outboxRepository) Enqueue(ctx context.Context, events ...model.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`

	batch := &pgx.Batch{}
	for _, e := range events {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(query, id, e.AggregateID, e.EventType, e.Payload)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range events {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_type", events[i].EventType).
				Str("aggregate_id", events[i].AggregateID.String()).
				Msg("failed to enqueue outbox event")
			return fmt.Errorf("failed to enqueue outbox event: %w", err)
		}
	}

	return nil
}

// ClaimPending leases up to limit due events. Rows locked by a concurrent
// claimer are skipped rather than waited on.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET locked_until = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE processed_at IS NULL
			  AND dead_at IS NULL
			  AND available_at <= NOW()
			  AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY available_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_id, event_type, payload, attempts, last_error, available_at, created_at
	`

	rows, err := r.db.Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to claim outbox events")
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.Attempts, &e.LastError, &e.AvailableAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

// MarkProcessed records successful delivery.
func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET processed_at = NOW(), attempts = attempts + 1, locked_until = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark outbox event processed")
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the next one.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, available_at = $3, locked_until = NULL
		WHERE id = $1
	`, id, reason, retryAt)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark outbox event failed")
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}

// MarkDead parks an event that exhausted its attempts.
func (r *outboxRepository) MarkDead(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, dead_at = NOW(), locked_until = NULL
		WHERE id = $1
	`, id, reason)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark outbox event dead")
		return fmt.Errorf("failed to mark outbox event dead: %w", err)
	}
	return nil
}
