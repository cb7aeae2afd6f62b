package repository

import (
	"context"
	"testing"
	"time"

	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewOutboxRepository(pool, zerolog.Nop())

	orderID := uuid.New()
	require.NoError(t, repo.Enqueue(ctx,
		model.OutboxEvent{AggregateID: orderID, EventType: model.EventOrderConfirmationEmail, Payload: []byte(`{"orderNumber":"ORD-1"}`)},
		model.OutboxEvent{AggregateID: orderID, EventType: model.EventOrderNotification, Payload: []byte(`{"status":"pending"}`)},
	))

	claimed, err := repo.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.JSONEq(t, `{"orderNumber":"ORD-1"}`, string(findEvent(claimed, model.EventOrderConfirmationEmail).Payload))

	// Leased events are invisible to a second claimer
	again, err := repo.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	email := findEvent(claimed, model.EventOrderConfirmationEmail)
	notify := findEvent(claimed, model.EventOrderNotification)

	require.NoError(t, repo.MarkProcessed(ctx, email.ID))
	require.NoError(t, repo.MarkFailed(ctx, notify.ID, "broker down", time.Now().Add(-time.Second)))

	retry, err := repo.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, notify.ID, retry[0].ID)
	assert.Equal(t, 1, retry[0].Attempts)
	require.NotNil(t, retry[0].LastError)
	assert.Equal(t, "broker down", *retry[0].LastError)

	require.NoError(t, repo.MarkDead(ctx, notify.ID, "gave up"))

	var dead int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE dead_at IS NOT NULL`).Scan(&dead))
	assert.Equal(t, 1, dead)

	// Expire leases to prove nothing is left to deliver
	_, err = pool.Exec(ctx, `UPDATE outbox_events SET locked_until = NOW() - INTERVAL '1 minute'`)
	require.NoError(t, err)
	rest, err := repo.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func findEvent(events []model.OutboxEvent, eventType string) model.OutboxEvent {
	for _, e := range events {
		if e.EventType == eventType {
			return e
		}
	}
	return model.OutboxEvent{}
}
