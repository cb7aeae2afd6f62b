// Package outbox delivers side effects recorded alongside orders.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"liftcart/internal/config"
	"liftcart/internal/messaging"
	"liftcart/internal/metrics"
	"liftcart/internal/model"
	"liftcart/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	baseBackoff = 2 * time.Second
	maxBackoff  = 10 * time.Minute
	// concurrent deliveries per batch
	deliveryWorkers = 4
)

// errUndeliverable marks events that can never succeed, such as unknown
// types or malformed payloads. They are parked without retrying.
var errUndeliverable = errors.New("undeliverable outbox event")

// Dispatcher polls the outbox and delivers pending events.
type Dispatcher struct {
	repo     repository.OutboxRepository
	email    messaging.EmailSender
	notifier messaging.Notifier
	metrics  *metrics.Metrics
	cfg      config.OutboxConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(
	repo repository.OutboxRepository,
	email messaging.EmailSender,
	notifier messaging.Notifier,
	m *metrics.Metrics,
	cfg config.OutboxConfig,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		email:    email,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "outbox").Logger(),
	}
}

// Run dispatches on every poll interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.logger.Info().
		Dur("poll_interval", d.cfg.PollInterval).
		Int("batch_size", d.cfg.BatchSize).
		Msg("outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error().Err(err).Msg("outbox dispatch failed")
			}
		}
	}
}

// DispatchPending claims one batch of due events and delivers them.
// It returns the number of events claimed.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	// Lease long enough for every delivery in the batch to time out once
	events, err := d.repo.ClaimPending(ctx, d.cfg.BatchSize, 2*time.Minute)
	if err != nil {
		return 0, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deliveryWorkers)

	for _, event := range events {
		g.Go(func() error {
			return d.handle(gctx, event)
		})
	}

	if err := g.Wait(); err != nil {
		return len(events), err
	}

	return len(events), nil
}

// handle delivers one event and records the outcome. Only bookkeeping
// failures are returned; delivery failures are rescheduled.
func (d *Dispatcher) handle(ctx context.Context, event model.OutboxEvent) error {
	log := d.logger.With().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Int("attempt", event.Attempts+1).
		Logger()

	deliverErr := d.deliver(ctx, event)
	if deliverErr == nil {
		if err := d.repo.MarkProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		d.metrics.OutboxResult(event.EventType, metrics.OutboxDelivered)
		log.Debug().Msg("outbox event delivered")
		return nil
	}

	attempts := event.Attempts + 1
	if errors.Is(deliverErr, errUndeliverable) || attempts >= d.cfg.MaxAttempts {
		if err := d.repo.MarkDead(ctx, event.ID, deliverErr.Error()); err != nil {
			return fmt.Errorf("failed to park event %s: %w", event.ID, err)
		}
		d.metrics.OutboxResult(event.EventType, metrics.OutboxDead)
		log.Error().Err(deliverErr).Msg("outbox event parked as dead")
		return nil
	}

	retryAt := d.now().Add(Backoff(attempts))
	if err := d.repo.MarkFailed(ctx, event.ID, deliverErr.Error(), retryAt); err != nil {
		return fmt.Errorf("failed to reschedule event %s: %w", event.ID, err)
	}
	d.metrics.OutboxResult(event.EventType, metrics.OutboxRetried)
	log.Warn().Err(deliverErr).Time("retry_at", retryAt).Msg("outbox event delivery failed, will retry")

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, event model.OutboxEvent) error {
	switch event.EventType {
	case model.EventOrderConfirmationEmail:
		var msg model.OrderConfirmation
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			return fmt.Errorf("%w: bad confirmation payload: %v", errUndeliverable, err)
		}
		return d.email.SendOrderConfirmation(ctx, msg)

	case model.EventOrderNotification:
		var msg model.OrderNotification
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			return fmt.Errorf("%w: bad notification payload: %v", errUndeliverable, err)
		}
		return d.notifier.SendOrderNotification(ctx, msg)

	default:
		return fmt.Errorf("%w: unknown event type %q", errUndeliverable, event.EventType)
	}
}

// Backoff returns the delay before retry number attempts (1-based):
// 2s, 4s, 8s, ... capped at ten minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
