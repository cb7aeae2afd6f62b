// Package messaging delivers order side effects: confirmation emails and
// in-app order notifications.
package messaging

import (
	"context"
	"time"

	"liftcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// EmailSender sends transactional order emails.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, msg model.OrderConfirmation) error
}

// Notifier publishes order notifications for account holders.
type Notifier interface {
	SendOrderNotification(ctx context.Context, n model.OrderNotification) error
	Close() error
}

// NopNotifier drops notifications. Used when no transport is configured.
type NopNotifier struct {
	Logger zerolog.Logger
}

func (n NopNotifier) SendOrderNotification(_ context.Context, msg model.OrderNotification) error {
	n.Logger.Debug().
		Str("order_number", msg.OrderNumber).
		Str("account_id", msg.AccountID).
		Msg("notification transport disabled, dropping order notification")
	return nil
}

func (NopNotifier) Close() error { return nil }

// newBreaker builds the circuit breaker shared by outbound HTTP clients:
// it opens after five consecutive failures and lets a trial request through after timeout.
func newBreaker[T any](name string, timeout time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
