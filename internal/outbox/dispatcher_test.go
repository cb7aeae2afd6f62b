package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"liftcart/internal/config"
	"liftcart/internal/metrics"
	"liftcart/internal/model"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) repository.OutboxRepository { return m }

func (m *MockOutboxRepository) Enqueue(ctx context.Context, events ...model.OutboxEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	return m.Called(ctx, id, reason, retryAt).Error(0)
}

func (m *MockOutboxRepository) MarkDead(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendOrderConfirmation(ctx context.Context, msg model.OrderConfirmation) error {
	return m.Called(ctx, msg).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOrderNotification(ctx context.Context, n model.OrderNotification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotifier) Close() error { return nil }

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDispatcher(repo *MockOutboxRepository, email *MockEmailSender, notifier *MockNotifier) (*Dispatcher, *metrics.Metrics) {
	m := metrics.New()
	d := NewDispatcher(repo, email, notifier, m,
		config.OutboxConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10, MaxAttempts: 3},
		zerolog.Nop())
	d.now = func() time.Time { return fixedNow }
	return d, m
}

func event(t *testing.T, eventType string, payload any, attempts int) model.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return model.OutboxEvent{ID: uuid.New(), AggregateID: uuid.New(), EventType: eventType, Payload: data, Attempts: attempts}
}

func TestDispatcher_DeliversEvents(t *testing.T) {
	repo := new(MockOutboxRepository)
	email := new(MockEmailSender)
	notifier := new(MockNotifier)
	d, m := newTestDispatcher(repo, email, notifier)

	confirmation := model.OrderConfirmation{Email: "a@example.com", OrderNumber: "ORD-000001", Total: decimal.RequireFromString("715.60")}
	notification := model.OrderNotification{AccountID: "acct-1", OrderID: uuid.New(), OrderNumber: "ORD-000001", Status: model.OrderStatusPending}
	e1 := event(t, model.EventOrderConfirmationEmail, confirmation, 0)
	e2 := event(t, model.EventOrderNotification, notification, 0)

	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{e1, e2}, nil)
	email.On("SendOrderConfirmation", mock.Anything, mock.MatchedBy(func(c model.OrderConfirmation) bool {
		return c.Email == confirmation.Email &&
			c.OrderNumber == confirmation.OrderNumber &&
			c.Total.Equal(confirmation.Total)
	})).Return(nil)
	notifier.On("SendOrderNotification", mock.Anything, notification).Return(nil)
	repo.On("MarkProcessed", mock.Anything, e1.ID).Return(nil)
	repo.On("MarkProcessed", mock.Anything, e2.ID).Return(nil)

	n, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	repo.AssertExpectations(t)
	email.AssertExpectations(t)
	notifier.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues(model.EventOrderNotification, metrics.OutboxDelivered)))
}

func TestDispatcher_RetriesWithBackoff(t *testing.T) {
	repo := new(MockOutboxRepository)
	email := new(MockEmailSender)
	d, m := newTestDispatcher(repo, email, new(MockNotifier))

	e := event(t, model.EventOrderConfirmationEmail, model.OrderConfirmation{Email: "a@example.com"}, 1)

	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{e}, nil)
	email.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	repo.On("MarkFailed", mock.Anything, e.ID, "smtp down", fixedNow.Add(4*time.Second)).Return(nil)

	_, err := d.DispatchPending(context.Background())
	require.NoError(t, err)

	repo.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues(model.EventOrderConfirmationEmail, metrics.OutboxRetried)))
}

func TestDispatcher_ParksAfterMaxAttempts(t *testing.T) {
	repo := new(MockOutboxRepository)
	notifier := new(MockNotifier)
	d, m := newTestDispatcher(repo, new(MockEmailSender), notifier)

	e := event(t, model.EventOrderNotification, model.OrderNotification{AccountID: "acct-1"}, 2)

	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{e}, nil)
	notifier.On("SendOrderNotification", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	repo.On("MarkDead", mock.Anything, e.ID, "broker unavailable").Return(nil)

	_, err := d.DispatchPending(context.Background())
	require.NoError(t, err)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues(model.EventOrderNotification, metrics.OutboxDead)))
}

func TestDispatcher_UndeliverableEventsAreParked(t *testing.T) {
	tests := []struct {
		name  string
		event model.OutboxEvent
	}{
		{
			name:  "unknown event type",
			event: model.OutboxEvent{ID: uuid.New(), EventType: "order.fax", Payload: []byte(`{}`)},
		},
		{
			name:  "malformed payload",
			event: model.OutboxEvent{ID: uuid.New(), EventType: model.EventOrderConfirmationEmail, Payload: []byte(`{not json`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOutboxRepository)
			d, _ := newTestDispatcher(repo, new(MockEmailSender), new(MockNotifier))

			repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{tt.event}, nil)
			repo.On("MarkDead", mock.Anything, tt.event.ID, mock.AnythingOfType("string")).Return(nil)

			_, err := d.DispatchPending(context.Background())
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestDispatcher_ClaimError(t *testing.T) {
	repo := new(MockOutboxRepository)
	d, _ := newTestDispatcher(repo, new(MockEmailSender), new(MockNotifier))

	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return(nil, errors.New("connection refused"))

	n, err := d.DispatchPending(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestDispatcher_BookkeepingErrorIsReturned(t *testing.T) {
	repo := new(MockOutboxRepository)
	notifier := new(MockNotifier)
	d, _ := newTestDispatcher(repo, new(MockEmailSender), notifier)

	e := event(t, model.EventOrderNotification, model.OrderNotification{AccountID: "acct-1"}, 0)
	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{e}, nil)
	notifier.On("SendOrderNotification", mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkProcessed", mock.Anything, e.ID).Return(errors.New("tx aborted"))

	_, err := d.DispatchPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processed")
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	repo := new(MockOutboxRepository)
	d, _ := newTestDispatcher(repo, new(MockEmailSender), new(MockNotifier))
	repo.On("ClaimPending", mock.Anything, 10, mock.Anything).Return([]model.OutboxEvent{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
	repo.AssertCalled(t, "ClaimPending", mock.Anything, 10, mock.Anything)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(0))
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 16*time.Second, Backoff(4))
	assert.Equal(t, 10*time.Minute, Backoff(20))
}
