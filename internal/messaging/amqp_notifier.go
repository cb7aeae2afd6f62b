package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"liftcart/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// amqpPublisher is the subset of *amqp.Channel the notifier needs.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes order notifications to a RabbitMQ topic exchange
// with routing key "order.<status>".
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpPublisher
	exchange string
	logger   zerolog.Logger
}

// NewAMQPNotifier dials RabbitMQ and declares a durable topic exchange.
func NewAMQPNotifier(url, exchange string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, logger)
	n.conn = conn
	return n, nil
}

func newAMQPNotifier(ch amqpPublisher, exchange string, logger zerolog.Logger) *AMQPNotifier {
	return &AMQPNotifier{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp-notifier").Logger(),
	}
}

func (n *AMQPNotifier) SendOrderNotification(ctx context.Context, msg model.OrderNotification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	// Channels are not safe for concurrent publishing
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.ch.PublishWithContext(ctx,
		n.exchange,
		"order."+string(msg.Status),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.OrderID.String(),
			Type:         model.EventOrderNotification,
			Body:         body,
		},
	)
	if err != nil {
		n.logger.Error().Err(err).Str("order_number", msg.OrderNumber).Msg("failed to publish order notification")
		return fmt.Errorf("failed to publish order notification: %w", err)
	}

	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.ch.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
