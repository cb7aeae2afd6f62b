package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"liftcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes order notifications to a Kafka topic keyed by order ID.
type KafkaNotifier struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on the given brokers.
func NewKafkaNotifier(brokers []string, topic string, logger zerolog.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaNotifier(w, logger)
}

func newKafkaNotifier(w messageWriter, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: w,
		logger: logger.With().Str("component", "kafka-notifier").Logger(),
	}
}

func (n *KafkaNotifier) SendOrderNotification(ctx context.Context, msg model.OrderNotification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderID.String()), // order ID keeps per-order ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(model.EventOrderNotification)},
		},
	})
	if err != nil {
		n.logger.Error().Err(err).Str("order_number", msg.OrderNumber).Msg("failed to publish order notification")
		return fmt.Errorf("failed to publish order notification: %w", err)
	}

	n.logger.Debug().Str("order_number", msg.OrderNumber).Msg("order notification published")
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
