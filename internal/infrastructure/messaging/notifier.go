package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging/notifier")

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes one message per committed lifecycle transition,
// keyed by order id so a consumer sees an order's transitions in order.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaNotifier(cfg config.NotifierConfig, logger *slog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
	}
	return NewNotifier(writer, cfg.Topic, logger)
}

func NewNotifier(writer MessageWriter, topic string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic, logger: logger}
}

func (n *KafkaNotifier) Notify(ctx context.Context, notice domain.TransitionNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notice.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(notice.Event)},
		},
		Time: notice.OccurredAt,
	}

	ctx, span := tracer.Start(ctx, "send "+n.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(n.topic),
			semconv.MessagingKafkaMessageKey(notice.OrderID),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s for order %s: %w", notice.Event, notice.OrderID, err)
	}

	n.logger.Debug("transition published",
		"order_id", notice.OrderID,
		"event", notice.Event,
		"to", notice.To,
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier only logs transitions. It backs local runs without a broker.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notice domain.TransitionNotice) error {
	n.logger.Info("order transition",
		"order_id", notice.OrderID,
		"code", notice.HumanCode,
		"event", notice.Event,
		"from", notice.From,
		"to", notice.To,
		"actor", notice.TriggeredBy,
	)
	return nil
}
