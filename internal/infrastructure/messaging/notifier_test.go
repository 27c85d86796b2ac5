package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/messaging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleNotice() domain.TransitionNotice {
	return domain.TransitionNotice{
		OrderID:     "8a0c1d5e-order",
		HumanCode:   "BOU-0325-030001",
		OrderType:   domain.OrderTypeBoutique,
		Event:       domain.EventProviderConfirmedPayment,
		From:        domain.StatusPendingPayment,
		To:          domain.StatusPaymentVerified,
		TriggeredBy: domain.ProviderActor(domain.ProviderA),
		Reference:   "pa_1",
		Email:       "adaeze@example.com",
		OccurredAt:  time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifier_Notify(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	writer := &fakeWriter{}
	notifier := messaging.NewNotifier(writer, "order-transitions", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, span := tp.Tracer("test").Start(context.Background(), "apply")
	require.NoError(t, notifier.Notify(ctx, sampleNotice()))
	span.End()

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "8a0c1d5e-order", string(msg.Key))

	var decoded domain.TransitionNotice
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleNotice(), decoded)

	carrier := messaging.NewMessageCarrier(&msg)
	assert.Equal(t, string(domain.EventProviderConfirmedPayment), carrier.Get("event"))
	assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	notifier := messaging.NewNotifier(writer, "order-transitions", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := notifier.Notify(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestMessageCarrier(t *testing.T) {
	msg := &kafka.Message{}
	carrier := messaging.NewMessageCarrier(msg)

	carrier.Set("traceparent", "a")
	carrier.Set("baggage", "b")
	carrier.Set("traceparent", "c")

	assert.Equal(t, "c", carrier.Get("traceparent"))
	assert.Equal(t, "", carrier.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2)
}
