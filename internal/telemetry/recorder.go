package telemetry

import (
	"context"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/DanielPopoola/atelier-orders"

// Recorder counts lifecycle and reconciliation outcomes.
type Recorder struct {
	transitions otelmetric.Int64Counter
	rejections  otelmetric.Int64Counter
	polls       otelmetric.Int64Counter
	fallbacks   otelmetric.Int64Counter
}

var _ application.Metrics = (*Recorder)(nil)

func NewRecorder(provider otelmetric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)

	transitions, err := meter.Int64Counter("lifecycle_transitions",
		otelmetric.WithDescription("Lifecycle events applied and committed"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("lifecycle_rejections",
		otelmetric.WithDescription("Lifecycle events refused, by error code"))
	if err != nil {
		return nil, err
	}
	polls, err := meter.Int64Counter("poll_outcomes",
		otelmetric.WithDescription("Finished provider B status polls, by outcome"))
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("rate_fallbacks",
		otelmetric.WithDescription("Exchange rates served from the static table"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		transitions: transitions,
		rejections:  rejections,
		polls:       polls,
		fallbacks:   fallbacks,
	}, nil
}

func (r *Recorder) TransitionApplied(ctx context.Context, event domain.EventName) {
	r.transitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("event", string(event))))
}

func (r *Recorder) TransitionRejected(ctx context.Context, reason string) {
	r.rejections.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) PollFinished(ctx context.Context, outcome application.PollOutcome) {
	r.polls.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (r *Recorder) RateFallback(ctx context.Context, currency domain.Currency) {
	r.fallbacks.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("currency", string(currency))))
}
