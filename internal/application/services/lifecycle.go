package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

const defaultSaveAttempts = 5

// Outcome is the result of one lifecycle mutation. Entry is nil when nothing
// was appended to the history, either because the event was a duplicate or
// because only session bookkeeping changed.
type Outcome struct {
	Order     *domain.Order
	Entry     *domain.StatusEntry
	Duplicate bool
}

func (o *Outcome) Applied() bool {
	return o != nil && o.Entry != nil
}

// mutation changes a freshly loaded order and reports what has to be persisted
// with it.
type mutation func(order *domain.Order, now time.Time) (*domain.StatusEntry, *domain.ConfirmationKey, error)

// LifecycleService serializes changes to one order through an optimistic
// version check and publishes one notice per committed history entry.
type LifecycleService struct {
	repo        application.OrderRepository
	notifier    application.Notifier
	metrics     application.Metrics
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
}

func NewLifecycleService(
	repo application.OrderRepository,
	notifier application.Notifier,
	metrics application.Metrics,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		repo:        repo,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		maxAttempts: defaultSaveAttempts,
	}
}

// WithClock replaces the time source.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// Apply runs evt against the order. Duplicates return an Outcome with
// Duplicate set and no error.
func (s *LifecycleService) Apply(ctx context.Context, orderID string, evt domain.Event) (*Outcome, error) {
	return s.mutate(ctx, orderID, evt.Name(), func(order *domain.Order, now time.Time) (*domain.StatusEntry, *domain.ConfirmationKey, error) {
		entry, err := order.Apply(evt, now)
		if err != nil {
			return nil, nil, err
		}

		var key *domain.ConfirmationKey
		if c, ok := evt.(domain.ProviderConfirmedPayment); ok {
			key = &domain.ConfirmationKey{
				OrderID:           order.ID,
				ProviderReference: c.ProviderReference,
				SessionID:         c.SessionID,
			}
		}
		return &entry, key, nil
	})
}

// UpdateSessions persists session bookkeeping that does not touch status or
// history, such as acknowledging or expiring a session.
func (s *LifecycleService) UpdateSessions(ctx context.Context, orderID string, fn func(order *domain.Order, now time.Time) error) (*Outcome, error) {
	return s.mutate(ctx, orderID, "", func(order *domain.Order, now time.Time) (*domain.StatusEntry, *domain.ConfirmationKey, error) {
		return nil, nil, fn(order, now)
	})
}

func (s *LifecycleService) mutate(ctx context.Context, orderID string, event domain.EventName, fn mutation) (*Outcome, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}

		from := order.Status
		expected := order.Version

		entry, key, err := fn(order, s.now())
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateConfirmation) {
				return s.duplicate(ctx, orderID, event, err)
			}
			s.reject(ctx, order, event, err)
			return nil, err
		}

		err = s.repo.Save(ctx, order, application.Change{
			ExpectedVersion: expected,
			Entry:           entry,
			Confirmation:    key,
		})
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrVersionConflict) && attempt < s.maxAttempts:
			s.logger.Debug("order changed concurrently, retrying",
				"order_id", orderID,
				"event", event,
				"attempt", attempt,
			)
			continue
		case errors.Is(err, domain.ErrDuplicateConfirmation):
			return s.duplicate(ctx, orderID, event, err)
		default:
			return nil, err
		}

		if entry != nil {
			s.published(ctx, order, from, *entry)
		}
		return &Outcome{Order: order, Entry: entry}, nil
	}
}

func (s *LifecycleService) duplicate(ctx context.Context, orderID string, event domain.EventName, cause error) (*Outcome, error) {
	s.logger.Debug("duplicate event ignored",
		"order_id", orderID,
		"event", event,
		"reason", cause.Error(),
	)
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: order, Duplicate: true}, nil
}

func (s *LifecycleService) reject(ctx context.Context, order *domain.Order, event domain.EventName, err error) {
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		s.logger.Error("lifecycle mutation failed",
			"order_id", order.ID,
			"event", event,
			"error", err,
		)
		return
	}

	s.metrics.TransitionRejected(ctx, domErr.Code)
	s.logger.Warn("lifecycle event rejected",
		"order_id", order.ID,
		"human_code", order.HumanCode,
		"status", order.Status,
		"event", event,
		"code", domErr.Code,
		"error", err,
	)
}

// published runs after the save has committed. A failed notification is
// logged and dropped.
func (s *LifecycleService) published(ctx context.Context, order *domain.Order, from domain.OrderStatus, entry domain.StatusEntry) {
	s.metrics.TransitionApplied(ctx, entry.Event)
	s.logger.Info("lifecycle event applied",
		"order_id", order.ID,
		"human_code", order.HumanCode,
		"event", entry.Event,
		"from", from,
		"to", entry.Status,
		"triggered_by", entry.TriggeredBy,
	)

	if err := s.notifier.Notify(ctx, domain.NewTransitionNotice(order, from, entry)); err != nil {
		s.logger.Error("failed to publish transition notice",
			"order_id", order.ID,
			"event", entry.Event,
			"error", err,
		)
	}
}
