package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

// ProviderACallback is a verified provider A notification.
type ProviderACallback struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
	Currency  domain.Currency
}

type PollResult struct {
	Outcome  application.PollOutcome
	Attempts int
	Order    *domain.Order
}

// ReconciliationGateway turns provider callbacks, poll answers and staff
// actions into lifecycle events.
type ReconciliationGateway struct {
	lifecycle   *LifecycleService
	repo        application.OrderRepository
	providerB   application.ProviderBClient
	metrics     application.Metrics
	logger      *slog.Logger
	maxAttempts int
	interval    time.Duration
}

func NewReconciliationGateway(
	lifecycle *LifecycleService,
	repo application.OrderRepository,
	providerB application.ProviderBClient,
	metrics application.Metrics,
	logger *slog.Logger,
	maxAttempts int,
	interval time.Duration,
) *ReconciliationGateway {
	return &ReconciliationGateway{
		lifecycle:   lifecycle,
		repo:        repo,
		providerB:   providerB,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

// HandleProviderACallback applies a push confirmation. The session is found
// by provider reference; amount and currency must match what it quoted.
func (g *ReconciliationGateway) HandleProviderACallback(ctx context.Context, cb ProviderACallback) (*Outcome, error) {
	if cb.Reference == "" {
		return nil, domain.NewMissingRequiredFieldError("reference")
	}

	order, err := g.repo.FindBySessionReference(ctx, domain.ProviderA, cb.Reference)
	if err != nil {
		return nil, err
	}
	session := order.SessionByReference(domain.ProviderA, cb.Reference)
	if session == nil {
		return nil, domain.NewSessionNotFoundError(cb.Reference)
	}

	switch strings.ToLower(cb.Status) {
	case "success", "successful", "paid":
		return g.lifecycle.Apply(ctx, order.ID, domain.ProviderConfirmedPayment{
			Provider:          domain.ProviderA,
			SessionID:         session.ID,
			ProviderReference: cb.Reference,
			Amount:            cb.Amount,
			Currency:          domain.NormalizeCurrency(string(cb.Currency)),
		})

	case "failed", "abandoned", "reversed":
		return g.closeSession(ctx, order.ID, session.ID, domain.SessionFailed)

	default:
		g.logger.Debug("ignoring non-terminal provider A callback",
			"order_id", order.ID,
			"reference", cb.Reference,
			"status", cb.Status,
		)
		return &Outcome{Order: order}, nil
	}
}

// PollProviderB asks provider B for the session's status until it reports a
// terminal state or the attempt budget runs out. Running out leaves the order
// untouched and returns domain.ErrVerificationTimedOut. The loop stops early
// once the order or session no longer waits on this provider, and returns
// ctx.Err() when ctx is cancelled between attempts.
func (g *ReconciliationGateway) PollProviderB(ctx context.Context, orderID, sessionID string) (*PollResult, error) {
	result := &PollResult{}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		result.Attempts = attempt

		order, err := g.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		result.Order = order

		session := order.Session(sessionID)
		if session == nil {
			return nil, domain.NewSessionNotFoundError(sessionID)
		}
		if session.Provider != domain.ProviderB {
			return nil, domain.NewInvalidSessionStateError(sessionID, session.State, domain.SessionConfirmed)
		}
		if outcome, done := settled(order, session); done {
			return g.finish(ctx, result, outcome), nil
		}

		status, err := g.providerB.GetStatus(ctx, session.ProviderReference)
		if err != nil {
			g.logger.Warn("provider B status check failed",
				"order_id", orderID,
				"session_id", sessionID,
				"attempt", attempt,
				"error", err,
			)
		} else if status.State.Terminal() {
			return g.resolve(ctx, result, order, session, status)
		}

		if attempt < g.maxAttempts {
			if err := sleep(ctx, g.interval); err != nil {
				return nil, err
			}
		}
	}

	g.finish(ctx, result, application.PollTimedOut)
	g.logger.Warn("provider B verification timed out, needs manual check",
		"order_id", orderID,
		"session_id", sessionID,
		"attempts", result.Attempts,
	)
	return result, domain.NewVerificationTimedOutError(orderID, sessionID, result.Attempts)
}

func (g *ReconciliationGateway) resolve(ctx context.Context, result *PollResult, order *domain.Order, session *domain.PaymentSession, status *application.CheckoutStatus) (*PollResult, error) {
	switch status.State {
	case application.CheckoutPaid:
		outcome, err := g.lifecycle.Apply(ctx, order.ID, domain.ProviderConfirmedPayment{
			Provider:          domain.ProviderB,
			SessionID:         session.ID,
			ProviderReference: session.ProviderReference,
			Amount:            status.Amount,
			Currency:          status.Currency,
		})
		if err != nil {
			return nil, err
		}
		result.Order = outcome.Order
		return g.finish(ctx, result, application.PollConfirmed), nil

	case application.CheckoutExpired:
		outcome, err := g.closeSession(ctx, order.ID, session.ID, domain.SessionExpired)
		if err != nil {
			return nil, err
		}
		result.Order = outcome.Order
		return g.finish(ctx, result, application.PollExpired), nil

	default:
		outcome, err := g.closeSession(ctx, order.ID, session.ID, domain.SessionFailed)
		if err != nil {
			return nil, err
		}
		result.Order = outcome.Order
		return g.finish(ctx, result, application.PollFailed), nil
	}
}

func (g *ReconciliationGateway) finish(ctx context.Context, result *PollResult, outcome application.PollOutcome) *PollResult {
	result.Outcome = outcome
	g.metrics.PollFinished(ctx, outcome)
	return result
}

// settled reports whether polling this session can no longer change anything.
func settled(order *domain.Order, session *domain.PaymentSession) (application.PollOutcome, bool) {
	switch {
	case session.State == domain.SessionConfirmed:
		return application.PollConfirmed, true
	case session.State != domain.SessionAwaitingConfirmation:
		return application.PollSuperseded, true
	case !order.Status.AwaitingPayment():
		return application.PollSuperseded, true
	}
	return "", false
}

// ApplyManual applies a staff event. Staff events skip provider verification
// and are recorded with the acting staff identity.
func (g *ReconciliationGateway) ApplyManual(ctx context.Context, orderID string, evt domain.Event) (*Outcome, error) {
	if !evt.Actor().IsStaff() {
		return nil, domain.NewMissingRequiredFieldError("staff_id")
	}

	g.logger.Info("manual lifecycle action",
		"order_id", orderID,
		"event", evt.Name(),
		"actor", evt.Actor(),
	)
	return g.lifecycle.Apply(ctx, orderID, evt)
}

// ExpireSession retires a session that has waited too long. Sessions that
// have already left the open states are left alone.
func (g *ReconciliationGateway) ExpireSession(ctx context.Context, orderID, sessionID string) (*Outcome, error) {
	outcome, err := g.closeSession(ctx, orderID, sessionID, domain.SessionExpired)
	if errors.Is(err, domain.ErrInvalidSessionState) {
		return &Outcome{}, nil
	}
	return outcome, err
}

func (g *ReconciliationGateway) closeSession(ctx context.Context, orderID, sessionID string, target domain.SessionState) (*Outcome, error) {
	return g.lifecycle.UpdateSessions(ctx, orderID, func(o *domain.Order, now time.Time) error {
		return o.CloseSession(sessionID, target, now)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
