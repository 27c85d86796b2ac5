package application

import (
	"context"
	"io"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

// Change describes what Save must persist alongside the order row.
type Change struct {
	// ExpectedVersion is the version the order had when it was loaded.
	ExpectedVersion int
	// Entry is the history entry appended by this change, if any.
	Entry *domain.StatusEntry
	// Confirmation is recorded for provider confirmations. A second save with
	// the same key fails with domain.ErrDuplicateConfirmation.
	Confirmation *domain.ConfirmationKey
}

type SessionFilter struct {
	Provider      domain.Provider
	CreatedBefore time.Time
	Limit         int
}

// SessionRef points at an open payment session without loading its order.
type SessionRef struct {
	OrderID           string
	SessionID         string
	Provider          domain.Provider
	ProviderReference string
	State             domain.SessionState
	OrderStatus       domain.OrderStatus
	CreatedAt         time.Time
}

// OrderRepository is the port for order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByHumanCode(ctx context.Context, code string) (*domain.Order, error)
	FindBySessionReference(ctx context.Context, provider domain.Provider, reference string) (*domain.Order, error)
	// Save writes the order under an optimistic version check and bumps
	// order.Version on success. A stale version yields domain.ErrVersionConflict.
	Save(ctx context.Context, order *domain.Order, change Change) error
	FindOpenSessions(ctx context.Context, filter SessionFilter) ([]SessionRef, error)
}

// CodeCounter atomically increments and returns the sequence for a bucket.
type CodeCounter interface {
	Next(ctx context.Context, prefix domain.CodePrefix, day time.Time) (int, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	ListByOrderCode(ctx context.Context, orderCode string) ([]*domain.Refund, error)
}

// CheckoutRequest is what both providers need to open a payment attempt.
type CheckoutRequest struct {
	SessionID     string
	OrderID       string
	HumanCode     string
	Amount        decimal.Decimal
	Currency      domain.Currency
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type ProviderSession struct {
	Reference   string
	CheckoutURL string
}

// ProviderAClient opens push-confirmed sessions. Confirmation arrives later
// as a signed callback.
type ProviderAClient interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*ProviderSession, error)
}

type CheckoutState string

const (
	CheckoutPending CheckoutState = "pending"
	CheckoutPaid    CheckoutState = "paid"
	CheckoutExpired CheckoutState = "expired"
	CheckoutFailed  CheckoutState = "failed"
)

func (s CheckoutState) Terminal() bool {
	return s == CheckoutPaid || s == CheckoutExpired || s == CheckoutFailed
}

type CheckoutStatus struct {
	Reference string
	State     CheckoutState
	Amount    decimal.Decimal
	Currency  domain.Currency
}

// ProviderBClient opens hosted checkouts that have to be polled.
type ProviderBClient interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*ProviderSession, error)
	GetStatus(ctx context.Context, reference string) (*CheckoutStatus, error)
}

type RateSource interface {
	GetRate(ctx context.Context, currency domain.Currency) (domain.ExchangeRate, error)
}

// RequestContext is what the HTTP layer knows about the caller's location.
type RequestContext struct {
	IP          string
	CountryHint string
}

type GeoLocator interface {
	Detect(ctx context.Context, rc RequestContext) (string, error)
}

type ProofStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

type Notifier interface {
	Notify(ctx context.Context, notice domain.TransitionNotice) error
}

// PollScheduler starts a background poll for a provider B session.
type PollScheduler interface {
	Schedule(orderID, sessionID string)
}

type PollOutcome string

const (
	PollConfirmed  PollOutcome = "confirmed"
	PollTimedOut   PollOutcome = "timed_out"
	PollExpired    PollOutcome = "expired"
	PollFailed     PollOutcome = "failed"
	PollSuperseded PollOutcome = "superseded"
)

type Metrics interface {
	TransitionApplied(ctx context.Context, event domain.EventName)
	TransitionRejected(ctx context.Context, reason string)
	PollFinished(ctx context.Context, outcome PollOutcome)
	RateFallback(ctx context.Context, currency domain.Currency)
}

type NopMetrics struct{}

func (NopMetrics) TransitionApplied(context.Context, domain.EventName) {}
func (NopMetrics) TransitionRejected(context.Context, string)          {}
func (NopMetrics) PollFinished(context.Context, PollOutcome)           {}
func (NopMetrics) RateFallback(context.Context, domain.Currency)       {}
