package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionInitiated            SessionState = "initiated"
	SessionAwaitingConfirmation SessionState = "awaiting_confirmation"
	SessionConfirmed            SessionState = "confirmed"
	SessionFailed               SessionState = "failed"
	SessionExpired              SessionState = "expired"
	SessionCancelled            SessionState = "cancelled"
)

// Open reports whether the session can still be confirmed or closed.
func (s SessionState) Open() bool {
	return s == SessionInitiated || s == SessionAwaitingConfirmation
}

// PaymentSession is one attempt to pay for an order through one provider.
type PaymentSession struct {
	ID                string
	OrderID           string
	Provider          Provider
	RequestedAmount   decimal.Decimal
	RequestedCurrency Currency
	ExchangeRate      decimal.Decimal
	RateFallback      bool
	ProviderReference string
	CheckoutURL       string
	State             SessionState
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ConfirmedAt       *time.Time
}

func NewPaymentSession(id, orderID string, provider Provider, amount decimal.Decimal, currency Currency, rate ExchangeRate, fallback bool, now time.Time) (*PaymentSession, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("session_id")
	}
	if !provider.Valid() {
		return nil, NewMissingRequiredFieldError("provider")
	}
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError(amount.String())
	}
	if !currency.Valid() {
		return nil, NewMissingRequiredFieldError("currency")
	}

	return &PaymentSession{
		ID:                id,
		OrderID:           orderID,
		Provider:          provider,
		RequestedAmount:   amount,
		RequestedCurrency: currency,
		ExchangeRate:      rate.Rate,
		RateFallback:      fallback,
		State:             SessionInitiated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Matches reports whether a confirmed amount is exactly what this session quoted.
func (s *PaymentSession) Matches(amount decimal.Decimal, currency Currency) bool {
	return s.RequestedCurrency == currency && s.RequestedAmount.Equal(amount)
}

func (s *PaymentSession) acknowledge(reference, checkoutURL string, now time.Time) error {
	if s.State != SessionInitiated {
		return NewInvalidSessionStateError(s.ID, s.State, SessionAwaitingConfirmation)
	}
	if reference == "" {
		return NewMissingRequiredFieldError("provider_reference")
	}
	s.ProviderReference = reference
	s.CheckoutURL = checkoutURL
	s.State = SessionAwaitingConfirmation
	s.UpdatedAt = now
	return nil
}

func (s *PaymentSession) confirm(reference string, now time.Time) error {
	if s.State != SessionAwaitingConfirmation {
		return NewInvalidSessionStateError(s.ID, s.State, SessionConfirmed)
	}
	if s.ProviderReference == "" {
		s.ProviderReference = reference
	}
	s.State = SessionConfirmed
	s.UpdatedAt = now
	s.ConfirmedAt = &now
	return nil
}

func (s *PaymentSession) close(target SessionState, now time.Time) error {
	if !s.State.Open() {
		return NewInvalidSessionStateError(s.ID, s.State, target)
	}
	switch target {
	case SessionFailed, SessionExpired, SessionCancelled:
	default:
		return NewInvalidSessionStateError(s.ID, s.State, target)
	}
	s.State = target
	s.UpdatedAt = now
	return nil
}
