package postgres

import (
	"time"
)

type OrderModel struct {
	ID              string
	HumanCode       string
	OrderType       string
	Details         []byte
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerCountry string
	CanonicalAmount int64
	Status          string
	PaymentProvider *string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionModel keeps NUMERIC columns as text so no precision is lost on the
// way to decimal.Decimal.
type SessionModel struct {
	ID                string
	OrderID           string
	Provider          string
	RequestedAmount   string
	RequestedCurrency string
	ExchangeRate      string
	RateFallback      bool
	ProviderReference *string
	CheckoutURL       string
	State             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ConfirmedAt       *time.Time
}

type HistoryModel struct {
	OrderID     string
	Position    int
	Status      string
	Event       string
	TriggeredBy string
	Reference   string
	Note        string
	OccurredAt  time.Time
}

type RefundModel struct {
	ID         string
	OrderCode  string
	OrderID    *string
	Amount     string
	Currency   string
	Reason     string
	Method     string
	RecordedBy string
	CreatedAt  time.Time
}
