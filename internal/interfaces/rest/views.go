package rest

import (
	"encoding/json"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

// OrderView is what customers see. Internal states are reduced to a label.
type OrderView struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"`
	Type        domain.OrderType   `json:"type"`
	Status      domain.OrderStatus `json:"status"`
	StatusLabel string             `json:"status_label"`
	Amount      int64              `json:"amount"`
	Currency    domain.Currency    `json:"currency"`
	Details     json.RawMessage    `json:"details"`
	CheckoutURL string             `json:"checkout_url,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type SessionView struct {
	ID                string              `json:"id"`
	Provider          domain.Provider     `json:"provider"`
	State             domain.SessionState `json:"state"`
	Amount            string              `json:"amount"`
	Currency          domain.Currency     `json:"currency"`
	ExchangeRate      string              `json:"exchange_rate"`
	RateFallback      bool                `json:"rate_fallback"`
	ProviderReference string              `json:"provider_reference,omitempty"`
	CheckoutURL       string              `json:"checkout_url,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	ConfirmedAt       *time.Time          `json:"confirmed_at,omitempty"`
}

type HistoryView struct {
	Status      domain.OrderStatus `json:"status"`
	Event       domain.EventName   `json:"event"`
	TriggeredBy domain.Actor       `json:"triggered_by"`
	Reference   string             `json:"reference,omitempty"`
	Note        string             `json:"note,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// AdminOrderView is the staff view: raw status, customer, sessions and the
// full audit trail.
type AdminOrderView struct {
	OrderView
	Customer        domain.Customer  `json:"customer"`
	PaymentProvider *domain.Provider `json:"payment_provider,omitempty"`
	Version         int              `json:"version"`
	Sessions        []SessionView    `json:"sessions"`
	History         []HistoryView    `json:"history"`
}

type RefundView struct {
	ID         string              `json:"id"`
	OrderCode  string              `json:"order_code"`
	OrderID    *string             `json:"order_id,omitempty"`
	Amount     string              `json:"amount"`
	Currency   domain.Currency     `json:"currency"`
	Reason     string              `json:"reason"`
	Method     domain.RefundMethod `json:"method"`
	RecordedBy domain.Actor        `json:"recorded_by"`
	CreatedAt  time.Time           `json:"created_at"`
}

func ToOrderView(o *domain.Order) OrderView {
	view := OrderView{
		ID:          o.ID,
		Code:        o.HumanCode,
		Type:        o.Type,
		Status:      o.Status,
		StatusLabel: o.Status.CustomerLabel(),
		Amount:      o.CanonicalAmount,
		Currency:    domain.HomeCurrency,
		Details:     encodeDetails(o.Details),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Status.AwaitingPayment() {
		for _, s := range o.Sessions {
			if s.State == domain.SessionAwaitingConfirmation {
				view.CheckoutURL = s.CheckoutURL
			}
		}
	}
	return view
}

func ToSessionView(s *domain.PaymentSession) SessionView {
	return SessionView{
		ID:                s.ID,
		Provider:          s.Provider,
		State:             s.State,
		Amount:            s.RequestedAmount.String(),
		Currency:          s.RequestedCurrency,
		ExchangeRate:      s.ExchangeRate.String(),
		RateFallback:      s.RateFallback,
		ProviderReference: s.ProviderReference,
		CheckoutURL:       s.CheckoutURL,
		CreatedAt:         s.CreatedAt,
		ConfirmedAt:       s.ConfirmedAt,
	}
}

func ToAdminOrderView(o *domain.Order) AdminOrderView {
	view := AdminOrderView{
		OrderView:       ToOrderView(o),
		Customer:        o.Customer,
		PaymentProvider: o.PaymentProvider,
		Version:         o.Version,
		Sessions:        make([]SessionView, 0, len(o.Sessions)),
		History:         make([]HistoryView, 0, len(o.History)),
	}
	for _, s := range o.Sessions {
		view.Sessions = append(view.Sessions, ToSessionView(s))
	}
	for _, e := range o.History {
		view.History = append(view.History, HistoryView{
			Status:      e.Status,
			Event:       e.Event,
			TriggeredBy: e.TriggeredBy,
			Reference:   e.Reference,
			Note:        e.Note,
			OccurredAt:  e.OccurredAt,
		})
	}
	return view
}

func ToRefundView(r *domain.Refund) RefundView {
	return RefundView{
		ID:         r.ID,
		OrderCode:  r.OrderCode,
		OrderID:    r.OrderID,
		Amount:     r.Amount.String(),
		Currency:   r.Currency,
		Reason:     r.Reason,
		Method:     r.Method,
		RecordedBy: r.RecordedBy,
		CreatedAt:  r.CreatedAt,
	}
}

// encodeDetails renders the typed details as their wire object.
func encodeDetails(d domain.OrderDetails) json.RawMessage {
	raw, err := json.Marshal(d)
	if err != nil || d == nil {
		return json.RawMessage("{}")
	}
	return raw
}
