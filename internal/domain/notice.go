package domain

import "time"

// TransitionNotice is handed to the notification collaborator once per
// committed lifecycle event.
type TransitionNotice struct {
	OrderID     string      `json:"order_id"`
	HumanCode   string      `json:"human_code"`
	OrderType   OrderType   `json:"order_type"`
	Event       EventName   `json:"event"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	TriggeredBy Actor       `json:"triggered_by"`
	Reference   string      `json:"reference,omitempty"`
	Email       string      `json:"email,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

func NewTransitionNotice(o *Order, from OrderStatus, entry StatusEntry) TransitionNotice {
	return TransitionNotice{
		OrderID:     o.ID,
		HumanCode:   o.HumanCode,
		OrderType:   o.Type,
		Event:       entry.Event,
		From:        from,
		To:          entry.Status,
		TriggeredBy: entry.TriggeredBy,
		Reference:   entry.Reference,
		Email:       o.Customer.Email,
		OccurredAt:  entry.OccurredAt,
	}
}

// ConfirmationKey is the idempotency key for provider confirmations.
type ConfirmationKey struct {
	OrderID           string
	ProviderReference string
	SessionID         string
}
