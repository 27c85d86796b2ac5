// Package domain models atelier orders, their payment sessions and the
// lifecycle that moves them from checkout to delivery.
package domain

import (
	"strconv"
	"strings"
	"time"
)

type OrderType string

const (
	OrderTypeBulk          OrderType = "bulk"
	OrderTypePOD           OrderType = "pod"
	OrderTypeBoutique      OrderType = "boutique"
	OrderTypeFabric        OrderType = "fabric"
	OrderTypeSouvenir      OrderType = "souvenir"
	OrderTypeCustomRequest OrderType = "custom_request"
)

func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case OrderTypeBulk, OrderTypePOD, OrderTypeBoutique, OrderTypeFabric, OrderTypeSouvenir, OrderTypeCustomRequest:
		return t, nil
	}
	return "", NewInvalidOrderTypeError(s)
}

// IsEnquiry reports whether orders of this type are priced by staff quote.
func (t OrderType) IsEnquiry() bool {
	return t == OrderTypeCustomRequest
}

type OrderStatus string

const (
	StatusPendingPayment   OrderStatus = "pending_payment"
	StatusPaymentSubmitted OrderStatus = "payment_submitted"
	StatusPaymentVerified  OrderStatus = "payment_verified"
	StatusInProduction     OrderStatus = "in_production"
	StatusReadyForDelivery OrderStatus = "ready_for_delivery"
	StatusCompleted        OrderStatus = "completed"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
	StatusQuoted           OrderStatus = "quoted"
	StatusAccepted         OrderStatus = "accepted"
	StatusRejected         OrderStatus = "rejected"
)

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

// IsPaid reports whether the order has reached payment_verified or any later
// production stage.
func (s OrderStatus) IsPaid() bool {
	switch s {
	case StatusPaymentVerified, StatusInProduction, StatusReadyForDelivery, StatusCompleted, StatusDelivered:
		return true
	}
	return false
}

// AwaitingPayment reports whether a payment confirmation can still move the order.
func (s OrderStatus) AwaitingPayment() bool {
	return s == StatusPendingPayment || s == StatusPaymentSubmitted || s == StatusAccepted
}

var customerLabels = map[OrderStatus]string{
	StatusPendingPayment:   "Awaiting payment",
	StatusPaymentSubmitted: "Payment received, being checked",
	StatusPaymentVerified:  "Payment confirmed",
	StatusInProduction:     "In production",
	StatusReadyForDelivery: "Ready for delivery",
	StatusCompleted:        "Completed",
	StatusDelivered:        "Delivered",
	StatusCancelled:        "Cancelled",
	StatusQuoted:           "Quote ready for review",
	StatusAccepted:         "Quote accepted, awaiting payment",
	StatusRejected:         "Quote declined",
}

// CustomerLabel is the wording shown to customers. Unknown states read as pending.
func (s OrderStatus) CustomerLabel() string {
	if l, ok := customerLabels[s]; ok {
		return l
	}
	return "Pending"
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

// Actor identifies who triggered a history entry, e.g. "staff:ada" or "provider_a".
type Actor string

const ActorCustomer Actor = "customer"

func StaffActor(id string) Actor {
	return Actor("staff:" + id)
}

func ProviderActor(p Provider) Actor {
	return Actor(p)
}

func (a Actor) IsStaff() bool {
	return strings.HasPrefix(string(a), "staff:") && len(a) > len("staff:")
}

// StatusEntry is one append-only line of an order's audit trail.
type StatusEntry struct {
	Status      OrderStatus
	Event       EventName
	TriggeredBy Actor
	Reference   string
	Note        string
	OccurredAt  time.Time
}

// Order is the root aggregate: status, history and payment sessions change together.
type Order struct {
	ID              string
	HumanCode       string
	Type            OrderType
	Details         OrderDetails
	Customer        Customer
	CanonicalAmount int64
	Status          OrderStatus
	PaymentProvider *Provider
	Sessions        []*PaymentSession
	History         []StatusEntry
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateOrder checks everything NewOrder needs except the code, so callers
// can validate before allocating one.
func ValidateOrder(details OrderDetails, customer Customer, amount int64) error {
	if details == nil {
		return NewMissingRequiredFieldError("details")
	}
	if err := details.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(customer.Name) == "" {
		return NewMissingRequiredFieldError("customer.name")
	}
	if strings.TrimSpace(customer.Email) == "" && strings.TrimSpace(customer.Phone) == "" {
		return NewMissingRequiredFieldError("customer.email or customer.phone")
	}

	t := details.OrderType()
	switch {
	case amount < 0:
		return NewInvalidAmountError(strconv.FormatInt(amount, 10))
	case amount == 0 && !t.IsEnquiry():
		return NewInvalidAmountError("0")
	case amount != 0 && t.IsEnquiry():
		// Enquiries are priced by staff through AdminQuotes.
		return NewInvalidAmountError(strconv.FormatInt(amount, 10))
	}
	return nil
}

func NewOrder(id string, code HumanCode, details OrderDetails, customer Customer, amount int64, now time.Time) (*Order, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("id")
	}
	if err := ValidateOrder(details, customer, amount); err != nil {
		return nil, err
	}

	return &Order{
		ID:              id,
		HumanCode:       code.String(),
		Type:            details.OrderType(),
		Details:         details,
		Customer:        customer,
		CanonicalAmount: amount,
		Status:          StatusPendingPayment,
		History: []StatusEntry{{
			Status:      StatusPendingPayment,
			Event:       EventOrderCreated,
			TriggeredBy: ActorCustomer,
			OccurredAt:  now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Session returns the session with the given id, or nil.
func (o *Order) Session(id string) *PaymentSession {
	for _, s := range o.Sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SessionByReference returns the provider's session carrying reference, or nil.
func (o *Order) SessionByReference(p Provider, reference string) *PaymentSession {
	for _, s := range o.Sessions {
		if s.Provider == p && s.ProviderReference == reference && reference != "" {
			return s
		}
	}
	return nil
}

func (o *Order) confirmedSession() *PaymentSession {
	for _, s := range o.Sessions {
		if s.State == SessionConfirmed {
			return s
		}
	}
	return nil
}

// LastEntry returns the most recent history entry.
func (o *Order) LastEntry() StatusEntry {
	if len(o.History) == 0 {
		return StatusEntry{}
	}
	return o.History[len(o.History)-1]
}

// Allows reports whether the named event is legal from the current status.
// It does not check event-specific preconditions.
func (o *Order) Allows(name EventName) error {
	return checkAllowed(o, name)
}

// AcceptsPaymentSession reports whether a new checkout attempt may start.
func (o *Order) AcceptsPaymentSession() error {
	if err := checkAllowed(o, EventPaymentSessionCreated); err != nil {
		return err
	}
	if o.CanonicalAmount <= 0 {
		return NewInvalidAmountError("0")
	}
	return nil
}

// AcknowledgeSession records the provider's reference for an initiated session.
// Earlier sessions still waiting on a provider stay confirmable; the first
// confirmation retires the rest.
func (o *Order) AcknowledgeSession(sessionID, reference, checkoutURL string, now time.Time) error {
	s := o.Session(sessionID)
	if s == nil {
		return NewSessionNotFoundError(sessionID)
	}
	if o.confirmedSession() != nil {
		return NewIllegalTransitionError(EventPaymentSessionCreated, o.Status)
	}
	if err := s.acknowledge(reference, checkoutURL, now); err != nil {
		return err
	}
	o.UpdatedAt = now
	return nil
}

// CloseSession moves an open session to failed, expired or cancelled.
func (o *Order) CloseSession(sessionID string, target SessionState, now time.Time) error {
	s := o.Session(sessionID)
	if s == nil {
		return NewSessionNotFoundError(sessionID)
	}
	if err := s.close(target, now); err != nil {
		return err
	}
	o.UpdatedAt = now
	return nil
}
