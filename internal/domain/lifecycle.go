package domain

import (
	"slices"
	"time"
)

type transitionRule struct {
	from []OrderStatus
	// enquiryFrom are extra source states allowed for enquiry orders only.
	enquiryFrom []OrderStatus
	// to is empty when the event records something without moving status.
	to          OrderStatus
	enquiryOnly bool
}

var transitions = map[EventName]transitionRule{
	EventPaymentSessionCreated: {
		from:        []OrderStatus{StatusPendingPayment},
		enquiryFrom: []OrderStatus{StatusAccepted},
	},
	EventProviderConfirmedPayment: {
		from:        []OrderStatus{StatusPendingPayment, StatusPaymentSubmitted},
		enquiryFrom: []OrderStatus{StatusAccepted},
		to:          StatusPaymentVerified,
	},
	EventManualProofSubmitted: {
		from:        []OrderStatus{StatusPendingPayment},
		enquiryFrom: []OrderStatus{StatusAccepted},
		to:          StatusPaymentSubmitted,
	},
	EventAdminVerifiedPayment: {
		from:        []OrderStatus{StatusPaymentSubmitted, StatusPendingPayment},
		enquiryFrom: []OrderStatus{StatusAccepted},
		to:          StatusPaymentVerified,
	},
	EventAdminMarksInProduction: {
		from: []OrderStatus{StatusPaymentVerified},
		to:   StatusInProduction,
	},
	EventAdminMarksReady: {
		from: []OrderStatus{StatusInProduction},
		to:   StatusReadyForDelivery,
	},
	EventAdminMarksCompleted: {
		from: []OrderStatus{StatusReadyForDelivery},
		to:   StatusCompleted,
	},
	EventAdminMarksDelivered: {
		from: []OrderStatus{StatusCompleted},
		to:   StatusDelivered,
	},
	EventAdminCancels: {
		from:        []OrderStatus{StatusPendingPayment, StatusPaymentSubmitted},
		enquiryFrom: []OrderStatus{StatusQuoted, StatusAccepted},
		to:          StatusCancelled,
	},
	EventAdminQuotes: {
		from:        []OrderStatus{StatusPendingPayment},
		to:          StatusQuoted,
		enquiryOnly: true,
	},
	EventCustomerAcceptsQuote: {
		from:        []OrderStatus{StatusQuoted},
		to:          StatusAccepted,
		enquiryOnly: true,
	},
	EventCustomerRejectsQuote: {
		from:        []OrderStatus{StatusQuoted},
		to:          StatusRejected,
		enquiryOnly: true,
	},
}

func (r transitionRule) allows(o *Order) bool {
	if r.enquiryOnly && !o.Type.IsEnquiry() {
		return false
	}
	if slices.Contains(r.from, o.Status) {
		return true
	}
	return o.Type.IsEnquiry() && slices.Contains(r.enquiryFrom, o.Status)
}

func (r transitionRule) target(current OrderStatus) OrderStatus {
	if r.to == "" {
		return current
	}
	return r.to
}

func checkAllowed(o *Order, name EventName) error {
	rule, ok := transitions[name]
	if !ok {
		return NewUnknownEventError(string(name))
	}
	if !rule.allows(o) {
		return NewIllegalTransitionError(name, o.Status)
	}
	return nil
}

// Apply validates evt against the transition table and, when legal, mutates
// status, sessions and history together. Nothing is changed when an error is
// returned. A re-delivered event yields ErrDuplicateConfirmation and no change.
func (o *Order) Apply(evt Event, now time.Time) (StatusEntry, error) {
	if evt == nil {
		return StatusEntry{}, NewUnknownEventError("")
	}
	rule, ok := transitions[evt.Name()]
	if !ok {
		return StatusEntry{}, NewUnknownEventError(string(evt.Name()))
	}

	if o.isDuplicate(evt, rule) {
		return StatusEntry{}, NewDuplicateConfirmationError(evt.Name(), evt.reference())
	}
	if !rule.allows(o) {
		return StatusEntry{}, NewIllegalTransitionError(evt.Name(), o.Status)
	}

	mutate, err := o.prepare(evt, now)
	if err != nil {
		return StatusEntry{}, err
	}
	mutate()

	entry := StatusEntry{
		Status:      rule.target(o.Status),
		Event:       evt.Name(),
		TriggeredBy: evt.Actor(),
		Reference:   evt.reference(),
		Note:        evt.note(),
		OccurredAt:  now,
	}
	o.Status = entry.Status
	o.History = append(o.History, entry)
	o.UpdatedAt = now

	return entry, nil
}

// prepare runs the event-specific checks and returns the mutation to apply
// once every check has passed.
func (o *Order) prepare(evt Event, now time.Time) (func(), error) {
	switch e := evt.(type) {
	case PaymentSessionCreated:
		if e.Session == nil {
			return nil, NewMissingRequiredFieldError("session")
		}
		if o.CanonicalAmount <= 0 {
			return nil, NewInvalidAmountError("0")
		}
		if e.Session.State != SessionInitiated {
			return nil, NewInvalidSessionStateError(e.Session.ID, e.Session.State, SessionInitiated)
		}
		return func() {
			provider := e.Session.Provider
			e.Session.OrderID = o.ID
			o.Sessions = append(o.Sessions, e.Session)
			o.PaymentProvider = &provider
		}, nil

	case ProviderConfirmedPayment:
		s := o.Session(e.SessionID)
		if s == nil {
			s = o.SessionByReference(e.Provider, e.ProviderReference)
		}
		if s == nil {
			return nil, NewSessionNotFoundError(e.ProviderReference)
		}
		if s.State != SessionAwaitingConfirmation {
			return nil, NewInvalidSessionStateError(s.ID, s.State, SessionConfirmed)
		}
		if !s.Matches(e.Amount, e.Currency) {
			return nil, NewAmountMismatchError(s.RequestedAmount.String(), s.RequestedCurrency, e.Amount.String(), e.Currency)
		}
		return func() {
			_ = s.confirm(e.ProviderReference, now)
			provider := s.Provider
			o.PaymentProvider = &provider
			for _, other := range o.Sessions {
				if other.ID != s.ID && other.State.Open() {
					_ = other.close(SessionCancelled, now)
				}
			}
		}, nil

	case ManualProofSubmitted:
		if e.ProofKey == "" {
			return nil, NewMissingRequiredFieldError("proof_key")
		}

	case AdminQuotes:
		if e.Amount <= 0 {
			return nil, NewInvalidAmountError("0")
		}
		return func() { o.CanonicalAmount = e.Amount }, nil

	case AdminCancels:
		if !evt.Actor().IsStaff() {
			return nil, NewMissingRequiredFieldError("staff_id")
		}
		return func() {
			for _, s := range o.Sessions {
				if s.State.Open() {
					_ = s.close(SessionCancelled, now)
				}
			}
		}, nil

	case AdminVerifiedPayment, AdminMarksInProduction, AdminMarksReady, AdminMarksCompleted,
		AdminMarksDelivered:
		if !evt.Actor().IsStaff() {
			return nil, NewMissingRequiredFieldError("staff_id")
		}
	}
	return func() {}, nil
}

// isDuplicate detects a re-delivery of something the order already reflects.
func (o *Order) isDuplicate(evt Event, rule transitionRule) bool {
	switch e := evt.(type) {
	case PaymentSessionCreated:
		return e.Session != nil && o.Session(e.Session.ID) != nil

	case ProviderConfirmedPayment:
		if s := o.Session(e.SessionID); s != nil && s.State == SessionConfirmed {
			return true
		}
		for _, h := range o.History {
			if h.Event == EventProviderConfirmedPayment && h.Reference == e.ProviderReference && e.ProviderReference != "" {
				return true
			}
		}
		return o.Status.IsPaid()

	case AdminVerifiedPayment:
		return o.Status.IsPaid()
	}

	last := o.LastEntry()
	return rule.to != "" && o.Status == rule.to && last.Event == evt.Name()
}
