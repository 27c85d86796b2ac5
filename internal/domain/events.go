package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type EventName string

const (
	EventOrderCreated             EventName = "OrderCreated"
	EventPaymentSessionCreated    EventName = "PaymentSessionCreated"
	EventProviderConfirmedPayment EventName = "ProviderConfirmedPayment"
	EventManualProofSubmitted     EventName = "ManualProofSubmitted"
	EventAdminVerifiedPayment     EventName = "AdminVerifiedPayment"
	EventAdminMarksInProduction   EventName = "AdminMarksInProduction"
	EventAdminMarksReady          EventName = "AdminMarksReady"
	EventAdminMarksCompleted      EventName = "AdminMarksCompleted"
	EventAdminMarksDelivered      EventName = "AdminMarksDelivered"
	EventAdminCancels             EventName = "AdminCancels"
	EventAdminQuotes              EventName = "AdminQuotes"
	EventCustomerAcceptsQuote     EventName = "CustomerAcceptsQuote"
	EventCustomerRejectsQuote     EventName = "CustomerRejectsQuote"
)

// Event is the closed set of things that can happen to an order. The
// unexported method keeps the set closed to this package.
type Event interface {
	Name() EventName
	Actor() Actor
	reference() string
	note() string
}

type PaymentSessionCreated struct {
	Session *PaymentSession
}

func (PaymentSessionCreated) Name() EventName { return EventPaymentSessionCreated }
func (PaymentSessionCreated) Actor() Actor    { return ActorCustomer }
func (e PaymentSessionCreated) reference() string {
	if e.Session == nil {
		return ""
	}
	return e.Session.ID
}
func (PaymentSessionCreated) note() string { return "" }

// ProviderConfirmedPayment is produced by the gateway from a provider callback or poll.
type ProviderConfirmedPayment struct {
	Provider          Provider
	SessionID         string
	ProviderReference string
	Amount            decimal.Decimal
	Currency          Currency
}

func (ProviderConfirmedPayment) Name() EventName     { return EventProviderConfirmedPayment }
func (e ProviderConfirmedPayment) Actor() Actor      { return ProviderActor(e.Provider) }
func (e ProviderConfirmedPayment) reference() string { return e.ProviderReference }
func (ProviderConfirmedPayment) note() string        { return "" }

type ManualProofSubmitted struct {
	ProofKey          string
	TransferReference string
}

func (ManualProofSubmitted) Name() EventName     { return EventManualProofSubmitted }
func (ManualProofSubmitted) Actor() Actor        { return ActorCustomer }
func (e ManualProofSubmitted) reference() string { return e.ProofKey }
func (e ManualProofSubmitted) note() string      { return e.TransferReference }

// StaffAction carries the acting staff member shared by every admin event.
type StaffAction struct {
	StaffID string
	Note    string
}

func (a StaffAction) Actor() Actor    { return StaffActor(a.StaffID) }
func (StaffAction) reference() string { return "" }
func (a StaffAction) note() string    { return a.Note }

type AdminVerifiedPayment struct{ StaffAction }

func (AdminVerifiedPayment) Name() EventName { return EventAdminVerifiedPayment }

type AdminMarksInProduction struct{ StaffAction }

func (AdminMarksInProduction) Name() EventName { return EventAdminMarksInProduction }

type AdminMarksReady struct{ StaffAction }

func (AdminMarksReady) Name() EventName { return EventAdminMarksReady }

type AdminMarksCompleted struct{ StaffAction }

func (AdminMarksCompleted) Name() EventName { return EventAdminMarksCompleted }

type AdminMarksDelivered struct{ StaffAction }

func (AdminMarksDelivered) Name() EventName { return EventAdminMarksDelivered }

type AdminCancels struct{ StaffAction }

func (AdminCancels) Name() EventName { return EventAdminCancels }

// AdminQuotes prices an enquiry.
type AdminQuotes struct {
	StaffAction
	Amount int64
}

func (AdminQuotes) Name() EventName { return EventAdminQuotes }

type CustomerAcceptsQuote struct{}

func (CustomerAcceptsQuote) Name() EventName   { return EventCustomerAcceptsQuote }
func (CustomerAcceptsQuote) Actor() Actor      { return ActorCustomer }
func (CustomerAcceptsQuote) reference() string { return "" }
func (CustomerAcceptsQuote) note() string      { return "" }

type CustomerRejectsQuote struct {
	Reason string
}

func (CustomerRejectsQuote) Name() EventName   { return EventCustomerRejectsQuote }
func (CustomerRejectsQuote) Actor() Actor      { return ActorCustomer }
func (CustomerRejectsQuote) reference() string { return "" }
func (e CustomerRejectsQuote) note() string    { return e.Reason }

// adminEventNames accepts the spelling used on staff screens as an alias.
var adminEventNames = map[string]EventName{
	"adminverifiedpayment":      EventAdminVerifiedPayment,
	"adminmarksinproduction":    EventAdminMarksInProduction,
	"adminmarksproductionstage": EventAdminMarksInProduction,
	"adminmarksready":           EventAdminMarksReady,
	"adminmarkscompleted":       EventAdminMarksCompleted,
	"adminmarksdelivered":       EventAdminMarksDelivered,
	"admincancels":              EventAdminCancels,
	"adminquotes":               EventAdminQuotes,
}

// NewAdminEvent validates a staff request and builds the matching event.
func NewAdminEvent(name, staffID, note string, amount int64) (Event, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	ev, ok := adminEventNames[key]
	if !ok {
		return nil, NewUnknownEventError(name)
	}
	if strings.TrimSpace(staffID) == "" {
		return nil, NewMissingRequiredFieldError("staff_id")
	}

	action := StaffAction{StaffID: strings.TrimSpace(staffID), Note: note}
	switch ev {
	case EventAdminVerifiedPayment:
		return AdminVerifiedPayment{action}, nil
	case EventAdminMarksInProduction:
		return AdminMarksInProduction{action}, nil
	case EventAdminMarksReady:
		return AdminMarksReady{action}, nil
	case EventAdminMarksCompleted:
		return AdminMarksCompleted{action}, nil
	case EventAdminMarksDelivered:
		return AdminMarksDelivered{action}, nil
	case EventAdminCancels:
		return AdminCancels{action}, nil
	default:
		if amount <= 0 {
			return nil, NewInvalidAmountError(strconv.FormatInt(amount, 10))
		}
		return AdminQuotes{StaffAction: action, Amount: amount}, nil
	}
}
