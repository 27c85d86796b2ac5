package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so callers can compare
// against the sentinels below regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

const (
	ErrCodeRateUnavailable       = "RATE_UNAVAILABLE"
	ErrCodeAmountMismatch        = "AMOUNT_MISMATCH"
	ErrCodeIllegalTransition     = "ILLEGAL_TRANSITION"
	ErrCodeDuplicateConfirmation = "DUPLICATE_CONFIRMATION"
	ErrCodeVerificationTimedOut  = "VERIFICATION_TIMED_OUT"
	ErrCodeInvalidCodeFormat     = "INVALID_CODE_FORMAT"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeVersionConflict       = "VERSION_CONFLICT"
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeMissingRequiredField  = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidOrderType      = "INVALID_ORDER_TYPE"
	ErrCodeInvalidSessionState   = "INVALID_SESSION_STATE"
	ErrCodeUnknownEvent          = "UNKNOWN_EVENT"
)

var (
	ErrRateUnavailable       = &DomainError{Code: ErrCodeRateUnavailable, Message: "exchange rate unavailable"}
	ErrAmountMismatch        = &DomainError{Code: ErrCodeAmountMismatch, Message: "amount mismatch"}
	ErrIllegalTransition     = &DomainError{Code: ErrCodeIllegalTransition, Message: "illegal transition"}
	ErrDuplicateConfirmation = &DomainError{Code: ErrCodeDuplicateConfirmation, Message: "duplicate confirmation"}
	ErrVerificationTimedOut  = &DomainError{Code: ErrCodeVerificationTimedOut, Message: "verification timed out"}
	ErrInvalidCodeFormat     = &DomainError{Code: ErrCodeInvalidCodeFormat, Message: "invalid code format"}
	ErrOrderNotFound         = &DomainError{Code: ErrCodeOrderNotFound, Message: "order not found"}
	ErrSessionNotFound       = &DomainError{Code: ErrCodeSessionNotFound, Message: "payment session not found"}
	ErrVersionConflict       = &DomainError{Code: ErrCodeVersionConflict, Message: "order was modified concurrently"}
	ErrInvalidAmount         = &DomainError{Code: ErrCodeInvalidAmount, Message: "invalid amount"}
	ErrMissingRequiredField  = &DomainError{Code: ErrCodeMissingRequiredField, Message: "missing required field"}
	ErrInvalidOrderType      = &DomainError{Code: ErrCodeInvalidOrderType, Message: "invalid order type"}
	ErrInvalidSessionState   = &DomainError{Code: ErrCodeInvalidSessionState, Message: "invalid payment session state"}
	ErrUnknownEvent          = &DomainError{Code: ErrCodeUnknownEvent, Message: "unknown lifecycle event"}
)

func NewRateUnavailableError(currency Currency) *DomainError {
	return &DomainError{
		Code:    ErrCodeRateUnavailable,
		Message: fmt.Sprintf("no usable exchange rate for %s", currency),
	}
}

func NewAmountMismatchError(expected string, expectedCurrency Currency, actual string, actualCurrency Currency) *DomainError {
	return &DomainError{
		Code: ErrCodeAmountMismatch,
		Message: fmt.Sprintf("amount mismatch: session quoted %s %s, confirmation carries %s %s",
			expected, expectedCurrency, actual, actualCurrency),
	}
}

func NewIllegalTransitionError(event EventName, from OrderStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeIllegalTransition,
		Message: fmt.Sprintf("cannot apply %s while order is %s", event, from),
	}
}

func NewDuplicateConfirmationError(event EventName, reference string) *DomainError {
	msg := fmt.Sprintf("%s already applied", event)
	if reference != "" {
		msg = fmt.Sprintf("%s already applied for reference %s", event, reference)
	}
	return &DomainError{
		Code:    ErrCodeDuplicateConfirmation,
		Message: msg,
	}
}

func NewVerificationTimedOutError(orderID, sessionID string, attempts int) *DomainError {
	return &DomainError{
		Code:    ErrCodeVerificationTimedOut,
		Message: fmt.Sprintf("session %s of order %s still unconfirmed after %d status checks", sessionID, orderID, attempts),
	}
}

func NewInvalidCodeFormatError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCodeFormat,
		Message: fmt.Sprintf("%q is not a valid order code", code),
	}
}

func NewOrderNotFoundError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order %s not found", key),
	}
}

func NewSessionNotFoundError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("payment session %s not found", key),
	}
}

func NewVersionConflictError(orderID string, expected int) *DomainError {
	return &DomainError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("order %s is no longer at version %d", orderID, expected),
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidOrderTypeError(t string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidOrderType,
		Message: fmt.Sprintf("unknown order type %q", t),
	}
}

func NewInvalidSessionStateError(sessionID string, current, target SessionState) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidSessionState,
		Message: fmt.Sprintf("session %s cannot move from %s to %s", sessionID, current, target),
	}
}

func NewUnknownEventError(name string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownEvent,
		Message: fmt.Sprintf("unknown lifecycle event %q", name),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
