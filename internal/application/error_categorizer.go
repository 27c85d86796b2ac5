package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	// Lifecycle violations are never retried automatically.
	if errors.Is(err, domain.ErrIllegalTransition) ||
		errors.Is(err, domain.ErrAmountMismatch) ||
		errors.Is(err, domain.ErrDuplicateConfirmation) ||
		errors.Is(err, domain.ErrInvalidSessionState) ||
		errors.Is(err, domain.ErrVerificationTimedOut) {
		return CategoryBusinessRule
	}

	if errors.Is(err, domain.ErrVersionConflict) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrRateUnavailable) {
		return CategoryInfrastructure
	}

	if errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrInvalidCodeFormat) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, domain.ErrInvalidOrderType) ||
		errors.Is(err, domain.ErrUnknownEvent) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeUnauthorized, ErrCodePayloadTooLarge, ErrCodeUnsupportedMedia:
			return CategoryClientError
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeTimeout:
			return CategoryTransient
		}
	}

	if providerErr, ok := IsProviderError(err); ok {
		if providerErr.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Default: Transient (network failures reaching a provider land here)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrInvalidOrderType),
		errors.Is(err, domain.ErrUnknownEvent):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrInvalidSessionState),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrDuplicateConfirmation):
		return http.StatusConflict

	// A malformed code is reported exactly like an unknown one.
	case errors.Is(err, domain.ErrInvalidCodeFormat),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrVerificationTimedOut):
		return http.StatusAccepted

	case errors.Is(err, domain.ErrRateUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	if _, ok := IsProviderError(err); ok {
		return http.StatusBadGateway
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return domErr.Code
	}

	if providerErr, ok := IsProviderError(err); ok {
		return "PROVIDER_" + strings.ToUpper(providerErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}
