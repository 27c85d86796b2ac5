package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
)

func NewTimeoutError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeTimeout,
		Message:    "Request timed out waiting for completion",
		HTTPStatus: http.StatusRequestTimeout,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewUnauthorizedError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewPayloadTooLargeError(size, limit int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayloadTooLarge,
		Message:    fmt.Sprintf("file is %d bytes, limit is %d", size, limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func NewUnsupportedMediaError(contentType string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnsupportedMedia,
		Message:    fmt.Sprintf("content type %q is not accepted", contentType),
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ProviderError is a non-success answer from a payment provider.
type ProviderError struct {
	Provider   domain.Provider
	Code       string
	Message    string
	StatusCode int
}

type ProviderErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error [%s]: %s (status: %d)", e.Provider, e.Code, e.Message, e.StatusCode)
}

func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func IsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	ok := errors.As(err, &providerErr)
	return providerErr, ok
}
