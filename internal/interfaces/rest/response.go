package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func RespondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error) {
	status := application.ToHTTPStatus(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    application.ToErrorCode(err),
			Message: errorMessage(err, status),
		},
	})
}

func errorMessage(err error, status int) string {
	if svcErr, ok := application.IsServiceError(err); ok {
		if status >= http.StatusInternalServerError {
			return svcErr.Message
		}
		return svcErr.Error()
	}

	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return domErr.Error()
	}

	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
