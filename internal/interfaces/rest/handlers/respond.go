package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	rest.RespondWithJSON(w, status, data)
}

func respondError(w http.ResponseWriter, err error) {
	rest.WriteError(w, err)
}

func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rest.APIResponse{
		Success: false,
		Error:   &rest.APIError{Code: code, Message: message},
	})
}
