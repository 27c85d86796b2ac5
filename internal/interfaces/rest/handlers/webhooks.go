package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/shopspring/decimal"
)

type ProviderAWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
	} `json:"data"`
}

type webhookAck struct {
	Received  bool   `json:"received"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Status    string `json:"status,omitempty"`
}

// HandleProviderAWebhook verifies the signature over the raw body before
// anything is parsed. Replays of an already applied confirmation are
// acknowledged with 200 so the provider stops retrying.
func (h *Handlers) HandleProviderAWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, application.NewPayloadTooLargeError(tooLarge.Limit+1, tooLarge.Limit))
			return
		}
		respondError(w, application.NewInvalidInputError(err))
		return
	}

	if err := providers.VerifySignature(h.webhookSecret, body, r.Header.Get(providers.SignatureHeader)); err != nil {
		h.logger.Warn("rejected provider A webhook", "error", err, "remote_addr", r.RemoteAddr)
		respondError(w, application.NewUnauthorizedError("invalid webhook signature"))
		return
	}

	var payload ProviderAWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, application.NewInvalidInputError(err))
		return
	}

	outcome, err := h.gateway.HandleProviderACallback(r.Context(), services.ProviderACallback{
		Reference: payload.Data.Reference,
		Status:    payload.Data.Status,
		Amount:    payload.Data.Amount,
		Currency:  domain.NormalizeCurrency(payload.Data.Currency),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	ack := webhookAck{Received: true, Applied: outcome.Applied(), Duplicate: outcome.Duplicate}
	if outcome.Order != nil {
		ack.Status = string(outcome.Order.Status)
	}
	respondJSON(w, http.StatusOK, ack)
}
