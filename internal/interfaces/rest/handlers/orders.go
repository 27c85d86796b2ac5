package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
)

type CustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Country string `json:"country" validate:"omitempty,len=2"`
}

type CreateOrderRequest struct {
	Type     string          `json:"type" validate:"required"`
	Details  json.RawMessage `json:"details" validate:"required"`
	Customer CustomerRequest `json:"customer"`
	// Amount is in whole naira. Enquiries leave it out.
	Amount int64 `json:"amount" validate:"gte=0"`
}

type QuoteResponseRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := h.decodeJSON(r, &req, false); err != nil {
		respondError(w, err)
		return
	}

	orderType, err := domain.ParseOrderType(req.Type)
	if err != nil {
		respondError(w, err)
		return
	}

	details, err := domain.DecodeDetails(orderType, req.Details)
	if err != nil {
		respondError(w, application.NewInvalidInputError(err))
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), services.CreateOrderCommand{
		Details: details,
		Customer: domain.Customer{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Country: req.Customer.Country,
		},
		Amount: req.Amount,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rest.ToOrderView(order))
}

func (h *Handlers) HandleGetOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrderStatus(r.Context(), r.PathValue("code"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rest.ToOrderView(order))
}

func (h *Handlers) HandleAcceptQuote(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.orders.RespondToQuote(r.Context(), r.PathValue("id"), true, "")
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rest.ToOrderView(outcome.Order))
}

func (h *Handlers) HandleRejectQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteResponseRequest
	if err := h.decodeJSON(r, &req, true); err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.orders.RespondToQuote(r.Context(), r.PathValue("id"), false, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rest.ToOrderView(outcome.Order))
}
