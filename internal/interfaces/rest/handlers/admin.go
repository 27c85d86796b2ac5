package handlers

import (
	"net/http"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
	"github.com/shopspring/decimal"
)

type TransitionRequest struct {
	Event string `json:"event" validate:"required"`
	Note  string `json:"note"`
	// Amount is the quoted price for admin_quotes, in whole naira.
	Amount int64 `json:"amount" validate:"gte=0"`
}

type RefundRequest struct {
	OrderCode string          `json:"order_code"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" validate:"required,len=3"`
	Reason    string          `json:"reason" validate:"required"`
	Method    string          `json:"method" validate:"required"`
}

func staffID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(StaffHeader))
	if id == "" {
		return "", application.NewUnauthorizedError("missing " + StaffHeader + " header")
	}
	return id, nil
}

func (h *Handlers) HandleAdminTransition(w http.ResponseWriter, r *http.Request) {
	staff, err := staffID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req TransitionRequest
	if err := h.decodeJSON(r, &req, false); err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.orders.AdminTransition(r.Context(), services.AdminTransitionCommand{
		OrderID: r.PathValue("id"),
		Event:   req.Event,
		StaffID: staff,
		Note:    req.Note,
		Amount:  req.Amount,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rest.ToAdminOrderView(outcome.Order))
}

func (h *Handlers) HandleAdminGetOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := staffID(r); err != nil {
		respondError(w, err)
		return
	}

	order, err := h.orders.GetOrderStatus(r.Context(), r.PathValue("code"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rest.ToAdminOrderView(order))
}

func (h *Handlers) HandleRecordRefund(w http.ResponseWriter, r *http.Request) {
	staff, err := staffID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req RefundRequest
	if err := h.decodeJSON(r, &req, false); err != nil {
		respondError(w, err)
		return
	}

	refund, err := h.refunds.RecordRefund(r.Context(), services.RecordRefundCommand{
		OrderCode: req.OrderCode,
		Amount:    req.Amount,
		Currency:  domain.NormalizeCurrency(req.Currency),
		Reason:    req.Reason,
		Method:    domain.RefundMethod(strings.ToLower(req.Method)),
		StaffID:   staff,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rest.ToRefundView(refund))
}

func (h *Handlers) HandleListRefunds(w http.ResponseWriter, r *http.Request) {
	if _, err := staffID(r); err != nil {
		respondError(w, err)
		return
	}

	code := r.URL.Query().Get("order_code")
	if strings.TrimSpace(code) == "" {
		respondError(w, domain.NewMissingRequiredFieldError("order_code"))
		return
	}

	refunds, err := h.refunds.ListRefunds(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}

	views := make([]rest.RefundView, 0, len(refunds))
	for _, refund := range refunds {
		views = append(views, rest.ToRefundView(refund))
	}
	respondJSON(w, http.StatusOK, views)
}
