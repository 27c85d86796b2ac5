package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RefundMethod string

const (
	RefundBankTransfer RefundMethod = "bank_transfer"
	RefundCash         RefundMethod = "cash"
	RefundProvider     RefundMethod = "provider"
)

func (m RefundMethod) Valid() bool {
	return m == RefundBankTransfer || m == RefundCash || m == RefundProvider
}

// Refund is recorded independently of the order lifecycle. OrderCode is free
// text; OrderID is set only when the code resolves to a known order. Refunds
// for cash sales with no digital order are allowed.
type Refund struct {
	ID         string
	OrderCode  string
	OrderID    *string
	Amount     decimal.Decimal
	Currency   Currency
	Reason     string
	Method     RefundMethod
	RecordedBy Actor
	CreatedAt  time.Time
}

func NewRefund(id, orderCode string, amount decimal.Decimal, currency Currency, reason string, method RefundMethod, by Actor, now time.Time) (*Refund, error) {
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError(amount.String())
	}
	if !currency.Valid() {
		return nil, NewMissingRequiredFieldError("currency")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, NewMissingRequiredFieldError("reason")
	}
	if !method.Valid() {
		return nil, NewMissingRequiredFieldError("method")
	}
	if !by.IsStaff() {
		return nil, NewMissingRequiredFieldError("staff_id")
	}

	return &Refund{
		ID:         id,
		OrderCode:  strings.ToUpper(strings.TrimSpace(orderCode)),
		Amount:     amount,
		Currency:   currency,
		Reason:     reason,
		Method:     method,
		RecordedBy: by,
		CreatedAt:  now,
	}, nil
}

// LinkOrder attaches a resolved order id.
func (r *Refund) LinkOrder(orderID string) {
	r.OrderID = &orderID
}
