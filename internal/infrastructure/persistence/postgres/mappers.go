package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

// toDomainOrder: maps db models to the order aggregate
func toDomainOrder(m OrderModel, sessions []SessionModel, history []HistoryModel) (*domain.Order, error) {
	details, err := domain.DecodeDetails(domain.OrderType(m.OrderType), m.Details)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:        m.ID,
		HumanCode: m.HumanCode,
		Type:      domain.OrderType(m.OrderType),
		Details:   details,
		Customer: domain.Customer{
			Name:    m.CustomerName,
			Email:   m.CustomerEmail,
			Phone:   m.CustomerPhone,
			Country: m.CustomerCountry,
		},
		CanonicalAmount: m.CanonicalAmount,
		Status:          domain.OrderStatus(m.Status),
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.PaymentProvider != nil {
		p := domain.Provider(*m.PaymentProvider)
		order.PaymentProvider = &p
	}

	for _, s := range sessions {
		session, err := toDomainSession(s)
		if err != nil {
			return nil, err
		}
		order.Sessions = append(order.Sessions, session)
	}

	order.History = make([]domain.StatusEntry, 0, len(history))
	for _, h := range history {
		order.History = append(order.History, domain.StatusEntry{
			Status:      domain.OrderStatus(h.Status),
			Event:       domain.EventName(h.Event),
			TriggeredBy: domain.Actor(h.TriggeredBy),
			Reference:   h.Reference,
			Note:        h.Note,
			OccurredAt:  h.OccurredAt,
		})
	}

	return order, nil
}

// toOrderModel: maps the order aggregate to its row
func toOrderModel(o *domain.Order) (*OrderModel, error) {
	details, err := json.Marshal(o.Details)
	if err != nil {
		return nil, fmt.Errorf("encode %s details: %w", o.Type, err)
	}

	m := &OrderModel{
		ID:              o.ID,
		HumanCode:       o.HumanCode,
		OrderType:       string(o.Type),
		Details:         details,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		CustomerCountry: o.Customer.Country,
		CanonicalAmount: o.CanonicalAmount,
		Status:          string(o.Status),
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.PaymentProvider != nil {
		p := string(*o.PaymentProvider)
		m.PaymentProvider = &p
	}
	return m, nil
}

func toDomainSession(m SessionModel) (*domain.PaymentSession, error) {
	amount, err := decimal.NewFromString(m.RequestedAmount)
	if err != nil {
		return nil, fmt.Errorf("session %s amount: %w", m.ID, err)
	}
	rate, err := decimal.NewFromString(m.ExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("session %s rate: %w", m.ID, err)
	}

	s := &domain.PaymentSession{
		ID:                m.ID,
		OrderID:           m.OrderID,
		Provider:          domain.Provider(m.Provider),
		RequestedAmount:   amount,
		RequestedCurrency: domain.Currency(m.RequestedCurrency),
		ExchangeRate:      rate,
		RateFallback:      m.RateFallback,
		CheckoutURL:       m.CheckoutURL,
		State:             domain.SessionState(m.State),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		ConfirmedAt:       m.ConfirmedAt,
	}
	if m.ProviderReference != nil {
		s.ProviderReference = *m.ProviderReference
	}
	return s, nil
}

func toSessionModel(s *domain.PaymentSession) SessionModel {
	m := SessionModel{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Provider:          string(s.Provider),
		RequestedAmount:   s.RequestedAmount.String(),
		RequestedCurrency: string(s.RequestedCurrency),
		ExchangeRate:      s.ExchangeRate.String(),
		RateFallback:      s.RateFallback,
		CheckoutURL:       s.CheckoutURL,
		State:             string(s.State),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		ConfirmedAt:       s.ConfirmedAt,
	}
	if s.ProviderReference != "" {
		ref := s.ProviderReference
		m.ProviderReference = &ref
	}
	return m
}

func toDomainRefund(m RefundModel) (*domain.Refund, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("refund %s amount: %w", m.ID, err)
	}
	return &domain.Refund{
		ID:         m.ID,
		OrderCode:  m.OrderCode,
		OrderID:    m.OrderID,
		Amount:     amount,
		Currency:   domain.Currency(m.Currency),
		Reason:     m.Reason,
		Method:     domain.RefundMethod(m.Method),
		RecordedBy: domain.Actor(m.RecordedBy),
		CreatedAt:  m.CreatedAt,
	}, nil
}
