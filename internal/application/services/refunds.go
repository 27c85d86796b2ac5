package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordRefundCommand struct {
	OrderCode string
	Amount    decimal.Decimal
	Currency  domain.Currency
	Reason    string
	Method    domain.RefundMethod
	StaffID   string
}

type RefundService struct {
	refunds application.RefundRepository
	orders  application.OrderRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewRefundService(
	refunds application.RefundRepository,
	orders application.OrderRepository,
	logger *slog.Logger,
) *RefundService {
	return &RefundService{
		refunds: refunds,
		orders:  orders,
		logger:  logger,
		now:     time.Now,
	}
}

// RecordRefund stores a refund. The order code is optional free text; the
// refund is linked to an order only when the code resolves to one.
func (s *RefundService) RecordRefund(ctx context.Context, cmd RecordRefundCommand) (*domain.Refund, error) {
	refund, err := domain.NewRefund(
		uuid.NewString(),
		cmd.OrderCode,
		cmd.Amount,
		domain.NormalizeCurrency(string(cmd.Currency)),
		cmd.Reason,
		cmd.Method,
		domain.StaffActor(strings.TrimSpace(cmd.StaffID)),
		s.now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.link(ctx, refund); err != nil {
		return nil, err
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.logger.Info("refund recorded",
		"refund_id", refund.ID,
		"order_code", refund.OrderCode,
		"linked", refund.OrderID != nil,
		"amount", refund.Amount.String(),
		"currency", refund.Currency,
		"recorded_by", refund.RecordedBy,
	)
	return refund, nil
}

func (s *RefundService) link(ctx context.Context, refund *domain.Refund) error {
	if refund.OrderCode == "" {
		return nil
	}
	code, err := domain.ParseCode(refund.OrderCode)
	if err != nil {
		return nil
	}

	order, err := s.orders.FindByHumanCode(ctx, code.String())
	switch {
	case err == nil:
		refund.LinkOrder(order.ID)
		return nil
	case errors.Is(err, domain.ErrOrderNotFound):
		return nil
	default:
		return err
	}
}

func (s *RefundService) ListRefunds(ctx context.Context, orderCode string) ([]*domain.Refund, error) {
	return s.refunds.ListByOrderCode(ctx, strings.ToUpper(strings.TrimSpace(orderCode)))
}
