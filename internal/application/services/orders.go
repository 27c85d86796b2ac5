package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/google/uuid"
)

type CreateOrderCommand struct {
	Details  domain.OrderDetails
	Customer domain.Customer
	// Amount is the canonical price in whole home-currency units. Enquiries
	// are created with zero.
	Amount int64
}

type SubmitProofCommand struct {
	OrderID     string
	Reference   string
	ContentType string
	Size        int64
	Body        io.Reader
}

type AdminTransitionCommand struct {
	OrderID string
	Event   string
	StaffID string
	Note    string
	// Amount is only read by AdminQuotes.
	Amount int64
}

type ProofPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

var proofExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

type OrderService struct {
	repo      application.OrderRepository
	allocator *CodeAllocator
	lifecycle *LifecycleService
	gateway   *ReconciliationGateway
	proofs    application.ProofStore
	policy    ProofPolicy
	notifier  application.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrderService(
	repo application.OrderRepository,
	allocator *CodeAllocator,
	lifecycle *LifecycleService,
	gateway *ReconciliationGateway,
	proofs application.ProofStore,
	policy ProofPolicy,
	notifier application.Notifier,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		repo:      repo,
		allocator: allocator,
		lifecycle: lifecycle,
		gateway:   gateway,
		proofs:    proofs,
		policy:    policy,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// CreateOrder validates the order before allocating its code so rejected
// requests do not consume sequence numbers.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := domain.ValidateOrder(cmd.Details, cmd.Customer, cmd.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	code, err := s.allocator.Allocate(ctx, domain.PrefixFor(cmd.Details.OrderType()), now)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(uuid.NewString(), code, cmd.Details, cmd.Customer, cmd.Amount, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		"order_id", order.ID,
		"human_code", order.HumanCode,
		"type", order.Type,
		"amount", order.CanonicalAmount,
	)
	if err := s.notifier.Notify(ctx, domain.NewTransitionNotice(order, "", order.LastEntry())); err != nil {
		s.logger.Error("failed to publish order created notice",
			"order_id", order.ID,
			"error", err,
		)
	}
	return order, nil
}

// GetOrderStatus looks an order up by its human code. Malformed codes fail
// with domain.ErrInvalidCodeFormat, which callers report as not found.
func (s *OrderService) GetOrderStatus(ctx context.Context, humanCode string) (*domain.Order, error) {
	code, err := domain.ParseCode(humanCode)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByHumanCode(ctx, code.String())
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

// SubmitManualProof stores a bank-transfer receipt and records it on the order.
func (s *OrderService) SubmitManualProof(ctx context.Context, cmd SubmitProofCommand) (*Outcome, error) {
	if cmd.Body == nil {
		return nil, domain.NewMissingRequiredFieldError("file")
	}
	if len(s.policy.AllowedTypes) > 0 && !slices.Contains(s.policy.AllowedTypes, cmd.ContentType) {
		return nil, application.NewUnsupportedMediaError(cmd.ContentType)
	}
	if s.policy.MaxBytes > 0 && cmd.Size > s.policy.MaxBytes {
		return nil, application.NewPayloadTooLargeError(cmd.Size, s.policy.MaxBytes)
	}

	order, err := s.repo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.Allows(domain.EventManualProofSubmitted); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", order.ID, uuid.NewString(), proofExtensions[cmd.ContentType])
	if err := s.proofs.Put(ctx, key, cmd.Body, cmd.Size, cmd.ContentType); err != nil {
		return nil, fmt.Errorf("store proof: %w", err)
	}

	return s.lifecycle.Apply(ctx, order.ID, domain.ManualProofSubmitted{
		ProofKey:          key,
		TransferReference: cmd.Reference,
	})
}

func (s *OrderService) AdminTransition(ctx context.Context, cmd AdminTransitionCommand) (*Outcome, error) {
	evt, err := domain.NewAdminEvent(cmd.Event, cmd.StaffID, cmd.Note, cmd.Amount)
	if err != nil {
		return nil, err
	}
	return s.gateway.ApplyManual(ctx, cmd.OrderID, evt)
}

// RespondToQuote records the customer's answer to an enquiry quote.
func (s *OrderService) RespondToQuote(ctx context.Context, orderID string, accept bool, reason string) (*Outcome, error) {
	if accept {
		return s.lifecycle.Apply(ctx, orderID, domain.CustomerAcceptsQuote{})
	}
	return s.lifecycle.Apply(ctx, orderID, domain.CustomerRejectsQuote{Reason: reason})
}
