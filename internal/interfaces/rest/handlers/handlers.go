package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/go-playground/validator"
)

type OrderService interface {
	CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (*domain.Order, error)
	GetOrderStatus(ctx context.Context, humanCode string) (*domain.Order, error)
	SubmitManualProof(ctx context.Context, cmd services.SubmitProofCommand) (*services.Outcome, error)
	AdminTransition(ctx context.Context, cmd services.AdminTransitionCommand) (*services.Outcome, error)
	RespondToQuote(ctx context.Context, orderID string, accept bool, reason string) (*services.Outcome, error)
}

type CheckoutService interface {
	CreatePaymentSession(ctx context.Context, cmd services.CreatePaymentSessionCommand) (*domain.PaymentSession, error)
}

type ReconciliationGateway interface {
	HandleProviderACallback(ctx context.Context, cb services.ProviderACallback) (*services.Outcome, error)
	PollProviderB(ctx context.Context, orderID, sessionID string) (*services.PollResult, error)
}

type RefundService interface {
	RecordRefund(ctx context.Context, cmd services.RecordRefundCommand) (*domain.Refund, error)
	ListRefunds(ctx context.Context, orderCode string) ([]*domain.Refund, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

const (
	StaffHeader   = "X-Staff-ID"
	CountryHeader = "X-Country-Code"

	maxJSONBody = 1 << 20
)

type Handlers struct {
	orders        OrderService
	checkout      CheckoutService
	gateway       ReconciliationGateway
	refunds       RefundService
	health        HealthChecker
	webhookSecret string
	validate      *validator.Validate
	logger        *slog.Logger
}

func NewHandlers(
	orders OrderService,
	checkout CheckoutService,
	gateway ReconciliationGateway,
	refunds RefundService,
	health HealthChecker,
	webhookSecret string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		orders:        orders,
		checkout:      checkout,
		gateway:       gateway,
		refunds:       refunds,
		health:        health,
		webhookSecret: webhookSecret,
		validate:      validator.New(),
		logger:        logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.HandleCreateOrder)
	mux.HandleFunc("GET /orders/{code}", h.HandleGetOrderStatus)
	mux.HandleFunc("POST /orders/{id}/payment-sessions", h.HandleCreatePaymentSession)
	mux.HandleFunc("POST /orders/{id}/payment-sessions/{sessionID}/verify", h.HandleVerifyPaymentSession)
	mux.HandleFunc("POST /orders/{id}/proof", h.HandleSubmitProof)
	mux.HandleFunc("POST /orders/{id}/quote/accept", h.HandleAcceptQuote)
	mux.HandleFunc("POST /orders/{id}/quote/reject", h.HandleRejectQuote)
	mux.HandleFunc("POST /webhooks/provider-a", h.HandleProviderAWebhook)
	mux.HandleFunc("POST /admin/orders/{id}/transitions", h.HandleAdminTransition)
	mux.HandleFunc("GET /admin/orders/{code}", h.HandleAdminGetOrder)
	mux.HandleFunc("POST /admin/refunds", h.HandleRecordRefund)
	mux.HandleFunc("GET /admin/refunds", h.HandleListRefunds)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set.
func (h *Handlers) decodeJSON(r *http.Request, dst any, optional bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return application.NewPayloadTooLargeError(tooLarge.Limit+1, tooLarge.Limit)
		}
		return application.NewInvalidInputError(err)
	}

	if len(body) == 0 {
		if optional {
			return nil
		}
		return application.NewInvalidInputError(errors.New("request body is required"))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return application.NewInvalidInputError(err)
	}

	if err := h.validate.Struct(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeErrorJSON(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
		status["database"] = "ok"
	}
	respondJSON(w, http.StatusOK, status)
}
