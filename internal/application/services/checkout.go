package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/google/uuid"
)

type CreatePaymentSessionCommand struct {
	OrderID string
	// Override flips the provider the customer's location would select.
	Override bool
	Client   application.RequestContext
}

type CheckoutService struct {
	lifecycle *LifecycleService
	repo      application.OrderRepository
	rates     *RateService
	geo       application.GeoLocator
	providerA application.ProviderAClient
	providerB application.ProviderBClient
	poller    application.PollScheduler
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckoutService(
	lifecycle *LifecycleService,
	repo application.OrderRepository,
	rates *RateService,
	geo application.GeoLocator,
	providerA application.ProviderAClient,
	providerB application.ProviderBClient,
	poller application.PollScheduler,
	publicURL string,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		lifecycle: lifecycle,
		repo:      repo,
		rates:     rates,
		geo:       geo,
		providerA: providerA,
		providerB: providerB,
		poller:    poller,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	s.now = now
	return s
}

type quote struct {
	provider domain.Provider
	country  string
	rate     domain.ExchangeRate
	fallback bool
	currency domain.Currency
}

// CreatePaymentSession prices the order for the selected provider, records an
// initiated session, opens it with the provider and records the provider's
// reference. Provider B sessions are handed to the poll scheduler.
func (s *CheckoutService) CreatePaymentSession(ctx context.Context, cmd CreatePaymentSessionCommand) (*domain.PaymentSession, error) {
	order, err := s.repo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.AcceptsPaymentSession(); err != nil {
		return nil, err
	}

	q := s.quote(ctx, cmd)
	amount, err := domain.Convert(order.CanonicalAmount, q.currency, q.rate)
	if err != nil {
		return nil, err
	}

	session, err := domain.NewPaymentSession(uuid.NewString(), order.ID, q.provider, amount, q.currency, q.rate, q.fallback, s.now())
	if err != nil {
		return nil, err
	}

	outcome, err := s.lifecycle.Apply(ctx, order.ID, domain.PaymentSessionCreated{Session: session})
	if err != nil {
		return nil, err
	}
	order = outcome.Order

	opened, err := s.open(ctx, order, session)
	if err != nil {
		s.logger.Error("provider rejected session",
			"order_id", order.ID,
			"session_id", session.ID,
			"provider", session.Provider,
			"error", err,
		)
		if _, closeErr := s.lifecycle.UpdateSessions(ctx, order.ID, func(o *domain.Order, now time.Time) error {
			return o.CloseSession(session.ID, domain.SessionFailed, now)
		}); closeErr != nil {
			s.logger.Error("failed to close session after provider error",
				"order_id", order.ID,
				"session_id", session.ID,
				"error", closeErr,
			)
		}
		return nil, err
	}

	outcome, err = s.lifecycle.UpdateSessions(ctx, order.ID, func(o *domain.Order, now time.Time) error {
		return o.AcknowledgeSession(session.ID, opened.Reference, opened.CheckoutURL, now)
	})
	if err != nil {
		return nil, err
	}

	acknowledged := outcome.Order.Session(session.ID)
	s.logger.Info("payment session opened",
		"order_id", order.ID,
		"session_id", session.ID,
		"provider", session.Provider,
		"country", q.country,
		"amount", session.RequestedAmount.String(),
		"currency", session.RequestedCurrency,
		"rate_fallback", session.RateFallback,
	)

	if acknowledged.Provider == domain.ProviderB && s.poller != nil {
		s.poller.Schedule(order.ID, session.ID)
	}
	return acknowledged, nil
}

// quote selects a provider and a rate. Geolocation failure means the home
// country; an unpriceable currency degrades to provider A in the home currency.
func (s *CheckoutService) quote(ctx context.Context, cmd CreatePaymentSessionCommand) quote {
	country := s.detectCountry(ctx, cmd.Client)
	provider := domain.SelectProvider(country, cmd.Override)
	currency := domain.SettlementCurrency(provider, country)

	rate, fallback, err := s.rates.Rate(ctx, currency)
	if err != nil {
		s.logger.Warn("rate unavailable, settling in home currency",
			"order_id", cmd.OrderID,
			"currency", currency,
			"error", err,
		)
		return quote{
			provider: domain.ProviderA,
			country:  country,
			rate:     domain.IdentityRate(s.now()),
			currency: domain.HomeCurrency,
		}
	}

	return quote{provider: provider, country: country, rate: rate, fallback: fallback, currency: currency}
}

func (s *CheckoutService) detectCountry(ctx context.Context, rc application.RequestContext) string {
	if hint := strings.ToUpper(strings.TrimSpace(rc.CountryHint)); len(hint) == 2 {
		return hint
	}
	if s.geo == nil {
		return domain.HomeCountry
	}

	country, err := s.geo.Detect(ctx, rc)
	if err != nil || country == "" {
		s.logger.Debug("geolocation failed, assuming home country",
			"ip", rc.IP,
			"error", err,
		)
		return domain.HomeCountry
	}
	return strings.ToUpper(country)
}

func (s *CheckoutService) open(ctx context.Context, order *domain.Order, session *domain.PaymentSession) (*application.ProviderSession, error) {
	req := application.CheckoutRequest{
		SessionID:     session.ID,
		OrderID:       order.ID,
		HumanCode:     order.HumanCode,
		Amount:        session.RequestedAmount,
		Currency:      session.RequestedCurrency,
		CustomerEmail: order.Customer.Email,
	}

	var (
		opened *application.ProviderSession
		err    error
	)
	switch session.Provider {
	case domain.ProviderA:
		opened, err = s.providerA.CreateSession(ctx, req)
	case domain.ProviderB:
		req.SuccessURL = s.returnURL(order.HumanCode, "success")
		req.CancelURL = s.returnURL(order.HumanCode, "cancelled")
		opened, err = s.providerB.CreateCheckout(ctx, req)
	default:
		return nil, fmt.Errorf("unknown provider %q", session.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opened == nil || opened.Reference == "" {
		return nil, errors.New("provider returned no session reference")
	}
	return opened, nil
}

func (s *CheckoutService) returnURL(code, result string) string {
	return fmt.Sprintf("%s/orders/%s?payment=%s", s.publicURL, url.PathEscape(code), result)
}
