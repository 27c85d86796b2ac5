package testhelpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// FixedNow is the instant every fixture clock starts at.
var FixedNow = time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultCustomer is a home-country customer with both contact channels.
func DefaultCustomer() domain.Customer {
	return domain.Customer{
		Name:    "Adaeze Okafor",
		Email:   "adaeze@example.com",
		Phone:   "+2348030000000",
		Country: "NG",
	}
}

// BoutiqueOrderCommand returns a valid fixed-price order for 45,000 NGN.
func BoutiqueOrderCommand() services.CreateOrderCommand {
	return services.CreateOrderCommand{
		Details: domain.BoutiqueDetails{
			SKU:      "BOU-ADIRE-WRAP",
			Size:     "M",
			Quantity: 1,
		},
		Customer: DefaultCustomer(),
		Amount:   45000,
	}
}

// EnquiryCommand returns a custom request awaiting a staff quote.
func EnquiryCommand() services.CreateOrderCommand {
	return services.CreateOrderCommand{
		Details: domain.CustomRequestDetails{
			Description: "Aso-oke set for a wedding party of six",
		},
		Customer: DefaultCustomer(),
	}
}

// Fixture wires every service to in-memory collaborators.
type Fixture struct {
	Repo      *MockOrderRepository
	Counter   *MockCodeCounter
	Refunds   *MockRefundRepository
	Notifier  *RecordingNotifier
	Metrics   *RecordingMetrics
	RateSrc   *MockRateSource
	Geo       *MockGeoLocator
	Proofs    *MemoryProofStore
	Scheduler *RecordingScheduler
	ProviderA *MockProviderAClient
	ProviderB *MockProviderBClient

	Lifecycle *services.LifecycleService
	Allocator *services.CodeAllocator
	Rates     *services.RateService
	Gateway   *services.ReconciliationGateway
	Checkout  *services.CheckoutService
	Orders    *services.OrderService
	RefundSvc *services.RefundService

	clock *Clock
}

// FixtureOptions tunes the parts tests vary.
type FixtureOptions struct {
	PollAttempts int
	PollInterval time.Duration
	RateTTL      time.Duration
	Fallback     map[domain.Currency]decimal.Decimal
	Policy       services.ProofPolicy
}

func DefaultFixtureOptions() FixtureOptions {
	return FixtureOptions{
		PollAttempts: 3,
		PollInterval: time.Millisecond,
		RateTTL:      time.Hour,
		Fallback: map[domain.Currency]decimal.Decimal{
			domain.USD: MustDecimal("0.00065"),
		},
		Policy: services.ProofPolicy{
			MaxBytes:     1 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
		},
	}
}

func NewFixture(t *testing.T) *Fixture {
	return NewFixtureWithOptions(t, DefaultFixtureOptions())
}

func NewFixtureWithOptions(t *testing.T, opts FixtureOptions) *Fixture {
	f := &Fixture{
		Repo:     NewMockOrderRepository(),
		Counter:  NewMockCodeCounter(),
		Refunds:  NewMockRefundRepository(),
		Notifier: &RecordingNotifier{},
		Metrics:  NewRecordingMetrics(),
		RateSrc: &MockRateSource{Rates: map[domain.Currency]string{
			domain.USD: "0.00066",
			domain.GBP: "0.00052",
			domain.EUR: "0.00061",
		}},
		Geo:       &MockGeoLocator{Country: "NG"},
		Proofs:    NewMemoryProofStore(),
		Scheduler: &RecordingScheduler{},
		ProviderA: NewMockProviderAClient(t),
		ProviderB: NewMockProviderBClient(t),
		clock:     NewClock(FixedNow),
	}
	logger := NewTestLogger()

	f.Lifecycle = services.NewLifecycleService(f.Repo, f.Notifier, f.Metrics, logger).WithClock(f.clock.Now)
	f.Allocator = services.NewCodeAllocator(f.Counter)
	f.Rates = services.NewRateService(f.RateSrc, opts.Fallback, opts.RateTTL, f.Metrics, logger).WithClock(f.clock.Now)
	f.Gateway = services.NewReconciliationGateway(f.Lifecycle, f.Repo, f.ProviderB, f.Metrics, logger, opts.PollAttempts, opts.PollInterval)
	f.Checkout = services.NewCheckoutService(f.Lifecycle, f.Repo, f.Rates, f.Geo, f.ProviderA, f.ProviderB, f.Scheduler, "https://shop.example.com/", logger).WithClock(f.clock.Now)
	f.Orders = services.NewOrderService(f.Repo, f.Allocator, f.Lifecycle, f.Gateway, f.Proofs, opts.Policy, f.Notifier, logger).WithClock(f.clock.Now)
	f.RefundSvc = services.NewRefundService(f.Refunds, f.Repo, logger)
	return f
}

func (f *Fixture) Clock() *Clock {
	return f.clock
}

// CreateOrder creates an order through OrderService and fails the test on error.
func (f *Fixture) CreateOrder(t *testing.T, cmd services.CreateOrderCommand) *domain.Order {
	t.Helper()
	order, err := f.Orders.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)
	return order
}

// Clock is a settable time source shared by the fixture's services.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ProviderASession is what a successful provider A initialisation returns.
func ProviderASession(reference string) *application.ProviderSession {
	return &application.ProviderSession{
		Reference:   reference,
		CheckoutURL: "https://checkout.provider-a.test/" + reference,
	}
}

func ProviderBSession(reference string) *application.ProviderSession {
	return &application.ProviderSession{
		Reference:   reference,
		CheckoutURL: "https://pay.provider-b.test/c/" + reference,
	}
}
