package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/application/services/testhelpers"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderFlowTestSuite struct {
	suite.Suite
	f *testhelpers.Fixture
}

func TestOrderFlowSuite(t *testing.T) {
	suite.Run(t, new(OrderFlowTestSuite))
}

func (suite *OrderFlowTestSuite) SetupTest() {
	opts := testhelpers.DefaultFixtureOptions()
	opts.PollAttempts = 10
	suite.f = testhelpers.NewFixtureWithOptions(suite.T(), opts)
}

// ============================================================================
// PROVIDER A: PUSH CONFIRMATION
// ============================================================================

func (suite *OrderFlowTestSuite) Test_ProviderA_CallbackVerifiesPayment() {
	ctx := context.Background()
	t := suite.T()
	f := suite.f

	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
	assert.Equal(t, "BOU-0325-030001", order.HumanCode)
	assert.Equal(t, domain.StatusPendingPayment, order.Status)

	f.ProviderA.On("CreateSession", mock.Anything, mock.MatchedBy(func(req application.CheckoutRequest) bool {
		return req.Currency == domain.NGN && req.Amount.Equal(testhelpers.MustDecimal("45000"))
	})).Return(testhelpers.ProviderASession("pa_ref_001"), nil).Once()

	session, err := f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderA, session.Provider)
	assert.Equal(t, domain.SessionAwaitingConfirmation, session.State)
	assert.Equal(t, "pa_ref_001", session.ProviderReference)
	assert.Zero(t, f.Scheduler.Scheduled())

	callback := services.ProviderACallback{
		Reference: "pa_ref_001",
		Status:    "success",
		Amount:    testhelpers.MustDecimal("45000.00"),
		Currency:  "ngn",
	}

	outcome, err := f.Gateway.HandleProviderACallback(ctx, callback)
	require.NoError(t, err)
	assert.True(t, outcome.Applied())
	assert.Equal(t, domain.StatusPaymentVerified, outcome.Order.Status)

	replay, err := f.Gateway.HandleProviderACallback(ctx, callback)
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
	assert.False(t, replay.Applied())
	assert.Equal(t, domain.StatusPaymentVerified, replay.Order.Status)

	stored, err := f.Orders.GetOrderStatus(ctx, strings.ToLower(order.HumanCode))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentVerified, stored.Status)
	assert.Equal(t, domain.SessionConfirmed, stored.Session(session.ID).State)
	require.NotNil(t, stored.PaymentProvider)
	assert.Equal(t, domain.ProviderA, *stored.PaymentProvider)

	assert.Equal(t, []domain.EventName{
		domain.EventOrderCreated,
		domain.EventPaymentSessionCreated,
		domain.EventProviderConfirmedPayment,
	}, f.Notifier.Events())
}

// ============================================================================
// MANUAL BANK TRANSFER
// ============================================================================

func (suite *OrderFlowTestSuite) Test_ManualProof_StaffWalkToDelivery() {
	ctx := context.Background()
	t := suite.T()
	f := suite.f

	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	outcome, err := f.Orders.SubmitManualProof(ctx, services.SubmitProofCommand{
		OrderID:     order.ID,
		Reference:   "GTB-TRF-88812",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("\x89PNG"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentSubmitted, outcome.Order.Status)
	require.Len(t, f.Proofs.Keys(), 1)
	assert.True(t, strings.HasPrefix(f.Proofs.Keys()[0], order.ID+"/"))
	assert.True(t, strings.HasSuffix(f.Proofs.Keys()[0], ".png"))

	steps := []struct {
		event string
		want  domain.OrderStatus
	}{
		{"AdminVerifiedPayment", domain.StatusPaymentVerified},
		{"AdminMarksInProduction", domain.StatusInProduction},
		{"AdminMarksReady", domain.StatusReadyForDelivery},
		{"AdminMarksCompleted", domain.StatusCompleted},
		{"AdminMarksDelivered", domain.StatusDelivered},
	}

	for i, step := range steps {
		// Every later step is still out of order here.
		for _, later := range steps[i+1:] {
			_, err := f.Orders.AdminTransition(ctx, services.AdminTransitionCommand{
				OrderID: order.ID,
				Event:   later.event,
				StaffID: "tolu",
			})
			assert.ErrorIs(t, err, domain.ErrIllegalTransition, "%s before %s", later.event, step.event)
		}

		outcome, err := f.Orders.AdminTransition(ctx, services.AdminTransitionCommand{
			OrderID: order.ID,
			Event:   step.event,
			StaffID: "tolu",
		})
		require.NoError(t, err, step.event)
		assert.Equal(t, step.want, outcome.Order.Status)
		assert.Equal(t, domain.StaffActor("tolu"), outcome.Entry.TriggeredBy)
	}

	stored, err := f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 7)
	assert.True(t, stored.Status.IsTerminal())
}

// ============================================================================
// PROVIDER B: POLLED CONFIRMATION
// ============================================================================

func (suite *OrderFlowTestSuite) Test_ProviderB_PollingConfirmsOnTenthAttempt() {
	ctx := context.Background()
	t := suite.T()
	f := suite.f
	f.Geo.Country = "US"

	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
	session := suite.openProviderBSession(order, "pb_chk_777")

	pending := &application.CheckoutStatus{Reference: "pb_chk_777", State: application.CheckoutPending}
	paid := &application.CheckoutStatus{
		Reference: "pb_chk_777",
		State:     application.CheckoutPaid,
		Amount:    testhelpers.MustDecimal("29.70"),
		Currency:  domain.USD,
	}
	f.ProviderB.On("GetStatus", mock.Anything, "pb_chk_777").Return(pending, nil).Times(9)
	f.ProviderB.On("GetStatus", mock.Anything, "pb_chk_777").Return(paid, nil).Once()

	result, err := f.Gateway.PollProviderB(ctx, order.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, application.PollConfirmed, result.Outcome)
	assert.Equal(t, 10, result.Attempts)
	assert.Equal(t, domain.StatusPaymentVerified, result.Order.Status)

	stored, err := f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	confirmations := 0
	for _, h := range stored.History {
		if h.Event == domain.EventProviderConfirmedPayment {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
	assert.Equal(t, 1, f.Metrics.PollCount(application.PollConfirmed))
}

func (suite *OrderFlowTestSuite) Test_ProviderB_PollingBudgetExhausted() {
	ctx := context.Background()
	t := suite.T()

	opts := testhelpers.DefaultFixtureOptions()
	opts.PollAttempts = 3
	f := testhelpers.NewFixtureWithOptions(t, opts)
	f.Geo.Country = "GB"

	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
	suite.f = f
	session := suite.openProviderBSession(order, "pb_chk_900")

	f.ProviderB.On("GetStatus", mock.Anything, "pb_chk_900").
		Return(&application.CheckoutStatus{Reference: "pb_chk_900", State: application.CheckoutPending}, nil).
		Times(3)

	result, err := f.Gateway.PollProviderB(ctx, order.ID, session.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVerificationTimedOut)
	require.NotNil(t, result)
	assert.Equal(t, application.PollTimedOut, result.Outcome)
	assert.Equal(t, 3, result.Attempts)

	stored, err := f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, stored.Status)
	assert.Equal(t, domain.SessionAwaitingConfirmation, stored.Session(session.ID).State)
	assert.Equal(t, 1, f.Metrics.PollCount(application.PollTimedOut))
}

func (suite *OrderFlowTestSuite) Test_ProviderB_StopsWhenStaffVerifiesFirst() {
	ctx := context.Background()
	t := suite.T()
	f := suite.f
	f.Geo.Country = "US"

	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
	session := suite.openProviderBSession(order, "pb_chk_555")

	f.ProviderB.On("GetStatus", mock.Anything, "pb_chk_555").
		Return(&application.CheckoutStatus{Reference: "pb_chk_555", State: application.CheckoutPending}, nil).
		Run(func(mock.Arguments) {
			_, err := f.Orders.AdminTransition(context.Background(), services.AdminTransitionCommand{
				OrderID: order.ID,
				Event:   "AdminVerifiedPayment",
				StaffID: "tolu",
			})
			if err != nil && !errors.Is(err, domain.ErrDuplicateConfirmation) {
				t.Errorf("admin verify: %v", err)
			}
		}).
		Once()

	result, err := f.Gateway.PollProviderB(ctx, order.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, application.PollSuperseded, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, domain.StatusPaymentVerified, result.Order.Status)
}

func (suite *OrderFlowTestSuite) openProviderBSession(order *domain.Order, reference string) *domain.PaymentSession {
	t := suite.T()
	f := suite.f

	f.ProviderB.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(req application.CheckoutRequest) bool {
		return req.OrderID == order.ID &&
			strings.HasPrefix(req.SuccessURL, "https://shop.example.com/orders/"+order.HumanCode) &&
			strings.HasSuffix(req.CancelURL, "?payment=cancelled")
	})).Return(testhelpers.ProviderBSession(reference), nil).Once()

	session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	require.Equal(t, domain.ProviderB, session.Provider)
	require.Equal(t, 1, f.Scheduler.Scheduled())
	return session
}
