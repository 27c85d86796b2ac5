package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/application/services/testhelpers"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentSession_ProviderSelection(t *testing.T) {
	tests := []struct {
		name         string
		geoCountry   string
		hint         string
		override     bool
		wantProvider domain.Provider
		wantCurrency domain.Currency
		wantAmount   string
	}{
		{"home customer", "NG", "", false, domain.ProviderA, domain.NGN, "45000"},
		{"home customer overrides", "NG", "", true, domain.ProviderB, domain.USD, "29.7"},
		{"uk customer", "GB", "", false, domain.ProviderB, domain.GBP, "23.4"},
		{"uk customer overrides", "GB", "", true, domain.ProviderA, domain.NGN, "45000"},
		{"country hint wins over geolocation", "NG", "de", false, domain.ProviderB, domain.EUR, "27.45"},
		{"unsupported country settles in USD", "KE", "", false, domain.ProviderB, domain.USD, "29.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testhelpers.NewFixture(t)
			f.Geo.Country = tt.geoCountry
			order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

			matches := mock.MatchedBy(func(req application.CheckoutRequest) bool {
				return req.Currency == tt.wantCurrency && req.Amount.Equal(testhelpers.MustDecimal(tt.wantAmount))
			})
			if tt.wantProvider == domain.ProviderA {
				f.ProviderA.On("CreateSession", mock.Anything, matches).Return(testhelpers.ProviderASession("pa_1"), nil).Once()
			} else {
				f.ProviderB.On("CreateCheckout", mock.Anything, matches).Return(testhelpers.ProviderBSession("pb_1"), nil).Once()
			}

			session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{
				OrderID:  order.ID,
				Override: tt.override,
				Client:   application.RequestContext{IP: "203.0.113.9", CountryHint: tt.hint},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, session.Provider)
			assert.Equal(t, tt.wantCurrency, session.RequestedCurrency)
			assert.True(t, session.RequestedAmount.Equal(testhelpers.MustDecimal(tt.wantAmount)), session.RequestedAmount.String())
			assert.False(t, session.RateFallback)
		})
	}
}

func TestCreatePaymentSession_GeolocationFailureMeansHome(t *testing.T) {
	f := testhelpers.NewFixture(t)
	f.Geo.Country = ""
	f.Geo.Err = errors.New("lookup timed out")
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	f.ProviderA.On("CreateSession", mock.Anything, mock.Anything).Return(testhelpers.ProviderASession("pa_geo"), nil).Once()

	session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderA, session.Provider)
	assert.Equal(t, 1, f.Geo.Calls())
}

func TestCreatePaymentSession_FallbackRate(t *testing.T) {
	f := testhelpers.NewFixture(t)
	f.Geo.Country = "US"
	f.RateSrc.GetRateFn = func(context.Context, domain.Currency) (domain.ExchangeRate, error) {
		return domain.ExchangeRate{}, errors.New("rates api down")
	}
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	f.ProviderB.On("CreateCheckout", mock.Anything, mock.Anything).Return(testhelpers.ProviderBSession("pb_fb"), nil).Once()

	session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.USD, session.RequestedCurrency)
	assert.True(t, session.RateFallback)
	// 45000 * 0.00065 = 29.25
	assert.True(t, session.RequestedAmount.Equal(testhelpers.MustDecimal("29.25")))
	assert.Equal(t, 1, f.Metrics.Fallbacks[domain.USD])
}

func TestCreatePaymentSession_UnpriceableCurrencyDegradesToHome(t *testing.T) {
	f := testhelpers.NewFixture(t)
	f.Geo.Country = "AU"
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	f.ProviderA.On("CreateSession", mock.Anything, mock.MatchedBy(func(req application.CheckoutRequest) bool {
		return req.Currency == domain.NGN
	})).Return(testhelpers.ProviderASession("pa_deg"), nil).Once()

	session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderA, session.Provider)
	assert.True(t, session.RequestedAmount.Equal(testhelpers.MustDecimal("45000")))
}

func TestCreatePaymentSession_ProviderFailureClosesSession(t *testing.T) {
	f := testhelpers.NewFixture(t)
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	providerErr := &application.ProviderError{Provider: domain.ProviderA, Code: "server_error", StatusCode: 503}
	f.ProviderA.On("CreateSession", mock.Anything, mock.Anything).Return(nil, providerErr).Once()

	_, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.Error(t, err)
	_, ok := application.IsProviderError(err)
	assert.True(t, ok)

	stored, err := f.Orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Sessions, 1)
	assert.Equal(t, domain.SessionFailed, stored.Sessions[0].State)
	assert.Equal(t, domain.StatusPendingPayment, stored.Status)
}

func TestCreatePaymentSession_EarlierSessionStaysConfirmable(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())

	f.ProviderA.On("CreateSession", mock.Anything, mock.Anything).Return(testhelpers.ProviderASession("pa_first"), nil).Once()
	f.ProviderB.On("CreateCheckout", mock.Anything, mock.Anything).Return(testhelpers.ProviderBSession("pb_second"), nil).Once()

	first, err := f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	second, err := f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: order.ID, Override: true})
	require.NoError(t, err)

	stored, err := f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAwaitingConfirmation, stored.Session(first.ID).State)
	assert.Equal(t, domain.SessionAwaitingConfirmation, stored.Session(second.ID).State)

	// The customer already paid through the first checkout.
	outcome, err := f.Gateway.HandleProviderACallback(ctx, services.ProviderACallback{
		Reference: "pa_first",
		Status:    "success",
		Amount:    testhelpers.MustDecimal("45000"),
		Currency:  domain.NGN,
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied())
	assert.Equal(t, domain.StatusPaymentVerified, outcome.Order.Status)
	assert.Equal(t, domain.SessionConfirmed, outcome.Order.Session(first.ID).State)
	assert.Equal(t, domain.SessionCancelled, outcome.Order.Session(second.ID).State)
	require.NotNil(t, outcome.Order.PaymentProvider)
	assert.Equal(t, domain.ProviderA, *outcome.Order.PaymentProvider)

	// Polling the retired checkout stops without asking the provider.
	result, err := f.Gateway.PollProviderB(ctx, order.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, application.PollSuperseded, result.Outcome)
	assert.Equal(t, 1, result.Attempts)

	stored, err = f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionConfirmed, stored.Session(first.ID).State)
	assert.Equal(t, domain.SessionCancelled, stored.Session(second.ID).State)
	assert.Equal(t, domain.StatusPaymentVerified, stored.Status)
}

func TestCreatePaymentSession_RejectedStates(t *testing.T) {
	ctx := context.Background()

	t.Run("enquiry before quote", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		order := f.CreateOrder(t, testhelpers.EnquiryCommand())

		_, err := f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("already paid", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
		_, err := f.Orders.AdminTransition(ctx, services.AdminTransitionCommand{
			OrderID: order.ID, Event: "AdminVerifiedPayment", StaffID: "tolu",
		})
		require.NoError(t, err)

		_, err = f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		_, err := f.Checkout.CreatePaymentSession(ctx, services.CreatePaymentSessionCommand{OrderID: "missing"})
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}
