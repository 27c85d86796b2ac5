package providers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services/testhelpers"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fastRetry = config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3}

func checkoutRequest() application.CheckoutRequest {
	return application.CheckoutRequest{
		SessionID:     "sess-1",
		OrderID:       "order-1",
		HumanCode:     "BOU-0325-030001",
		Amount:        testhelpers.MustDecimal("45000"),
		Currency:      domain.NGN,
		CustomerEmail: "adaeze@example.com",
	}
}

func TestRetryProviderAClient_Success(t *testing.T) {
	inner := testhelpers.NewMockProviderAClient(t)
	client := providers.NewRetryProviderAClient(inner, fastRetry)
	req := checkoutRequest()
	want := &application.ProviderSession{Reference: "sess-1", CheckoutURL: "https://pay.example/a/sess-1"}

	inner.On("CreateSession", mock.Anything, req).Return(want, nil).Once()

	got, err := client.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetryProviderAClient_RetriesOn5xx(t *testing.T) {
	inner := testhelpers.NewMockProviderAClient(t)
	client := providers.NewRetryProviderAClient(inner, fastRetry)
	req := checkoutRequest()
	want := &application.ProviderSession{Reference: "sess-1"}

	// First two calls fail with 502
	inner.On("CreateSession", mock.Anything, req).
		Return(nil, &application.ProviderError{Provider: domain.ProviderA, Code: "bad_gateway", StatusCode: 502}).
		Twice()
	inner.On("CreateSession", mock.Anything, req).Return(want, nil).Once()

	got, err := client.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetryProviderAClient_DoesNotRetryOn4xx(t *testing.T) {
	inner := testhelpers.NewMockProviderAClient(t)
	client := providers.NewRetryProviderAClient(inner, fastRetry)
	req := checkoutRequest()
	rejected := &application.ProviderError{Provider: domain.ProviderA, Code: "invalid_email", StatusCode: 400}

	inner.On("CreateSession", mock.Anything, req).Return(nil, rejected).Once()

	_, err := client.CreateSession(context.Background(), req)
	require.Error(t, err)
	providerErr, ok := application.IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_email", providerErr.Code)
}

func TestRetryProviderBClient_MaxRetriesExceeded(t *testing.T) {
	inner := testhelpers.NewMockProviderBClient(t)
	client := providers.NewRetryProviderBClient(inner, fastRetry)

	inner.On("GetStatus", mock.Anything, "cs_1").
		Return(nil, &application.ProviderError{Provider: domain.ProviderB, Code: "unavailable", StatusCode: 503}).
		Times(3)

	_, err := client.GetStatus(context.Background(), "cs_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	assert.True(t, application.IsRetryable(err))
}

func TestRetryProviderBClient_RetriesNetworkErrors(t *testing.T) {
	inner := testhelpers.NewMockProviderBClient(t)
	client := providers.NewRetryProviderBClient(inner, fastRetry)
	want := &application.CheckoutStatus{Reference: "cs_2", State: application.CheckoutPaid}

	inner.On("GetStatus", mock.Anything, "cs_2").Return(nil, errors.New("connection reset by peer")).Once()
	inner.On("GetStatus", mock.Anything, "cs_2").Return(want, nil).Once()

	got, err := client.GetStatus(context.Background(), "cs_2")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetryProviderBClient_StopsWhenContextCancelled(t *testing.T) {
	inner := testhelpers.NewMockProviderBClient(t)
	client := providers.NewRetryProviderBClient(inner, config.RetryConfig{BaseDelay: time.Hour, MaxRetries: 5})
	req := checkoutRequest()

	ctx, cancel := context.WithCancel(context.Background())
	inner.On("CreateCheckout", mock.Anything, req).
		Return(nil, &application.ProviderError{Provider: domain.ProviderB, Code: "unavailable", StatusCode: 503}).
		Run(func(mock.Arguments) { cancel() }).
		Once()

	_, err := client.CreateCheckout(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}
