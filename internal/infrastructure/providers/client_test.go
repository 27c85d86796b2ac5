package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services/testhelpers"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAClient_CreateSession(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_a", r.Header.Get("Authorization"))
		assert.Equal(t, "sess-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reference":"sess-1","authorization_url":"https://pay.example/a/sess-1"}`))
	}))
	defer server.Close()

	client := providers.NewProviderAClient(config.ProviderAConfig{BaseURL: server.URL + "/", SecretKey: "sk_a", Timeout: time.Second})

	session, err := client.CreateSession(context.Background(), checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.Reference)
	assert.Equal(t, "https://pay.example/a/sess-1", session.CheckoutURL)

	assert.Equal(t, "45000", got["amount"])
	assert.Equal(t, "NGN", got["currency"])
	assert.Equal(t, "BOU-0325-030001", got["metadata"].(map[string]any)["order_code"])
}

func TestProviderAClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid_email","message":"email is malformed"}`))
	}))
	defer server.Close()

	client := providers.NewProviderAClient(config.ProviderAConfig{BaseURL: server.URL, SecretKey: "sk_a", Timeout: time.Second})

	_, err := client.CreateSession(context.Background(), checkoutRequest())
	providerErr, ok := application.IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ProviderA, providerErr.Provider)
	assert.Equal(t, "invalid_email", providerErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, providerErr.StatusCode)
	assert.False(t, providerErr.IsRetryable())
}

func TestProviderBClient_CreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "usd", body["currency"])
		assert.Equal(t, "https://shop.example.com/orders/BOU-0325-030001?payment=success", body["success_url"])

		_, _ = w.Write([]byte(`{"id":"cs_123","url":"https://checkout.example/cs_123","status":"open"}`))
	}))
	defer server.Close()

	client := providers.NewProviderBClient(config.ProviderBConfig{BaseURL: server.URL, SecretKey: "sk_b", Timeout: time.Second})
	req := checkoutRequest()
	req.Currency = domain.USD
	req.Amount = testhelpers.MustDecimal("29.70")
	req.SuccessURL = "https://shop.example.com/orders/BOU-0325-030001?payment=success"

	session, err := client.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.Reference)
	assert.Equal(t, "https://checkout.example/cs_123", session.CheckoutURL)
}

func TestProviderBClient_GetStatus(t *testing.T) {
	tests := []struct {
		status string
		want   application.CheckoutState
	}{
		{"open", application.CheckoutPending},
		{"complete", application.CheckoutPaid},
		{"paid", application.CheckoutPaid},
		{"expired", application.CheckoutExpired},
		{"canceled", application.CheckoutFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/checkouts/cs_9", r.URL.Path)
				_, _ = w.Write([]byte(`{"id":"cs_9","status":"` + tt.status + `","amount":"29.70","currency":"usd"}`))
			}))
			defer server.Close()

			client := providers.NewProviderBClient(config.ProviderBConfig{BaseURL: server.URL, SecretKey: "sk_b", Timeout: time.Second})

			status, err := client.GetStatus(context.Background(), "cs_9")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.State)
			assert.Equal(t, domain.USD, status.Currency)
			assert.Equal(t, "29.7", status.Amount.String())
		})
	}
}

func TestProviderBClient_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := providers.NewProviderBClient(config.ProviderBConfig{BaseURL: server.URL, SecretKey: "sk_b", Timeout: time.Second})

	_, err := client.GetStatus(context.Background(), "cs_9")
	providerErr, ok := application.IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "http_503", providerErr.Code)
	assert.True(t, providerErr.IsRetryable())
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"sess-1"}}`)
	sig := providers.Sign("whsec", body)

	assert.NoError(t, providers.VerifySignature("whsec", body, sig))
	assert.NoError(t, providers.VerifySignature("whsec", body, "sha256="+sig))
	assert.ErrorIs(t, providers.VerifySignature("other", body, sig), providers.ErrInvalidSignature)
	assert.ErrorIs(t, providers.VerifySignature("whsec", append(body, ' '), sig), providers.ErrInvalidSignature)
	assert.ErrorIs(t, providers.VerifySignature("whsec", body, ""), providers.ErrInvalidSignature)
	assert.ErrorIs(t, providers.VerifySignature("whsec", body, "not-hex"), providers.ErrInvalidSignature)
}
