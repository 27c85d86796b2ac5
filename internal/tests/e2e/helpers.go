package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest/handlers"
	"github.com/stretchr/testify/require"
)

// TestClient wraps HTTP calls to the orders API.
type TestClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Response struct {
	Status int
	Body   []byte
	Data   json.RawMessage
	Error  *rest.APIError
}

// Decode unmarshals the response data into v.
func (r Response) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), string(r.Body))
}

func (c *TestClient) Do(t *testing.T, method, path string, body []byte, headers map[string]string) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := Response{Status: resp.StatusCode, Body: raw}
	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *rest.APIError  `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil {
		out.Data = env.Data
		out.Error = env.Error
	}
	return out
}

func (c *TestClient) PostJSON(t *testing.T, path string, v any, headers map[string]string) Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return c.Do(t, http.MethodPost, path, body, headers)
}

func (c *TestClient) CreateOrder(t *testing.T, req handlers.CreateOrderRequest) rest.OrderView {
	t.Helper()
	resp := c.PostJSON(t, "/orders", req, nil)
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var order rest.OrderView
	resp.Decode(t, &order)
	return order
}

func (c *TestClient) OpenSession(t *testing.T, orderID, country string) rest.SessionView {
	t.Helper()
	headers := map[string]string{}
	if country != "" {
		headers[handlers.CountryHeader] = country
	}
	resp := c.Do(t, http.MethodPost, "/orders/"+orderID+"/payment-sessions", nil, headers)
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var session rest.SessionView
	resp.Decode(t, &session)
	return session
}

// SendProviderAWebhook signs payload with secret the way provider A does.
func (c *TestClient) SendProviderAWebhook(t *testing.T, secret string, payload any) Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return c.Do(t, http.MethodPost, "/webhooks/provider-a", body, map[string]string{
		providers.SignatureHeader: providers.Sign(secret, body),
	})
}

func (c *TestClient) GetOrder(t *testing.T, code string) rest.OrderView {
	t.Helper()
	resp := c.Do(t, http.MethodGet, "/orders/"+code, nil, nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var order rest.OrderView
	resp.Decode(t, &order)
	return order
}

func (c *TestClient) Transition(t *testing.T, orderID, staff, event string) Response {
	t.Helper()
	return c.PostJSON(t, "/admin/orders/"+orderID+"/transitions", handlers.TransitionRequest{Event: event}, map[string]string{
		handlers.StaffHeader: staff,
	})
}

func boutiqueOrder() handlers.CreateOrderRequest {
	return handlers.CreateOrderRequest{
		Type:    "boutique",
		Details: json.RawMessage(`{"sku":"BOU-ADIRE-WRAP","size":"M","quantity":1}`),
		Customer: handlers.CustomerRequest{
			Name:  "Adaeze Okafor",
			Email: "adaeze@example.com",
		},
		Amount: 45000,
	}
}
