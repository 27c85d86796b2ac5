package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

type createSessionRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Email     string          `json:"email"`
	Metadata  map[string]any  `json:"metadata"`
}

type createSessionResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

type HTTPProviderAClient struct {
	endpoint
}

func NewProviderAClient(cfg config.ProviderAConfig) *HTTPProviderAClient {
	return &HTTPProviderAClient{endpoint{
		provider:   domain.ProviderA,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: NewHTTPClient(cfg.Timeout),
	}}
}

// CreateSession registers the payment attempt under our session id, which the
// provider echoes back as the reference in its callback.
func (c *HTTPProviderAClient) CreateSession(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	url := fmt.Sprintf("%s/v1/sessions", c.baseURL)
	body := createSessionRequest{
		Reference: req.SessionID,
		Amount:    req.Amount,
		Currency:  string(req.Currency),
		Email:     req.CustomerEmail,
		Metadata: map[string]any{
			"order_id":   req.OrderID,
			"order_code": req.HumanCode,
		},
	}

	resp, err := sendRequest[createSessionRequest, createSessionResponse](c.endpoint, ctx, http.MethodPost, url, &body, req.SessionID)
	if err != nil {
		return nil, err
	}

	reference := resp.Reference
	if reference == "" {
		reference = req.SessionID
	}
	return &application.ProviderSession{Reference: reference, CheckoutURL: resp.AuthorizationURL}, nil
}
