package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

type createCheckoutRequest struct {
	ClientReference string          `json:"client_reference"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CustomerEmail   string          `json:"customer_email"`
	SuccessURL      string          `json:"success_url"`
	CancelURL       string          `json:"cancel_url"`
	Description     string          `json:"description"`
}

type checkoutResponse struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type HTTPProviderBClient struct {
	endpoint
}

func NewProviderBClient(cfg config.ProviderBConfig) *HTTPProviderBClient {
	return &HTTPProviderBClient{endpoint{
		provider:   domain.ProviderB,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: NewHTTPClient(cfg.Timeout),
	}}
}

func (c *HTTPProviderBClient) CreateCheckout(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	endpointURL := fmt.Sprintf("%s/v1/checkouts", c.baseURL)
	body := createCheckoutRequest{
		ClientReference: req.SessionID,
		Amount:          req.Amount,
		Currency:        strings.ToLower(string(req.Currency)),
		CustomerEmail:   req.CustomerEmail,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
		Description:     "Order " + req.HumanCode,
	}

	resp, err := sendRequest[createCheckoutRequest, checkoutResponse](c.endpoint, ctx, http.MethodPost, endpointURL, &body, req.SessionID)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &application.ProviderError{
			Provider:   domain.ProviderB,
			Code:       "missing_reference",
			Message:    "checkout created without an id",
			StatusCode: http.StatusBadGateway,
		}
	}

	return &application.ProviderSession{Reference: resp.ID, CheckoutURL: resp.URL}, nil
}

func (c *HTTPProviderBClient) GetStatus(ctx context.Context, reference string) (*application.CheckoutStatus, error) {
	endpointURL := fmt.Sprintf("%s/v1/checkouts/%s", c.baseURL, url.PathEscape(reference))

	resp, err := sendRequest[any, checkoutResponse](c.endpoint, ctx, http.MethodGet, endpointURL, nil, "")
	if err != nil {
		return nil, err
	}

	return &application.CheckoutStatus{
		Reference: reference,
		State:     checkoutState(resp.Status),
		Amount:    resp.Amount,
		Currency:  domain.Currency(strings.ToUpper(resp.Currency)),
	}, nil
}

func checkoutState(status string) application.CheckoutState {
	switch strings.ToLower(status) {
	case "paid", "complete", "succeeded":
		return application.CheckoutPaid
	case "expired":
		return application.CheckoutExpired
	case "failed", "canceled", "cancelled":
		return application.CheckoutFailed
	default:
		return application.CheckoutPending
	}
}
