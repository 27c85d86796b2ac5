package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/shopspring/decimal"
)

type latestResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// Client reads home-currency exchange rates from an HTTP rates API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.RatesConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: providers.NewHTTPClient(cfg.Timeout),
	}
}

// GetRate returns how many units of currency one unit of the home currency buys.
func (c *Client) GetRate(ctx context.Context, currency domain.Currency) (domain.ExchangeRate, error) {
	q := url.Values{}
	q.Set("base", string(domain.HomeCurrency))
	q.Set("symbols", string(currency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("error fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExchangeRate{}, fmt.Errorf("rates api returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("error decoding rates: %w", err)
	}

	raw, ok := body.Rates[string(currency)]
	if !ok {
		return domain.ExchangeRate{}, fmt.Errorf("rates api has no %s rate", currency)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("malformed %s rate %q: %w", currency, raw, err)
	}

	asOf := time.Now().UTC()
	if d, err := time.Parse(time.DateOnly, body.Date); err == nil {
		asOf = d
	}

	return domain.ExchangeRate{Currency: currency, Rate: rate, AsOf: asOf}, nil
}
