package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
)

var ErrNoAddress = errors.New("no routable client address")

type lookupResponse struct {
	CountryCode string `json:"country_code"`
}

// Client resolves a caller's country from their IP address.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.GeoConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: providers.NewHTTPClient(cfg.Timeout),
	}
}

func (c *Client) Detect(ctx context.Context, rc application.RequestContext) (string, error) {
	if hint := strings.TrimSpace(rc.CountryHint); len(hint) == 2 {
		return strings.ToUpper(hint), nil
	}

	ip := net.ParseIP(strings.TrimSpace(rc.IP))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return "", ErrNoAddress
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json/"+url.PathEscape(ip.String()), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error looking up %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error decoding geolocation: %w", err)
	}
	if len(body.CountryCode) != 2 {
		return "", fmt.Errorf("geolocation returned country %q", body.CountryCode)
	}

	return strings.ToUpper(body.CountryCode), nil
}

// ClientIP picks the originating address from proxy headers, falling back to
// the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
