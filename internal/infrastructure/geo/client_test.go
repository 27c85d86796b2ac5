package geo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Detect(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/json/102.89.1.1":
			_, _ = w.Write([]byte(`{"country_code":"ng"}`))
		case "/json/8.8.8.8":
			_, _ = w.Write([]byte(`{"country_code":"US"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := geo.NewClient(config.GeoConfig{BaseURL: server.URL, Timeout: time.Second})
	ctx := context.Background()

	country, err := client.Detect(ctx, application.RequestContext{IP: "102.89.1.1"})
	require.NoError(t, err)
	assert.Equal(t, "NG", country)

	country, err = client.Detect(ctx, application.RequestContext{IP: "8.8.8.8"})
	require.NoError(t, err)
	assert.Equal(t, "US", country)

	country, err = client.Detect(ctx, application.RequestContext{IP: "8.8.8.8", CountryHint: "gb"})
	require.NoError(t, err)
	assert.Equal(t, "GB", country, "an explicit hint wins over the lookup")
	assert.Equal(t, int32(2), calls.Load())

	_, err = client.Detect(ctx, application.RequestContext{IP: "1.1.1.1"})
	assert.Error(t, err)
}

func TestClient_Detect_UnroutableAddress(t *testing.T) {
	client := geo.NewClient(config.GeoConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	for _, ip := range []string{"", "127.0.0.1", "10.0.0.4", "garbage"} {
		_, err := client.Detect(context.Background(), application.RequestContext{IP: ip})
		assert.ErrorIs(t, err, geo.ErrNoAddress, ip)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5123"
	assert.Equal(t, "203.0.113.9", geo.ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", geo.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "102.89.1.1, 10.0.0.1")
	assert.Equal(t, "102.89.1.1", geo.ClientIP(r))
}
