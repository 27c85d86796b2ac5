package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/api"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RespondWithJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp rest.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "boom")
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "/orders", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			okHandler(w, r)
		}
	})

	rec := httptest.NewRecorder()
	middleware.Timeout(20*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "TIMEOUT")

	rec = httptest.NewRecorder()
	middleware.Timeout(time.Second)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestValidator(t *testing.T) {
	validate, err := middleware.RequestValidator(api.Contract, discardLogger())
	require.NoError(t, err)
	h := validate(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{
			name:   "valid order",
			method: http.MethodPost,
			target: "/orders",
			body:   `{"type":"boutique","details":{"sku":"X","quantity":1},"customer":{"name":"Ada"},"amount":100}`,
			want:   http.StatusOK,
		},
		{
			name:   "unknown order type",
			method: http.MethodPost,
			target: "/orders",
			body:   `{"type":"hats","details":{},"customer":{"name":"Ada"}}`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "missing customer",
			method: http.MethodPost,
			target: "/orders",
			body:   `{"type":"boutique","details":{}}`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "refund method outside enum",
			method: http.MethodPost,
			target: "/admin/refunds",
			body:   `{"amount":"10","currency":"NGN","reason":"x","method":"cheque"}`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "path outside contract",
			method: http.MethodGet,
			target: "/metrics",
			want:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRequestValidator_RestoresBody(t *testing.T) {
	validate, err := middleware.RequestValidator(api.Contract, discardLogger())
	require.NoError(t, err)

	var seen map[string]any
	h := validate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/abc/transitions", strings.NewReader(`{"event":"AdminCancels"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "AdminCancels", seen["event"])
}
