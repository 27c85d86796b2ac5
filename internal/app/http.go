package app

import (
	"net/http"

	"github.com/DanielPopoola/atelier-orders/api"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/atelier-orders/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler builds the public HTTP surface: API routes, the metrics endpoint
// and the middleware chain around them.
func (a *App) Handler() (http.Handler, error) {
	h := handlers.NewHandlers(
		a.Orders,
		a.Checkout,
		a.Gateway,
		a.Refunds,
		a.DB,
		a.Config.ProviderA.WebhookSecret,
		a.Logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.Handle("GET /metrics", a.MetricsHandler)

	validate, err := middleware.RequestValidator(api.Contract, a.Logger)
	if err != nil {
		return nil, err
	}

	handler := telemetry.WithHTTPRoute(mux)
	handler = validate(handler)
	handler = middleware.Timeout(a.Config.Server.WriteTimeout)(handler)
	handler = middleware.Logging(a.Logger)(handler)
	handler = middleware.Recovery(a.Logger)(handler)
	return otelhttp.NewHandler(handler, a.Config.Telemetry.ServiceName), nil
}
