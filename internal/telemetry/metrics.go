package telemetry

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider wires a Prometheus exporter into a new MeterProvider and
// returns the /metrics handler. A nil registry means the default one.
func InitMeterProvider(serviceName, serviceVersion string, registry *promclient.Registry) (*metric.MeterProvider, http.Handler, error) {
	var (
		exporterOpts []prometheus.Option
		handler      http.Handler
	)
	if registry != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(registry))
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		handler = promhttp.Handler()
	}

	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return nil, nil, err
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(newResource(serviceName, serviceVersion)),
	)

	return mp, handler, nil
}

// InstallGlobal makes mp the global provider and starts Go runtime metrics.
func InstallGlobal(mp *metric.MeterProvider) error {
	otel.SetMeterProvider(mp)
	return runtime.Start(runtime.WithMeterProvider(mp))
}

// Shutdown flushes a meter provider, tolerating nil.
func Shutdown(ctx context.Context, mp *metric.MeterProvider) error {
	if mp == nil {
		return nil
	}
	return mp.Shutdown(ctx)
}
