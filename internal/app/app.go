// Package app wires configuration, infrastructure and services into the
// object graph shared by the orders server and ordersctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/geo"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/messaging"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/providers"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/rates"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/storage"
	"github.com/DanielPopoola/atelier-orders/internal/telemetry"
	"github.com/DanielPopoola/atelier-orders/internal/worker"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *postgres.DB

	Orders    *services.OrderService
	Checkout  *services.CheckoutService
	Gateway   *services.ReconciliationGateway
	Refunds   *services.RefundService
	Lifecycle *services.LifecycleService

	Dispatcher *worker.PollDispatcher
	Sweeper    *worker.SessionSweeper

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler

	closers []func(context.Context) error
}

// New connects to the database and builds every service. Close releases
// what New opened, in reverse order.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	meterProvider, err := a.initTelemetry(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db
	a.onClose(func(context.Context) error {
		db.Close()
		return nil
	})

	metrics, err := telemetry.NewRecorder(meterProvider)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("create metrics recorder: %w", err)
	}

	proofs, err := storage.NewS3ProofStore(ctx, cfg.Storage, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("create proof store: %w", err)
	}

	fallback, err := services.ParseFallbackRates(cfg.Rates.Fallback)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	notifier := a.newNotifier()
	orderRepo := postgres.NewOrderRepository(db)

	providerA := providers.NewRetryProviderAClient(providers.NewProviderAClient(cfg.ProviderA), cfg.Retry)
	providerB := providers.NewRetryProviderBClient(providers.NewProviderBClient(cfg.ProviderB), cfg.Retry)

	a.Lifecycle = services.NewLifecycleService(orderRepo, notifier, metrics, logger)
	rateService := services.NewRateService(rates.NewClient(cfg.Rates), fallback, cfg.Rates.TTL, metrics, logger)
	a.Gateway = services.NewReconciliationGateway(a.Lifecycle, orderRepo, providerB, metrics, logger, cfg.Poll.MaxAttempts, cfg.Poll.Interval)
	a.Dispatcher = worker.NewPollDispatcher(a.Gateway, logger)
	a.onClose(a.Dispatcher.Shutdown)

	a.Checkout = services.NewCheckoutService(
		a.Lifecycle,
		orderRepo,
		rateService,
		geo.NewClient(cfg.Geo),
		providerA,
		providerB,
		a.Dispatcher,
		cfg.Store.PublicURL,
		logger,
	)
	a.Orders = services.NewOrderService(
		orderRepo,
		services.NewCodeAllocator(postgres.NewCodeCounter(db)),
		a.Lifecycle,
		a.Gateway,
		proofs,
		services.ProofPolicy{
			MaxBytes:     cfg.Storage.MaxProofBytes,
			AllowedTypes: cfg.Storage.AllowedProofMIME,
		},
		notifier,
		logger,
	)
	a.Refunds = services.NewRefundService(postgres.NewRefundRepository(db), orderRepo, logger)
	a.Sweeper = worker.NewSessionSweeper(orderRepo, a.Gateway, a.Dispatcher, cfg.Worker, logger)

	return a, nil
}

func (a *App) initTelemetry(ctx context.Context) (*metric.MeterProvider, error) {
	cfg := a.Config.Telemetry

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, Version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracer provider: %w", err)
	}
	a.onClose(shutdownTracer)

	mp, handler, err := telemetry.InitMeterProvider(cfg.ServiceName, Version, nil)
	if err != nil {
		return nil, fmt.Errorf("init meter provider: %w", err)
	}
	a.onClose(func(ctx context.Context) error { return telemetry.Shutdown(ctx, mp) })
	if err := telemetry.InstallGlobal(mp); err != nil {
		return nil, fmt.Errorf("install meter provider: %w", err)
	}
	a.MetricsHandler = handler
	return mp, nil
}

// newNotifier publishes to Kafka when brokers are configured and logs
// transitions otherwise.
func (a *App) newNotifier() application.Notifier {
	if len(a.Config.Notifier.Brokers) == 0 {
		a.Logger.Warn("no kafka brokers configured, transitions will only be logged")
		return messaging.NewLogNotifier(a.Logger)
	}
	n := messaging.NewKafkaNotifier(a.Config.Notifier, a.Logger)
	a.onClose(func(context.Context) error { return n.Close() })
	return n
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("shutdown finished with errors", "error", err)
		return err
	}
	return nil
}
