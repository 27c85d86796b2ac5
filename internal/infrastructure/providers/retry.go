package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/config"
)

type retrier struct {
	baseDelay  time.Duration
	maxRetries int
}

func newRetrier(cfg config.RetryConfig) retrier {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return retrier{baseDelay: cfg.BaseDelay, maxRetries: maxRetries}
}

type RetryProviderAClient struct {
	inner application.ProviderAClient
	retrier
}

func NewRetryProviderAClient(inner application.ProviderAClient, cfg config.RetryConfig) *RetryProviderAClient {
	return &RetryProviderAClient{inner: inner, retrier: newRetrier(cfg)}
}

func (r *RetryProviderAClient) CreateSession(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	return retry(r.retrier, ctx, func(ctx context.Context) (*application.ProviderSession, error) {
		return r.inner.CreateSession(ctx, req)
	})
}

type RetryProviderBClient struct {
	inner application.ProviderBClient
	retrier
}

func NewRetryProviderBClient(inner application.ProviderBClient, cfg config.RetryConfig) *RetryProviderBClient {
	return &RetryProviderBClient{inner: inner, retrier: newRetrier(cfg)}
}

func (r *RetryProviderBClient) CreateCheckout(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	return retry(r.retrier, ctx, func(ctx context.Context) (*application.ProviderSession, error) {
		return r.inner.CreateCheckout(ctx, req)
	})
}

func (r *RetryProviderBClient) GetStatus(ctx context.Context, reference string) (*application.CheckoutStatus, error) {
	return retry(r.retrier, ctx, func(ctx context.Context) (*application.CheckoutStatus, error) {
		return r.inner.GetStatus(ctx, reference)
	})
}

// Generic retry helper
func retry[T any](r retrier, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if providerErr, ok := application.IsProviderError(err); ok {
		return providerErr.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Network failures and timeouts.
	return true
}

// Exponential delay with jitter of up to one base delay.
func (r retrier) backoff(attempt int) time.Duration {
	if r.baseDelay <= 0 {
		return 0
	}
	base := r.baseDelay * time.Duration(1<<attempt)
	return base + time.Duration(rand.Int63n(int64(r.baseDelay)))
}
