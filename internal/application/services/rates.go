package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
)

type cachedRate struct {
	rate      domain.ExchangeRate
	fetchedAt time.Time
}

// RateService resolves exchange rates through a TTL cache in front of the rate
// source, falling back to a static table when the source cannot answer.
type RateService struct {
	source   application.RateSource
	fallback map[domain.Currency]decimal.Decimal
	ttl      time.Duration
	metrics  application.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	cache map[domain.Currency]cachedRate
}

func NewRateService(
	source application.RateSource,
	fallback map[domain.Currency]decimal.Decimal,
	ttl time.Duration,
	metrics application.Metrics,
	logger *slog.Logger,
) *RateService {
	return &RateService{
		source:   source,
		fallback: fallback,
		ttl:      ttl,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[domain.Currency]cachedRate),
	}
}

func (s *RateService) WithClock(now func() time.Time) *RateService {
	s.now = now
	return s
}

// ParseFallbackRates converts the configured table, keyed by lower-case
// currency code, into positive decimal rates.
func ParseFallbackRates(raw map[string]string) (map[domain.Currency]decimal.Decimal, error) {
	rates := make(map[domain.Currency]decimal.Decimal, len(raw))
	for code, value := range raw {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("fallback rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("fallback rate for %s must be positive, got %s", code, value)
		}
		rates[domain.NormalizeCurrency(code)] = rate
	}
	return rates, nil
}

// Rate returns a usable rate for currency and whether it came from the
// fallback table. It fails with domain.ErrRateUnavailable only when neither
// the source nor the table can price the currency.
func (s *RateService) Rate(ctx context.Context, currency domain.Currency) (domain.ExchangeRate, bool, error) {
	now := s.now()
	if currency == domain.HomeCurrency {
		return domain.IdentityRate(now), false, nil
	}

	if rate, ok := s.cached(currency, now); ok {
		return rate, false, nil
	}

	rate, err := s.source.GetRate(ctx, currency)
	if err == nil && rate.Usable() {
		rate.Currency = currency
		s.mu.Lock()
		s.cache[currency] = cachedRate{rate: rate, fetchedAt: now}
		s.mu.Unlock()
		return rate, false, nil
	}
	if err == nil {
		err = fmt.Errorf("source returned non-positive rate %s", rate.Rate)
	}

	fallback, ok := s.fallback[currency]
	if !ok {
		s.logger.Error("no exchange rate available",
			"currency", currency,
			"error", err,
		)
		return domain.ExchangeRate{}, false, domain.NewRateUnavailableError(currency)
	}

	s.metrics.RateFallback(ctx, currency)
	s.logger.Warn("using fallback exchange rate",
		"currency", currency,
		"rate", fallback.String(),
		"error", err,
	)
	return domain.ExchangeRate{Currency: currency, Rate: fallback, AsOf: now}, true, nil
}

func (s *RateService) cached(currency domain.Currency, now time.Time) (domain.ExchangeRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[currency]
	if !ok || now.Sub(entry.fetchedAt) >= s.ttl {
		return domain.ExchangeRate{}, false
	}
	return entry.rate, true
}
