package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(c domain.Currency, r string) domain.ExchangeRate {
	return domain.ExchangeRate{Currency: c, Rate: decimal.RequireFromString(r), AsOf: time.Now()}
}

func TestConvert(t *testing.T) {
	t.Run("zero amount converts to zero", func(t *testing.T) {
		got, err := domain.Convert(0, domain.USD, rate(domain.USD, "0.00063"))
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("rounds major-unit currencies to two places", func(t *testing.T) {
		got, err := domain.Convert(1000, domain.USD, rate(domain.USD, "0.00063"))
		require.NoError(t, err)
		assert.Equal(t, "0.63", got.StringFixed(2))
	})

	t.Run("rounds half away from zero", func(t *testing.T) {
		// 1010 * 0.0005 = 0.505
		got, err := domain.Convert(1010, domain.EUR, rate(domain.EUR, "0.0005"))
		require.NoError(t, err)
		assert.Equal(t, "0.51", got.StringFixed(2))

		got, err = domain.Convert(1250, domain.GBP, rate(domain.GBP, "0.001"))
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString("1.25")))
	})

	t.Run("whole-unit currencies drop decimals", func(t *testing.T) {
		got, err := domain.Convert(1000, domain.Currency("JPY"), rate("JPY", "0.0995"))
		require.NoError(t, err)
		assert.Equal(t, "100", got.String())

		got, err = domain.Convert(1005, domain.Currency("JPY"), rate("JPY", "0.1"))
		require.NoError(t, err)
		assert.Equal(t, "101", got.String(), "100.5 rounds away from zero")
	})

	t.Run("home currency needs no rate", func(t *testing.T) {
		got, err := domain.Convert(25000, domain.NGN, domain.ExchangeRate{})
		require.NoError(t, err)
		assert.Equal(t, "25000", got.String())
	})

	t.Run("missing rate fails with RateUnavailable", func(t *testing.T) {
		_, err := domain.Convert(1000, domain.USD, domain.ExchangeRate{})
		assert.ErrorIs(t, err, domain.ErrRateUnavailable)

		_, err = domain.Convert(1000, domain.USD, rate(domain.USD, "-0.1"))
		assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	})

	t.Run("rate for another currency is rejected", func(t *testing.T) {
		_, err := domain.Convert(1000, domain.USD, rate(domain.GBP, "0.0005"))
		assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	})

	t.Run("negative amount is invalid", func(t *testing.T) {
		_, err := domain.Convert(-1, domain.USD, rate(domain.USD, "0.00063"))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		country  string
		override bool
		want     domain.Provider
	}{
		{"NG", false, domain.ProviderA},
		{"ng", false, domain.ProviderA},
		{"GB", false, domain.ProviderB},
		{"", false, domain.ProviderB},
		{"NG", true, domain.ProviderB},
		{"US", true, domain.ProviderA},
	}
	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.SelectProvider(tt.country, tt.override))
		})
	}
}

func TestSettlementCurrency(t *testing.T) {
	assert.Equal(t, domain.NGN, domain.SettlementCurrency(domain.ProviderA, "US"))
	assert.Equal(t, domain.GBP, domain.SettlementCurrency(domain.ProviderB, "gb"))
	assert.Equal(t, domain.EUR, domain.SettlementCurrency(domain.ProviderB, "FR"))
	assert.Equal(t, domain.USD, domain.SettlementCurrency(domain.ProviderB, "NG"))
	assert.Equal(t, domain.USD, domain.SettlementCurrency(domain.ProviderB, "KE"))
}
