package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanCode_String(t *testing.T) {
	date := time.Date(2025, time.February, 7, 15, 4, 0, 0, time.UTC)

	assert.Equal(t, "TM-0225-070001", domain.NewHumanCode(domain.PrefixTM, date, 1).String())
	assert.Equal(t, "BULK-0225-070042", domain.NewHumanCode(domain.PrefixBulk, date, 42).String())
	assert.Equal(t, "ENQ-0225-0712345", domain.NewHumanCode(domain.PrefixEnquiry, date, 12345).String())
}

func TestParseCode(t *testing.T) {
	t.Run("round trips a formatted code", func(t *testing.T) {
		want := domain.NewHumanCode(domain.PrefixPOD, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), 9)

		got, err := domain.ParseCode(want.String())

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("accepts lower case and surrounding space", func(t *testing.T) {
		got, err := domain.ParseCode("  sou-0325-150003 ")

		require.NoError(t, err)
		assert.Equal(t, domain.PrefixSouvenir, got.Prefix)
		assert.Equal(t, 15, got.Date.Day())
		assert.Equal(t, time.March, got.Date.Month())
		assert.Equal(t, 2025, got.Date.Year())
		assert.Equal(t, 3, got.Sequence)
	})

	t.Run("day zero is not a calendar day", func(t *testing.T) {
		// DD carries the creation day, so 00 can never be allocated.
		_, err := domain.ParseCode("TM-0225-000001")
		assert.ErrorIs(t, err, domain.ErrInvalidCodeFormat)

		got, err := domain.ParseCode("TM-0225-010001")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Date.Day())
		assert.Equal(t, 1, got.Sequence)
	})

	invalid := []string{
		"",
		"TM0225070001",
		"XYZ-0225-070001",
		"TM-1325-070001",
		"TM-0225-300001",
		"TM-0225-07001",
		"TM-0225-070000",
		"BULK-0225-07ABCD",
	}
	for _, code := range invalid {
		t.Run("rejects "+code, func(t *testing.T) {
			_, err := domain.ParseCode(code)
			assert.ErrorIs(t, err, domain.ErrInvalidCodeFormat)
		})
	}
}

func TestPrefixFor(t *testing.T) {
	assert.Equal(t, domain.PrefixBulk, domain.PrefixFor(domain.OrderTypeBulk))
	assert.Equal(t, domain.PrefixEnquiry, domain.PrefixFor(domain.OrderTypeCustomRequest))
	assert.Equal(t, domain.PrefixBoutique, domain.PrefixFor(domain.OrderTypeBoutique))
	assert.Equal(t, domain.PrefixTM, domain.PrefixFor(domain.OrderType("unknown")))
}
