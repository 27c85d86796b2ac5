package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	NGN Currency = "NGN"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
)

// HomeCurrency is the currency every canonical amount is expressed in.
const HomeCurrency = NGN

// majorUnitCurrencies are settled with two decimal places; everything else
// is quoted in whole units.
var majorUnitCurrencies = map[Currency]bool{
	USD: true,
	EUR: true,
	GBP: true,
	CAD: true,
	AUD: true,
}

func NormalizeCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

// Places returns the number of decimal places target amounts are rounded to.
func (c Currency) Places() int32 {
	if majorUnitCurrencies[c] {
		return 2
	}
	return 0
}

func (c Currency) Valid() bool {
	return len(c) == 3 && strings.ToUpper(string(c)) == string(c)
}

// ExchangeRate expresses how many units of Currency one unit of the home
// currency buys.
type ExchangeRate struct {
	Currency Currency
	Rate     decimal.Decimal
	AsOf     time.Time
}

// IdentityRate is the home currency priced in itself.
func IdentityRate(at time.Time) ExchangeRate {
	return ExchangeRate{Currency: HomeCurrency, Rate: decimal.NewFromInt(1), AsOf: at}
}

func (r ExchangeRate) Usable() bool {
	return r.Rate.IsPositive()
}

// Convert turns a canonical home-currency amount into the target currency.
// Results are rounded half away from zero to the target's precision.
func Convert(amountHome int64, target Currency, rate ExchangeRate) (decimal.Decimal, error) {
	if amountHome < 0 {
		return decimal.Zero, NewInvalidAmountError(strconv.FormatInt(amountHome, 10))
	}
	if amountHome == 0 {
		return decimal.Zero, nil
	}

	home := decimal.NewFromInt(amountHome)
	if target == HomeCurrency {
		return home, nil
	}

	if !rate.Usable() || (rate.Currency != "" && rate.Currency != target) {
		return decimal.Zero, NewRateUnavailableError(target)
	}

	return home.Mul(rate.Rate).Round(target.Places()), nil
}
