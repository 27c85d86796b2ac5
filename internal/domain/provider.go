package domain

import "strings"

// Provider identifies one of the two payment integrations.
type Provider string

const (
	// ProviderA confirms by signed callback.
	ProviderA Provider = "provider_a"
	// ProviderB confirms only when asked for a session's status.
	ProviderB Provider = "provider_b"
)

// HomeCountry is where ProviderA is the default.
const HomeCountry = "NG"

func (p Provider) Valid() bool {
	return p == ProviderA || p == ProviderB
}

// SelectProvider maps a detected country to a provider. Override flips the
// default for the current checkout attempt only.
func SelectProvider(countryCode string, override bool) Provider {
	choice := ProviderB
	if strings.EqualFold(strings.TrimSpace(countryCode), HomeCountry) {
		choice = ProviderA
	}
	if override {
		if choice == ProviderA {
			return ProviderB
		}
		return ProviderA
	}
	return choice
}

var countryCurrencies = map[string]Currency{
	"US": USD,
	"GB": GBP,
	"CA": CAD,
	"AU": AUD,
	"DE": EUR, "FR": EUR, "IT": EUR, "ES": EUR, "NL": EUR, "IE": EUR, "BE": EUR, "PT": EUR, "AT": EUR, "FI": EUR,
}

// SettlementCurrency is the currency a provider is asked to collect in.
// ProviderA always settles at home; ProviderB uses the customer's currency
// where one is supported and USD otherwise.
func SettlementCurrency(p Provider, countryCode string) Currency {
	if p == ProviderA {
		return HomeCurrency
	}
	if c, ok := countryCurrencies[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return c
	}
	return USD
}
