package currency

import "github.com/shopspring/decimal"

// BaseCurrency is the currency every rate table is expressed against.
const BaseCurrency = "USD"

var fallbackRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"JPY": decimal.RequireFromString("149.5"),
	"TWD": decimal.NewFromInt(31),
	"CNY": decimal.RequireFromString("7.24"),
	"HKD": decimal.RequireFromString("7.82"),
	"KRW": decimal.NewFromInt(1330),
	"AUD": decimal.RequireFromString("1.52"),
	"CAD": decimal.RequireFromString("1.36"),
	"SGD": decimal.RequireFromString("1.34"),
}

// FallbackRates returns a copy of the built-in USD-based rate table used when
// no live rate is cached.
func FallbackRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(fallbackRates))
	for code, rate := range fallbackRates {
		out[code] = rate
	}
	return out
}
