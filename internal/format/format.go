// Package format renders amounts for display. Values are kept at full
// precision everywhere else and only rounded here.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	CryptoPlaces  = 8
	USDPlaces     = 2
	PercentPlaces = 4
)

// Crypto renders amount rounded to 8 places followed by the symbol
func Crypto(amount float64, symbol string) string {
	return fmt.Sprintf("%s %s", round(amount, CryptoPlaces), symbol)
}

// USD renders amount as dollars with two decimals
func USD(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).StringFixed(USDPlaces)
}

// Percent renders pct with trailing zeros trimmed, e.g. "0.5%"
func Percent(pct float64) string {
	return round(pct, PercentPlaces) + "%"
}

// Rate renders "1 FROM = x TO"
func Rate(rate float64, from, to string) string {
	return fmt.Sprintf("1 %s = %s %s", from, round(rate, CryptoPlaces), to)
}

// FeeBreakdown renders "pct (amount SYMBOL)"
func FeeBreakdown(pct, amount float64, symbol string) string {
	return fmt.Sprintf("%s (%s)", Percent(pct), Crypto(amount, symbol))
}

func round(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
