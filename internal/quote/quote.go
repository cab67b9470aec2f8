// Package quote prices swaps from fixed mock rate tables.
package quote

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/random"
	"github.com/ksred/coinkong/internal/types"
)

const (
	minJitter         = 0.99
	maxJitter         = 1.01
	minExchangeFeePct = 0.1
	maxExchangeFeePct = 0.3
)

// usdRates is USD per unit of each currency
var usdRates = map[string]float64{
	"BTC":  35000,
	"ETH":  2300,
	"LTC":  140,
	"XRP":  0.7,
	"SOL":  70,
	"DOGE": 0.35,
	"BCH":  700,
	"XMR":  233,
	"TRX":  0.175,
}

// pairRates is units of the target currency per unit of the source
var pairRates = map[string]float64{
	"BTC-ETH":  15.2,
	"ETH-BTC":  0.065,
	"BTC-LTC":  250,
	"LTC-BTC":  0.004,
	"ETH-LTC":  16.5,
	"LTC-ETH":  0.06,
	"BTC-XRP":  50000,
	"XRP-BTC":  0.00002,
	"ETH-XRP":  3300,
	"XRP-ETH":  0.0003,
	"BTC-SOL":  500,
	"SOL-BTC":  0.002,
	"ETH-SOL":  33,
	"SOL-ETH":  0.03,
	"BTC-DOGE": 100000,
	"DOGE-BTC": 0.00001,
	"BTC-BCH":  50,
	"BCH-BTC":  0.02,
	"BTC-XMR":  150,
	"XMR-BTC":  0.0066,
	"BTC-TRX":  200000,
	"TRX-BTC":  0.000005,
}

// Rate is the priced exchange rate for a pair at one moment
type Rate struct {
	Pair               string  `json:"pair"`
	BaseRate           float64 `json:"base_rate"`
	Rate               float64 `json:"rate"`
	ExchangeFeePercent float64 `json:"exchange_fee_percent"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	Source             string  `json:"source"`
}

// Quote is the full price breakdown for a USD-denominated swap
type Quote struct {
	FromCurrency       string  `json:"from_currency"`
	ToCurrency         string  `json:"to_currency"`
	USDAmount          float64 `json:"usd_amount"`
	FromAmount         float64 `json:"from_amount"`
	Rate               float64 `json:"rate"`
	EstimatedAmount    float64 `json:"estimated_amount"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	ExchangeFeePercent float64 `json:"exchange_fee_percent"`
	PlatformFee        float64 `json:"platform_fee"`
	ExchangeFee        float64 `json:"exchange_fee"`
	TotalFee           float64 `json:"total_fee"`
	ToAmount           float64 `json:"to_amount"`
}

// Engine converts USD to crypto and prices currency pairs
type Engine struct {
	cfg       *config.Store
	rnd       random.Source
	usdRates  map[string]float64
	pairRates map[string]float64
}

// NewEngine builds an engine over the stock rate tables
func NewEngine(cfg *config.Store, rnd random.Source) *Engine {
	return &Engine{
		cfg:       cfg,
		rnd:       rnd,
		usdRates:  usdRates,
		pairRates: pairRates,
	}
}

// WithRates swaps in custom rate tables, mainly for tests
func (e *Engine) WithRates(usd, pairs map[string]float64) *Engine {
	if usd != nil {
		e.usdRates = usd
	}
	if pairs != nil {
		e.pairRates = pairs
	}
	return e
}

// UsdToCrypto converts a USD amount into units of currency. It returns 0
// for unknown currencies or a non-positive rate; callers must treat a
// non-positive result as a failed conversion.
func (e *Engine) UsdToCrypto(usdAmount float64, currency string) float64 {
	rate, ok := e.usdRates[strings.ToUpper(currency)]
	if !ok || rate <= 0 {
		return 0
	}
	return usdAmount / rate
}

// ExchangeRate prices from->to with ±1% simulated market movement and a
// random exchange fee in [0.1, 0.3]%. The platform fee is read from the
// live configuration.
func (e *Engine) ExchangeRate(fromCurrency, toCurrency string) (*Rate, error) {
	pair := fmt.Sprintf("%s-%s", strings.ToUpper(fromCurrency), strings.ToUpper(toCurrency))

	base, ok := e.pairRates[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrPairNotSupported, pair)
	}

	rate := &Rate{
		Pair:               pair,
		BaseRate:           base,
		Rate:               base * random.Uniform(e.rnd, minJitter, maxJitter),
		ExchangeFeePercent: random.Uniform(e.rnd, minExchangeFeePct, maxExchangeFeePct),
		PlatformFeePercent: e.cfg.FeePercent(),
		Source:             "MockAPI",
	}

	log.Debug().
		Str("component", "quote_engine").
		Str("pair", pair).
		Float64("base_rate", base).
		Float64("rate", rate.Rate).
		Float64("exchange_fee_percent", rate.ExchangeFeePercent).
		Float64("platform_fee_percent", rate.PlatformFeePercent).
		Msg("priced currency pair")

	return rate, nil
}

// CalculateFee returns feePercent percent of amount
func CalculateFee(amount, feePercent float64) float64 {
	return amount * feePercent / 100
}

// MeetsMinimum reports whether usdAmount reaches the configured minimum
func (e *Engine) MeetsMinimum(usdAmount float64) bool {
	return usdAmount >= e.cfg.MinimumSwapUSD()
}

// Quote converts usdAmount into the source currency, prices the pair and
// deducts platform and exchange fees from the estimated target amount.
func (e *Engine) Quote(usdAmount float64, fromCurrency, toCurrency string) (*Quote, error) {
	fromAmount := e.UsdToCrypto(usdAmount, fromCurrency)
	if !finite(fromAmount) || fromAmount <= 0 {
		return nil, fmt.Errorf("%w: $%.2f to %s", types.ErrConversionFailed, usdAmount, fromCurrency)
	}

	rate, err := e.ExchangeRate(fromCurrency, toCurrency)
	if err != nil {
		return nil, err
	}

	estimated := fromAmount * rate.Rate
	platformFee := CalculateFee(estimated, rate.PlatformFeePercent)
	exchangeFee := CalculateFee(estimated, rate.ExchangeFeePercent)
	totalFee := platformFee + exchangeFee
	toAmount := estimated - totalFee
	if !finite(estimated) || !finite(totalFee) || !finite(toAmount) {
		return nil, fmt.Errorf("%w: $%v %s to %s is out of range", types.ErrConversionFailed, usdAmount, fromCurrency, toCurrency)
	}

	return &Quote{
		FromCurrency:       strings.ToUpper(fromCurrency),
		ToCurrency:         strings.ToUpper(toCurrency),
		USDAmount:          usdAmount,
		FromAmount:         fromAmount,
		Rate:               rate.Rate,
		EstimatedAmount:    estimated,
		PlatformFeePercent: rate.PlatformFeePercent,
		ExchangeFeePercent: rate.ExchangeFeePercent,
		PlatformFee:        platformFee,
		ExchangeFee:        exchangeFee,
		TotalFee:           totalFee,
		ToAmount:           toAmount,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SupportsPair reports whether the rate table prices from->to
func (e *Engine) SupportsPair(fromCurrency, toCurrency string) bool {
	_, ok := e.pairRates[strings.ToUpper(fromCurrency)+"-"+strings.ToUpper(toCurrency)]
	return ok
}
