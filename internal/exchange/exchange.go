package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/clock"
	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/random"
	"github.com/ksred/coinkong/internal/types"
)

var (
	ErrNoExchanges     = errors.New("no exchanges configured")
	ErrExecutionFailed = errors.New("execution failed on exchange")
)

// Request describes the swap being routed to an exchange
type Request struct {
	SwapID       string
	FromCurrency string
	ToCurrency   string
	FromAmount   float64
	ToAmount     float64
}

// Result is the outcome of a successful exchange call
type Result struct {
	DexName    string    `json:"dex_name"`
	DexTxID    string    `json:"dex_tx_id"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Router simulates handing a swap to one of the configured DEXes
type Router struct {
	cfg         *config.Store
	rnd         random.Source
	clk         clock.Clock
	latency     time.Duration // simulated round trip to the exchange
	failureRate float64       // 0-1, probability the exchange rejects the swap
}

// NewRouter creates a router over the DEX list in cfg
func NewRouter(cfg *config.Store, rnd random.Source, clk clock.Clock, latency time.Duration, failureRate float64) *Router {
	return &Router{
		cfg:         cfg,
		rnd:         rnd,
		clk:         clk,
		latency:     latency,
		failureRate: failureRate,
	}
}

// SelectDex picks one exchange uniformly at random
func (r *Router) SelectDex() (types.Dex, error) {
	dexes := r.cfg.Dexes()
	if len(dexes) == 0 {
		return types.Dex{}, ErrNoExchanges
	}
	return dexes[r.rnd.Intn(len(dexes))], nil
}

// InitiateSwap simulates submitting the swap to an exchange. On success it
// returns a fabricated transaction id of the form "<dex>-<5 digits>".
func (r *Router) InitiateSwap(ctx context.Context, req Request) (*Result, error) {
	dex, err := r.SelectDex()
	if err != nil {
		return nil, err
	}

	logger := log.With().
		Str("component", "dex_router").
		Str("swap_id", req.SwapID).
		Str("dex", dex.Name).
		Str("pair", req.FromCurrency+"-"+req.ToCurrency).
		Float64("from_amount", req.FromAmount).
		Logger()

	logger.Info().Msg("initiating swap with exchange")

	logger.Debug().Dur("latency", r.latency).Msg("simulated network latency")
	if err := r.clk.Sleep(ctx, r.latency); err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", dex.Name, err)
	}

	if r.failureRate > 0 && r.rnd.Float64() < r.failureRate {
		logger.Warn().
			Float64("failure_rate", r.failureRate).
			Msg("exchange rejected swap")
		return nil, fmt.Errorf("%w %s", ErrExecutionFailed, dex.Name)
	}

	result := &Result{
		DexName:    dex.Name,
		DexTxID:    fmt.Sprintf("%s-%d", strings.ToLower(dex.Name), 10000+r.rnd.Intn(90000)),
		ExecutedAt: r.clk.Now(),
	}

	logger.Info().
		Str("dex_tx_id", result.DexTxID).
		Msg("swap accepted by exchange")

	return result, nil
}
