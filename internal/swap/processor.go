package swap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/clock"
	"github.com/ksred/coinkong/internal/exchange"
	"github.com/ksred/coinkong/internal/notify"
	"github.com/ksred/coinkong/internal/observability"
	"github.com/ksred/coinkong/internal/random"
	"github.com/ksred/coinkong/internal/types"
)

const internalErrorMessage = "internal error"

// Dex submits a swap to an exchange
type Dex interface {
	InitiateSwap(ctx context.Context, req exchange.Request) (*exchange.Result, error)
}

// Recorder keeps the audit trail of status transitions
type Recorder interface {
	RecordTransition(ctx context.Context, swap types.Swap, from types.SwapStatus, detail string) error
}

// Options tune the simulated lifecycle
type Options struct {
	InitiationDelay   time.Duration // before the exchange is contacted
	ConfirmationDelay time.Duration // between exchange acceptance and the outcome
	SuccessRate       float64       // 0-1, probability a processing swap completes
}

// DefaultOptions are the delays and success rate used in production
func DefaultOptions() Options {
	return Options{
		InitiationDelay:   5 * time.Second,
		ConfirmationDelay: 10 * time.Second,
		SuccessRate:       0.9,
	}
}

// Processor drives each swap from pending to a terminal status in its own
// goroutine.
type Processor struct {
	registry *Registry
	dex      Dex
	notifier notify.Notifier
	clk      clock.Clock
	rnd      random.Source
	opts     Options

	journal Recorder
	metrics *observability.Metrics

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewProcessor creates a processor with no journal or metrics attached
func NewProcessor(registry *Registry, dex Dex, notifier notify.Notifier, clk clock.Clock, rnd random.Source, opts Options) *Processor {
	return &Processor{
		registry: registry,
		dex:      dex,
		notifier: notifier,
		clk:      clk,
		rnd:      rnd,
		opts:     opts,
	}
}

// WithJournal records every transition in j
func (p *Processor) WithJournal(j Recorder) *Processor {
	p.journal = j
	return p
}

// WithMetrics reports transitions, notifications and durations to m
func (p *Processor) WithMetrics(m *observability.Metrics) *Processor {
	p.metrics = m
	return p
}

// Launch starts processing the swap in the background. The task is not tied
// to any request context and always runs to a terminal status.
func (p *Processor) Launch(swapID string) {
	p.wg.Add(1)
	p.inFlight.Add(1)
	if p.metrics != nil {
		p.metrics.SwapsActive.Inc()
	}

	go func() {
		defer func() {
			p.inFlight.Add(-1)
			if p.metrics != nil {
				p.metrics.SwapsActive.Dec()
			}
			p.wg.Done()
		}()

		if err := p.Process(context.Background(), swapID); err != nil {
			log.Error().
				Err(err).
				Str("component", "swap_processor").
				Str("swap_id", swapID).
				Msg("swap task ended with error")
		}
	}()
}

// InFlight is the number of launched tasks that have not finished
func (p *Processor) InFlight() int {
	return int(p.inFlight.Load())
}

// Wait blocks until every launched task has finished or ctx is done
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d swaps still in flight: %w", p.InFlight(), ctx.Err())
	}
}

// Process runs the whole lifecycle of one swap synchronously. Whatever
// happens, the swap ends terminal and in the completed partition. The
// returned error only reports problems with the task itself; a failed
// swap is not an error.
func (p *Processor) Process(ctx context.Context, swapID string) (err error) {
	logger := log.With().
		Str("component", "swap_processor").
		Str("swap_id", swapID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Msg("recovered panic in swap task")
			p.abort(ctx, swapID, internalErrorMessage, logger)
			err = fmt.Errorf("swap %s: panic: %v", swapID, r)
		}
	}()

	swap, err := p.advance(ctx, swapID, types.StatusInitiating, "", nil)
	if err != nil {
		return err
	}
	logger = logger.With().Str("user_id", swap.UserID).Logger()
	logger.Info().Msg("swap initiating")
	p.notify(ctx, notify.KindInitiated, swap, logger)

	if err := p.clk.Sleep(ctx, p.opts.InitiationDelay); err != nil {
		p.abort(ctx, swapID, err.Error(), logger)
		return err
	}

	result, dexErr := p.dex.InitiateSwap(ctx, exchange.Request{
		SwapID:       swap.ID,
		FromCurrency: swap.FromCurrency,
		ToCurrency:   swap.ToCurrency,
		FromAmount:   swap.FromAmount,
		ToAmount:     swap.ToAmount,
	})
	if dexErr != nil {
		logger.Warn().Err(dexErr).Msg("exchange call failed")
		swap, err = p.advance(ctx, swapID, types.StatusFailed, dexErr.Error(), func(s *types.Swap) {
			s.Error = dexErr.Error()
		})
		if err != nil {
			p.abort(ctx, swapID, dexErr.Error(), logger)
			return err
		}
		p.notify(ctx, notify.KindFailed, swap, logger)
		return p.finish(swap, logger)
	}

	detail := fmt.Sprintf("%s %s", result.DexName, result.DexTxID)
	swap, err = p.advance(ctx, swapID, types.StatusProcessing, detail, func(s *types.Swap) {
		s.DexName = result.DexName
		s.DexTxID = result.DexTxID
	})
	if err != nil {
		p.abort(ctx, swapID, err.Error(), logger)
		return err
	}
	logger.Info().
		Str("dex", result.DexName).
		Str("dex_tx_id", result.DexTxID).
		Msg("swap processing")
	p.notify(ctx, notify.KindProcessing, swap, logger)

	if err := p.clk.Sleep(ctx, p.opts.ConfirmationDelay); err != nil {
		p.abort(ctx, swapID, err.Error(), logger)
		return err
	}

	final, kind := types.StatusFailed, notify.KindFailed
	if p.rnd.Float64() < p.opts.SuccessRate {
		final, kind = types.StatusCompleted, notify.KindCompleted
	}

	swap, err = p.advance(ctx, swapID, final, "", nil)
	if err != nil {
		p.abort(ctx, swapID, err.Error(), logger)
		return err
	}
	p.notify(ctx, kind, swap, logger)
	return p.finish(swap, logger)
}

// advance moves the swap to next, applying mutate in the same update
func (p *Processor) advance(ctx context.Context, swapID string, next types.SwapStatus, detail string, mutate func(s *types.Swap)) (types.Swap, error) {
	var from types.SwapStatus
	swap, err := p.registry.Update(swapID, func(s *types.Swap) error {
		from = s.Status
		if mutate != nil {
			mutate(s)
		}
		return s.Transition(next, p.clk.Now())
	})
	if err != nil {
		return swap, err
	}

	p.record(ctx, swap, from, detail)
	return swap, nil
}

func (p *Processor) record(ctx context.Context, swap types.Swap, from types.SwapStatus, detail string) {
	if p.metrics != nil {
		p.metrics.StatusTransitions.WithLabelValues(string(from), string(swap.Status)).Inc()
	}
	if p.journal == nil {
		return
	}
	if err := p.journal.RecordTransition(ctx, swap, from, detail); err != nil {
		log.Warn().
			Err(err).
			Str("component", "swap_processor").
			Str("swap_id", swap.ID).
			Msg("failed to journal transition")
	}
}

// notify is best effort: a delivery failure is logged and the lifecycle
// carries on.
func (p *Processor) notify(ctx context.Context, kind notify.Kind, swap types.Swap, logger zerolog.Logger) {
	err := p.notifier.Notify(ctx, notify.New(kind, swap, p.clk.Now()))
	if err != nil {
		logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Msg("failed to deliver notification")
		if p.metrics != nil {
			p.metrics.NotificationsFailed.WithLabelValues(string(kind)).Inc()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.NotificationsSent.WithLabelValues(string(kind)).Inc()
	}
}

// finish moves a terminal swap into the completed partition
func (p *Processor) finish(swap types.Swap, logger zerolog.Logger) error {
	if err := p.registry.Complete(swap.ID); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.SwapsFinished.WithLabelValues(string(swap.Status)).Inc()
		if swap.CompletedAt != nil {
			p.metrics.SwapDuration.Observe(swap.CompletedAt.Sub(swap.CreatedAt).Seconds())
		}
	}

	logger.Info().
		Str("status", string(swap.Status)).
		Str("dex", swap.DexName).
		Msg("swap finished")
	return nil
}

// abort forces a swap that is not yet terminal to failed and completes it
func (p *Processor) abort(ctx context.Context, swapID, reason string, logger zerolog.Logger) {
	var from types.SwapStatus
	swap, err := p.registry.Update(swapID, func(s *types.Swap) error {
		from = s.Status
		if s.Status.IsTerminal() {
			return nil
		}
		s.Error = reason
		return s.Transition(types.StatusFailed, p.clk.Now())
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to force swap to failed")
		return
	}
	if from == swap.Status && !p.registry.IsActive(swapID) {
		return
	}
	if from != swap.Status {
		p.record(ctx, swap, from, reason)
	}
	if err := p.finish(swap, logger); err != nil {
		logger.Error().Err(err).Msg("failed to complete aborted swap")
	}
}
