// Package commands implements the bot's user and owner commands as typed
// calls. The chat gateway renders the returned values.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/access"
	"github.com/ksred/coinkong/internal/clock"
	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/journal"
	"github.com/ksred/coinkong/internal/observability"
	"github.com/ksred/coinkong/internal/quote"
	"github.com/ksred/coinkong/internal/swap"
	"github.com/ksred/coinkong/internal/types"
)

// Launcher starts the lifecycle of a newly registered swap
type Launcher interface {
	Launch(swapID string)
}

// History returns the recorded transitions of a swap
type History interface {
	History(ctx context.Context, swapID string) ([]journal.Event, error)
}

// Service handles bot commands on behalf of an acting user
type Service struct {
	cfg      *config.Store
	policy   *access.Policy
	quotes   *quote.Engine
	registry *swap.Registry
	launcher Launcher
	clk      clock.Clock
	ids      swap.IDGenerator

	history History
	metrics *observability.Metrics
}

// NewService wires the command service. launcher is usually the swap
// processor.
func NewService(cfg *config.Store, quotes *quote.Engine, registry *swap.Registry, launcher Launcher, clk clock.Clock) *Service {
	return &Service{
		cfg:      cfg,
		policy:   access.NewPolicy(cfg),
		quotes:   quotes,
		registry: registry,
		launcher: launcher,
		clk:      clk,
	}
}

func (s *Service) WithHistory(h History) *Service {
	s.history = h
	return s
}

func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Swap validates the request, prices it and launches a new swap. Checks run
// in order: access, currencies, amount, minimum, then the quote itself. A
// rejected request never creates a record.
func (s *Service) Swap(ctx context.Context, userID string, usdAmount float64, fromCurrency, toCurrency string) (_ *types.Swap, err error) {
	defer func() {
		s.metrics.RecordCommand("swap", err)
		if err != nil && s.metrics != nil {
			s.metrics.SwapsRejected.WithLabelValues(rejectReason(err)).Inc()
		}
	}()

	logger := log.With().
		Str("component", "commands").
		Str("command", "swap").
		Str("user_id", userID).
		Logger()

	if err := s.policy.Check(userID); err != nil {
		return nil, err
	}

	from := strings.ToUpper(strings.TrimSpace(fromCurrency))
	to := strings.ToUpper(strings.TrimSpace(toCurrency))

	if !s.cfg.IsTokenSupported(from) {
		return nil, types.NewValidationError("from_currency", "Invalid source currency: %s. Use /supported_tokens to see available options.", from)
	}
	if !s.cfg.IsTokenSupported(to) {
		return nil, types.NewValidationError("to_currency", "Invalid target currency: %s. Use /supported_tokens to see available options.", to)
	}
	if from == to {
		return nil, types.NewValidationError("to_currency", "Source and target currencies cannot be the same.")
	}
	if math.IsNaN(usdAmount) || usdAmount <= 0 {
		return nil, types.NewValidationError("usd_amount", "Amount must be greater than zero.")
	}
	if !s.quotes.MeetsMinimum(usdAmount) {
		return nil, types.NewValidationError("usd_amount", "Amount is below the minimum required ($%v USD).", s.cfg.MinimumSwapUSD())
	}

	q, err := s.quotes.Quote(usdAmount, from, to)
	if err != nil {
		logger.Warn().Err(err).Str("pair", from+"-"+to).Msg("quote failed")
		return nil, err
	}

	now := s.clk.Now()
	record := types.Swap{
		ID:                 s.ids.Next(now),
		UserID:             userID,
		FromCurrency:       q.FromCurrency,
		ToCurrency:         q.ToCurrency,
		USDAmount:          q.USDAmount,
		FromAmount:         q.FromAmount,
		EstimatedAmount:    q.EstimatedAmount,
		ToAmount:           q.ToAmount,
		ExchangeRate:       q.Rate,
		PlatformFeePercent: q.PlatformFeePercent,
		ExchangeFeePercent: q.ExchangeFeePercent,
		PlatformFee:        q.PlatformFee,
		ExchangeFee:        q.ExchangeFee,
		Status:             types.StatusPending,
		SourceAddress:      types.PlaceholderSourceAddress,
		DestinationAddress: types.PlaceholderDestinationAddress,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.registry.Insert(record); err != nil {
		return nil, fmt.Errorf("failed to register swap: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SwapsCreated.WithLabelValues(record.FromCurrency + "-" + record.ToCurrency).Inc()
	}

	logger.Info().
		Str("swap_id", record.ID).
		Str("pair", record.FromCurrency+"-"+record.ToCurrency).
		Float64("usd_amount", record.USDAmount).
		Float64("to_amount", record.ToAmount).
		Msg("swap created")

	s.launcher.Launch(record.ID)
	return &record, nil
}

// Status shows a swap to its requester or the owner
func (s *Service) Status(userID, swapID string) (_ *SwapView, err error) {
	defer func() { s.metrics.RecordCommand("status", err) }()

	if err := s.policy.Check(userID); err != nil {
		return nil, err
	}

	record, err := s.registry.Get(strings.TrimSpace(swapID))
	if err != nil {
		return nil, err
	}
	if record.UserID != userID && !s.policy.IsOwner(userID) {
		return nil, types.ErrNotSwapOwner
	}

	view := NewSwapView(record)
	return &view, nil
}

// SetFee changes the platform fee percentage for future quotes
func (s *Service) SetFee(userID string, percentage float64) (err error) {
	defer func() { s.metrics.RecordCommand("set_fee", err) }()

	if err := s.policy.RequireOwner(userID); err != nil {
		return err
	}
	if err := s.cfg.SetFeePercent(percentage); err != nil {
		return err
	}

	log.Info().
		Str("component", "commands").
		Str("user_id", userID).
		Float64("fee_percent", percentage).
		Msg("platform fee updated")
	return nil
}

// Pause puts the bot into maintenance mode
func (s *Service) Pause(userID string) (err error) {
	defer func() { s.metrics.RecordCommand("pause", err) }()
	return s.setPaused(userID, true)
}

// Resume ends maintenance mode
func (s *Service) Resume(userID string) (err error) {
	defer func() { s.metrics.RecordCommand("resume", err) }()
	return s.setPaused(userID, false)
}

func (s *Service) setPaused(userID string, paused bool) error {
	if err := s.policy.RequireOwner(userID); err != nil {
		return err
	}
	s.cfg.SetPaused(paused)

	log.Info().
		Str("component", "commands").
		Str("user_id", userID).
		Bool("paused", paused).
		Msg("maintenance mode changed")
	return nil
}

// Whitelist lets target use the bot during maintenance. It reports false
// when target was already whitelisted.
func (s *Service) Whitelist(userID, target string) (added bool, err error) {
	defer func() { s.metrics.RecordCommand("whitelist", err) }()

	if err := s.policy.RequireOwner(userID); err != nil {
		return false, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return false, types.NewValidationError("user_id", "User ID is required.")
	}
	return s.cfg.Whitelist(target), nil
}

// Blacklist bans target from the bot. It reports false when target was
// already blacklisted.
func (s *Service) Blacklist(userID, target string) (added bool, err error) {
	defer func() { s.metrics.RecordCommand("blacklist", err) }()

	if err := s.policy.RequireOwner(userID); err != nil {
		return false, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return false, types.NewValidationError("user_id", "User ID is required.")
	}
	return s.cfg.Blacklist(target), nil
}

// ShowOrder gives the owner every detail of a swap, including its
// transition history when a journal is attached.
func (s *Service) ShowOrder(ctx context.Context, userID, swapID string) (_ *OrderDetails, err error) {
	defer func() { s.metrics.RecordCommand("show_order", err) }()

	if err := s.policy.RequireOwner(userID); err != nil {
		return nil, err
	}

	record, err := s.registry.Get(strings.TrimSpace(swapID))
	if err != nil {
		return nil, err
	}

	details := &OrderDetails{
		View: NewSwapView(record),
		Swap: record,
	}
	if s.history != nil {
		events, err := s.history.History(ctx, record.ID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("component", "commands").
				Str("swap_id", record.ID).
				Msg("failed to load swap history")
		} else {
			details.History = events
		}
	}
	return details, nil
}

// UserOrders lists every swap requested by target, oldest first
func (s *Service) UserOrders(userID, target string) (_ []SwapView, err error) {
	defer func() { s.metrics.RecordCommand("user_orders", err) }()

	if err := s.policy.RequireOwner(userID); err != nil {
		return nil, err
	}

	swaps := s.registry.ByUser(strings.TrimSpace(target))
	views := make([]SwapView, 0, len(swaps))
	for _, record := range swaps {
		views = append(views, NewSwapView(record))
	}
	return views, nil
}

// SupportedTokens lists the currencies accepted by swap
func (s *Service) SupportedTokens() []types.Token {
	s.metrics.RecordCommand("supported_tokens", nil)
	return s.cfg.Tokens()
}

// Support returns the contact and fee information shown by /support
func (s *Service) Support() SupportInfo {
	s.metrics.RecordCommand("support", nil)
	return SupportInfo{
		Contact:            s.cfg.SupportContact(),
		MinimumSwapUSD:     s.cfg.MinimumSwapUSD(),
		PlatformFeePercent: s.cfg.FeePercent(),
		ExchangeFee:        "Varies by exchange (typically 0.1-0.3%)",
	}
}

// Help lists the available commands
func (s *Service) Help() HelpInfo {
	s.metrics.RecordCommand("help", nil)
	return HelpInfo{
		UserCommands:  append([]CommandHelp(nil), userCommands...),
		OwnerCommands: append([]CommandHelp(nil), ownerCommands...),
	}
}

func rejectReason(err error) string {
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Field
	case errors.Is(err, types.ErrPairNotSupported):
		return "pair_not_supported"
	case errors.Is(err, types.ErrConversionFailed):
		return "conversion_failed"
	case errors.Is(err, types.ErrAccessDenied), errors.Is(err, types.ErrMaintenance):
		return "access"
	default:
		return "internal"
	}
}
