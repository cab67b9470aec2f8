package types

import (
	"fmt"
	"time"
)

// SwapStatus is the lifecycle state of a swap
type SwapStatus string

const (
	StatusPending    SwapStatus = "pending"
	StatusInitiating SwapStatus = "initiating"
	StatusProcessing SwapStatus = "processing"
	StatusCompleted  SwapStatus = "completed"
	StatusFailed     SwapStatus = "failed"
)

// Placeholder settlement addresses until address collection exists
const (
	PlaceholderSourceAddress      = "source_wallet_address"
	PlaceholderDestinationAddress = "destination_wallet_address"
)

// rank orders the statuses along the lifecycle. Both terminal states share
// the highest rank.
var rank = map[SwapStatus]int{
	StatusPending:    0,
	StatusInitiating: 1,
	StatusProcessing: 2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// IsTerminal reports whether no further transition is possible
func (s SwapStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether s is a known status
func (s SwapStatus) IsValid() bool {
	_, ok := rank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// moving forward. Failure is reachable from any non-terminal state.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return rank[next] == rank[s]+1
}

// Swap is one user swap request and its simulated execution state
type Swap struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`

	USDAmount       float64 `json:"usd_amount"`
	FromAmount      float64 `json:"from_amount"`
	EstimatedAmount float64 `json:"estimated_amount"`
	ToAmount        float64 `json:"to_amount"`

	ExchangeRate       float64 `json:"exchange_rate"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	ExchangeFeePercent float64 `json:"exchange_fee_percent"`
	PlatformFee        float64 `json:"platform_fee"`
	ExchangeFee        float64 `json:"exchange_fee"`

	Status SwapStatus `json:"status"`

	DexName string `json:"dex_name,omitempty"`
	DexTxID string `json:"dex_tx_id,omitempty"`
	Error   string `json:"error,omitempty"`

	SourceAddress      string `json:"source_address"`
	DestinationAddress string `json:"destination_address"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TotalFeePercent is the combined platform and exchange fee percentage
func (s *Swap) TotalFeePercent() float64 {
	return s.PlatformFeePercent + s.ExchangeFeePercent
}

// TotalFee is the combined fee amount in the target currency
func (s *Swap) TotalFee() float64 {
	return s.PlatformFee + s.ExchangeFee
}

// Transition moves the swap to next, rejecting backwards or post-terminal moves
func (s *Swap) Transition(next SwapStatus, at time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = at
	if next.IsTerminal() {
		completedAt := at
		s.CompletedAt = &completedAt
	}
	return nil
}

// Token is a currency the bot accepts for swaps
type Token struct {
	Symbol  string `json:"symbol" mapstructure:"symbol"`
	Name    string `json:"name" mapstructure:"name"`
	Network string `json:"network" mapstructure:"network"`
}

// Dex is a decentralised exchange swaps may be routed to
type Dex struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}
