package commands

import (
	"strings"
	"time"

	"github.com/ksred/coinkong/internal/format"
	"github.com/ksred/coinkong/internal/journal"
	"github.com/ksred/coinkong/internal/types"
)

// SwapView is a swap formatted for display
type SwapView struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
	USDAmount     string `json:"usd_amount"`
	From          string `json:"from"`
	To            string `json:"to"`
	ExchangeRate  string `json:"exchange_rate"`
	PlatformFee   string `json:"platform_fee"`
	ExchangeFee   string `json:"exchange_fee"`
	TotalFees     string `json:"total_fees"`
	Exchange      string `json:"exchange,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
	InitiatedAt   string `json:"initiated_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

var statusEmoji = map[types.SwapStatus]string{
	types.StatusPending:    "⏳",
	types.StatusInitiating: "🔄",
	types.StatusProcessing: "⚙️",
	types.StatusCompleted:  "✅",
	types.StatusFailed:     "❌",
}

// NewSwapView renders s. Amounts are rounded here and nowhere else.
func NewSwapView(s types.Swap) SwapView {
	view := SwapView{
		ID:            s.ID,
		UserID:        s.UserID,
		Status:        string(s.Status),
		StatusLabel:   statusLabel(s.Status),
		USDAmount:     format.USD(s.USDAmount),
		From:          format.Crypto(s.FromAmount, s.FromCurrency),
		To:            format.Crypto(s.ToAmount, s.ToCurrency),
		ExchangeRate:  format.Rate(s.ExchangeRate, s.FromCurrency, s.ToCurrency),
		PlatformFee:   format.FeeBreakdown(s.PlatformFeePercent, s.PlatformFee, s.ToCurrency),
		ExchangeFee:   format.FeeBreakdown(s.ExchangeFeePercent, s.ExchangeFee, s.ToCurrency),
		TotalFees:     format.FeeBreakdown(s.TotalFeePercent(), s.TotalFee(), s.ToCurrency),
		Exchange:      s.DexName,
		TransactionID: s.DexTxID,
		Error:         s.Error,
		InitiatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.CompletedAt != nil {
		view.CompletedAt = s.CompletedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func statusLabel(status types.SwapStatus) string {
	name := string(status)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	emoji, ok := statusEmoji[status]
	if !ok {
		emoji = "❓"
	}
	return emoji + " " + name
}

// OrderDetails is the owner's view of a single swap
type OrderDetails struct {
	View    SwapView        `json:"view"`
	Swap    types.Swap      `json:"swap"`
	History []journal.Event `json:"history"`
}

// SupportInfo is the content of the support command
type SupportInfo struct {
	Contact            string  `json:"contact"`
	MinimumSwapUSD     float64 `json:"minimum_swap_usd"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	ExchangeFee        string  `json:"exchange_fee"`
}

// CommandHelp describes one command
type CommandHelp struct {
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

// HelpInfo is the content of the help command
type HelpInfo struct {
	UserCommands  []CommandHelp `json:"user_commands"`
	OwnerCommands []CommandHelp `json:"owner_commands"`
}

var userCommands = []CommandHelp{
	{Usage: "/swap [usd_amount] [from_currency] [to_currency]", Description: "Perform a crypto-to-crypto swap"},
	{Usage: "/status [swap_id]", Description: "Check the status of a swap"},
	{Usage: "/supported_tokens", Description: "List all supported cryptocurrencies"},
	{Usage: "/support", Description: "Get support information"},
	{Usage: "/help", Description: "Display this help message"},
}

var ownerCommands = []CommandHelp{
	{Usage: "/set_fee [percentage]", Description: "Adjust the platform fee percentage"},
	{Usage: "/pause", Description: "Temporarily disable swaps for maintenance"},
	{Usage: "/resume", Description: "Re-enable swaps after maintenance"},
	{Usage: "/whitelist [userid]", Description: "Allow a user to use the bot during maintenance"},
	{Usage: "/blacklist [userid]", Description: "Prevent a user from using the bot"},
	{Usage: "/show_order [swap_id]", Description: "Show detailed information about a swap"},
	{Usage: "/user_orders [userid]", Description: "List all swaps initiated by a user"},
}
