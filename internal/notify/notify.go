// Package notify delivers swap status updates to the requesting user via
// the chat gateway.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/format"
	"github.com/ksred/coinkong/internal/types"
)

// ErrNoSubscriber means nobody was connected to relay the message
var ErrNoSubscriber = errors.New("no subscriber for notification")

// Kind identifies which lifecycle event a notification reports
type Kind string

const (
	KindInitiated  Kind = "initiated"
	KindProcessing Kind = "processing"
	KindCompleted  Kind = "completed"
	KindFailed     Kind = "failed"
)

// Field is one labelled line of a rendered notification
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Notification is the payload handed to the gateway for a direct message
type Notification struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	UserID      string     `json:"user_id"`
	SwapID      string     `json:"swap_id"`
	Status      string     `json:"status"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Fields      []Field    `json:"fields"`
	Swap        types.Swap `json:"swap"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Notifier sends a notification to its user
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// New builds the notification of the given kind for a swap snapshot
func New(kind Kind, swap types.Swap, at time.Time) Notification {
	n := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    swap.UserID,
		SwapID:    swap.ID,
		Status:    string(swap.Status),
		Swap:      swap,
		Timestamp: at,
	}

	switch kind {
	case KindInitiated:
		n.Title = "Swap Update"
		n.Description = "Your swap is being submitted to an exchange."
		n.Fields = []Field{
			{Name: "Swap ID", Value: swap.ID},
			{Name: "Status", Value: "Initiating"},
		}
	case KindProcessing:
		n.Title = "Swap Update"
		n.Description = "Your swap is now processing."
		n.Fields = []Field{
			{Name: "Swap ID", Value: swap.ID},
			{Name: "Status", Value: "Processing"},
			{Name: "Exchange", Value: swap.DexName},
			{Name: "Transaction ID", Value: swap.DexTxID},
		}
	case KindCompleted:
		n.Title = "Swap Completed"
		n.Description = "Your swap has been completed successfully!"
		n.Fields = summaryFields(swap)
	case KindFailed:
		n.Title = "Swap Failed"
		n.Description = "Your swap has failed. Please try again or contact support."
		n.Fields = summaryFields(swap)
		if swap.Error != "" {
			n.Fields = append(n.Fields, Field{Name: "Error", Value: swap.Error})
		}
	}

	return n
}

func summaryFields(swap types.Swap) []Field {
	fields := []Field{
		{Name: "Swap ID", Value: swap.ID},
		{Name: "From", Value: format.Crypto(swap.FromAmount, swap.FromCurrency)},
		{Name: "To", Value: format.Crypto(swap.ToAmount, swap.ToCurrency)},
		{Name: "Exchange Rate", Value: format.Rate(swap.ExchangeRate, swap.FromCurrency, swap.ToCurrency)},
		{Name: "Platform Fee", Value: format.FeeBreakdown(swap.PlatformFeePercent, swap.PlatformFee, swap.ToCurrency)},
		{Name: "Exchange Fee", Value: format.FeeBreakdown(swap.ExchangeFeePercent, swap.ExchangeFee, swap.ToCurrency)},
		{Name: "Total Fees", Value: format.FeeBreakdown(swap.TotalFeePercent(), swap.TotalFee(), swap.ToCurrency)},
		{Name: "Status", Value: string(swap.Status)},
	}
	if swap.DexName != "" {
		fields = append(fields, Field{Name: "Exchange", Value: swap.DexName})
	}
	if swap.DexTxID != "" {
		fields = append(fields, Field{Name: "Transaction ID", Value: swap.DexTxID})
	}
	return fields
}

// LogNotifier writes notifications to the log. It is the fallback when no
// gateway is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("component", "notifier").
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Str("user_id", n.UserID).
		Str("swap_id", n.SwapID).
		Str("status", n.Status).
		Msg(n.Title)
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; the failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("notification %s undelivered: %w", n.ID, errors.Join(errs...))
}
