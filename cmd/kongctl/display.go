package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ksred/coinkong/internal/commands"
	"github.com/ksred/coinkong/internal/journal"
	"github.com/ksred/coinkong/internal/notify"
)

func displaySwap(w io.Writer, view commands.SwapView) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "  Swap ID:         %s\n", color.CyanString(view.ID))
	fmt.Fprintf(w, "  Status:          %s\n", coloredStatus(view))
	fmt.Fprintf(w, "  User:            %s\n", view.UserID)
	fmt.Fprintf(w, "  Amount:          %s\n", view.USDAmount)
	fmt.Fprintf(w, "  From:            %s\n", view.From)
	fmt.Fprintf(w, "  To:              %s\n", view.To)
	fmt.Fprintf(w, "  Exchange Rate:   %s\n", view.ExchangeRate)
	fmt.Fprintf(w, "  Platform Fee:    %s\n", view.PlatformFee)
	fmt.Fprintf(w, "  Exchange Fee:    %s\n", view.ExchangeFee)
	fmt.Fprintf(w, "  Total Fees:      %s\n", view.TotalFees)
	if view.Exchange != "" {
		fmt.Fprintf(w, "  Exchange:        %s\n", view.Exchange)
	}
	if view.TransactionID != "" {
		fmt.Fprintf(w, "  Transaction ID:  %s\n", color.HiBlackString(view.TransactionID))
	}
	if view.Error != "" {
		fmt.Fprintf(w, "  Error:           %s\n", color.RedString(view.Error))
	}
	fmt.Fprintf(w, "  Initiated:       %s\n", view.InitiatedAt)
	if view.CompletedAt != "" {
		fmt.Fprintf(w, "  Finished:        %s\n", view.CompletedAt)
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func displayHistory(w io.Writer, history []journal.Event) {
	if len(history) == 0 {
		fmt.Fprintln(w, "\n  No status history recorded")
		return
	}
	fmt.Fprintf(w, "\n  %s\n", color.GreenString("History"))
	for _, e := range history {
		line := fmt.Sprintf("  %s  %s -> %s", e.OccurredAt.UTC().Format("2006-01-02 15:04:05"), e.FromStatus, e.ToStatus)
		if e.Detail != "" {
			line += "  " + color.HiBlackString(e.Detail)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func displayOrders(w io.Writer, userID string, orders []commands.SwapView) {
	if len(orders) == 0 {
		fmt.Fprintf(w, "\n  No swaps found for user %s\n\n", userID)
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", color.GreenString("Swaps for %s (%d)", userID, len(orders)))
	fmt.Fprintf(w, "  %-24s %-16s %-22s %-22s %s\n", "ID", "Status", "From", "To", "Initiated")
	for _, o := range orders {
		fmt.Fprintf(w, "  %-24s %-16s %-22s %-22s %s\n", o.ID, o.Status, o.From, o.To, o.InitiatedAt)
	}
	fmt.Fprintln(w)
}

func displayNotification(w io.Writer, n notify.Notification) {
	title := color.YellowString(n.Title)
	switch n.Kind {
	case notify.KindCompleted:
		title = color.GreenString(n.Title)
	case notify.KindFailed:
		title = color.RedString(n.Title)
	}
	fmt.Fprintf(w, "%s  %s\n", title, n.Description)
	for _, f := range n.Fields {
		fmt.Fprintf(w, "  %-16s %s\n", f.Name+":", f.Value)
	}
	fmt.Fprintln(w)
}
