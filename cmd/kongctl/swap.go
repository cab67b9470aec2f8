package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ksred/coinkong/internal/commands"
	"github.com/ksred/coinkong/internal/notify"
)

func newTokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a gateway token for the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(c.out, c.api.Token())
			return nil
		},
	}
}

func newSwapCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "swap <usd-amount> <from> [to] <to-currency>",
		Short: "Start a swap worth a USD amount",
		Long: `Start a simulated swap. The amount is in USD and is converted to the source
currency at the current rate.

Examples:
  kongctl swap 100 BTC ETH --user alice
  kongctl swap 100 BTC to ETH --user alice`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			usd, from, to, err := parseSwapArgs(args)
			if err != nil {
				return err
			}

			created, err := c.api.CreateSwap(cmd.Context(), c.user(), usd, from, to)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(created)
			}

			c.printSuccess("Swap initiated")
			displaySwap(c.out, created.View)
			fmt.Fprintf(c.out, "Follow it with: kongctl status %s --watch\n\n", created.Swap.ID)
			return nil
		},
	}
}

// parseSwapArgs accepts "100 BTC ETH" and "100 BTC to ETH"
func parseSwapArgs(args []string) (float64, string, string, error) {
	if len(args) == 4 {
		if !strings.EqualFold(args[2], "to") {
			return 0, "", "", fmt.Errorf("expected 'to' between currencies, got %q", args[2])
		}
		args = []string{args[0], args[1], args[3]}
	}
	usd, err := strconv.ParseFloat(strings.TrimPrefix(args[0], "$"), 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid USD amount %q", args[0])
	}
	return usd, strings.ToUpper(args[1]), strings.ToUpper(args[2]), nil
}

func newStatusCmd(c *cli) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <swap-id>",
		Short: "Check the status of a swap",
		Long: `Check the status of a swap you started. With --watch the command waits
for lifecycle notifications until the swap completes or fails.

Examples:
  kongctl status KONG-1700000000-1 --user alice
  kongctl status KONG-1700000000-1 --user alice --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			view, err := c.api.Status(cmd.Context(), c.user(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(view)
			}
			displaySwap(c.out, *view)

			if !watch || isTerminal(view.Status) {
				return nil
			}
			return c.stream(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait for notifications until the swap finishes")
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream swap notifications for --user, or for everyone when it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.stream(cmd.Context(), "")
		},
	}
}

// stream prints notifications until ctx ends. When swapID is set it stops
// once that swap reaches a terminal status.
func (c *cli) stream(ctx context.Context, swapID string) error {
	header := map[string][]string{"Authorization": {"Bearer " + c.api.Token()}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.api.WebsocketURL(c.user()), header)
	if err != nil {
		return fmt.Errorf("failed to open notification stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	fmt.Fprintf(c.out, "Listening for notifications. Press Ctrl+C to stop.\n\n")
	for {
		var n notify.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("notification stream closed: %w", err)
		}
		if swapID != "" && n.SwapID != swapID {
			continue
		}
		if c.jsonOutput() {
			if err := c.printJSON(n); err != nil {
				return err
			}
		} else {
			displayNotification(c.out, n)
		}
		if swapID != "" && isTerminal(n.Status) {
			return nil
		}
	}
}

func isTerminal(status string) bool {
	return status == "completed" || status == "failed"
}

func coloredStatus(view commands.SwapView) string {
	switch view.Status {
	case "completed":
		return color.GreenString(view.StatusLabel)
	case "failed":
		return color.RedString(view.StatusLabel)
	default:
		return color.YellowString(view.StatusLabel)
	}
}
