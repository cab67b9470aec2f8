package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksred/coinkong/internal/commands"
)

func newSetFeeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-fee <percentage>",
		Short: "Set the platform fee percentage (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			pct, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
			if err != nil {
				return fmt.Errorf("invalid percentage %q", args[0])
			}
			settings, err := c.api.SetFee(cmd.Context(), c.user(), pct)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(settings)
			}
			c.printSuccess(fmt.Sprintf("Platform fee set to %.2f%%", settings.PlatformFeePercent))
			return nil
		},
	}
}

func newPauseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Put the bot into maintenance mode (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			settings, err := c.api.Pause(cmd.Context(), c.user())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(settings)
			}
			c.printSuccess("Bot paused. Only the owner and whitelisted users can use it.")
			return nil
		},
	}
}

func newResumeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Leave maintenance mode (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			settings, err := c.api.Resume(cmd.Context(), c.user())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(settings)
			}
			c.printSuccess("Bot resumed")
			return nil
		},
	}
}

func newWhitelistCmd(c *cli) *cobra.Command {
	return newListCmd(c, "whitelist", "Allow a user during maintenance (owner only)", func(cmd *cobra.Command, target string) (*commands.ListChange, error) {
		return c.api.Whitelist(cmd.Context(), c.user(), target)
	})
}

func newBlacklistCmd(c *cli) *cobra.Command {
	return newListCmd(c, "blacklist", "Block a user from the bot (owner only)", func(cmd *cobra.Command, target string) (*commands.ListChange, error) {
		return c.api.Blacklist(cmd.Context(), c.user(), target)
	})
}

func newListCmd(c *cli, name, short string, apply func(cmd *cobra.Command, target string) (*commands.ListChange, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			result, err := apply(cmd, args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(result)
			}
			if result.Added {
				c.printSuccess(fmt.Sprintf("User %s added to the %s", result.UserID, name))
			} else {
				c.printSuccess(fmt.Sprintf("User %s was already on the %s", result.UserID, name))
			}
			return nil
		},
	}
}

func newShowOrderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show-order <swap-id>",
		Short: "Show a swap with its status history (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			details, err := c.api.ShowOrder(cmd.Context(), c.user(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(details)
			}
			displaySwap(c.out, details.View)
			displayHistory(c.out, details.History)
			return nil
		},
	}
}

func newUserOrdersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "user-orders <user-id>",
		Short: "List every swap a user started (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			orders, err := c.api.UserOrders(cmd.Context(), c.user(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(orders)
			}
			displayOrders(c.out, args[0], orders)
			return nil
		},
	}
}
