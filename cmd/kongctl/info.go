package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTokensCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "tokens",
		Aliases: []string{"supported-tokens", "ls"},
		Short:   "List supported cryptocurrencies",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			tokens, err := c.api.Tokens(cmd.Context(), c.user())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(tokens)
			}

			fmt.Fprintf(c.out, "\n%s\n\n", color.GreenString("Supported tokens (%d)", len(tokens)))
			for _, t := range tokens {
				fmt.Fprintf(c.out, "  %-6s %-14s %s\n", color.CyanString(t.Symbol), t.Name, t.Network)
			}
			fmt.Fprintln(c.out)
			return nil
		},
	}
}

func newSupportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "support",
		Short: "Show support contact and fee information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			info, err := c.api.Support(cmd.Context(), c.user())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(info)
			}

			fmt.Fprintf(c.out, "\n  Contact:        %s\n", color.CyanString(info.Contact))
			fmt.Fprintf(c.out, "  Minimum swap:   $%.2f\n", info.MinimumSwapUSD)
			fmt.Fprintf(c.out, "  Platform fee:   %.2f%%\n", info.PlatformFeePercent)
			fmt.Fprintf(c.out, "  Exchange fee:   %s\n\n", info.ExchangeFee)
			return nil
		},
	}
}

// newCommandsCmd lists the chat commands; cobra already owns "help"
func newCommandsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the bot's chat commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireUser(); err != nil {
				return err
			}
			help, err := c.api.Help(cmd.Context(), c.user())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(help)
			}

			fmt.Fprintf(c.out, "\n%s\n", color.GreenString("User commands"))
			for _, h := range help.UserCommands {
				fmt.Fprintf(c.out, "  %-50s %s\n", color.CyanString(h.Usage), h.Description)
			}
			fmt.Fprintf(c.out, "\n%s\n", color.GreenString("Owner commands"))
			for _, h := range help.OwnerCommands {
				fmt.Fprintf(c.out, "  %-50s %s\n", color.CyanString(h.Usage), h.Description)
			}
			fmt.Fprintln(c.out)
			return nil
		},
	}
}
