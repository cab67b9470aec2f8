package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ksred/coinkong/pkg/client"
)

// cli holds what every subcommand needs once flags are resolved
type cli struct {
	v   *viper.Viper
	out io.Writer
	api *client.Client
}

func (c *cli) user() string {
	return c.v.GetString("user")
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "kongctl",
		Short: "Drive the CoinKong swap bot from the command line",
		Long: `kongctl talks to a CoinKong bot server the way a chat gateway does. Every
command runs as the user given by --user.

Flags can also be set through KONGCTL_* environment variables.

Examples:
  kongctl swap 100 BTC to ETH --user alice
  kongctl status KONG-1700000000-1 --user alice --watch
  kongctl set-fee 1.5 --user owner
  kongctl user-orders alice --user owner`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			if cmd.Name() == "help" {
				return nil
			}
			c.api = client.New(c.v.GetString("server"))
			return c.api.Authenticate(cmd.Context(), c.v.GetString("api-key"), c.v.GetString("api-secret"))
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "Bot server base URL")
	flags.String("api-key", "", "Gateway API key")
	flags.String("api-secret", "", "Gateway API secret")
	flags.StringP("user", "u", "", "Chat user the command runs as")
	flags.BoolP("json", "j", false, "Output in JSON format")

	c.v.SetEnvPrefix("KONGCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(flags)

	root.AddCommand(
		newTokenCmd(c),
		newSwapCmd(c),
		newStatusCmd(c),
		newWatchCmd(c),
		newTokensCmd(c),
		newSupportCmd(c),
		newCommandsCmd(c),
		newSetFeeCmd(c),
		newPauseCmd(c),
		newResumeCmd(c),
		newWhitelistCmd(c),
		newBlacklistCmd(c),
		newShowOrderCmd(c),
		newUserOrdersCmd(c),
	)

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})

	return root
}

// requireUser fails early when a command needs --user
func (c *cli) requireUser() error {
	if c.user() == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func (c *cli) printSuccess(message string) {
	fmt.Fprintf(c.out, "\n%s\n\n", color.GreenString(message))
}
