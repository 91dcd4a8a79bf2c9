// Package cmd implements the ntripanalyser commands using the cobra
// framework.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goblimey/go-ntrip-analyser/caster"
	"github.com/goblimey/go-ntrip-analyser/config"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ntripanalyser",
		Short: "Analyse an NTRIP stream of RTCM3 messages",
		Long: `ntripanalyser connects to an NTRIP caster, receives the RTCM3 stream
from a mountpoint and shows what the base station is sending: the
message types and rates, CRC failures, malformed messages and the state
of the connection, which is retried with exponential backoff.

It can also list a caster's source table and decode captured RTCM3 data.`,
		Version:       caster.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "",
		"config file path (YAML or JSON)")

	root.AddCommand(newStreamCmd())
	root.AddCommand(newSourceTableCmd())
	root.AddCommand(newDecodeCmd())

	return root
}

// Execute runs the command given on the command line.  SIGINT and SIGTERM
// cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig loads the file named by the --config flag, or the defaults
// plus the environment if there is none.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
