// Package main implements the ddnsd server and command-line client.
package main

import (
	"fmt"
	"os"

	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "ddnsd",
	Short: "Dynamic DNS service with capability tokens",
	Long: `ddnsd keeps the A and AAAA records of registered hosts in sync with the
addresses their clients report. Callers authenticate with API keys whose
tokens grant view or update rights per host.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
