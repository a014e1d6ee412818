// Package main provides the entry point for the roster CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ersonp/roster-core/internal/infrastructure/logger"
)

var (
	version = "0.1.0-dev"

	globalLogJSON  bool
	globalLogLevel string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	logger.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "roster",
		Short:         "Normalize roster spreadsheets into entities, groups and memberships",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&globalLogJSON, "log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(),
		newImportCmd(),
		newGroupsCmd(),
	)

	return rootCmd
}
