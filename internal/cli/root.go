// Package cli provides the importctl command-line interface: it lists entity
// schemas, writes templates and runs the import pipeline against local files.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/subtrack/internal/app"
	"github.com/JonMunkholm/subtrack/internal/config"
	"github.com/JonMunkholm/subtrack/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// options holds the global flags shared by every subcommand.
type options struct {
	verbose bool
	out     io.Writer
}

// NewRootCmd builds the importctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "importctl",
		Short: "Bulk import contracts, assets and employees from spreadsheets",
		Long: `importctl runs the subtrack import pipeline against local CSV, XLSX and
XLS files: preview how columns map to an entity schema, then import the rows.

Configuration is read from the environment (and .env), the same variables the
server uses. Staged files always live in a temporary directory.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.out = cmd.OutOrStdout()

			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.NewWithWriters(cmd.ErrOrStderr(), "text", nil, level))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newSchemasCmd(opts))
	rootCmd.AddCommand(newTemplateCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))

	return rootCmd
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// openApp assembles the service for one command run. Staging is forced onto a
// private temporary directory; dryRun (and commands that never write) swap
// the configured store for an in-memory one.
func openApp(ctx context.Context, dryRun bool) (*app.App, func(), error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, nil, err
	}

	dir, err := os.MkdirTemp("", "importctl-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging dir: %w", err)
	}
	cfg.Staging.Driver = "disk"
	cfg.Staging.Dir = dir
	if dryRun {
		cfg.Store.Driver = "memory"
	}

	if err := cfg.Validate(); err != nil {
		os.RemoveAll(dir)
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}

	cleanup := func() {
		a.Close()
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("remove staging dir", "dir", dir, "error", err)
		}
	}
	return a, cleanup, nil
}
