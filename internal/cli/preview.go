package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/spf13/cobra"
)

func newPreviewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file> <entity>",
		Short: "Show how a file would be parsed and mapped",
		Long: `Parse a file, show its first rows and the column mapping suggested for
an entity type. Nothing is written.

Examples:
  importctl preview contrats.csv contracts
  importctl preview staff.xlsx employees`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := upload(ctx, a.Service, args[0])
			if err != nil {
				renderError(cmd.ErrOrStderr(), err)
				return err
			}
			defer a.Service.Abort(context.WithoutCancel(ctx), session.Handle)

			preview, err := a.Service.Preview(ctx, session.Handle, args[1])
			if err != nil {
				renderError(cmd.ErrOrStderr(), err)
				return err
			}

			renderStats(opts.out, session.File.OriginalName, preview.Stats)
			renderPreviewRows(opts.out, preview.Stats.Columns, preview.Preview, preview.Stats.ColumnTypes)
			renderMapping(opts.out, preview.Fields, preview.SuggestedMapping, preview.MappingConfidence)
			return nil
		},
	}
}

// upload stages a local file as a new session.
func upload(ctx context.Context, svc *core.Service, path string) (core.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Session{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return svc.Upload(ctx, filepath.Base(path), f)
}
