package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *options) *cobra.Command {
	var (
		overrides []string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import <file> <entity>",
		Short: "Import the rows of a file as entities",
		Long: `Import every row of a file. The suggested column mapping is used unless
overridden with --map field=Column (repeatable). --map field= leaves the
field unmapped.

With --dry-run rows are validated and written to an in-memory store, so the
summary shows exactly what a real import would do without touching the
database.

Rows that fail are listed in the summary; the command only exits non-zero
when the import as a whole could not run.

Examples:
  importctl import contrats.csv contracts
  importctl import staff.xlsx employees --map email="E-mail pro" --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, entityType := args[0], args[1]

			overrideMapping, err := parseMapFlags(overrides)
			if err != nil {
				return err
			}

			a, cleanup, err := openApp(ctx, dryRun)
			if err != nil {
				return err
			}
			defer cleanup()
			svc := a.Service

			session, err := upload(ctx, svc, path)
			if err != nil {
				renderError(cmd.ErrOrStderr(), err)
				return err
			}
			handle := session.Handle
			defer svc.Abort(context.WithoutCancel(ctx), handle)

			preview, err := svc.Preview(ctx, handle, entityType)
			if err != nil {
				renderError(cmd.ErrOrStderr(), err)
				return err
			}

			mapping := preview.SuggestedMapping.Clone()
			for field, column := range overrideMapping {
				mapping[field] = column
			}
			if opts.verbose {
				renderMapping(opts.out, preview.Fields, mapping, preview.MappingConfidence)
			}

			if _, err := svc.ConfirmPreview(ctx, handle); err != nil {
				return err
			}

			result, err := svc.Execute(ctx, handle, entityType, mapping)
			if err != nil {
				var mappingErr *core.MappingError
				if errors.As(err, &mappingErr) {
					renderMapping(cmd.ErrOrStderr(), preview.Fields, mapping, preview.MappingConfidence)
					color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "\n%s\n", mappingErr.Error())
					fmt.Fprintf(cmd.ErrOrStderr(), "Columns in file: %s\n", strings.Join(preview.Stats.Columns, ", "))
					return err
				}
				renderError(cmd.ErrOrStderr(), err)
				return err
			}

			renderResult(opts.out, result, dryRun)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&overrides, "map", "m", nil, "map a field to a column (field=Column), repeatable")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and import into memory only")
	return cmd
}

// parseMapFlags turns field=Column pairs into a mapping. An empty column is
// kept so it can clear a suggested assignment.
func parseMapFlags(values []string) (core.FieldMapping, error) {
	mapping := make(core.FieldMapping, len(values))
	for _, v := range values {
		field, column, ok := strings.Cut(v, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --map %q: want field=Column", v)
		}
		mapping[field] = strings.TrimSpace(column)
	}
	return mapping, nil
}
