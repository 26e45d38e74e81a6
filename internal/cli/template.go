package cli

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTemplateCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "template <entity>",
		Short: "Write an empty import template for an entity type",
		Long: `Write a file whose only row holds the entity's column labels.

Without -o the file is written to the current directory under its default
name (<entity>_template.<format>). Use -o - to write to stdout.

Examples:
  importctl template contracts
  importctl template employees --format xlsx -o staff.xlsx
  importctl template assets -o - > assets.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := core.ParseTemplateFormat(format)
			if err != nil {
				return err
			}
			schema, err := core.Lookup(args[0])
			if err != nil {
				return err
			}
			tmpl, err := core.BuildTemplate(schema, tf)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := opts.out.Write(tmpl.Data)
				return err
			}
			if output == "" {
				output = tmpl.Filename
			}
			if err := os.WriteFile(output, tmpl.Data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			color.New(color.FgGreen).Fprintf(opts.out, "Wrote %s template to %s\n", schema.EntityType, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "template format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	return cmd
}
