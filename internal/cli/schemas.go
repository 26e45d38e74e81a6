package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSchemasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [entity]",
		Short: "List entity schemas and their fields",
		Long: `List every importable entity type, or the fields of one of them.

Examples:
  importctl schemas
  importctl schemas contracts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				schema, err := core.Lookup(args[0])
				if err != nil {
					return err
				}
				renderSchema(opts.out, schema)
				return nil
			}

			schemas := core.All()
			table := newTable(opts.out)
			table.SetHeader([]string{"Entity", "Label", "Fields", "Required"})
			for _, s := range schemas {
				table.Append([]string{
					s.EntityType,
					s.Label,
					fmt.Sprintf("%d", len(s.Fields)),
					strings.Join(s.RequiredKeys(), ", "),
				})
			}
			table.Render()
			return nil
		},
	}
}

func renderSchema(w io.Writer, schema core.EntitySchema) {
	color.New(color.FgYellow).Fprintf(w, "\n%s (%s)\n", schema.Label, schema.EntityType)

	table := newTable(w)
	table.SetHeader([]string{"Key", "Label", "Type", "Required", "Aliases"})
	for _, f := range schema.Fields {
		required := ""
		if f.Required {
			required = "yes"
		}
		table.Append([]string{
			f.Key,
			f.Label,
			string(f.Coerce),
			required,
			strings.Join(f.Aliases, ", "),
		})
	}
	table.Render()
}
