package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// maxCellWidth truncates long cells in preview tables.
const maxCellWidth = 32

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	return table
}

func renderStats(w io.Writer, name string, stats core.TableStats) {
	color.New(color.FgCyan).Fprintf(w, "\n=== %s ===\n", name)
	fmt.Fprintf(w, "Rows: %d  Columns: %d\n", stats.TotalRows, stats.TotalColumns)

	if !stats.HasErrors {
		return
	}
	color.New(color.FgYellow).Fprintf(w, "\nParse warnings (%d)\n", len(stats.Errors))
	table := newTable(w)
	table.SetHeader([]string{"Line", "Warning"})
	for _, e := range stats.Errors {
		table.Append([]string{fmt.Sprintf("%d", e.Line), e.Message})
	}
	table.Render()
}

func renderPreviewRows(w io.Writer, columns []string, rows []core.PreviewRow, types map[string]core.ColumnType) {
	color.New(color.FgYellow).Fprintf(w, "\nPreview (%d rows)\n", len(rows))

	header := make([]string, 0, len(columns)+1)
	header = append(header, "Line")
	for _, c := range columns {
		header = append(header, fmt.Sprintf("%s (%s)", c, types[c]))
	}

	table := newTable(w)
	table.SetHeader(header)
	for _, r := range rows {
		line := make([]string, 0, len(columns)+1)
		line = append(line, fmt.Sprintf("%d", r.Line))
		for _, c := range columns {
			line = append(line, cell(r.Cells[c]))
		}
		table.Append(line)
	}
	table.Render()
}

func renderMapping(w io.Writer, fields []core.FieldDef, mapping core.FieldMapping, confidence map[string]float64) {
	color.New(color.FgYellow).Fprintf(w, "\nColumn mapping\n")

	table := newTable(w)
	table.SetHeader([]string{"Field", "Label", "Required", "Column", "Confidence"})
	for _, f := range fields {
		required := ""
		if f.Required {
			required = "yes"
		}
		column, score := "-", ""
		if c, ok := mapping.Column(f.Key); ok {
			column = c
			if conf, ok := confidence[f.Key]; ok {
				score = fmt.Sprintf("%.0f%%", conf*100)
			}
		}
		table.Append([]string{f.Key, f.Label, required, column, score})
	}
	table.Render()
}

func renderResult(w io.Writer, result *core.ImportResult, dryRun bool) {
	title := "Import complete"
	if dryRun {
		title = "Dry run complete (nothing was written)"
	}
	color.New(color.FgCyan).Fprintf(w, "\n=== %s ===\n", title)
	fmt.Fprintf(w, "Entity:   %s\n", result.EntityType)
	fmt.Fprintf(w, "Total:    %d\n", result.Total)
	color.New(color.FgGreen).Fprintf(w, "Imported: %d\n", result.SuccessCount)
	if result.FailedCount > 0 {
		color.New(color.FgRed).Fprintf(w, "Failed:   %d\n", result.FailedCount)
	} else {
		fmt.Fprintf(w, "Failed:   0\n")
	}
	if result.WarningCount > 0 {
		color.New(color.FgYellow).Fprintf(w, "Warnings: %d\n", result.WarningCount)
	}
	fmt.Fprintf(w, "Duration: %dms\n", result.DurationMs)

	if result.FailedCount > 0 {
		color.New(color.FgRed).Fprintf(w, "\nFailed rows\n")
		table := newTable(w)
		table.SetHeader([]string{"Line", "Errors"})
		for _, d := range result.Details {
			if d.Status != core.RowError {
				continue
			}
			table.Append([]string{fmt.Sprintf("%d", d.Line), strings.Join(d.Errors, "; ")})
		}
		table.Render()
	}

	if result.WarningCount > 0 {
		color.New(color.FgYellow).Fprintf(w, "\nWarnings\n")
		table := newTable(w)
		table.SetHeader([]string{"Line", "Warnings"})
		for _, d := range result.Details {
			if len(d.Warnings) == 0 {
				continue
			}
			table.Append([]string{fmt.Sprintf("%d", d.Line), strings.Join(d.Warnings, "; ")})
		}
		table.Render()
	}
}

// renderError prints a fatal error with its user-facing guidance when known.
func renderError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		color.New(color.FgRed).Fprintln(w, core.FormatUserError(err))
	}
}

func cell(v *string) string {
	if v == nil {
		return ""
	}
	s := *v
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}
