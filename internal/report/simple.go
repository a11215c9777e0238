package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// SimpleWriter outputs a human-readable summary followed by a table of units.
type SimpleWriter struct {
	baseWriter

	// pendingOnly hides applied units from the table.
	pendingOnly bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithPendingOnly configures the writer to list only pending units.
func WithPendingOnly(pendingOnly bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.pendingOnly = pendingOnly
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *StatusReport) (int, error) {
	out := &countingWriter{w: w.output}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Database: %s\n", report.Database))
	sb.WriteString(fmt.Sprintf("State:    %s (%d of %d applied)\n", report.State, report.Applied, len(report.Units)))
	if report.Current != "" {
		sb.WriteString(fmt.Sprintf("Current:  %s\n", report.Current))
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(out, sb.String()); err != nil {
		return out.n, err
	}

	if err := w.writeTable(out, report); err != nil {
		return out.n, fmt.Errorf("failed to render status table: %w", err)
	}

	if len(report.Unknown) > 0 {
		msg := fmt.Sprintf("\nApplied but unknown to this build: %s\n", strings.Join(report.Unknown, ", "))
		if _, err := io.WriteString(out, msg); err != nil {
			return out.n, err
		}
	}

	return out.n, nil
}

func (w *SimpleWriter) writeTable(out io.Writer, report *StatusReport) error {
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.Off,
						ShowFooterLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.Off,
						ShowFooter:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.Off,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)

	table.Header([]string{"Unit", "Description", "Status", "Applied At", "Down"})

	rows := make([][]string, 0, len(report.Units))
	for _, u := range report.Units {
		if w.pendingOnly && u.Applied {
			continue
		}
		rows = append(rows, []string{u.Name, u.Description, unitState(u), dash(u.AppliedAt), yesNo(u.Reversible)})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}

	return table.Render()
}

func unitState(u UnitReport) string {
	switch {
	case u.Applied && u.Baseline:
		return "applied (baseline)"
	case u.Applied:
		return "applied"
	default:
		return "pending"
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
