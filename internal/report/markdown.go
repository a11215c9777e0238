package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs reports in GitHub Flavored Markdown, for pasting
// into issues and runbooks.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *StatusReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeUnits(md, report)
	w.writeUnknown(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *StatusReport) {
	md.H1("offerwatch Schema Status")
	md.PlainText("")

	current := "-"
	if report.Current != "" {
		current = code(report.Current)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Database", code(report.Database)},
			{"State", string(report.State)},
			{"Current", current},
			{"Applied", strconv.Itoa(report.Applied)},
			{"Pending", strconv.Itoa(report.Pending)},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the state of the database.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *StatusReport) {
	switch report.State {
	case StateLegacy:
		md.Warning("The database predates migration tracking. The next start records the baseline and applies the remaining units.")
	case StateEmpty:
		md.Note("The database is empty. The next start creates the full schema.")
	case StatePending:
		md.Importantf("%d unit(s) will be applied on the next start.", report.Pending)
	case StateUpToDate:
		md.Tip("The schema is up to date.")
	}
	md.PlainText("")
}

// writeUnits writes one table row per registered unit.
func (w *MarkdownWriter) writeUnits(md *markdown.Markdown, report *StatusReport) {
	md.H2("Units")
	md.PlainText("")

	rows := make([][]string, len(report.Units))
	for i, u := range report.Units {
		status := "⏳ pending"
		if u.Applied {
			status = "✅ applied"
		}
		if u.Baseline {
			status += " (baseline)"
		}
		rows[i] = []string{code(u.Name), u.Description, status, dash(u.AppliedAt), yesNo(u.Reversible)}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Unit", "Description", "Status", "Applied At", "Down"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeUnknown lists applied units missing from this build.
func (w *MarkdownWriter) writeUnknown(md *markdown.Markdown, report *StatusReport) {
	if len(report.Unknown) == 0 {
		return
	}

	md.H2("Unknown Units")
	md.PlainText("")
	md.Caution("These units are recorded as applied but are not part of this build. The database may have been migrated by a newer release.")
	md.PlainText("")
	md.BulletList(report.Unknown...)
	md.PlainText("")
}

func code(s string) string {
	return "`" + s + "`"
}
