package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// MarkdownWriter outputs crawl summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSummary outputs the crawl summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary, failed []model.FailedTarget) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeQueue(md, summary)
	w.writeRunCounters(md, summary)
	w.writeFailedTargets(md, failed)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", summary.Elapsed.String()},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the run outcome.
func (w *MarkdownWriter) getStatusText(summary *model.Summary) string {
	if summary.Interrupted {
		return "⚠️ Interrupted (resumable)"
	}
	if summary.Progress.Done() {
		return "✅ Complete"
	}
	return "❌ Incomplete"
}

// writeQueue writes the queue state section.
func (w *MarkdownWriter) writeQueue(md *markdown.Markdown, summary *model.Summary) {
	p := summary.Progress

	md.H2("Queue")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"🟢 Completed", strconv.Itoa(p.Completed)},
			{"🔴 Failed", strconv.Itoa(p.Failed)},
			{"🕑 Pending", strconv.Itoa(p.Pending)},
			{"🔄 In progress", strconv.Itoa(p.InProgress)},
			{"**Total**", "**" + strconv.Itoa(p.Total) + "**"},
		},
	})
	md.PlainText("")

	if p.Total > 0 {
		w.writePieChart(md, p)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the queue distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, p model.Progress) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Target Status Distribution"),
		piechart.WithShowData(true),
	)

	if p.Completed > 0 {
		chart.LabelAndIntValue("Completed", uint64(p.Completed))
	}
	if p.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(p.Failed))
	}
	if p.Pending > 0 {
		chart.LabelAndIntValue("Pending", uint64(p.Pending))
	}
	if p.InProgress > 0 {
		chart.LabelAndIntValue("In progress", uint64(p.InProgress))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert reflecting the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch {
	case summary.Interrupted:
		md.Importantf(
			"The crawl was interrupted. Re-run the crawl command to resume; %d target(s) remain pending.",
			summary.Progress.Pending,
		)
	case summary.Progress.Failed > 0:
		md.Warningf(
			"%d target(s) failed permanently. Inspect them below and use the reset command to retry.",
			summary.Progress.Failed,
		)
	default:
		md.Tip("All targets processed successfully.")
	}
	md.PlainText("")
}

// writeRunCounters writes the per-run counters section.
func (w *MarkdownWriter) writeRunCounters(md *markdown.Markdown, summary *model.Summary) {
	md.H2("This Run")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Targets processed", strconv.Itoa(summary.TargetsProcessed)},
			{"Entries written", strconv.Itoa(summary.EntriesUpserted)},
			{"Targets discovered", strconv.Itoa(summary.Discovered)},
			{"Targets recovered", strconv.Itoa(summary.Recovered)},
			{"Entries stored (total)", strconv.Itoa(summary.EntriesStored)},
		},
	})
	md.PlainText("")
}

// writeFailedTargets writes the failed targets table.
func (w *MarkdownWriter) writeFailedTargets(md *markdown.Markdown, failed []model.FailedTarget) {
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Targets")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, ft := range failed {
		rows[i] = []string{
			"`" + truncateString(ft.URL, 80) + "`",
			string(ft.Kind),
			strconv.Itoa(ft.RetryCount),
			truncateString(ft.ErrorMessage, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Retries", "Last Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
