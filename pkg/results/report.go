package results

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report output formats.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Render writes the entries of c visible at threshold to w in format.
func Render(w io.Writer, c *Collection, threshold Level, format string) error {
	entries := c.Filter(threshold)

	switch format {
	case FormatTable, "":
		renderTable(w, entries)

		return nil
	case FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(c.ID(), entries))

		return err
	case FormatJSON:
		return renderJSON(w, NewReport(c, threshold))
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderTable(w io.Writer, entries []Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"TIME", "LEVEL", "RESULT", "DESCRIPTION", "DATA"})

	for _, e := range entries {
		r := e.Record

		t.AppendRow(table.Row{
			r.Timestamp().UTC().Format(time.TimeOnly),
			r.Level().String(),
			statusText(r.Success()),
			r.Description(),
			dataText(e),
		})
	}

	t.Render()
}

func statusText(success bool) string {
	if success {
		return text.FgGreen.Sprint("PASS")
	}

	return text.FgRed.Sprint("FAIL")
}

func dataText(e Entry) string {
	if !e.ShowData || e.Record.Data() == nil {
		return ""
	}

	return fmt.Sprintf("%v", e.Record.Data())
}

func renderMarkdown(runID string, entries []Entry) string {
	var sb strings.Builder

	sb.Grow(1024)

	fmt.Fprintf(&sb, "# Results: %s\n\n", runID)

	var passed, failed int

	for _, e := range entries {
		if e.Record.Success() {
			passed++
		} else {
			failed++
		}
	}

	sb.WriteString("| Total | Passed | Failed |\n")
	sb.WriteString("|---|---|---|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d |\n\n", len(entries), passed, failed)

	if len(entries) == 0 {
		return sb.String()
	}

	sb.WriteString("| Level | Result | Description |\n")
	sb.WriteString("|---|---|---|\n")

	for _, e := range entries {
		result := "pass"
		if !e.Record.Success() {
			result = "fail"
		}

		fmt.Fprintf(&sb, "| %s | %s | %s |\n",
			e.Record.Level(), result, escapeCell(e.Record.Description()))

		if data := dataText(e); data != "" {
			fmt.Fprintf(&sb, "| | | `%s` |\n", escapeCell(data))
		}
	}

	sb.WriteByte('\n')

	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)

	return strings.ReplaceAll(s, "\n", " ")
}

// ReportEntry is a visible record in a machine readable report. Data is
// only set when the record's data level passes the threshold.
type ReportEntry struct {
	Record   *Record `json:"record" yaml:"record"`
	ShowData bool    `json:"show_data" yaml:"show_data"`
	Data     any     `json:"data,omitempty" yaml:"data,omitempty"`
}

// Report is the machine readable form of a collection at a threshold.
type Report struct {
	RunID   string        `json:"run_id" yaml:"run_id"`
	Passed  bool          `json:"passed" yaml:"passed"`
	Entries []ReportEntry `json:"entries" yaml:"entries"`
}

// NewReport builds the report of the entries of c visible at threshold.
func NewReport(c *Collection, threshold Level) *Report {
	entries := c.Filter(threshold)

	report := &Report{
		RunID:   c.ID(),
		Passed:  c.Passed(),
		Entries: make([]ReportEntry, 0, len(entries)),
	}

	for _, e := range entries {
		entry := ReportEntry{Record: e.Record, ShowData: e.ShowData}
		if e.ShowData {
			entry.Data = e.Record.Data()
		}

		report.Entries = append(report.Entries, entry)
	}

	return report
}

func renderJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return nil
}
