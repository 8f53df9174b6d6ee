package results

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatCSV, FormatMarkdown, FormatYAML}

// Null is shown for empty cells.
const Null = "null"

// Render writes one page of results in format. Unknown formats fall back to
// a table.
func Render(w io.Writer, res *core.QueryResults, format string) error {
	if res == nil {
		res = &core.QueryResults{}
	}
	switch format {
	case FormatJSON:
		return renderJSON(w, res)
	case FormatCSV:
		return renderCSV(w, res)
	case "md", FormatMarkdown:
		return renderMarkdown(w, res)
	case "yml", FormatYAML:
		return renderYAML(w, res)
	default:
		return renderTable(w, res)
	}
}

// Cell returns the display text of a cell.
func Cell(v string) string {
	if v == "" {
		return Null
	}
	return v
}

func renderTable(w io.Writer, res *core.QueryResults) error {
	if len(res.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "No results to display")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i := range res.Columns {
			row[i] = Cell(at(r, i))
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintln(w, Summary(res))
	return nil
}

// Summary describes the page position, e.g. "Page 1 of 3 (120 total)".
func Summary(res *core.QueryResults) string {
	p := Pager{Page: max(res.Page, 1), Size: res.Size, Total: res.Total}
	return fmt.Sprintf("Page %d of %d (%d total)", p.Page, p.TotalPages(), p.Total)
}

// records turns rows into column-keyed maps. Empty cells become nil.
func records(res *core.QueryResults) []map[string]any {
	out := make([]map[string]any, 0, len(res.Rows))
	for _, r := range res.Rows {
		rec := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			if v := at(r, i); v != "" {
				rec[col] = v
			} else {
				rec[col] = nil
			}
		}
		out = append(out, rec)
	}
	return out
}

func renderJSON(w io.Writer, res *core.QueryResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records(res))
}

func renderYAML(w io.Writer, res *core.QueryResults) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records(res)); err != nil {
		return err
	}
	return enc.Close()
}

func renderCSV(w io.Writer, res *core.QueryResults) error {
	header := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = escapeCSV(col)
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, ","))

	for _, r := range res.Rows {
		values := make([]string, len(res.Columns))
		for i := range res.Columns {
			values[i] = escapeCSV(at(r, i))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, res *core.QueryResults) error {
	if len(res.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "No results to display")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(res.Columns, " | "))
	seps := make([]string, len(res.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range res.Rows {
		values := make([]string, len(res.Columns))
		for i := range res.Columns {
			values[i] = strings.ReplaceAll(Cell(at(r, i)), "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
