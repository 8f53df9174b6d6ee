package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/zeus/internal/cli/output"
)

// listing is a tabular view of records. Data is what JSON and YAML modes
// encode, so scripts get the full records rather than the display columns.
type listing struct {
	Columns []string
	Rows    [][]string
	Data    any
}

// renderListing writes l in the renderer's effective mode.
func renderListing(r *output.Renderer, l listing) error {
	w := r.Writer()
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(l.Data)
	case output.ModeYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l.Data); err != nil {
			return err
		}
		return enc.Close()
	case output.ModeCSV:
		return renderCSV(w, l)
	case output.ModeMarkdown:
		return renderMarkdown(w, l)
	default:
		return renderTable(w, l)
	}
}

func renderTable(w io.Writer, l listing) error {
	if len(l.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(l.Columns))
	for i, col := range l.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range l.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(l.Rows))
	return nil
}

func renderCSV(w io.Writer, l listing) error {
	_, _ = fmt.Fprintln(w, strings.Join(l.Columns, ","))
	for _, r := range l.Rows {
		values := make([]string, len(r))
		for i, v := range r {
			values[i] = escapeCSV(v)
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, l listing) error {
	if len(l.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(l.Columns, " | "))
	seps := make([]string, len(l.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range l.Rows {
		values := make([]string, len(r))
		for i, v := range r {
			values[i] = strings.ReplaceAll(strings.ReplaceAll(v, "|", "\\|"), "\n", " ")
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

// truncate shortens s to n runes for table cells, flattening newlines.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
