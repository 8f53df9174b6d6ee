package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/leapstack-labs/zeus/internal/route"
	"github.com/leapstack-labs/zeus/pkg/core"
)

const (
	sidebarWidth  = 34
	minMainWidth  = 40
	runsHeight    = 7
	paramsMaxRows = 4
)

// layout sizes the editor for the current window.
func (m *Model) layout() {
	w, _ := m.mainSize()
	m.editor.SetWidth(max(w-4, 10))
	m.editor.SetHeight(max(m.editorHeight()-3, 3))
	m.help.Width = m.width
}

func (m *Model) mainSize() (int, int) {
	w := m.width - sidebarWidth
	if w < minMainWidth {
		w = minMainWidth
	}
	// tab strip and status bar take two lines each
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return w, h
}

func (m *Model) editorHeight() int {
	_, h := m.mainSize()
	return max(h*2/5, 5)
}

// View renders the workbench.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.mode {
	case modeError:
		return m.overlay(m.renderError())
	case modeHelp:
		return m.overlay(m.theme.Styles.Dialog.Render(m.help.FullHelpView(m.keys.FullHelp())))
	case modeConfirm:
		return m.overlay(m.theme.Styles.Dialog.Render(m.confirm.prompt + "\n\n" + m.theme.Styles.Muted.Render("y to confirm, any other key to cancel")))
	case modeSave:
		return m.overlay(m.theme.Styles.Dialog.Render(m.theme.Styles.Title.Render("Save query") + "\n\n" + m.dialog.View() + "\n\n" + m.theme.Styles.Muted.Render("enter to save, esc to cancel")))
	case modeGoTo:
		return m.overlay(m.theme.Styles.Dialog.Render(m.theme.Styles.Title.Render("Go to") + "\n\n" + m.dialog.View() + "\n\n" + m.theme.Styles.Muted.Render("/query/<id>[/<slug>]")))
	}

	mainW, mainH := m.mainSize()
	sideH := mainH / 2

	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPane(paneQueries, m.renderQueries(sideH-3), sidebarWidth, sideH),
		m.renderPane(paneCatalog, m.renderCatalog(mainH-sideH-3), sidebarWidth, mainH-sideH),
	)

	editorH := m.editorHeight()
	paramsH := m.paramsHeight()
	runsH := 0
	if q, _, ok := m.activeQuery(); ok && q.Saved() {
		runsH = runsHeight
	}
	resultsH := max(mainH-editorH-paramsH-runsH, 4)

	parts := []string{m.renderPane(paneEditor, m.editor.View(), mainW, editorH)}
	if paramsH > 0 {
		parts = append(parts, m.renderPane(paneParams, m.renderParams(), mainW, paramsH))
	}
	if runsH > 0 {
		parts = append(parts, m.renderPane(paneRuns, m.renderRuns(runsH-3, mainW-4), mainW, runsH))
	}
	parts = append(parts, m.renderPane(paneResults, m.renderResults(resultsH-3, mainW-4), mainW, resultsH))

	main := lipgloss.JoinVertical(lipgloss.Left, parts...)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), body, m.renderStatus())
}

func (m *Model) overlay(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderPane(p pane, body string, w, h int) string {
	style := m.theme.Styles.Pane
	if m.focus == p {
		style = m.theme.Styles.PaneFocused
	}
	title := m.theme.Styles.Title.Render(p.String())
	return style.Width(w - 2).Height(h - 2).MaxHeight(h).Render(title + "\n" + body)
}

func (m *Model) renderTabs() string {
	queries := m.ws.Queries()
	active := m.ws.ActiveIndex()
	tabs := make([]string, 0, len(queries))
	for i, q := range queries {
		label := q.Title()
		if q.IsUnsaved {
			label += " " + m.theme.Styles.Dirty.Render("●")
		}
		if i == active {
			tabs = append(tabs, m.theme.Styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.Styles.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m *Model) renderQueries(h int) string {
	if !m.savedLoaded {
		return m.theme.Styles.Muted.Render("Loading...")
	}
	if len(m.saved) == 0 {
		return m.theme.Styles.Muted.Render("No saved queries")
	}
	start := scrollStart(m.queryCursor, len(m.saved), h)
	var b strings.Builder
	for i := start; i < len(m.saved) && i < start+h; i++ {
		line := truncate(m.saved[i].Name, sidebarWidth-6)
		if i == m.queryCursor && m.focus == paneQueries {
			line = m.theme.Styles.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderCatalog(h int) string {
	var b strings.Builder
	if m.mode == modeFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n")
		h--
	}
	switch {
	case m.catalogErr != nil:
		b.WriteString(m.theme.Styles.Error.Render("Failed to load catalog"))
		return b.String()
	case m.catalog == nil:
		b.WriteString(m.theme.Styles.Muted.Render("Loading..."))
		return b.String()
	}

	rows := catalogRows(m.catalog, m.filter.Value(), m.expanded)
	if len(rows) == 0 {
		b.WriteString(m.theme.Styles.Muted.Render("No matches"))
		return b.String()
	}
	cursor := clampCursor(m.catalogCursor, len(rows))
	start := scrollStart(cursor, len(rows), h)
	for i := start; i < len(rows) && i < start+h; i++ {
		r := rows[i]
		var line string
		if r.isTable() {
			line = "   " + truncate(r.table, sidebarWidth-10)
		} else {
			marker := "▸ "
			if r.expanded {
				marker = "▾ "
			}
			line = marker + truncate(r.database, sidebarWidth-8)
		}
		if i == cursor && m.focus == paneCatalog {
			line = m.theme.Styles.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) paramsHeight() int {
	n := len(m.tracker.Names())
	if n == 0 {
		return 0
	}
	return min(n, paramsMaxRows) + 3
}

func (m *Model) renderParams() string {
	names := m.tracker.Names()
	var b strings.Builder
	start := scrollStart(m.paramCursor, len(names), paramsMaxRows)
	for i := start; i < len(names) && i < start+paramsMaxRows; i++ {
		name := m.theme.Styles.Key.Render(fmt.Sprintf("%-16s", truncate(names[i], 16)))
		value := m.tracker.Get(names[i])
		if i == m.paramCursor && m.focus == paneParams {
			value = m.paramInput.View()
		} else if value == "" {
			value = m.theme.Styles.Warning.Render("(required)")
		}
		b.WriteString(name + " " + value + "\n")
	}
	if m.tracker.Pinned() {
		b.WriteString(m.theme.Styles.Muted.Render("values from run history"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderRuns(h, w int) string {
	if len(m.runs) == 0 {
		return m.theme.Styles.Muted.Render("No runs yet")
	}
	start := scrollStart(m.runCursor, len(m.runs), h)
	var b strings.Builder
	for i := start; i < len(m.runs) && i < start+h; i++ {
		run := m.runs[i]
		status := m.theme.StatusStyle(string(run.Status)).Render(fmt.Sprintf("%-9s", run.Status))
		detail := run.ExecutedAt.Local().Format("2006-01-02 15:04:05") + "  " + runDetail(run)
		line := status + "  " + truncate(detail, w-11)
		if i == m.runCursor && m.focus == paneRuns {
			line = m.theme.Styles.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func runDetail(run core.QueryRun) string {
	var parts []string
	if d := run.Duration(); d > 0 {
		parts = append(parts, d.Round(time.Millisecond).String())
	}
	if len(run.Parameters) > 0 {
		keys := make([]string, 0, len(run.Parameters))
		for k := range run.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, len(keys))
		for i, k := range keys {
			kv[i] = k + "=" + run.Parameters[k]
		}
		parts = append(parts, strings.Join(kv, " "))
	}
	if run.ErrorMessage != "" {
		parts = append(parts, run.ErrorMessage)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderResults(h, w int) string {
	styles := m.theme.Styles
	if m.running && (m.results == nil || !m.results.Status.IsTerminal()) {
		status := "Submitting"
		if m.results != nil {
			status = strings.ToLower(string(m.results.Status))
		}
		return fmt.Sprintf("%s %s %s", m.spinner.View(), status, styles.Muted.Render(formatElapsed(m.elapsed())))
	}
	res := m.results
	if res == nil {
		return styles.Muted.Render("Run a query to see results")
	}
	switch res.Status {
	case core.RunStatusFailed:
		return styles.Error.Render(orDefault(res.Error(), "Query failed"))
	case core.RunStatusCancelled:
		return styles.Warning.Render("Query was cancelled")
	}
	if len(res.Columns) == 0 {
		return styles.Muted.Render("Query returned no columns")
	}

	// header, borders and the page line
	limit := max(h-5, 1)
	rows := make([][]string, 0, min(len(res.Rows), limit))
	for i, r := range res.Rows {
		if i >= limit {
			break
		}
		cells := make([]string, len(res.Columns))
		for j := range res.Columns {
			v := ""
			if j < len(r) {
				v = r[j]
			}
			if v == "" {
				cells[j] = styles.Null.Render(results.Null)
			} else {
				cells[j] = truncate(v, 40)
			}
		}
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(m.theme.Palette.Border)).
		Headers(res.Columns...).
		Rows(rows...).
		Width(w).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	footer := results.Summary(res)
	if len(res.Rows) > limit {
		footer += fmt.Sprintf(", showing %d of %d rows on this page", limit, len(res.Rows))
	}
	footer += "  " + pageHint(m.pager)
	return t.Render() + "\n" + styles.Muted.Render(footer)
}

func pageHint(p results.Pager) string {
	var hints []string
	if p.CanPrev() {
		hints = append(hints, "[ prev")
	}
	if p.CanNext() {
		hints = append(hints, "] next")
	}
	return strings.Join(hints, "  ")
}

func (m *Model) renderError() string {
	styles := m.theme.Styles
	return styles.Dialog.BorderForeground(m.theme.Palette.Error).Width(min(60, m.width-4)).Render(
		styles.Error.Bold(true).Render("Error") + "\n\n" + m.errText + "\n\n" + styles.Muted.Render("press any key"),
	)
}

func (m *Model) renderStatus() string {
	styles := m.theme.Styles
	left := m.status
	if m.running {
		left = m.spinner.View() + " " + orDefault(left, "Running") + " " + formatElapsed(m.elapsed())
	}
	if m.statusErr {
		left = styles.Error.Render(left)
	}
	loc := m.sync.Location()
	if loc == "" {
		loc = route.Root
	}
	right := styles.Muted.Render(loc + "  " + m.theme.Name())
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	line := styles.Status.Render(left + strings.Repeat(" ", gap) + right)
	return line + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

// scrollStart returns the first visible index that keeps cursor in a
// window of h lines.
func scrollStart(cursor, n, h int) int {
	if h <= 0 || n <= h {
		return 0
	}
	start := cursor - h + 1
	if start < 0 {
		start = 0
	}
	if start > n-h {
		start = n - h
	}
	return start
}

// truncate shortens s to n cells, flattening newlines.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
