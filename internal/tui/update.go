package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/zeus/internal/api"
	"github.com/leapstack-labs/zeus/internal/route"
	"github.com/leapstack-labs/zeus/internal/sqlfmt"
	"github.com/leapstack-labs/zeus/internal/theme"
	"github.com/leapstack-labs/zeus/internal/workspace"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/leapstack-labs/zeus/pkg/params"
)

// Update handles a message. Navigations issued while handling it are
// delivered back as location messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	cmds := append([]tea.Cmd{cmd}, m.nav.drain()...)
	return m, tea.Batch(cmds...)
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case queriesLoadedMsg:
		if msg.err != nil {
			m.statusError("Failed to load queries: " + api.Message(msg.err, msg.err.Error()))
			return nil
		}
		first := !m.savedLoaded
		m.saved = msg.queries
		m.savedLoaded = true
		m.queryCursor = clampCursor(m.queryCursor, len(m.saved))
		if first {
			return m.afterLocation(m.sync.Resolve(m.saved, true))
		}
		return nil

	case catalogLoadedMsg:
		m.catalog, m.catalogErr = msg.catalog, msg.err
		if msg.err != nil {
			m.logger.Warn("failed to load catalog", slog.Any("error", msg.err))
		}
		return nil

	case runsLoadedMsg:
		q, _, ok := m.activeQuery()
		if !ok || q.ID != msg.queryID {
			return nil
		}
		if msg.err != nil {
			m.logger.Warn("failed to load runs", slog.String("query_id", msg.queryID), slog.Any("error", msg.err))
			return nil
		}
		m.runs, m.runsFor = msg.runs, msg.queryID
		m.runCursor = clampCursor(m.runCursor, len(m.runs))
		return nil

	case runsTickMsg:
		return tea.Batch(m.loadRuns(), m.scheduleRunsRefresh())

	case executedMsg:
		if msg.gen != m.gen {
			return nil
		}
		if msg.err != nil {
			m.running = false
			m.showError(api.Message(msg.err, "Failed to execute query"))
			return nil
		}
		m.logger.Debug("execution submitted", slog.String("execution_id", msg.executionID))
		return tea.Batch(m.startPolling(msg.executionID, ""), m.loadRuns())

	case resultsMsg:
		if msg.gen != m.gen {
			return nil
		}
		m.applyResults(msg.results)
		return listen(m.events)

	case terminalMsg:
		if msg.gen != m.gen {
			return nil
		}
		switch msg.results.Status {
		case core.RunStatusFailed:
			m.showError(orDefault(msg.results.Error(), "Query failed"))
		case core.RunStatusCancelled:
			m.statusError("Query was cancelled")
		default:
			m.setStatus(fmt.Sprintf("Query finished in %s", formatElapsed(m.elapsed())))
		}
		return tea.Batch(listen(m.events), m.loadRuns())

	case pollErrorMsg:
		if msg.gen != m.gen {
			return nil
		}
		m.statusError("Failed to fetch results: " + api.Message(msg.err, msg.err.Error()))
		return listen(m.events)

	case pollDoneMsg:
		if msg.gen != m.gen {
			return nil
		}
		m.running = false
		if msg.err != nil {
			m.statusError(msg.err.Error())
		}
		return nil

	case pageLoadedMsg:
		// Only the last requested page counts.
		if msg.gen != m.gen || msg.page != m.pager.Page {
			return nil
		}
		if msg.err != nil {
			m.statusError("Failed to load page: " + api.Message(msg.err, msg.err.Error()))
			return nil
		}
		m.applyResults(msg.results)
		return nil

	case savedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, workspace.ErrClosed) {
				m.setStatus("Saved " + msg.query.Name)
				return m.loadQueries()
			}
			m.showError(api.Message(msg.err, msg.err.Error()))
			return nil
		}
		m.setStatus(fmt.Sprintf("Saved %q", msg.query.Name))
		m.sync.ActiveChanged(false)
		return tea.Batch(m.loadQueries(), m.loadRuns())

	case deletedMsg:
		if msg.err != nil {
			m.showError(fmt.Sprintf("Failed to delete %s: %s", msg.what, api.Message(msg.err, msg.err.Error())))
			return nil
		}
		m.setStatus(fmt.Sprintf("Deleted %s %s", msg.what, msg.id))
		if msg.what == "query" {
			m.ws.Detach(msg.id)
			return m.loadQueries()
		}
		return m.loadRuns()

	case exportedMsg:
		if msg.err != nil {
			m.showError(api.Message(msg.err, msg.err.Error()))
			return nil
		}
		m.setStatus("Exported to " + msg.location)
		return nil

	case locationMsg:
		return m.afterLocation(m.sync.LocationChanged(msg.path, m.saved, m.savedLoaded))

	case statusMsg:
		m.status, m.statusErr = msg.text, msg.isError
		return nil

	case spinner.TickMsg:
		if !m.running {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}

	// Cursor blinks and other component messages.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	cmds = append(cmds, cmd)
	switch m.mode {
	case modeSave, modeGoTo:
		m.dialog, cmd = m.dialog.Update(msg)
		cmds = append(cmds, cmd)
	case modeFilter:
		m.filter, cmd = m.filter.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focus == paneParams {
		m.paramInput, cmd = m.paramInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// afterLocation reacts to a reconciliation of the location with the tabs.
func (m *Model) afterLocation(action route.Action) tea.Cmd {
	switch action {
	case route.ActionActivated, route.ActionOpened:
		m.loadActive()
		// Settle on the canonical path of the query.
		m.sync.ActiveChanged(false)
		return m.loadRuns()
	case route.ActionWaiting:
		m.setStatus("Loading queries...")
	case route.ActionNone:
		if r := route.Parse(m.sync.Location()); !r.IsZero() && m.savedLoaded {
			if q, _, ok := m.activeQuery(); !ok || q.ID != r.QueryID {
				m.statusError(fmt.Sprintf("Query %s not found", r.QueryID))
			}
		}
	}
	return nil
}

func (m *Model) applyResults(res *core.QueryResults) {
	if res == nil {
		return
	}
	m.results = res
	m.pager.Total = res.Total
	if res.Page > 0 {
		m.pager.Page = res.Page
	}
	if res.Status.IsTerminal() {
		m.running = false
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.Close()
		return tea.Quit
	}

	switch m.mode {
	case modeError, modeHelp:
		m.mode = modeNormal
		return nil
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeSave, modeGoTo:
		return m.handleDialogKey(msg)
	case modeFilter:
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Execute):
		return m.execute()
	case key.Matches(msg, m.keys.Save):
		return m.openSaveDialog()
	case key.Matches(msg, m.keys.New):
		m.ws.CreateNewQuery()
		m.loadActive()
		m.setFocus(paneEditor)
		return nil
	case key.Matches(msg, m.keys.Close):
		_, index, ok := m.activeQuery()
		if !ok {
			return nil
		}
		if err := m.ws.CloseQuery(index); err != nil {
			m.statusError(err.Error())
			return nil
		}
		m.loadActive()
		m.sync.ActiveChanged(false)
		return m.loadRuns()
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)
	case key.Matches(msg, m.keys.Format):
		m.formatEditor()
		return nil
	case key.Matches(msg, m.keys.Export):
		return m.exportResults()
	case key.Matches(msg, m.keys.Theme):
		m.theme = m.theme.Toggle()
		if err := theme.Save(m.ctx, m.cfg.Store, m.logger, m.theme); err != nil {
			m.logger.Warn("failed to persist theme", slog.Any("error", err))
		}
		m.setStatus(m.theme.Name() + " theme")
		return nil
	case key.Matches(msg, m.keys.GoTo):
		m.openDialog(modeGoTo, m.sync.Location(), "route: ")
		return nil
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus(1)
		return nil
	case key.Matches(msg, m.keys.Back):
		m.cycleFocus(-1)
		return nil
	}

	switch m.focus {
	case paneEditor:
		return m.handleEditorKey(msg)
	case paneParams:
		return m.handleParamsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		return nil
	}

	switch m.focus {
	case paneQueries:
		return m.handleQueriesKey(msg)
	case paneCatalog:
		return m.handleCatalogKey(msg)
	case paneRuns:
		return m.handleRunsKey(msg)
	case paneResults:
		return m.handleResultsKey(msg)
	}
	return nil
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	m.editor.Blur()
	m.paramInput.Blur()
	switch p {
	case paneEditor:
		m.editor.Focus()
	case paneParams:
		m.selectParam(m.paramCursor)
		m.paramInput.Focus()
	}
}

// cycleFocus moves focus to the next visible pane.
func (m *Model) cycleFocus(delta int) {
	p := m.focus
	for range paneCount {
		p = (p + pane(delta) + paneCount) % paneCount
		if m.visible(p) {
			m.setFocus(p)
			return
		}
	}
}

func (m *Model) visible(p pane) bool {
	switch p {
	case paneParams:
		return len(m.tracker.Names()) > 0
	case paneRuns:
		q, _, ok := m.activeQuery()
		return ok && q.Saved()
	}
	return true
}

// switchTab activates the neighbouring tab. Switching drops the results of
// the previous tab.
func (m *Model) switchTab(delta int) tea.Cmd {
	n := m.ws.Len()
	if n < 2 {
		return nil
	}
	next := (m.ws.ActiveIndex() + delta + n) % n
	return m.activate(next)
}

func (m *Model) activate(index int) tea.Cmd {
	if err := m.ws.SetActive(index); err != nil {
		m.statusError(err.Error())
		return nil
	}
	m.loadActive()
	m.sync.ActiveChanged(true)
	return m.loadRuns()
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.editorChanged()
	return cmd
}

// editorChanged stores the editor text into the active query and keeps
// the parameter values in step with its placeholders.
func (m *Model) editorChanged() {
	q, index, ok := m.activeQuery()
	if !ok {
		return
	}
	sql := m.editor.Value()
	if sql == q.SQL {
		return
	}
	if err := m.ws.UpdateQuery(index, workspace.SQLPatch(sql)); err != nil {
		m.logger.Warn("failed to update query", slog.Any("error", err))
		return
	}
	if m.tracker.Sync(sql) {
		m.paramCursor = 0
	}
}

func (m *Model) formatEditor() {
	formatted, err := sqlfmt.Format(m.editor.Value())
	if err != nil {
		m.logger.Debug("format skipped", slog.Any("error", err))
		return
	}
	m.editor.SetValue(formatted)
	m.editorChanged()
}

// execute validates the parameters and submits the active query.
func (m *Model) execute() tea.Cmd {
	q, _, ok := m.activeQuery()
	if !ok || m.running {
		return nil
	}
	values := m.tracker.Values()
	if err := params.Check(q.SQL, values); err != nil {
		m.showError(err.Error())
		m.setFocus(paneParams)
		return nil
	}

	m.resetExecution()
	m.running = true
	m.setStatus("Submitting query...")

	queryID := ""
	if q.Saved() {
		queryID = q.ID
	}
	return tea.Batch(m.submit(queryID, q.SQL, values), m.spinner.Tick)
}

func (m *Model) elapsed() time.Duration {
	if m.poller == nil {
		return 0
	}
	return m.poller.Elapsed()
}

func (m *Model) handleParamsKey(msg tea.KeyMsg) tea.Cmd {
	names := m.tracker.Names()
	switch msg.String() {
	case "up":
		m.selectParam(m.paramCursor - 1)
		return nil
	case "down", "enter":
		m.selectParam(m.paramCursor + 1)
		return nil
	case "esc":
		m.setFocus(paneEditor)
		return nil
	}
	if len(names) == 0 {
		return nil
	}
	var cmd tea.Cmd
	m.paramInput, cmd = m.paramInput.Update(msg)
	if v := m.paramInput.Value(); v != m.tracker.Get(names[m.paramCursor]) {
		m.tracker.Unpin()
		m.tracker.Set(names[m.paramCursor], v)
	}
	return cmd
}

func (m *Model) selectParam(i int) {
	names := m.tracker.Names()
	m.paramCursor = clampCursor(i, len(names))
	if len(names) == 0 {
		m.paramInput.SetValue("")
		return
	}
	m.paramInput.SetValue(m.tracker.Get(names[m.paramCursor]))
	m.paramInput.CursorEnd()
}

func (m *Model) handleQueriesKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.queryCursor = clampCursor(m.queryCursor-1, len(m.saved))
	case key.Matches(msg, m.keys.Down):
		m.queryCursor = clampCursor(m.queryCursor+1, len(m.saved))
	case key.Matches(msg, m.keys.Open):
		if len(m.saved) == 0 {
			return nil
		}
		m.ws.OpenQuery(m.saved[m.queryCursor])
		m.loadActive()
		m.sync.ActiveChanged(true)
		m.setFocus(paneEditor)
		return m.loadRuns()
	case key.Matches(msg, m.keys.Delete):
		if len(m.saved) == 0 {
			return nil
		}
		q := m.saved[m.queryCursor]
		m.askConfirm(fmt.Sprintf("Delete query %q?", q.Name), func() tea.Cmd { return m.deleteQuery(q.ID) })
	}
	return nil
}

func (m *Model) handleCatalogKey(msg tea.KeyMsg) tea.Cmd {
	rows := catalogRows(m.catalog, m.filter.Value(), m.expanded)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.catalogCursor = clampCursor(m.catalogCursor-1, len(rows))
	case key.Matches(msg, m.keys.Down):
		m.catalogCursor = clampCursor(m.catalogCursor+1, len(rows))
	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.filter.Focus()
		return textinput.Blink
	case msg.String() == "r":
		return m.loadCatalog(true)
	case key.Matches(msg, m.keys.Open):
		if len(rows) == 0 {
			return nil
		}
		row := rows[clampCursor(m.catalogCursor, len(rows))]
		if !row.isTable() {
			m.expanded[row.database] = !row.expanded
			return nil
		}
		m.ws.OpenTableQuery(row.database, row.table)
		m.loadActive()
		m.setFocus(paneEditor)
	}
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.filter.SetValue("")
		fallthrough
	case "enter":
		m.mode = modeNormal
		m.filter.Blur()
		m.catalogCursor = 0
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.catalogCursor = 0
	return cmd
}

func (m *Model) handleRunsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.runCursor = clampCursor(m.runCursor-1, len(m.runs))
	case key.Matches(msg, m.keys.Down):
		m.runCursor = clampCursor(m.runCursor+1, len(m.runs))
	case key.Matches(msg, m.keys.Open):
		if len(m.runs) == 0 {
			return nil
		}
		return m.openRun(m.runs[m.runCursor])
	case key.Matches(msg, m.keys.Delete):
		if len(m.runs) == 0 {
			return nil
		}
		run := m.runs[m.runCursor]
		m.askConfirm(fmt.Sprintf("Delete run %s?", run.ID), func() tea.Cmd { return m.deleteRun(run.ID) })
	}
	return nil
}

// openRun shows the results of a historical run and restores the
// parameter values it ran with.
func (m *Model) openRun(run core.QueryRun) tea.Cmd {
	m.resetExecution()
	if len(run.Parameters) > 0 {
		m.tracker.Seed(run.Parameters)
		m.selectParam(0)
	}
	if run.ExecutionID == "" {
		return nil
	}
	m.setFocus(paneResults)
	return m.startPolling(run.ExecutionID, run.Status)
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	if m.results == nil || m.results.Status != core.RunStatusSucceeded || m.executionID == "" {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.NextPage):
		if m.pager.Next() {
			return m.fetchPage()
		}
	case key.Matches(msg, m.keys.PrevPage):
		if m.pager.Prev() {
			return m.fetchPage()
		}
	}
	return nil
}

func (m *Model) exportResults() tea.Cmd {
	if m.executionID == "" || m.results == nil || m.results.Status != core.RunStatusSucceeded {
		m.statusError("No results to export")
		return nil
	}
	m.setStatus("Exporting...")
	return m.export()
}

func (m *Model) openSaveDialog() tea.Cmd {
	q, index, ok := m.activeQuery()
	if !ok {
		return nil
	}
	if !m.ws.CanSave(index) {
		m.setStatus("Nothing to save")
		return nil
	}
	name := q.Name
	if q.IsUnsaved && name == workspace.UnsavedName {
		name = ""
	}
	m.openDialog(modeSave, name, "name: ")
	return textinput.Blink
}

func (m *Model) openDialog(md mode, value, prompt string) {
	m.mode = md
	m.dialog.Prompt = prompt
	m.dialog.SetValue(value)
	m.dialog.CursorEnd()
	m.dialog.Focus()
}

func (m *Model) handleDialogKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.dialog.Blur()
		return nil
	case "enter":
		value := strings.TrimSpace(m.dialog.Value())
		md := m.mode
		m.mode = modeNormal
		m.dialog.Blur()
		if md == modeSave {
			if value == "" {
				m.showError(workspace.ErrEmptyName.Error())
				return nil
			}
			m.setStatus("Saving...")
			return m.saveActive(value)
		}
		if value != "" {
			m.sync.Visit(value)
		}
		return nil
	}
	var cmd tea.Cmd
	m.dialog, cmd = m.dialog.Update(msg)
	return cmd
}

func (m *Model) askConfirm(prompt string, run func() tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, run: run}
	m.mode = modeConfirm
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	c := m.confirm
	m.confirm = nil
	m.mode = modeNormal
	if c == nil {
		return nil
	}
	switch msg.String() {
	case "y", "Y", "enter":
		return c.run()
	}
	m.setStatus("Cancelled")
	return nil
}

func (m *Model) statusError(text string) {
	m.status, m.statusErr = text, true
}

func clampCursor(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(100 * time.Millisecond).String()
}
