package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/zeus/internal/api"
	"github.com/leapstack-labs/zeus/internal/catalog"
	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/leapstack-labs/zeus/internal/theme"
	"github.com/leapstack-labs/zeus/pkg/core"
)

type fixture struct {
	backend *testutil.FakeBackend
	store   *state.MemoryStore
	model   *Model
}

func newFixture(t *testing.T, route string) *fixture {
	t.Helper()

	fb := testutil.NewFakeBackend(t)
	fb.Columns = []string{"id", "name"}
	fb.Rows = [][]string{{"1", "alice"}, {"2", ""}}
	fb.Catalog = core.Catalog{Databases: []core.Database{
		{Name: "sales", Tables: []core.Table{{Name: "orders", Type: "EXTERNAL_TABLE"}, {Name: "refunds", Type: "EXTERNAL_TABLE"}}},
		{Name: "hr", Tables: []core.Table{{Name: "people", Type: "EXTERNAL_TABLE"}}},
	}}
	return newFixtureWith(t, fb, route)
}

func newFixtureWith(t *testing.T, fb *testutil.FakeBackend, route string) *fixture {
	t.Helper()

	client, err := api.New(fb.URL())
	require.NoError(t, err)

	store := state.NewMemoryStore()
	m := New(context.Background(), Config{
		Backend:      client,
		Store:        store,
		Theme:        theme.New(true),
		Logger:       testutil.NewTestLogger(t),
		Route:        route,
		PageSize:     50,
		PollInterval: 10 * time.Millisecond,
		CatalogTTL:   time.Minute,
	})
	t.Cleanup(m.Close)
	return &fixture{backend: fb, store: store, model: m}
}

// own reports whether msg is produced by this package. Timer driven
// component messages are left out so runs terminate.
func own(msg tea.Msg) bool {
	switch msg.(type) {
	case queriesLoadedMsg, catalogLoadedMsg, runsLoadedMsg, executedMsg,
		resultsMsg, terminalMsg, pollErrorMsg, pollDoneMsg, pageLoadedMsg,
		savedMsg, deletedMsg, exportedMsg, locationMsg, statusMsg:
		return true
	}
	return false
}

// run executes cmd and feeds every resulting message back into the model
// until nothing is left.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "message loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			if !own(msg) {
				continue
			}
			_, c := m.Update(msg)
			queue = append(queue, c)
		}
	}
}

func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	run(t, m, cmd)
}

func press(t *testing.T, m *Model, k tea.KeyType) {
	t.Helper()
	send(t, m, tea.KeyMsg{Type: k})
}

func typeSQL(m *Model, sql string) {
	m.editor.SetValue(sql)
	m.editorChanged()
}

func TestNew_StartsWithBlankQuery(t *testing.T) {
	f := newFixture(t, "")
	m := f.model

	q, _, ok := m.activeQuery()
	require.True(t, ok)
	assert.True(t, q.IsUnsaved)
	assert.Equal(t, paneEditor, m.focus)
	assert.Equal(t, q.SQL, m.editor.Value())
}

func TestExecute_MissingParametersDoNotSubmit(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	typeSQL(m, "SELECT * FROM t WHERE id = {{id}}")

	press(t, m, tea.KeyCtrlR)

	assert.Equal(t, modeError, m.mode)
	assert.Contains(t, m.errText, "id")
	assert.Equal(t, paneParams, m.focus)
	assert.False(t, m.running)
	assert.Zero(t, f.backend.Calls("POST /api/athena/execute"))
}

func TestExecute_PollsUntilTerminal(t *testing.T) {
	f := newFixture(t, "")
	f.backend.DefaultStatuses = []core.RunStatus{core.RunStatusRunning, core.RunStatusSucceeded}
	m := f.model
	typeSQL(m, "SELECT * FROM t WHERE id = {{id}}")
	m.tracker.Set("id", "7")

	press(t, m, tea.KeyCtrlR)

	assert.Equal(t, 1, f.backend.Calls("POST /api/athena/execute"))
	require.NotNil(t, m.results)
	assert.Equal(t, core.RunStatusSucceeded, m.results.Status)
	assert.Equal(t, [][]string{{"1", "alice"}, {"2", ""}}, m.results.Rows)
	assert.Equal(t, int64(2), m.pager.Total)
	assert.False(t, m.running)
	assert.Contains(t, m.status, "Query finished")
	assert.GreaterOrEqual(t, f.backend.Calls("GET /api/athena/results/{executionId}"), 2)
}

func TestExecute_FailureOpensErrorModal(t *testing.T) {
	f := newFixture(t, "")
	f.backend.DefaultStatuses = []core.RunStatus{core.RunStatusFailed}
	m := f.model
	typeSQL(m, "SELEC 1")

	press(t, m, tea.KeyCtrlR)

	assert.Equal(t, modeError, m.mode)
	assert.Contains(t, m.errText, "SYNTAX_ERROR")

	press(t, m, tea.KeyEsc)
	assert.Equal(t, modeNormal, m.mode)
}

func TestExecute_SubmitErrorShowsBackendMessage(t *testing.T) {
	f := newFixture(t, "")
	f.backend.ExecuteError = "workgroup is disabled"
	m := f.model
	typeSQL(m, "SELECT 1")

	press(t, m, tea.KeyCtrlR)

	assert.Equal(t, modeError, m.mode)
	assert.Equal(t, "workgroup is disabled", m.errText)
	assert.False(t, m.running)
}

func TestUpdate_DropsStaleMessages(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	stale := m.gen
	m.resetExecution()

	send(t, m, resultsMsg{gen: stale, results: &core.QueryResults{Status: core.RunStatusSucceeded}})
	send(t, m, terminalMsg{gen: stale, results: &core.QueryResults{Status: core.RunStatusFailed}})
	send(t, m, executedMsg{gen: stale, executionID: "exec-9"})

	assert.Nil(t, m.results)
	assert.Empty(t, m.executionID)
	assert.Equal(t, modeNormal, m.mode)
}

func TestUpdate_DropsSupersededPage(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	m.executionID = "exec-1"
	m.pager.Size, m.pager.Total, m.pager.Page = 10, 100, 3

	send(t, m, pageLoadedMsg{gen: m.gen, page: 2, results: &core.QueryResults{Page: 2, Total: 100, Status: core.RunStatusSucceeded}})
	assert.Nil(t, m.results)
	assert.Equal(t, 3, m.pager.Page)

	send(t, m, pageLoadedMsg{gen: m.gen, page: 3, results: &core.QueryResults{Page: 3, Total: 100, Status: core.RunStatusSucceeded}})
	require.NotNil(t, m.results)
	assert.Equal(t, 3, m.results.Page)
	assert.Equal(t, 3, m.pager.Page)
}

func TestSwitchTab_ResetsResults(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	press(t, m, tea.KeyCtrlN)
	require.Equal(t, 2, m.ws.Len())
	assert.Equal(t, 1, m.ws.ActiveIndex())

	m.results = &core.QueryResults{Status: core.RunStatusSucceeded}
	m.executionID = "exec-1"
	gen := m.gen

	run(t, m, m.switchTab(1))

	assert.Equal(t, 0, m.ws.ActiveIndex())
	assert.Nil(t, m.results)
	assert.Empty(t, m.executionID)
	assert.Greater(t, m.gen, gen)
}

func TestSave_CreatesQueryAndUpdatesLocation(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	typeSQL(m, "SELECT 1")

	press(t, m, tea.KeyCtrlS)
	require.Equal(t, modeSave, m.mode)
	assert.Empty(t, m.dialog.Value())

	m.dialog.SetValue("Daily Orders")
	press(t, m, tea.KeyEnter)

	assert.Equal(t, modeNormal, m.mode)
	saved, ok := f.backend.Query("q1")
	require.True(t, ok)
	assert.Equal(t, "Daily Orders", saved.Name)
	assert.Equal(t, "SELECT 1", saved.SQL)

	q, _, _ := m.activeQuery()
	assert.True(t, q.Saved())
	assert.False(t, q.IsDirty)
	assert.Equal(t, "/query/q1/daily-orders", m.Location())
	require.Len(t, m.saved, 1)
}

func TestSave_EmptyNameIsRejected(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	typeSQL(m, "SELECT 1")

	press(t, m, tea.KeyCtrlS)
	m.dialog.SetValue("   ")
	press(t, m, tea.KeyEnter)

	assert.Equal(t, modeError, m.mode)
	assert.Zero(t, f.backend.Calls("POST /api/queries"))
}

func TestSave_NothingToSave(t *testing.T) {
	f := newFixture(t, "")
	q := f.backend.AddQuery("orders", "SELECT 1")
	m := f.model
	m.ws.OpenQuery(q)
	m.loadActive()

	press(t, m, tea.KeyCtrlS)

	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, "Nothing to save", m.status)
}

func TestRoute_OpensSavedQueryOnceLoaded(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	q := fb.AddQuery("orders", "SELECT * FROM orders")
	f := newFixtureWith(t, fb, "/query/"+q.ID+"/orders")
	m := f.model

	cmds := append([]tea.Cmd{m.loadQueries()}, m.nav.drain()...)
	run(t, m, tea.Batch(cmds...))

	active, _, ok := m.activeQuery()
	require.True(t, ok)
	assert.Equal(t, q.ID, active.ID)
	assert.Equal(t, "SELECT * FROM orders", m.editor.Value())
	assert.Equal(t, "/query/q1/orders", m.Location())
	assert.Equal(t, q.ID, m.runsFor)
}

func TestRoute_UnknownQueryReportsNotFound(t *testing.T) {
	f := newFixture(t, "/query/nope")
	m := f.model

	run(t, m, m.loadQueries())

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "nope")
}

func TestGoTo_VisitsTypedRoute(t *testing.T) {
	f := newFixture(t, "")
	q := f.backend.AddQuery("revenue", "SELECT sum(x) FROM r")
	m := f.model
	run(t, m, m.loadQueries())

	press(t, m, tea.KeyCtrlG)
	require.Equal(t, modeGoTo, m.mode)
	m.dialog.SetValue("/query/" + q.ID)
	press(t, m, tea.KeyEnter)

	active, _, _ := m.activeQuery()
	assert.Equal(t, q.ID, active.ID)
	assert.Equal(t, "/query/q1/revenue", m.Location())
}

func TestQueriesPane_DeleteDetachesOpenQuery(t *testing.T) {
	f := newFixture(t, "")
	q := f.backend.AddQuery("orders", "SELECT 1")
	m := f.model
	run(t, m, m.loadQueries())

	m.setFocus(paneQueries)
	press(t, m, tea.KeyEnter)
	active, _, _ := m.activeQuery()
	require.Equal(t, q.ID, active.ID)

	m.setFocus(paneQueries)
	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.Equal(t, modeConfirm, m.mode)
	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	_, exists := f.backend.Query(q.ID)
	assert.False(t, exists)
	active, _, _ = m.activeQuery()
	assert.True(t, active.IsUnsaved)
	assert.Empty(t, m.saved)
}

func TestConfirm_AnyOtherKeyCancels(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	called := false
	m.askConfirm("Delete?", func() tea.Cmd { called = true; return nil })

	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.False(t, called)
	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, "Cancelled", m.status)
}

func TestCatalogPane_OpensTableQuery(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	run(t, m, m.loadCatalog(false))
	require.NotNil(t, m.catalog)

	m.setFocus(paneCatalog)
	press(t, m, tea.KeyEnter)
	assert.True(t, m.expanded["sales"])

	press(t, m, tea.KeyDown)
	press(t, m, tea.KeyEnter)

	assert.Equal(t, 2, m.ws.Len())
	assert.Equal(t, catalog.TableQuerySQL("sales", "orders"), m.editor.Value())
	assert.Equal(t, paneEditor, m.focus)
}

func TestCatalogRows(t *testing.T) {
	cat := &core.Catalog{Databases: []core.Database{
		{Name: "sales", Tables: []core.Table{{Name: "orders"}, {Name: "refunds"}}},
		{Name: "hr", Tables: []core.Table{{Name: "people"}}},
	}}

	t.Run("collapsed", func(t *testing.T) {
		rows := catalogRows(cat, "", map[string]bool{})
		require.Len(t, rows, 2)
		assert.False(t, rows[0].isTable())
		assert.False(t, rows[0].expanded)
	})

	t.Run("toggled open", func(t *testing.T) {
		rows := catalogRows(cat, "", map[string]bool{"hr": true})
		require.Len(t, rows, 3)
		assert.Equal(t, treeRow{database: "hr", table: "people"}, rows[2])
	})

	t.Run("filter expands matches", func(t *testing.T) {
		rows := catalogRows(cat, "REF", nil)
		require.Len(t, rows, 2)
		assert.Equal(t, "sales", rows[0].database)
		assert.True(t, rows[0].expanded)
		assert.Equal(t, "refunds", rows[1].table)
	})

	t.Run("nil catalog", func(t *testing.T) {
		assert.Nil(t, catalogRows(nil, "x", nil))
	})
}

func TestFilterMode_EscClears(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	m.setFocus(paneCatalog)

	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	require.Equal(t, modeFilter, m.mode)
	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hr")})
	assert.Equal(t, "hr", m.filter.Value())

	press(t, m, tea.KeyEsc)
	assert.Equal(t, modeNormal, m.mode)
	assert.Empty(t, m.filter.Value())
}

func TestParams_ManualEditUnpinsSeededValues(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	typeSQL(m, "SELECT * FROM t WHERE a = {{a}} AND b = {{b}}")

	m.tracker.Seed(map[string]string{"a": "1", "b": "2"})
	require.True(t, m.tracker.Pinned())

	m.setFocus(paneParams)
	assert.Equal(t, "1", m.paramInput.Value())
	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})

	assert.False(t, m.tracker.Pinned())
	assert.Equal(t, "10", m.tracker.Get("a"))
	assert.Equal(t, "2", m.tracker.Get("b"))
}

func TestFocus_SkipsHiddenPanes(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	m.setFocus(paneEditor)

	press(t, m, tea.KeyTab)

	// No parameters and no run history for an unsaved query.
	assert.Equal(t, paneResults, m.focus)
	press(t, m, tea.KeyTab)
	assert.Equal(t, paneQueries, m.focus)
}

func TestThemeToggle_IsPersisted(t *testing.T) {
	f := newFixture(t, "")
	m := f.model
	require.True(t, m.Theme().Dark)

	press(t, m, tea.KeyCtrlT)

	assert.False(t, m.Theme().Dark)
	restored := theme.Resolve(context.Background(), theme.ModeAuto, f.store, nil, func() bool { return true })
	assert.False(t, restored.Dark)
}

func TestExport_RequiresResults(t *testing.T) {
	f := newFixture(t, "")
	m := f.model

	press(t, m, tea.KeyCtrlE)

	assert.True(t, m.statusErr)
	assert.Equal(t, "No results to export", m.status)
	assert.Zero(t, f.backend.Calls("GET /api/athena/export/{executionId}"))
}

func TestView_RendersWithoutSize(t *testing.T) {
	f := newFixture(t, "")
	m := f.model

	assert.NotEmpty(t, m.View())

	send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Queries")
	assert.Contains(t, view, "Editor")
}

func TestScrollStart(t *testing.T) {
	tests := []struct {
		name      string
		cursor, n int
		h         int
		want      int
	}{
		{"fits", 3, 5, 10, 0},
		{"top", 0, 20, 5, 0},
		{"follows cursor", 9, 20, 5, 5},
		{"clamped to end", 19, 20, 5, 15},
		{"no height", 4, 20, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scrollStart(tt.cursor, tt.n, tt.h))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "SELECT 1", truncate("SELECT\n  1", 20))
	assert.Equal(t, "SELE…", truncate("SELECT 1", 5))
	assert.Equal(t, "…", truncate("SELECT", 1))
	assert.Empty(t, truncate("SELECT", 0))
}
