// Package tui implements the interactive workbench: open query tabs, an
// SQL editor with parameter inputs, run history, paged results and the
// catalog browser.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/zeus/internal/catalog"
	"github.com/leapstack-labs/zeus/internal/poller"
	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/leapstack-labs/zeus/internal/route"
	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/internal/theme"
	"github.com/leapstack-labs/zeus/internal/workspace"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/leapstack-labs/zeus/pkg/params"
)

// Backend is the part of the REST API the workbench uses.
type Backend interface {
	workspace.Saver
	poller.Fetcher
	catalog.Fetcher
	results.Exporter
	ListQueries(ctx context.Context) ([]core.Query, error)
	ListRuns(ctx context.Context, queryID string) ([]core.QueryRun, error)
	DeleteQuery(ctx context.Context, id string) error
	DeleteRun(ctx context.Context, runID string) error
	Execute(ctx context.Context, queryID, sql string, parameters map[string]string) (string, error)
}

// Config holds the dependencies and settings of the workbench.
type Config struct {
	Backend Backend
	Store   state.Store
	Theme   theme.Theme
	Logger  *slog.Logger
	// Sink receives exported results.
	Sink results.Sink
	// Route is the location to open at startup, if any.
	Route string

	PageSize     int
	PollInterval time.Duration
	RunsRefresh  time.Duration
	CatalogTTL   time.Duration
}

type pane int

const (
	paneQueries pane = iota
	paneCatalog
	paneEditor
	paneParams
	paneRuns
	paneResults
	paneCount
)

func (p pane) String() string {
	switch p {
	case paneQueries:
		return "Queries"
	case paneCatalog:
		return "Catalog"
	case paneEditor:
		return "Editor"
	case paneParams:
		return "Parameters"
	case paneRuns:
		return "Runs"
	case paneResults:
		return "Results"
	default:
		return ""
	}
}

// mode is the overlay currently capturing input.
type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeSave
	modeConfirm
	modeGoTo
	modeError
	modeHelp
)

type confirmation struct {
	prompt string
	run    func() tea.Cmd
}

// navQueue records navigations issued by the synchronizer so they can be
// delivered back as location messages.
type navQueue struct {
	paths []string
}

func (q *navQueue) Navigate(path string, _ bool) {
	q.paths = append(q.paths, path)
}

func (q *navQueue) drain() []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(q.paths))
	for _, p := range q.paths {
		path := p
		cmds = append(cmds, func() tea.Msg { return locationMsg{path: path} })
	}
	q.paths = q.paths[:0]
	return cmds
}

// Model is the root bubbletea model of the workbench.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     Config
	backend Backend
	logger  *slog.Logger
	keys    KeyMap
	theme   theme.Theme

	ws      *workspace.Workspace
	sync    *route.Synchronizer
	nav     *navQueue
	tracker *params.Tracker

	saved       []core.Query
	savedLoaded bool
	queryCursor int

	cache         *catalog.Cache
	catalog       *core.Catalog
	catalogErr    error
	filter        textinput.Model
	expanded      map[string]bool
	catalogCursor int

	runs      []core.QueryRun
	runsFor   string
	runCursor int

	editor      textarea.Model
	paramInput  textinput.Model
	paramCursor int

	// Execution state. gen increases whenever the results context is reset.
	gen         int
	executionID string
	poller      *poller.Poller
	stopPoll    context.CancelFunc
	events      chan tea.Msg
	running     bool
	results     *core.QueryResults
	pager       results.Pager

	spinner   spinner.Model
	help      help.Model
	dialog    textinput.Model
	mode      mode
	confirm   *confirmation
	errText   string
	status    string
	statusErr bool
	focus     pane

	width  int
	height int
}

// New creates the workbench model.
func New(ctx context.Context, cfg Config) *Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Store == nil {
		cfg.Store = state.NewMemoryStore()
	}
	if cfg.Sink == nil {
		cfg.Sink = results.FileSink{Dir: "."}
	}
	if cfg.RunsRefresh <= 0 {
		cfg.RunsRefresh = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		backend:  cfg.Backend,
		logger:   cfg.Logger,
		keys:     DefaultKeyMap(),
		theme:    cfg.Theme,
		nav:      &navQueue{},
		cache:    catalog.NewCache(cfg.Backend, cfg.CatalogTTL, cfg.Logger),
		expanded: make(map[string]bool),
		pager:    results.NewPager(cfg.PageSize),
		help:     help.New(),
		focus:    paneEditor,
	}

	m.ws = workspace.New(ctx, cfg.Store, cfg.Backend, cfg.Logger)
	m.sync = route.NewSynchronizer(ctx, m.ws, m.nav, cfg.Store, cfg.Logger)

	m.editor = textarea.New()
	m.editor.ShowLineNumbers = true
	m.editor.Placeholder = workspace.BlankSQL
	m.editor.CharLimit = 0
	m.editor.Focus()

	m.filter = textinput.New()
	m.filter.Prompt = "/ "
	m.filter.Placeholder = "filter databases and tables"

	m.paramInput = textinput.New()
	m.paramInput.Prompt = ""

	m.dialog = textinput.New()
	m.dialog.CharLimit = 200

	m.spinner = spinner.New(spinner.WithSpinner(spinner.MiniDot))

	m.loadActive()
	if cfg.Route != "" {
		m.sync.Visit(cfg.Route)
	} else {
		m.sync.ActiveChanged(false)
	}
	return m
}

// Init starts the initial loads and the run history refresh.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.loadQueries(),
		m.loadCatalog(false),
		m.loadRuns(),
		m.scheduleRunsRefresh(),
	}
	cmds = append(cmds, m.nav.drain()...)
	return tea.Batch(cmds...)
}

// Close stops background work. It is called when the program exits.
func (m *Model) Close() {
	m.resetExecution()
	m.cancel()
}

// Theme returns the current theme.
func (m *Model) Theme() theme.Theme {
	return m.theme
}

// Workspace returns the open query set.
func (m *Model) Workspace() *workspace.Workspace {
	return m.ws
}

// Location returns the current route.
func (m *Model) Location() string {
	return m.sync.Location()
}

// loadActive puts the active query into the editor and starts a fresh
// results context for it.
func (m *Model) loadActive() {
	q, _, ok := m.ws.Active()
	if !ok {
		return
	}
	m.editor.SetValue(q.SQL)
	m.tracker = params.NewTracker(q.SQL)
	m.paramCursor = 0
	m.paramInput.SetValue("")
	m.resetExecution()
	if q.ID != m.runsFor {
		m.runs = nil
		m.runCursor = 0
		m.runsFor = ""
	}
}

// resetExecution stops any poller and drops the results of the previous
// context. Messages still in flight for it become stale.
func (m *Model) resetExecution() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
	if m.stopPoll != nil {
		m.stopPoll()
		m.stopPoll = nil
	}
	m.gen++
	m.events = nil
	m.executionID = ""
	m.running = false
	m.results = nil
	m.pager.Reset()
}

func (m *Model) activeQuery() (core.OpenQuery, int, bool) {
	return m.ws.Active()
}

func (m *Model) setStatus(text string) {
	m.status, m.statusErr = text, false
}

func (m *Model) showError(text string) {
	m.errText = text
	m.mode = modeError
}
