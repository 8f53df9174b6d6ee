package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/zeus/internal/poller"
	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/leapstack-labs/zeus/pkg/core"
)

func (m *Model) loadQueries() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		queries, err := backend.ListQueries(ctx)
		return queriesLoadedMsg{queries: queries, err: err}
	}
}

func (m *Model) loadCatalog(refresh bool) tea.Cmd {
	ctx, cache := m.ctx, m.cache
	if refresh {
		cache.Invalidate()
	}
	return func() tea.Msg {
		cat, err := cache.Get(ctx)
		return catalogLoadedMsg{catalog: cat, err: err}
	}
}

// loadRuns fetches the run history of the active query. Unsaved queries
// have none.
func (m *Model) loadRuns() tea.Cmd {
	q, _, ok := m.activeQuery()
	if !ok || !q.Saved() {
		return nil
	}
	ctx, backend, id := m.ctx, m.backend, q.ID
	return func() tea.Msg {
		runs, err := backend.ListRuns(ctx, id)
		return runsLoadedMsg{queryID: id, runs: runs, err: err}
	}
}

func (m *Model) scheduleRunsRefresh() tea.Cmd {
	return tea.Tick(m.cfg.RunsRefresh, func(time.Time) tea.Msg { return runsTickMsg{} })
}

// submit sends the SQL of the active query for execution.
func (m *Model) submit(queryID, sql string, values map[string]string) tea.Cmd {
	ctx, backend, gen := m.ctx, m.backend, m.gen
	return func() tea.Msg {
		id, err := backend.Execute(ctx, queryID, sql, values)
		return executedMsg{gen: gen, executionID: id, err: err}
	}
}

// startPolling polls executionID under the current generation. Poller
// callbacks are turned into messages through a channel the model listens
// on. Initial is the last known status, so a run already finished does not
// report a transition.
func (m *Model) startPolling(executionID string, initial core.RunStatus) tea.Cmd {
	pctx, stop := context.WithCancel(m.ctx)
	events := make(chan tea.Msg, 8)
	gen := m.gen

	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-pctx.Done():
		}
	}

	p := poller.New(m.backend,
		poller.WithInterval(m.cfg.PollInterval),
		poller.WithPage(m.pager.Page, m.pager.Size),
		poller.WithLogger(m.logger),
		poller.WithInitialStatus(initial),
		poller.OnUpdate(func(res *core.QueryResults) { send(resultsMsg{gen: gen, results: res}) }),
		poller.OnTerminal(func(res *core.QueryResults) { send(terminalMsg{gen: gen, results: res}) }),
		poller.OnError(func(err error) { send(pollErrorMsg{gen: gen, err: err}) }),
	)

	m.executionID = executionID
	m.poller = p
	m.stopPoll = stop
	m.events = events
	m.running = true

	run := func() tea.Msg {
		_, err := p.Run(pctx, executionID)
		close(events)
		if errors.Is(err, poller.ErrStopped) || errors.Is(err, context.Canceled) {
			err = nil
		}
		return pollDoneMsg{gen: gen, err: err}
	}
	return tea.Batch(run, listen(events), m.spinner.Tick)
}

// listen waits for the next poller event. A closed channel yields no
// message.
func listen(events chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) fetchPage() tea.Cmd {
	ctx, backend, gen := m.ctx, m.backend, m.gen
	id, page, size := m.executionID, m.pager.Page, m.pager.Size
	return func() tea.Msg {
		res, err := backend.Results(ctx, id, page, size)
		return pageLoadedMsg{gen: gen, page: page, results: res, err: err}
	}
}

func (m *Model) saveActive(name string) tea.Cmd {
	_, index, ok := m.activeQuery()
	if !ok {
		return nil
	}
	ctx, ws := m.ctx, m.ws
	return func() tea.Msg {
		q, err := ws.SaveQuery(ctx, index, name)
		return savedMsg{query: q, err: err}
	}
}

func (m *Model) deleteQuery(id string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return deletedMsg{what: "query", id: id, err: backend.DeleteQuery(ctx, id)}
	}
}

func (m *Model) deleteRun(id string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return deletedMsg{what: "run", id: id, err: backend.DeleteRun(ctx, id)}
	}
}

func (m *Model) export() tea.Cmd {
	ctx, backend, sink, id, logger := m.ctx, m.backend, m.cfg.Sink, m.executionID, m.logger
	return func() tea.Msg {
		loc, err := results.Export(ctx, backend, id, sink)
		if err == nil {
			logger.Info("results exported", slog.String("execution_id", id), slog.String("location", loc))
		}
		return exportedMsg{location: loc, err: err}
	}
}
