package tui

import (
	"github.com/leapstack-labs/zeus/pkg/core"
)

// Messages produced by commands. Execution-scoped messages carry the
// generation they were issued under; a message from an older generation is
// stale and dropped.

type queriesLoadedMsg struct {
	queries []core.Query
	err     error
}

type catalogLoadedMsg struct {
	catalog *core.Catalog
	err     error
}

type runsLoadedMsg struct {
	queryID string
	runs    []core.QueryRun
	err     error
}

type runsTickMsg struct{}

type executedMsg struct {
	gen         int
	executionID string
	err         error
}

type resultsMsg struct {
	gen     int
	results *core.QueryResults
}

type terminalMsg struct {
	gen     int
	results *core.QueryResults
}

type pollErrorMsg struct {
	gen int
	err error
}

type pollDoneMsg struct {
	gen int
	err error
}

type pageLoadedMsg struct {
	gen     int
	page    int
	results *core.QueryResults
	err     error
}

type savedMsg struct {
	query *core.Query
	err   error
}

type deletedMsg struct {
	what string
	id   string
	err  error
}

type exportedMsg struct {
	location string
	err      error
}

// locationMsg delivers a location change issued by the synchronizer or
// typed by the user.
type locationMsg struct {
	path string
}

type statusMsg struct {
	text    string
	isError bool
}
