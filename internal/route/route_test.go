package route

import (
	"context"
	"testing"

	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/leapstack-labs/zeus/internal/workspace"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Daily Revenue", "daily-revenue"},
		{"  spaced   out  ", "spaced-out"},
		{"under_score--dash", "under-score-dash"},
		{"Top 10 (by region)!", "top-10-by-region"},
		{"Café Crème", "cafe-creme"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestQueryURL(t *testing.T) {
	assert.Equal(t, "/query/q1/daily-revenue", QueryURL("q1", "Daily Revenue"))
	assert.Equal(t, "/query/q1", QueryURL("q1", "!!!"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		path string
		want Route
	}{
		{"/query/q1/daily", Route{QueryID: "q1", Slug: "daily"}},
		{"/query/q1", Route{QueryID: "q1"}},
		{"query/q1/", Route{QueryID: "q1"}},
		{"/query/q1/daily?tab=2", Route{QueryID: "q1", Slug: "daily"}},
		{"/query/a%2Fb", Route{QueryID: "a/b"}},
		{"/", Route{}},
		{"/query", Route{}},
		{"/other/q1", Route{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.path))
		})
	}

	r := Route{QueryID: "a/b", Slug: "x"}
	assert.Equal(t, r, Parse(r.String()))
	assert.Equal(t, Root, Route{}.String())
}

type navCall struct {
	path    string
	replace bool
}

type recorder struct {
	calls []navCall
}

func (r *recorder) Navigate(path string, replace bool) {
	r.calls = append(r.calls, navCall{path, replace})
}

func setup(t *testing.T) (*workspace.Workspace, *Synchronizer, *recorder, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	logger := testutil.NewTestLogger(t)
	ws := workspace.New(context.Background(), store, nil, logger)
	nav := &recorder{}
	return ws, NewSynchronizer(context.Background(), ws, nav, store, logger), nav, store
}

func TestActiveChanged_NavigatesSavedQuery(t *testing.T) {
	ws, s, nav, _ := setup(t)

	s.ActiveChanged(true)
	assert.Empty(t, nav.calls, "unsaved active query has no location")

	ws.OpenQuery(core.Query{ID: "q1", Name: "Daily Revenue"})
	s.ActiveChanged(true)
	require.Len(t, nav.calls, 1)
	assert.Equal(t, navCall{"/query/q1/daily-revenue", false}, nav.calls[0])
	assert.Equal(t, OriginUser, s.Pending())

	s.ActiveChanged(true)
	assert.Len(t, nav.calls, 1, "same location is not navigated twice")
}

func TestLocationChanged_EchoSuppressedOnce(t *testing.T) {
	ws, s, _, _ := setup(t)
	ws.OpenQuery(core.Query{ID: "q1", Name: "one"})
	ws.OpenQuery(core.Query{ID: "q2", Name: "two"})

	s.ActiveChanged(true)
	assert.Equal(t, ActionSuppressed, s.LocationChanged(s.Location(), nil, true))
	assert.Equal(t, OriginNone, s.Pending())

	// The next change is reconciled normally.
	assert.Equal(t, ActionActivated, s.LocationChanged("/query/q1/one", nil, true))
	q, _, _ := ws.Active()
	assert.Equal(t, "q1", q.ID)
}

func TestLocationChanged_OpensFromSavedList(t *testing.T) {
	ws, s, _, _ := setup(t)
	saved := []core.Query{{ID: "q9", Name: "nine", SQL: "SELECT 9"}}

	assert.Equal(t, ActionWaiting, s.LocationChanged("/query/q9", nil, false))
	assert.Equal(t, 1, ws.Len())

	assert.Equal(t, ActionOpened, s.Resolve(saved, true))
	q, _, _ := ws.Active()
	assert.Equal(t, "q9", q.ID)
	assert.Equal(t, "SELECT 9", q.SQL)

	assert.Equal(t, ActionNone, s.Resolve(saved, true), "already active")
}

func TestLocationChanged_UnknownIDDoesNothing(t *testing.T) {
	ws, s, nav, _ := setup(t)

	assert.Equal(t, ActionNone, s.LocationChanged("/query/missing", []core.Query{{ID: "q1"}}, true))
	assert.Equal(t, 1, ws.Len())
	assert.Empty(t, nav.calls)
}

func TestLocationChanged_RootReplacesWithActive(t *testing.T) {
	ws, s, nav, _ := setup(t)
	assert.Equal(t, ActionNone, s.LocationChanged(Root, nil, true))

	ws.OpenQuery(core.Query{ID: "q1", Name: "one"})
	assert.Equal(t, ActionReplaced, s.LocationChanged(Root, nil, true))
	require.Len(t, nav.calls, 1)
	assert.Equal(t, navCall{"/query/q1/one", true}, nav.calls[0])
	assert.Equal(t, OriginUser, s.Pending())
}

func TestVisit_IsReconciled(t *testing.T) {
	ws, s, nav, _ := setup(t)
	ws.OpenQuery(core.Query{ID: "q1", Name: "one"})
	ws.CreateNewQuery()

	s.Visit("/query/q1")
	require.Len(t, nav.calls, 1)
	assert.Equal(t, OriginExternal, s.Pending())

	assert.Equal(t, ActionActivated, s.LocationChanged("/query/q1", nil, true))
	assert.Equal(t, 1, ws.ActiveIndex())
}

func TestSynchronizer_RestoresLocation(t *testing.T) {
	ws, s, _, store := setup(t)
	ws.OpenQuery(core.Query{ID: "q1", Name: "one"})
	s.ActiveChanged(true)

	restored := NewSynchronizer(context.Background(), ws, nil, store, nil)
	assert.Equal(t, "/query/q1/one", restored.Location())
}

func TestActiveChanged_UnsavedReplacesWithRoot(t *testing.T) {
	ws, s, nav, _ := setup(t)
	ws.OpenQuery(core.Query{ID: "q1", Name: "one"})
	s.ActiveChanged(true)

	ws.CreateNewQuery()
	s.ActiveChanged(true)
	require.Len(t, nav.calls, 2)
	assert.Equal(t, navCall{Root, true}, nav.calls[1])
	assert.Equal(t, Root, s.Location())
}

func TestSynchronizer_RestartKeepsUnsavedActive(t *testing.T) {
	ws, s, _, store := setup(t)
	saved := []core.Query{{ID: "a1", Name: "alpha"}}
	ws.OpenQuery(saved[0])
	s.ActiveChanged(true)
	ws.CreateNewQuery()
	s.ActiveChanged(true)
	require.Equal(t, 2, ws.ActiveIndex())

	logger := testutil.NewTestLogger(t)
	restoredWS := workspace.New(context.Background(), store, nil, logger)
	restored := NewSynchronizer(context.Background(), restoredWS, nil, store, logger)
	require.Equal(t, 2, restoredWS.ActiveIndex())

	assert.Equal(t, ActionNone, restored.Resolve(saved, true))
	assert.Equal(t, 2, restoredWS.ActiveIndex())
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	NavigatorFunc(func(path string, _ bool) { got = path }).Navigate("/x", false)
	assert.Equal(t, "/x", got)
}
