package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/zeus/internal/api"
	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

func newBackendClient(t *testing.T) (*testutil.FakeBackend, *api.Client) {
	t.Helper()
	b := testutil.NewFakeBackend(t)
	c, err := api.New(b.URL())
	require.NoError(t, err)
	return b, c
}

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.Observe(core.RunStatusQueued))
	assert.False(t, tr.Observe(core.RunStatusRunning))
	assert.Equal(t, core.RunStatusQueued, tr.Previous())
	assert.True(t, tr.Observe(core.RunStatusSucceeded))
	assert.False(t, tr.Observe(core.RunStatusSucceeded), "repeated terminal status")

	fresh := Tracker{}
	assert.True(t, fresh.Observe(core.RunStatusFailed), "fresh submission finishing on first poll")

	known := NewTracker(core.RunStatusSucceeded)
	assert.False(t, known.Observe(core.RunStatusSucceeded))
}

func TestTracker_Accepts(t *testing.T) {
	var tr Tracker
	assert.True(t, tr.Accepts(core.RunStatusRunning), "first observation")

	tr.Observe(core.RunStatusRunning)
	assert.True(t, tr.Accepts(core.RunStatusRunning))
	assert.False(t, tr.Accepts(core.RunStatusQueued))
	assert.True(t, tr.Accepts(core.RunStatusCancelled))

	tr.Observe(core.RunStatusFailed)
	assert.False(t, tr.Accepts(core.RunStatusSucceeded), "terminal is final")
	assert.False(t, tr.Accepts(core.RunStatus("PAUSED")))
}

type sequenceFetcher struct {
	mu       sync.Mutex
	statuses []core.RunStatus
	calls    int
}

func (f *sequenceFetcher) Results(_ context.Context, _ string, page, size int) (*core.QueryResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.statuses)-1)
	f.calls++
	return &core.QueryResults{Status: f.statuses[i], Page: page, Size: size}, nil
}

func TestRun_IgnoresStatusRegression(t *testing.T) {
	f := &sequenceFetcher{statuses: []core.RunStatus{
		core.RunStatusRunning, core.RunStatusQueued, core.RunStatusSucceeded,
	}}
	var statuses []core.RunStatus
	p := New(f,
		WithInterval(testInterval),
		WithLogger(testutil.NewTestLogger(t)),
		OnUpdate(func(r *core.QueryResults) { statuses = append(statuses, r.Status) }),
	)

	res, err := p.Run(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSucceeded, res.Status)
	assert.Equal(t, []core.RunStatus{core.RunStatusRunning, core.RunStatusSucceeded}, statuses)
	assert.Equal(t, 3, f.calls)
}

func TestRun_RegressionAfterKnownTerminalStops(t *testing.T) {
	f := &sequenceFetcher{statuses: []core.RunStatus{core.RunStatusRunning}}
	fired := false
	p := New(f,
		WithInterval(testInterval),
		WithInitialStatus(core.RunStatusSucceeded),
		OnTerminal(func(*core.QueryResults) { fired = true }),
	)

	res, err := p.Run(context.Background(), "exec-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, f.calls)
	assert.False(t, fired)
	assert.Equal(t, core.RunStatusSucceeded, p.Status())
}

func TestStopwatch(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw := NewStopwatch(func() time.Time { return now })

	sw.Stop()
	assert.Zero(t, sw.Elapsed())
	assert.False(t, sw.Running())

	sw.Start()
	now = now.Add(3 * time.Second)
	sw.Start()
	assert.True(t, sw.Running())
	assert.Equal(t, 3*time.Second, sw.Elapsed())

	sw.Stop()
	now = now.Add(time.Minute)
	assert.Equal(t, 3*time.Second, sw.Elapsed())
	assert.False(t, sw.Running())
}

func TestRun_PollsUntilTerminal(t *testing.T) {
	b, c := newBackendClient(t)
	b.Columns = []string{"id"}
	b.Rows = [][]string{{"1"}, {"2"}}
	b.DefaultStatuses = []core.RunStatus{core.RunStatusQueued, core.RunStatusRunning, core.RunStatusSucceeded}

	execID, err := c.ExecuteAdHoc(context.Background(), core.ExecuteRequest{SQL: "SELECT 1"})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		statuses []core.RunStatus
		terminal int32
	)
	p := New(c,
		WithInterval(testInterval),
		OnUpdate(func(r *core.QueryResults) {
			mu.Lock()
			statuses = append(statuses, r.Status)
			mu.Unlock()
		}),
		OnTerminal(func(*core.QueryResults) { atomic.AddInt32(&terminal, 1) }),
	)

	res, err := p.Run(context.Background(), execID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSucceeded, res.Status)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, []core.RunStatus{core.RunStatusQueued, core.RunStatusRunning, core.RunStatusSucceeded}, statuses)
	assert.Equal(t, int32(1), atomic.LoadInt32(&terminal))
	assert.Equal(t, 3, b.Calls("GET /api/athena/results/{executionId}"))
	assert.Equal(t, core.RunStatusSucceeded, p.Status())
	assert.Positive(t, p.Elapsed())
}

func TestRun_TerminalOnFirstPollStopsImmediately(t *testing.T) {
	b, c := newBackendClient(t)
	b.DefaultStatuses = []core.RunStatus{core.RunStatusFailed}
	execID, err := c.ExecuteAdHoc(context.Background(), core.ExecuteRequest{SQL: "SELEC"})
	require.NoError(t, err)

	var terminal int32
	p := New(c, WithInterval(testInterval), OnTerminal(func(*core.QueryResults) { atomic.AddInt32(&terminal, 1) }))
	res, err := p.Run(context.Background(), execID)
	require.NoError(t, err)

	assert.Equal(t, "SYNTAX_ERROR: line 1:8", res.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&terminal))
	assert.Equal(t, 1, b.Calls("GET /api/athena/results/{executionId}"))
	assert.Zero(t, p.Elapsed(), "clock never started")
}

func TestRun_KnownTerminalRunDoesNotFire(t *testing.T) {
	_, c := newBackendClient(t)
	execID, err := c.ExecuteAdHoc(context.Background(), core.ExecuteRequest{SQL: "SELECT 1"})
	require.NoError(t, err)

	fired := false
	p := New(c, WithInitialStatus(core.RunStatusSucceeded), OnTerminal(func(*core.QueryResults) { fired = true }))
	_, err = p.Run(context.Background(), execID)
	require.NoError(t, err)
	assert.False(t, fired)
}

type flakyFetcher struct {
	calls int32
}

func (f *flakyFetcher) Results(_ context.Context, _ string, page, size int) (*core.QueryResults, error) {
	n := atomic.AddInt32(&f.calls, 1)
	switch n {
	case 1:
		return &core.QueryResults{Status: core.RunStatusRunning, Page: page, Size: size}, nil
	case 2:
		return nil, errors.New("connection reset")
	default:
		return &core.QueryResults{Status: core.RunStatusSucceeded, Page: page, Size: size}, nil
	}
}

func TestRun_FetchErrorsAreReportedAndPollingContinues(t *testing.T) {
	f := &flakyFetcher{}
	var errs []error
	p := New(f, WithInterval(testInterval), WithPage(3, 10), OnError(func(err error) { errs = append(errs, err) }))

	res, err := p.Run(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSucceeded, res.Status)
	assert.Equal(t, 3, res.Page)
	assert.Equal(t, 10, res.Size)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "connection reset")
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.calls))
}

func TestRun_StopEndsPolling(t *testing.T) {
	b, c := newBackendClient(t)
	b.DefaultStatuses = []core.RunStatus{core.RunStatusRunning}
	execID, err := c.ExecuteAdHoc(context.Background(), core.ExecuteRequest{SQL: "SELECT 1"})
	require.NoError(t, err)

	p := New(c, WithInterval(testInterval))
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), execID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return b.Calls("GET /api/athena/results/{executionId}") >= 2
	}, time.Second, testInterval)
	p.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	calls := b.Calls("GET /api/athena/results/{executionId}")
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, b.Calls("GET /api/athena/results/{executionId}"), "no fetches after stop")

	_, err = p.Run(context.Background(), execID)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRun_ContextCancel(t *testing.T) {
	b, c := newBackendClient(t)
	b.DefaultStatuses = []core.RunStatus{core.RunStatusQueued}
	execID, err := c.ExecuteAdHoc(context.Background(), core.ExecuteRequest{SQL: "SELECT 1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := New(c, WithInterval(testInterval)).Run(ctx, execID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.Equal(t, core.RunStatusQueued, res.Status)
}
