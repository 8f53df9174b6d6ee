// Package poller fetches the results of an asynchronous execution until it
// reaches a terminal status.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// DefaultInterval is the delay between result fetches.
const DefaultInterval = 2 * time.Second

// ErrStopped is returned by Run when Stop was called.
var ErrStopped = errors.New("poller stopped")

// Fetcher loads one page of results.
type Fetcher interface {
	Results(ctx context.Context, executionID string, page, size int) (*core.QueryResults, error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the delay between fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPage selects the results page to fetch.
func WithPage(page, size int) Option {
	return func(p *Poller) {
		p.page, p.size = page, size
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces time.Now for the elapsed clock.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.watch.now = now
	}
}

// WithInitialStatus sets the last known status of the execution. Polling a
// run already known to be terminal then never reports a transition.
func WithInitialStatus(status core.RunStatus) Option {
	return func(p *Poller) {
		p.tracker = NewTracker(status)
	}
}

// OnUpdate is called with every fetched page.
func OnUpdate(fn func(*core.QueryResults)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// OnTerminal is called once when the status moves from non-terminal to
// terminal.
func OnTerminal(fn func(*core.QueryResults)) Option {
	return func(p *Poller) { p.onTerminal = fn }
}

// OnError is called for each failed fetch. Polling continues.
func OnError(fn func(error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// Poller polls one execution. It is single use.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	page     int
	size     int
	logger   *slog.Logger

	onUpdate   func(*core.QueryResults)
	onTerminal func(*core.QueryResults)
	onError    func(error)

	mu      sync.Mutex
	tracker Tracker
	watch   Stopwatch
	cancel  context.CancelFunc
	stopped bool
}

// New creates a poller for fetcher.
func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		page:     1,
		size:     50,
		logger:   slog.New(slog.DiscardHandler),
		watch:    Stopwatch{now: time.Now},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches results for executionID until a terminal status is observed,
// ctx is cancelled, or Stop is called. It returns the last results.
func (p *Poller) Run(ctx context.Context, executionID string) (*core.QueryResults, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	log := p.logger.With(slog.String("execution_id", executionID))
	var last *core.QueryResults

	for {
		res, err := p.fetcher.Results(ctx, executionID, p.page, p.size)
		switch {
		case ctx.Err() != nil:
			return last, p.stopErr(ctx)
		case err != nil:
			log.Warn("failed to fetch results", slog.Any("error", err))
			if p.onError != nil {
				p.onError(err)
			}
		default:
			done, accepted := p.observe(res, log)
			if accepted {
				last = res
			}
			if done {
				if last == nil {
					last = res
				}
				log.Debug("execution finished", slog.String("status", string(p.Status())))
				return last, nil
			}
		}

		select {
		case <-time.After(p.interval):
		case <-ctx.Done():
			return last, p.stopErr(ctx)
		}
	}
}

// observe records a fetched page. A page whose status moves backwards is
// dropped; polling then ends only if the known status is already terminal.
func (p *Poller) observe(res *core.QueryResults, log *slog.Logger) (done, accepted bool) {
	p.mu.Lock()
	if current := p.tracker.Current(); !p.tracker.Accepts(res.Status) {
		p.mu.Unlock()
		log.Warn("ignoring status regression",
			slog.String("status", string(current)),
			slog.String("received", string(res.Status)))
		return current.IsTerminal(), false
	}
	terminalNow := p.tracker.Observe(res.Status)
	if res.Status.IsTerminal() {
		p.watch.Stop()
	} else {
		p.watch.Start()
	}
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(res)
	}
	if terminalNow && p.onTerminal != nil {
		p.onTerminal(res)
	}
	return res.Status.IsTerminal(), true
}

func (p *Poller) stopErr(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	return ctx.Err()
}

// Stop ends polling. It is safe to call more than once and before Run.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
}

// Status returns the last observed status.
func (p *Poller) Status() core.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracker.Current()
}

// Elapsed returns the time spent in non-terminal statuses so far.
func (p *Poller) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watch.Elapsed()
}
