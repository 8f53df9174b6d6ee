package route

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/pkg/core"
)

// Origin tags a pending navigation with who caused it.
type Origin int

// Navigation origins.
const (
	OriginNone Origin = iota
	// OriginUser marks a navigation issued by the synchronizer itself
	// after the active query changed. Its echo must not be reconciled.
	OriginUser
	// OriginExternal marks a location typed or opened from outside.
	OriginExternal
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginExternal:
		return "external"
	default:
		return "none"
	}
}

// Action reports what a reconciliation did.
type Action int

// Reconciliation outcomes.
const (
	ActionNone Action = iota
	// ActionSuppressed means the change echoed our own navigation.
	ActionSuppressed
	// ActionActivated means an already open query was activated.
	ActionActivated
	// ActionOpened means a saved query was opened from the catalog.
	ActionOpened
	// ActionReplaced means the location was rewritten to the active query.
	ActionReplaced
	// ActionWaiting means the query list has not loaded yet.
	ActionWaiting
)

// Navigator changes the current location. Replace rewrites the current
// history entry instead of pushing a new one.
type Navigator interface {
	Navigate(path string, replace bool)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string, replace bool)

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string, replace bool) {
	f(path, replace)
}

// Tabs is the part of the open query set the synchronizer drives.
type Tabs interface {
	Active() (core.OpenQuery, int, bool)
	IndexOf(id string) int
	SetActive(index int) error
	OpenQuery(q core.Query) int
}

// Synchronizer reconciles the active query with the location.
type Synchronizer struct {
	mu       sync.Mutex
	tabs     Tabs
	nav      Navigator
	location string
	pending  Origin

	store  state.Store
	key    state.Key[string]
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer. The last location is restored
// from store when one is given.
func NewSynchronizer(ctx context.Context, tabs Tabs, nav Navigator, store state.Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Synchronizer{
		tabs:     tabs,
		nav:      nav,
		location: Root,
		store:    store,
		key:      state.Key[string]{Name: state.RouteKey, Default: Root},
		logger:   logger,
	}
	if store != nil {
		s.location = s.key.Load(ctx, store, logger)
	}
	return s
}

// Location returns the current location.
func (s *Synchronizer) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Pending returns the origin of the navigation awaiting its echo.
func (s *Synchronizer) Pending() Origin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// navigateLocked records and issues a navigation. The navigator is called
// after the lock is released by the caller through the returned func.
func (s *Synchronizer) navigateLocked(path string, replace bool, origin Origin) func() {
	s.location = path
	s.pending = origin
	s.persistLocked()
	s.logger.Debug("navigate", slog.String("path", path), slog.Bool("replace", replace), slog.String("origin", origin.String()))
	return func() {
		if s.nav != nil {
			s.nav.Navigate(path, replace)
		}
	}
}

func (s *Synchronizer) persistLocked() {
	if s.store == nil {
		return
	}
	_ = s.key.Store(context.Background(), s.store, s.logger, s.location)
}

// ActiveChanged pushes the active query into the location. push selects a
// new history entry over replacing the current one. An unsaved or missing
// active query has no location of its own, so the current one is replaced
// with the root.
func (s *Synchronizer) ActiveChanged(push bool) {
	target, replace := Root, true
	if q, _, ok := s.tabs.Active(); ok && q.Saved() {
		target, replace = QueryURL(q.ID, q.Name), !push
	}

	s.mu.Lock()
	if target == s.location {
		s.mu.Unlock()
		return
	}
	issue := s.navigateLocked(target, replace, OriginUser)
	s.mu.Unlock()
	issue()
}

// Visit navigates to path on behalf of something outside the workbench.
// The following LocationChanged reconciles it.
func (s *Synchronizer) Visit(path string) {
	s.mu.Lock()
	issue := s.navigateLocked(path, false, OriginExternal)
	s.mu.Unlock()
	issue()
}

// LocationChanged reconciles the active query with a new location. A
// pending user navigation is consumed here and suppresses the reaction
// exactly once. Saved is the list of saved queries and loaded reports
// whether it has been fetched.
func (s *Synchronizer) LocationChanged(path string, saved []core.Query, loaded bool) Action {
	s.mu.Lock()
	origin := s.pending
	s.pending = OriginNone
	if path != s.location {
		s.location = path
		s.persistLocked()
	}
	s.mu.Unlock()

	if origin == OriginUser {
		return ActionSuppressed
	}
	return s.reconcile(path, saved, loaded)
}

// Resolve re-runs reconciliation of the current location, typically once
// the saved query list arrives.
func (s *Synchronizer) Resolve(saved []core.Query, loaded bool) Action {
	return s.reconcile(s.Location(), saved, loaded)
}

func (s *Synchronizer) reconcile(path string, saved []core.Query, loaded bool) Action {
	r := Parse(path)

	if r.IsZero() {
		q, _, ok := s.tabs.Active()
		if !ok || !q.Saved() {
			return ActionNone
		}
		s.mu.Lock()
		issue := s.navigateLocked(QueryURL(q.ID, q.Name), true, OriginUser)
		s.mu.Unlock()
		issue()
		return ActionReplaced
	}

	if i := s.tabs.IndexOf(r.QueryID); i != -1 {
		if _, active, _ := s.tabs.Active(); active == i {
			return ActionNone
		}
		if err := s.tabs.SetActive(i); err != nil {
			return ActionNone
		}
		return ActionActivated
	}

	if !loaded {
		return ActionWaiting
	}
	for _, q := range saved {
		if q.ID == r.QueryID {
			s.tabs.OpenQuery(q)
			s.logger.Debug("opened query from location", slog.String("id", q.ID))
			return ActionOpened
		}
	}
	return ActionNone
}
