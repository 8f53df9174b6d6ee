// Package workspace manages the ordered set of open queries (tabs) and the
// active one, persisting both after every change.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/pkg/core"
)

// Defaults for new queries.
const (
	UnsavedName = "Unsaved Query"
	BlankSQL    = "-- Enter your SQL query here\n"
)

var (
	// ErrIndexOutOfRange is returned for an index that names no open query.
	ErrIndexOutOfRange = errors.New("query index out of range")
	// ErrEmptyName is returned when saving without a name.
	ErrEmptyName = errors.New("query name is required")
	// ErrClosed is returned when a query was closed while being saved.
	ErrClosed = errors.New("query was closed while saving")
)

// Saver persists queries remotely.
type Saver interface {
	CreateQuery(ctx context.Context, in core.QueryInput) (*core.Query, error)
	UpdateQuery(ctx context.Context, id string, in core.QueryInput) (*core.Query, error)
}

// Patch holds the fields to merge into an open query. Nil fields are left
// untouched.
type Patch struct {
	Name        *string
	SQL         *string
	Description *string
}

// SQLPatch is a Patch that only changes the SQL text.
func SQLPatch(sql string) Patch {
	return Patch{SQL: &sql}
}

// Workspace holds the open queries and the active index.
//
// Invariant: active is a valid index into queries, or -1 iff queries is
// empty. Outside of CloseQuery the list is never empty.
type Workspace struct {
	mu      sync.Mutex
	queries []core.OpenQuery
	// keys identify entries across index shifts while a save is in flight.
	keys    []uint64
	nextKey uint64
	active  int

	store  state.Store
	saver  Saver
	logger *slog.Logger

	queriesKey state.Key[[]core.OpenQuery]
	activeKey  state.Key[int]
}

// New loads the persisted workspace from store. A missing or corrupt state
// yields a single blank query.
func New(ctx context.Context, store state.Store, saver Saver, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if store == nil {
		store = state.NewMemoryStore()
	}

	w := &Workspace{
		store:      store,
		saver:      saver,
		logger:     logger,
		active:     -1,
		queriesKey: state.Key[[]core.OpenQuery]{Name: state.OpenQueriesKey},
		activeKey:  state.Key[int]{Name: state.ActiveIndexKey},
	}

	loaded := w.queriesKey.Load(ctx, store, logger)
	for _, q := range loaded {
		w.appendLocked(q)
	}
	w.active = w.activeKey.Load(ctx, store, logger)

	if len(w.queries) == 0 {
		w.appendLocked(blankQuery())
		w.active = 0
	}
	w.active = clamp(w.active, len(w.queries))

	logger.Debug("workspace loaded", slog.Int("open", len(w.queries)), slog.Int("active", w.active))
	return w
}

func blankQuery() core.OpenQuery {
	return core.OpenQuery{
		Name:      UnsavedName,
		SQL:       BlankSQL,
		IsUnsaved: true,
	}
}

func clamp(i, n int) int {
	if n == 0 {
		return -1
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (w *Workspace) appendLocked(q core.OpenQuery) int {
	w.nextKey++
	w.queries = append(w.queries, q)
	w.keys = append(w.keys, w.nextKey)
	return len(w.queries) - 1
}

func (w *Workspace) indexOfKeyLocked(key uint64) int {
	for i, k := range w.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// persistLocked writes the list and active index. Failures are logged by
// the keys and otherwise ignored.
func (w *Workspace) persistLocked() {
	ctx := context.Background()
	_ = w.queriesKey.Store(ctx, w.store, w.logger, w.queries)
	_ = w.activeKey.Store(ctx, w.store, w.logger, w.active)
}

// Queries returns a copy of the open queries.
func (w *Workspace) Queries() []core.OpenQuery {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.OpenQuery(nil), w.queries...)
}

// Len returns the number of open queries.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queries)
}

// ActiveIndex returns the index of the active query, or -1.
func (w *Workspace) ActiveIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Active returns the active query.
func (w *Workspace) Active() (core.OpenQuery, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active < 0 {
		return core.OpenQuery{}, -1, false
	}
	return w.queries[w.active], w.active, true
}

// Get returns the query at index.
func (w *Workspace) Get(index int) (core.OpenQuery, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.queries) {
		return core.OpenQuery{}, false
	}
	return w.queries[index], true
}

// IndexOf returns the index of the open query with the given ID, or -1.
func (w *Workspace) IndexOf(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOfIDLocked(id)
}

func (w *Workspace) indexOfIDLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, q := range w.queries {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// OpenQuery activates q if it is already open, otherwise appends it as a
// clean saved entry and activates it. It returns the active index.
func (w *Workspace) OpenQuery(q core.Query) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := w.indexOfIDLocked(q.ID); i != -1 {
		w.active = i
		w.persistLocked()
		return i
	}

	w.active = w.appendLocked(core.OpenQuery{
		ID:          q.ID,
		Name:        q.Name,
		SQL:         q.SQL,
		Description: q.Description,
	})
	w.persistLocked()
	return w.active
}

// CreateNewQuery appends a blank unsaved query and activates it.
func (w *Workspace) CreateNewQuery() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.active = w.appendLocked(blankQuery())
	w.persistLocked()
	return w.active
}

// OpenTableQuery appends an unsaved exploratory query over db.table and
// activates it. Nothing is persisted remotely.
func (w *Workspace) OpenTableQuery(database, table string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.active = w.appendLocked(core.OpenQuery{
		Name:      database + "." + table,
		SQL:       fmt.Sprintf("SELECT * FROM %s.%s LIMIT 100", database, table),
		IsUnsaved: true,
	})
	w.persistLocked()
	return w.active
}

// SetActive activates the query at index.
func (w *Workspace) SetActive(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.queries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	w.active = index
	w.persistLocked()
	return nil
}

// CloseQuery removes the query at index. Closing an entry at or before the
// active one moves the active index one step left. Closing the only entry
// replaces it with a fresh blank query.
func (w *Workspace) CloseQuery(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.queries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	w.queries = append(w.queries[:index], w.queries[index+1:]...)
	w.keys = append(w.keys[:index], w.keys[index+1:]...)

	if w.active >= index && w.active > 0 {
		w.active--
	}
	w.active = clamp(w.active, len(w.queries))

	if len(w.queries) == 0 {
		w.active = w.appendLocked(blankQuery())
	}
	w.persistLocked()
	return nil
}

// UpdateQuery merges patch into the query at index. A SQL value that
// differs from the stored one marks the query dirty.
func (w *Workspace) UpdateQuery(index int, patch Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.queries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	q := &w.queries[index]
	changed := false
	if patch.Name != nil && *patch.Name != q.Name {
		q.Name = *patch.Name
		changed = true
	}
	if patch.Description != nil && *patch.Description != q.Description {
		q.Description = *patch.Description
		changed = true
	}
	if patch.SQL != nil && *patch.SQL != q.SQL {
		q.SQL = *patch.SQL
		q.IsDirty = true
		changed = true
	}
	if changed {
		w.persistLocked()
	}
	return nil
}

// CanSave reports whether the query at index has anything to save.
func (w *Workspace) CanSave(index int) bool {
	q, ok := w.Get(index)
	return ok && (q.IsUnsaved || q.IsDirty)
}

// SaveQuery persists the query at index under name. An unsaved query is
// created remotely and becomes saved in place; a saved one is updated and
// keeps its identity. Either way it ends clean, at the same position.
func (w *Workspace) SaveQuery(ctx context.Context, index int, name string) (*core.Query, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if w.saver == nil {
		return nil, errors.New("workspace has no saver")
	}

	w.mu.Lock()
	if index < 0 || index >= len(w.queries) {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	snapshot := w.queries[index]
	key := w.keys[index]
	w.mu.Unlock()

	in := core.QueryInput{Name: name, SQL: snapshot.SQL, Description: snapshot.Description}

	var (
		saved *core.Query
		err   error
	)
	if snapshot.IsUnsaved || snapshot.ID == "" {
		saved, err = w.saver.CreateQuery(ctx, in)
	} else {
		saved, err = w.saver.UpdateQuery(ctx, snapshot.ID, in)
	}
	if err != nil {
		w.logger.Error("failed to save query", slog.String("name", name), slog.Any("error", err))
		return nil, fmt.Errorf("failed to save query: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOfKeyLocked(key)
	if i == -1 {
		return saved, ErrClosed
	}
	q := &w.queries[i]
	if snapshot.IsUnsaved || snapshot.ID == "" {
		q.ID = saved.ID
		q.IsUnsaved = false
	}
	q.Name = saved.Name
	// Edits made while the request was in flight stay dirty.
	q.IsDirty = q.SQL != snapshot.SQL
	w.persistLocked()

	w.logger.Info("query saved", slog.String("id", saved.ID), slog.String("name", saved.Name))
	return saved, nil
}

// Detach turns open entries of a deleted saved query back into unsaved
// queries, so a later save creates a new record.
func (w *Workspace) Detach(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for i := range w.queries {
		if id != "" && w.queries[i].ID == id {
			w.queries[i].ID = ""
			w.queries[i].IsUnsaved = true
			changed = true
		}
	}
	if changed {
		w.persistLocked()
	}
}
