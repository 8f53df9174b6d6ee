package params

import "slices"

// Tracker keeps parameter values in step with the placeholders of the
// SQL being edited.
//
// Values survive edits that keep the same placeholder set and are cleared
// when a name is added or removed. Values seeded from a historical run are
// pinned and never cleared automatically.
type Tracker struct {
	names  []string
	values map[string]string
	pinned bool
}

// NewTracker creates a tracker for the given SQL.
func NewTracker(sql string) *Tracker {
	return &Tracker{
		names:  Extract(sql),
		values: make(map[string]string),
	}
}

// Sync updates the tracked placeholder set from sql. It reports whether
// the values were reset.
func (t *Tracker) Sync(sql string) bool {
	next := Extract(sql)
	changed := !sameSet(t.names, next)
	t.names = next
	if changed && !t.pinned {
		t.values = make(map[string]string)
		return true
	}
	return false
}

// Seed replaces the values with those of a historical run and pins them.
func (t *Tracker) Seed(values map[string]string) {
	t.values = make(map[string]string, len(values))
	for k, v := range values {
		t.values[k] = v
	}
	t.pinned = true
}

// Unpin allows the next placeholder set change to reset values again.
func (t *Tracker) Unpin() {
	t.pinned = false
}

// Pinned reports whether values were seeded from a run.
func (t *Tracker) Pinned() bool {
	return t.pinned
}

// Set stores the value for a placeholder.
func (t *Tracker) Set(name, value string) {
	t.values[name] = value
}

// Get returns the value for a placeholder.
func (t *Tracker) Get(name string) string {
	return t.values[name]
}

// Names returns the current placeholder names.
func (t *Tracker) Names() []string {
	return slices.Clone(t.names)
}

// Values returns a copy of the values for the current placeholders.
func (t *Tracker) Values() map[string]string {
	out := make(map[string]string, len(t.names))
	for _, name := range t.names {
		if v, ok := t.values[name]; ok {
			out[name] = v
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
