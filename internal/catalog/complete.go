package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// Keywords are offered alongside database names.
var Keywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "HAVING", "LIMIT",
	"JOIN", "LEFT JOIN", "INNER JOIN", "ON", "AS", "AND", "OR", "NOT",
	"DISTINCT", "COUNT", "SUM", "AVG", "MIN", "MAX", "WITH", "UNION ALL",
}

// Context is what the word under the cursor refers to.
type Context int

// Completion contexts.
const (
	ContextDatabase Context = iota
	ContextTable
	ContextColumn
)

var (
	columnRef = regexp.MustCompile(`(\w+)\.(\w+)\.(\w*)$`)
	tableRef  = regexp.MustCompile(`(\w+)\.(\w*)$`)
	wordRef   = regexp.MustCompile(`(\w*)$`)
)

// Completer offers catalog names for the text before the cursor.
type Completer struct {
	catalog func() *core.Catalog
}

// NewCompleter creates a completer reading the catalog through get on every
// call, so it follows cache refreshes.
func NewCompleter(get func() *core.Catalog) *Completer {
	return &Completer{catalog: get}
}

// Candidates returns the typed fragment being completed, its context and the
// full names that extend it. A db.table.col reference is checked before a
// db.table one, so a fragment with two dots always completes columns.
func (c *Completer) Candidates(before string) (string, Context, []string) {
	cat := c.catalog()

	if m := columnRef.FindStringSubmatch(before); m != nil {
		var names []string
		if db, ok := cat.Database(m[1]); ok {
			if t, ok := db.Table(m[2]); ok {
				for _, col := range t.Columns {
					names = append(names, col.Name)
				}
			}
		}
		return m[3], ContextColumn, withPrefix(names, m[3], false)
	}

	if m := tableRef.FindStringSubmatch(before); m != nil {
		var names []string
		if db, ok := cat.Database(m[1]); ok {
			for _, t := range db.Tables {
				names = append(names, t.Name)
			}
		}
		return m[2], ContextTable, withPrefix(names, m[2], false)
	}

	word := wordRef.FindStringSubmatch(before)[1]
	var names []string
	if cat != nil {
		for _, db := range cat.Databases {
			names = append(names, db.Name)
		}
	}
	out := withPrefix(names, word, false)
	if word != "" {
		out = append(out, withPrefix(Keywords, word, true)...)
	}
	return word, ContextDatabase, out
}

// Do implements readline.AutoCompleter.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	typed, _, names := c.Candidates(string(line[:pos]))
	out := make([][]rune, 0, len(names))
	for _, n := range names {
		out = append(out, []rune(n[len(typed):]))
	}
	return out, len([]rune(typed))
}

// CommonPrefix returns the longest prefix shared by names.
func CommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	p := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, p) {
			p = p[:len(p)-1]
		}
	}
	return p
}

func withPrefix(names []string, prefix string, fold bool) []string {
	var out []string
	for _, n := range names {
		if fold {
			if len(n) >= len(prefix) && strings.EqualFold(n[:len(prefix)], prefix) {
				// Keywords follow the case being typed.
				if prefix == strings.ToLower(prefix) {
					n = strings.ToLower(n)
				}
				out = append(out, n)
			}
			continue
		}
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
