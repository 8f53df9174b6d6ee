package tui

import (
	"github.com/leapstack-labs/zeus/internal/catalog"
	"github.com/leapstack-labs/zeus/pkg/core"
)

// treeRow is one visible line of the catalog browser.
type treeRow struct {
	database string
	table    string
	kind     string
	expanded bool
}

func (r treeRow) isTable() bool {
	return r.table != ""
}

// catalogRows flattens the filtered catalog. A filter expands every
// database it kept tables of; otherwise only the databases toggled open.
func catalogRows(cat *core.Catalog, filter string, toggled map[string]bool) []treeRow {
	if cat == nil {
		return nil
	}
	filtered, autoExpanded := catalog.Filter(cat, filter)

	var rows []treeRow
	for _, db := range filtered.Databases {
		open := toggled[db.Name] || autoExpanded[db.Name]
		rows = append(rows, treeRow{database: db.Name, expanded: open})
		if !open {
			continue
		}
		for _, t := range db.Tables {
			rows = append(rows, treeRow{database: db.Name, table: t.Name, kind: t.Type})
		}
	}
	return rows
}
