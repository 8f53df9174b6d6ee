package catalog

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// Filter narrows the catalog to databases whose name contains text or that
// hold a table whose name does, case-insensitively. Retained databases keep
// only their matching tables. The returned set names the databases to show
// expanded: every retained database with at least one table. A blank text
// returns the catalog unchanged and no expansion.
func Filter(cat *core.Catalog, text string) (*core.Catalog, map[string]bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if cat == nil || needle == "" {
		return cat, nil
	}

	out := &core.Catalog{Databases: []core.Database{}}
	expanded := make(map[string]bool)
	for _, db := range cat.Databases {
		nameMatch := strings.Contains(strings.ToLower(db.Name), needle)
		tables := make([]core.Table, 0, len(db.Tables))
		for _, t := range db.Tables {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				tables = append(tables, t)
			}
		}
		if !nameMatch && len(tables) == 0 {
			continue
		}
		db.Tables = tables
		out.Databases = append(out.Databases, db)
		if len(tables) > 0 {
			expanded[db.Name] = true
		}
	}
	return out, expanded
}

// TableQuerySQL is the exploratory query opened for a table.
func TableQuerySQL(database, table string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s LIMIT 100", database, table)
}
