package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/zeus/internal/catalog"
	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/spf13/cobra"
)

// CatalogOptions holds options for the catalog command.
type CatalogOptions struct {
	Filter  string
	Columns bool
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	opts := &CatalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog [database[.table]]",
		Short: "Browse databases, tables and columns",
		Long: `Show the database catalog as a tree.

--filter keeps databases whose name, or the name of one of their tables,
contains the text (case-insensitive). Databases matched through a table list
only the matching tables. Naming a table prints its columns and the
exploratory query that opens it.`,
		Example: `  # Whole catalog
  zeus catalog

  # Only what matches "order"
  zeus catalog --filter order

  # Columns of a table
  zeus catalog sales.orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Filter databases and tables by name")
	cmd.Flags().BoolVar(&opts.Columns, "columns", false, "List columns under each table")

	return cmd
}

func runCatalog(cmd *cobra.Command, args []string, opts *CatalogOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	cache := catalog.NewCache(cmdCtx.Client, cmdCtx.Cfg.CatalogTTL, cmdCtx.Logger)
	cat, err := cache.Get(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if len(args) == 1 {
		return renderCatalogTarget(r, cat, args[0])
	}

	filtered, _ := catalog.Filter(cat, opts.Filter)

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML, output.ModeCSV:
		return renderListing(r, catalogListing(filtered))
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Catalog"))
		r.Println()
		for _, db := range filtered.Databases {
			r.Println(output.FormatHeader(2, db.Name))
			for _, t := range db.Tables {
				r.Printf("- %s (%s)\n", t.Name, t.Type)
				if opts.Columns {
					for _, c := range t.Columns {
						r.Printf("  - %s `%s`\n", c.Name, c.Type)
					}
				}
			}
			r.Println()
		}
	default:
		if len(filtered.Databases) == 0 {
			r.Muted("No databases found")
			return nil
		}
		styles := r.Styles()
		for _, db := range filtered.Databases {
			r.Println(styleIf(r, styles.Header.Render, db.Name))
			for i, t := range db.Tables {
				branch := "├─"
				if i == len(db.Tables)-1 {
					branch = "└─"
				}
				r.Printf("  %s %s %s\n", branch, t.Name, styleIf(r, styles.Muted.Render, t.Type))
				if opts.Columns {
					for _, c := range t.Columns {
						r.Printf("  │    %s %s\n", c.Name, styleIf(r, styles.Muted.Render, c.Type))
					}
				}
			}
		}
	}
	return nil
}

func styleIf(r *output.Renderer, render func(...string) string, s string) string {
	if !r.IsTTY() {
		return s
	}
	return render(s)
}

func catalogListing(cat *core.Catalog) listing {
	l := listing{Columns: []string{"Database", "Table", "Type", "Columns"}, Data: cat}
	for _, db := range cat.Databases {
		if len(db.Tables) == 0 {
			l.Rows = append(l.Rows, []string{db.Name, "", "", ""})
			continue
		}
		for _, t := range db.Tables {
			l.Rows = append(l.Rows, []string{db.Name, t.Name, t.Type, fmt.Sprintf("%d", len(t.Columns))})
		}
	}
	return l
}

func renderCatalogTarget(r *output.Renderer, cat *core.Catalog, target string) error {
	dbName, tableName, hasTable := strings.Cut(target, ".")
	db, ok := cat.Database(dbName)
	if !ok {
		return fmt.Errorf("database %q not found", dbName)
	}

	if !hasTable {
		l := listing{Columns: []string{"Table", "Type", "Columns"}, Data: db}
		for _, t := range db.Tables {
			l.Rows = append(l.Rows, []string{t.Name, t.Type, fmt.Sprintf("%d", len(t.Columns))})
		}
		return renderListing(r, l)
	}

	t, ok := db.Table(tableName)
	if !ok {
		return fmt.Errorf("table %q not found in %s", tableName, dbName)
	}

	l := listing{Columns: []string{"Column", "Type"}, Data: t}
	for _, c := range t.Columns {
		l.Rows = append(l.Rows, []string{c.Name, c.Type})
	}

	mode := r.EffectiveMode()
	if mode == output.ModeText || mode == output.ModeMarkdown {
		r.Header(1, dbName+"."+t.Name)
		if t.Location != "" {
			r.KeyValue("Location", t.Location)
		}
		if t.InputFormat != "" {
			r.KeyValue("Input format", t.InputFormat)
		}
		r.KeyValue("Query", catalog.TableQuerySQL(dbName, t.Name))
		r.Println()
	}
	return renderListing(r, l)
}
