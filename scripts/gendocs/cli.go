package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/zeus/internal/cli"
	"github.com/leapstack-labs/zeus/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs writes one page per command, an index and the workbench
// key reference.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootCmd := cli.NewRootCmd()

	if err := generateCLIIndex(rootCmd, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	for _, cmd := range documented(rootCmd) {
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.CommandPath(), err)
		}
		log.Printf("  Generated %s", pageName(cmd))
	}

	if err := generateKeysPage(outDir); err != nil {
		return fmt.Errorf("failed to generate keys page: %w", err)
	}
	log.Printf("  Generated keys.md")

	return nil
}

// documented returns every visible command below root, depth first.
func documented(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.IsAvailableCommand() || cmd.Name() == "help" {
			continue
		}
		out = append(out, cmd)
		out = append(out, documented(cmd)...)
	}
	return out
}

// pageName is "queries-list.md" for `zeus queries list`.
func pageName(cmd *cobra.Command) string {
	path := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
	return strings.ReplaceAll(path, " ", "-") + ".md"
}

func pageLink(cmd *cobra.Command) string {
	return fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.CommandPath()), strings.TrimSuffix(pageName(cmd), ".md"))
}

func generateCLIIndex(rootCmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("CLI Reference", "Command-line interface reference for zeus")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("zeus runs SQL against the query backend, manages saved queries and their runs, " +
		"browses the catalog and exports results. `zeus ui` starts the interactive workbench; " +
		"see [workbench keys](/cli/keys).")

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/zeus/cmd/zeus@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(rootCmd) {
		rows = append(rows, []string{pageLink(cmd), cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, rootCmd.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set with a `ZEUS_` variable; nested keys join with an underscore. " +
		"Flags win over the environment, which wins over `zeus.yaml`. " +
		"See the [configuration reference](/reference/configuration) for the full list.")
	var envRows [][]string
	for _, f := range getConfigSchema() {
		if f.Category == "general" {
			envRows = append(envRows, []string{InlineCode(f.envName()), f.Description})
		}
	}
	w.Table([]string{"Variable", "Description"}, envRows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success, or a query that reached SUCCEEDED"},
		{InlineCode("1"), "Error, including a query that FAILED or was CANCELLED"},
	})

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

func generateCommandPage(cmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter(cmd.CommandPath(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	w.Paragraph(firstNonEmpty(cmd.Long, cmd.Short))

	w.Header(2, "Usage")
	if cmd.Runnable() {
		w.CodeBlock("bash", cmd.UseLine())
	} else {
		w.CodeBlock("bash", cmd.CommandPath()+" <subcommand> [options]")
	}

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.BulletList(aliases)
	}

	if cmd.HasAvailableSubCommands() {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				rows = append(rows, []string{pageLink(sub), cleanDescription(sub.Short)})
			}
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	return os.WriteFile(filepath.Join(outDir, pageName(cmd)), w.Bytes(), 0600)
}

// generateKeysPage documents the workbench bindings in help order.
func generateKeysPage(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Workbench keys", "Key bindings of zeus ui")
	w.GeneratedMarker()

	w.Header(1, "Workbench keys")
	w.Paragraph("Press `?` in the workbench to toggle this list.")

	var rows [][]string
	for _, group := range tui.DefaultKeyMap().FullHelp() {
		for _, b := range group {
			keys := make([]string, len(b.Keys()))
			for i, k := range b.Keys() {
				keys[i] = InlineCode(k)
			}
			rows = append(rows, []string{strings.Join(keys, ", "), b.Help().Desc})
		}
	}
	w.Table([]string{"Keys", "Action"}, rows)

	return os.WriteFile(filepath.Join(outDir, "keys.md"), w.Bytes(), 0600)
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}

		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}

		defVal := f.DefValue
		switch {
		case defVal == "", f.Value.Type() == "bool":
		case defVal == "[]":
			defVal = ""
		default:
			defVal = InlineCode(defVal)
		}

		rows = append(rows, []string{InlineCode("--" + f.Name), short, defVal, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}

	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
