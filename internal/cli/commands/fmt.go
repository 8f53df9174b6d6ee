package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/zeus/internal/sqlfmt"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Input string
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}

	cmd := &cobra.Command{
		Use:   "fmt [SQL]",
		Short: "Format SQL",
		Long: `Format SQL the way the workbench editor does: keywords upper-cased and
each clause on its own line. SQL that cannot be tokenized safely (an
unterminated string, unbalanced parentheses) is reported and left as is.`,
		Example: `  zeus fmt "select a from t where b = 1"
  zeus fmt --input report.sql --write
  cat report.sql | zeus fmt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Rewrite the input file in place")

	return cmd
}

func runFmt(cmd *cobra.Command, args []string, opts *FmtOptions) error {
	if opts.Write && opts.Input == "" {
		return fmt.Errorf("--write requires --input")
	}

	src, err := readSQL(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	formatted, err := sqlfmt.Format(src)
	if err != nil {
		return err
	}

	if opts.Write {
		info, err := os.Stat(opts.Input)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Input, []byte(formatted+"\n"), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.Input, err)
		}
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(formatted, "\n"))
	return nil
}
