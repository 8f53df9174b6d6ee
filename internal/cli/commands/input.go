package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readSQL returns the SQL text from args, an input file or piped stdin.
func readSQL(cmd *cobra.Command, args []string, inputPath string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case inputPath != "":
		content, err := os.ReadFile(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("no SQL given: pass it as an argument, with --input, or on stdin")
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("no SQL given: pass it as an argument, with --input, or on stdin")
	}
	return string(content), nil
}
