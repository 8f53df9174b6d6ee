// Package output renders CLI output for terminals, scripts and agents.
//
// Output adapts to the environment: styled text on a TTY, markdown when
// piped, or an explicit format chosen with --output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/zeus/internal/results"
	"golang.org/x/term"
)

// Mode is an output format selected with --output.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeYAML     Mode = "yaml"
)

// Styles are the lipgloss styles used in text mode.
type Styles struct {
	Header  lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Running lipgloss.Style
}

// DefaultStyles returns the text-mode styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Key:     lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Renderer writes command output in the effective mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   Mode
	styles Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: DefaultStyles(),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the text-mode styles.
func (r *Renderer) Styles() Styles { return r.styles }

// EffectiveMode resolves auto: TTY=text, non-TTY=markdown.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// ResultsFormat maps the effective mode to a results.Render format.
func (r *Renderer) ResultsFormat() string {
	switch r.EffectiveMode() {
	case ModeJSON:
		return results.FormatJSON
	case ModeCSV:
		return results.FormatCSV
	case ModeYAML:
		return results.FormatYAML
	case ModeMarkdown:
		return results.FormatMarkdown
	default:
		return results.FormatTable
	}
}

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) styled(s lipgloss.Style, text string) string {
	if !r.isTTY || r.EffectiveMode() != ModeText {
		return text
	}
	return s.Render(text)
}

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println()
		return
	}
	r.Println(r.styled(r.styles.Header, text))
	if level == 1 {
		r.Println(r.styled(r.styles.Muted, strings.Repeat("─", lipgloss.Width(text))))
	}
}

// KeyValue writes a labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, value))
		return
	}
	r.Printf("%s %s\n", r.styled(r.styles.Key, key+":"), value)
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(text string) {
	r.Println(r.styled(r.styles.Muted, text))
}

// Success writes a success message.
func (r *Renderer) Success(text string) {
	r.Println(r.styled(r.styles.Success, "✓ "+text))
}

// Warning writes a warning to error output.
func (r *Renderer) Warning(text string) {
	_, _ = fmt.Fprintln(r.errOut, r.styled(r.styles.Warning, "! "+text))
}

// Error writes an error to error output.
func (r *Renderer) Error(text string) {
	_, _ = fmt.Fprintln(r.errOut, r.styled(r.styles.Error, "✗ "+text))
}

// StatusLine writes "name status detail" with a status-colored marker.
func (r *Renderer) StatusLine(name, status, detail string) {
	marker, style := statusMarker(status)
	line := fmt.Sprintf("%s %s", r.styled(style, marker), name)
	if status != "" {
		line += " " + r.styled(style, strings.ToLower(status))
	}
	if detail != "" {
		line += " " + r.styled(r.styles.Muted, detail)
	}
	r.Println(line)
}

func statusMarker(status string) (string, lipgloss.Style) {
	s := DefaultStyles()
	switch strings.ToUpper(status) {
	case "SUCCESS", "SUCCEEDED":
		return "✓", s.Success
	case "FAILED":
		return "✗", s.Error
	case "CANCELLED":
		return "⊘", s.Warning
	case "RUNNING", "QUEUED":
		return "…", s.Running
	default:
		return "•", s.Muted
	}
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item "- **key:** value".
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatCodeBlock returns a fenced markdown code block.
func FormatCodeBlock(lang, code string) string {
	return "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```"
}
