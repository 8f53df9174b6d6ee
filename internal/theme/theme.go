// Package theme holds the workbench colors. A Theme is built once at
// startup and handed to the UI; toggling yields a new value.
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/zeus/internal/state"
)

// Mode selects how the initial theme is chosen.
type Mode string

// Theme modes.
const (
	ModeAuto  Mode = "auto"
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode parses a configured mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeDark, ModeLight:
		return m, nil
	default:
		return "", fmt.Errorf("invalid theme %q: must be auto, dark or light", s)
	}
}

// Palette is the set of colors of one theme.
type Palette struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Focused    lipgloss.Color
	Accent     lipgloss.Color
	Selection  lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

var (
	darkPalette = Palette{
		Foreground: lipgloss.Color("#E5E7EB"),
		Muted:      lipgloss.Color("#9CA3AF"),
		Border:     lipgloss.Color("#374151"),
		Focused:    lipgloss.Color("#60A5FA"),
		Accent:     lipgloss.Color("#66D9EF"),
		Selection:  lipgloss.Color("#1E3A8A"),
		Success:    lipgloss.Color("#34D399"),
		Warning:    lipgloss.Color("#FBBF24"),
		Error:      lipgloss.Color("#F87171"),
	}
	lightPalette = Palette{
		Foreground: lipgloss.Color("#111827"),
		Muted:      lipgloss.Color("#6B7280"),
		Border:     lipgloss.Color("#D1D5DB"),
		Focused:    lipgloss.Color("#2563EB"),
		Accent:     lipgloss.Color("#1D4ED8"),
		Selection:  lipgloss.Color("#DBEAFE"),
		Success:    lipgloss.Color("#059669"),
		Warning:    lipgloss.Color("#D97706"),
		Error:      lipgloss.Color("#DC2626"),
	}
)

// Styles are the lipgloss styles the UI renders with.
type Styles struct {
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	Title       lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Dirty       lipgloss.Style
	Muted       lipgloss.Style
	Selected    lipgloss.Style
	Header      lipgloss.Style
	Null        lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Dialog      lipgloss.Style
	Key         lipgloss.Style
}

// Theme is a palette and the styles derived from it.
type Theme struct {
	Dark    bool
	Palette Palette
	Styles  Styles
}

// New builds the dark or light theme.
func New(dark bool) Theme {
	p := lightPalette
	if dark {
		p = darkPalette
	}
	return Theme{Dark: dark, Palette: p, Styles: newStyles(p)}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	return New(!t.Dark)
}

// Name returns "dark" or "light".
func (t Theme) Name() string {
	if t.Dark {
		return string(ModeDark)
	}
	return string(ModeLight)
}

// StatusStyle picks the style for a run status label.
func (t Theme) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "SUCCEEDED":
		return t.Styles.Success
	case "FAILED":
		return t.Styles.Error
	case "CANCELLED", "QUEUED", "RUNNING":
		return t.Styles.Warning
	default:
		return t.Styles.Muted
	}
}

func newStyles(p Palette) Styles {
	pane := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(0, 1)
	return Styles{
		Pane:        pane,
		PaneFocused: pane.BorderForeground(p.Focused),
		Title:       lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		TabActive:   lipgloss.NewStyle().Bold(true).Foreground(p.Focused).Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(p.Focused).Padding(0, 1),
		TabInactive: lipgloss.NewStyle().Foreground(p.Muted).Padding(0, 1),
		Dirty:       lipgloss.NewStyle().Foreground(p.Warning),
		Muted:       lipgloss.NewStyle().Foreground(p.Muted),
		Selected:    lipgloss.NewStyle().Background(p.Selection).Foreground(p.Foreground),
		Header:      lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Null:        lipgloss.NewStyle().Foreground(p.Muted).Italic(true),
		Status:      lipgloss.NewStyle().Foreground(p.Foreground).Padding(0, 1),
		Error:       lipgloss.NewStyle().Foreground(p.Error),
		Success:     lipgloss.NewStyle().Foreground(p.Success),
		Warning:     lipgloss.NewStyle().Foreground(p.Warning),
		Dialog:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Focused).Padding(1, 2),
		Key:         lipgloss.NewStyle().Bold(true).Foreground(p.Focused),
	}
}

// DetectDark reports whether the terminal has a dark background.
func DetectDark() bool {
	return termenv.HasDarkBackground()
}

func darkKey() state.Key[*bool] {
	return state.Key[*bool]{Name: state.DarkModeKey}
}

// Resolve picks the startup theme. An explicit mode wins, then the last
// persisted choice, then detect.
func Resolve(ctx context.Context, mode Mode, store state.Store, logger *slog.Logger, detect func() bool) Theme {
	switch mode {
	case ModeDark:
		return New(true)
	case ModeLight:
		return New(false)
	}
	if store != nil {
		if dark := darkKey().Load(ctx, store, logger); dark != nil {
			return New(*dark)
		}
	}
	if detect == nil {
		detect = DetectDark
	}
	return New(detect())
}

// Save persists the choice made by a toggle.
func Save(ctx context.Context, store state.Store, logger *slog.Logger, t Theme) error {
	dark := t.Dark
	return darkKey().Store(ctx, store, logger, &dark)
}
