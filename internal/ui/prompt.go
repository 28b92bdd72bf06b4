package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nbterm/internal/config"
	"nbterm/internal/document"
	"nbterm/internal/notebook"
	"nbterm/internal/ui/textutil"
)

// PromptState is what the execution prompt next to a cell shows.
type PromptState struct {
	// Counter is the execution count, nil when the cell never ran.
	Counter *int
	Running bool
	Queued  bool
	// Blank keeps the prompt's width but draws no text. Used for
	// non-code cells and output rows.
	Blank bool
}

// PromptText returns the bracketed prompt label. Running wins over queued,
// which wins over the counter.
func PromptText(s PromptState) string {
	switch {
	case s.Running:
		return "[*]"
	case s.Queued:
		return "[…]"
	case s.Counter != nil:
		return "[" + strconv.Itoa(*s.Counter) + "]"
	default:
		return "[ ]"
	}
}

// PromptTheme is the prompt column's look.
type PromptTheme struct {
	Width int
	FG    string
	BG    string
}

// DefaultPromptTheme matches config.Default.
func DefaultPromptTheme() PromptTheme {
	return PromptThemeFrom(config.Default().Theme)
}

// PromptThemeFrom reads the prompt settings out of the theme config,
// falling back to the defaults for unset values.
func PromptThemeFrom(t config.ThemeConfig) PromptTheme {
	d := config.Default().Theme
	theme := PromptTheme{Width: t.PromptWidth, FG: t.PromptFG, BG: t.PromptBG}
	if theme.Width <= 0 {
		theme.Width = d.PromptWidth
	}
	if theme.FG == "" {
		theme.FG = d.PromptFG
	}
	if theme.BG == "" {
		theme.BG = d.PromptBG
	}
	return theme
}

func (t PromptTheme) style() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.FG)).
		Background(lipgloss.Color(t.BG))
}

// RenderPrompt draws the prompt centered in a column of theme.Width cells.
func RenderPrompt(s PromptState, theme PromptTheme) string {
	text := ""
	if !s.Blank {
		text = PromptText(s)
	}
	return theme.style().Render(textutil.Center(text, theme.Width))
}

// RenderPromptBuffer draws an empty prompt column, used to indent rows that
// belong to a cell without repeating its label.
func RenderPromptBuffer(theme PromptTheme) string {
	return RenderPrompt(PromptState{Blank: true}, theme)
}

// RenderPromptColumn stacks a prompt above height-1 buffer rows so the
// column lines up with a multi-line cell body.
func RenderPromptColumn(s PromptState, theme PromptTheme, height int) string {
	rows := []string{RenderPrompt(s, theme)}
	for i := 1; i < height; i++ {
		rows = append(rows, RenderPromptBuffer(theme))
	}
	return strings.Join(rows, "\n")
}

// PromptFor derives the prompt of a cell from its execution count and the
// status tracked in the document's transient state.
func PromptFor(c notebook.Cell, status document.ExecStatus) PromptState {
	if !c.IsCode() {
		return PromptState{Blank: true}
	}
	return PromptState{
		Counter: c.ExecutionCount,
		Running: status == document.StatusRunning,
		Queued:  status == document.StatusQueued,
	}
}
