package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"nbterm/internal/config"
	"nbterm/internal/document"
	"nbterm/internal/notebook"
)

func intPtr(n int) *int { return &n }

func TestPromptText(t *testing.T) {
	tests := []struct {
		name  string
		state PromptState
		want  string
	}{
		{"running beats queued", PromptState{Running: true, Queued: true, Counter: intPtr(5)}, "[*]"},
		{"running alone", PromptState{Running: true}, "[*]"},
		{"queued beats counter", PromptState{Queued: true, Counter: intPtr(5)}, "[…]"},
		{"counter", PromptState{Counter: intPtr(5)}, "[5]"},
		{"zero counter", PromptState{Counter: intPtr(0)}, "[0]"},
		{"never run", PromptState{}, "[ ]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PromptText(tt.state); got != tt.want {
				t.Errorf("PromptText(%+v) = %q, want %q", tt.state, got, tt.want)
			}
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	theme := DefaultPromptTheme()
	out := RenderPrompt(PromptState{Counter: intPtr(12)}, theme)
	if !strings.Contains(out, "[12]") {
		t.Errorf("expected [12] in %q", out)
	}
	if w := lipgloss.Width(out); w != theme.Width {
		t.Errorf("width = %d, want %d", w, theme.Width)
	}
}

func TestRenderPrompt_BlankSuppressesText(t *testing.T) {
	theme := DefaultPromptTheme()
	blank := RenderPrompt(PromptState{Blank: true, Running: true, Counter: intPtr(3)}, theme)
	if strings.Contains(blank, "[") {
		t.Errorf("blank prompt rendered text: %q", blank)
	}
	if w := lipgloss.Width(blank); w != theme.Width {
		t.Errorf("blank width = %d, want %d", w, theme.Width)
	}
	if RenderPromptBuffer(theme) != blank {
		t.Error("prompt buffer should equal a blank prompt")
	}
}

func TestRenderPromptColumn(t *testing.T) {
	col := RenderPromptColumn(PromptState{}, DefaultPromptTheme(), 3)
	lines := strings.Split(col, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ ]") || strings.Contains(lines[1], "[") {
		t.Errorf("unexpected column %q", col)
	}
}

func TestPromptThemeFrom(t *testing.T) {
	theme := PromptThemeFrom(config.ThemeConfig{PromptWidth: 9, PromptBG: "235"})
	want := PromptTheme{Width: 9, FG: "#000000", BG: "235"}
	if theme != want {
		t.Errorf("PromptThemeFrom = %+v, want %+v", theme, want)
	}
	if d := DefaultPromptTheme(); d.Width != 7 || d.BG != "#fafafa" {
		t.Errorf("unexpected default theme %+v", d)
	}
}

func TestPromptFor(t *testing.T) {
	code := notebook.NewCell(notebook.CellCode)
	code.ExecutionCount = intPtr(4)

	if got := PromptText(PromptFor(code, document.StatusIdle)); got != "[4]" {
		t.Errorf("idle = %q", got)
	}
	if got := PromptText(PromptFor(code, document.StatusQueued)); got != "[…]" {
		t.Errorf("queued = %q", got)
	}
	if got := PromptText(PromptFor(code, document.StatusRunning)); got != "[*]" {
		t.Errorf("running = %q", got)
	}
	md := notebook.NewCell(notebook.CellMarkdown)
	if !PromptFor(md, document.StatusRunning).Blank {
		t.Error("markdown cells get a blank prompt")
	}
}
