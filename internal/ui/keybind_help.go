package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// RenderKeybindHelp produces the transient help bar shown after SPC, listing
// the keys that may follow the sequence typed so far in mode.
func RenderKeybindHelp(h *KeyHandler, mode AppMode) string {
	if h == nil || !h.LeaderWaiting {
		return ""
	}
	seq := h.Sequence()
	bindings := leaderBindings(h.Registry, seq, mode)
	if len(bindings) == 0 {
		return ""
	}

	helpModel := help.New()
	helpModel.Styles.ShortKey = Styles.Selected
	helpModel.Styles.ShortDesc = Styles.Muted
	helpModel.Styles.ShortSeparator = Styles.Muted

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 1).
		MarginTop(1)

	return box.Render(Styles.Muted.Render(seq) + " " + helpModel.ShortHelpView(bindings))
}
