// Package textutil provides unicode-aware text utilities for TUI rendering.
package textutil

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// TruncateEllipsis is the unicode ellipsis character used for truncation.
const TruncateEllipsis = "…"

// VisualWidth returns the number of terminal columns s occupies.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// VisualWidthStyled is VisualWidth for strings carrying ANSI escapes.
func VisualWidthStyled(s string) int {
	return lipgloss.Width(s)
}

// Truncate cuts s to at most maxWidth columns, ending in an ellipsis when
// anything was dropped.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxWidth {
		return s
	}

	availableWidth := maxWidth - VisualWidth(TruncateEllipsis)
	if availableWidth < 0 {
		return TruncateEllipsis
	}

	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > availableWidth {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + TruncateEllipsis
}

// PadRightVisual pads s with spaces to targetWidth columns, truncating
// when it is already wider.
func PadRightVisual(s string, targetWidth int) string {
	currentWidth := VisualWidth(s)
	if currentWidth >= targetWidth {
		return Truncate(s, targetWidth)
	}
	return s + strings.Repeat(" ", targetWidth-currentWidth)
}

// PadLeftVisual is PadRightVisual with the padding in front.
func PadLeftVisual(s string, targetWidth int) string {
	currentWidth := VisualWidth(s)
	if currentWidth >= targetWidth {
		return Truncate(s, targetWidth)
	}
	return strings.Repeat(" ", targetWidth-currentWidth) + s
}

// Center places s in the middle of targetWidth columns. An odd leftover
// column goes to the right.
func Center(s string, targetWidth int) string {
	currentWidth := VisualWidth(s)
	if currentWidth >= targetWidth {
		return Truncate(s, targetWidth)
	}
	left := (targetWidth - currentWidth) / 2
	right := targetWidth - currentWidth - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// FirstLine returns s up to its first newline, marking the cut with an
// ellipsis.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + TruncateEllipsis
	}
	return s
}
