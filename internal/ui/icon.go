package ui

import (
	"github.com/charmbracelet/lipgloss"

	"nbterm/internal/contents"
	"nbterm/internal/ui/textutil"
)

// DefaultIconColor is the brand blue used when no color is given.
const DefaultIconColor = "#0366d6"

// Glyphs drawn in the icon column of the directory listing.
const (
	GlyphBook     = "📓"
	GlyphFolder   = "📁"
	GlyphDocument = "📄"
)

// iconWidth leaves one column of air after the two-column glyphs.
const iconWidth = 3

// IconGlyph maps a file type to its glyph. Anything that is not a notebook
// or directory, including values outside the known set, gets the document
// glyph.
func IconGlyph(ft contents.FileType) string {
	switch ft {
	case contents.FileNotebook:
		return GlyphBook
	case contents.FileDirectory:
		return GlyphFolder
	default:
		return GlyphDocument
	}
}

// Icon renders the fixed-width icon cell for a listing row. An empty type
// means a plain file and an empty color means DefaultIconColor.
func Icon(ft contents.FileType, color string) string {
	if ft == "" {
		ft = contents.FileFile
	}
	if color == "" {
		color = DefaultIconColor
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Render(textutil.PadRightVisual(IconGlyph(ft), iconWidth))
}
