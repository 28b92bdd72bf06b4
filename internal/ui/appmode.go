package ui

// AppMode is the top-level screen: the directory listing or an open notebook.
type AppMode int

const (
	ModeListing AppMode = iota
	ModeNotebook
)

func (m AppMode) String() string {
	switch m {
	case ModeListing:
		return "Listing"
	case ModeNotebook:
		return "Notebook"
	default:
		return "Unknown"
	}
}
