package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nbterm/internal/contents"
	"nbterm/internal/ui/textutil"
)

const (
	listingNameWidth = 40
	modifiedLayout   = "2006-01-02 15:04"
)

// entryItem implements list.Item for a contents.Entry.
type entryItem struct {
	contents.Entry
	iconColor string
}

func (e entryItem) FilterValue() string { return e.Name }

func (e entryItem) Title() string {
	name := e.Name
	if e.Type == contents.FileDirectory {
		name += "/"
	}
	modified := ""
	if !e.Modified.IsZero() {
		modified = e.Modified.Local().Format(modifiedLayout)
	}
	return Icon(e.Type, e.iconColor) + textutil.PadRightVisual(name, listingNameWidth) + "  " + modified
}

func (e entryItem) Description() string { return "" }

// ListingView browses one directory of the contents root.
type ListingView struct {
	list      list.Model
	Dir       string // relative to the root, "" for the root itself
	Entries   []contents.Entry
	Notice    string
	Err       error
	iconColor string
	spinner   spinner.Model
	loading   bool
}

// Ensure ListingView implements View.
var _ View = (*ListingView)(nil)

// NewListingView creates an empty listing. Rows arrive via SetEntries.
func NewListingView(iconColor string) *ListingView {
	l := list.New(nil, NewCompactListDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	return &ListingView{
		list:      l,
		iconColor: iconColor,
		spinner:   s,
	}
}

// SetEntries replaces the rows and resets the cursor.
func (v *ListingView) SetEntries(dir string, entries []contents.Entry) {
	v.Dir = dir
	v.Entries = entries
	v.Err = nil
	v.loading = false
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{Entry: e, iconColor: v.iconColor}
	}
	v.list.SetItems(items)
	v.list.Select(0)
}

// SetLoading toggles the spinner and returns the command that drives it.
func (v *ListingView) SetLoading(loading bool) tea.Cmd {
	v.loading = loading
	if loading {
		return v.spinner.Tick
	}
	return nil
}

// Selected returns the index of the highlighted row.
func (v *ListingView) Selected() int {
	return v.list.Index()
}

// SelectedEntry returns the highlighted entry, if any.
func (v *ListingView) SelectedEntry() (contents.Entry, bool) {
	i := v.list.Index()
	if i < 0 || i >= len(v.Entries) {
		return contents.Entry{}, false
	}
	return v.Entries[i], true
}

// Init implements View.
func (v *ListingView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *ListingView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.list.SetWidth(msg.Width)
		v.list.SetHeight(msg.Height - 4) // header, hint and notice lines
		return v, nil
	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case tea.KeyMsg:
		v.Notice = ""
	}

	// list.Model handles j/k/g/G and paging. Enter is handled by the app.
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View implements View.
func (v *ListingView) View() string {
	if v.list.Width() == 0 {
		v.list.SetWidth(80)
	}
	if v.list.Height() == 0 {
		v.list.SetHeight(20)
	}

	var b strings.Builder
	title := "/" + v.Dir
	if v.loading {
		title += " " + v.spinner.View()
	}
	b.WriteString(Styles.Title.Render(title) + "\n")
	b.WriteString(Styles.Hint.Render("Enter: open  Backspace: up  [SPC] for commands") + "\n\n")

	switch {
	case v.Err != nil:
		b.WriteString(Styles.Error.Render(fmt.Sprintf("error: %v", v.Err)))
	case len(v.Entries) == 0 && !v.loading:
		b.WriteString(Styles.Empty.Render("No files"))
	default:
		b.WriteString(v.list.View())
	}
	if v.Notice != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render(v.Notice))
	}
	return b.String()
}
