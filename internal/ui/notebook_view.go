package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nbterm/internal/document"
	"nbterm/internal/notebook"
	"nbterm/internal/ui/textutil"
)

const (
	headerHeight = 2
	footerHeight = 3
	maxPagerRows = 6
)

// NotebookView shows one notebook and edits it. The record is replaced
// wholesale on every change; the view never mutates a document in place.
type NotebookView struct {
	Record document.FileRecord
	// Notice is a one-shot status line, cleared by the next key.
	Notice string

	theme    PromptTheme
	editor   textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	width    int
}

// Ensure NotebookView implements View.
var _ View = (*NotebookView)(nil)

// NewNotebookView creates a view of rec. The first cell is selected when
// nothing is.
func NewNotebookView(rec document.FileRecord, theme PromptTheme) *NotebookView {
	ed := textarea.New()
	ed.ShowLineNumbers = false
	ed.Prompt = ""
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.SetHeight(6)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	v := &NotebookView{
		theme:    theme,
		editor:   ed,
		spinner:  s,
		viewport: viewport.New(80, 20),
	}
	v.SetRecord(rec)
	return v
}

// SetRecord swaps in a new record, e.g. after a load or save.
func (v *NotebookView) SetRecord(rec document.FileRecord) {
	doc := rec.Document()
	if len(rec.StaleFocus()) > 0 {
		doc = document.BlurEditor(doc.WithCellFocus(""))
	}
	if _, ok := doc.CellFocus(); !ok && doc.Notebook().Len() > 0 {
		doc = document.FocusNext(doc)
	}
	v.Record = rec.WithDocument(doc)
	if !v.Editing() {
		v.editor.Blur()
	}
}

// Path returns the notebook's path relative to the contents root.
func (v *NotebookView) Path() string { return v.Record.Path() }

// Editing reports whether a cell editor has focus.
func (v *NotebookView) Editing() bool {
	_, ok := v.Record.Document().EditorFocus()
	return ok
}

// Busy reports whether a load or save is in flight.
func (v *NotebookView) Busy() bool {
	return v.Record.Loading() || v.Record.Saving()
}

// SpinnerTick starts the busy spinner.
func (v *NotebookView) SpinnerTick() tea.Cmd {
	return v.spinner.Tick
}

// Apply runs an edit against the document. Failures become the notice.
func (v *NotebookView) Apply(edit func(document.DocumentState) (document.DocumentState, error)) bool {
	doc, err := edit(v.Record.Document())
	if err != nil {
		v.Notice = describeEditError(err)
		return false
	}
	v.Record = v.Record.WithDocument(doc)
	return true
}

// focused returns the selected cell id, or "" when there is none.
func (v *NotebookView) focused() notebook.CellID {
	id, _ := v.Record.Document().CellFocus()
	return id
}

// Init implements View.
func (v *NotebookView) Init() tea.Cmd {
	if v.Busy() {
		return v.spinner.Tick
	}
	return nil
}

// Update implements View.
func (v *NotebookView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.viewport.Width = msg.Width
		v.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		v.editor.SetWidth(max(msg.Width-v.theme.Width-4, 10))
		return v, nil
	case spinner.TickMsg:
		if !v.Busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case tea.KeyMsg:
		if v.Editing() {
			return v.updateEditor(msg)
		}
		v.Notice = ""
		if v.Record.Loading() {
			return v, nil
		}
		return v, v.handleKey(msg.String())
	}
	return v, nil
}

func (v *NotebookView) updateEditor(msg tea.KeyMsg) (View, tea.Cmd) {
	if msg.String() == "esc" {
		v.commitEditor()
		return v, nil
	}
	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	return v, cmd
}

// commitEditor writes the editor text into the cell and leaves edit mode.
func (v *NotebookView) commitEditor() {
	id, ok := v.Record.Document().EditorFocus()
	if !ok {
		return
	}
	text := v.editor.Value()
	v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
		c, ok := s.Notebook().CellByID(id)
		if ok && c.Source == text {
			return document.BlurEditor(s), nil
		}
		s, err := document.UpdateSource(s, id, text)
		if err != nil {
			return document.BlurEditor(s), err
		}
		return document.BlurEditor(s), nil
	})
	v.editor.Blur()
}

func (v *NotebookView) startEditing() tea.Cmd {
	id := v.focused()
	if id == "" {
		return nil
	}
	c, ok := v.Record.Document().Notebook().CellByID(id)
	if !ok {
		return nil
	}
	if !v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
		return document.FocusEditor(s, id)
	}) {
		return nil
	}
	v.editor.SetValue(c.Source)
	return v.editor.Focus()
}

// handleKey runs a command-mode key.
func (v *NotebookView) handleKey(k string) tea.Cmd {
	id := v.focused()
	switch k {
	case "j", "down":
		v.Apply(infallible(document.FocusNext))
	case "k", "up":
		v.Apply(infallible(document.FocusPrevious))
	case "g", "home":
		if first, found := v.Record.Document().Notebook().CellAt(0); found {
			v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
				return document.FocusCell(s, first.ID)
			})
		}
	case "G", "end":
		nb := v.Record.Document().Notebook()
		if last, found := nb.CellAt(nb.Len() - 1); found {
			v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
				return document.FocusCell(s, last.ID)
			})
		}
	case "enter", "i":
		return v.startEditing()
	case "a":
		v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
			s, _, err := document.InsertCell(s, id, notebook.CellCode)
			return s, err
		})
	case "b":
		v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
			if id == "" {
				s, _, err := document.InsertCell(s, "", notebook.CellCode)
				return s, err
			}
			s, _, err := document.InsertCellBefore(s, id, notebook.CellCode)
			return s, err
		})
	case "d":
		v.Apply(withFocused(id, document.DeleteCell))
	case "x":
		v.Apply(withFocused(id, document.CutCell))
	case "c":
		if v.Apply(withFocused(id, document.CopyCell)) {
			v.Notice = "cell copied"
		}
	case "v":
		v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
			s, _, err := document.PasteCell(s)
			return s, err
		})
	case "y":
		v.SetCellType(notebook.CellCode)
	case "m":
		v.SetCellType(notebook.CellMarkdown)
	case "r":
		v.SetCellType(notebook.CellRaw)
	case "o":
		v.ClearOutputs()
	}
	return nil
}

// SetCellType changes the selected cell's type.
func (v *NotebookView) SetCellType(t notebook.CellType) {
	id := v.focused()
	v.Apply(func(s document.DocumentState) (document.DocumentState, error) {
		if id == "" {
			return s, errNoSelection
		}
		return document.ChangeCellType(s, id, t)
	})
}

// ClearOutputs clears the selected code cell's outputs.
func (v *NotebookView) ClearOutputs() {
	v.Apply(withFocused(v.focused(), document.ClearOutputs))
}

// RestartKernel drops the kernel session state of the document.
func (v *NotebookView) RestartKernel() {
	if v.Apply(infallible(document.RestartKernel)) {
		v.Notice = "kernel session restarted"
	}
}

var errNoSelection = errors.New("no cell selected")

func infallible(fn func(document.DocumentState) document.DocumentState) func(document.DocumentState) (document.DocumentState, error) {
	return func(s document.DocumentState) (document.DocumentState, error) { return fn(s), nil }
}

func withFocused(id notebook.CellID, fn func(document.DocumentState, notebook.CellID) (document.DocumentState, error)) func(document.DocumentState) (document.DocumentState, error) {
	return func(s document.DocumentState) (document.DocumentState, error) {
		if id == "" {
			return s, errNoSelection
		}
		return fn(s, id)
	}
}

func describeEditError(err error) string {
	switch {
	case errors.Is(err, document.ErrNotCode):
		return "only code cells have outputs"
	case errors.Is(err, document.ErrNothingCopied):
		return "nothing to paste"
	default:
		return err.Error()
	}
}

// View implements View.
func (v *NotebookView) View() string {
	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n\n")

	content, top, bottom := v.renderCells()
	v.viewport.SetContent(content)
	switch {
	case top < v.viewport.YOffset:
		v.viewport.SetYOffset(top)
	case bottom > v.viewport.YOffset+v.viewport.Height:
		v.viewport.SetYOffset(bottom - v.viewport.Height)
	}
	b.WriteString(v.viewport.View())

	if footer := v.renderFooter(); footer != "" {
		b.WriteString("\n" + footer)
	}
	return b.String()
}

func (v *NotebookView) renderHeader() string {
	rec := v.Record
	doc := rec.Document()
	parts := []string{Styles.Title.Render(rec.Path())}

	kernel := doc.Notebook().KernelDisplayName()
	if kernel == "" {
		kernel = "no kernel"
	}
	if lang := doc.Notebook().Language(); lang != "" && !strings.EqualFold(lang, kernel) {
		kernel += " · " + lang
	}
	if ref, attached := doc.Kernel(); attached {
		kernel += " (" + string(ref) + ")"
	}
	parts = append(parts, Styles.Muted.Render(kernel))

	if rec.Dirty() {
		parts = append(parts, Styles.Dirty.Render("● modified"))
	}
	if !rec.Writable() {
		parts = append(parts, Styles.Details.Render("read-only"))
	}
	switch {
	case rec.Saving():
		parts = append(parts, v.spinner.View()+Styles.Status.Render(" saving"))
	case rec.Loading():
		parts = append(parts, v.spinner.View()+Styles.Status.Render(" loading"))
	}
	return strings.Join(parts, "  ")
}

// renderCells draws every cell and returns the first and last line (end
// exclusive) of the selected cell.
func (v *NotebookView) renderCells() (content string, top, bottom int) {
	doc := v.Record.Document()
	cells := doc.Notebook().Cells()
	if len(cells) == 0 {
		if v.Record.Loading() {
			return "", 0, 0
		}
		return Styles.Empty.Render("Empty notebook. Press a to add a cell."), 0, 0
	}

	focus, _ := doc.CellFocus()
	editing, _ := doc.EditorFocus()
	status := doc.Transient()

	var blocks []string
	line := 0
	for _, c := range cells {
		block := v.renderCell(c, status.Status(c.ID), c.ID == focus, c.ID == editing)
		h := lipgloss.Height(block)
		if c.ID == focus {
			top, bottom = line, line+h
		}
		blocks = append(blocks, block)
		line += h
	}
	return strings.Join(blocks, "\n"), top, bottom
}

func (v *NotebookView) renderCell(c notebook.Cell, status document.ExecStatus, focused, editing bool) string {
	frame := Styles.Cell
	switch {
	case editing:
		frame = Styles.CellEditing
	case focused:
		frame = Styles.CellFocused
	}

	var body string
	switch {
	case editing:
		body = v.editor.View()
	case c.Source == "":
		body = Styles.Empty.Render(fmt.Sprintf("empty %s cell", c.Type))
	case c.Type == notebook.CellCode:
		body = Styles.Normal.Render(c.Source)
	default:
		body = Styles.Muted.Render(c.Source)
	}
	framed := frame.Render(body)
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top,
		RenderPromptColumn(PromptFor(c, status), v.theme, lipgloss.Height(framed)),
		" ",
		framed,
	)}

	for _, out := range c.Outputs {
		text := strings.TrimRight(out.PlainText(), "\n")
		if text == "" {
			continue
		}
		style := Styles.Output
		if out.OutputType == notebook.OutputError || out.Name == "stderr" {
			style = Styles.Error
		}
		rendered := style.PaddingLeft(2).Render(text)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			RenderPromptColumn(PromptState{Blank: true}, v.theme, lipgloss.Height(rendered)),
			" ",
			rendered,
		))
	}
	return strings.Join(rows, "\n")
}

func (v *NotebookView) renderFooter() string {
	var lines []string
	if err := v.Record.Err(); err != nil {
		lines = append(lines, Styles.Error.Render("error: "+err.Error()))
	}
	if v.Notice != "" {
		lines = append(lines, Styles.Details.Render(v.Notice))
	}
	if id := v.focused(); id != "" {
		for _, p := range v.Record.Document().CellPagers().For(id) {
			text := strings.Split(strings.TrimRight(p.Text(), "\n"), "\n")
			if len(text) > maxPagerRows {
				text = append(text[:maxPagerRows], textutil.TruncateEllipsis)
			}
			lines = append(lines, Styles.Muted.Render(strings.Join(text, "\n")))
		}
	}
	if v.Editing() {
		lines = append(lines, Styles.Hint.Render("Esc: leave editor"))
	} else {
		lines = append(lines, Styles.Hint.Render("j/k: move  Enter: edit  a/b: add  d: delete  x/c/v: cut/copy/paste  [SPC] for commands"))
	}
	return strings.Join(lines, "\n")
}
