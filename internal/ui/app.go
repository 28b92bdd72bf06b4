package ui

import (
	"context"
	"path"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"nbterm/internal/config"
	"nbterm/internal/notebook"
)

// AppModel is the root model. It switches between the listing and one
// open notebook, and owns all I/O through Store.
type AppModel struct {
	Mode       AppMode
	Listing    *ListingView
	Notebook   *NotebookView
	KeyHandler *KeyHandler
	Overlays   OverlayStack
	Store      Contents
	Logger     zerolog.Logger
	Theme      PromptTheme

	ctx       context.Context
	send      func(tea.Msg)
	stopWatch context.CancelFunc
	width     int
	height    int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root model. ctx bounds every store call and
// file watch the UI starts.
func NewAppModel(ctx context.Context, store Contents, theme config.ThemeConfig, logger zerolog.Logger) *AppModel {
	return &AppModel{
		Mode:       ModeListing,
		Listing:    NewListingView(theme.IconColor),
		KeyHandler: NewKeyHandler(newKeybindRegistry()),
		Store:      store,
		Logger:     logger.With().Str("component", "ui").Logger(),
		Theme:      PromptThemeFrom(theme),
		ctx:        ctx,
	}
}

func newKeybindRegistry() *KeybindRegistry {
	reg := NewKeybindRegistry()
	reg.BindWithDesc("ctrl+c", tea.Quit, "Quit")
	reg.BindForModes("q", msgCmd(QuitMsg{}), "Quit", ModeListing)
	reg.BindWithDesc("SPC q", msgCmd(QuitMsg{}), "Quit")
	reg.BindWithDesc("SPC r", msgCmd(ReloadMsg{}), "Reload")
	reg.BindForModes("SPC s", msgCmd(SaveMsg{}), "Save", ModeNotebook)
	reg.BindForModes("SPC k", msgCmd(RestartKernelMsg{}), "Restart kernel session", ModeNotebook)
	reg.BindForModes("SPC o", msgCmd(ClearOutputsMsg{}), "Clear outputs", ModeNotebook)
	reg.Group("t", "Cell type")
	reg.BindForModes("SPC t c", msgCmd(SetCellTypeMsg{Type: notebook.CellCode}), "Code", ModeNotebook)
	reg.BindForModes("SPC t m", msgCmd(SetCellTypeMsg{Type: notebook.CellMarkdown}), "Markdown", ModeNotebook)
	reg.BindForModes("SPC t r", msgCmd(SetCellTypeMsg{Type: notebook.CellRaw}), "Raw", ModeNotebook)
	return reg
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// SetSender gives the model a way to inject messages from background
// goroutines, normally tea.Program.Send. File watching needs it.
func (m *AppModel) SetSender(send func(tea.Msg)) {
	m.send = send
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	return a.loadDir("")
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.Listing.Update(msg)
		if a.Notebook != nil {
			a.Notebook.Update(msg)
		}
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(msg)
	case DismissModalMsg:
		a.Overlays.Pop()
		return a, nil
	case EntriesLoadedMsg:
		return a.handleEntriesLoaded(msg)
	case OpenEntryMsg:
		return a.handleOpenEntry(msg)
	case NotebookLoadedMsg:
		return a.handleNotebookLoaded(msg)
	case SaveMsg:
		return a.handleSave()
	case SavedMsg:
		return a.handleSaved(msg)
	case ReloadMsg:
		return a.handleReload()
	case confirmedReloadMsg:
		a.Overlays.Pop()
		return a, a.startReload()
	case FileChangedMsg:
		return a.handleFileChanged(msg)
	case watchStoppedMsg:
		if msg.Err != nil {
			a.Logger.Warn().Err(msg.Err).Str("path", msg.Path).Msg("file watch stopped")
		}
		return a, nil
	case RestartKernelMsg:
		if a.Notebook != nil {
			a.Notebook.RestartKernel()
		}
		return a, nil
	case SetCellTypeMsg:
		if a.Notebook != nil {
			a.Notebook.SetCellType(msg.Type)
		}
		return a, nil
	case ClearOutputsMsg:
		if a.Notebook != nil {
			a.Notebook.ClearOutputs()
		}
		return a, nil
	case CloseNotebookMsg:
		return a.handleClose()
	case confirmedCloseMsg:
		a.Overlays.Pop()
		return a, a.closeNotebook()
	case QuitMsg:
		return a.handleQuit()
	case confirmedQuitMsg:
		a.stopWatching()
		return a, tea.Quit
	}

	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

func (a *appModelAdapter) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.Overlays.Len() > 0 {
		if top, ok := a.Overlays.Peek(); ok && top.IsDismissKey(msg.String()) {
			a.Overlays.Pop()
			return a, nil
		}
		cmd, _ := a.Overlays.UpdateTop(msg)
		return a, cmd
	}

	// The cell editor owns every key but ctrl+c, SPC included.
	editing := a.Mode == ModeNotebook && a.Notebook != nil && a.Notebook.Editing()
	if editing && msg.Type != tea.KeyCtrlC {
		return a.forward(msg)
	}
	if a.KeyHandler != nil {
		if consumed, cmd := a.KeyHandler.Handle(msg, a.Mode); consumed {
			return a, cmd
		}
	}

	switch a.Mode {
	case ModeListing:
		switch msg.String() {
		case "enter", "l", "right":
			if e, ok := a.Listing.SelectedEntry(); ok {
				return a, msgCmd(OpenEntryMsg{Entry: e})
			}
			return a, nil
		case "backspace", "h", "left":
			if a.Listing.Dir != "" {
				return a, a.loadDir(parentDir(a.Listing.Dir))
			}
			return a, nil
		}
	case ModeNotebook:
		if msg.String() == "esc" {
			return a, msgCmd(CloseNotebookMsg{})
		}
	}
	return a.forward(msg)
}

func (a *appModelAdapter) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	if top, ok := a.Overlays.Peek(); ok {
		modal := top.View.View()
		if a.width > 0 && a.height > 0 {
			return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
		}
		return modal
	}
	base := a.currentView().View()
	if help := RenderKeybindHelp(a.KeyHandler, a.Mode); help != "" {
		base += "\n" + help
	}
	return base
}

func (a *appModelAdapter) currentView() View {
	if a.Mode == ModeNotebook && a.Notebook != nil {
		return a.Notebook
	}
	return a.Listing
}

func (a *appModelAdapter) setCurrentView(v View) {
	switch v := v.(type) {
	case *NotebookView:
		a.Notebook = v
	case *ListingView:
		a.Listing = v
	}
}

// sized replays the last window size into a freshly created view.
func (a *AppModel) sized(v View) {
	if a.width > 0 {
		v.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
}

func parentDir(dir string) string {
	p := path.Dir(dir)
	if p == "." || p == "/" {
		return ""
	}
	return p
}
