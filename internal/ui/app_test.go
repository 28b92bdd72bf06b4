package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"nbterm/internal/config"
	"nbterm/internal/contents"
	"nbterm/internal/document"
	"nbterm/internal/notebook"
)

const testNotebookName = "analysis.ipynb"

// newTestApp builds an app over a temp root holding a notebook, a text file
// and a subdirectory.
func newTestApp(t *testing.T) (*AppModel, tea.Model, string) {
	t.Helper()
	dir := t.TempDir()
	data, err := notebook.Marshal(testNotebook())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, testNotebookName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := contents.NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	app := NewAppModel(context.Background(), store, config.Default().Theme, zerolog.Nop())
	return app, app.AsTeaModel(), dir
}

// drain runs cmd and returns the messages it produces, flattening batches
// and dropping spinner ticks. Only use it on commands that return at once.
func drain(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, drain(t, c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// feed delivers every message cmd produces to m.
func feed(t *testing.T, m tea.Model, cmd tea.Cmd) {
	t.Helper()
	for _, msg := range drain(t, cmd) {
		m.Update(msg)
	}
}

// openTestNotebook lists the root and opens the notebook through the UI.
func openTestNotebook(t *testing.T, app *AppModel, m tea.Model) {
	t.Helper()
	feed(t, m, m.Init())
	_, cmd := m.Update(OpenEntryMsg{Entry: contents.Entry{Name: testNotebookName, Path: testNotebookName, Type: contents.FileNotebook}})
	if app.Mode != ModeNotebook || app.Notebook == nil {
		t.Fatalf("expected notebook mode, got %v", app.Mode)
	}
	if !app.Notebook.Record.Loading() {
		t.Error("notebook should be loading until the file is read")
	}
	feed(t, m, cmd)
	if app.Notebook.Record.Loading() {
		t.Fatal("notebook still loading")
	}
	if err := app.Notebook.Record.Err(); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func TestApp_InitListsRoot(t *testing.T) {
	app, m, _ := newTestApp(t)
	feed(t, m, m.Init())

	var names []string
	for _, e := range app.Listing.Entries {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != "sub,analysis.ipynb,readme.txt" {
		t.Errorf("entries = %v", names)
	}
}

func TestApp_EnterOpensSelectedEntry(t *testing.T) {
	_, m, _ := newTestApp(t)
	feed(t, m, m.Init())

	m.Update(keyMsg("j"))
	_, cmd := m.Update(keyMsg("enter"))
	msgs := drain(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("enter produced %v", msgs)
	}
	open, ok := msgs[0].(OpenEntryMsg)
	if !ok || open.Entry.Name != testNotebookName {
		t.Errorf("enter produced %#v", msgs[0])
	}
}

func TestApp_DirectoriesAndPlainFiles(t *testing.T) {
	app, m, _ := newTestApp(t)
	feed(t, m, m.Init())

	_, cmd := m.Update(OpenEntryMsg{Entry: app.Listing.Entries[0]})
	feed(t, m, cmd)
	if app.Listing.Dir != "sub" {
		t.Fatalf("dir = %q, want sub", app.Listing.Dir)
	}
	if len(app.Listing.Entries) != 1 || app.Listing.Entries[0].Type != contents.FileDummy {
		t.Errorf("sub entries = %+v", app.Listing.Entries)
	}

	_, cmd = m.Update(keyMsg("backspace"))
	feed(t, m, cmd)
	if app.Listing.Dir != "" {
		t.Errorf("backspace should return to the root, dir = %q", app.Listing.Dir)
	}

	m.Update(OpenEntryMsg{Entry: contents.Entry{Name: "readme.txt", Path: "readme.txt", Type: contents.FileFile}})
	if app.Mode != ModeListing || !strings.Contains(app.Listing.Notice, "not a notebook") {
		t.Errorf("plain file: mode=%v notice=%q", app.Mode, app.Listing.Notice)
	}
}

func TestApp_OpenNotebook(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)

	rec := app.Notebook.Record
	if rec.Document().Notebook().Len() != 2 {
		t.Errorf("cells = %d", rec.Document().Notebook().Len())
	}
	if rec.Dirty() || !rec.Writable() {
		t.Errorf("dirty=%v writable=%v", rec.Dirty(), rec.Writable())
	}
	if _, ok := rec.LastSaved(); !ok {
		t.Error("last saved time should come from the file")
	}
	if !strings.Contains(m.View(), "Python 3") {
		t.Error("notebook header missing")
	}
}

func TestApp_OpenMissingNotebook(t *testing.T) {
	app, m, _ := newTestApp(t)
	_, cmd := m.Update(OpenEntryMsg{Entry: contents.Entry{Name: "gone.ipynb", Path: "gone.ipynb", Type: contents.FileNotebook}})
	feed(t, m, cmd)
	if !errors.Is(app.Notebook.Record.Err(), contents.ErrNotFound) {
		t.Errorf("err = %v", app.Notebook.Record.Err())
	}
	if !strings.Contains(m.View(), "error:") {
		t.Error("load error should be shown")
	}
}

func TestApp_SaveWithLeaderKey(t *testing.T) {
	app, m, dir := newTestApp(t)
	openTestNotebook(t, app, m)

	m.Update(keyMsg("a"))
	if !app.Notebook.Record.Dirty() {
		t.Fatal("insert should dirty the notebook")
	}

	m.Update(keyMsg(" "))
	_, cmd := m.Update(keyMsg("s"))
	msgs := drain(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("SPC s produced %v", msgs)
	}
	if _, ok := msgs[0].(SaveMsg); !ok {
		t.Fatalf("SPC s produced %#v", msgs[0])
	}

	_, cmd = m.Update(msgs[0])
	if !app.Notebook.Record.Saving() {
		t.Error("record should be saving")
	}
	feed(t, m, cmd)

	rec := app.Notebook.Record
	if rec.Saving() || rec.Dirty() || rec.Err() != nil {
		t.Errorf("after save: saving=%v dirty=%v err=%v", rec.Saving(), rec.Dirty(), rec.Err())
	}
	data, err := os.ReadFile(filepath.Join(dir, testNotebookName))
	if err != nil {
		t.Fatal(err)
	}
	onDisk, err := notebook.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if onDisk.Len() != 3 {
		t.Errorf("saved cells = %d, want 3", onDisk.Len())
	}
}

func TestApp_EditDuringSaveStaysDirty(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)

	m.Update(keyMsg("a"))
	_, cmd := m.Update(SaveMsg{})
	m.Update(keyMsg("a"))
	feed(t, m, cmd)

	rec := app.Notebook.Record
	if rec.Saving() {
		t.Error("save should be finished")
	}
	if !rec.Dirty() {
		t.Error("the edit made while saving is not on disk yet")
	}
	if rec.Document().SavedNotebook().Len() != 3 {
		t.Errorf("saved snapshot has %d cells, want 3", rec.Document().SavedNotebook().Len())
	}
}

func TestApp_SaveReadOnly(t *testing.T) {
	app, m, dir := newTestApp(t)
	if err := os.Chmod(filepath.Join(dir, testNotebookName), 0o444); err != nil {
		t.Fatal(err)
	}
	openTestNotebook(t, app, m)
	if app.Notebook.Record.Writable() {
		t.Fatal("0444 file should not be writable")
	}

	_, cmd := m.Update(SaveMsg{})
	if cmd != nil {
		t.Error("no write should be attempted")
	}
	if !errors.Is(app.Notebook.Record.Err(), document.ErrNotWritable) {
		t.Errorf("err = %v", app.Notebook.Record.Err())
	}
}

func TestApp_SaveFailureKeepsSnapshot(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))
	m.Update(SaveMsg{})

	m.Update(SavedMsg{Path: testNotebookName, Err: errors.New("disk full")})
	rec := app.Notebook.Record
	if rec.Saving() || rec.Err() == nil || !rec.Dirty() {
		t.Errorf("saving=%v err=%v dirty=%v", rec.Saving(), rec.Err(), rec.Dirty())
	}
}

func TestApp_QuitAsksWhenDirty(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))

	_, cmd := m.Update(QuitMsg{})
	if cmd != nil || app.Overlays.Len() != 1 {
		t.Fatalf("dirty quit should ask first: cmd=%v overlays=%d", cmd, app.Overlays.Len())
	}
	if !strings.Contains(m.View(), "Quit without saving?") {
		t.Error("confirm modal not shown")
	}

	m.Update(keyMsg("esc"))
	if app.Overlays.Len() != 0 {
		t.Fatal("esc dismisses the modal")
	}

	m.Update(QuitMsg{})
	_, cmd = m.Update(keyMsg("y"))
	msgs := drain(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("y produced %v", msgs)
	}
	_, cmd = m.Update(msgs[0])
	if cmd == nil {
		t.Fatal("confirmed quit should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestApp_QuitCleanExitsAtOnce(t *testing.T) {
	_, m, _ := newTestApp(t)
	_, cmd := m.Update(keyMsg("q"))
	msgs := drain(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("q produced %v", msgs)
	}
	_, cmd = m.Update(msgs[0])
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestApp_CloseReturnsToListing(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)

	_, cmd := m.Update(keyMsg("esc"))
	feed(t, m, cmd)
	if app.Mode != ModeListing || app.Notebook != nil {
		t.Errorf("mode=%v notebook=%v", app.Mode, app.Notebook)
	}
}

func TestApp_CloseDirtyAsks(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))

	m.Update(CloseNotebookMsg{})
	if app.Overlays.Len() != 1 || app.Mode != ModeNotebook {
		t.Fatal("closing a dirty notebook should ask first")
	}
	_, cmd := m.Update(keyMsg("enter"))
	feed(t, m, cmd)
	if app.Mode != ModeListing || app.Overlays.Len() != 0 {
		t.Errorf("mode=%v overlays=%d", app.Mode, app.Overlays.Len())
	}
}

func TestApp_ReloadDiscardsEditsAfterConfirm(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))

	_, cmd := m.Update(ReloadMsg{})
	if cmd != nil || app.Overlays.Len() != 1 {
		t.Fatal("reloading a dirty notebook should ask first")
	}
	_, cmd = m.Update(keyMsg("y"))
	feed(t, m, cmd)

	rec := app.Notebook.Record
	if rec.Dirty() || rec.Loading() || rec.Document().Notebook().Len() != 2 {
		t.Errorf("after reload: dirty=%v loading=%v cells=%d", rec.Dirty(), rec.Loading(), rec.Document().Notebook().Len())
	}
}

func TestApp_RestartKernelAndCellTypeMessages(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	id, _ := app.Notebook.Record.Document().CellFocus()
	app.Notebook.Apply(func(s document.DocumentState) (document.DocumentState, error) {
		return document.QueueCell(s, id)
	})

	m.Update(RestartKernelMsg{})
	if st := app.Notebook.Record.Document().Transient().Status(id); st != document.StatusIdle {
		t.Errorf("status after restart = %s", st)
	}

	m.Update(SetCellTypeMsg{Type: notebook.CellRaw})
	c, _ := app.Notebook.Record.Document().Notebook().CellByID(id)
	if c.Type != notebook.CellRaw {
		t.Errorf("type = %s", c.Type)
	}
}

func TestApp_EditorOwnsLeaderKey(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)

	m.Update(keyMsg("enter"))
	if !app.Notebook.Editing() {
		t.Fatal("enter should open the editor")
	}
	m.Update(keyMsg(" "))
	if app.KeyHandler.LeaderWaiting {
		t.Error("space in the editor must not start a leader sequence")
	}
	m.Update(keyMsg("esc"))
	if app.Notebook.Editing() {
		t.Fatal("esc leaves the editor")
	}
	if app.Mode != ModeNotebook {
		t.Error("the esc that leaves the editor must not close the notebook")
	}
	id, _ := app.Notebook.Record.Document().CellFocus()
	c, _ := app.Notebook.Record.Document().Notebook().CellByID(id)
	if c.Source != "x = 1 " {
		t.Errorf("source = %q", c.Source)
	}
}

func TestApp_FileChanged(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	last, _ := app.Notebook.Record.LastSaved()

	_, cmd := m.Update(FileChangedMsg{Path: testNotebookName, ModTime: last})
	if cmd != nil || app.Notebook.Record.Loading() {
		t.Error("a change at the last save time is our own write")
	}

	m.Update(keyMsg("a"))
	m.Update(FileChangedMsg{Path: testNotebookName, ModTime: last.Add(time.Second)})
	if app.Notebook.Record.Loading() || !strings.Contains(app.Notebook.Notice, "changed on disk") {
		t.Errorf("dirty notebook must not auto-reload, notice=%q", app.Notebook.Notice)
	}

	m.Update(keyMsg("d"))
	_, cmd = m.Update(FileChangedMsg{Path: testNotebookName, ModTime: last.Add(time.Second)})
	if cmd == nil || !app.Notebook.Record.Loading() {
		t.Error("clean notebook reloads after an external change")
	}
}

func TestApp_WatchDeliversExternalWrites(t *testing.T) {
	app, m, dir := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.ctx = ctx

	changes := make(chan tea.Msg, 8)
	app.SetSender(func(msg tea.Msg) { changes <- msg })

	feed(t, m, m.Init())
	_, cmd := m.Update(OpenEntryMsg{Entry: contents.Entry{Name: testNotebookName, Path: testNotebookName, Type: contents.FileNotebook}})
	var watch tea.Cmd
	for _, msg := range drain(t, cmd) {
		_, watch = m.Update(msg)
	}
	if watch == nil {
		t.Fatal("opening a notebook with a sender should start a watch")
	}
	stopped := make(chan tea.Msg, 1)
	go func() { stopped <- watch() }()

	time.Sleep(100 * time.Millisecond)
	data, _ := notebook.Marshal(notebook.Empty())
	if err := os.WriteFile(filepath.Join(dir, testNotebookName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-changes:
		if fc, ok := msg.(FileChangedMsg); !ok || fc.Path != testNotebookName {
			t.Errorf("got %#v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	m.Update(CloseNotebookMsg{})
	select {
	case msg := <-stopped:
		if _, ok := msg.(watchStoppedMsg); !ok {
			t.Errorf("watch ended with %#v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("closing the notebook should stop the watch")
	}
}

func TestApp_SaveToFileMadeReadOnlyAfterOpen(t *testing.T) {
	app, m, dir := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))
	if err := os.Chmod(filepath.Join(dir, testNotebookName), 0o444); err != nil {
		t.Fatal(err)
	}

	_, cmd := m.Update(SaveMsg{})
	feed(t, m, cmd)

	rec := app.Notebook.Record
	if !errors.Is(rec.Err(), document.ErrNotWritable) {
		t.Fatalf("err = %v", rec.Err())
	}
	if rec.Writable() || rec.Saving() || !rec.Dirty() {
		t.Errorf("writable=%v saving=%v dirty=%v", rec.Writable(), rec.Saving(), rec.Dirty())
	}
	if !strings.Contains(m.View(), "read-only") {
		t.Error("header should show the notebook is read-only now")
	}
}

func TestApp_CloseDropsStackedModals(t *testing.T) {
	app, m, _ := newTestApp(t)
	openTestNotebook(t, app, m)
	m.Update(keyMsg("a"))

	m.Update(ReloadMsg{})
	app.Overlays.Push(Overlay{
		View:    NewDiscardChangesModal("Close", testNotebookName, func() tea.Msg { return confirmedCloseMsg{} }),
		Dismiss: "esc",
	})
	if app.Overlays.Len() != 2 {
		t.Fatalf("overlays = %d, want 2", app.Overlays.Len())
	}

	_, cmd := m.Update(keyMsg("y"))
	feed(t, m, cmd)
	if app.Mode != ModeListing || app.Overlays.Len() != 0 {
		t.Errorf("mode=%v overlays=%d", app.Mode, app.Overlays.Len())
	}
}
