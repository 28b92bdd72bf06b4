package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestKeybindRegistry_BindLookup(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("q", tea.Quit)
	reg.Bind("SPC q", tea.Quit)
	reg.Bind("j", nil)

	if reg.Lookup("q", ModeListing) == nil {
		t.Error("expected q to be bound")
	}
	if reg.Lookup("space q", ModeNotebook) == nil {
		t.Error("expected space q to normalize to SPC q")
	}
	if reg.Lookup("unknown", ModeListing) != nil {
		t.Error("expected unknown to be unbound")
	}
}

func TestKeybindRegistry_ModeFilter(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.BindForModes("SPC s", tea.Quit, "Save", ModeNotebook)

	if reg.Lookup("SPC s", ModeListing) != nil {
		t.Error("SPC s must not fire in the listing")
	}
	if reg.Lookup("SPC s", ModeNotebook) == nil {
		t.Error("SPC s must fire in the notebook")
	}
	if hints := reg.LeaderHints("", ModeListing); len(hints) != 0 {
		t.Errorf("listing hints = %v, want none", hints)
	}
}

func TestKeybindRegistry_LeaderHintsGroups(t *testing.T) {
	reg := newKeybindRegistry()

	hints := reg.LeaderHints("", ModeNotebook)
	for k, want := range map[string]string{"s": "Save", "r": "Reload", "k": "Restart kernel session", "t": "Cell type", "q": "Quit"} {
		if hints[k] != want {
			t.Errorf("hint %q = %q, want %q", k, hints[k], want)
		}
	}
	if _, ok := hints["ctrl+c"]; ok {
		t.Error("single keys are not leader hints")
	}

	sub := reg.LeaderHints("SPC t", ModeNotebook)
	if sub["m"] != "Markdown" || sub["c"] != "Code" || sub["r"] != "Raw" {
		t.Errorf("SPC t hints = %v", sub)
	}

	listing := reg.LeaderHints("", ModeListing)
	if _, ok := listing["s"]; ok {
		t.Error("save is notebook only")
	}
	if listing["r"] != "Reload" {
		t.Errorf("listing hints = %v", listing)
	}
}

func TestKeyHandler_LeaderKey(t *testing.T) {
	reg := NewKeybindRegistry()
	var executed bool
	reg.Bind("SPC x", func() tea.Msg {
		executed = true
		return nil
	})
	h := NewKeyHandler(reg)

	consumed, cmd := h.Handle(keyMsg(" "), ModeListing)
	if !consumed || cmd != nil {
		t.Errorf("space: consumed=%v cmd=%v", consumed, cmd)
	}
	if !h.LeaderWaiting {
		t.Error("expected leader waiting after space")
	}

	consumed, cmd = h.Handle(keyMsg("x"), ModeListing)
	if !consumed || cmd == nil {
		t.Fatalf("x: consumed=%v cmd=%v", consumed, cmd)
	}
	if h.LeaderWaiting {
		t.Error("leader should not be waiting after completing sequence")
	}
	cmd()
	if !executed {
		t.Error("expected command to execute")
	}
}

func TestKeyHandler_MultiKeySequence(t *testing.T) {
	reg := newKeybindRegistry()
	h := NewKeyHandler(reg)

	h.Handle(keyMsg(" "), ModeNotebook)
	consumed, cmd := h.Handle(keyMsg("t"), ModeNotebook)
	if !consumed || cmd != nil || !h.LeaderWaiting {
		t.Fatalf("t: consumed=%v cmd=%v waiting=%v", consumed, cmd, h.LeaderWaiting)
	}
	if h.Sequence() != "SPC t" {
		t.Errorf("sequence = %q", h.Sequence())
	}
	_, cmd = h.Handle(keyMsg("m"), ModeNotebook)
	if cmd == nil {
		t.Fatal("SPC t m should be bound")
	}
	if got, ok := cmd().(SetCellTypeMsg); !ok || got.Type != "markdown" {
		t.Errorf("SPC t m produced %#v", cmd())
	}
}

func TestKeyHandler_UnknownSequenceResets(t *testing.T) {
	h := NewKeyHandler(newKeybindRegistry())
	h.Handle(keyMsg(" "), ModeNotebook)
	consumed, cmd := h.Handle(keyMsg("z"), ModeNotebook)
	if !consumed || cmd != nil {
		t.Errorf("z: consumed=%v cmd=%v", consumed, cmd)
	}
	if h.LeaderWaiting {
		t.Error("unknown sequence should leave leader mode")
	}
}

func TestKeyHandler_EscCancelsLeader(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("SPC x", tea.Quit)
	h := NewKeyHandler(reg)

	h.Handle(keyMsg(" "), ModeListing)
	if !h.LeaderWaiting {
		t.Fatal("expected leader waiting")
	}

	consumed, cmd := h.Handle(keyMsg("esc"), ModeListing)
	if !consumed || cmd != nil {
		t.Errorf("esc: consumed=%v cmd=%v", consumed, cmd)
	}
	if h.LeaderWaiting {
		t.Error("esc should cancel leader mode")
	}

	consumed, _ = h.Handle(keyMsg("esc"), ModeListing)
	if consumed {
		t.Error("esc outside leader mode belongs to the views")
	}
}

func TestKeyHandler_SingleKey(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.BindForModes("q", tea.Quit, "Quit", ModeListing)
	h := NewKeyHandler(reg)

	consumed, cmd := h.Handle(keyMsg("q"), ModeListing)
	if !consumed || cmd == nil {
		t.Errorf("q: consumed=%v cmd=%v", consumed, cmd)
	}
	consumed, _ = h.Handle(keyMsg("q"), ModeNotebook)
	if consumed {
		t.Error("q is listing only")
	}
}

func TestKeyHandler_UnboundFallsThrough(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("q", tea.Quit)
	h := NewKeyHandler(reg)

	consumed, _ := h.Handle(keyMsg("j"), ModeListing)
	if consumed {
		t.Error("unbound j should not be consumed")
	}
}

func TestRenderKeybindHelp(t *testing.T) {
	h := NewKeyHandler(newKeybindRegistry())
	if RenderKeybindHelp(h, ModeNotebook) != "" {
		t.Error("no help outside leader mode")
	}
	h.Handle(keyMsg(" "), ModeNotebook)
	out := RenderKeybindHelp(h, ModeNotebook)
	for _, want := range []string{"SPC", "Save", "Cell type", "cancel"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}
}

// keyMsg creates a tea.KeyMsg for testing. Bubble Tea uses KeyType and Runes.
// KeySpace.String() returns " ", KeyEsc returns "esc", etc.
func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "space", " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}
