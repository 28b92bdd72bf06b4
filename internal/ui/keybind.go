package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// binding is one registered key sequence.
type binding struct {
	cmd   tea.Cmd
	desc  string
	modes []AppMode // empty = every mode
}

func (b binding) appliesTo(mode AppMode) bool {
	if len(b.modes) == 0 {
		return true
	}
	for _, m := range b.modes {
		if m == mode {
			return true
		}
	}
	return false
}

// KeybindRegistry maps key sequences to commands.
// Key sequences use spacemacs-style notation: "SPC s" is SPC then s.
// Single keys: "q", "ctrl+c".
type KeybindRegistry struct {
	bindings map[string]binding
	// groups labels a prefix key that opens a submenu, e.g. "t" -> "Cell type".
	groups map[string]string
}

// NewKeybindRegistry creates an empty registry.
func NewKeybindRegistry() *KeybindRegistry {
	return &KeybindRegistry{
		bindings: make(map[string]binding),
		groups:   make(map[string]string),
	}
}

// Bind registers seq in every mode without a description.
func (r *KeybindRegistry) Bind(seq string, cmd tea.Cmd) {
	r.BindWithDesc(seq, cmd, "")
}

// BindWithDesc registers seq in every mode.
func (r *KeybindRegistry) BindWithDesc(seq string, cmd tea.Cmd, desc string) {
	r.BindForModes(seq, cmd, desc)
}

// BindForModes registers seq for the given modes only. No modes means all.
// An existing binding for seq is replaced.
func (r *KeybindRegistry) BindForModes(seq string, cmd tea.Cmd, desc string, modes ...AppMode) {
	r.bindings[normalizeSeq(seq)] = binding{cmd: cmd, desc: desc, modes: modes}
}

// Group names the submenu behind a leader prefix key.
func (r *KeybindRegistry) Group(key, label string) {
	r.groups[key] = label
}

// Lookup returns the command for seq in mode, or nil.
func (r *KeybindRegistry) Lookup(seq string, mode AppMode) tea.Cmd {
	b, ok := r.bindings[normalizeSeq(seq)]
	if !ok || !b.appliesTo(mode) {
		return nil
	}
	return b.cmd
}

// HasPrefix reports whether a longer binding active in mode starts with seq.
func (r *KeybindRegistry) HasPrefix(seq string, mode AppMode) bool {
	prefix := normalizeSeq(seq) + " "
	for k, b := range r.bindings {
		if strings.HasPrefix(k, prefix) && b.appliesTo(mode) {
			return true
		}
	}
	return false
}

// LeaderHints returns the next keys available after currentSeq ("" means
// right after SPC) in mode, mapped to their descriptions. Keys that open a
// submenu show the group label.
func (r *KeybindRegistry) LeaderHints(currentSeq string, mode AppMode) map[string]string {
	prefix := "SPC "
	if currentSeq != "" {
		prefix = normalizeSeq(currentSeq) + " "
	}
	out := make(map[string]string)
	for seq, b := range r.bindings {
		if b.cmd == nil || !strings.HasPrefix(seq, prefix) || !b.appliesTo(mode) {
			continue
		}
		rest := strings.Fields(strings.TrimPrefix(seq, prefix))
		if len(rest) == 0 {
			continue
		}
		next := rest[0]
		if len(rest) > 1 {
			label, ok := r.groups[next]
			if !ok {
				label = next + "…"
			}
			out[next] = label
			continue
		}
		if b.desc != "" {
			out[next] = b.desc
		} else {
			out[next] = seq
		}
	}
	return out
}

// normalizeSeq converts tea key strings to our canonical format.
// "space" -> "SPC", "ctrl+c" -> "ctrl+c", "j" -> "j".
func normalizeSeq(seq string) string {
	parts := strings.Fields(seq)
	for i, p := range parts {
		parts[i] = keyToSeqPart(p)
	}
	return strings.Join(parts, " ")
}

// keyToSeqPart converts a tea key string to our sequence part.
func keyToSeqPart(s string) string {
	if s == " " || s == "space" {
		return "SPC"
	}
	return s
}

// KeyHandler tracks leader key state and dispatches to the registry.
type KeyHandler struct {
	Registry      *KeybindRegistry
	LeaderKey     string   // tea.KeyMsg.String() of the leader: " "
	LeaderWaiting bool     // true between SPC and the end of a sequence
	Buffer        []string // sequence typed so far, starting with "SPC"
}

// NewKeyHandler creates a handler with SPC as leader.
// Bubble Tea reports space as " " (KeySpace), not "space".
func NewKeyHandler(reg *KeybindRegistry) *KeyHandler {
	return &KeyHandler{Registry: reg, LeaderKey: " "}
}

// Reset leaves leader mode.
func (h *KeyHandler) Reset() {
	h.LeaderWaiting = false
	h.Buffer = nil
}

// Sequence returns the leader sequence typed so far.
func (h *KeyHandler) Sequence() string {
	return strings.Join(h.Buffer, " ")
}

// Handle processes a KeyMsg in mode. consumed means the views must not see
// the key; cmd is the bound command, if any.
func (h *KeyHandler) Handle(msg tea.KeyMsg, mode AppMode) (consumed bool, cmd tea.Cmd) {
	s := msg.String()

	if s == "esc" {
		if h.LeaderWaiting {
			h.Reset()
			return true, nil
		}
		return false, nil
	}

	if s == h.LeaderKey && !h.LeaderWaiting {
		h.LeaderWaiting = true
		h.Buffer = []string{"SPC"}
		return true, nil
	}

	if h.LeaderWaiting {
		h.Buffer = append(h.Buffer, keyToSeqPart(s))
		seq := h.Sequence()
		if c := h.Registry.Lookup(seq, mode); c != nil {
			h.Reset()
			return true, c
		}
		if !h.Registry.HasPrefix(seq, mode) {
			h.Reset()
		}
		return true, nil
	}

	if c := h.Registry.Lookup(keyToSeqPart(s), mode); c != nil {
		return true, c
	}
	return false, nil
}

// leaderBindings turns the hints after seq into help bindings, sorted by
// key, with a trailing esc entry.
func leaderBindings(reg *KeybindRegistry, seq string, mode AppMode) []key.Binding {
	hints := reg.LeaderHints(seq, mode)
	if len(hints) == 0 {
		return nil
	}
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bindings := make([]key.Binding, 0, len(keys)+1)
	for _, k := range keys {
		bindings = append(bindings, key.NewBinding(key.WithKeys(k), key.WithHelp(k, hints[k])))
	}
	return append(bindings, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")))
}
