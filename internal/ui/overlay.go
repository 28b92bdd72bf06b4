package ui

import tea "github.com/charmbracelet/bubbletea"

// Overlay is a modal View plus the key that dismisses it.
type Overlay struct {
	View    View
	Dismiss string // e.g. "esc"
}

// IsDismissKey reports whether key closes this overlay.
func (o *Overlay) IsDismissKey(key string) bool {
	return key == o.Dismiss
}

// OverlayStack holds open modals. The topmost one receives input first.
type OverlayStack struct {
	Stack []Overlay
}

func (s *OverlayStack) Push(o Overlay) {
	s.Stack = append(s.Stack, o)
}

func (s *OverlayStack) Pop() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top, true
}

func (s *OverlayStack) Peek() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	return s.Stack[len(s.Stack)-1], true
}

func (s *OverlayStack) Len() int {
	return len(s.Stack)
}

// Clear drops every overlay.
func (s *OverlayStack) Clear() {
	s.Stack = nil
}

// UpdateTop passes msg to the top overlay and stores the View it returns.
// The caller runs the returned cmd.
func (s *OverlayStack) UpdateTop(msg tea.Msg) (tea.Cmd, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	top := &s.Stack[len(s.Stack)-1]
	newView, cmd := top.View.Update(msg)
	top.View = newView
	return cmd, true
}
