// Package ui is the Bubble Tea front end of nbterm.
//
// The app switches between two screens:
//   - ListingView: browses the contents root and opens notebooks
//   - NotebookView: shows one notebook's cells with execution prompts and
//     edits them through the document actions
//
// Modals (confirmations) sit on an OverlayStack above the current screen.
// Keys go to the topmost overlay first, then to the SPC leader keybinds,
// then to the screen.
package ui
