// Package app provides the main application controller: the workspace of
// panes, the tick loop that drives them and the interactive runner.
package app

import (
	"errors"
	"fmt"

	"paneterm/pkg/layout"
	"paneterm/pkg/pty"
	"paneterm/pkg/terminal"
)

// SpawnFunc creates the terminal for a new pane of the given size. It is
// injected so tests can substitute a fake transport for a real PTY.
type SpawnFunc func(rows, cols int) (*terminal.Terminal, error)

// CellMetrics converts between layout rects (logical pixels) and grid
// cells
type CellMetrics struct {
	CellWidth  float64
	CellHeight float64
}

// GridSize returns the rect's size in whole cells, at least 1x1
func (m CellMetrics) GridSize(r layout.Rect) (rows, cols int) {
	rows = int(r.Height / m.CellHeight)
	cols = int(r.Width / m.CellWidth)
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// Workspace owns the split tree and the terminal behind every pane. It is
// single-threaded: all methods are called from the owner's tick loop.
type Workspace struct {
	tree    *layout.Tree
	terms   map[layout.PaneID]*terminal.Terminal
	focused layout.PaneID
	spawn   SpawnFunc
	metrics CellMetrics
	root    layout.Rect
	sizes   map[layout.PaneID][2]int // last applied rows, cols
	logger  terminal.Logger
}

// NewWorkspace creates a workspace with a single pane filling the root
// rect
func NewWorkspace(spawn SpawnFunc, metrics CellMetrics, root layout.Rect) (*Workspace, error) {
	tree, first := layout.NewTree()
	ws := &Workspace{
		tree:    tree,
		terms:   make(map[layout.PaneID]*terminal.Terminal),
		focused: first,
		spawn:   spawn,
		metrics: metrics,
		root:    root,
		sizes:   make(map[layout.PaneID][2]int),
	}
	rows, cols := ws.paneGridSize(root)
	term, err := spawn(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to start initial pane: %w", err)
	}
	ws.terms[first] = term
	ws.sizes[first] = [2]int{rows, cols}
	return ws, nil
}

// SetLogger sets the logger for debug output
func (ws *Workspace) SetLogger(logger terminal.Logger) {
	ws.logger = logger
}

func (ws *Workspace) debugf(format string, args ...interface{}) {
	if ws.logger != nil {
		ws.logger.Debugf(format, args...)
	}
}

// Focused returns the currently focused pane
func (ws *Workspace) Focused() layout.PaneID {
	return ws.focused
}

// Terminal returns the terminal behind a pane, or nil
func (ws *Workspace) Terminal(pane layout.PaneID) *terminal.Terminal {
	return ws.terms[pane]
}

// Panes returns all pane IDs in creation order
func (ws *Workspace) Panes() []layout.PaneID {
	return ws.tree.Panes()
}

// Rects returns the current pane regions
func (ws *Workspace) Rects() map[layout.PaneID]layout.Rect {
	return ws.tree.ComputeRects(ws.root)
}

// SplitFocused splits the focused pane and moves focus to the new pane.
// The terminal is spawned before the tree is touched, so a failed spawn
// leaves the layout unchanged.
func (ws *Workspace) SplitFocused(orient layout.Orientation) (layout.PaneID, error) {
	// Predict the new pane's size from the post-split rect of the focused
	// pane: the second child of a 0.5 split.
	rects := ws.tree.ComputeRects(ws.root)
	cur, ok := rects[ws.focused]
	if !ok {
		return 0, fmt.Errorf("%w: %d", layout.ErrUnknownPane, ws.focused)
	}
	half := cur
	if orient == layout.Horizontal {
		half.Width /= 2
		half.X = cur.X + half.Width
	} else {
		half.Height /= 2
		half.Y = cur.Y + half.Height
	}
	rows, cols := ws.paneGridSize(half)

	term, err := ws.spawn(rows, cols)
	if err != nil {
		return 0, fmt.Errorf("failed to start pane: %w", err)
	}

	pane, err := ws.tree.Split(ws.focused, orient, 0.5)
	if err != nil {
		term.Close()
		return 0, err
	}
	ws.terms[pane] = term
	ws.sizes[pane] = [2]int{rows, cols}
	ws.focused = pane
	ws.ApplyRects()
	return pane, nil
}

// ClosePane tears down the pane's terminal and removes it from the tree.
// When the focused pane closes, focus moves to its geometric neighbor.
func (ws *Workspace) ClosePane(pane layout.PaneID) error {
	term, ok := ws.terms[pane]
	if !ok {
		return fmt.Errorf("%w: %d", layout.ErrUnknownPane, pane)
	}
	if err := ws.tree.Close(pane); err != nil {
		return err
	}
	if err := term.Close(); err != nil {
		ws.debugf("workspace: closing pane %d: %v", pane, err)
	}
	delete(ws.terms, pane)
	delete(ws.sizes, pane)
	if ws.focused == pane {
		ws.focused = ws.tree.Panes()[0]
	}
	ws.ApplyRects()
	return nil
}

// CloseFocused closes the focused pane
func (ws *Workspace) CloseFocused() error {
	return ws.ClosePane(ws.focused)
}

// FocusNext moves focus to the next pane in creation order
func (ws *Workspace) FocusNext() {
	ws.focused = ws.tree.NextPane(ws.focused)
}

// FocusPrev moves focus to the previous pane in creation order
func (ws *Workspace) FocusPrev() {
	ws.focused = ws.tree.PrevPane(ws.focused)
}

// FocusDirection moves focus to the geometric neighbor in the direction,
// if any
func (ws *Workspace) FocusDirection(dir layout.Direction) {
	if pane, ok := ws.tree.Navigate(ws.focused, dir, ws.root); ok {
		ws.focused = pane
	}
}

// NudgeFocused resizes the focused pane along the direction's axis
func (ws *Workspace) NudgeFocused(dir layout.Direction, delta float64) {
	if err := ws.tree.NudgeRatio(ws.focused, dir, delta); err != nil {
		ws.debugf("workspace: nudge pane %d: %v", ws.focused, err)
		return
	}
	ws.ApplyRects()
}

// WriteToFocused sends input bytes to the focused pane's child
func (ws *Workspace) WriteToFocused(data []byte) error {
	term := ws.terms[ws.focused]
	if term == nil {
		return fmt.Errorf("%w: %d", layout.ErrUnknownPane, ws.focused)
	}
	return term.WriteInput(data)
}

// PasteToFocused sends pasted text to the focused pane's child
func (ws *Workspace) PasteToFocused(data []byte) error {
	term := ws.terms[ws.focused]
	if term == nil {
		return fmt.Errorf("%w: %d", layout.ErrUnknownPane, ws.focused)
	}
	return term.Paste(data)
}

// SetRoot updates the workspace's root rect (window resize) and reflows
// every pane
func (ws *Workspace) SetRoot(root layout.Rect) {
	ws.root = root
	ws.ApplyRects()
}

// ApplyRects recomputes pane rects and resizes each pane whose
// cell-quantized size changed
func (ws *Workspace) ApplyRects() {
	rects := ws.tree.ComputeRects(ws.root)
	for pane, rect := range rects {
		term := ws.terms[pane]
		if term == nil {
			continue
		}
		rows, cols := ws.paneGridSize(rect)
		if prev := ws.sizes[pane]; prev[0] == rows && prev[1] == cols {
			continue
		}
		if err := term.Resize(rows, cols); err != nil {
			ws.debugf("workspace: resize pane %d to %dx%d: %v", pane, rows, cols, err)
			continue
		}
		ws.sizes[pane] = [2]int{rows, cols}
	}
}

// paneGridSize returns a pane rect's size in cells, reserving one column
// or row as a separator gutter on each side not flush with the root edge
func (ws *Workspace) paneGridSize(r layout.Rect) (rows, cols int) {
	rows, cols = ws.metrics.GridSize(r)
	if r.X+r.Width < ws.root.X+ws.root.Width-0.5 {
		cols--
	}
	if r.Y+r.Height < ws.root.Y+ws.root.Height-0.5 {
		rows--
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// Tick drains every pane's terminal. It never aborts on a single pane's
// failure; panes whose child has exited are returned so the caller can
// close them.
func (ws *Workspace) Tick() []layout.PaneID {
	var exited []layout.PaneID
	for _, pane := range ws.tree.Panes() {
		term := ws.terms[pane]
		if term == nil {
			continue
		}
		if err := term.Tick(); err != nil {
			if errors.Is(err, pty.ErrChildExited) {
				exited = append(exited, pane)
				continue
			}
			ws.debugf("workspace: tick pane %d: %v", pane, err)
		}
	}
	return exited
}

// CloseAll tears down every pane's terminal
func (ws *Workspace) CloseAll() {
	for pane, term := range ws.terms {
		if err := term.Close(); err != nil {
			ws.debugf("workspace: closing pane %d: %v", pane, err)
		}
	}
}
