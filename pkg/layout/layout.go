// Package layout maintains the split-pane tree of a workspace: a binary
// tree of splits whose leaves are panes, stored in an index-addressed
// arena so pane handles stay valid across edits.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Sentinel errors for tree edits
var (
	ErrLastPane    = errors.New("cannot close the last pane")
	ErrUnknownPane = errors.New("unknown pane")
)

// Orientation of a split node
type Orientation int

const (
	// Horizontal splits side by side (children left and right)
	Horizontal Orientation = iota
	// Vertical splits stacked (children top and bottom)
	Vertical
)

// String returns the string representation of Orientation
func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Direction of focus navigation
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// String returns the string representation of Direction
func (d Direction) String() string {
	dirs := []string{"left", "right", "up", "down"}
	if int(d) < len(dirs) {
		return dirs[d]
	}
	return "unknown"
}

// PaneID is a stable handle to a leaf pane. It survives any sequence of
// splits and closes of other panes.
type PaneID uint64

// Rect is an axis-aligned region in logical pixels
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point lies inside the rect
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

func (r Rect) centerX() float64 { return r.X + r.Width/2 }
func (r Rect) centerY() float64 { return r.Y + r.Height/2 }

const (
	minRatio = 0.1
	maxRatio = 0.9
)

type nodeKind int

const (
	kindFree nodeKind = iota
	kindLeaf
	kindSplit
)

// node is one arena slot: either a leaf carrying a PaneID or a split with
// two child slots. Free slots are chained through nextFree.
type node struct {
	kind     nodeKind
	parent   int // arena index, -1 for the root
	pane     PaneID
	orient   Orientation
	ratio    float64
	first    int // arena index of the first child (the original pane)
	second   int
	nextFree int
}

// Tree is the split layout of one workspace. The zero value is not usable;
// create trees with NewTree.
type Tree struct {
	nodes    []node
	freeHead int
	root     int
	leaves   map[PaneID]int
	nextID   PaneID
}

// NewTree creates a tree holding a single root pane and returns its ID
func NewTree() (*Tree, PaneID) {
	t := &Tree{
		freeHead: -1,
		leaves:   make(map[PaneID]int),
		nextID:   1,
	}
	id := t.nextID
	t.nextID++
	t.root = t.alloc(node{kind: kindLeaf, parent: -1, pane: id})
	t.leaves[id] = t.root
	return t, id
}

func (t *Tree) alloc(n node) int {
	if t.freeHead >= 0 {
		idx := t.freeHead
		t.freeHead = t.nodes[idx].nextFree
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) free(idx int) {
	t.nodes[idx] = node{kind: kindFree, nextFree: t.freeHead}
	t.freeHead = idx
}

// Count returns the number of panes in the tree
func (t *Tree) Count() int {
	return len(t.leaves)
}

// Panes returns all pane IDs in ascending creation order
func (t *Tree) Panes() []PaneID {
	ids := make([]PaneID, 0, len(t.leaves))
	for id := range t.leaves {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Contains reports whether the pane exists in the tree
func (t *Tree) Contains(pane PaneID) bool {
	_, ok := t.leaves[pane]
	return ok
}

// Split divides the given pane in two and returns the new pane's ID. The
// original pane keeps the first (left or top) position; ratio is the share
// of the region it retains, clamped to [0.1, 0.9].
func (t *Tree) Split(pane PaneID, orient Orientation, ratio float64) (PaneID, error) {
	idx, ok := t.leaves[pane]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPane, pane)
	}
	ratio = clampRatio(ratio)

	newID := t.nextID
	t.nextID++

	// The leaf's slot becomes the split so the parent link stays intact;
	// both panes get fresh slots below it.
	parent := t.nodes[idx].parent
	firstIdx := t.alloc(node{kind: kindLeaf, parent: idx, pane: pane})
	secondIdx := t.alloc(node{kind: kindLeaf, parent: idx, pane: newID})
	t.nodes[idx] = node{
		kind:   kindSplit,
		parent: parent,
		orient: orient,
		ratio:  ratio,
		first:  firstIdx,
		second: secondIdx,
	}
	t.leaves[pane] = firstIdx
	t.leaves[newID] = secondIdx
	return newID, nil
}

// Close removes the pane and collapses its sibling into their parent's
// slot. Closing the only remaining pane returns ErrLastPane.
func (t *Tree) Close(pane PaneID) error {
	idx, ok := t.leaves[pane]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPane, pane)
	}
	if len(t.leaves) == 1 {
		return ErrLastPane
	}

	parentIdx := t.nodes[idx].parent
	parent := t.nodes[parentIdx]
	siblingIdx := parent.first
	if siblingIdx == idx {
		siblingIdx = parent.second
	}

	// The sibling takes over the parent's slot, preserving the
	// grandparent link.
	sibling := t.nodes[siblingIdx]
	sibling.parent = parent.parent
	t.nodes[parentIdx] = sibling
	switch sibling.kind {
	case kindLeaf:
		t.leaves[sibling.pane] = parentIdx
	case kindSplit:
		t.nodes[sibling.first].parent = parentIdx
		t.nodes[sibling.second].parent = parentIdx
	}

	delete(t.leaves, pane)
	t.free(idx)
	t.free(siblingIdx)
	return nil
}

// ComputeRects maps every pane to its region of the given root rect
func (t *Tree) ComputeRects(root Rect) map[PaneID]Rect {
	rects := make(map[PaneID]Rect, len(t.leaves))
	t.computeRects(t.root, root, rects)
	return rects
}

func (t *Tree) computeRects(idx int, area Rect, out map[PaneID]Rect) {
	n := t.nodes[idx]
	switch n.kind {
	case kindLeaf:
		out[n.pane] = area
	case kindSplit:
		first, second := splitRect(area, n.orient, n.ratio)
		t.computeRects(n.first, first, out)
		t.computeRects(n.second, second, out)
	}
}

func splitRect(area Rect, orient Orientation, ratio float64) (Rect, Rect) {
	if orient == Horizontal {
		w := area.Width * ratio
		first := Rect{X: area.X, Y: area.Y, Width: w, Height: area.Height}
		second := Rect{X: area.X + w, Y: area.Y, Width: area.Width - w, Height: area.Height}
		return first, second
	}
	h := area.Height * ratio
	first := Rect{X: area.X, Y: area.Y, Width: area.Width, Height: h}
	second := Rect{X: area.X, Y: area.Y + h, Width: area.Width, Height: area.Height - h}
	return first, second
}

// Navigate returns the pane adjacent to the given one in the direction,
// judged by geometry: among panes whose near edge lies at or beyond the
// current pane's far edge, the one with the closest center wins.
func (t *Tree) Navigate(pane PaneID, dir Direction, root Rect) (PaneID, bool) {
	rects := t.ComputeRects(root)
	from, ok := rects[pane]
	if !ok {
		return 0, false
	}

	// Creation order makes ties deterministic
	const edgeSlack = 0.5
	best := PaneID(0)
	bestDist := math.MaxFloat64
	found := false
	for _, id := range t.Panes() {
		if id == pane {
			continue
		}
		r := rects[id]
		qualified := false
		switch dir {
		case Left:
			qualified = r.X+r.Width <= from.X+edgeSlack
		case Right:
			qualified = r.X >= from.X+from.Width-edgeSlack
		case Up:
			qualified = r.Y+r.Height <= from.Y+edgeSlack
		case Down:
			qualified = r.Y >= from.Y+from.Height-edgeSlack
		}
		if !qualified {
			continue
		}
		dx := r.centerX() - from.centerX()
		dy := r.centerY() - from.centerY()
		dist := dx*dx + dy*dy
		if dist < bestDist {
			bestDist = dist
			best = id
			found = true
		}
	}
	return best, found
}

// NextPane returns the pane after the given one in creation order,
// wrapping around
func (t *Tree) NextPane(pane PaneID) PaneID {
	return t.cycle(pane, 1)
}

// PrevPane returns the pane before the given one in creation order,
// wrapping around
func (t *Tree) PrevPane(pane PaneID) PaneID {
	return t.cycle(pane, -1)
}

func (t *Tree) cycle(pane PaneID, step int) PaneID {
	ids := t.Panes()
	for i, id := range ids {
		if id == pane {
			n := len(ids)
			return ids[((i+step)%n+n)%n]
		}
	}
	return pane
}

// NudgeRatio grows or shrinks the pane along the axis implied by the
// direction, adjusting the nearest enclosing split of matching
// orientation. Left/Up shrink the first child; Right/Down grow it. The
// resulting ratio stays inside [0.1, 0.9].
func (t *Tree) NudgeRatio(pane PaneID, dir Direction, delta float64) error {
	idx, ok := t.leaves[pane]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPane, pane)
	}

	want := Horizontal
	if dir == Up || dir == Down {
		want = Vertical
	}
	for cur := t.nodes[idx].parent; cur >= 0; cur = t.nodes[cur].parent {
		n := &t.nodes[cur]
		if n.kind != kindSplit || n.orient != want {
			continue
		}
		if dir == Left || dir == Up {
			n.ratio = clampRatio(n.ratio - delta)
		} else {
			n.ratio = clampRatio(n.ratio + delta)
		}
		return nil
	}
	return nil // no enclosing split along that axis
}

func clampRatio(r float64) float64 {
	if r < minRatio {
		return minRatio
	}
	if r > maxRatio {
		return maxRatio
	}
	return r
}
