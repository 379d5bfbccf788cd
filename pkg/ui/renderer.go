// Package ui renders workspace panes into a tcell screen and translates
// tcell input events into terminal byte sequences.
package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"paneterm/pkg/layout"
	"paneterm/pkg/terminal"
)

// Theme holds the resolved colors the renderer draws with
type Theme struct {
	Foreground tcell.Color
	Background tcell.Color
	Cursor     tcell.Color
	Border     tcell.Color
	Palette    [16]tcell.Color
}

// DefaultTheme returns a plain white-on-black theme with the standard
// ANSI palette
func DefaultTheme() Theme {
	var palette [16]tcell.Color
	for i := 0; i < 16; i++ {
		palette[i] = tcell.PaletteColor(i)
	}
	return Theme{
		Foreground: tcell.ColorWhite,
		Background: tcell.ColorBlack,
		Cursor:     tcell.ColorWhite,
		Border:     tcell.ColorGray,
		Palette:    palette,
	}
}

// PaneView is everything the renderer needs to draw one pane
type PaneView struct {
	ID       layout.PaneID
	Rect     layout.Rect
	Snapshot terminal.Snapshot
	Focused  bool
}

// Renderer draws pane snapshots into a tcell screen. It remembers the
// generation of each pane it drew last, so a frame with no grid changes,
// no layout changes and no focus change is skipped entirely.
type Renderer struct {
	theme    Theme
	lastGen  map[layout.PaneID]uint64
	lastRect map[layout.PaneID]layout.Rect
	lastFoc  layout.PaneID
	drawn    bool
}

// NewRenderer creates a renderer with the given theme
func NewRenderer(theme Theme) *Renderer {
	return &Renderer{
		theme:    theme,
		lastGen:  make(map[layout.PaneID]uint64),
		lastRect: make(map[layout.PaneID]layout.Rect),
	}
}

// SetTheme replaces the theme and forces a redraw on the next frame
func (r *Renderer) SetTheme(theme Theme) {
	r.theme = theme
	r.drawn = false
}

// Render draws the panes onto the screen if anything changed since the
// previous frame. It returns whether a draw happened.
func (r *Renderer) Render(screen tcell.Screen, panes []PaneView) bool {
	if !r.dirty(panes) {
		return false
	}

	screen.Fill(' ', tcell.StyleDefault.
		Foreground(r.theme.Foreground).
		Background(r.theme.Background))

	var focused *PaneView
	for i := range panes {
		r.drawPane(screen, &panes[i])
		if panes[i].Focused {
			focused = &panes[i]
		}
	}
	r.drawSeparators(screen, panes)

	if focused != nil && focused.Snapshot.CursorVisible &&
		focused.Snapshot.CursorRow < int(focused.Rect.Height) &&
		focused.Snapshot.CursorCol < int(focused.Rect.Width) {
		x := int(focused.Rect.X) + focused.Snapshot.CursorCol
		y := int(focused.Rect.Y) + focused.Snapshot.CursorRow
		screen.ShowCursor(x, y)
	} else {
		screen.HideCursor()
	}

	screen.Show()
	r.remember(panes)
	return true
}

func (r *Renderer) dirty(panes []PaneView) bool {
	if !r.drawn || len(panes) != len(r.lastGen) {
		return true
	}
	for i := range panes {
		p := &panes[i]
		gen, ok := r.lastGen[p.ID]
		if !ok || gen != p.Snapshot.Generation {
			return true
		}
		if r.lastRect[p.ID] != p.Rect {
			return true
		}
		if p.Focused && r.lastFoc != p.ID {
			return true
		}
	}
	return false
}

func (r *Renderer) remember(panes []PaneView) {
	r.drawn = true
	r.lastGen = make(map[layout.PaneID]uint64, len(panes))
	r.lastRect = make(map[layout.PaneID]layout.Rect, len(panes))
	for i := range panes {
		p := &panes[i]
		r.lastGen[p.ID] = p.Snapshot.Generation
		r.lastRect[p.ID] = p.Rect
		if p.Focused {
			r.lastFoc = p.ID
		}
	}
}

// drawPane draws a pane's snapshot, clipped to its rect so a stale
// snapshot never paints over a neighbor. Cells covered by a detected URL
// render underlined.
func (r *Renderer) drawPane(screen tcell.Screen, p *PaneView) {
	originX := int(p.Rect.X)
	originY := int(p.Rect.Y)
	maxRows := int(p.Rect.Height)
	maxCols := int(p.Rect.Width)
	snap := p.Snapshot
	for row := 0; row < snap.Rows && row < maxRows; row++ {
		urls := urlColumns(snap.Cells[row])
		for col := 0; col < snap.Cols && col < maxCols; col++ {
			cell := snap.Cells[row][col]
			if cell.IsSpacer() {
				continue
			}
			style := r.cellStyle(cell.Attrs)
			if urls[col] {
				style = style.Underline(true)
			}
			mainc, combc := splitContent(cell.Content)
			screen.SetContent(originX+col, originY+row, mainc, combc, style)
		}
	}
}

// urlColumns marks the columns covered by URLs in one row
func urlColumns(row []terminal.Cell) map[int]bool {
	matches := terminal.DetectURLs(row)
	if len(matches) == 0 {
		return nil
	}
	cols := make(map[int]bool)
	for _, m := range matches {
		for c := m.Start; c < m.End; c++ {
			cols[c] = true
		}
	}
	return cols
}

// splitContent separates a cell's content into the base rune and its
// combining marks, the form tcell's SetContent expects
func splitContent(content string) (rune, []rune) {
	runes := []rune(content)
	if len(runes) == 0 {
		return ' ', nil
	}
	if len(runes) == 1 {
		return runes[0], nil
	}
	return runes[0], runes[1:]
}

// drawSeparators draws a line on each internal pane edge. Edges are
// detected geometrically: any pane side not flush with the screen border
// is internal.
func (r *Renderer) drawSeparators(screen tcell.Screen, panes []PaneView) {
	w, h := screen.Size()
	style := tcell.StyleDefault.
		Foreground(r.theme.Border).
		Background(r.theme.Background)
	for i := range panes {
		rect := panes[i].Rect
		right := int(rect.X + rect.Width)
		bottom := int(rect.Y + rect.Height)
		if right < w {
			for y := int(rect.Y); y < bottom && y < h; y++ {
				screen.SetContent(right-1, y, tcell.RuneVLine, nil, style)
			}
		}
		if bottom < h {
			for x := int(rect.X); x < right && x < w; x++ {
				screen.SetContent(x, bottom-1, tcell.RuneHLine, nil, style)
			}
		}
	}
}

func (r *Renderer) cellStyle(attrs terminal.Attributes) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(r.convertColor(attrs.Foreground, r.theme.Foreground)).
		Background(r.convertColor(attrs.Background, r.theme.Background))
	if attrs.Bold {
		style = style.Bold(true)
	}
	if attrs.Dim {
		style = style.Dim(true)
	}
	if attrs.Italic {
		style = style.Italic(true)
	}
	if attrs.Underline {
		style = style.Underline(true)
	}
	if attrs.Blink {
		style = style.Blink(true)
	}
	if attrs.Reverse {
		style = style.Reverse(true)
	}
	if attrs.Strikethrough {
		style = style.StrikeThrough(true)
	}
	return style
}

// convertColor maps a terminal color to a tcell color, resolving the
// first 16 indexed entries through the theme palette
func (r *Renderer) convertColor(c terminal.Color, def tcell.Color) tcell.Color {
	switch c.Mode {
	case terminal.ColorModeIndexed:
		if c.Index < 16 {
			return r.theme.Palette[c.Index]
		}
		return tcell.PaletteColor(int(c.Index))
	case terminal.ColorModeRGB:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	default:
		return def
	}
}

// TruncateTitle shortens a pane title to fit the given display width,
// measured in terminal cells
func TruncateTitle(title string, width int) string {
	if uniseg.StringWidth(title) <= width {
		return title
	}
	if width <= 1 {
		return "…"
	}
	var out []rune
	used := 0
	gr := uniseg.NewGraphemes(title)
	for gr.Next() {
		w := gr.Width()
		if used+w > width-1 {
			break
		}
		out = append(out, gr.Runes()...)
		used += w
	}
	return string(out) + "…"
}
