package terminal

import (
	"fmt"
	"sync"

	"github.com/mattn/go-runewidth"
)

// ErrInvalidDimensions is returned when a grid is created or resized with
// non-positive dimensions
var ErrInvalidDimensions = fmt.Errorf("grid dimensions must be positive")

// Logger interface for debug logging
type Logger interface {
	Debugf(format string, args ...interface{})
}

// savedCursor holds the state captured by save-cursor operations
type savedCursor struct {
	row, col    int
	attrs       Attributes
	pendingWrap bool
}

// Grid is the authoritative screen state of one terminal: a rows×cols
// matrix of cells, cursor, scroll region, a bounded scrollback and an
// alternate screen buffer. Every applied command increments the generation
// counter exactly once, so renderers can compare generations to detect
// changes without diffing cells.
type Grid struct {
	mu sync.RWMutex

	rows, cols int
	primary    [][]Cell
	alt        [][]Cell
	useAlt     bool

	cursorRow, cursorCol int
	pendingWrap          bool
	attrs                Attributes
	saved                *savedCursor
	altEnterSaved        *savedCursor

	scrollTop    int
	scrollBottom int

	autoWrap       bool
	cursorVisible  bool
	bracketedPaste bool
	title          string

	scrollback      [][]Cell
	scrollbackLimit int

	generation uint64
	logger     Logger
}

// Snapshot is a deep copy of the visible grid state, safe to read without
// holding the grid's lock
type Snapshot struct {
	Rows, Cols           int
	Cells                [][]Cell
	CursorRow, CursorCol int
	CursorVisible        bool
	BracketedPaste       bool
	Title                string
	Generation           uint64
}

// NewGrid creates a grid with the given dimensions and scrollback capacity.
// A zero or negative scrollback capacity disables scrollback entirely.
func NewGrid(rows, cols, scrollback int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	g := &Grid{
		rows:            rows,
		cols:            cols,
		primary:         newBuffer(rows, cols),
		alt:             newBuffer(rows, cols),
		attrs:           DefaultAttributes(),
		scrollBottom:    rows - 1,
		autoWrap:        true,
		cursorVisible:   true,
		scrollbackLimit: scrollback,
	}
	return g, nil
}

// SetLogger sets the logger for debug output
func (g *Grid) SetLogger(logger Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = logger
}

// SetAutoWrap sets the initial autowrap mode (normally driven by DECAWM)
func (g *Grid) SetAutoWrap(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoWrap = on
}

func newBuffer(rows, cols int) [][]Cell {
	buf := make([][]Cell, rows)
	for i := range buf {
		buf[i] = blankRow(cols, DefaultColor())
	}
	return buf
}

func blankRow(cols int, bg Color) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = BlankCell(bg)
	}
	return row
}

func (g *Grid) buf() [][]Cell {
	if g.useAlt {
		return g.alt
	}
	return g.primary
}

// Generation returns the current generation counter
func (g *Grid) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// Size returns the current dimensions
func (g *Grid) Size() (rows, cols int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows, g.cols
}

// CursorPos returns the current cursor position (0-based)
func (g *Grid) CursorPos() (row, col int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorRow, g.cursorCol
}

// BracketedPaste reports whether bracketed paste mode is active
func (g *Grid) BracketedPaste() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bracketedPaste
}

// Title returns the window title set by the application
func (g *Grid) Title() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.title
}

// ScrollbackLen returns the number of lines currently retained in scrollback
func (g *Grid) ScrollbackLen() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.scrollback)
}

// ScrollbackLine returns a copy of scrollback line i, oldest first
func (g *Grid) ScrollbackLine(i int) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i < 0 || i >= len(g.scrollback) {
		return nil
	}
	line := make([]Cell, len(g.scrollback[i]))
	copy(line, g.scrollback[i])
	return line
}

// Cell returns a copy of the cell at (row, col) on the active buffer
func (g *Grid) Cell(row, col int) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return Cell{}
	}
	return g.buf()[row][col]
}

// Snapshot returns a deep copy of the visible state under a read lock
func (g *Grid) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cells := make([][]Cell, g.rows)
	src := g.buf()
	for i := range cells {
		cells[i] = make([]Cell, g.cols)
		copy(cells[i], src[i])
	}
	return Snapshot{
		Rows:           g.rows,
		Cols:           g.cols,
		Cells:          cells,
		CursorRow:      g.cursorRow,
		CursorCol:      g.cursorCol,
		CursorVisible:  g.cursorVisible,
		BracketedPaste: g.bracketedPaste,
		Title:          g.title,
		Generation:     g.generation,
	}
}

// Apply executes one command against the grid and bumps the generation
// counter. Commands are never coalesced or skipped; out-of-range targets
// clamp to the current bounds.
func (g *Grid) Apply(cmd Command) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++

	switch cmd.Type {
	case CmdPrint:
		g.print(cmd.Text)
	case CmdMoveTo:
		g.moveTo(cmd.Row, cmd.Col)
	case CmdMoveBy:
		g.moveTo(g.cursorRow+cmd.Row, g.cursorCol+cmd.Col)
	case CmdMoveCol:
		g.moveTo(g.cursorRow, cmd.Col)
	case CmdMoveRow:
		g.moveTo(cmd.Row, g.cursorCol)
	case CmdNewline:
		g.linefeed()
	case CmdCarriageReturn:
		g.cursorCol = 0
		g.pendingWrap = false
	case CmdBackspace:
		if g.cursorCol > 0 {
			g.cursorCol--
		}
		g.pendingWrap = false
	case CmdTab:
		next := (g.cursorCol/8 + 1) * 8
		g.moveTo(g.cursorRow, next)
	case CmdReverseIndex:
		if g.cursorRow == g.scrollTop {
			g.scrollDown(1)
		} else if g.cursorRow > 0 {
			g.cursorRow--
		}
		g.pendingWrap = false
	case CmdSetAttributes:
		g.attrs = cmd.Attrs
	case CmdSetScrollRegion:
		g.setScrollRegion(cmd.Row, cmd.Col)
	case CmdResetScrollRegion:
		g.setScrollRegion(0, g.rows-1)
	case CmdScrollUp:
		g.scrollUp(clampCount(cmd.N))
	case CmdScrollDown:
		g.scrollDown(clampCount(cmd.N))
	case CmdEraseInLine:
		g.eraseInLine(cmd.N)
	case CmdEraseInDisplay:
		g.eraseInDisplay(cmd.N)
	case CmdEraseChars:
		g.eraseChars(clampCount(cmd.N))
	case CmdDeleteChars:
		g.deleteChars(clampCount(cmd.N))
	case CmdInsertChars:
		g.insertChars(clampCount(cmd.N))
	case CmdInsertLines:
		g.insertLines(clampCount(cmd.N))
	case CmdDeleteLines:
		g.deleteLines(clampCount(cmd.N))
	case CmdSaveCursor:
		g.saved = &savedCursor{
			row:         g.cursorRow,
			col:         g.cursorCol,
			attrs:       g.attrs,
			pendingWrap: g.pendingWrap,
		}
	case CmdRestoreCursor:
		g.restoreCursor(g.saved)
	case CmdSetCursorVisible:
		g.cursorVisible = cmd.On
	case CmdSetAutoWrap:
		g.autoWrap = cmd.On
	case CmdSetBracketedPaste:
		g.bracketedPaste = cmd.On
	case CmdEnterAltScreen:
		g.enterAltScreen()
	case CmdExitAltScreen:
		g.exitAltScreen()
	case CmdSetTitle:
		g.title = cmd.Text
	case CmdReset:
		g.reset()
	case CmdSoftReset:
		g.softReset()
	case CmdBell, CmdRespond, CmdReportCursor:
		// No grid state involved
	default:
		if g.logger != nil {
			g.logger.Debugf("grid: unhandled command %v", cmd)
		}
	}
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (g *Grid) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= g.rows {
		return g.rows - 1
	}
	return row
}

func (g *Grid) clampCol(col int) int {
	if col < 0 {
		return 0
	}
	if col >= g.cols {
		return g.cols - 1
	}
	return col
}

func (g *Grid) moveTo(row, col int) {
	g.cursorRow = g.clampRow(row)
	g.cursorCol = g.clampCol(col)
	g.pendingWrap = false
}

// print writes one decoded character at the cursor. Zero-width characters
// (combining marks) attach to the previously written cell. The final
// column sets the pending-wrap flag instead of advancing, so the wrap
// happens lazily when the next character arrives.
func (g *Grid) print(text string) {
	if text == "" {
		return
	}
	r := []rune(text)[0]
	width := runewidth.RuneWidth(r)
	buf := g.buf()

	if width == 0 {
		g.combine(text)
		return
	}

	if g.pendingWrap {
		if g.autoWrap {
			g.cursorCol = 0
			g.linefeed()
			buf = g.buf()
		}
		g.pendingWrap = false
	}

	// A wide glyph that does not fit on the current line wraps early
	if width == 2 && g.cursorCol == g.cols-1 {
		if g.autoWrap {
			buf[g.cursorRow][g.cursorCol] = BlankCell(g.attrs.Background)
			g.cursorCol = 0
			g.linefeed()
			buf = g.buf()
		} else {
			g.cursorCol = g.clampCol(g.cols - 2)
		}
	}

	buf[g.cursorRow][g.cursorCol] = Cell{Content: text, Attrs: g.attrs}
	if width == 2 && g.cursorCol+1 < g.cols {
		buf[g.cursorRow][g.cursorCol+1] = Cell{Content: "", Attrs: g.attrs}
	}

	next := g.cursorCol + width
	if next < g.cols {
		g.cursorCol = next
	} else {
		g.pendingWrap = true
	}
}

// combine appends a zero-width character to the most recently written cell
func (g *Grid) combine(text string) {
	buf := g.buf()
	row, col := g.cursorRow, g.cursorCol
	if !g.pendingWrap {
		if col == 0 {
			return // nothing to attach to
		}
		col--
	}
	if buf[row][col].IsSpacer() && col > 0 {
		col--
	}
	if buf[row][col].Content != "" {
		buf[row][col].Content += text
	}
}

// linefeed moves the cursor down one row, scrolling the region when the
// cursor sits on its bottom row
func (g *Grid) linefeed() {
	g.pendingWrap = false
	if g.cursorRow == g.scrollBottom {
		g.scrollUp(1)
		return
	}
	if g.cursorRow < g.rows-1 {
		g.cursorRow++
	}
}

// scrollUp shifts the scroll region up by n rows. On the primary buffer
// the rows leaving the top of the region are retained in scrollback,
// oldest lines evicted beyond the capacity.
func (g *Grid) scrollUp(n int) {
	buf := g.buf()
	height := g.scrollBottom - g.scrollTop + 1
	if n > height {
		n = height
	}
	for i := 0; i < n; i++ {
		if !g.useAlt && g.scrollbackLimit > 0 {
			line := make([]Cell, g.cols)
			copy(line, buf[g.scrollTop])
			g.scrollback = append(g.scrollback, line)
			if len(g.scrollback) > g.scrollbackLimit {
				g.scrollback = g.scrollback[1:]
			}
		}
		copy(buf[g.scrollTop:g.scrollBottom+1], buf[g.scrollTop+1:g.scrollBottom+1])
		buf[g.scrollBottom] = blankRow(g.cols, g.attrs.Background)
	}
}

// scrollDown shifts the scroll region down by n rows
func (g *Grid) scrollDown(n int) {
	buf := g.buf()
	height := g.scrollBottom - g.scrollTop + 1
	if n > height {
		n = height
	}
	for i := 0; i < n; i++ {
		copy(buf[g.scrollTop+1:g.scrollBottom+1], buf[g.scrollTop:g.scrollBottom])
		buf[g.scrollTop] = blankRow(g.cols, g.attrs.Background)
	}
}

func (g *Grid) setScrollRegion(top, bottom int) {
	if bottom < 0 {
		bottom = g.rows - 1
	}
	top = g.clampRow(top)
	bottom = g.clampRow(bottom)
	if top >= bottom {
		top, bottom = 0, g.rows-1
	}
	g.scrollTop = top
	g.scrollBottom = bottom
	g.moveTo(0, 0)
}

func (g *Grid) eraseInLine(mode int) {
	buf := g.buf()
	row := buf[g.cursorRow]
	switch mode {
	case 0: // cursor to end of line
		for i := g.cursorCol; i < g.cols; i++ {
			row[i] = BlankCell(g.attrs.Background)
		}
	case 1: // start of line through cursor
		for i := 0; i <= g.cursorCol; i++ {
			row[i] = BlankCell(g.attrs.Background)
		}
	case 2: // whole line
		for i := 0; i < g.cols; i++ {
			row[i] = BlankCell(g.attrs.Background)
		}
	}
	g.pendingWrap = false
}

func (g *Grid) eraseInDisplay(mode int) {
	buf := g.buf()
	switch mode {
	case 0: // cursor to end of screen
		g.eraseInLine(0)
		for r := g.cursorRow + 1; r < g.rows; r++ {
			buf[r] = blankRow(g.cols, g.attrs.Background)
		}
	case 1: // start of screen through cursor
		for r := 0; r < g.cursorRow; r++ {
			buf[r] = blankRow(g.cols, g.attrs.Background)
		}
		g.eraseInLine(1)
	case 2: // whole screen, cursor stays
		for r := 0; r < g.rows; r++ {
			buf[r] = blankRow(g.cols, g.attrs.Background)
		}
	case 3: // whole screen plus scrollback
		for r := 0; r < g.rows; r++ {
			buf[r] = blankRow(g.cols, g.attrs.Background)
		}
		g.scrollback = nil
	}
	g.pendingWrap = false
}

func (g *Grid) eraseChars(n int) {
	row := g.buf()[g.cursorRow]
	for i := g.cursorCol; i < g.cursorCol+n && i < g.cols; i++ {
		row[i] = BlankCell(g.attrs.Background)
	}
	g.pendingWrap = false
}

func (g *Grid) deleteChars(n int) {
	row := g.buf()[g.cursorRow]
	if n > g.cols-g.cursorCol {
		n = g.cols - g.cursorCol
	}
	copy(row[g.cursorCol:], row[g.cursorCol+n:])
	for i := g.cols - n; i < g.cols; i++ {
		row[i] = BlankCell(g.attrs.Background)
	}
	g.pendingWrap = false
}

func (g *Grid) insertChars(n int) {
	row := g.buf()[g.cursorRow]
	if n > g.cols-g.cursorCol {
		n = g.cols - g.cursorCol
	}
	copy(row[g.cursorCol+n:], row[g.cursorCol:g.cols-n])
	for i := g.cursorCol; i < g.cursorCol+n; i++ {
		row[i] = BlankCell(g.attrs.Background)
	}
	g.pendingWrap = false
}

// insertLines shifts lines below the cursor down within the scroll region
func (g *Grid) insertLines(n int) {
	if g.cursorRow < g.scrollTop || g.cursorRow > g.scrollBottom {
		return
	}
	buf := g.buf()
	if n > g.scrollBottom-g.cursorRow+1 {
		n = g.scrollBottom - g.cursorRow + 1
	}
	for i := 0; i < n; i++ {
		copy(buf[g.cursorRow+1:g.scrollBottom+1], buf[g.cursorRow:g.scrollBottom])
		buf[g.cursorRow] = blankRow(g.cols, g.attrs.Background)
	}
	g.cursorCol = 0
	g.pendingWrap = false
}

// deleteLines removes lines at the cursor, pulling the region up
func (g *Grid) deleteLines(n int) {
	if g.cursorRow < g.scrollTop || g.cursorRow > g.scrollBottom {
		return
	}
	buf := g.buf()
	if n > g.scrollBottom-g.cursorRow+1 {
		n = g.scrollBottom - g.cursorRow + 1
	}
	for i := 0; i < n; i++ {
		copy(buf[g.cursorRow:g.scrollBottom+1], buf[g.cursorRow+1:g.scrollBottom+1])
		buf[g.scrollBottom] = blankRow(g.cols, g.attrs.Background)
	}
	g.cursorCol = 0
	g.pendingWrap = false
}

func (g *Grid) restoreCursor(saved *savedCursor) {
	if saved == nil {
		g.moveTo(0, 0)
		g.attrs = DefaultAttributes()
		return
	}
	g.cursorRow = g.clampRow(saved.row)
	g.cursorCol = g.clampCol(saved.col)
	g.attrs = saved.attrs
	g.pendingWrap = saved.pendingWrap
}

// enterAltScreen switches to the alternate buffer, clearing it first. The
// primary buffer, cursor and attributes are preserved for the matching
// exit.
func (g *Grid) enterAltScreen() {
	if g.useAlt {
		return
	}
	g.altEnterSaved = &savedCursor{
		row:         g.cursorRow,
		col:         g.cursorCol,
		attrs:       g.attrs,
		pendingWrap: g.pendingWrap,
	}
	g.useAlt = true
	g.alt = newBuffer(g.rows, g.cols)
	g.moveTo(0, 0)
	g.setScrollRegionQuiet(0, g.rows-1)
}

func (g *Grid) exitAltScreen() {
	if !g.useAlt {
		return
	}
	g.useAlt = false
	g.setScrollRegionQuiet(0, g.rows-1)
	g.restoreCursor(g.altEnterSaved)
	g.altEnterSaved = nil
}

// setScrollRegionQuiet resets the region without homing the cursor
func (g *Grid) setScrollRegionQuiet(top, bottom int) {
	g.scrollTop = top
	g.scrollBottom = bottom
}

func (g *Grid) reset() {
	g.primary = newBuffer(g.rows, g.cols)
	g.alt = newBuffer(g.rows, g.cols)
	g.useAlt = false
	g.cursorRow, g.cursorCol = 0, 0
	g.pendingWrap = false
	g.attrs = DefaultAttributes()
	g.saved = nil
	g.altEnterSaved = nil
	g.scrollTop = 0
	g.scrollBottom = g.rows - 1
	g.autoWrap = true
	g.cursorVisible = true
	g.bracketedPaste = false
	g.title = ""
}

func (g *Grid) softReset() {
	g.attrs = DefaultAttributes()
	g.scrollTop = 0
	g.scrollBottom = g.rows - 1
	g.autoWrap = true
	g.cursorVisible = true
	g.pendingWrap = false
	g.saved = nil
}

// Resize changes the grid dimensions, keeping the overlapping region of
// both buffers. The cursor is clamped into the new bounds and the scroll
// region resets to the full screen. Resizing bumps the generation counter.
func (g *Grid) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if rows == g.rows && cols == g.cols {
		return nil
	}
	g.generation++
	g.primary = resizeBuffer(g.primary, rows, cols)
	g.alt = resizeBuffer(g.alt, rows, cols)
	g.rows, g.cols = rows, cols
	g.cursorRow = g.clampRow(g.cursorRow)
	g.cursorCol = g.clampCol(g.cursorCol)
	g.scrollTop = 0
	g.scrollBottom = rows - 1
	g.pendingWrap = false
	if g.saved != nil {
		g.saved.row = g.clampRow(g.saved.row)
		g.saved.col = g.clampCol(g.saved.col)
	}
	if g.altEnterSaved != nil {
		g.altEnterSaved.row = g.clampRow(g.altEnterSaved.row)
		g.altEnterSaved.col = g.clampCol(g.altEnterSaved.col)
	}
	return nil
}

func resizeBuffer(buf [][]Cell, rows, cols int) [][]Cell {
	out := make([][]Cell, rows)
	for r := 0; r < rows; r++ {
		out[r] = blankRow(cols, DefaultColor())
		if r < len(buf) {
			copy(out[r], buf[r])
		}
	}
	return out
}
