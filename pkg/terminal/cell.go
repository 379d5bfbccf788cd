package terminal

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// ColorMode distinguishes the three ways a cell color can be specified.
type ColorMode int

const (
	ColorModeDefault ColorMode = iota
	ColorModeIndexed
	ColorModeRGB
)

// String returns the string representation of ColorMode
func (m ColorMode) String() string {
	modes := []string{"default", "indexed", "rgb"}
	if int(m) < len(modes) {
		return modes[m]
	}
	return "unknown"
}

// Color represents a terminal color: the emulator default, one of the 256
// indexed palette entries, or a 24-bit RGB value.
type Color struct {
	Mode    ColorMode `json:"mode"`
	Index   uint8     `json:"index,omitempty"`
	R, G, B uint8     `json:"-"`
}

// DefaultColor returns the terminal default color
func DefaultColor() Color {
	return Color{Mode: ColorModeDefault}
}

// IndexedColor returns a palette color with the given index
func IndexedColor(index uint8) Color {
	return Color{Mode: ColorModeIndexed, Index: index}
}

// RGBColor returns a 24-bit color
func RGBColor(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, R: r, G: g, B: b}
}

// String returns the string representation of Color
func (c Color) String() string {
	switch c.Mode {
	case ColorModeIndexed:
		return fmt.Sprintf("indexed(%d)", c.Index)
	case ColorModeRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	default:
		return "default"
	}
}

// Attributes defines text formatting attributes for a cell
type Attributes struct {
	Foreground    Color `json:"foreground"`
	Background    Color `json:"background"`
	Bold          bool  `json:"bold"`
	Dim           bool  `json:"dim"`
	Italic        bool  `json:"italic"`
	Underline     bool  `json:"underline"`
	Blink         bool  `json:"blink"`
	Reverse       bool  `json:"reverse"`
	Strikethrough bool  `json:"strikethrough"`
}

// DefaultAttributes returns default text attributes
func DefaultAttributes() Attributes {
	return Attributes{
		Foreground: DefaultColor(),
		Background: DefaultColor(),
	}
}

// Cell represents a single character cell in the grid. Content holds the
// base character plus any combining marks attached to it; a spacer cell
// (the trailing half of a wide glyph) has empty Content.
type Cell struct {
	Content string     `json:"content"`
	Attrs   Attributes `json:"attrs"`
}

// BlankCell returns an empty cell carrying the given background
func BlankCell(bg Color) Cell {
	attrs := DefaultAttributes()
	attrs.Background = bg
	return Cell{Content: " ", Attrs: attrs}
}

// IsSpacer reports whether the cell is the trailing half of a wide glyph
func (c Cell) IsSpacer() bool {
	return c.Content == ""
}

// Width returns the display width of the cell content (0 for spacers)
func (c Cell) Width() int {
	return runewidth.StringWidth(c.Content)
}
