package terminal

import "fmt"

// CommandType represents the different terminal commands the parser emits
type CommandType int

const (
	CmdPrint CommandType = iota
	CmdMoveTo
	CmdMoveBy
	CmdMoveCol
	CmdMoveRow
	CmdNewline
	CmdCarriageReturn
	CmdBackspace
	CmdTab
	CmdReverseIndex
	CmdSetAttributes
	CmdSetScrollRegion
	CmdResetScrollRegion
	CmdScrollUp
	CmdScrollDown
	CmdEraseInLine
	CmdEraseInDisplay
	CmdEraseChars
	CmdDeleteChars
	CmdInsertChars
	CmdInsertLines
	CmdDeleteLines
	CmdSaveCursor
	CmdRestoreCursor
	CmdSetCursorVisible
	CmdSetAutoWrap
	CmdSetBracketedPaste
	CmdEnterAltScreen
	CmdExitAltScreen
	CmdSetTitle
	CmdRespond
	CmdReportCursor
	CmdReset
	CmdSoftReset
	CmdBell
)

// String returns the string representation of CommandType
func (t CommandType) String() string {
	names := []string{
		"print", "move_to", "move_by", "move_col", "move_row",
		"newline", "carriage_return", "backspace", "tab", "reverse_index",
		"set_attributes", "set_scroll_region", "reset_scroll_region",
		"scroll_up", "scroll_down",
		"erase_in_line", "erase_in_display", "erase_chars",
		"delete_chars", "insert_chars", "insert_lines", "delete_lines",
		"save_cursor", "restore_cursor",
		"set_cursor_visible", "set_auto_wrap", "set_bracketed_paste",
		"enter_alt_screen", "exit_alt_screen",
		"set_title", "respond", "report_cursor",
		"reset", "soft_reset", "bell",
	}
	if int(t) >= 0 && int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Command is a single interpreted terminal operation. Which fields are
// meaningful depends on Type:
//
//	CmdPrint             Text (one decoded character)
//	CmdMoveTo            Row, Col (0-based, clamped by the grid)
//	CmdMoveBy            Row, Col (signed deltas)
//	CmdMoveCol/CmdMoveRow Col / Row
//	CmdSetScrollRegion   Row (top), Col (bottom, -1 = last row)
//	CmdScroll*/Erase*/Delete*/Insert* N (count or erase mode)
//	CmdSetAttributes     Attrs
//	CmdSet*              On
//	CmdSetTitle/CmdRespond Text
type Command struct {
	Type  CommandType
	Text  string
	N     int
	Row   int
	Col   int
	Attrs Attributes
	On    bool
}

// String returns a compact representation for debug logging
func (c Command) String() string {
	switch c.Type {
	case CmdPrint, CmdSetTitle, CmdRespond:
		return fmt.Sprintf("%s(%q)", c.Type, c.Text)
	case CmdMoveTo, CmdMoveBy, CmdSetScrollRegion:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.Row, c.Col)
	case CmdSetCursorVisible, CmdSetAutoWrap, CmdSetBracketedPaste:
		return fmt.Sprintf("%s(%v)", c.Type, c.On)
	default:
		return fmt.Sprintf("%s(%d)", c.Type, c.N)
	}
}
