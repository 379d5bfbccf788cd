package ui

import "github.com/gdamore/tcell/v2"

// EncodeKey translates a tcell key event into the byte sequence a child
// process expects to read from its terminal. Unmappable events return nil.
func EncodeKey(ev *tcell.EventKey) []byte {
	var seq []byte

	switch ev.Key() {
	case tcell.KeyEnter:
		seq = []byte{'\r'}
	case tcell.KeyTab:
		seq = []byte{'\t'}
	case tcell.KeyBacktab:
		seq = []byte("\x1b[Z")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		seq = []byte{0x7F}
	case tcell.KeyEscape:
		seq = []byte{0x1B}
	case tcell.KeyUp:
		seq = []byte("\x1b[A")
	case tcell.KeyDown:
		seq = []byte("\x1b[B")
	case tcell.KeyRight:
		seq = []byte("\x1b[C")
	case tcell.KeyLeft:
		seq = []byte("\x1b[D")
	case tcell.KeyHome:
		seq = []byte("\x1b[H")
	case tcell.KeyEnd:
		seq = []byte("\x1b[F")
	case tcell.KeyInsert:
		seq = []byte("\x1b[2~")
	case tcell.KeyDelete:
		seq = []byte("\x1b[3~")
	case tcell.KeyPgUp:
		seq = []byte("\x1b[5~")
	case tcell.KeyPgDn:
		seq = []byte("\x1b[6~")
	case tcell.KeyF1:
		seq = []byte("\x1bOP")
	case tcell.KeyF2:
		seq = []byte("\x1bOQ")
	case tcell.KeyF3:
		seq = []byte("\x1bOR")
	case tcell.KeyF4:
		seq = []byte("\x1bOS")
	case tcell.KeyF5:
		seq = []byte("\x1b[15~")
	case tcell.KeyF6:
		seq = []byte("\x1b[17~")
	case tcell.KeyF7:
		seq = []byte("\x1b[18~")
	case tcell.KeyF8:
		seq = []byte("\x1b[19~")
	case tcell.KeyF9:
		seq = []byte("\x1b[20~")
	case tcell.KeyF10:
		seq = []byte("\x1b[21~")
	case tcell.KeyF11:
		seq = []byte("\x1b[23~")
	case tcell.KeyF12:
		seq = []byte("\x1b[24~")
	case tcell.KeyRune:
		seq = []byte(string(ev.Rune()))
	default:
		// Control characters arrive as their own key codes in the
		// Ctrl-A..Ctrl-Z / Ctrl-@ .. Ctrl-_ range
		if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
			seq = []byte{byte(ev.Key())}
		} else if ev.Key() == tcell.KeyCtrlSpace {
			seq = []byte{0x00}
		} else if ev.Key() >= tcell.KeyCtrlLeftSq && ev.Key() <= tcell.KeyCtrlUnderscore {
			seq = []byte{byte(ev.Key())}
		}
	}

	if seq == nil {
		return nil
	}
	// The Alt modifier prefixes the sequence with ESC
	if ev.Modifiers()&tcell.ModAlt != 0 {
		return append([]byte{0x1B}, seq...)
	}
	return seq
}
