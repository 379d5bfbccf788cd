package terminal

// parserState represents the current state of the escape sequence parser
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCharset
	stateCSI
	stateCSIIgnore
	stateOSC
	stateOSCEsc
)

const (
	// maxCSILength bounds the raw bytes accepted inside a CSI sequence
	// before the parser gives up and discards it.
	maxCSILength = 256
	// maxOSCLength bounds the payload accepted inside an OSC string.
	maxOSCLength = 1024
	// maxParamValue caps numeric parameters while parsing.
	maxParamValue = 65535
)

// Parser is a resumable VT100/ANSI escape sequence parser. It turns raw
// PTY output into Command values, carrying all state (parse state, pending
// parameters, partial UTF-8 sequences, current pen attributes) across Feed
// calls so that output may be split at arbitrary byte boundaries.
type Parser struct {
	state         parserState
	params        []int
	hasParam      bool
	private       bool
	intermediates []byte
	csiLen        int
	osc           []byte
	oscOverflow   bool
	decoder       utf8Decoder
	pen           Attributes
	lastPrinted   rune
	logger        Logger
}

// NewParser creates a new parser in the ground state
func NewParser() *Parser {
	return &Parser{
		params:        make([]int, 0, 16),
		intermediates: make([]byte, 0, 4),
		osc:           make([]byte, 0, 64),
		pen:           DefaultAttributes(),
	}
}

// SetLogger sets the logger for malformed-sequence diagnostics
func (p *Parser) SetLogger(logger Logger) {
	p.logger = logger
}

// Reset returns the parser to the ground state and default pen attributes.
// Buffered partial sequences are discarded.
func (p *Parser) Reset() {
	p.state = stateGround
	p.clearSequence()
	p.decoder.reset()
	p.pen = DefaultAttributes()
	p.lastPrinted = 0
}

// Feed processes a chunk of PTY output and returns the commands it
// completes. Sequences split across chunks resume on the next call; the
// returned commands are identical no matter how the byte stream is chunked.
func (p *Parser) Feed(chunk []byte) []Command {
	var cmds []Command
	for _, b := range chunk {
		cmds = p.parseByte(b, cmds)
	}
	return cmds
}

func (p *Parser) parseByte(b byte, cmds []Command) []Command {
	switch p.state {
	case stateGround:
		return p.parseGround(b, cmds)
	case stateEscape:
		return p.parseEscape(b, cmds)
	case stateCharset:
		// Charset designation (ESC ( X etc); the set byte is consumed
		// and ignored.
		p.state = stateGround
		return cmds
	case stateCSI:
		return p.parseCSI(b, cmds)
	case stateCSIIgnore:
		// Swallowing a discarded sequence through its final byte
		switch {
		case b == 0x1B:
			p.state = stateEscape
		case b == 0x18 || b == 0x1A:
			p.state = stateGround
		case b >= 0x40 && b <= 0x7E:
			p.state = stateGround
		}
		return cmds
	case stateOSC:
		return p.parseOSC(b, cmds)
	case stateOSCEsc:
		p.state = stateGround
		if b == '\\' { // ST terminates the string
			return p.dispatchOSC(cmds)
		}
		p.debugf("discarding OSC with stray ESC %#x", b)
		p.osc = p.osc[:0]
		return p.parseByte(b, cmds)
	}
	return cmds
}

func (p *Parser) parseGround(b byte, cmds []Command) []Command {
	if cmd, handled := p.execute(b); handled {
		return append(cmds, cmd)
	}
	if b == 0x1B {
		p.state = stateEscape
		return cmds
	}
	if b < 0x20 || b == 0x7F {
		// Unhandled C0 controls and DEL are ignored
		return cmds
	}
	r, complete := p.decoder.decode(b)
	if !complete {
		return cmds
	}
	p.lastPrinted = r
	return append(cmds, Command{Type: CmdPrint, Text: string(r)})
}

// execute handles the C0 controls that act even inside CSI sequences.
// The bool result reports whether the byte was a recognized control.
func (p *Parser) execute(b byte) (Command, bool) {
	switch b {
	case 0x07:
		return Command{Type: CmdBell}, true
	case 0x08:
		return Command{Type: CmdBackspace}, true
	case 0x09:
		return Command{Type: CmdTab}, true
	case 0x0A, 0x0B, 0x0C:
		return Command{Type: CmdNewline}, true
	case 0x0D:
		return Command{Type: CmdCarriageReturn}, true
	}
	return Command{}, false
}

func (p *Parser) parseEscape(b byte, cmds []Command) []Command {
	p.state = stateGround
	switch b {
	case '[':
		p.state = stateCSI
		p.clearSequence()
	case ']':
		p.state = stateOSC
		p.osc = p.osc[:0]
		p.oscOverflow = false
	case '(', ')', '*', '+':
		p.state = stateCharset
	case '7':
		cmds = append(cmds, Command{Type: CmdSaveCursor})
	case '8':
		cmds = append(cmds, Command{Type: CmdRestoreCursor})
	case 'D': // IND
		cmds = append(cmds, Command{Type: CmdNewline})
	case 'E': // NEL
		cmds = append(cmds,
			Command{Type: CmdCarriageReturn},
			Command{Type: CmdNewline})
	case 'M': // RI
		cmds = append(cmds, Command{Type: CmdReverseIndex})
	case 'c': // RIS
		cmds = append(cmds, Command{Type: CmdReset})
	case 0x1B:
		p.state = stateEscape
	case '=', '>':
		// Keypad application/numeric mode, not tracked
	default:
		p.debugf("unhandled escape sequence ESC %c", b)
	}
	return cmds
}

func (p *Parser) parseCSI(b byte, cmds []Command) []Command {
	if cmd, handled := p.execute(b); handled {
		// C0 controls execute immediately without aborting the sequence
		return append(cmds, cmd)
	}

	p.csiLen++
	if p.csiLen > maxCSILength {
		p.debugf("discarding oversized CSI sequence")
		p.state = stateCSIIgnore
		p.clearSequence()
		return cmds
	}

	switch {
	case b == 0x1B:
		p.state = stateEscape
		p.clearSequence()
	case b == 0x18 || b == 0x1A: // CAN, SUB
		p.state = stateGround
		p.clearSequence()
	case b >= '0' && b <= '9':
		if !p.hasParam {
			p.params = append(p.params, 0)
			p.hasParam = true
		}
		last := len(p.params) - 1
		p.params[last] = p.params[last]*10 + int(b-'0')
		if p.params[last] > maxParamValue {
			p.params[last] = maxParamValue
		}
	case b == ';' || b == ':':
		if !p.hasParam {
			p.params = append(p.params, 0)
		}
		p.hasParam = false
	case b >= 0x3C && b <= 0x3F: // private markers < = > ?
		p.private = true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
	case b >= 0x40 && b <= 0x7E:
		cmds = p.dispatchCSI(b, cmds)
		p.state = stateGround
		p.clearSequence()
	default:
		// Invalid bytes poison the sequence; swallow the rest of it
		p.debugf("discarding CSI with invalid byte %#x", b)
		p.state = stateCSIIgnore
		p.clearSequence()
	}
	return cmds
}

func (p *Parser) parseOSC(b byte, cmds []Command) []Command {
	switch {
	case b == 0x07: // BEL terminator
		p.state = stateGround
		return p.dispatchOSC(cmds)
	case b == 0x1B:
		p.state = stateOSCEsc
	case b == 0x18 || b == 0x1A:
		p.state = stateGround
		p.osc = p.osc[:0]
	default:
		if len(p.osc) >= maxOSCLength {
			p.oscOverflow = true
			return cmds
		}
		p.osc = append(p.osc, b)
	}
	return cmds
}

func (p *Parser) dispatchOSC(cmds []Command) []Command {
	defer func() {
		p.osc = p.osc[:0]
		p.oscOverflow = false
	}()
	if p.oscOverflow {
		p.debugf("discarding oversized OSC string")
		return cmds
	}
	payload := string(p.osc)
	code, arg := payload, ""
	for i := 0; i < len(payload); i++ {
		if payload[i] == ';' {
			code, arg = payload[:i], payload[i+1:]
			break
		}
	}
	switch code {
	case "0", "2": // icon name and/or window title
		return append(cmds, Command{Type: CmdSetTitle, Text: arg})
	default:
		p.debugf("unhandled OSC %s", code)
	}
	return cmds
}

func (p *Parser) dispatchCSI(final byte, cmds []Command) []Command {
	if len(p.intermediates) > 0 {
		if p.intermediates[0] == '!' && final == 'p' { // DECSTR
			return append(cmds, Command{Type: CmdSoftReset})
		}
		p.debugf("unhandled CSI %c with intermediates %q", final, p.intermediates)
		return cmds
	}
	if p.private {
		return p.dispatchPrivateMode(final, cmds)
	}

	switch final {
	case 'A':
		return append(cmds, Command{Type: CmdMoveBy, Row: -p.param(0, 1)})
	case 'B':
		return append(cmds, Command{Type: CmdMoveBy, Row: p.param(0, 1)})
	case 'C':
		return append(cmds, Command{Type: CmdMoveBy, Col: p.param(0, 1)})
	case 'D':
		return append(cmds, Command{Type: CmdMoveBy, Col: -p.param(0, 1)})
	case 'E': // CNL
		return append(cmds,
			Command{Type: CmdMoveBy, Row: p.param(0, 1)},
			Command{Type: CmdMoveCol, Col: 0})
	case 'F': // CPL
		return append(cmds,
			Command{Type: CmdMoveBy, Row: -p.param(0, 1)},
			Command{Type: CmdMoveCol, Col: 0})
	case 'G', '`':
		return append(cmds, Command{Type: CmdMoveCol, Col: p.param(0, 1) - 1})
	case 'd':
		return append(cmds, Command{Type: CmdMoveRow, Row: p.param(0, 1) - 1})
	case 'H', 'f':
		return append(cmds, Command{
			Type: CmdMoveTo,
			Row:  p.param(0, 1) - 1,
			Col:  p.param(1, 1) - 1,
		})
	case 'J':
		return append(cmds, Command{Type: CmdEraseInDisplay, N: p.param(0, 0)})
	case 'K':
		return append(cmds, Command{Type: CmdEraseInLine, N: p.param(0, 0)})
	case 'L':
		return append(cmds, Command{Type: CmdInsertLines, N: p.param(0, 1)})
	case 'M':
		return append(cmds, Command{Type: CmdDeleteLines, N: p.param(0, 1)})
	case 'P':
		return append(cmds, Command{Type: CmdDeleteChars, N: p.param(0, 1)})
	case '@':
		return append(cmds, Command{Type: CmdInsertChars, N: p.param(0, 1)})
	case 'X':
		return append(cmds, Command{Type: CmdEraseChars, N: p.param(0, 1)})
	case 'S':
		return append(cmds, Command{Type: CmdScrollUp, N: p.param(0, 1)})
	case 'T':
		return append(cmds, Command{Type: CmdScrollDown, N: p.param(0, 1)})
	case 'b': // REP
		if p.lastPrinted == 0 {
			return cmds
		}
		n := p.param(0, 1)
		for i := 0; i < n; i++ {
			cmds = append(cmds, Command{Type: CmdPrint, Text: string(p.lastPrinted)})
		}
		return cmds
	case 'r': // DECSTBM
		if len(p.params) == 0 {
			return append(cmds, Command{Type: CmdResetScrollRegion})
		}
		return append(cmds, Command{
			Type: CmdSetScrollRegion,
			Row:  p.param(0, 1) - 1,
			Col:  p.param(1, 0) - 1, // -1 means the last row
		})
	case 'm':
		p.applySGR()
		return append(cmds, Command{Type: CmdSetAttributes, Attrs: p.pen})
	case 's':
		return append(cmds, Command{Type: CmdSaveCursor})
	case 'u':
		return append(cmds, Command{Type: CmdRestoreCursor})
	case 'n': // DSR
		switch p.param(0, 0) {
		case 5:
			return append(cmds, Command{Type: CmdRespond, Text: "\x1b[0n"})
		case 6:
			return append(cmds, Command{Type: CmdReportCursor})
		}
		return cmds
	case 'c': // DA
		return append(cmds, Command{Type: CmdRespond, Text: "\x1b[?6c"})
	case 'h', 'l':
		// ANSI modes (IRM, LNM) are not tracked
		return cmds
	case 't':
		// Window manipulation, not applicable
		return cmds
	default:
		p.debugf("unhandled CSI sequence %c", final)
		return cmds
	}
}

func (p *Parser) dispatchPrivateMode(final byte, cmds []Command) []Command {
	if final != 'h' && final != 'l' {
		p.debugf("unhandled private CSI sequence %c", final)
		return cmds
	}
	on := final == 'h'
	for i := range p.params {
		switch p.params[i] {
		case 7: // DECAWM
			cmds = append(cmds, Command{Type: CmdSetAutoWrap, On: on})
		case 25: // DECTCEM
			cmds = append(cmds, Command{Type: CmdSetCursorVisible, On: on})
		case 47, 1047, 1049:
			if on {
				cmds = append(cmds, Command{Type: CmdEnterAltScreen})
			} else {
				cmds = append(cmds, Command{Type: CmdExitAltScreen})
			}
		case 2004:
			cmds = append(cmds, Command{Type: CmdSetBracketedPaste, On: on})
		case 1, 12, 1000, 1002, 1003, 1005, 1006:
			// Cursor key mode, cursor blink and mouse reporting are
			// accepted but not tracked
		default:
			p.debugf("unhandled private mode %d", p.params[i])
		}
	}
	return cmds
}

// applySGR folds the pending SGR parameters into the parser's pen
func (p *Parser) applySGR() {
	if len(p.params) == 0 {
		p.pen = DefaultAttributes()
		return
	}
	for i := 0; i < len(p.params); i++ {
		switch n := p.params[i]; {
		case n == 0:
			p.pen = DefaultAttributes()
		case n == 1:
			p.pen.Bold = true
		case n == 2:
			p.pen.Dim = true
		case n == 3:
			p.pen.Italic = true
		case n == 4:
			p.pen.Underline = true
		case n == 5:
			p.pen.Blink = true
		case n == 7:
			p.pen.Reverse = true
		case n == 9:
			p.pen.Strikethrough = true
		case n == 22:
			p.pen.Bold = false
			p.pen.Dim = false
		case n == 23:
			p.pen.Italic = false
		case n == 24:
			p.pen.Underline = false
		case n == 25:
			p.pen.Blink = false
		case n == 27:
			p.pen.Reverse = false
		case n == 29:
			p.pen.Strikethrough = false
		case n >= 30 && n <= 37:
			p.pen.Foreground = IndexedColor(uint8(n - 30))
		case n == 38:
			if c, skip, ok := p.extendedColor(i); ok {
				p.pen.Foreground = c
				i += skip
			} else {
				return
			}
		case n == 39:
			p.pen.Foreground = DefaultColor()
		case n >= 40 && n <= 47:
			p.pen.Background = IndexedColor(uint8(n - 40))
		case n == 48:
			if c, skip, ok := p.extendedColor(i); ok {
				p.pen.Background = c
				i += skip
			} else {
				return
			}
		case n == 49:
			p.pen.Background = DefaultColor()
		case n >= 90 && n <= 97:
			p.pen.Foreground = IndexedColor(uint8(n - 90 + 8))
		case n >= 100 && n <= 107:
			p.pen.Background = IndexedColor(uint8(n - 100 + 8))
		default:
			p.debugf("unhandled SGR parameter %d", n)
		}
	}
}

// extendedColor decodes the 38;5;n / 38;2;r;g;b forms starting at index i.
// It returns the color, the number of extra parameters consumed, and
// whether the form was valid.
func (p *Parser) extendedColor(i int) (Color, int, bool) {
	if i+1 >= len(p.params) {
		return Color{}, 0, false
	}
	switch p.params[i+1] {
	case 5:
		if i+2 >= len(p.params) {
			return Color{}, 0, false
		}
		return IndexedColor(uint8(clampParam(p.params[i+2], 255))), 2, true
	case 2:
		if i+4 >= len(p.params) {
			return Color{}, 0, false
		}
		return RGBColor(
			uint8(clampParam(p.params[i+2], 255)),
			uint8(clampParam(p.params[i+3], 255)),
			uint8(clampParam(p.params[i+4], 255)),
		), 4, true
	default:
		p.debugf("unhandled extended color form %d", p.params[i+1])
		return Color{}, 0, false
	}
}

// param returns parameter i, substituting def when it is absent or zero
func (p *Parser) param(i, def int) int {
	if i >= len(p.params) || p.params[i] == 0 {
		return def
	}
	return p.params[i]
}

func clampParam(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

func (p *Parser) clearSequence() {
	p.params = p.params[:0]
	p.hasParam = false
	p.private = false
	p.intermediates = p.intermediates[:0]
	p.csiLen = 0
}

func (p *Parser) debugf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debugf(format, args...)
	}
}

// utf8Decoder incrementally decodes UTF-8 byte sequences that may span
// chunk boundaries
type utf8Decoder struct {
	buf      [4]byte
	n        int
	expected int
}

// decode processes one byte and returns the completed rune, if any
func (d *utf8Decoder) decode(b byte) (rune, bool) {
	if d.expected > 0 {
		if b >= 0x80 && b < 0xC0 {
			d.buf[d.n] = b
			d.n++
			d.expected--
			if d.expected == 0 {
				r := decodeSequence(d.buf[:d.n])
				d.reset()
				return r, true
			}
			return 0, false
		}
		// Not a continuation byte: the pending sequence is broken.
		// Reprocess this byte as the start of a new character.
		d.reset()
	}

	switch {
	case b < 0x80:
		return rune(b), true
	case b < 0xC0:
		// Orphaned continuation byte
		return '�', true
	case b < 0xE0:
		d.buf[0], d.n, d.expected = b, 1, 1
	case b < 0xF0:
		d.buf[0], d.n, d.expected = b, 1, 2
	case b < 0xF8:
		d.buf[0], d.n, d.expected = b, 1, 3
	default:
		return '�', true
	}
	return 0, false
}

func (d *utf8Decoder) reset() {
	d.n = 0
	d.expected = 0
}

func decodeSequence(b []byte) rune {
	switch len(b) {
	case 2:
		return rune(b[0]&0x1F)<<6 | rune(b[1]&0x3F)
	case 3:
		return rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
	case 4:
		return rune(b[0]&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F)
	default:
		return '�'
	}
}
