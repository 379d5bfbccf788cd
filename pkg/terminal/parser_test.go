package terminal

import (
	"reflect"
	"testing"
)

func TestParser_Feed_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Command
	}{
		{
			name:  "plain text",
			input: "hi",
			want: []Command{
				{Type: CmdPrint, Text: "h"},
				{Type: CmdPrint, Text: "i"},
			},
		},
		{
			name:  "controls",
			input: "a\r\n\tb",
			want: []Command{
				{Type: CmdPrint, Text: "a"},
				{Type: CmdCarriageReturn},
				{Type: CmdNewline},
				{Type: CmdTab},
				{Type: CmdPrint, Text: "b"},
			},
		},
		{
			name:  "cursor position",
			input: "\x1b[2;5H",
			want:  []Command{{Type: CmdMoveTo, Row: 1, Col: 4}},
		},
		{
			name:  "cursor position defaults",
			input: "\x1b[H",
			want:  []Command{{Type: CmdMoveTo, Row: 0, Col: 0}},
		},
		{
			name:  "cursor movement",
			input: "\x1b[3A\x1b[B\x1b[2C\x1b[D",
			want: []Command{
				{Type: CmdMoveBy, Row: -3},
				{Type: CmdMoveBy, Row: 1},
				{Type: CmdMoveBy, Col: 2},
				{Type: CmdMoveBy, Col: -1},
			},
		},
		{
			name:  "erase in display",
			input: "\x1b[2J",
			want:  []Command{{Type: CmdEraseInDisplay, N: 2}},
		},
		{
			name:  "erase in line default",
			input: "\x1b[K",
			want:  []Command{{Type: CmdEraseInLine, N: 0}},
		},
		{
			name:  "scroll region",
			input: "\x1b[2;10r",
			want:  []Command{{Type: CmdSetScrollRegion, Row: 1, Col: 9}},
		},
		{
			name:  "scroll region reset",
			input: "\x1b[r",
			want:  []Command{{Type: CmdResetScrollRegion}},
		},
		{
			name:  "save and restore cursor",
			input: "\x1b7\x1b8",
			want: []Command{
				{Type: CmdSaveCursor},
				{Type: CmdRestoreCursor},
			},
		},
		{
			name:  "reverse index",
			input: "\x1bM",
			want:  []Command{{Type: CmdReverseIndex}},
		},
		{
			name:  "full reset",
			input: "\x1bc",
			want:  []Command{{Type: CmdReset}},
		},
		{
			name:  "soft reset",
			input: "\x1b[!p",
			want:  []Command{{Type: CmdSoftReset}},
		},
		{
			name:  "osc title with bel",
			input: "\x1b]0;hello\x07",
			want:  []Command{{Type: CmdSetTitle, Text: "hello"}},
		},
		{
			name:  "osc title with st",
			input: "\x1b]2;world\x1b\\",
			want:  []Command{{Type: CmdSetTitle, Text: "world"}},
		},
		{
			name:  "bell",
			input: "\x07",
			want:  []Command{{Type: CmdBell}},
		},
		{
			name:  "device status report",
			input: "\x1b[5n\x1b[6n",
			want: []Command{
				{Type: CmdRespond, Text: "\x1b[0n"},
				{Type: CmdReportCursor},
			},
		},
		{
			name:  "device attributes",
			input: "\x1b[c",
			want:  []Command{{Type: CmdRespond, Text: "\x1b[?6c"}},
		},
		{
			name:  "repeat last character",
			input: "x\x1b[3b",
			want: []Command{
				{Type: CmdPrint, Text: "x"},
				{Type: CmdPrint, Text: "x"},
				{Type: CmdPrint, Text: "x"},
				{Type: CmdPrint, Text: "x"},
			},
		},
		{
			name:  "insert and delete",
			input: "\x1b[2L\x1b[M\x1b[3P\x1b[4@\x1b[5X",
			want: []Command{
				{Type: CmdInsertLines, N: 2},
				{Type: CmdDeleteLines, N: 1},
				{Type: CmdDeleteChars, N: 3},
				{Type: CmdInsertChars, N: 4},
				{Type: CmdEraseChars, N: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParser().Feed([]byte(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParser_Feed_PrivateModes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Command
	}{
		{
			name:  "autowrap off",
			input: "\x1b[?7l",
			want:  []Command{{Type: CmdSetAutoWrap, On: false}},
		},
		{
			name:  "cursor visible on",
			input: "\x1b[?25h",
			want:  []Command{{Type: CmdSetCursorVisible, On: true}},
		},
		{
			name:  "alt screen enter and exit",
			input: "\x1b[?1049h\x1b[?1049l",
			want: []Command{
				{Type: CmdEnterAltScreen},
				{Type: CmdExitAltScreen},
			},
		},
		{
			name:  "legacy alt screen",
			input: "\x1b[?47h",
			want:  []Command{{Type: CmdEnterAltScreen}},
		},
		{
			name:  "bracketed paste",
			input: "\x1b[?2004h",
			want:  []Command{{Type: CmdSetBracketedPaste, On: true}},
		},
		{
			name:  "combined modes",
			input: "\x1b[?25;2004l",
			want: []Command{
				{Type: CmdSetCursorVisible, On: false},
				{Type: CmdSetBracketedPaste, On: false},
			},
		},
		{
			name:  "unknown mode ignored",
			input: "\x1b[?9999h",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParser().Feed([]byte(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParser_Feed_SGR(t *testing.T) {
	bold := DefaultAttributes()
	bold.Bold = true

	boldRed := bold
	boldRed.Foreground = IndexedColor(1)

	indexed := DefaultAttributes()
	indexed.Foreground = IndexedColor(208)

	rgb := DefaultAttributes()
	rgb.Background = RGBColor(30, 30, 46)

	bright := DefaultAttributes()
	bright.Foreground = IndexedColor(12)

	tests := []struct {
		name  string
		input string
		want  []Command
	}{
		{
			name:  "reset",
			input: "\x1b[m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: DefaultAttributes()}},
		},
		{
			name:  "bold",
			input: "\x1b[1m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: bold}},
		},
		{
			name:  "bold red",
			input: "\x1b[1;31m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: boldRed}},
		},
		{
			name:  "256 color foreground",
			input: "\x1b[38;5;208m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: indexed}},
		},
		{
			name:  "truecolor background",
			input: "\x1b[48;2;30;30;46m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: rgb}},
		},
		{
			name:  "bright foreground",
			input: "\x1b[94m",
			want:  []Command{{Type: CmdSetAttributes, Attrs: bright}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParser().Feed([]byte(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestParser_Feed_PenPersists verifies the pen accumulates across separate
// SGR sequences
func TestParser_Feed_PenPersists(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("\x1b[1m"))
	got := p.Feed([]byte("\x1b[31m"))

	want := DefaultAttributes()
	want.Bold = true
	want.Foreground = IndexedColor(1)
	if len(got) != 1 || !reflect.DeepEqual(got[0].Attrs, want) {
		t.Errorf("pen after bold then red = %v, want %v", got, want)
	}
}

// TestParser_Feed_ChunkInvariance verifies the command stream is identical
// no matter where the input is split
func TestParser_Feed_ChunkInvariance(t *testing.T) {
	inputs := []string{
		"plain text",
		"A\x1b[2;1HB",
		"\x1b[1;31mcolor\x1b[0m done",
		"\x1b]0;a title\x07text",
		"héllo wörld",
		"日本語テキスト",
		"\x1b[?1049hfull\x1b[2Jscreen\x1b[?1049l",
		"mix\x1b[3A\r\nof\x1b[Keverything\x1b[38;5;100m!",
	}

	for _, input := range inputs {
		raw := []byte(input)
		whole := NewParser().Feed(raw)

		for split := 1; split < len(raw); split++ {
			p := NewParser()
			var got []Command
			got = append(got, p.Feed(raw[:split])...)
			got = append(got, p.Feed(raw[split:])...)
			if !reflect.DeepEqual(got, whole) {
				t.Errorf("input %q split at %d: got %v, want %v", input, split, got, whole)
			}
		}
	}
}

// TestParser_Feed_ByteAtATime feeds single bytes, the worst-case chunking
func TestParser_Feed_ByteAtATime(t *testing.T) {
	raw := []byte("A\x1b[2;1HB")
	whole := NewParser().Feed(raw)

	p := NewParser()
	var got []Command
	for _, b := range raw {
		got = append(got, p.Feed([]byte{b})...)
	}
	if !reflect.DeepEqual(got, whole) {
		t.Errorf("byte-at-a-time = %v, want %v", got, whole)
	}
}

func TestParser_Feed_SplitUTF8(t *testing.T) {
	raw := []byte("中") // 3 bytes
	p := NewParser()

	got := p.Feed(raw[:1])
	if len(got) != 0 {
		t.Errorf("partial UTF-8 produced commands: %v", got)
	}
	got = p.Feed(raw[1:])
	want := []Command{{Type: CmdPrint, Text: "中"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("completed UTF-8 = %v, want %v", got, want)
	}
}

func TestParser_Feed_InvalidUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []Command
	}{
		{
			name:  "orphaned continuation byte",
			input: []byte{0x80},
			want:  []Command{{Type: CmdPrint, Text: "�"}},
		},
		{
			name:  "interrupted sequence",
			input: []byte{0xE4, 'a'},
			want:  []Command{{Type: CmdPrint, Text: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParser().Feed(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParser_Feed_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Command
	}{
		{
			name:  "unknown csi final ignored",
			input: "\x1b[5yA",
			want:  []Command{{Type: CmdPrint, Text: "A"}},
		},
		{
			name:  "can aborts csi",
			input: "\x1b[2\x18A",
			want:  []Command{{Type: CmdPrint, Text: "A"}},
		},
		{
			name:  "esc restarts inside csi",
			input: "\x1b[2\x1b[3AB",
			want: []Command{
				{Type: CmdMoveBy, Row: -3},
				{Type: CmdPrint, Text: "B"},
			},
		},
		{
			name:  "newline executes inside csi",
			input: "\x1b[2\n5A",
			want: []Command{
				{Type: CmdNewline},
				{Type: CmdMoveBy, Row: -25},
			},
		},
		{
			name:  "unknown escape ignored",
			input: "\x1bXA",
			want:  []Command{{Type: CmdPrint, Text: "A"}},
		},
		{
			name:  "secondary device attributes consumed",
			input: "\x1b[>c",
			want:  nil,
		},
		{
			name:  "secondary device attributes with params consumed",
			input: "\x1b[>0;95;0chello",
			want: []Command{
				{Type: CmdPrint, Text: "h"},
				{Type: CmdPrint, Text: "e"},
				{Type: CmdPrint, Text: "l"},
				{Type: CmdPrint, Text: "l"},
				{Type: CmdPrint, Text: "o"},
			},
		},
		{
			name:  "equals marker consumed",
			input: "\x1b[=5nok",
			want: []Command{
				{Type: CmdPrint, Text: "o"},
				{Type: CmdPrint, Text: "k"},
			},
		},
		{
			name:  "invalid byte poisons rest of sequence",
			input: "\x1b[1\x805mA",
			want:  []Command{{Type: CmdPrint, Text: "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParser().Feed([]byte(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestParser_Feed_OversizedCSI verifies a parameter buffer past the cap is
// discarded and parsing recovers
func TestParser_Feed_OversizedCSI(t *testing.T) {
	input := []byte("\x1b[")
	for i := 0; i < 300; i++ {
		input = append(input, '1', ';')
	}
	input = append(input, 'H')
	input = append(input, 'Z')

	got := NewParser().Feed(input)
	want := []Command{{Type: CmdPrint, Text: "Z"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("oversized CSI = %v, want %v", got, want)
	}
}

// TestParser_Feed_OversizedOSC verifies an OSC payload past the cap is
// discarded
func TestParser_Feed_OversizedOSC(t *testing.T) {
	input := []byte("\x1b]0;")
	for i := 0; i < 2000; i++ {
		input = append(input, 'x')
	}
	input = append(input, 0x07)
	input = append(input, 'Z')

	got := NewParser().Feed(input)
	want := []Command{{Type: CmdPrint, Text: "Z"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("oversized OSC = %v, want %v", got, want)
	}
}

func TestParser_Feed_ParamClamp(t *testing.T) {
	got := NewParser().Feed([]byte("\x1b[99999999B"))
	want := []Command{{Type: CmdMoveBy, Row: maxParamValue}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clamped param = %v, want %v", got, want)
	}
}

func TestParser_Reset(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("\x1b[1;31m\x1b[2")) // mid-CSI with a colored pen
	p.Reset()

	got := p.Feed([]byte("A"))
	want := []Command{{Type: CmdPrint, Text: "A"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after Reset = %v, want %v", got, want)
	}
	got = p.Feed([]byte("\x1b[m"))
	if len(got) != 1 || !reflect.DeepEqual(got[0].Attrs, DefaultAttributes()) {
		t.Errorf("pen after Reset = %v, want defaults", got)
	}
}
