// Package terminal provides terminal emulation functionality: a resumable
// escape sequence parser, an authoritative cell grid with scrollback, and
// a Terminal that couples both to a PTY transport.
package terminal

import "fmt"

// Transport is the byte pipe between a terminal and its child process.
// Drain returns all output chunks received since the previous call without
// blocking; once the child has exited and every buffered chunk has been
// returned, Drain reports the transport's terminal error.
type Transport interface {
	Drain() ([][]byte, error)
	Write(data []byte) error
	Resize(rows, cols int) error
	Close() error
}

// Terminal couples a Transport, a Parser and a Grid into one emulated
// terminal. All methods are driven from the owner's tick loop; the grid's
// own locking makes concurrent Snapshot calls from a renderer safe.
type Terminal struct {
	transport Transport
	parser    *Parser
	grid      *Grid
	logger    Logger
}

// NewTerminal creates a terminal of the given size on top of a transport
func NewTerminal(transport Transport, rows, cols, scrollback int) (*Terminal, error) {
	grid, err := NewGrid(rows, cols, scrollback)
	if err != nil {
		return nil, err
	}
	return &Terminal{
		transport: transport,
		parser:    NewParser(),
		grid:      grid,
	}, nil
}

// SetLogger sets the logger for debug output on the parser and grid
func (t *Terminal) SetLogger(logger Logger) {
	t.logger = logger
	t.parser.SetLogger(logger)
	t.grid.SetLogger(logger)
}

// Grid exposes the terminal's grid for direct inspection
func (t *Terminal) Grid() *Grid {
	return t.grid
}

// Tick drains all pending transport output through the parser and applies
// the resulting commands to the grid. Query commands (device status and
// cursor position reports) are answered on the transport instead of being
// applied. Tick returns the transport's terminal error once the child has
// exited and its remaining output has been consumed.
func (t *Terminal) Tick() error {
	chunks, err := t.transport.Drain()
	for _, chunk := range chunks {
		for _, cmd := range t.parser.Feed(chunk) {
			t.dispatch(cmd)
		}
	}
	return err
}

func (t *Terminal) dispatch(cmd Command) {
	switch cmd.Type {
	case CmdRespond:
		t.respond(cmd.Text)
	case CmdReportCursor:
		row, col := t.grid.CursorPos()
		t.respond(fmt.Sprintf("\x1b[%d;%dR", row+1, col+1))
	default:
		t.grid.Apply(cmd)
	}
}

func (t *Terminal) respond(payload string) {
	if err := t.transport.Write([]byte(payload)); err != nil && t.logger != nil {
		t.logger.Debugf("terminal: dropping response: %v", err)
	}
}

// WriteInput sends user input bytes to the child process
func (t *Terminal) WriteInput(data []byte) error {
	if err := t.transport.Write(data); err != nil {
		return fmt.Errorf("failed to write input: %w", err)
	}
	return nil
}

// Paste sends pasted text, wrapped in bracketed paste markers when the
// application has requested them
func (t *Terminal) Paste(data []byte) error {
	if t.grid.BracketedPaste() {
		wrapped := make([]byte, 0, len(data)+12)
		wrapped = append(wrapped, "\x1b[200~"...)
		wrapped = append(wrapped, data...)
		wrapped = append(wrapped, "\x1b[201~"...)
		return t.WriteInput(wrapped)
	}
	return t.WriteInput(data)
}

// Resize resizes the grid and then the child's window. A grid failure
// aborts the resize; a transport failure is reported but leaves the grid
// at the new size.
func (t *Terminal) Resize(rows, cols int) error {
	if err := t.grid.Resize(rows, cols); err != nil {
		return err
	}
	if err := t.transport.Resize(rows, cols); err != nil {
		return fmt.Errorf("failed to resize child window: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the visible grid state
func (t *Terminal) Snapshot() Snapshot {
	return t.grid.Snapshot()
}

// Generation returns the grid's generation counter
func (t *Terminal) Generation() uint64 {
	return t.grid.Generation()
}

// Close shuts down the transport. Safe to call more than once.
func (t *Terminal) Close() error {
	return t.transport.Close()
}
