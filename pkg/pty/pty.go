// Package pty provides the pseudo-terminal transport: it spawns a child
// process on a PTY, pumps its output into a bounded queue and exposes the
// non-blocking drain/write/resize surface the terminal core consumes.
package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// Sentinel errors for transport failures
var (
	ErrSpawnFailed  = errors.New("failed to spawn child process")
	ErrChildExited  = errors.New("child process exited")
	ErrWriteFailed  = errors.New("failed to write to pty")
	ErrResizeFailed = errors.New("failed to resize pty")
)

// chunkQueueSize bounds the output chunks buffered between the reader
// goroutine and the tick loop.
const chunkQueueSize = 256

// readBufferSize is the size of each read from the PTY master.
const readBufferSize = 4096

// Transport is a live PTY session with a child process. A background
// goroutine reads the master side into a bounded channel; the owner drains
// it from its tick loop. All methods are safe for concurrent use.
type Transport struct {
	master *os.File
	cmd    *exec.Cmd
	chunks chan []byte
	done   chan struct{}
	quit   chan struct{}

	mu         sync.Mutex
	rows, cols int
	closed     bool

	reapOnce sync.Once
	waitErr  error

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts command on a new PTY of the given size. An empty command
// runs $SHELL, falling back to /bin/sh. The child gets TERM and COLORTERM
// describing the emulation on offer.
func Spawn(command []string, rows, cols int) (*Transport, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrSpawnFailed, rows, cols)
	}
	if len(command) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		command = []string{shell}
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	master, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, command[0], err)
	}

	t := &Transport{
		master: master,
		cmd:    cmd,
		chunks: make(chan []byte, chunkQueueSize),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		rows:   rows,
		cols:   cols,
	}
	go t.readLoop()
	return t, nil
}

// readLoop pumps the PTY master into the chunk channel until the child
// exits, the master is closed, or Close abandons the session. The channel
// close is the exit signal the drain side observes; the quit channel
// unblocks a send stuck on a full queue that nobody will drain again.
func (t *Transport) readLoop() {
	defer close(t.chunks)
	for {
		buf := make([]byte, readBufferSize)
		n, err := t.master.Read(buf)
		if n > 0 {
			select {
			case t.chunks <- buf[:n]:
			case <-t.quit:
				t.reap()
				close(t.done)
				return
			}
		}
		if err != nil {
			// EIO is the normal Linux signal that the slave side closed
			t.reap()
			close(t.done)
			return
		}
	}
}

// reap waits for the child exactly once
func (t *Transport) reap() {
	t.reapOnce.Do(func() {
		t.waitErr = t.cmd.Wait()
	})
}

// Drain returns all output chunks buffered since the last call without
// blocking. After the child has exited and all buffered output has been
// returned, Drain returns ErrChildExited alongside any final chunks.
func (t *Transport) Drain() ([][]byte, error) {
	var out [][]byte
	for {
		select {
		case chunk, ok := <-t.chunks:
			if !ok {
				return out, ErrChildExited
			}
			out = append(out, chunk)
		default:
			return out, nil
		}
	}
}

// Write sends input bytes to the child process
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: transport closed", ErrWriteFailed)
	}
	if _, err := t.master.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Resize updates the PTY window size and signals the child. Resizing to
// the current size is a no-op.
func (t *Transport) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrResizeFailed, rows, cols)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: transport closed", ErrResizeFailed)
	}
	if rows == t.rows && cols == t.cols {
		return nil
	}
	if err := pty.Setsize(t.master, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}
	t.rows, t.cols = rows, cols
	return nil
}

// Exited reports whether the child process has terminated. Buffered
// output may still be pending; Drain keeps returning it until it signals
// ErrChildExited.
func (t *Transport) Exited() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Close terminates the session: closes the master, kills the child if it
// is still running and reaps it. Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.quit)

		if err := t.master.Close(); err != nil {
			t.closeErr = fmt.Errorf("failed to close pty master: %w", err)
		}
		if t.cmd.Process != nil {
			// Best effort; the child may already be gone
			_ = t.cmd.Process.Kill()
		}
		t.reap()
	})
	return t.closeErr
}
