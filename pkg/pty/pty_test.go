package pty

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// drainAll polls the transport until the wanted substring shows up or the
// deadline passes, returning everything read
func drainAll(t *testing.T, tr *Transport, want string, deadline time.Duration) string {
	t.Helper()
	var buf bytes.Buffer
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		chunks, err := tr.Drain()
		for _, c := range chunks {
			buf.Write(c)
		}
		if strings.Contains(buf.String(), want) {
			return buf.String()
		}
		if err != nil {
			return buf.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	return buf.String()
}

// waitForExit polls Drain until it signals the child is gone
func waitForExit(t *testing.T, tr *Transport, deadline time.Duration) error {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		if _, err := tr.Drain(); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func TestSpawn_InvalidCommand(t *testing.T) {
	_, err := Spawn([]string{"/nonexistent/binary"}, 24, 80)
	if !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Spawn error = %v, want ErrSpawnFailed", err)
	}
}

func TestSpawn_InvalidSize(t *testing.T) {
	if _, err := Spawn([]string{"/bin/sh"}, 0, 80); !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Spawn(0 rows) error = %v, want ErrSpawnFailed", err)
	}
}

func TestTransport_EchoOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/echo", "hello"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer tr.Close()

	got := drainAll(t, tr, "hello", 2*time.Second)
	if !strings.Contains(got, "hello") {
		t.Errorf("output = %q, want it to contain hello", got)
	}
}

// TestTransport_ExitDetection verifies Drain reports ErrChildExited after
// the child terminates and its output has been consumed
func TestTransport_ExitDetection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/echo", "done"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer tr.Close()

	exitErr := waitForExit(t, tr, 2*time.Second)
	if !errors.Is(exitErr, ErrChildExited) {
		t.Errorf("Drain after exit error = %v, want ErrChildExited", exitErr)
	}
	if !tr.Exited() {
		t.Error("Exited() should report true after the child is gone")
	}
}

// TestTransport_WriteRoundTrip drives cat through the PTY and reads the
// echoed line back
func TestTransport_WriteRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/cat"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer tr.Close()

	if err := tr.Write([]byte("ping\r")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	got := drainAll(t, tr, "ping", 2*time.Second)
	if !strings.Contains(got, "ping") {
		t.Errorf("output = %q, want it to contain ping", got)
	}
}

func TestTransport_Resize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/cat"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer tr.Close()

	if err := tr.Resize(30, 100); err != nil {
		t.Errorf("Resize error: %v", err)
	}
	// Same size again is a no-op
	if err := tr.Resize(30, 100); err != nil {
		t.Errorf("Resize to current size error: %v", err)
	}
	if err := tr.Resize(0, 100); !errors.Is(err, ErrResizeFailed) {
		t.Errorf("Resize(0 rows) error = %v, want ErrResizeFailed", err)
	}
}

// TestTransport_CloseWithBackloggedOutput closes a transport whose child
// fills the chunk queue faster than anyone drains it, and verifies the
// close completes and the reader goroutine winds down
func TestTransport_CloseWithBackloggedOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/sh", "-c", "yes"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	// Let the child saturate the undrained queue
	time.Sleep(200 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		tr.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a full chunk queue")
	}

	stop := time.Now().Add(2 * time.Second)
	for !tr.Exited() {
		if time.Now().After(stop) {
			t.Fatal("reader goroutine did not wind down after Close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTransport_CloseIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pty integration test in short mode")
	}
	tr, err := Spawn([]string{"/bin/cat"}, 24, 80)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	first := tr.Close()
	second := tr.Close()
	if second != first {
		t.Errorf("second Close = %v, want same result as first (%v)", second, first)
	}
	if err := tr.Write([]byte("x")); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Write after Close error = %v, want ErrWriteFailed", err)
	}
	if err := tr.Resize(10, 10); !errors.Is(err, ErrResizeFailed) {
		t.Errorf("Resize after Close error = %v, want ErrResizeFailed", err)
	}
}
