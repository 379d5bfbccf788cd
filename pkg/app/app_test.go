package app

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"paneterm/pkg/config"
)

// newTestApplication builds an application over a stub-backed workspace
// so key handling can be exercised without a screen
func newTestApplication(t *testing.T, cfg config.Config) (*Application, *spawnRecorder) {
	t.Helper()
	app, err := NewApplication(AppConfig{Config: cfg})
	if err != nil {
		t.Fatalf("NewApplication error: %v", err)
	}
	ws, rec := newTestWorkspace(t)
	app.workspace = ws
	return app, rec
}

func pressKey(app *Application, key tcell.Key, r rune) bool {
	return app.handleKeyEvent(tcell.NewEventKey(key, r, 0))
}

// TestApplication_StopWakesEventLoop verifies Stop unblocks a poller
// stuck in PollEvent, so shutdown never hangs on the event goroutine
func TestApplication_StopWakesEventLoop(t *testing.T) {
	app, err := NewApplication(AppConfig{Config: config.DefaultConfig()})
	if err != nil {
		t.Fatalf("NewApplication error: %v", err)
	}
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init error: %v", err)
	}
	defer screen.Fini()
	app.setScreen(screen)

	app.wg.Add(1)
	go app.pollEvents()

	app.Stop()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event poller did not stop after Stop")
	}
}

func TestApplication_DefaultChords(t *testing.T) {
	app, _ := newTestApplication(t, config.DefaultConfig())

	pressKey(app, tcell.KeyCtrlB, 0)
	pressKey(app, tcell.KeyRune, 'd')
	if got := len(app.workspace.Panes()); got != 2 {
		t.Errorf("pane count after Ctrl+B d = %d, want 2", got)
	}

	pressKey(app, tcell.KeyCtrlB, 0)
	pressKey(app, tcell.KeyRune, 'w')
	if got := len(app.workspace.Panes()); got != 1 {
		t.Errorf("pane count after Ctrl+B w = %d, want 1", got)
	}
}

// TestApplication_ConfiguredChords verifies dispatch follows the
// configured bindings rather than fixed keys
func TestApplication_ConfiguredChords(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keybindings = config.KeybindingsConfig{
		SplitHorizontal: "Ctrl+A x",
		SplitVertical:   "Ctrl+A v",
		ClosePane:       "Ctrl+A c",
		FocusNext:       "Ctrl+A n",
		FocusPrev:       "Ctrl+A p",
	}
	app, rec := newTestApplication(t, cfg)

	// Ctrl+B is no longer the prefix; it goes to the child as input
	pressKey(app, tcell.KeyCtrlB, 0)
	if got := rec.transports[0].written.String(); got != "\x02" {
		t.Errorf("written = %q, want the Ctrl+B byte", got)
	}

	pressKey(app, tcell.KeyCtrlA, 0)
	pressKey(app, tcell.KeyRune, 'x')
	if got := len(app.workspace.Panes()); got != 2 {
		t.Errorf("pane count after Ctrl+A x = %d, want 2", got)
	}

	// The default command key is unbound under the custom map
	pressKey(app, tcell.KeyCtrlA, 0)
	pressKey(app, tcell.KeyRune, 'd')
	if got := len(app.workspace.Panes()); got != 2 {
		t.Errorf("pane count after unbound Ctrl+A d = %d, want 2", got)
	}

	first := app.workspace.Panes()[0]
	pressKey(app, tcell.KeyCtrlA, 0)
	pressKey(app, tcell.KeyRune, 'n')
	if app.workspace.Focused() != first {
		t.Errorf("focus after Ctrl+A n = %d, want %d", app.workspace.Focused(), first)
	}
}

func TestApplication_DoublePrefixIsLiteral(t *testing.T) {
	app, rec := newTestApplication(t, config.DefaultConfig())

	pressKey(app, tcell.KeyCtrlB, 0)
	pressKey(app, tcell.KeyCtrlB, 0)
	if got := rec.transports[0].written.String(); got != "\x02" {
		t.Errorf("written = %q, want the literal prefix byte", got)
	}
	if got := len(app.workspace.Panes()); got != 1 {
		t.Errorf("pane count = %d, want 1", got)
	}
}

func TestKeymapFromConfig(t *testing.T) {
	km := keymapFromConfig(config.DefaultKeybindings())
	if km.prefix != tcell.KeyCtrlB {
		t.Errorf("prefix = %v, want Ctrl+B", km.prefix)
	}
	want := map[rune]paneAction{
		'd': actionSplitHorizontal,
		's': actionSplitVertical,
		'w': actionClosePane,
		']': actionFocusNext,
		'[': actionFocusPrev,
	}
	for r, action := range want {
		if got, ok := km.actions[r]; !ok || got != action {
			t.Errorf("actions[%q] = %v (ok=%v), want %v", r, got, ok, action)
		}
	}
}

// TestApplication_CloseLastChordQuits verifies closing the only pane via
// the close chord ends the session
func TestApplication_CloseLastChordQuits(t *testing.T) {
	app, _ := newTestApplication(t, config.DefaultConfig())

	pressKey(app, tcell.KeyCtrlB, 0)
	if quit := pressKey(app, tcell.KeyRune, 'w'); !quit {
		t.Error("closing the last pane should quit")
	}
}
