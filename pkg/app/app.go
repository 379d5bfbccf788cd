package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"paneterm/pkg/config"
	"paneterm/pkg/layout"
	"paneterm/pkg/pty"
	"paneterm/pkg/terminal"
	"paneterm/pkg/ui"
)

// AppConfig contains application configuration
type AppConfig struct {
	Config     config.Config
	ConfigPath string // watched for hot reload when non-empty
	DebugLog   string // debug log file, empty to disable
}

// Application drives one interactive session: a tcell screen, a workspace
// of panes and the tick loop that pumps PTY output into their grids.
type Application struct {
	config    AppConfig
	screen    tcell.Screen
	workspace *Workspace
	renderer  *ui.Renderer
	watcher   *config.Watcher

	events  chan tcell.Event
	quit    chan struct{}
	quitOne sync.Once
	wg      sync.WaitGroup

	keymap      paneKeymap
	prefixArmed bool
	pasting     bool
	pasteBuf    []byte
	debugFile   *os.File

	mu        sync.Mutex
	isRunning bool
}

// NewApplication creates a new application instance
func NewApplication(cfg AppConfig) (*Application, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Application{
		config: cfg,
		keymap: keymapFromConfig(cfg.Config.Keybindings),
		events: make(chan tcell.Event, 64),
		quit:   make(chan struct{}),
	}, nil
}

// logDebug writes a debug message to the log file
func (app *Application) logDebug(format string, args ...interface{}) {
	if app.debugFile == nil {
		return
	}
	fmt.Fprintf(app.debugFile, "[%s] %s\n",
		time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}

// Debugf implements the terminal Logger interface
func (app *Application) Debugf(format string, args ...interface{}) {
	app.logDebug(format, args...)
}

// Run starts the application and blocks until the last pane closes or the
// user quits
func (app *Application) Run() error {
	if app.config.DebugLog != "" {
		f, err := os.Create(app.config.DebugLog)
		if err != nil {
			return fmt.Errorf("failed to create debug log: %w", err)
		}
		app.debugFile = f
		defer f.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	app.setScreen(screen)
	defer screen.Fini()
	defer app.setScreen(nil)
	screen.EnablePaste()

	cols, rows := screen.Size()
	cfg := app.config.Config
	spawn := func(rows, cols int) (*terminal.Terminal, error) {
		transport, err := pty.Spawn(cfg.Shell, rows, cols)
		if err != nil {
			return nil, err
		}
		term, err := terminal.NewTerminal(transport, rows, cols, cfg.Scrollback)
		if err != nil {
			transport.Close()
			return nil, err
		}
		term.SetLogger(app)
		term.Grid().SetAutoWrap(cfg.LineWrap)
		return term, nil
	}

	ws, err := NewWorkspace(spawn, CellMetrics{CellWidth: 1, CellHeight: 1}, layout.Rect{
		Width:  float64(cols),
		Height: float64(rows),
	})
	if err != nil {
		return err
	}
	ws.SetLogger(app)
	app.workspace = ws
	defer ws.CloseAll()

	app.renderer = ui.NewRenderer(themeFromConfig(cfg.Colors))

	if app.config.ConfigPath != "" {
		watcher, err := config.NewWatcher(app.config.ConfigPath)
		if err != nil {
			app.logDebug("app: config watcher unavailable: %v", err)
		} else {
			app.watcher = watcher
			defer watcher.Close()
		}
	}

	app.setRunning(true)
	defer app.setRunning(false)

	app.wg.Add(1)
	go app.pollEvents()
	defer app.wg.Wait()
	defer app.Stop()

	return app.tickLoop()
}

// pollEvents forwards tcell events to the tick loop. Stop wakes the
// blocking PollEvent by posting an interrupt event.
func (app *Application) pollEvents() {
	defer app.wg.Done()
	for {
		ev := app.screen.PollEvent()
		if ev == nil {
			return // screen finalized
		}
		select {
		case <-app.quit:
			return
		default:
		}
		select {
		case app.events <- ev:
		case <-app.quit:
			return
		}
	}
}

// tickLoop is the single-threaded heart of the application. Every tick it
// handles pending input events, drains every pane's PTY, reaps exited
// panes, applies config changes and renders.
func (app *Application) tickLoop() error {
	interval := time.Duration(app.config.Config.TickInterval()) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-app.quit:
			return nil
		case ev := <-app.events:
			if quit := app.handleEvent(ev); quit {
				return nil
			}
		case <-ticker.C:
			for _, ev := range drainEvents(app.events) {
				if quit := app.handleEvent(ev); quit {
					return nil
				}
			}
			for _, pane := range app.workspace.Tick() {
				err := app.workspace.ClosePane(pane)
				if err == layout.ErrLastPane {
					// The last child exiting ends the session
					return nil
				}
				if err != nil {
					app.logDebug("app: close exited pane %d: %v", pane, err)
				}
			}
			app.pollConfigChange()
			app.render()
		}
	}
}

// drainEvents empties the event channel without blocking
func drainEvents(ch chan tcell.Event) []tcell.Event {
	var out []tcell.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// handleEvent processes one tcell event; it reports whether the
// application should quit
func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		cols, rows := ev.Size()
		app.workspace.SetRoot(layout.Rect{Width: float64(cols), Height: float64(rows)})
		app.screen.Sync()
	case *tcell.EventPaste:
		if ev.Start() {
			app.pasting = true
			app.pasteBuf = app.pasteBuf[:0]
		} else {
			app.pasting = false
			if len(app.pasteBuf) > 0 {
				if err := app.workspace.PasteToFocused(app.pasteBuf); err != nil {
					app.logDebug("app: paste: %v", err)
				}
			}
		}
	case *tcell.EventKey:
		return app.handleKeyEvent(ev)
	}
	return false
}

// paneAction is a workspace operation a configured chord triggers
type paneAction int

const (
	actionSplitHorizontal paneAction = iota
	actionSplitVertical
	actionClosePane
	actionFocusNext
	actionFocusPrev
)

// paneKeymap resolves the configured chords, tmux style: one shared
// prefix key arms the map of command runes.
type paneKeymap struct {
	prefix  tcell.Key
	actions map[rune]paneAction
}

// keymapFromConfig builds the keymap from the configured bindings.
// Unparseable bindings never get here; Validate rejects them at load.
func keymapFromConfig(kb config.KeybindingsConfig) paneKeymap {
	km := paneKeymap{prefix: tcell.KeyCtrlB, actions: make(map[rune]paneAction, 5)}
	bindings := []struct {
		chord  string
		action paneAction
	}{
		{kb.SplitHorizontal, actionSplitHorizontal},
		{kb.SplitVertical, actionSplitVertical},
		{kb.ClosePane, actionClosePane},
		{kb.FocusNext, actionFocusNext},
		{kb.FocusPrev, actionFocusPrev},
	}
	for _, b := range bindings {
		chord, err := config.ParseChord(b.chord)
		if err != nil {
			continue
		}
		km.prefix = tcell.Key(chord.Prefix)
		km.actions[chord.Key] = b.action
	}
	return km
}

// handleKeyEvent routes a key press: the prefix arms a pane command, an
// armed command edits the workspace, everything else goes to the focused
// pane's child. Reports whether the application should quit.
func (app *Application) handleKeyEvent(ev *tcell.EventKey) bool {
	if app.pasting {
		// Paste content arrives as key events between the paste markers
		switch ev.Key() {
		case tcell.KeyRune:
			app.pasteBuf = append(app.pasteBuf, []byte(string(ev.Rune()))...)
		case tcell.KeyEnter:
			app.pasteBuf = append(app.pasteBuf, '\n')
		case tcell.KeyTab:
			app.pasteBuf = append(app.pasteBuf, '\t')
		}
		return false
	}
	if app.prefixArmed {
		app.prefixArmed = false
		return app.handlePaneCommand(ev)
	}
	if ev.Key() == app.keymap.prefix {
		app.prefixArmed = true
		return false
	}

	data := ui.EncodeKey(ev)
	if data == nil {
		return false
	}
	if err := app.workspace.WriteToFocused(data); err != nil {
		app.logDebug("app: write input: %v", err)
	}
	return false
}

// handlePaneCommand executes the command key following the prefix. The
// configured chords drive the workspace edits; navigation arrows, resize
// nudges and quit are fixed keys.
func (app *Application) handlePaneCommand(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case app.keymap.prefix:
		// Double prefix sends the literal control byte to the child
		if err := app.workspace.WriteToFocused([]byte{byte(app.keymap.prefix)}); err != nil {
			app.logDebug("app: write input: %v", err)
		}
		return false
	case tcell.KeyLeft:
		app.workspace.FocusDirection(layout.Left)
		return false
	case tcell.KeyRight:
		app.workspace.FocusDirection(layout.Right)
		return false
	case tcell.KeyUp:
		app.workspace.FocusDirection(layout.Up)
		return false
	case tcell.KeyDown:
		app.workspace.FocusDirection(layout.Down)
		return false
	}

	if action, ok := app.keymap.actions[ev.Rune()]; ok {
		return app.runPaneAction(action)
	}

	switch ev.Rune() {
	case 'h':
		app.workspace.NudgeFocused(layout.Left, 0.05)
	case 'l':
		app.workspace.NudgeFocused(layout.Right, 0.05)
	case 'k':
		app.workspace.NudgeFocused(layout.Up, 0.05)
	case 'j':
		app.workspace.NudgeFocused(layout.Down, 0.05)
	case 'q':
		return true
	}
	return false
}

func (app *Application) runPaneAction(action paneAction) bool {
	switch action {
	case actionSplitHorizontal:
		if _, err := app.workspace.SplitFocused(layout.Horizontal); err != nil {
			app.logDebug("app: split: %v", err)
		}
	case actionSplitVertical:
		if _, err := app.workspace.SplitFocused(layout.Vertical); err != nil {
			app.logDebug("app: split: %v", err)
		}
	case actionClosePane:
		if err := app.workspace.CloseFocused(); err != nil {
			if err == layout.ErrLastPane {
				return true
			}
			app.logDebug("app: close pane: %v", err)
		}
	case actionFocusNext:
		app.workspace.FocusNext()
	case actionFocusPrev:
		app.workspace.FocusPrev()
	}
	return false
}

// pollConfigChange applies a pending config file change, if any
func (app *Application) pollConfigChange() {
	if app.watcher == nil {
		return
	}
	select {
	case <-app.watcher.Changes():
		cfg, err := config.Load(app.config.ConfigPath)
		if err != nil {
			app.logDebug("app: config reload rejected: %v", err)
			return
		}
		app.config.Config = cfg
		app.keymap = keymapFromConfig(cfg.Keybindings)
		app.renderer.SetTheme(themeFromConfig(cfg.Colors))
		app.logDebug("app: config reloaded")
	default:
	}
}

// render draws the current workspace state
func (app *Application) render() {
	rects := app.workspace.Rects()
	panes := make([]ui.PaneView, 0, len(rects))
	for _, pane := range app.workspace.Panes() {
		term := app.workspace.Terminal(pane)
		if term == nil {
			continue
		}
		panes = append(panes, ui.PaneView{
			ID:       pane,
			Rect:     rects[pane],
			Snapshot: term.Snapshot(),
			Focused:  pane == app.workspace.Focused(),
		})
	}
	app.renderer.Render(app.screen, panes)
}

// themeFromConfig resolves the configured hex colors into a render theme
func themeFromConfig(colors config.ColorsConfig) ui.Theme {
	theme := ui.DefaultTheme()
	theme.Foreground = toTcell(colors.ForegroundColor(), theme.Foreground)
	theme.Background = toTcell(colors.BackgroundColor(), theme.Background)
	theme.Cursor = toTcell(colors.CursorColor(), theme.Cursor)
	for i, c := range colors.Palette() {
		theme.Palette[i] = toTcell(c, theme.Palette[i])
	}
	return theme
}

func toTcell(c terminal.Color, def tcell.Color) tcell.Color {
	if c.Mode != terminal.ColorModeRGB {
		return def
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Stop signals the application to shut down and wakes the event loop so
// it can observe the signal. Safe to call more than once.
func (app *Application) Stop() {
	app.quitOne.Do(func() {
		close(app.quit)
	})
	app.mu.Lock()
	screen := app.screen
	app.mu.Unlock()
	if screen != nil {
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

func (app *Application) setScreen(screen tcell.Screen) {
	app.mu.Lock()
	app.screen = screen
	app.mu.Unlock()
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.isRunning
}

func (app *Application) setRunning(v bool) {
	app.mu.Lock()
	app.isRunning = v
	app.mu.Unlock()
}
