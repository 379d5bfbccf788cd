// Package config provides configuration management functionality
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	colorful "github.com/lucasb-eyer/go-colorful"

	"paneterm/pkg/terminal"
)

// Config is the persisted application configuration
type Config struct {
	Shell          []string          `json:"shell,omitempty"`
	Scrollback     int               `json:"scrollback"`
	LineWrap       bool              `json:"line_wrap"`
	TickIntervalMS int               `json:"tick_interval_ms"`
	Colors         ColorsConfig      `json:"colors"`
	Keybindings    KeybindingsConfig `json:"keybindings"`
}

// ColorsConfig holds the color theme as hex strings
type ColorsConfig struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Cursor     string `json:"cursor"`

	Black   string `json:"black"`
	Red     string `json:"red"`
	Green   string `json:"green"`
	Yellow  string `json:"yellow"`
	Blue    string `json:"blue"`
	Magenta string `json:"magenta"`
	Cyan    string `json:"cyan"`
	White   string `json:"white"`

	BrightBlack   string `json:"bright_black"`
	BrightRed     string `json:"bright_red"`
	BrightGreen   string `json:"bright_green"`
	BrightYellow  string `json:"bright_yellow"`
	BrightBlue    string `json:"bright_blue"`
	BrightMagenta string `json:"bright_magenta"`
	BrightCyan    string `json:"bright_cyan"`
	BrightWhite   string `json:"bright_white"`
}

// KeybindingsConfig maps workspace operations to key chords
type KeybindingsConfig struct {
	SplitHorizontal string `json:"split_horizontal"`
	SplitVertical   string `json:"split_vertical"`
	ClosePane       string `json:"close_pane"`
	FocusNext       string `json:"focus_next"`
	FocusPrev       string `json:"focus_prev"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Scrollback:     10000,
		LineWrap:       true,
		TickIntervalMS: 8,
		Colors:         DefaultColors(),
		Keybindings:    DefaultKeybindings(),
	}
}

// DefaultColors returns the default color theme
func DefaultColors() ColorsConfig {
	return ColorsConfig{
		Foreground: "#ffffff",
		Background: "#000000",
		Cursor:     "#bf00ff",

		Black:   "#45475a",
		Red:     "#f38ba8",
		Green:   "#a6e3a1",
		Yellow:  "#f9e2af",
		Blue:    "#89b4fa",
		Magenta: "#f5c2e7",
		Cyan:    "#94e2d5",
		White:   "#bac2de",

		BrightBlack:   "#585b70",
		BrightRed:     "#f38ba8",
		BrightGreen:   "#a6e3a1",
		BrightYellow:  "#f9e2af",
		BrightBlue:    "#89b4fa",
		BrightMagenta: "#f5c2e7",
		BrightCyan:    "#94e2d5",
		BrightWhite:   "#a6adc8",
	}
}

// DefaultKeybindings returns the default key chords
func DefaultKeybindings() KeybindingsConfig {
	return KeybindingsConfig{
		SplitHorizontal: "Ctrl+B d",
		SplitVertical:   "Ctrl+B s",
		ClosePane:       "Ctrl+B w",
		FocusNext:       "Ctrl+B ]",
		FocusPrev:       "Ctrl+B [",
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Scrollback < 0 {
		return fmt.Errorf("scrollback cannot be negative, got: %d", c.Scrollback)
	}

	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval must be positive, got: %d", c.TickIntervalMS)
	}

	if err := c.Colors.Validate(); err != nil {
		return fmt.Errorf("invalid colors: %w", err)
	}

	if err := c.Keybindings.Validate(); err != nil {
		return fmt.Errorf("invalid keybindings: %w", err)
	}

	return nil
}

// Validate checks that every binding parses as a chord and that all
// bindings share one prefix key
func (k KeybindingsConfig) Validate() error {
	var prefix byte
	for _, b := range k.bindings() {
		chord, err := ParseChord(b.chord)
		if err != nil {
			return fmt.Errorf("invalid %s binding: %w", b.name, err)
		}
		if prefix == 0 {
			prefix = chord.Prefix
		} else if chord.Prefix != prefix {
			return fmt.Errorf("%s binding: all bindings must share one prefix key", b.name)
		}
	}
	return nil
}

type binding struct {
	name  string
	chord string
}

func (k KeybindingsConfig) bindings() []binding {
	return []binding{
		{"split_horizontal", k.SplitHorizontal},
		{"split_vertical", k.SplitVertical},
		{"close_pane", k.ClosePane},
		{"focus_next", k.FocusNext},
		{"focus_prev", k.FocusPrev},
	}
}

// Validate checks that every configured color parses as a hex color
func (c ColorsConfig) Validate() error {
	for name, hex := range c.entries() {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("invalid %s color %q: %w", name, hex, err)
		}
	}
	return nil
}

func (c ColorsConfig) entries() map[string]string {
	return map[string]string{
		"foreground":     c.Foreground,
		"background":     c.Background,
		"cursor":         c.Cursor,
		"black":          c.Black,
		"red":            c.Red,
		"green":          c.Green,
		"yellow":         c.Yellow,
		"blue":           c.Blue,
		"magenta":        c.Magenta,
		"cyan":           c.Cyan,
		"white":          c.White,
		"bright_black":   c.BrightBlack,
		"bright_red":     c.BrightRed,
		"bright_green":   c.BrightGreen,
		"bright_yellow":  c.BrightYellow,
		"bright_blue":    c.BrightBlue,
		"bright_magenta": c.BrightMagenta,
		"bright_cyan":    c.BrightCyan,
		"bright_white":   c.BrightWhite,
	}
}

// Palette converts the 16 ANSI palette entries into terminal colors.
// Unparseable entries fall back to the terminal default.
func (c ColorsConfig) Palette() [16]terminal.Color {
	hexes := [16]string{
		c.Black, c.Red, c.Green, c.Yellow,
		c.Blue, c.Magenta, c.Cyan, c.White,
		c.BrightBlack, c.BrightRed, c.BrightGreen, c.BrightYellow,
		c.BrightBlue, c.BrightMagenta, c.BrightCyan, c.BrightWhite,
	}
	var palette [16]terminal.Color
	for i, hex := range hexes {
		palette[i] = parseHex(hex)
	}
	return palette
}

// ForegroundColor returns the default foreground as a terminal color
func (c ColorsConfig) ForegroundColor() terminal.Color {
	return parseHex(c.Foreground)
}

// BackgroundColor returns the default background as a terminal color
func (c ColorsConfig) BackgroundColor() terminal.Color {
	return parseHex(c.Background)
}

// CursorColor returns the cursor color as a terminal color
func (c ColorsConfig) CursorColor() terminal.Color {
	return parseHex(c.Cursor)
}

func parseHex(hex string) terminal.Color {
	col, err := colorful.Hex(hex)
	if err != nil {
		return terminal.DefaultColor()
	}
	r, g, b := col.RGB255()
	return terminal.RGBColor(r, g, b)
}

// TickInterval returns the tick interval in milliseconds, substituting
// the default when unset
func (c Config) TickInterval() int {
	if c.TickIntervalMS <= 0 {
		return DefaultConfig().TickIntervalMS
	}
	return c.TickIntervalMS
}

// DefaultPath returns the default config file location
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "paneterm", "config.json"), nil
}

// Load reads the configuration from path. A missing file is created with
// the defaults; a malformed or invalid file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return Config{}, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically (write to a temporary
// file in the same directory, then rename over the target)
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
