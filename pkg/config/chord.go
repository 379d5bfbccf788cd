package config

import (
	"fmt"
	"strings"
	"unicode"
)

// Chord is a parsed two-key binding: a control-key prefix followed by a
// single command key, written like "Ctrl+B d".
type Chord struct {
	Prefix byte // control byte of the prefix key (Ctrl+A is 0x01)
	Key    rune // the key pressed after the prefix
}

// ParseChord parses a binding string of the form "Ctrl+X y"
func ParseChord(s string) (Chord, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Chord{}, fmt.Errorf("chord %q must be a Ctrl prefix followed by one key", s)
	}

	name, ok := strings.CutPrefix(fields[0], "Ctrl+")
	if !ok {
		return Chord{}, fmt.Errorf("chord %q must start with a Ctrl+ prefix", s)
	}
	prefix := []rune(name)
	if len(prefix) != 1 {
		return Chord{}, fmt.Errorf("chord %q prefix must be a single letter", s)
	}
	letter := unicode.ToUpper(prefix[0])
	if letter < 'A' || letter > 'Z' {
		return Chord{}, fmt.Errorf("chord %q prefix must be a letter", s)
	}

	key := []rune(fields[1])
	if len(key) != 1 {
		return Chord{}, fmt.Errorf("chord %q command must be a single key", s)
	}
	return Chord{Prefix: byte(letter-'A') + 1, Key: key[0]}, nil
}

// String returns the canonical chord notation
func (c Chord) String() string {
	return fmt.Sprintf("Ctrl+%c %c", rune(c.Prefix)+'A'-1, c.Key)
}
