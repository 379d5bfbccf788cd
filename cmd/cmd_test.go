package cmd

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "paneterm" {
		t.Errorf("rootCmd.Use = %q, want paneterm", rootCmd.Use)
	}
	if rootCmd.Version == "" {
		t.Error("rootCmd should carry a version")
	}
	if rootCmd.Run == nil {
		t.Error("rootCmd should start a session when run bare")
	}

	if flag := rootCmd.PersistentFlags().Lookup("verbose"); flag == nil {
		t.Error("rootCmd should have a verbose flag")
	}
}

func TestRootSubcommands(t *testing.T) {
	want := map[string]bool{
		"run":    false,
		"config": false,
	}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("rootCmd is missing the %s subcommand", name)
		}
	}
}

func TestRunCommandFlags(t *testing.T) {
	if flag := runCmd.Flags().Lookup("config"); flag == nil {
		t.Error("runCmd should have a config flag")
	} else if flag.Shorthand != "c" {
		t.Errorf("config flag shorthand = %q, want c", flag.Shorthand)
	}
	if flag := runCmd.Flags().Lookup("debug-log"); flag == nil {
		t.Error("runCmd should have a debug-log flag")
	}
}

func TestConfigSubcommands(t *testing.T) {
	want := map[string]bool{
		"path": false,
		"show": false,
		"init": false,
	}
	for _, sub := range configCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("configCmd is missing the %s subcommand", name)
		}
	}
}

func TestResolveConfigPath(t *testing.T) {
	orig := runConfigPath
	defer func() { runConfigPath = orig }()

	runConfigPath = "/tmp/custom.json"
	if got := resolveConfigPath(); got != "/tmp/custom.json" {
		t.Errorf("resolveConfigPath() = %q, want the flag value", got)
	}

	runConfigPath = ""
	if got := resolveConfigPath(); got == "" {
		t.Error("resolveConfigPath() should fall back to the default path")
	}
}
