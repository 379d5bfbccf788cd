package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paneterm/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Inspect and manage the paneterm configuration file.

The configuration is a JSON file holding the shell command, scrollback
size, color theme and keybindings. A running session reloads it
automatically when it changes on disk.`,
}

// configPathCmd prints the config file location
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run:   printConfigPath,
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Print the effective configuration, creating the file with defaults if it does not exist.`,
	Run:   runConfigShow,
}

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  `Write the default configuration to the config path, overwriting any existing file.`,
	Run:   runConfigInit,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func resolveConfigPath() string {
	if runConfigPath != "" {
		return runConfigPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return path
}

func printConfigPath(cmd *cobra.Command, args []string) {
	fmt.Println(resolveConfigPath())
}

func runConfigShow(cmd *cobra.Command, args []string) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("# %s\n%s\n", path, data)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := resolveConfigPath()
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
}
