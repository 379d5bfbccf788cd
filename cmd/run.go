package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paneterm/pkg/app"
)

var (
	// Run command flags
	runConfigPath string
	runDebugLog   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Start an interactive session",
	Long: `Start an interactive split-pane session.

Without arguments the configured shell (or $SHELL) runs in the first
pane. Any arguments are used as the command for new panes instead.

Examples:
  # Run the default shell
  paneterm run

  # Run a specific program
  paneterm run htop

  # Use an alternate config file
  paneterm run --config ./dev-config.json`,
	Run: runSession,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "config file path")
	runCmd.Flags().StringVar(&runDebugLog, "debug-log", "", "write debug output to a file")
}

func runSession(cmd *cobra.Command, args []string) {
	debugLog := runDebugLog
	if debugLog == "" && verbose {
		debugLog = "paneterm-debug.log"
	}

	if err := app.RunInteractive(runConfigPath, args, debugLog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
