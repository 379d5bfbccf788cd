package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"paneterm/pkg/config"
)

// Runner provides a high-level interface to run an interactive session
type Runner struct {
	app    *Application
	config AppConfig
}

// NewRunner creates a new application runner
func NewRunner(cfg AppConfig) *Runner {
	return &Runner{config: cfg}
}

// Run starts the application and blocks until it stops or a termination
// signal arrives
func (r *Runner) Run() error {
	app, err := NewApplication(r.config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	r.app = app

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		app.Stop()
	}()

	if err := app.Run(); err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	return nil
}

// Stop stops the running application
func (r *Runner) Stop() {
	if r.app != nil {
		r.app.Stop()
	}
}

// RunInteractive loads the configuration and runs a session with it. An
// empty configPath uses the default location; shell, when non-empty,
// overrides the configured command.
func RunInteractive(configPath string, shell []string, debugLog string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(shell) > 0 {
		cfg.Shell = shell
	}

	runner := NewRunner(AppConfig{
		Config:     cfg,
		ConfigPath: path,
		DebugLog:   debugLog,
	})
	return runner.Run()
}
