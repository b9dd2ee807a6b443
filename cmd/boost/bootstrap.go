package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/boost/pkg/boost/config"
	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// initializeLogging is the root PersistentPreRunE. It creates the config,
// data and state directories and starts file logging. With --verbose,
// entries are mirrored to stderr.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	logCfg, err := logConfig()
	if err != nil {
		return err
	}
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}

// initTUILogging re-initializes logging for TUI mode: console output is
// dropped and recent entries are kept for the log panel.
func initTUILogging() error {
	logCfg, err := logConfig()
	if err != nil {
		return err
	}
	logCfg.TUIMode = true
	return logging.Init(logCfg)
}

func logConfig() (logging.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return logging.Config{}, err
	}
	logCfg, err := cfg.LogConfig()
	if err != nil {
		return logging.Config{}, err
	}
	if logCfg.Level == "" {
		logCfg.Level = "info"
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
		logCfg.Components = nil
	}
	return logCfg, nil
}
