package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/boost/pkg/boost/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage boost configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/boost/config.yaml (if set)
  2. ~/.config/boost/config.yaml

Environment variables can override config file settings using the BOOST_ prefix:
  BOOST_WORKERS=8
  BOOST_TIMEOUTS_EXTERNAL=45s
  BOOST_PROFILE=gaming`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'notepad' on Windows and 'vi' elsewhere

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// envOverrides lists the variables config show reports.
var envOverrides = []string{
	"BOOST_WORKERS",
	"BOOST_TIMEOUTS_EXTERNAL",
	"BOOST_PROFILE",
	"BOOST_OUTPUT",
	"BOOST_TWEAKS_SERVICE_WAIT",
	"BOOST_TWEAKS_TEMP_FILE_LIMIT",
	"BOOST_PROFILES_PATH",
	"BOOST_BACKUPS_PATH",
	"BOOST_LOCK_PATH",
	"BOOST_LOGGING_LEVEL",
	"BOOST_LOGGING_PATH",
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("workers:              %d\n", cfg.Workers)
	fmt.Printf("timeouts.external:    %s\n", cfg.Timeouts.External)
	fmt.Printf("profile:              %s\n", orNone(cfg.Profile))
	fmt.Printf("output:               %s\n", cfg.Output)
	fmt.Printf("tweaks.processes:     %s\n", listOrBuiltin(cfg.Tweaks.Processes))
	fmt.Printf("tweaks.services:      %s\n", listOrBuiltin(cfg.Tweaks.Services))
	fmt.Printf("tweaks.service_wait:  %s\n", cfg.Tweaks.ServiceWait)
	fmt.Printf("tweaks.temp_limit:    %d\n", cfg.Tweaks.TempFileLimit)
	fmt.Printf("profiles.path:        %s\n", cfg.Profiles.Path)
	fmt.Printf("backups.path:         %s\n", cfg.Backups.Path)
	fmt.Printf("lock.path:            %s\n", cfg.Lock.Path)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:         %s\n", orNone(cfg.Logging.Path))

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func listOrBuiltin(list []string) string {
	if len(list) == 0 {
		return "(built-in)"
	}
	return fmt.Sprint(list)
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = defaultEditor()
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'boost config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
