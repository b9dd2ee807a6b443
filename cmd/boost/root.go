package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/boost/pkg/boost/config"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 3
	exitFailed   = 4
)

// codedError carries a specific process exit code.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// exitCode maps an error returned by Execute to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "boost",
		Short: "Apply and undo Windows performance tweaks",
		Long: `Boost frees memory and CPU for games and heavy workloads by stopping
background apps and services, reclaiming memory and switching power,
gaming and system settings to their performance values.

By default, boost opens an interactive checklist. Pick the tweaks to run
and press Enter. Use --no-interactive to run the selection directly.

Examples:
  boost                          # Interactive checklist
  boost -n                       # Apply the default selection
  boost -n --only 'power.*'      # Only the power tweaks
  boost -n --skip services.stop  # Everything but stopping services
  boost --profile gaming         # Start from a saved profile
  boost restore -n               # Undo the reversible tweaks
  boost plan --all               # Show what would run, in order
  boost list                     # Show every tweak`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: initializeLogging,
		RunE:              runApply,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/boost/config.yaml)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "parallel workers per phase (0=config default)")
	rootCmd.PersistentFlags().BoolP("no-interactive", "n", false, "run without the checklist TUI")
	rootCmd.PersistentFlags().StringP("output", "o", "", "report format: pretty, plain, json, yaml, tsv, csv, markdown, template")
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Selection flags
	rootCmd.PersistentFlags().StringSlice("only", nil, "run only tweaks matching these patterns (e.g. 'power.*')")
	rootCmd.PersistentFlags().StringSlice("skip", nil, "never run tweaks matching these patterns")
	rootCmd.PersistentFlags().Bool("all", false, "select every tweak, not just the defaults")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "start from a saved profile")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "print the plan without running it")
	rootCmd.PersistentFlags().Bool("strict", false, "exit with status 4 when any tweak fails")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"workers":        "workers",
		"no_interactive": "no-interactive",
		"output":         "output",
		"template":       "template",
		"quiet":          "quiet",
		"verbose":        "verbose",
		"only":           "only",
		"skip":           "skip",
		"all":            "all",
		"profile":        "profile",
		"dry_run":        "dry-run",
		"strict":         "strict",
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if dir, err := config.ConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr if quiet mode is not enabled.
// Stdout is reserved for reports.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
