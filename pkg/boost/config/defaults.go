// Package config loads boost settings from the config file, BOOST_
// environment variables and built-in defaults.
package config

import "time"

// Default configuration values.
const (
	// DefaultWorkers bounds how many parallel-safe tweaks run at once.
	DefaultWorkers = 4

	// DefaultExternalTimeout limits tweaks that shell out to system tools.
	DefaultExternalTimeout = 30 * time.Second

	// DefaultServiceWait is how long to wait for a service to reach the
	// requested state.
	DefaultServiceWait = 5 * time.Second

	// DefaultTempFileLimit caps how many temp files one cleanup removes.
	DefaultTempFileLimit = 100

	// DefaultProfile is the profile used when none is named. Empty means the
	// catalog's default checklist.
	DefaultProfile = ""

	// DefaultOutput is the report format for non-interactive runs.
	DefaultOutput = "pretty"

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"
)

// DefaultComponentLevels sets per-component log levels.
var DefaultComponentLevels = map[string]string{
	"engine":   "info",
	"tweaks":   "info",
	"platform": "warn",
	"backup":   "info",
	"tui":      "info",
}
