package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// appName names the config, data and state subdirectories.
const appName = "boost"

// RotationConfig configures log rotation. MaxSize is human readable, e.g.
// "10MB".
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// TweakConfig overrides the built-in target lists of the shipped tweaks.
// Empty lists keep the built-in defaults.
type TweakConfig struct {
	Processes     []string      `mapstructure:"processes"`
	Services      []string      `mapstructure:"services"`
	ServiceWait   time.Duration `mapstructure:"service_wait"`
	TempFileLimit int           `mapstructure:"temp_file_limit"`
}

// Config is the full application configuration.
type Config struct {
	Workers  int `mapstructure:"workers"`
	Timeouts struct {
		External time.Duration `mapstructure:"external"`
	} `mapstructure:"timeouts"`
	Profile  string      `mapstructure:"profile"`
	Output   string      `mapstructure:"output"`
	Tweaks   TweakConfig `mapstructure:"tweaks"`
	Profiles struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"profiles"`
	Backups struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"backups"`
	Lock struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"lock"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load reads the config file from the standard locations:
//   - $XDG_CONFIG_HOME/boost/config.yaml
//   - $HOME/.config/boost/config.yaml
//
// A missing file is not an error. Environment variables prefixed with
// BOOST_ override file values (BOOST_WORKERS, BOOST_TIMEOUTS_EXTERNAL).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the standard locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals the settings held by v and expands ~ in paths.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Profiles.Path, &cfg.Backups.Path, &cfg.Lock.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// SetDefaults registers every default and the BOOST_ environment binding
// on v. The CLI calls it on the global viper so flags, env and file share
// one precedence chain.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix("BOOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("timeouts.external", DefaultExternalTimeout)
	v.SetDefault("profile", DefaultProfile)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("tweaks.processes", []string{})
	v.SetDefault("tweaks.services", []string{})
	v.SetDefault("tweaks.service_wait", DefaultServiceWait)
	v.SetDefault("tweaks.temp_file_limit", DefaultTempFileLimit)

	v.SetDefault("profiles.path", DefaultProfilesDir())
	v.SetDefault("backups.path", DefaultBackupPath())
	v.SetDefault("lock.path", DefaultLockPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// LogConfig converts the logging section for logging.Init.
func (c *Config) LogConfig() (logging.Config, error) {
	rot := logging.RotationConfig{
		MaxAge:     c.Logging.Rotation.MaxAge,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		Daily:      c.Logging.Rotation.Daily,
	}
	if c.Logging.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", c.Logging.Rotation.MaxSize, err)
		}
		rot.MaxSize = int64(size)
	}
	return logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Rotation:   rot,
		Components: c.Logging.Components,
	}, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/boost, falling back to ~/.config/boost.
func ConfigDir() (string, error) {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/boost for backups, profiles and the run
// lock.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/boost for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultProfilesDir returns the default profile directory.
func DefaultProfilesDir() string {
	return filepath.Join(DataDir(), "profiles")
}

// DefaultBackupPath returns the default backup database directory.
func DefaultBackupPath() string {
	return filepath.Join(DataDir(), "backup.db")
}

// DefaultLockPath returns the default run lock file.
func DefaultLockPath() string {
	return filepath.Join(DataDir(), "boost.pid")
}

// EnsureConfigDir creates the config directory.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// EnsureDataDir creates the data directory.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// WriteDefault writes a commented default config file. It does nothing if
// the file already exists and returns the file path either way.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	body := fmt.Sprintf(`# boost configuration

# Parallel-safe tweaks run on at most this many workers.
workers: %d

timeouts:
  # Deadline for tweaks that shell out (powercfg, powershell, rundll32).
  external: %s

# Profile applied when none is given on the command line.
# Empty uses the default checklist.
profile: "%s"

# Report format for non-interactive runs:
# pretty, plain, json, yaml, tsv, csv, markdown
output: %s

tweaks:
  # Process names killed by process.kill-bloat (empty = built-in list).
  processes: []
  # Service names stopped by services.stop (empty = built-in list).
  services: []
  service_wait: %s
  temp_file_limit: %d

profiles:
  path: %s

backups:
  path: %s

lock:
  path: %s

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/boost/boost.log
  path: ""
  rotation:
    max_size: %s
    max_age: 30
    max_backups: 5
    daily: true
  components:
    engine: info
    tweaks: info
    platform: warn
    backup: info
    tui: info
`, DefaultWorkers, DefaultExternalTimeout, DefaultProfile, DefaultOutput,
		DefaultServiceWait, DefaultTempFileLimit,
		DefaultProfilesDir(), DefaultBackupPath(), DefaultLockPath(), DefaultLogMaxSize)

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}
