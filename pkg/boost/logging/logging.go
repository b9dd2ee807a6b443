// Package logging is the component logger shared by the boost CLI, the TUI
// and the engine. Entries go to a rotating file, optionally to stderr, and
// in TUI mode to an in-memory ring buffer for the log panel.
//
//	if err := logging.Init(logging.DefaultConfig()); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("engine").Info("run started", "tweaks", 12)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a log severity.
type Level int

// Levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the lowercase level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned for unrecognised level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures Init.
type Config struct {
	// Level is the default level for all components.
	Level string

	// Path is the log file. Empty means DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components overrides the level per component, e.g. {"engine": "debug"}.
	Components map[string]string

	// ConsoleLevel mirrors entries at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string

	// TUIMode suppresses console output and keeps recent entries in a
	// ring buffer for the log panel.
	TUIMode bool
}

// LogEntry is a single entry as delivered to subscribers and the buffer.
type LogEntry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger is a component logger. The zero value is not usable; use Get.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
	level     Level
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(LevelInfo, msg, args) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(LevelWarn, msg, args) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args) }

// With returns a logger that adds the given key/value pairs to every entry.
func (l *Logger) With(args ...interface{}) *Logger {
	out := &Logger{file: l.file.With(args...), component: l.component, level: l.level}
	if l.console != nil {
		out.console = l.console.With(args...)
	}
	return out
}

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	write(l.file, level, msg, args)
	if l.console != nil {
		write(l.console, level, msg, args)
	}
	if level < l.level {
		return
	}
	std.publish(LogEntry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	})
}

func write(lg *log.Logger, level Level, msg string, args []interface{}) {
	switch level {
	case LevelDebug:
		lg.Debug(msg, args...)
	case LevelInfo:
		lg.Info(msg, args...)
	case LevelWarn:
		lg.Warn(msg, args...)
	case LevelError:
		lg.Error(msg, args...)
	}
}

// registry is the process-wide logging state.
type registry struct {
	mu          sync.RWMutex
	ready       bool
	writer      *RotatingWriter
	level       Level
	overrides   map[string]Level
	loggers     map[string]*Logger
	subscribers map[chan LogEntry]struct{}

	console      bool
	consoleLevel Level
	tui          bool
	buffer       *LogBuffer
}

var std = newRegistry()

func newRegistry() *registry {
	return &registry{
		level:       LevelInfo,
		overrides:   make(map[string]Level),
		loggers:     make(map[string]*Logger),
		subscribers: make(map[chan LogEntry]struct{}),
	}
}

// Init configures logging. Loggers obtained before Init discard their
// output; they are rebuilt against the new configuration.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	overrides := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		l, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		overrides[comp] = l
	}
	var consoleLevel Level
	console := cfg.ConsoleLevel != "" && !cfg.TUIMode
	if console {
		if consoleLevel, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	std.mu.Lock()
	defer std.mu.Unlock()

	if std.writer != nil {
		if err := std.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
		std.writer = nil
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	std.writer = writer
	std.level = level
	std.overrides = overrides
	std.console = console
	std.consoleLevel = consoleLevel
	std.tui = cfg.TUIMode
	std.buffer = nil
	if cfg.TUIMode {
		std.buffer = NewLogBuffer(DefaultBufferSize)
	}
	std.ready = true

	for comp := range std.loggers {
		std.loggers[comp] = std.build(comp)
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	std.mu.RLock()
	lg, ok := std.loggers[component]
	std.mu.RUnlock()
	if ok {
		return lg
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if lg, ok := std.loggers[component]; ok {
		return lg
	}
	lg = std.build(component)
	std.loggers[component] = lg
	return lg
}

// build creates a logger for component. Caller holds r.mu.
func (r *registry) build(component string) *Logger {
	level := r.level
	if l, ok := r.overrides[component]; ok {
		level = l
	}

	if !r.ready {
		return &Logger{
			file:      log.NewWithOptions(io.Discard, log.Options{Level: level.charm(), Prefix: component}),
			component: component,
			level:     level,
		}
	}

	lg := &Logger{
		file: log.NewWithOptions(r.writer, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
		level:     level,
	}
	if r.console && !r.tui {
		lg.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           r.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		})
	}
	return lg
}

// Close flushes the log file and closes subscriber channels. Loggers keep
// working afterwards but discard output until the next Init.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if !std.ready {
		return nil
	}

	for ch := range std.subscribers {
		close(ch)
		delete(std.subscribers, ch)
	}

	var err error
	if std.writer != nil {
		if cerr := std.writer.Close(); cerr != nil {
			err = fmt.Errorf("closing log writer: %w", cerr)
		}
		std.writer = nil
	}

	std.ready = false
	for comp := range std.loggers {
		std.loggers[comp] = std.build(comp)
	}
	return err
}

// Subscribe returns a buffered channel of new entries. Entries are dropped
// when the channel is full.
func Subscribe() <-chan LogEntry {
	std.mu.Lock()
	defer std.mu.Unlock()

	ch := make(chan LogEntry, 100)
	std.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch. The channel is left open.
func Unsubscribe(ch <-chan LogEntry) {
	std.mu.Lock()
	defer std.mu.Unlock()

	for sub := range std.subscribers {
		if sub == ch {
			delete(std.subscribers, sub)
			return
		}
	}
}

func (r *registry) publish(e LogEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.buffer != nil {
		r.buffer.Add(e)
	}
	for ch := range r.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Buffer returns the TUI ring buffer, or nil outside TUI mode.
func Buffer() *LogBuffer {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer
}

// DefaultLogPath returns $XDG_STATE_HOME/boost/boost.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "boost", "boost.log")
}

// DefaultConfig returns info-level file logging at the default path.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
