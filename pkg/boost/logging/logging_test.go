package logging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// Tests in this file share the package-level registry and must not run in
// parallel.

func initTemp(t *testing.T, cfg logging.Config) string {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "boost.log")
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		if err := logging.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return cfg.Path
}

func TestInit_InvalidLevels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  logging.Config
	}{
		{"default level", logging.Config{Level: "loud", Path: filepath.Join(dir, "a.log")}},
		{"component level", logging.Config{Level: "info", Path: filepath.Join(dir, "b.log"), Components: map[string]string{"engine": "nope"}}},
		{"console level", logging.Config{Level: "info", Path: filepath.Join(dir, "c.log"), ConsoleLevel: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			if !errors.Is(err, logging.ErrInvalidLevel) {
				t.Errorf("Init() error = %v, want ErrInvalidLevel", err)
			}
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	path := initTemp(t, logging.Config{Level: "info"})

	logger := logging.Get("engine")
	logger.Info("run started", "tweaks", 3)
	logger.Debug("hidden detail")
	logger.With("run", "abc").Warn("tweak failed")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	got := string(content)
	if !strings.Contains(got, "run started") {
		t.Errorf("log missing info entry: %s", got)
	}
	if strings.Contains(got, "hidden detail") {
		t.Errorf("log contains debug entry below level: %s", got)
	}
	if !strings.Contains(got, "run=abc") {
		t.Errorf("log missing With fields: %s", got)
	}
}

func TestComponentOverride(t *testing.T) {
	path := initTemp(t, logging.Config{
		Level:      "warn",
		Components: map[string]string{"tweaks": "debug"},
	})

	logging.Get("tweaks").Debug("tweak detail")
	logging.Get("engine").Info("engine chatter")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(content), "tweak detail") {
		t.Error("override component should log at debug")
	}
	if strings.Contains(string(content), "engine chatter") {
		t.Error("engine should be filtered at warn")
	}
}

func TestSubscribe(t *testing.T) {
	initTemp(t, logging.Config{Level: "info"})

	ch := logging.Subscribe()
	defer logging.Unsubscribe(ch)

	logging.Get("tui").Info("hello")
	logging.Get("tui").Debug("below level")

	select {
	case e := <-ch:
		if e.Message != "hello" || e.Component != "tui" || e.Level != logging.LevelInfo {
			t.Errorf("unexpected entry %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for entry")
	}

	select {
	case e := <-ch:
		t.Errorf("unexpected second entry %+v", e)
	default:
	}
}

func TestTUIModeBuffer(t *testing.T) {
	initTemp(t, logging.Config{Level: "info", TUIMode: true, ConsoleLevel: "debug"})

	buf := logging.Buffer()
	if buf == nil {
		t.Fatal("Buffer() = nil in TUI mode")
	}
	logging.Get("tui").Info("one")
	logging.Get("tui").Info("two")

	last := buf.Last(1)
	if len(last) != 1 || last[0].Message != "two" {
		t.Errorf("Last(1) = %+v", last)
	}
}

func TestConcurrentWrites(t *testing.T) {
	path := initTemp(t, logging.Config{Level: "info"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lg := logging.Get("worker")
			for j := 0; j < 50; j++ {
				lg.Info("tick")
			}
		}()
	}
	wg.Wait()

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if n := strings.Count(string(content), "tick"); n != 400 {
		t.Errorf("got %d entries, want 400", n)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logging.Level
		err  bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{" error ", logging.LevelError, false},
		{"trace", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := logging.DefaultLogPath()
	if filepath.Base(p) != "boost.log" || filepath.Base(filepath.Dir(p)) != "boost" {
		t.Errorf("DefaultLogPath() = %s", p)
	}
}
