// Package platformtest provides in-memory platform facilities for tests.
package platformtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jamesainslie/boost/pkg/boost/platform"
)

// New returns a System wired to fresh fakes.
func New(tempDir, startupDir string) (platform.System, *Fakes) {
	f := &Fakes{
		Services:  &Services{running: map[string]bool{}},
		Processes: &Processes{},
		Settings:  &Settings{dwords: map[string]uint32{}, strs: map[string]string{}, subkeys: map[string][]string{}},
		Memory:    &Memory{},
		Runner:    &Runner{responses: map[string]Response{}},
	}
	return platform.System{
		Services:   f.Services,
		Processes:  f.Processes,
		Settings:   f.Settings,
		Memory:     f.Memory,
		Runner:     f.Runner,
		TempDir:    tempDir,
		StartupDir: startupDir,
	}, f
}

// Fakes gives tests access to the concrete fakes behind a System.
type Fakes struct {
	Services  *Services
	Processes *Processes
	Settings  *Settings
	Memory    *Memory
	Runner    *Runner
}

// Services is a fake service manager. Unknown services behave as not
// installed.
type Services struct {
	mu      sync.Mutex
	running map[string]bool
	Err     error
	calls   []string
}

// Install registers a service in the given state.
func (s *Services) Install(name string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = running
}

// Running reports the fake state of a service.
func (s *Services) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[name]
}

// Calls returns "stop:name" and "start:name" entries in call order.
func (s *Services) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Services) Stop(_ context.Context, name string) (bool, error) {
	return s.set(name, false, "stop")
}

func (s *Services) Start(_ context.Context, name string) (bool, error) {
	return s.set(name, true, "start")
}

func (s *Services) set(name string, running bool, verb string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, verb+":"+name)
	if s.Err != nil {
		return false, s.Err
	}
	cur, installed := s.running[name]
	if !installed || cur == running {
		return false, nil
	}
	s.running[name] = running
	return true, nil
}

// Processes is a fake process manager.
type Processes struct {
	mu       sync.Mutex
	running  []string
	Killed   []string
	Trimmed  int
	Priority bool
	Err      error
}

// SetRunning replaces the fake process list.
func (p *Processes) SetRunning(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = names
}

func (p *Processes) KillByName(names []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return 0, p.Err
	}
	want := map[string]bool{}
	for _, n := range names {
		want[strings.ToLower(strings.TrimSuffix(n, ".exe"))] = true
	}
	var alive []string
	n := 0
	for _, r := range p.running {
		if want[strings.ToLower(strings.TrimSuffix(r, ".exe"))] {
			p.Killed = append(p.Killed, r)
			n++
			continue
		}
		alive = append(alive, r)
	}
	p.running = alive
	return n, nil
}

func (p *Processes) TrimWorkingSets() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return 0, p.Err
	}
	p.Trimmed += len(p.running)
	return len(p.running), nil
}

func (p *Processes) RaisePriority() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Priority = true
	return nil
}

// Settings is a fake registry.
type Settings struct {
	mu      sync.Mutex
	dwords  map[string]uint32
	strs    map[string]string
	subkeys map[string][]string
	Err     error
	writes  int
}

func valueKey(k platform.Key, name string) string {
	return k.String() + `\` + name
}

// SetSubKeys registers the children of a key.
func (s *Settings) SetSubKeys(k platform.Key, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subkeys[k.String()] = names
}

// Get returns a stored DWORD and whether it exists.
func (s *Settings) Get(k platform.Key, name string) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.dwords[valueKey(k, name)]
	return v, ok
}

// GetString returns a stored string value and whether it exists.
func (s *Settings) GetString(k platform.Key, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strs[valueKey(k, name)]
	return v, ok
}

// Writes returns how many values were written.
func (s *Settings) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Settings) SetDWord(k platform.Key, name string, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.dwords[valueKey(k, name)] = value
	s.writes++
	return nil
}

func (s *Settings) SetString(k platform.Key, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.strs[valueKey(k, name)] = value
	s.writes++
	return nil
}

func (s *Settings) DWord(k platform.Key, name string) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	v, ok := s.dwords[valueKey(k, name)]
	return v, ok, nil
}

func (s *Settings) SubKeys(k platform.Key) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]string(nil), s.subkeys[k.String()]...), nil
}

// Memory is a fake memory manager.
type Memory struct {
	mu         sync.Mutex
	Purged     int
	Resolution uint32
	Err        error
}

func (m *Memory) PurgeStandbyList() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Purged++
	return nil
}

func (m *Memory) SetTimerResolution(v uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.Resolution = v
	return v, nil
}

// Response is a canned Runner result.
type Response struct {
	Output string
	Err    error
}

// Runner records commands and replays canned responses keyed by the full
// command line. Unknown commands succeed with no output.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	commands  []string
}

// Respond registers the result for a command line such as
// "powercfg /getactivescheme".
func (r *Runner) Respond(cmdline string, resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[cmdline] = resp
}

// Commands returns every command line run so far.
func (r *Runner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.commands = append(r.commands, line)
	resp := r.responses[line]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return []byte(resp.Output), resp.Err
}
