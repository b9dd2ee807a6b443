// Package platform wraps the operating-system facilities the shipped tweaks
// drive: service control, process enumeration, persistent settings (the
// Windows registry), memory-manager calls and external tools.
//
// Every facility is an interface so tweaks can be exercised against fakes.
// Native returns the real implementations. On systems other than Windows
// most of them report ErrUnsupported.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported is returned by facilities that have no implementation on
// the current operating system.
var ErrUnsupported = fmt.Errorf("not supported on this platform: %w", errors.ErrUnsupported)

// ServiceManager starts and stops system services by name.
type ServiceManager interface {
	// Stop stops a running service and waits for it to stop. changed is
	// false when the service was already stopped or is not installed.
	Stop(ctx context.Context, name string) (changed bool, err error)

	// Start starts a stopped service and waits for it to run. changed is
	// false when the service was already running or is not installed.
	Start(ctx context.Context, name string) (changed bool, err error)
}

// ProcessManager enumerates and manipulates running processes.
type ProcessManager interface {
	// KillByName terminates every process whose executable name matches
	// one of names, case-insensitively and with or without ".exe". It
	// returns how many were terminated.
	KillByName(names []string) (int, error)

	// TrimWorkingSets asks the OS to page out the working set of every
	// process it can open. It returns how many processes were trimmed.
	TrimWorkingSets() (int, error)

	// RaisePriority moves the current process to the high priority class.
	RaisePriority() error
}

// Hive is a registry root.
type Hive int

// Registry roots used by the tweaks.
const (
	CurrentUser Hive = iota
	LocalMachine
)

// String returns the conventional short name of the hive.
func (h Hive) String() string {
	if h == LocalMachine {
		return "HKLM"
	}
	return "HKCU"
}

// Key addresses a registry key.
type Key struct {
	Hive Hive
	Path string
}

// String formats the key as HKLM\Path.
func (k Key) String() string {
	return k.Hive.String() + `\` + k.Path
}

// Sub returns the child key name of k.
func (k Key) Sub(name string) Key {
	return Key{Hive: k.Hive, Path: k.Path + `\` + name}
}

// SettingsStore reads and writes persistent system settings. Write
// operations create missing keys.
type SettingsStore interface {
	SetDWord(k Key, name string, value uint32) error
	SetString(k Key, name, value string) error

	// DWord returns the current value. ok is false when the key or value
	// does not exist.
	DWord(k Key, name string) (value uint32, ok bool, err error)

	// SubKeys lists the names of k's direct children.
	SubKeys(k Key) ([]string, error)
}

// MemoryManager exposes memory-manager controls.
type MemoryManager interface {
	// PurgeStandbyList drops the standby page list.
	PurgeStandbyList() error

	// SetTimerResolution requests a system timer resolution in 100ns units
	// and returns the resolution actually granted.
	SetTimerResolution(hundredNanos uint32) (uint32, error)
}

// Runner runs external programs.
type Runner interface {
	// Run executes name with args and returns combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// System bundles the facilities handed to the tweak catalog.
type System struct {
	Services  ServiceManager
	Processes ProcessManager
	Settings  SettingsStore
	Memory    MemoryManager
	Runner    Runner

	// TempDir is the per-user temporary directory.
	TempDir string

	// StartupDir holds per-user programs launched at sign-in.
	StartupDir string
}
