//go:build !windows

package platform

import (
	"context"
	"os"
)

// Native returns the facilities available on this system. Only the command
// runner works here; every other facility reports ErrUnsupported.
func Native() System {
	return System{
		Services:   unsupported{},
		Processes:  unsupported{},
		Settings:   unsupported{},
		Memory:     unsupported{},
		Runner:     CommandRunner{},
		TempDir:    os.TempDir(),
		StartupDir: "",
	}
}

type unsupported struct{}

func (unsupported) Stop(context.Context, string) (bool, error) { return false, ErrUnsupported }
func (unsupported) Start(context.Context, string) (bool, error) { return false, ErrUnsupported }

func (unsupported) KillByName([]string) (int, error) { return 0, ErrUnsupported }
func (unsupported) TrimWorkingSets() (int, error) { return 0, ErrUnsupported }
func (unsupported) RaisePriority() error { return ErrUnsupported }

func (unsupported) SetDWord(Key, string, uint32) error { return ErrUnsupported }
func (unsupported) SetString(Key, string, string) error { return ErrUnsupported }
func (unsupported) DWord(Key, string) (uint32, bool, error) { return 0, false, ErrUnsupported }
func (unsupported) SubKeys(Key) ([]string, error) { return nil, ErrUnsupported }
func (unsupported) PurgeStandbyList() error { return ErrUnsupported }
func (unsupported) SetTimerResolution(uint32) (uint32, error) { return 0, ErrUnsupported }
