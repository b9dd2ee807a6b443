//go:build windows

package platform

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// Native returns the Windows implementations of every facility.
func Native() System {
	return System{
		Services:   serviceManager{},
		Processes:  processManager{},
		Settings:   registryStore{},
		Memory:     memoryManager{},
		Runner:     CommandRunner{},
		TempDir:    os.TempDir(),
		StartupDir: startupDir(),
	}
}

func startupDir() string {
	if dir, err := windows.KnownFolderPath(windows.FOLDERID_Startup, 0); err == nil {
		return dir
	}
	return filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs", "Startup")
}

// Elevated reports whether the process token is elevated.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
