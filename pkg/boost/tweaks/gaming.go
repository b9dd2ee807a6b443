package tweaks

import (
	"context"
	"fmt"

	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

func hkcu(path string) platform.Key { return platform.Key{Hive: platform.CurrentUser, Path: path} }
func hklm(path string) platform.Key { return platform.Key{Hive: platform.LocalMachine, Path: path} }

var (
	gameDVRUserKey   = hkcu(`SOFTWARE\Microsoft\Windows\CurrentVersion\GameDVR`)
	gameBarKey       = hkcu(`SOFTWARE\Microsoft\GameBar`)
	gameDVRPolicyKey = hklm(`SOFTWARE\Policies\Microsoft\Windows\GameDVR`)
	gameConfigKey    = hkcu(`System\GameConfigStore`)
	graphicsKey      = hklm(`SYSTEM\CurrentControlSet\Control\GraphicsDrivers`)
	systemProfileKey = hklm(`SOFTWARE\Microsoft\Windows NT\CurrentVersion\Multimedia\SystemProfile`)
	gamesTaskKey     = systemProfileKey.Sub(`Tasks\Games`)
)

// networkThrottlingOff disables multimedia network throttling.
const networkThrottlingOff = 0xFFFFFFFF

func (b *builder) gamingTweaks() []tweak.Tweak {
	return []tweak.Tweak{
		{
			ID:          "gaming.game-dvr",
			Title:       "Disable Game DVR/Bar",
			Description: "Turns off background capture, Game Bar and automatic Game Mode.",
			Category:    tweak.Gaming,
			Forward: b.registry(
				dword{gameDVRUserKey, "AppCaptureEnabled", 0},
				dword{gameBarKey, "AllowAutoGameMode", 0},
				dword{gameBarKey, "AutoGameModeEnabled", 0},
				dword{gameBarKey, "UseNexusForGameBarEnabled", 0},
				dword{gameBarKey, "ShowStartupPanel", 0},
				dword{gameDVRPolicyKey, "AllowGameDVR", 0},
			),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:          "gaming.fullscreen-opt",
			Title:       "Disable fullscreen optimizations",
			Description: "Prefers exclusive fullscreen over the windowed compositor path.",
			Category:    tweak.Gaming,
			Forward: b.registry(
				dword{gameConfigKey, "GameDVR_FSEBehaviorMode", 2},
				dword{gameConfigKey, "GameDVR_HonorUserFSEBehaviorMode", 1},
				dword{gameConfigKey, "GameDVR_FSEBehavior", 2},
				dword{gameConfigKey, "GameDVR_DXGIHonorFSEWindowsCompatible", 1},
				dword{gameConfigKey, "GameDVR_EFSEFeatureFlags", 0},
			),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           "gaming.gpu-scheduling",
			Title:        "GPU hardware scheduling",
			Description:  "Enables hardware-accelerated GPU scheduling. Takes effect after a restart.",
			Category:     tweak.Gaming,
			Forward:      b.registry(dword{graphicsKey, "HwSchMode", 2}),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           "gaming.priority",
			Title:        "High priority for games",
			Description:  "Raises the multimedia scheduler's priority for game tasks.",
			Category:     tweak.Gaming,
			Forward:      b.gamingPriority,
			ParallelSafe: true,
		},
	}
}

func (b *builder) gamingPriority(context.Context) (string, error) {
	if err := b.sys.Processes.RaisePriority(); err != nil {
		logger().Debug("raising own priority failed", "error", err)
	}

	n, err := b.setDWords([]dword{
		{gamesTaskKey, "GPU Priority", 8},
		{gamesTaskKey, "Priority", 6},
		{systemProfileKey, "SystemResponsiveness", 0},
		{systemProfileKey, "NetworkThrottlingIndex", networkThrottlingOff},
	})
	if err != nil {
		return "", err
	}
	for _, name := range []string{"Scheduling Category", "SFIO Priority"} {
		if err := b.sys.Settings.SetString(gamesTaskKey, name, "High"); err != nil {
			return "", err
		}
		n++
	}
	return fmt.Sprintf("%d values set", n), nil
}
