package tweaks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// StartupBackupDir is the folder inside the startup directory that
// startup.disable moves items into.
const StartupBackupDir = ".disabled_startup_backup"

const (
	backgroundAppsID = "apps.background"
	backgroundValue  = "GlobalUserDisabled"
)

var (
	backgroundAppsKey = hkcu(`Software\Microsoft\Windows\CurrentVersion\BackgroundAccessApplications`)
	visualEffectsKey  = hkcu(`Software\Microsoft\Windows\CurrentVersion\Explorer\VisualEffects`)
	tcpipKey          = hklm(`SYSTEM\CurrentControlSet\Services\Tcpip\Parameters`)
	interfacesKey     = tcpipKey.Sub("Interfaces")
	prefetchKey       = hklm(`SYSTEM\CurrentControlSet\Control\Session Manager\Memory Management\PrefetchParameters`)
)

func (b *builder) systemTweaks() []tweak.Tweak {
	return []tweak.Tweak{
		{
			ID:           "startup.disable",
			Title:        "Disable startup items",
			Description:  "Moves items out of the per-user Startup folder into a backup folder beside it.",
			Category:     tweak.SystemPolicy,
			Forward:      b.disableStartup,
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           backgroundAppsID,
			Title:        "Disable background apps",
			Description:  "Stops Store apps from running in the background. Restore puts back the previous setting.",
			Category:     tweak.SystemPolicy,
			Forward:      b.disableBackgroundApps,
			Reverse:      b.restoreBackgroundApps,
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           "ui.visual-effects",
			Title:        "Reduce visual effects",
			Description:  "Switches Explorer to best-performance visual effects.",
			Category:     tweak.SystemPolicy,
			Forward:      b.registry(dword{visualEffectsKey, "VisualFXSetting", 2}),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           "network.low-latency",
			Title:        "Optimize TCP/network",
			Description:  "Disables delayed ACKs and Nagle's algorithm on every interface and lifts network throttling.",
			Category:     tweak.Network,
			Forward:      b.lowLatencyNetwork,
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           "system.prefetch",
			Title:        "Disable Prefetch/Superfetch",
			Description:  "Turns off application launch prefetching.",
			Category:     tweak.SystemPolicy,
			Forward:      b.registry(dword{prefetchKey, "EnablePrefetcher", 0}),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:          "system.telemetry",
			Title:       "Disable telemetry",
			Description: "Turns off diagnostic data, the customer experience program, advertising ID and activity history.",
			Category:    tweak.SystemPolicy,
			Forward: b.registry(
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\DataCollection`), "AllowTelemetry", 0},
				dword{hklm(`SOFTWARE\Microsoft\SQMClient\Windows`), "CEIPEnable", 0},
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\AppCompat`), "AITEnable", 0},
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\AppCompat`), "DisableInventory", 1},
				dword{hkcu(`SOFTWARE\Microsoft\Siuf\Rules`), "NumberOfSIUFInPeriod", 0},
				dword{hkcu(`SOFTWARE\Microsoft\Windows\CurrentVersion\AdvertisingInfo`), "Enabled", 0},
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\System`), "EnableActivityFeed", 0},
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\System`), "PublishUserActivities", 0},
				dword{hklm(`SOFTWARE\Policies\Microsoft\Windows\System`), "UploadUserActivities", 0},
			),
			ParallelSafe: true,
			Default:      true,
		},
	}
}

// disableStartup moves every file in the startup directory into
// StartupBackupDir, replacing older copies there.
func (b *builder) disableStartup(context.Context) (string, error) {
	dir := b.sys.StartupDir
	if dir == "" {
		return "no startup folder", nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "no startup folder", nil
	}
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, StartupBackupDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating startup backup: %w", err)
	}

	moved, failed := 0, 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		target := filepath.Join(dest, e.Name())
		_ = os.Remove(target)
		if err := os.Rename(filepath.Join(dir, e.Name()), target); err != nil {
			logger().Debug("moving startup item failed", "item", e.Name(), "error", err)
			failed++
			continue
		}
		moved++
	}
	return countDetail("moved", moved, "startup item", failed), nil
}

func (b *builder) disableBackgroundApps(context.Context) (string, error) {
	cur, ok, err := b.sys.Settings.DWord(backgroundAppsKey, backgroundValue)
	if err != nil {
		return "", err
	}
	if ok {
		if _, err := b.backups.SaveOnce(backup.Record{
			TweakID: backgroundAppsID,
			Name:    backgroundValue,
			Value:   strconv.FormatUint(uint64(cur), 10),
		}); err != nil {
			return "", err
		}
	}
	if err := b.sys.Settings.SetDWord(backgroundAppsKey, backgroundValue, 1); err != nil {
		return "", err
	}
	return "background apps disabled", nil
}

// restoreBackgroundApps writes back the saved value, or re-enables
// background apps when nothing was saved.
func (b *builder) restoreBackgroundApps(context.Context) (string, error) {
	var value uint32
	rec, err := b.backups.Get(backgroundAppsID, backgroundValue)
	switch {
	case err == nil:
		v, perr := strconv.ParseUint(rec.Value, 10, 32)
		if perr != nil {
			return "", fmt.Errorf("corrupt backup %s: %w", rec, perr)
		}
		value = uint32(v)
	case !errors.Is(err, backup.ErrNotFound):
		return "", err
	}

	if err := b.sys.Settings.SetDWord(backgroundAppsKey, backgroundValue, value); err != nil {
		return "", err
	}
	if err := b.backups.Delete(backgroundAppsID, backgroundValue); err != nil {
		return "", err
	}
	if value == 0 {
		return "background apps enabled", nil
	}
	return "background apps setting restored", nil
}

func (b *builder) lowLatencyNetwork(context.Context) (string, error) {
	vals := []dword{
		{tcpipKey, "TcpAckFrequency", 1},
		{tcpipKey, "TCPNoDelay", 1},
		{tcpipKey, "TcpDelAckTicks", 0},
		{tcpipKey, "DefaultTTL", 64},
		{systemProfileKey, "NetworkThrottlingIndex", networkThrottlingOff},
	}

	ifaces, err := b.sys.Settings.SubKeys(interfacesKey)
	if err != nil {
		return "", fmt.Errorf("listing interfaces: %w", err)
	}
	for _, name := range ifaces {
		k := interfacesKey.Sub(name)
		vals = append(vals,
			dword{k, "TcpAckFrequency", 1},
			dword{k, "TCPNoDelay", 1},
			dword{k, "TcpDelAckTicks", 0},
		)
	}

	n, err := b.setDWords(vals)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d values set across %d %s", n, len(ifaces), plural("interface", len(ifaces))), nil
}
