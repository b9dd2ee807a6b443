package tweaks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// Power scheme GUIDs.
const (
	SchemeUltimate = "e9a42b02-d5df-448d-aa00-03f14749eb61"
	SchemeHigh     = "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c"
	SchemeBalanced = "381b4222-f694-41f0-9685-ff5bb260df2e"
)

// Both scheme tweaks share one backup so restore returns to the scheme
// that was active before either ran. Each applied scheme tweak also holds
// a marker; the backup is dropped when the last holder is restored.
const (
	powerGroup   = "power"
	schemeBackup = "scheme"

	ultimateID = "power.ultimate"
	highPerfID = "power.high-performance"
)

var schemeTweaks = []string{ultimateID, highPerfID}

func holderName(id string) string {
	return "holder." + id
}

var guidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// parseScheme extracts the first GUID from powercfg output such as
// "Power Scheme GUID: 381b4222-... (Balanced)".
func parseScheme(out []byte) (string, bool) {
	g := guidPattern.Find(out)
	if g == nil {
		return "", false
	}
	return strings.ToLower(string(g)), true
}

var coreParkingKey = platform.Key{
	Hive: platform.LocalMachine,
	Path: `SYSTEM\CurrentControlSet\Control\Power\PowerSettings\54533251-82be-4824-96c1-47b60b740d00\0cc5b647-c1df-4637-891a-dec35c318583`,
}

func (b *builder) powerTweaks() []tweak.Tweak {
	return []tweak.Tweak{
		{
			ID:                      ultimateID,
			Title:                   "Ultimate Performance power plan",
			Description:             "Unhides and activates the Ultimate Performance scheme. Restore reactivates the previous scheme.",
			Category:                tweak.Power,
			Forward:                 b.activateUltimate,
			Reverse:                 b.restoreScheme(ultimateID),
			RequiresExternalProcess: true,
			Default:                 true,
		},
		{
			ID:                      highPerfID,
			Title:                   "High Performance power plan",
			Description:             "Activates the High Performance scheme. Useful where Ultimate Performance is unavailable.",
			Category:                tweak.Power,
			Forward:                 b.activateScheme(highPerfID, SchemeHigh, "High Performance"),
			Reverse:                 b.restoreScheme(highPerfID),
			RequiresExternalProcess: true,
		},
		{
			ID:                      "power.core-parking",
			Title:                   "Disable CPU core parking",
			Description:             "Keeps every core unparked in the current scheme.",
			Category:                tweak.Power,
			Forward:                 b.disableCoreParking,
			RequiresExternalProcess: true,
			Default:                 true,
		},
		{
			ID:           "power.timer-resolution",
			Title:        "Max timer resolution (0.5ms)",
			Description:  "Requests the finest system timer period for lower input latency.",
			Category:     tweak.Power,
			Forward:      b.timerResolution,
			ParallelSafe: true,
			Default:      true,
		},
	}
}

// saveActiveScheme records the active scheme the first time any scheme
// tweak runs and marks id as a holder of that backup.
func (b *builder) saveActiveScheme(ctx context.Context, id string) error {
	out, err := b.sys.Runner.Run(ctx, "powercfg", "/getactivescheme")
	if err != nil {
		return fmt.Errorf("reading active scheme: %w", err)
	}
	guid, ok := parseScheme(out)
	if !ok {
		return fmt.Errorf("reading active scheme: unexpected output %q", strings.TrimSpace(string(out)))
	}
	if _, err := b.backups.SaveOnce(backup.Record{TweakID: powerGroup, Name: schemeBackup, Value: guid}); err != nil {
		return err
	}
	if _, err := b.backups.SaveOnce(backup.Record{TweakID: powerGroup, Name: holderName(id), Value: guid}); err != nil {
		return err
	}
	return nil
}

func (b *builder) setActive(ctx context.Context, guid string) error {
	_, err := b.sys.Runner.Run(ctx, "powercfg", "/setactive", guid)
	return err
}

func (b *builder) activateScheme(id, guid, name string) tweak.Action {
	return func(ctx context.Context) (string, error) {
		if err := b.saveActiveScheme(ctx, id); err != nil {
			return "", err
		}
		if err := b.setActive(ctx, guid); err != nil {
			return "", err
		}
		return name + " active", nil
	}
}

// activateUltimate duplicates the hidden Ultimate Performance template and
// activates the copy. When the duplicate's GUID cannot be read the template
// GUID itself is activated.
func (b *builder) activateUltimate(ctx context.Context) (string, error) {
	if err := b.saveActiveScheme(ctx, ultimateID); err != nil {
		return "", err
	}

	target := SchemeUltimate
	out, err := b.sys.Runner.Run(ctx, "powercfg", "/duplicatescheme", SchemeUltimate)
	if err != nil {
		logger().Debug("duplicating ultimate scheme failed", "error", err)
	} else if guid, ok := parseScheme(out); ok {
		target = guid
	}

	if err := b.setActive(ctx, target); err != nil {
		return "", fmt.Errorf("ultimate performance unavailable: %w", err)
	}
	return "Ultimate Performance active", nil
}

// restoreScheme reactivates the saved scheme, or Balanced without one. The
// backup survives until no other scheme tweak still holds it, so restoring
// both scheme tweaks in one run ends on the original scheme.
func (b *builder) restoreScheme(id string) tweak.Action {
	return func(ctx context.Context) (string, error) {
		guid := SchemeBalanced
		rec, err := b.backups.Get(powerGroup, schemeBackup)
		switch {
		case err == nil && rec.Value != "":
			guid = rec.Value
		case err != nil && !errors.Is(err, backup.ErrNotFound):
			return "", err
		}

		if err := b.setActive(ctx, guid); err != nil {
			return "", err
		}
		if err := b.backups.Delete(powerGroup, holderName(id)); err != nil {
			return "", err
		}
		held, err := b.schemeHeld()
		if err != nil {
			return "", err
		}
		if !held {
			if err := b.backups.Delete(powerGroup, schemeBackup); err != nil {
				return "", err
			}
		}
		if guid == SchemeBalanced {
			return "Balanced active", nil
		}
		return "scheme " + guid + " active", nil
	}
}

// schemeHeld reports whether any scheme tweak still holds the backup.
func (b *builder) schemeHeld() (bool, error) {
	for _, id := range schemeTweaks {
		_, err := b.backups.Get(powerGroup, holderName(id))
		switch {
		case err == nil:
			return true, nil
		case !errors.Is(err, backup.ErrNotFound):
			return false, err
		}
	}
	return false, nil
}

func (b *builder) disableCoreParking(ctx context.Context) (string, error) {
	cmds := [][]string{
		{"/setacvalueindex", "scheme_current", "sub_processor", "CPMINCORES", "100"},
		{"/setacvalueindex", "scheme_current", "sub_processor", "CPMAXCORES", "100"},
		{"/setactive", "scheme_current"},
	}
	for _, args := range cmds {
		if _, err := b.sys.Runner.Run(ctx, "powercfg", args...); err != nil {
			return "", err
		}
	}

	if _, err := b.setDWords([]dword{
		{coreParkingKey, "ValueMin", 100},
		{coreParkingKey, "ValueMax", 100},
	}); err != nil {
		return "", err
	}
	return "all cores unparked", nil
}

func (b *builder) timerResolution(context.Context) (string, error) {
	got, err := b.sys.Memory.SetTimerResolution(b.opts.TimerResolution)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("timer resolution %.2fms", float64(got)/10000), nil
}
