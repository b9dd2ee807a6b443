package tweaks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

func (b *builder) memoryTweaks() []tweak.Tweak {
	return []tweak.Tweak{
		{
			ID:                      "memory.disable-compression",
			Title:                   "Disable memory compression",
			Description:             "Turns off the memory manager's compression store. Takes effect after a restart.",
			Category:                tweak.Memory,
			Forward:                 b.disableCompression,
			ParallelSafe:            true,
			RequiresExternalProcess: true,
			Default:                 true,
		},
		{
			ID:           "memory.trim-self",
			Title:        "Release boost's own memory",
			Description:  "Runs a garbage collection and returns freed heap to the OS.",
			Category:     tweak.Memory,
			Forward:      b.measured(trimSelf),
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:          "memory.clear-standby",
			Title:       "Clear standby RAM",
			Description: "Empties process working sets and purges the standby page list.",
			Category:    tweak.Memory,
			Forward:     b.measured(b.clearStandby),
			Default:     true,
		},
		{
			ID:                      "memory.idle-tasks",
			Title:                   "Run idle tasks cleanup",
			Description:             "Asks Windows to run its pending idle-time maintenance now.",
			Category:                tweak.Memory,
			Forward:                 b.idleTasks,
			ParallelSafe:            true,
			RequiresExternalProcess: true,
			Default:                 true,
		},
		{
			ID:           "memory.temp-files",
			Title:        "Clear temp files",
			Description:  "Deletes files at the top of the user temp directory. Files in use are left alone.",
			Category:     tweak.Memory,
			Forward:      b.clearTempFiles,
			ParallelSafe: true,
			Default:      true,
		},
	}
}

func (b *builder) disableCompression(ctx context.Context) (string, error) {
	_, err := b.sys.Runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive",
		"-Command", "Disable-MMAgent -MemoryCompression")
	if err != nil {
		return "", err
	}
	return "memory compression disabled, restart required", nil
}

func trimSelf(context.Context) (string, error) {
	debug.FreeOSMemory()
	return "heap released", nil
}

func (b *builder) clearStandby(context.Context) (string, error) {
	trimmed, err := b.sys.Processes.TrimWorkingSets()
	if err != nil {
		return "", fmt.Errorf("trimming working sets: %w", err)
	}
	if err := b.sys.Memory.PurgeStandbyList(); err != nil {
		return "", fmt.Errorf("purging standby list: %w", err)
	}
	return fmt.Sprintf("trimmed %d %s, standby list purged", trimmed, plural("process", trimmed)), nil
}

func (b *builder) idleTasks(ctx context.Context) (string, error) {
	if _, err := b.sys.Runner.Run(ctx, "rundll32.exe", "advapi32.dll,ProcessIdleTasks"); err != nil {
		return "", err
	}
	return "idle tasks started", nil
}

// clearTempFiles deletes up to TempFileLimit regular files directly inside
// the temp directory. Subdirectories are not entered.
func (b *builder) clearTempFiles(ctx context.Context) (string, error) {
	root := b.sys.TempDir
	if root == "" {
		root = os.TempDir()
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("temp directory: %w", err)
	}

	limit := int64(b.opts.TempFileLimit)
	var deleted, freed, skipped atomic.Int64

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fastwalk.ErrSkipFiles
		}
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		// Slots are claimed before removal; callbacks run concurrently.
		if deleted.Add(1) > limit {
			deleted.Add(-1)
			return fastwalk.ErrSkipFiles
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		if err := os.Remove(path); err != nil {
			deleted.Add(-1)
			skipped.Add(1)
			return nil
		}
		freed.Add(size)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return "", walkErr
	}

	detail := fmt.Sprintf("deleted %d %s (%s)", deleted.Load(), plural("file", int(deleted.Load())), humanize.IBytes(uint64(freed.Load())))
	if n := skipped.Load(); n > 0 {
		detail += fmt.Sprintf(", %d in use", n)
	}
	return detail, nil
}
