package tweaks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/platform/platformtest"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

const activeBalanced = "Power Scheme GUID: 381b4222-f694-41f0-9685-ff5bb260df2e  (Balanced)\n"

type fixture struct {
	cat     *tweak.Catalog
	fakes   *platformtest.Fakes
	backups *backup.Store
	temp    string
	startup string
}

func setup(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()

	temp := t.TempDir()
	startup := t.TempDir()
	sys, fakes := platformtest.New(temp, startup)

	store, err := backup.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts := DefaultOptions()
	opts.AvailableRAM = nil
	for _, m := range mutate {
		m(&opts)
	}

	cat, err := Default(sys, store, opts)
	require.NoError(t, err)
	return &fixture{cat: cat, fakes: fakes, backups: store, temp: temp, startup: startup}
}

func (f *fixture) run(t *testing.T, id string, reverse bool) (string, error) {
	t.Helper()
	tw, err := f.cat.Lookup(id)
	require.NoError(t, err)
	action := tw.Action(reverse)
	require.NotNil(t, action, "%s has no action for reverse=%v", id, reverse)
	return action(context.Background())
}

func TestDefault_Catalog(t *testing.T) {
	f := setup(t)

	assert.Equal(t, 21, f.cat.Len())

	var reversible, off []string
	for _, tw := range f.cat.All() {
		assert.NotEmpty(t, tw.Title, tw.ID)
		assert.NotEmpty(t, tw.Description, tw.ID)
		assert.NotNil(t, tw.Forward, tw.ID)
		if tw.Reversible() {
			reversible = append(reversible, tw.ID)
		}
		if !tw.Default {
			off = append(off, tw.ID)
		}
	}
	assert.ElementsMatch(t, []string{"services.stop", "power.ultimate", "power.high-performance", "apps.background"}, reversible)
	assert.ElementsMatch(t, []string{"power.high-performance", "gaming.priority"}, off)

	nw, err := f.cat.Lookup("network.low-latency")
	require.NoError(t, err)
	assert.Equal(t, tweak.Network, nw.Category)
}

func TestDefault_PlanShape(t *testing.T) {
	f := setup(t)

	p, err := plan.Compile(f.cat, plan.DefaultLayout(), plan.Defaults(f.cat), plan.Apply)
	require.NoError(t, err)

	var names []string
	for _, ph := range p.Phases {
		names = append(names, ph.Name)
	}
	assert.Equal(t, []string{"process", "memory", "power", "gaming", "system"}, names)
	assert.Equal(t, 19, p.Total())

	// Scheme changes and the standby purge must not overlap with anything.
	for _, ph := range p.Phases {
		for _, tw := range ph.Parallel {
			assert.NotContains(t, []string{"power.ultimate", "power.core-parking", "memory.clear-standby"}, tw.ID)
		}
	}

	r, err := plan.Compile(f.cat, plan.DefaultLayout(), plan.All(f.cat), plan.Restore)
	require.NoError(t, err)
	assert.Equal(t, []string{"services.stop", "apps.background", "power.ultimate", "power.high-performance"}, r.IDs())
}

func TestKillBloat(t *testing.T) {
	f := setup(t)
	f.fakes.Processes.SetRunning("OneDrive.exe", "explorer.exe", "spotify")

	detail, err := f.run(t, "process.kill-bloat", false)
	require.NoError(t, err)
	assert.Equal(t, "terminated 2 processes", detail)
	assert.ElementsMatch(t, []string{"OneDrive.exe", "spotify"}, f.fakes.Processes.Killed)

	detail, err = f.run(t, "process.kill-bloat", false)
	require.NoError(t, err)
	assert.Equal(t, "no matching processes", detail)
}

func TestServices_StopAndRestore(t *testing.T) {
	f := setup(t, func(o *Options) { o.Services = []string{"SysMain", "WSearch", "Spooler", "Missing"} })
	f.fakes.Services.Install("SysMain", true)
	f.fakes.Services.Install("WSearch", true)
	f.fakes.Services.Install("Spooler", false)

	detail, err := f.run(t, "services.stop", false)
	require.NoError(t, err)
	assert.Equal(t, "stopped 2 services", detail)
	assert.False(t, f.fakes.Services.Running("SysMain"))

	rec, err := f.backups.Get("services.stop", "stopped")
	require.NoError(t, err)
	assert.Equal(t, []string{"SysMain", "WSearch"}, rec.Values)

	detail, err = f.run(t, "services.stop", true)
	require.NoError(t, err)
	assert.Equal(t, "started 2 services", detail)
	assert.True(t, f.fakes.Services.Running("SysMain"))
	assert.False(t, f.fakes.Services.Running("Spooler"), "services that were already stopped stay stopped")

	_, err = f.backups.Get("services.stop", "stopped")
	assert.ErrorIs(t, err, backup.ErrNotFound)

	detail, err = f.run(t, "services.stop", true)
	require.NoError(t, err)
	assert.Equal(t, "nothing to restore", detail)
}

func TestServices_Errors(t *testing.T) {
	t.Run("unsupported aborts", func(t *testing.T) {
		f := setup(t)
		f.fakes.Services.Err = platform.ErrUnsupported
		_, err := f.run(t, "services.stop", false)
		assert.ErrorIs(t, err, platform.ErrUnsupported)
	})

	t.Run("all failing is an error", func(t *testing.T) {
		f := setup(t, func(o *Options) { o.Services = []string{"a", "b"} })
		f.fakes.Services.Err = errors.New("access denied")
		_, err := f.run(t, "services.stop", false)
		assert.ErrorContains(t, err, "could not stop any of 2 services")
	})
}

func TestServices_BoundedConcurrency(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = "svc" + string(rune('a'+i))
	}
	f := setup(t, func(o *Options) { o.Services = names; o.ServiceWorkers = 2 })
	for _, n := range names {
		f.fakes.Services.Install(n, true)
	}

	detail, err := f.run(t, "services.stop", false)
	require.NoError(t, err)
	assert.Equal(t, "stopped 12 services", detail)
	assert.Len(t, f.fakes.Services.Calls(), 12)
}

func TestMemory_ClearStandbyMeasured(t *testing.T) {
	samples := []uint64{10 << 20, 12 << 20}
	f := setup(t, func(o *Options) {
		o.AvailableRAM = func() (uint64, error) {
			v := samples[0]
			samples = samples[1:]
			return v, nil
		}
	})
	f.fakes.Processes.SetRunning("a", "b", "c")

	detail, err := f.run(t, "memory.clear-standby", false)
	require.NoError(t, err)
	assert.Equal(t, "trimmed 3 processes, standby list purged, +2.0 MiB available", detail)
	assert.Equal(t, 1, f.fakes.Memory.Purged)
}

func TestMemory_ExternalCommands(t *testing.T) {
	f := setup(t)

	_, err := f.run(t, "memory.disable-compression", false)
	require.NoError(t, err)
	_, err = f.run(t, "memory.idle-tasks", false)
	require.NoError(t, err)

	cmds := f.fakes.Runner.Commands()
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], "Disable-MMAgent -MemoryCompression")
	assert.Equal(t, "rundll32.exe advapi32.dll,ProcessIdleTasks", cmds[1])
}

func TestMemory_ExternalFailure(t *testing.T) {
	f := setup(t)
	f.fakes.Runner.Respond("rundll32.exe advapi32.dll,ProcessIdleTasks", platformtest.Response{Err: errors.New("exit status 1")})

	_, err := f.run(t, "memory.idle-tasks", false)
	assert.Error(t, err)
}

func TestMemory_TempFiles(t *testing.T) {
	f := setup(t, func(o *Options) { o.TempFileLimit = 3 })

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(f.temp, "f"+string(rune('0'+i))+".tmp"), []byte("12345"), 0o644))
	}
	sub := filepath.Join(f.temp, "keep")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.tmp"), []byte("x"), 0o644))

	detail, err := f.run(t, "memory.temp-files", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(detail, "deleted 3 files"), detail)

	left, err := os.ReadDir(f.temp)
	require.NoError(t, err)
	assert.Len(t, left, 3, "two files plus the untouched subdirectory")
	_, err = os.Stat(filepath.Join(sub, "nested.tmp"))
	assert.NoError(t, err)
}

func TestMemory_TempFilesLimitIsExact(t *testing.T) {
	f := setup(t, func(o *Options) { o.TempFileLimit = 1 })

	for i := 0; i < 64; i++ {
		name := filepath.Join(f.temp, fmt.Sprintf("f%02d.tmp", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	detail, err := f.run(t, "memory.temp-files", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(detail, "deleted 1 file ("), detail)

	left, err := os.ReadDir(f.temp)
	require.NoError(t, err)
	assert.Len(t, left, 63)
}

func TestPlural(t *testing.T) {
	tests := []struct {
		noun string
		n    int
		want string
	}{
		{"file", 1, "file"},
		{"file", 0, "files"},
		{"service", 12, "services"},
		{"process", 1, "process"},
		{"process", 3, "processes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, plural(tt.noun, tt.n), "%s x%d", tt.noun, tt.n)
	}
}

func TestMemory_TrimSelf(t *testing.T) {
	f := setup(t)
	detail, err := f.run(t, "memory.trim-self", false)
	require.NoError(t, err)
	assert.Equal(t, "heap released", detail)
}

func TestPower_SchemeBackupAndRestore(t *testing.T) {
	f := setup(t)
	f.fakes.Runner.Respond("powercfg /getactivescheme", platformtest.Response{Output: activeBalanced})
	f.fakes.Runner.Respond("powercfg /duplicatescheme "+SchemeUltimate,
		platformtest.Response{Output: "Power Scheme GUID: 11111111-2222-3333-4444-555555555555  (Ultimate Performance)"})

	_, err := f.run(t, "power.ultimate", false)
	require.NoError(t, err)
	assert.Contains(t, f.fakes.Runner.Commands(), "powercfg /setactive 11111111-2222-3333-4444-555555555555")

	// A later scheme change must not replace the original backup.
	f.fakes.Runner.Respond("powercfg /getactivescheme",
		platformtest.Response{Output: "Power Scheme GUID: 11111111-2222-3333-4444-555555555555  (Ultimate Performance)"})
	_, err = f.run(t, "power.high-performance", false)
	require.NoError(t, err)
	assert.Contains(t, f.fakes.Runner.Commands(), "powercfg /setactive "+SchemeHigh)

	rec, err := f.backups.Get("power", "scheme")
	require.NoError(t, err)
	assert.Equal(t, SchemeBalanced, rec.Value)

	detail, err := f.run(t, "power.ultimate", true)
	require.NoError(t, err)
	assert.Equal(t, "Balanced active", detail)

	// power.high-performance still holds the backup.
	_, err = f.backups.Get("power", "scheme")
	require.NoError(t, err)

	detail, err = f.run(t, "power.high-performance", true)
	require.NoError(t, err)
	assert.Equal(t, "Balanced active", detail)

	_, err = f.backups.Get("power", "scheme")
	assert.ErrorIs(t, err, backup.ErrNotFound)

	// With the backup gone a restore falls back to Balanced.
	detail, err = f.run(t, "power.ultimate", true)
	require.NoError(t, err)
	assert.Equal(t, "Balanced active", detail)
}

func TestPower_RestoreBothSchemesReturnsToOriginal(t *testing.T) {
	f := setup(t)
	activeHigh := "Power Scheme GUID: " + SchemeHigh + "  (High performance)\n"
	f.fakes.Runner.Respond("powercfg /getactivescheme", platformtest.Response{Output: activeHigh})

	sel := plan.NewSelection("power.ultimate", "power.high-performance")
	sched := engine.New(engine.AlwaysElevated, engine.DefaultOptions())

	p, err := plan.Compile(f.cat, plan.DefaultLayout(), sel, plan.Apply)
	require.NoError(t, err)
	run := sched.Execute(context.Background(), p, nil)
	require.Empty(t, failures(run))

	p, err = plan.Compile(f.cat, plan.DefaultLayout(), sel, plan.Restore)
	require.NoError(t, err)
	before := len(f.fakes.Runner.Commands())
	run = sched.Execute(context.Background(), p, nil)
	require.Empty(t, failures(run))

	for _, id := range []string{"power.ultimate", "power.high-performance"} {
		o, ok := run.Outcome(id)
		require.True(t, ok, id)
		assert.Equal(t, "scheme "+SchemeHigh+" active", o.Message, id)
	}

	var setactive []string
	for _, c := range f.fakes.Runner.Commands()[before:] {
		if strings.HasPrefix(c, "powercfg /setactive ") {
			setactive = append(setactive, c)
		}
	}
	require.NotEmpty(t, setactive)
	assert.Equal(t, "powercfg /setactive "+SchemeHigh, setactive[len(setactive)-1])

	_, err = f.backups.Get("power", "scheme")
	assert.ErrorIs(t, err, backup.ErrNotFound)
}

func TestPower_UltimateFallsBackToTemplate(t *testing.T) {
	f := setup(t)
	f.fakes.Runner.Respond("powercfg /getactivescheme", platformtest.Response{Output: activeBalanced})
	f.fakes.Runner.Respond("powercfg /duplicatescheme "+SchemeUltimate, platformtest.Response{Err: errors.New("exit status 1")})

	_, err := f.run(t, "power.ultimate", false)
	require.NoError(t, err)
	assert.Contains(t, f.fakes.Runner.Commands(), "powercfg /setactive "+SchemeUltimate)
}

func TestPower_UnreadableActiveScheme(t *testing.T) {
	f := setup(t)
	f.fakes.Runner.Respond("powercfg /getactivescheme", platformtest.Response{Output: "garbage"})

	_, err := f.run(t, "power.ultimate", false)
	assert.ErrorContains(t, err, "unexpected output")
}

func TestPower_CoreParking(t *testing.T) {
	f := setup(t)

	_, err := f.run(t, "power.core-parking", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"powercfg /setacvalueindex scheme_current sub_processor CPMINCORES 100",
		"powercfg /setacvalueindex scheme_current sub_processor CPMAXCORES 100",
		"powercfg /setactive scheme_current",
	}, f.fakes.Runner.Commands())

	v, ok := f.fakes.Settings.Get(coreParkingKey, "ValueMin")
	assert.True(t, ok)
	assert.Equal(t, uint32(100), v)
}

func TestPower_TimerResolution(t *testing.T) {
	f := setup(t)

	detail, err := f.run(t, "power.timer-resolution", false)
	require.NoError(t, err)
	assert.Equal(t, "timer resolution 0.50ms", detail)
	assert.Equal(t, uint32(5000), f.fakes.Memory.Resolution)
}

func TestParseScheme(t *testing.T) {
	guid, ok := parseScheme([]byte(activeBalanced))
	assert.True(t, ok)
	assert.Equal(t, SchemeBalanced, guid)

	guid, ok = parseScheme([]byte("Power Scheme GUID: 8C5E7FDA-E8BF-4A96-9A85-A6E23A8C635C"))
	assert.True(t, ok)
	assert.Equal(t, SchemeHigh, guid)

	_, ok = parseScheme([]byte("no scheme"))
	assert.False(t, ok)
}

func TestGaming(t *testing.T) {
	f := setup(t)

	detail, err := f.run(t, "gaming.game-dvr", false)
	require.NoError(t, err)
	assert.Equal(t, "6 values set", detail)
	v, ok := f.fakes.Settings.Get(gameDVRPolicyKey, "AllowGameDVR")
	assert.True(t, ok)
	assert.Equal(t, uint32(0), v)

	_, err = f.run(t, "gaming.gpu-scheduling", false)
	require.NoError(t, err)
	v, _ = f.fakes.Settings.Get(graphicsKey, "HwSchMode")
	assert.Equal(t, uint32(2), v)

	detail, err = f.run(t, "gaming.priority", false)
	require.NoError(t, err)
	assert.Equal(t, "6 values set", detail)
	assert.True(t, f.fakes.Processes.Priority)
	s, ok := f.fakes.Settings.GetString(gamesTaskKey, "Scheduling Category")
	assert.True(t, ok)
	assert.Equal(t, "High", s)
	v, _ = f.fakes.Settings.Get(systemProfileKey, "NetworkThrottlingIndex")
	assert.Equal(t, uint32(0xFFFFFFFF), v)
}

func TestRegistryFailures(t *testing.T) {
	f := setup(t)
	f.fakes.Settings.Err = errors.New("access denied")

	_, err := f.run(t, "system.telemetry", false)
	assert.ErrorContains(t, err, "access denied")
}

func TestStartupDisable(t *testing.T) {
	f := setup(t)
	for _, name := range []string{"a.lnk", "b.lnk"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.startup, name), nil, 0o644))
	}
	// An older copy in the backup folder is replaced.
	require.NoError(t, os.MkdirAll(filepath.Join(f.startup, StartupBackupDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.startup, StartupBackupDir, "a.lnk"), []byte("old"), 0o644))

	detail, err := f.run(t, "startup.disable", false)
	require.NoError(t, err)
	assert.Equal(t, "moved 2 startup items", detail)

	moved, err := os.ReadDir(filepath.Join(f.startup, StartupBackupDir))
	require.NoError(t, err)
	assert.Len(t, moved, 2)
	data, _ := os.ReadFile(filepath.Join(f.startup, StartupBackupDir, "a.lnk"))
	assert.Empty(t, data)
}

func TestStartupDisable_NoFolder(t *testing.T) {
	f := setup(t)
	require.NoError(t, os.RemoveAll(f.startup))

	detail, err := f.run(t, "startup.disable", false)
	require.NoError(t, err)
	assert.Equal(t, "no startup folder", detail)
}

func TestBackgroundApps(t *testing.T) {
	t.Run("restores saved value", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.fakes.Settings.SetDWord(backgroundAppsKey, backgroundValue, 0))

		_, err := f.run(t, "apps.background", false)
		require.NoError(t, err)
		v, _ := f.fakes.Settings.Get(backgroundAppsKey, backgroundValue)
		assert.Equal(t, uint32(1), v)

		// Applying again keeps the first backup.
		_, err = f.run(t, "apps.background", false)
		require.NoError(t, err)
		rec, err := f.backups.Get(backgroundAppsID, backgroundValue)
		require.NoError(t, err)
		assert.Equal(t, "0", rec.Value)

		detail, err := f.run(t, "apps.background", true)
		require.NoError(t, err)
		assert.Equal(t, "background apps enabled", detail)
		v, _ = f.fakes.Settings.Get(backgroundAppsKey, backgroundValue)
		assert.Equal(t, uint32(0), v)
	})

	t.Run("falls back to enabled", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.fakes.Settings.SetDWord(backgroundAppsKey, backgroundValue, 1))

		_, err := f.run(t, "apps.background", true)
		require.NoError(t, err)
		v, _ := f.fakes.Settings.Get(backgroundAppsKey, backgroundValue)
		assert.Equal(t, uint32(0), v)
	})
}

func TestLowLatencyNetwork(t *testing.T) {
	f := setup(t)
	f.fakes.Settings.SetSubKeys(interfacesKey, "{if-1}", "{if-2}")

	detail, err := f.run(t, "network.low-latency", false)
	require.NoError(t, err)
	assert.Equal(t, "11 values set across 2 interfaces", detail)

	v, ok := f.fakes.Settings.Get(interfacesKey.Sub("{if-2}"), "TCPNoDelay")
	assert.True(t, ok)
	assert.Equal(t, uint32(1), v)
}

func TestDefault_NilBackups(t *testing.T) {
	sys, fakes := platformtest.New(t.TempDir(), "")
	opts := DefaultOptions()
	opts.AvailableRAM = nil
	cat, err := Default(sys, nil, opts)
	require.NoError(t, err)

	fakes.Services.Install("SysMain", true)
	tw, _ := cat.Lookup("services.stop")
	_, err = tw.Forward(context.Background())
	require.NoError(t, err)

	detail, err := tw.Reverse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nothing to restore", detail)
}

func TestDefault_FullRunThroughEngine(t *testing.T) {
	f := setup(t)
	f.fakes.Runner.Respond("powercfg /getactivescheme", platformtest.Response{Output: activeBalanced})
	f.fakes.Services.Install("SysMain", true)

	p, err := plan.Compile(f.cat, plan.DefaultLayout(), plan.All(f.cat), plan.Apply)
	require.NoError(t, err)

	run := engine.New(engine.AlwaysElevated, engine.DefaultOptions()).Execute(context.Background(), p, nil)
	sum := run.Summary()
	assert.Equal(t, 21, sum.Total)
	assert.Zero(t, sum.Failed, "failures: %v", failures(run))

	p, err = plan.Compile(f.cat, plan.DefaultLayout(), plan.All(f.cat), plan.Restore)
	require.NoError(t, err)
	run = engine.New(engine.AlwaysElevated, engine.DefaultOptions()).Execute(context.Background(), p, nil)
	assert.Equal(t, 4, run.Summary().Succeeded)
	assert.True(t, f.fakes.Services.Running("SysMain"))
}

func failures(run *engine.Run) []string {
	var out []string
	for _, o := range run.Outcomes {
		if o.Status == engine.Failed {
			out = append(out, o.TweakID+": "+o.Message)
		}
	}
	return out
}
