// Package tweaks defines the shipped tweak catalog. Each tweak is a plain
// tweak.Tweak whose actions drive the platform facilities; nothing here
// knows about phases, workers or progress.
package tweaks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/logging"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/sysinfo"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// Backups records pre-change state for reversible tweaks.
type Backups interface {
	SaveOnce(r backup.Record) (bool, error)
	Append(tweakID, name string, values ...string) error
	Get(tweakID, name string) (backup.Record, error)
	Delete(tweakID, name string) error
}

// Options tunes the shipped tweaks.
type Options struct {
	// Processes overrides the kill list of process.kill-bloat.
	Processes []string

	// Services overrides the stop list of services.stop.
	Services []string

	// ServiceWait bounds how long a single service may take to change state.
	ServiceWait time.Duration

	// ServiceWorkers bounds concurrent service operations.
	ServiceWorkers int

	// TempFileLimit caps how many files memory.temp-files deletes per run.
	TempFileLimit int

	// TimerResolution is the requested timer period in 100ns units.
	TimerResolution uint32

	// AvailableRAM is sampled around memory tweaks. Nil disables the
	// before/after report.
	AvailableRAM func() (uint64, error)
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Processes:       DefaultProcesses(),
		Services:        DefaultServices(),
		ServiceWait:     5 * time.Second,
		ServiceWorkers:  4,
		TempFileLimit:   100,
		TimerResolution: 5000,
		AvailableRAM:    sysinfo.Available,
	}
}

func (o *Options) fill() {
	def := DefaultOptions()
	if len(o.Processes) == 0 {
		o.Processes = def.Processes
	}
	if len(o.Services) == 0 {
		o.Services = def.Services
	}
	if o.ServiceWait <= 0 {
		o.ServiceWait = def.ServiceWait
	}
	if o.ServiceWorkers < 1 {
		o.ServiceWorkers = def.ServiceWorkers
	}
	if o.TempFileLimit < 1 {
		o.TempFileLimit = def.TempFileLimit
	}
	if o.TimerResolution == 0 {
		o.TimerResolution = def.TimerResolution
	}
}

// builder carries the dependencies shared by every tweak constructor.
type builder struct {
	sys     platform.System
	backups Backups
	opts    Options
}

// Default builds the shipped catalog against sys. backups may be nil, in
// which case reversible tweaks fall back to stock values on restore.
func Default(sys platform.System, backups Backups, opts Options) (*tweak.Catalog, error) {
	opts.fill()
	if backups == nil {
		backups = noBackups{}
	}
	b := &builder{sys: sys, backups: backups, opts: opts}

	var defs []tweak.Tweak
	defs = append(defs, b.processTweaks()...)
	defs = append(defs, b.memoryTweaks()...)
	defs = append(defs, b.powerTweaks()...)
	defs = append(defs, b.gamingTweaks()...)
	defs = append(defs, b.systemTweaks()...)
	return tweak.NewCatalog(defs...)
}

func logger() *logging.Logger {
	return logging.Get("tweaks")
}

// dword is a registry DWORD assignment.
type dword struct {
	key   platform.Key
	name  string
	value uint32
}

// setDWords writes every value, continuing past failures. It returns how
// many were written and the joined errors.
func (b *builder) setDWords(vals []dword) (int, error) {
	var errs []error
	n := 0
	for _, v := range vals {
		if err := b.sys.Settings.SetDWord(v.key, v.name, v.value); err != nil {
			if errors.Is(err, platform.ErrUnsupported) {
				return n, err
			}
			errs = append(errs, fmt.Errorf("%s\\%s: %w", v.key, v.name, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// registry returns an action that writes vals and reports the count.
func (b *builder) registry(vals ...dword) tweak.Action {
	return func(context.Context) (string, error) {
		n, err := b.setDWords(vals)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d values set", n), nil
	}
}

// measured wraps fn with an available-RAM sample on either side.
func (b *builder) measured(fn tweak.Action) tweak.Action {
	if b.opts.AvailableRAM == nil {
		return fn
	}
	return func(ctx context.Context) (string, error) {
		before, berr := b.opts.AvailableRAM()
		detail, err := fn(ctx)
		if err != nil || berr != nil {
			return detail, err
		}
		after, aerr := b.opts.AvailableRAM()
		if aerr != nil {
			return detail, nil
		}
		return fmt.Sprintf("%s, %s available", detail, sysinfo.Delta(before, after)), nil
	}
}

// noBackups is used when no store is configured. Nothing is saved and
// every lookup misses.
type noBackups struct{}

func (noBackups) SaveOnce(backup.Record) (bool, error) { return false, nil }
func (noBackups) Append(string, string, ...string) error { return nil }
func (noBackups) Delete(string, string) error { return nil }
func (noBackups) Get(id, name string) (backup.Record, error) {
	return backup.Record{}, fmt.Errorf("%w: %s/%s", backup.ErrNotFound, id, name)
}
