package tweaks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// DefaultProcesses lists background applications that are safe to close.
func DefaultProcesses() []string {
	return []string{
		"OneDrive",
		"YourPhone",
		"PhoneExperienceHost",
		"GameBar",
		"GameBarPresenceWriter",
		"SearchApp",
		"SearchHost",
		"Cortana",
		"MicrosoftEdgeUpdate",
		"msedgewebview2",
		"WidgetService",
		"Widgets",
		"StartMenuExperienceHost",
		"TextInputHost",
		"CTFMon",
		"SecurityHealthSystray",
		"NVIDIA Share",
		"nvcontainer",
		"NVDisplay.Container",
		"AdobeARM",
		"AcroTray",
		"jusched",
		"iTunesHelper",
		"Spotify",
	}
}

// DefaultServices lists services that are safe to stop for a session.
func DefaultServices() []string {
	return []string{
		"SysMain",
		"WSearch",
		"DiagTrack",
		"Fax",
		"RetailDemo",
		"MapsBroker",
		"WbioSrvc",
		"WMPNetworkSvc",
		"WpcMonSvc",
		"wisvc",
		"BITS",
		"DoSvc",
		"XblAuthManager",
		"XblGameSave",
		"XboxGipSvc",
		"XboxNetApiSvc",
		"dmwappushservice",
		"RemoteRegistry",
		"WerSvc",
		"lfsvc",
		"TabletInputService",
		"PhoneSvc",
		"icssvc",
		"WalletService",
		"ClickToRunSvc",
		"Spooler",
	}
}

const (
	servicesID    = "services.stop"
	stoppedBackup = "stopped"
)

func (b *builder) processTweaks() []tweak.Tweak {
	return []tweak.Tweak{
		{
			ID:           "process.kill-bloat",
			Title:        "Kill bloatware processes",
			Description:  "Terminates background apps such as OneDrive, Game Bar and vendor updaters.",
			Category:     tweak.ProcessCleanup,
			Forward:      b.killBloat,
			ParallelSafe: true,
			Default:      true,
		},
		{
			ID:           servicesID,
			Title:        "Stop background services",
			Description:  "Stops indexing, telemetry, Xbox and other background services. Restore starts the ones that were stopped.",
			Category:     tweak.ProcessCleanup,
			Forward:      b.stopServices,
			Reverse:      b.startServices,
			ParallelSafe: true,
			Default:      true,
		},
	}
}

func (b *builder) killBloat(context.Context) (string, error) {
	n, err := b.sys.Processes.KillByName(b.opts.Processes)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "no matching processes", nil
	}
	return fmt.Sprintf("terminated %d processes", n), nil
}

// eachService runs fn over names with at most ServiceWorkers in flight and
// collects the names fn reported as changed. Per-service failures are
// logged and counted; only ErrUnsupported aborts the group.
func (b *builder) eachService(ctx context.Context, names []string, verb string,
	fn func(ctx context.Context, name string) (bool, error)) (changed []string, failed int, err error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.ServiceWorkers)

	for _, name := range names {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, b.opts.ServiceWait)
			defer cancel()

			ok, err := fn(sctx, name)
			if errors.Is(err, platform.ErrUnsupported) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger().Debug("service "+verb+" failed", "service", name, "error", err)
				return nil
			}
			if ok {
				changed = append(changed, name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if failed > 0 && len(changed) == 0 {
		return nil, failed, fmt.Errorf("could not %s any of %d services", verb, failed)
	}
	return changed, failed, nil
}

func (b *builder) stopServices(ctx context.Context) (string, error) {
	stopped, failed, err := b.eachService(ctx, b.opts.Services, "stop", b.sys.Services.Stop)
	if err != nil {
		return "", err
	}
	if err := b.backups.Append(servicesID, stoppedBackup, stopped...); err != nil {
		return "", fmt.Errorf("recording stopped services: %w", err)
	}
	return countDetail("stopped", len(stopped), "service", failed), nil
}

func (b *builder) startServices(ctx context.Context) (string, error) {
	rec, err := b.backups.Get(servicesID, stoppedBackup)
	if errors.Is(err, backup.ErrNotFound) {
		return "nothing to restore", nil
	}
	if err != nil {
		return "", err
	}

	started, failed, err := b.eachService(ctx, rec.Values, "start", b.sys.Services.Start)
	if err != nil {
		return "", err
	}
	if err := b.backups.Delete(servicesID, stoppedBackup); err != nil {
		return "", fmt.Errorf("clearing service backup: %w", err)
	}
	return countDetail("started", len(started), "service", failed), nil
}

func countDetail(verb string, n int, noun string, failed int) string {
	s := fmt.Sprintf("%s %d %s", verb, n, plural(noun, n))
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}

func plural(noun string, n int) string {
	switch {
	case n == 1:
		return noun
	case strings.HasSuffix(noun, "s"):
		return noun + "es"
	}
	return noun + "s"
}
