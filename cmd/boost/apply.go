package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/boost/cmd/boost/tui"
	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/config"
	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/lock"
	"github.com/jamesainslie/boost/pkg/boost/logging"
	"github.com/jamesainslie/boost/pkg/boost/output"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/profile"
	"github.com/jamesainslie/boost/pkg/boost/sysinfo"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the selected tweaks",
	Long: `Apply runs the selected tweaks phase by phase: processes, memory,
power, gaming, then system settings. Reversible tweaks record what they
change so 'boost restore' can put it back.

Requires an elevated (administrator) shell. Running 'boost' with no
subcommand is the same as 'boost apply'.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Undo the reversible tweaks",
	Long: `Restore runs the reverse action of every selected reversible tweak:
services are started again, app policies are reset and the previous
power plan is reactivated. One-way tweaks are left out.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runApply(_ *cobra.Command, _ []string) error {
	return runBatch(plan.Apply)
}

func runRestore(_ *cobra.Command, _ []string) error {
	return runBatch(plan.Restore)
}

// runBatch compiles and executes a plan in mode, then prints the report.
func runBatch(mode plan.Mode) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if viper.GetBool("dry_run") {
		return runDryRun(cfg, mode)
	}

	lk, err := lock.Acquire(cfg.Lock.Path)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			return fmt.Errorf("another boost run is in progress (%s): %w", cfg.Lock.Path, err)
		}
		return err
	}
	defer func() {
		if err := lk.Release(); err != nil {
			logging.Get("cli").Warn("releasing run lock", "error", err)
		}
	}()

	store, err := backup.Open(cfg.Backups.Path)
	if err != nil {
		return fmt.Errorf("opening backup store: %w", err)
	}
	defer store.Close()

	cat, err := buildCatalog(cfg, store)
	if err != nil {
		return err
	}
	sel, warnings, err := buildSelection(cat, cfg)
	if err != nil {
		return err
	}
	compiler := plan.NewCompiler(cat)
	sched := engine.New(platform.Gate{}, schedulerOptions(cfg))

	var run *engine.Run
	var ramDelta string

	if interactive() {
		if err := initTUILogging(); err != nil {
			return fmt.Errorf("failed to initialize TUI logging: %w", err)
		}
		opts := tui.Options{
			Catalog:      cat,
			Compiler:     compiler,
			Scheduler:    sched,
			Mode:         mode,
			Selection:    sel,
			Profile:      profileName(),
			AvailableRAM: sysinfo.Available,
		}
		if opts.Profile != "" {
			if opts.Profiles, err = profile.NewStore(cfg.Profiles.Path); err != nil {
				return err
			}
		}
		res, err := tui.Run(opts)
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		if res.Run == nil {
			printInfo("Nothing was run")
			return nil
		}
		run, ramDelta = res.Run, res.RAMDelta
	} else {
		p, err := compiler.Compile(sel, mode)
		if err != nil {
			return err
		}
		run, ramDelta = execute(sched, p)
	}

	report := output.NewReport(run)
	report.Warnings = warnings
	report.RAMDelta = ramDelta
	if err := writeReport(report); err != nil {
		return err
	}
	return runError(run)
}

// execute runs p with line-per-tweak progress on stderr. Interrupts are
// held off until the run completes so every planned tweak gets an outcome
// and the lock is released.
func execute(sched *engine.Scheduler, p *plan.Plan) (*engine.Run, string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		if _, ok := <-sigChan; ok {
			printInfo("\nInterrupt received, waiting for running tweaks to finish...")
		}
	}()

	var sink engine.ProgressSink = engine.Discard
	if !getQuiet() {
		sink = output.NewPrinter(os.Stderr, p.Total(), styled())
	}

	before, berr := sysinfo.Available()
	run := sched.Execute(context.Background(), p, sink)
	if berr != nil {
		return run, ""
	}
	after, err := sysinfo.Available()
	if err != nil {
		return run, ""
	}
	return run, sysinfo.Delta(before, after)
}

// runDryRun prints the plan without taking the lock or touching backups.
func runDryRun(cfg *config.Config, mode plan.Mode) error {
	cat, err := buildCatalog(cfg, nil)
	if err != nil {
		return err
	}
	sel, warnings, err := buildSelection(cat, cfg)
	if err != nil {
		return err
	}
	p, err := plan.NewCompiler(cat).Compile(sel, mode)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		printInfo("warning: %s", w)
	}
	return output.WritePlan(os.Stdout, p, styled())
}

// runError maps a finished run to the command's error.
func runError(run *engine.Run) error {
	if run.State == engine.Rejected {
		return &codedError{code: exitRejected, err: run.Err()}
	}
	if viper.GetBool("strict") {
		if n := run.Summary().Failed; n > 0 {
			return &codedError{code: exitFailed, err: fmt.Errorf("%d of %d tweaks failed", n, len(run.Outcomes))}
		}
	}
	return nil
}
