package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jamesainslie/boost/pkg/boost/config"
	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/output"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/platform"
	"github.com/jamesainslie/boost/pkg/boost/profile"
	"github.com/jamesainslie/boost/pkg/boost/sysinfo"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
	"github.com/jamesainslie/boost/pkg/boost/tweaks"
)

// buildCatalog builds the shipped catalog tuned by cfg. backups may be nil
// for commands that never run actions.
func buildCatalog(cfg *config.Config, backups tweaks.Backups) (*tweak.Catalog, error) {
	opts := tweaks.DefaultOptions()
	if len(cfg.Tweaks.Processes) > 0 {
		opts.Processes = cfg.Tweaks.Processes
	}
	if len(cfg.Tweaks.Services) > 0 {
		opts.Services = cfg.Tweaks.Services
	}
	if cfg.Tweaks.ServiceWait > 0 {
		opts.ServiceWait = cfg.Tweaks.ServiceWait
	}
	if cfg.Tweaks.TempFileLimit > 0 {
		opts.TempFileLimit = cfg.Tweaks.TempFileLimit
	}
	opts.AvailableRAM = sysinfo.Available

	cat, err := tweaks.Default(platform.Native(), backups, opts)
	if err != nil {
		return nil, fmt.Errorf("building tweak catalog: %w", err)
	}
	return cat, nil
}

// schedulerOptions converts the config for engine.New.
func schedulerOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Workers:         cfg.Workers,
		ExternalTimeout: cfg.Timeouts.External,
	}
}

// buildSelection derives the selection from the CLI flags. The base is the
// catalog defaults, every tweak with --all, or the named profile; --only and
// --skip then narrow it. The returned warnings name profile entries the
// catalog does not know.
func buildSelection(cat *tweak.Catalog, cfg *config.Config) (plan.Selection, []string, error) {
	base := plan.Defaults(cat)
	var warnings []string

	name := profileName()
	switch {
	case viper.GetBool("all"):
		base = plan.All(cat)
	case name != "":
		store, err := profile.NewStore(cfg.Profiles.Path)
		if err != nil {
			return nil, nil, err
		}
		p, err := store.Get(name)
		if err != nil {
			return nil, nil, fmt.Errorf("loading profile %q: %w", name, err)
		}
		var unknown []string
		base, unknown = p.Selection(cat)
		for _, id := range unknown {
			warnings = append(warnings, fmt.Sprintf("profile %s names unknown tweak %s", name, id))
		}
	}

	sel, err := plan.Narrow(cat, base, stringList("only"), stringList("skip"))
	if err != nil {
		return nil, nil, err
	}
	return sel, warnings, nil
}

// profileName returns the profile named by --profile or the config file.
// It is empty with --all, which ignores profiles.
func profileName() string {
	if viper.GetBool("all") {
		return ""
	}
	return viper.GetString("profile")
}

// stringList reads a list setting that may come from a repeated flag or a
// comma-separated environment variable.
func stringList(key string) []string {
	var out []string
	for _, v := range viper.GetStringSlice(key) {
		out = append(out, parseCommaSeparated(v)...)
	}
	return out
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// outputFormat returns the report format, defaulting to pretty.
func outputFormat() string {
	if f := viper.GetString("output"); f != "" {
		return f
	}
	return config.DefaultOutput
}

// styled reports whether human-facing output should use colors.
func styled() bool {
	return outputFormat() == "pretty"
}

// interactive reports whether to open the TUI. Any explicit non-pretty
// output format implies a non-interactive run.
func interactive() bool {
	return !viper.GetBool("no_interactive") && outputFormat() == "pretty"
}

// newFormatter resolves the --output and --template flags.
func newFormatter() (output.Formatter, error) {
	name := outputFormat()
	if name == "template" {
		if tmpl := viper.GetString("template"); tmpl != "" {
			return output.NewTemplateFormatter(tmpl), nil
		}
	}
	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return formatter, nil
}

// writeReport formats r to stdout.
func writeReport(r *output.Report) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}
