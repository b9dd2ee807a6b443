package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/boost/pkg/boost/output"
	"github.com/jamesainslie/boost/pkg/boost/plan"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tweak",
	Long: `List shows the tweak catalog in listing order with its category and
flags. [x] marks the tweaks the current selection enables.

Flags: r = reversible, p = parallel-safe, x = runs an external tool.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var planCmd = &cobra.Command{
	Use:   "plan [apply|restore]",
	Short: "Show the execution plan for the selection",
	Long: `Plan prints the phases a run would execute, in order. Tweaks marked
∥ run in parallel within their phase; tweaks marked → run one at a time
after them. Same as 'boost apply --dry-run'.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"apply", "restore"},
	RunE:      runPlan,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(planCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg, nil)
	if err != nil {
		return err
	}
	sel, warnings, err := buildSelection(cat, cfg)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		printInfo("warning: %s", w)
	}
	if err := output.WriteCatalog(os.Stdout, cat, sel); err != nil {
		return err
	}
	printVerbose("%d tweaks, %d selected", cat.Len(), sel.Count())
	return nil
}

func runPlan(_ *cobra.Command, args []string) error {
	mode := plan.Apply
	if len(args) > 0 {
		m, err := plan.ParseMode(args[0])
		if err != nil {
			return err
		}
		mode = m
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runDryRun(cfg, mode)
}
