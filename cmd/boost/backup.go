package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/boost/pkg/boost/backup"
	"github.com/jamesainslie/boost/pkg/boost/config"
	"github.com/jamesainslie/boost/pkg/boost/lock"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect saved pre-change values",
	Long: `Reversible tweaks save the value they overwrite the first time they
apply. 'boost restore' puts those values back; without a saved value a
restore falls back to the Windows default.

Backups are stored in a Badger database (backups.path in the config).`,
}

var backupListCmd = &cobra.Command{
	Use:   "list [TWEAK-ID]",
	Short: "List saved values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupList,
}

var backupClearCmd = &cobra.Command{
	Use:   "clear [TWEAK-ID]",
	Short: "Delete saved values",
	Long: `Clear deletes every saved value, or only those of one tweak. The next
apply records the current system values again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupClear,
}

var backupPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the backup database location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.Backups.Path)
		return nil
	},
}

var backupClearYes bool

func init() {
	backupClearCmd.Flags().BoolVarP(&backupClearYes, "yes", "y", false, "do not ask for confirmation")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupClearCmd)
	backupCmd.AddCommand(backupPathCmd)
	rootCmd.AddCommand(backupCmd)
}

// openBackups takes the run lock before opening the store. Badger allows a
// single process per directory, so a running boost would block us anyway.
func openBackups(cfg *config.Config) (*backup.Store, func(), error) {
	lk, err := lock.Acquire(cfg.Lock.Path)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			return nil, nil, fmt.Errorf("a boost run is in progress: %w", err)
		}
		return nil, nil, err
	}
	store, err := backup.Open(cfg.Backups.Path)
	if err != nil {
		_ = lk.Release()
		return nil, nil, fmt.Errorf("opening backup store: %w", err)
	}
	return store, func() {
		_ = store.Close()
		_ = lk.Release()
	}, nil
}

func tweakArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runBackupList(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, done, err := openBackups(cfg)
	if err != nil {
		return err
	}
	defer done()

	recs, err := store.List(tweakArg(args))
	if err != nil {
		return err
	}
	if schema := store.Schema(); schema != nil {
		printVerbose("Backup schema v%d, updated %s", schema.Version, humanize.Time(schema.UpdatedAt))
	}
	if len(recs) == 0 {
		printInfo("No saved values")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TWEAK\tNAME\tVALUE\tSAVED")
	for _, r := range recs {
		value := r.Value
		if len(r.Values) > 0 {
			value = strings.Join(r.Values, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.TweakID, r.Name, truncateValue(value, 48), humanize.Time(r.CreatedAt))
	}
	return tw.Flush()
}

func runBackupClear(_ *cobra.Command, args []string) error {
	if !backupClearYes {
		return errors.New("clearing backups makes restore fall back to Windows defaults; pass --yes to confirm")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, done, err := openBackups(cfg)
	if err != nil {
		return err
	}
	defer done()

	n, err := store.Clear(tweakArg(args))
	if err != nil {
		return err
	}
	printInfo("Deleted %d saved %s", n, plural(n, "value", "values"))
	return nil
}

func truncateValue(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
