package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/boost/pkg/boost/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved selections",
	Long: `Profiles are named tweak selections stored as YAML files in the
profiles directory (profiles.path in the config).

Use a profile with 'boost --profile NAME'. While the checklist is open,
edits to the profile file are picked up automatically.`,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save the current selection as a profile",
	Long: `Save stores the selection built from the selection flags under NAME,
replacing any profile with that name.

Examples:
  boost profile save gaming --only 'gaming.*,power.*'
  boost profile save quiet --all --skip 'services.*'`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSave,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the tweaks a profile enables",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileDescription string

func init() {
	profileSaveCmd.Flags().StringVar(&profileDescription, "description", "", "one-line description")

	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func profileStore() (*profile.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return profile.NewStore(cfg.Profiles.Path)
}

func runProfileSave(_ *cobra.Command, args []string) error {
	name := args[0]
	if err := profile.ValidateName(name); err != nil {
		return err
	}

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

	store, err := profile.NewStore(cfg.Profiles.Path)
	if err != nil {
		return err
	}
	p := profile.FromSelection(name, profileDescription, sel)
	if err := store.Save(p); err != nil {
		return fmt.Errorf("saving profile %q: %w", name, err)
	}
	printInfo("Saved profile %s with %d tweaks", name, len(p.Enabled))
	return nil
}

func runProfileList(_ *cobra.Command, _ []string) error {
	store, err := profileStore()
	if err != nil {
		return err
	}
	profiles, err := store.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		printInfo("No profiles in %s", store.Dir())
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTWEAKS\tUPDATED\tDESCRIPTION")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, len(p.Enabled), humanize.Time(p.Updated), p.Description)
	}
	return tw.Flush()
}

func runProfileShow(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := profile.NewStore(cfg.Profiles.Path)
	if err != nil {
		return err
	}
	p, err := store.Get(args[0])
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg, nil)
	if err != nil {
		return err
	}
	_, unknown := p.Selection(cat)

	fmt.Printf("Name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("Description: %s\n", p.Description)
	}
	fmt.Printf("Created:     %s\n", p.Created.Format("2006-01-02 15:04"))
	fmt.Printf("Updated:     %s (%s)\n", p.Updated.Format("2006-01-02 15:04"), humanize.Time(p.Updated))
	fmt.Printf("Tweaks:      %d\n", len(p.Enabled))
	for _, id := range p.Enabled {
		marker := " "
		if contains(unknown, id) {
			marker = "?"
		}
		fmt.Printf("  %s %s\n", marker, id)
	}
	if len(unknown) > 0 {
		fmt.Printf("\n? not in the catalog: %s\n", strings.Join(unknown, ", "))
	}
	return nil
}

func runProfileDelete(_ *cobra.Command, args []string) error {
	store, err := profileStore()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("profile %q does not exist", args[0])
		}
		return err
	}
	printInfo("Deleted profile %s", args[0])
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
