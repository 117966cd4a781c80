// Command `mwsync` reconciles a game's mod configuration between two OpenMW
// installs: one treated as the source of truth (typically a Windows install
// managed with Mod Organizer), one as the target to update (typically a
// Linux flatpak install).
//
// Usage:
//
//	mwsync sync     - Merge the source install's mod setup into the target config
//	mwsync status   - Show the directives currently in the target config
//	mwsync version  - Show version information
//
// A run backs up the target config next to itself (openmw.cfg.backup) before
// touching it, keeps every non-mod line of the target, and replaces the
// data= and content= directives with the reconciled set. Source mod paths
// are rewritten through the translation rules in ~/.mwsync/config.yaml;
// paths no rule recognizes are dropped and reported, never guessed.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/voshond/mwsync/internal/buildinfo"
	"github.com/voshond/mwsync/internal/config"
	"github.com/voshond/mwsync/internal/reconcile"
)

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	root := &cobra.Command{
		Use:   "mwsync",
		Short: "OpenMW mod-configuration synchronizer",
		Long: `mwsync copies the mod setup (data= search paths and content= plugins) from
one OpenMW install's config into another's, translating filesystem paths
between the two environments' layouts.`,
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- sync command ----
	var flagSource, flagTarget, flagBaseData string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge the source install's mod setup into the target config",
		Long: `Merge the source config's data= and content= directives into the target
config. The target's own mod directives are replaced wholesale; everything
else in it (fallback archives, settings, comments) is kept untouched. The
target's prior content is saved to <target>.backup first.`,
		Example: "mwsync sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			if flagSource != "" {
				cfg.Sync.Source = flagSource
			}
			if flagTarget != "" {
				cfg.Sync.Target = flagTarget
			}
			if flagBaseData != "" {
				cfg.Sync.BaseData = flagBaseData
			}
			if err := cfg.Sync.Validate(); err != nil {
				return err
			}
			rules, err := cfg.Sync.Ruleset()
			if err != nil {
				return err
			}

			report, err := reconcile.Reconcile(reconcile.Input{
				SourcePath: cfg.Sync.Source,
				TargetPath: cfg.Sync.Target,
				BaseData:   cfg.Sync.BaseData,
				Rules:      rules,
			})
			if err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Printf("✓ Configuration synchronized ")
			color.New(color.FgHiWhite).Printf("(run %s)\n", report.RunID)
			fmt.Printf("  search paths: %d\n", report.SearchPaths)
			fmt.Printf("  content entries: %d\n", report.ContentEntries)
			fmt.Printf("  carried-over lines: %d\n", report.CarryOver)
			fmt.Printf("  backup: %s\n", report.BackupPath)

			if len(report.Dropped) > 0 {
				color.New(color.FgYellow, color.Bold).Printf("! %d source search path(s) not carried over:\n", len(report.Dropped))
				for _, d := range report.Dropped {
					color.New(color.FgYellow).Printf("  [%s] %s\n", d.Reason, d.Line)
				}
			}
			return nil
		},
	}
	syncCmd.Flags().StringVar(&flagSource, "source", "", "override sync.source from the profile")
	syncCmd.Flags().StringVar(&flagTarget, "target", "", "override sync.target from the profile")
	syncCmd.Flags().StringVar(&flagBaseData, "base-data", "", "override sync.base_data from the profile")

	// ---- status command ----
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the mod directives currently in the target config",
		Long: `List the data= and content= directives currently present in the target
config, in file order. Useful for checking what a sync produced.`,
		Example: "mwsync status",
		RunE: func(_ *cobra.Command, _ []string) error {
			if strings.TrimSpace(cfg.Sync.Target) == "" {
				return fmt.Errorf("sync.target must be set")
			}
			raw, err := os.ReadFile(cfg.Sync.Target)
			if err != nil {
				return fmt.Errorf("reading %s: %w", cfg.Sync.Target, err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Kind", "Value"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			table.SetColumnColor(
				tablewriter.Colors{tablewriter.FgGreenColor},
				tablewriter.Colors{tablewriter.FgHiWhiteColor},
			)

			rows := 0
			for _, line := range strings.Split(string(raw), "\n") {
				t := strings.TrimSpace(line)
				switch {
				case strings.HasPrefix(t, reconcile.DefaultSearchPathKey+"="):
					table.Append([]string{"data", strings.Trim(t[len(reconcile.DefaultSearchPathKey)+1:], `"`)})
					rows++
				case strings.HasPrefix(t, reconcile.DefaultContentKey+"="):
					table.Append([]string{"content", t[len(reconcile.DefaultContentKey)+1:]})
					rows++
				}
			}
			if rows == 0 {
				color.Yellow("No mod directives found in %s.", cfg.Sync.Target)
				return nil
			}

			color.New(color.Bold).Printf("MOD DIRECTIVES IN %s:\n", cfg.Sync.Target)
			table.Render()
			return nil
		},
	}

	root.AddCommand(syncCmd, statusCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
