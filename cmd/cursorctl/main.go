// Command `cursorctl` installs or removes the Cursor AI IDE for the current
// user only. Nothing is written outside the user's home:
//
//	AppImage  -> ~/.local/bin/cursor.appimage
//	Icon      -> ~/.local/share/icons/cursor.png
//	Launcher  -> $XDG_DATA_HOME/applications/cursor.desktop
//	Alias     -> appended to ~/.zshrc
//
// Usage:
//
//	cursorctl install    - Download and install the bundle
//	cursorctl uninstall  - Remove every installed artifact (with confirmation)
//	cursorctl version    - Show version information
//
// The download endpoint and artifact names come from the installer section
// of ~/.mwsync/config.yaml, so the same binary can manage other AppImage
// bundles.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/voshond/mwsync/internal/buildinfo"
	"github.com/voshond/mwsync/internal/config"
	"github.com/voshond/mwsync/internal/installer"
)

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	paths, err := installer.DefaultPaths(cfg.Installer.Name)
	if err != nil {
		log.Fatalf("path error: %v", err)
	}
	inst := installer.New(cfg.Installer, paths)

	root := &cobra.Command{
		Use:   "cursorctl",
		Short: "Per-user installer for the Cursor AI IDE",
		Long: `cursorctl installs or removes a downloaded AppImage bundle for the current
user only: the bundle, its icon, a desktop-menu entry and a shell alias.`,
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

	// ---- install command ----
	installCmd := &cobra.Command{
		Use:     "install",
		Short:   "Download and install the bundle",
		Example: "cursorctl install",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := inst.Install(ctx); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ Installed ")
			color.New(color.FgHiGreen, color.Bold).Printf("%s\n", cfg.Installer.DisplayName)
			return nil
		},
	}

	// ---- uninstall command ----
	var yes bool
	uninstallCmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Remove every installed artifact",
		Example: "cursorctl uninstall",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !yes {
				color.New(color.FgHiRed, color.Bold).Print("WARNING: ")
				color.New(color.FgYellow).Printf("You are about to remove ")
				color.New(color.FgHiYellow, color.Bold).Printf("%s\n", cfg.Installer.DisplayName)
				color.New(color.FgHiWhite).Print("Are you sure you want to proceed? (y/yes/n/no): ")

				var response string
				if _, err := fmt.Scanln(&response); err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				response = strings.ToLower(response)
				if response != "y" && response != "yes" {
					return fmt.Errorf("operation aborted")
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := inst.Uninstall(ctx); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ Removed ")
			color.New(color.FgHiGreen, color.Bold).Printf("%s\n", cfg.Installer.DisplayName)
			return nil
		},
	}
	uninstallCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	root.AddCommand(installCmd, uninstallCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
