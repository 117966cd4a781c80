// Package installer installs or removes a downloaded application bundle for
// the current user only: the AppImage itself, its icon, a desktop-menu
// entry, a shell alias, and optionally a default-handler registration via
// xdg-mime. Nothing touches system-wide locations.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	ps "github.com/mitchellh/go-ps"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/voshond/mwsync/internal/config"
	"github.com/voshond/mwsync/internal/filesys"
	"github.com/voshond/mwsync/internal/log"
)

// ErrBundleRunning is returned when uninstall is refused because the
// application's process is still alive.
var ErrBundleRunning = errors.New("application is running")

// Paths holds every per-user location the installer manages.
type Paths struct {
	AppImage string // executable bundle, ~/.local/bin
	Icon     string // ~/.local/share/icons
	Desktop  string // launcher entry, $XDG_DATA_HOME/applications
	Zshrc    string // shell rc receiving the alias block
}

// DefaultPaths returns the XDG-flavored per-user locations for a bundle name.
func DefaultPaths(name string) (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("determining home directory: %w", err)
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	return Paths{
		AppImage: filepath.Join(home, ".local", "bin", name+".appimage"),
		Icon:     filepath.Join(dataHome, "icons", name+".png"),
		Desktop:  filepath.Join(dataHome, "applications", name+".desktop"),
		Zshrc:    filepath.Join(home, ".zshrc"),
	}, nil
}

// ProcessLister enumerates running processes. Stubbed in tests.
type ProcessLister func() ([]ps.Process, error)

// CommandRunner executes an external helper such as xdg-mime. Stubbed in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Installer performs the install and uninstall flows for one bundle.
type Installer struct {
	cfg   config.InstallerConfig
	paths Paths
	fs    filesys.FileOps
	hc    *http.Client
	procs ProcessLister
	run   CommandRunner
}

// New creates an Installer wired to the real OS: local disk, default HTTP
// client, live process table and exec-based helper invocation.
func New(cfg config.InstallerConfig, paths Paths) *Installer {
	return NewWithDeps(cfg, paths, filesys.OS(), http.DefaultClient, ps.Processes, runCommand)
}

// NewWithDeps creates an Installer with every collaborator injected.
func NewWithDeps(cfg config.InstallerConfig, paths Paths, fileOps filesys.FileOps, hc *http.Client, procs ProcessLister, run CommandRunner) *Installer {
	return &Installer{
		cfg:   cfg,
		paths: paths,
		fs:    fileOps,
		hc:    hc,
		procs: procs,
		run:   run,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (%s)", name, args, err, out)
	}
	return nil
}

// Install downloads the bundle and its icon, marks the bundle executable and
// wires up the desktop entry, shell alias and MIME registrations. A bundle
// that is already present is left alone.
func (i *Installer) Install(ctx context.Context) error {
	if _, err := i.fs.Stat(i.paths.AppImage); err == nil {
		log.Infof("%s is already installed at %s", i.cfg.DisplayName, i.paths.AppImage)
		return nil
	}

	if err := i.ensureDirs(); err != nil {
		return err
	}

	var appBytes, iconBytes atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return i.download(gctx, i.cfg.DownloadURL, i.paths.AppImage, &appBytes)
	})
	g.Go(func() error {
		return i.download(gctx, i.cfg.IconURL, i.paths.Icon, &iconBytes)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("downloaded bundle (%d bytes) and icon (%d bytes)", appBytes.Load(), iconBytes.Load())

	if err := i.fs.Chmod(i.paths.AppImage, 0o755); err != nil {
		return fmt.Errorf("marking %s executable: %w", i.paths.AppImage, err)
	}

	if err := filesys.AtomicWrite(i.fs, i.paths.Desktop, []byte(i.desktopEntry()), 0o644); err != nil {
		return fmt.Errorf("writing desktop entry: %w", err)
	}
	log.Infof("launcher created at %s", i.paths.Desktop)

	if err := i.addAlias(); err != nil {
		return err
	}

	for _, mime := range i.cfg.MimeTypes {
		if err := i.run(ctx, "xdg-mime", "default", filepath.Base(i.paths.Desktop), mime); err != nil {
			return fmt.Errorf("registering default handler for %s: %w", mime, err)
		}
	}

	log.Infof("%s installed; it will appear in the applications menu", i.cfg.DisplayName)
	return nil
}

// Uninstall removes every installed artifact. It refuses to run while the
// application's process is alive, and keeps going past individual removal
// failures, reporting them all at the end.
func (i *Installer) Uninstall(ctx context.Context) error {
	if pid, running := i.bundleRunning(); running {
		return fmt.Errorf("%w: %s (pid %d); close it first", ErrBundleRunning, i.cfg.ProcessName, pid)
	}

	var errs error
	for _, p := range []string{i.paths.AppImage, i.paths.Icon, i.paths.Desktop} {
		err := i.fs.Remove(p)
		if err == nil {
			log.Infof("deleted %s", p)
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}

	if err := i.removeAlias(); err != nil {
		errs = multierr.Append(errs, err)
	}

	// Best effort: drop now-empty parent directories.
	for _, p := range []string{i.paths.AppImage, i.paths.Icon, i.paths.Desktop} {
		_ = i.fs.Remove(filepath.Dir(p))
	}

	if errs != nil {
		return errs
	}
	log.Infof("%s uninstalled", i.cfg.DisplayName)
	return nil
}

func (i *Installer) ensureDirs() error {
	for _, p := range []string{i.paths.AppImage, i.paths.Icon, i.paths.Desktop} {
		if err := i.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(p), err)
		}
	}
	return nil
}

func (i *Installer) desktopEntry() string {
	return fmt.Sprintf(`[Desktop Entry]
Name=%s
Exec=%s --no-sandbox
Icon=%s
Type=Application
Categories=Development;
`, i.cfg.DisplayName, i.paths.AppImage, i.paths.Icon)
}

func (i *Installer) bundleRunning() (pid int, running bool) {
	if i.cfg.ProcessName == "" {
		return 0, false
	}
	procs, err := i.procs()
	if err != nil {
		log.Warnf("could not list processes: %v", err)
		return 0, false
	}
	for _, p := range procs {
		if p.Executable() == i.cfg.ProcessName {
			return p.Pid(), true
		}
	}
	return 0, false
}
