// Package config provides configuration loading and validation for the
// mwsync tools. It handles reading the profile from a YAML file, providing
// defaults, and ensuring all required settings are properly set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/voshond/mwsync/internal/filesys"
	"github.com/voshond/mwsync/internal/reconcile"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the default profile path, relative to $HOME.
	DefaultConfigPath = ".mwsync/config.yaml"
	// DefaultTarget is the flatpak OpenMW config location.
	DefaultTarget = "~/.var/app/org.openmw.OpenMW/config/openmw/openmw.cfg"
	// DefaultDownloadURL is the Cursor release endpoint for Linux x64.
	DefaultDownloadURL = "https://www.cursor.com/api/download?platform=linux-x64&releaseTrack=stable"
	// DefaultIconURL is where the installer fetches the application icon.
	DefaultIconURL = "https://us1.discourse-cdn.com/flex020/uploads/cursor1/original/2X/a/a4f78589d63edd61a2843306f8e11bad9590f0ca.png"
)

// Config holds the full profile for both tools.
type Config struct {
	Sync      SyncConfig      `yaml:"sync"`
	Installer InstallerConfig `yaml:"installer"`
}

// SyncConfig configures the config reconciler. The original tool compiled
// its environment's paths in; they live here instead so the same binary
// serves any pair of installs.
type SyncConfig struct {
	Source   string       `yaml:"source"`    // source-of-truth openmw.cfg (read-only)
	Target   string       `yaml:"target"`    // openmw.cfg rewritten by a run
	BaseData string       `yaml:"base_data"` // destination's primary game-data directory
	Rules    []RuleConfig `yaml:"rules"`     // ordered, first match wins
	Skip     []string     `yaml:"skip"`      // substring patterns dropped outright
}

// RuleConfig is the textual form of one path-translation rule.
type RuleConfig struct {
	Pattern string `yaml:"pattern"` // regexp with one capture group: the mod name
	Target  string `yaml:"target"`  // destination template containing {name}
}

// InstallerConfig configures the per-user application installer.
type InstallerConfig struct {
	Name        string   `yaml:"name"`         // bundle name, used for file and alias names
	DisplayName string   `yaml:"display_name"` // desktop-menu entry name
	DownloadURL string   `yaml:"download_url"`
	IconURL     string   `yaml:"icon_url"`
	ProcessName string   `yaml:"process_name"` // running-process guard for uninstall
	MimeTypes   []string `yaml:"mime_types"`   // registered as default handler via xdg-mime
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

var _ Provider = (*FSProvider)(nil)

// New creates a configuration provider using the default profile path under
// the user's home directory. If the home directory cannot be determined, it
// falls back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a provider with a specific profile path.
// It allows specifying both the filesystem implementation and the path to use.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns the configuration used when no profile file exists. The
// sync section has no usable default for the source document, so `mwsync
// sync` requires a profile; the installer defaults are complete.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Target: DefaultTarget,
			Skip: []string{
				"steamapps/common/Morrowind/Data Files",
				"ModOrganizer/Morrowind/overwrite",
			},
		},
		Installer: InstallerConfig{
			Name:        "cursor",
			DisplayName: "Cursor AI IDE",
			DownloadURL: DefaultDownloadURL,
			IconURL:     DefaultIconURL,
			ProcessName: "cursor.appimage",
		},
	}
}

// Load loads the configuration from the provider's path. A missing file
// yields the defaults. Values from the file are overlaid on the defaults,
// then validated.
func (p *FSProvider) Load() (*Config, error) {
	_ = p.ensureConfigDir()

	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			cfg = Default()
			cfg.expandHome()
			return cfg, nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.expandHome()

	return cfg, nil
}

// Validate checks the configuration. The sync section is only validated when
// the profile actually configures a source document, so installer-only
// profiles stay usable.
func (c *Config) Validate() error {
	if c.Sync.Source != "" {
		if err := c.Sync.Validate(); err != nil {
			return err
		}
	}
	return c.Installer.Validate()
}

// Validate checks that a sync run can be built from the section.
func (s *SyncConfig) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return errors.New("sync.source must be set")
	}
	if strings.TrimSpace(s.Target) == "" {
		return errors.New("sync.target must be set")
	}
	if strings.TrimSpace(s.BaseData) == "" {
		return errors.New("sync.base_data must be set")
	}
	if _, err := s.Ruleset(); err != nil {
		return err
	}
	return nil
}

// Validate checks the installer section.
func (i *InstallerConfig) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("installer.name must be set")
	}
	if strings.TrimSpace(i.DownloadURL) == "" {
		return errors.New("installer.download_url must be set")
	}
	return nil
}

// Ruleset compiles the section's translation rules and exclusion patterns.
func (s *SyncConfig) Ruleset() (reconcile.Ruleset, error) {
	rs := reconcile.Ruleset{Skip: s.Skip}
	for _, rc := range s.Rules {
		r, err := reconcile.NewRule(rc.Pattern, expandHomePath(rc.Target))
		if err != nil {
			return reconcile.Ruleset{}, err
		}
		rs.Rules = append(rs.Rules, r)
	}
	return rs, nil
}

func (p *FSProvider) ensureConfigDir() error {
	dir := filepath.Dir(p.path)
	if _, err := p.fs.Stat(dir); os.IsNotExist(err) {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	// Decode over the defaults so a partial profile keeps the rest.
	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return cfg, nil
}

// expandHome resolves a leading "~/" in the path-valued fields.
func (c *Config) expandHome() {
	c.Sync.Source = expandHomePath(c.Sync.Source)
	c.Sync.Target = expandHomePath(c.Sync.Target)
	c.Sync.BaseData = expandHomePath(c.Sync.BaseData)
}

func expandHomePath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
