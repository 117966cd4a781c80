package config_test

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/voshond/mwsync/internal/config"
)

type ConfigTestSuite struct {
	suite.Suite
	fs       mockFS
	provider config.Provider
}

type mockFS struct {
	files map[string]string
}

func (m mockFS) Stat(path string) (os.FileInfo, error) {
	if _, ok := m.files[path]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

func (m mockFS) MkdirAll(_ string, _ os.FileMode) error {
	return nil
}

func (m mockFS) Open(path string) (*os.File, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	tmp, err := os.CreateTemp("", "mock-*") // caller cleans up via TempDir semantics
	if err != nil {
		return nil, err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

func (m mockFS) WriteFile(path string, content []byte, _ os.FileMode) error {
	m.files[path] = string(content)
	return nil
}

func (s *ConfigTestSuite) SetupTest() {
	s.fs = mockFS{
		files: make(map[string]string),
	}
	s.provider = config.NewWithPath(s.fs, "test/config.yaml")
}

func (s *ConfigTestSuite) TestLoadDefaultWhenNoFile() {
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	s.Empty(cfg.Sync.Source)
	s.Contains(cfg.Sync.Target, ".var/app/org.openmw.OpenMW")
	s.NotContains(cfg.Sync.Target, "~") // home expanded
	s.Contains(cfg.Sync.Skip, "steamapps/common/Morrowind/Data Files")
	s.Equal("cursor", cfg.Installer.Name)
	s.Equal(config.DefaultDownloadURL, cfg.Installer.DownloadURL)
}

func (s *ConfigTestSuite) TestLoadValidConfig() {
	s.fs.files["test/config.yaml"] = `
sync:
  source: /mnt/win/openmw.cfg
  target: /home/martin/.config/openmw/openmw.cfg
  base_data: "/mnt/data02/SteamLibrary/steamapps/common/Morrowind/Data Files"
  rules:
    - pattern: 'ModOrganizer/Morrowind/mods/([^"]+)'
      target: "/home/martin/Documents/Morrowind/mods/{name}"
installer:
  name: myapp
  display_name: My App
  download_url: https://example.com/download
`
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	s.Equal("/mnt/win/openmw.cfg", cfg.Sync.Source)
	s.Equal("/home/martin/.config/openmw/openmw.cfg", cfg.Sync.Target)
	s.Equal("myapp", cfg.Installer.Name)
	s.Equal("My App", cfg.Installer.DisplayName)

	rs, err := cfg.Sync.Ruleset()
	s.Require().NoError(err)
	s.Len(rs.Rules, 1)
	out, ok := rs.Translate("C:/Games/ModOrganizer/Morrowind/mods/SomeMod")
	s.True(ok)
	s.Equal("/home/martin/Documents/Morrowind/mods/SomeMod", out)
}

func (s *ConfigTestSuite) TestPartialProfileKeepsDefaults() {
	// A sync-only profile must not lose the installer defaults.
	s.fs.files["test/config.yaml"] = `
sync:
  source: /mnt/win/openmw.cfg
  target: /home/martin/.config/openmw/openmw.cfg
  base_data: /base
`
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	s.Equal("/mnt/win/openmw.cfg", cfg.Sync.Source)
	s.Equal("cursor", cfg.Installer.Name)
	s.Equal(config.DefaultDownloadURL, cfg.Installer.DownloadURL)
}

func (s *ConfigTestSuite) TestHomeExpansion() {
	s.fs.files["test/config.yaml"] = `
sync:
  source: "~/win/openmw.cfg"
  target: "~/.config/openmw/openmw.cfg"
  base_data: /base
`
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	home, herr := os.UserHomeDir()
	s.Require().NoError(herr)
	s.True(strings.HasPrefix(cfg.Sync.Source, home), "source %q not under home", cfg.Sync.Source)
	s.True(strings.HasPrefix(cfg.Sync.Target, home), "target %q not under home", cfg.Sync.Target)
}

func (s *ConfigTestSuite) TestValidation() {
	testCases := []struct {
		name        string
		sync        config.SyncConfig
		expectedErr string
	}{
		{
			name: "valid section",
			sync: config.SyncConfig{
				Source:   "/src.cfg",
				Target:   "/tgt.cfg",
				BaseData: "/base",
			},
		},
		{
			name: "missing source",
			sync: config.SyncConfig{
				Target:   "/tgt.cfg",
				BaseData: "/base",
			},
			expectedErr: "sync.source must be set",
		},
		{
			name: "missing target",
			sync: config.SyncConfig{
				Source:   "/src.cfg",
				BaseData: "/base",
			},
			expectedErr: "sync.target must be set",
		},
		{
			name: "missing base data",
			sync: config.SyncConfig{
				Source: "/src.cfg",
				Target: "/tgt.cfg",
			},
			expectedErr: "sync.base_data must be set",
		},
		{
			name: "rule pattern does not compile",
			sync: config.SyncConfig{
				Source:   "/src.cfg",
				Target:   "/tgt.cfg",
				BaseData: "/base",
				Rules: []config.RuleConfig{
					{Pattern: `mods/([^"]+`, Target: "/mods/{name}"},
				},
			},
			expectedErr: "compiling rule pattern",
		},
		{
			name: "rule target without placeholder",
			sync: config.SyncConfig{
				Source:   "/src.cfg",
				Target:   "/tgt.cfg",
				BaseData: "/base",
				Rules: []config.RuleConfig{
					{Pattern: `mods/([^"]+)`, Target: "/mods"},
				},
			},
			expectedErr: "must contain {name}",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := tc.sync.Validate()
			if tc.expectedErr == "" {
				s.NoError(err)
			} else {
				s.Error(err)
				s.Contains(err.Error(), tc.expectedErr)
			}
		})
	}
}

func (s *ConfigTestSuite) TestInstallerValidation() {
	i := config.InstallerConfig{}
	s.ErrorContains(i.Validate(), "installer.name must be set")

	i.Name = "cursor"
	s.ErrorContains(i.Validate(), "installer.download_url must be set")

	i.DownloadURL = "https://example.com"
	s.NoError(i.Validate())
}

func (s *ConfigTestSuite) TestInvalidSyncSectionRejectedOnLoad() {
	s.fs.files["test/config.yaml"] = `
sync:
  source: /mnt/win/openmw.cfg
`
	_, err := s.provider.Load()

	s.Require().ErrorIs(err, config.ErrInvalidConfig)
	s.Contains(err.Error(), "sync.base_data must be set")
}

func (s *ConfigTestSuite) TestLoadInvalidYAML() {
	s.fs.files["test/config.yaml"] = `
sync:
  source: [invalid: yaml]
`
	_, err := s.provider.Load()

	s.Error(err)
	s.Contains(err.Error(), "decoding config file")
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
