// Package settings loads the optional per-user settings file that supplies
// defaults for command-line flags.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings mirrors ~/.config/holo-cli/config.yaml. Unset fields keep the
// built-in defaults.
type Settings struct {
	Address    string `yaml:"address,omitempty"`
	ModulesDir string `yaml:"modules-dir,omitempty"`
	History    string `yaml:"history-file,omitempty"`
	LogFile    string `yaml:"log-file,omitempty"`

	Colors *bool `yaml:"colors,omitempty"`
	Pager  *bool `yaml:"pager,omitempty"`
	Debug  bool  `yaml:"debug,omitempty"`

	TLS  TLS  `yaml:"tls,omitempty"`
	Auth Auth `yaml:"auth,omitempty"`
}

// TLS holds the client TLS material for connecting to the daemon.
type TLS struct {
	CA         string `yaml:"ca,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	SkipVerify bool   `yaml:"skip-verify,omitempty"`
}

// Auth holds gNMI credentials.
type Auth struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// ColorsEnabled returns whether colored output is enabled. Defaults to
// true when unset.
func (s *Settings) ColorsEnabled() bool {
	return s.Colors == nil || *s.Colors
}

// PagerEnabled returns whether long output is paged. Defaults to true when
// unset.
func (s *Settings) PagerEnabled() bool {
	return s.Pager == nil || *s.Pager
}

// Dir returns the per-user settings directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "holo-cli")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "holo-cli")
}

// Path returns the default settings file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultHistoryFile returns the history file used when none is set.
func DefaultHistoryFile() string {
	return filepath.Join(Dir(), "history")
}

// Load reads the settings file at path. A missing file yields empty
// settings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the settings to path, creating its directory.
func Save(s *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
