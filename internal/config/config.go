package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds optional diagnostic overrides loaded from
// ~/.chainer-doctor/config.yaml. Everything works with a zero value;
// the file only exists to point the probes at non-standard install
// locations.
type Config struct {
	LibraryDirs  []string `yaml:"library_dirs"`  // extra shared-library search directories
	SitePackages []string `yaml:"site_packages"` // extra Python site-packages directories
	NoColor      bool     `yaml:"no_color"`      // suppress warning highlighting
}

// DefaultPath returns the default config file path: ~/.chainer-doctor/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chainer-doctor", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
