// Package config loads checker settings from a klc.toml file. Command
// line flags override anything set here.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultFilename is looked up in the working directory when no
// explicit --config path is given.
const DefaultFilename = "klc.toml"

// Config mirrors the klc.toml layout.
type Config struct {
	// Rules restricts checking to the listed rule codes. Empty means
	// all rules.
	Rules []string `toml:"rules"`

	// Exclude removes rule codes from the run. Exclusion wins over
	// selection.
	Exclude []string `toml:"exclude"`

	// Footprints points at the root of the footprint libraries for
	// cross-reference checks.
	Footprints string `toml:"footprints"`

	// Metrics and Junit name report output files.
	Metrics string `toml:"metrics"`
	Junit   string `toml:"junit"`

	// Workers caps the batch parallelism. Zero means one worker per
	// CPU.
	Workers int `toml:"workers"`

	NoColor bool `toml:"nocolor"`
}

// Load reads and decodes the given config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadPath loads the named file, or the default file when path is
// empty. A missing default file is not an error; a missing named file
// is.
func LoadPath(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := Load(filepath.Join(".", DefaultFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}
