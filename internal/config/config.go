// Package config provides the optional TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// File maps the config file. All fields are optional.
type File struct {
	// DB overrides the ledger database path.
	DB string `toml:"db"`
	// Export is the default path for the export subcommand.
	Export string `toml:"export"`
	// DefaultProject seeds the default project on first run, before one is
	// stored with the ledger.
	DefaultProject string `toml:"default_project"`
}

// DefaultPath returns ~/.config/worktimer/config.toml
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "worktimer", "config.toml"), nil
}

// DefaultExportPath returns ~/worktimer-export.txt, used when neither the
// config file nor the command line names an export target.
func DefaultExportPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "worktimer-export.txt"
	}
	return filepath.Join(home, "worktimer-export.txt")
}

// Load reads a TOML config from the given path. A missing file is not an
// error.
func Load(path string) (File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("stat config: %w", err)
	}
	var cfg File
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
