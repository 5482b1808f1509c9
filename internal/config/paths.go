package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".journeyd"

// Paths holds resolved filesystem paths for journeyd data.
type Paths struct {
	Base     string // ~/.journeyd
	Config   string // ~/.journeyd/config.yaml
	Database string // ~/.journeyd/journeyd.db
	Logs     string // ~/.journeyd/logs
}

// ResolvePaths computes the standard paths from the home directory.
// JOURNEYD_HOME overrides the base directory when set.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("JOURNEYD_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Database: filepath.Join(base, "journeyd.db"),
		Logs:     filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates the standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath returns the configured database path, falling back to the
// standard location.
func (p Paths) DatabasePath(cfg Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return p.Database
}
