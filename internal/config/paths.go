package config

import (
	"os"
	"path/filepath"
)

// Paths contains the standard data locations for the report builder.
type Paths struct {
	Data string // ~/.local/share/sift
}

// GetPaths returns the standard paths, honoring XDG_DATA_HOME.
func GetPaths() *Paths {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return &Paths{
		Data: filepath.Join(dataHome, "sift"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	return os.MkdirAll(p.Data, 0o755)
}

// StoragePath returns the session/message storage directory.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}
