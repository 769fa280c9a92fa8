// Package tetherdir encapsulates all path knowledge for the .tether/ project
// directory. It provides a Dir value object with accessors for the config file
// and the local runtime state tree (sessions, logs).
package tetherdir

import (
	"os"
	"path/filepath"
)

// Dir is a value object that resolves paths within a .tether/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .tether/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// LocalDir returns the path to the local (gitignored) runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// SessionsDir returns the path to the saved sessions directory inside local/.
func (d Dir) SessionsDir() string { return filepath.Join(d.root, "local", "sessions") }

// LogPath returns the path to the log file inside local/. The terminal UI owns
// stdout, so a file is the only sink that does not corrupt the display.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "tether.log") }

// GitignorePath returns the path to the .gitignore file inside .tether/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the .tether/ root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}
