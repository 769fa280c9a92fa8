package tetherdir

import (
	"errors"
	"fmt"
	"os"
)

const gitignoreContent = "local/\n"

// EnsureStructure creates the local/ tree and the .gitignore file if they are
// missing. It is safe to call multiple times (idempotent). It does NOT create
// the .tether/ root itself; the caller decides whether to bootstrap from
// scratch or only set up an existing directory.
func EnsureStructure(d Dir) error {
	if err := os.MkdirAll(d.SessionsDir(), 0o750); err != nil {
		return fmt.Errorf("tetherdir: create sessions dir: %w", err)
	}

	if err := ensureGitignore(d); err != nil {
		return fmt.Errorf("tetherdir: gitignore: %w", err)
	}

	return nil
}

// Bootstrap creates the .tether/ root, the standard structure, and the config
// file with the given content. An existing config file is left untouched.
func Bootstrap(d Dir, configYAML []byte) error {
	if err := os.MkdirAll(d.Root(), 0o750); err != nil {
		return fmt.Errorf("tetherdir: create root: %w", err)
	}

	if err := EnsureStructure(d); err != nil {
		return err
	}

	if _, err := os.Stat(d.ConfigPath()); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tetherdir: stat config: %w", err)
	}

	if err := os.WriteFile(d.ConfigPath(), configYAML, 0o600); err != nil {
		return fmt.Errorf("tetherdir: write config: %w", err)
	}

	return nil
}

// ensureGitignore creates the .gitignore file if it does not exist.
func ensureGitignore(d Dir) error {
	path := d.GitignorePath()

	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	return os.WriteFile(path, []byte(gitignoreContent), 0o600)
}
