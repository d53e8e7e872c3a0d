// Package workdir provides utilities for managing the on-disk application
// directory.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root returns the base directory for all application files. The path is
// expanded at runtime to resolve to:
//
//	$HOME/Documents/EchoSave
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "EchoSave"), nil
}

// IncidentsPath returns the directory holding archived incidents.
func IncidentsPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "incidents"), nil
}

// ExportsPath returns the directory exported audio files are written to.
func ExportsPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "exports"), nil
}

// Prep ensures that the given directory exists.
func Prep(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}
