package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InstallDir returns the directory of the running executable with symlinks resolved.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

// ResolveInstallPath makes p absolute, interpreting relative paths against the
// install directory rather than the working directory.
func ResolveInstallPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	dir, err := InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}
