package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePaths makes file settings usable from any working directory: a
// leading "~" expands to the user's home and relative paths are taken
// relative to baseDir (normally the directory of the config file).
func (cfg Config) ResolvePaths(baseDir string) (Config, error) {
	p, err := resolvePath(cfg.Training.RowsFile, baseDir)
	if err != nil {
		return cfg, fmt.Errorf("training.rows_file: %w", err)
	}
	cfg.Training.RowsFile = p
	return cfg, nil
}

func resolvePath(path, baseDir string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")), nil
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path, nil
	}
	return filepath.Join(baseDir, path), nil
}
