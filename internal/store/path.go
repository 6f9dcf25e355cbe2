// Package store resolves where factsync keeps its local data.
package store

import (
	"os"
	"path/filepath"
)

// DataRootEnv overrides the data root directory.
const DataRootEnv = "FACTSYNC_HOME"

// DefaultDataRoot returns the root directory for local factsync data.
// Priority: FACTSYNC_HOME > ~/.factsync > ./.factsync when no home dir is available.
func DefaultDataRoot() string {
	if root := os.Getenv(DataRootEnv); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".factsync")
	}
	return filepath.Join(home, ".factsync")
}

// EnvironmentDBPath returns the database file for an environment.
// Example: EnvironmentDBPath("dev") -> ~/.factsync/dev/facts.db
func EnvironmentDBPath(environment string) string {
	return filepath.Join(DefaultDataRoot(), environment, "facts.db")
}

// DefaultConfigPath returns the location of the optional YAML config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataRoot(), "config.yaml")
}
