package infra

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDataDir is where the local store keeps windows.db and its key.
const DefaultDataDir = "~/.opwindow"

// PathResolver expands user-relative paths for the local store.
type PathResolver struct {
	homeDir string
}

// NewPathResolver creates a resolver rooted at the current user's home.
func NewPathResolver() *PathResolver {
	home, _ := os.UserHomeDir()
	return &PathResolver{homeDir: home}
}

// NewPathResolverWithHome creates a resolver with custom home (for testing).
func NewPathResolverWithHome(home string) *PathResolver {
	return &PathResolver{homeDir: home}
}

// ExpandHome expands ~ to the user's home directory.
func (r *PathResolver) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(r.homeDir, path[2:])
	}
	if path == "~" {
		return r.homeDir
	}
	return path
}

// DataDir expands dir, falling back to DefaultDataDir when empty.
func (r *PathResolver) DataDir(dir string) string {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDataDir
	}
	return r.ExpandHome(dir)
}

// Exists checks if a path exists.
func (r *PathResolver) Exists(path string) bool {
	_, err := os.Stat(r.ExpandHome(path))
	return err == nil
}
