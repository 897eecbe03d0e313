// Package workspace provides workspace directory management for LinkPilot.
// The workspace is the root directory where LinkPilot keeps its data:
//   - state/: persistent state documents (session, quota, scheduler)
//   - history/: the append-only application history log
//   - reports/: generated profile analysis reports
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SubdirState is the subdirectory name for state documents
	SubdirState = "state"
	// SubdirHistory is the subdirectory name for the application history log
	SubdirHistory = "history"
	// SubdirReports is the subdirectory name for analysis reports
	SubdirReports = "reports"
)

// Workspace represents a LinkPilot workspace with path management
// capabilities.
type Workspace struct {
	path     string // expanded workspace path
	basePath string // original path from config (may contain ~)
}

// New creates a Workspace for the given path. A leading ~ is expanded to the
// user's home directory.
func New(path string) *Workspace {
	return &Workspace{
		path:     expandHome(path),
		basePath: path,
	}
}

// Path returns the expanded workspace path.
func (w *Workspace) Path() string {
	return w.path
}

// BasePath returns the original path from config (may contain ~).
func (w *Workspace) BasePath() string {
	return w.basePath
}

// EnsureDir creates the workspace directory and the standard subdirectories
// if they do not exist.
func (w *Workspace) EnsureDir() error {
	if w.path == "" {
		return fmt.Errorf("workspace path is empty")
	}

	if info, err := os.Stat(w.path); err == nil && !info.IsDir() {
		return fmt.Errorf("workspace path exists but is not a directory: %s", w.path)
	}

	for _, dir := range []string{w.path, w.Subpath(SubdirState), w.Subpath(SubdirHistory), w.Subpath(SubdirReports)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	return nil
}

// Subpath returns the path of a subdirectory inside the workspace.
func (w *Workspace) Subpath(name string) string {
	return filepath.Join(w.path, name)
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
