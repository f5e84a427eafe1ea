// Package paths locates the per-project umlreg directory and converts
// resource paths between absolute and project-relative form.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-project directory holding config, store and logs.
const DirName = ".umlreg"

// DataDir returns <root>/.umlreg
func DataDir(root string) string {
	return filepath.Join(root, DirName)
}

// LogsDir returns <root>/.umlreg/logs
func LogsDir(root string) string {
	return filepath.Join(DataDir(root), "logs")
}

// LogPath returns the log file of a subsystem, e.g. <root>/.umlreg/logs/api.log
func LogPath(root, subsystem string) string {
	return filepath.Join(LogsDir(root), subsystem+".log")
}

// EnsureLogsDir creates the logs directory if needed and returns it.
func EnsureLogsDir(root string) (string, error) {
	dir := LogsDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	return dir, nil
}

// CanonicalizePath converts an absolute path to a root-relative path
// - Resolves symlinks to real paths
// - Makes path relative to root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithin checks if a path is inside root
func IsWithin(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// IsRemote reports whether a resource names a URL rather than a local file.
func IsRemote(resource string) bool {
	return strings.Contains(resource, "://")
}

// RelativeResource rewrites a local resource inside root as a root-relative
// path. Remote resources and files outside root are returned unchanged.
func RelativeResource(resource, root string) string {
	if IsRemote(resource) {
		return resource
	}
	abs, err := filepath.Abs(resource)
	if err != nil || !IsWithin(abs, root) {
		return resource
	}
	rel, err := CanonicalizePath(abs, root)
	if err != nil {
		return resource
	}
	return rel
}
