// Package testutil provides shared fixtures and snapshot normalization for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestdataDir returns the absolute path to the repository's testdata/ directory.
func TestdataDir(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// internal/testutil -> project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	dir := filepath.Join(projectRoot, "testdata")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("testdata directory not found: %s", dir)
	}
	return dir
}

// XMIPath returns the path of a sample document, e.g. XMIPath(t, "v2", "sample.xmi").
// The file does not have to exist.
func XMIPath(t *testing.T, version, name string) string {
	t.Helper()
	return filepath.Join(TestdataDir(t), "xmi", version, name)
}

// ReadXMI returns the contents of a sample document, failing the test if it is missing.
func ReadXMI(t *testing.T, version, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(XMIPath(t, version, name))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return data
}

// VocabularyPath returns the path of the sample terminology vocabulary.
func VocabularyPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(TestdataDir(t), "terminology", "vocabulary.toml")
}

// CopyXMI copies a sample document into dir and returns the new path.
func CopyXMI(t *testing.T, dir, version, name string) string {
	t.Helper()
	dst := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	if err := os.WriteFile(dst, ReadXMI(t, version, name), 0o644); err != nil {
		t.Fatalf("Failed to copy fixture: %v", err)
	}
	return dst
}
