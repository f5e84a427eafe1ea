// Package manifest reads and writes MODELS.toml, the declaration of the models a
// registry serves.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	toml "github.com/pelletier/go-toml/v2"

	"umlreg/internal/errors"
	"umlreg/internal/parser"
	"umlreg/internal/paths"
)

// DefaultFile is the default manifest filename
const DefaultFile = "MODELS.toml"

const currentVersion = 1

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ModelDeclaration is one [[model]] entry.
type ModelDeclaration struct {
	// Name identifies the model in the registry and the API
	Name string `toml:"name"`

	// Resource is a file path, file:// or http(s):// URL. Relative paths are
	// resolved against the manifest's directory.
	Resource string `toml:"resource"`

	// Version selects the parser, v1 or v2. Empty means v2.
	Version string `toml:"version,omitempty"`

	Description string `toml:"description,omitempty"`
}

// File is the root structure of MODELS.toml
type File struct {
	Version int                `toml:"version"`
	Models  []ModelDeclaration `toml:"model"`
}

// Parse decodes manifest text and validates it.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.New(errors.InvalidMetaData, "failed to parse "+DefaultFile, err)
	}
	if f.Version < 1 {
		f.Version = currentVersion
	}
	if f.Version > currentVersion {
		return nil, errors.Newf(errors.InvalidMetaData, "manifest version %d not supported (max: %d)", f.Version, currentVersion)
	}
	for i := range f.Models {
		if f.Models[i].Version == "" {
			f.Models[i].Version = string(parser.DefaultVersion)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads the manifest at path. A missing file yields an empty manifest.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{Version: currentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.resolve(filepath.Dir(path))
	return f, nil
}

// resolve makes relative file resources relative to dir.
func (f *File) resolve(dir string) {
	for i := range f.Models {
		res := f.Models[i].Resource
		if isLocalRelative(res) {
			f.Models[i].Resource = filepath.Join(dir, res)
		}
	}
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

func isLocalRelative(res string) bool {
	return res != "" && !schemePattern.MatchString(res) && !filepath.IsAbs(res)
}

// Validate checks names, resources, versions and duplicates.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Models))
	for i, m := range f.Models {
		if err := ValidateDeclaration(m); err != nil {
			return errors.New(errors.InvalidMetaData, fmt.Sprintf("model #%d", i+1), err)
		}
		if seen[m.Name] {
			return errors.Newf(errors.InvalidMetaData, "model %q declared twice", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// ValidateDeclaration checks a single declaration.
func ValidateDeclaration(m ModelDeclaration) error {
	if !namePattern.MatchString(m.Name) {
		return errors.Newf(errors.InvalidMetaData, "invalid model name %q (use letters, digits, '-' and '_')", m.Name)
	}
	if m.Resource == "" {
		return errors.Newf(errors.InvalidMetaData, "model %q has no resource", m.Name)
	}
	if _, err := parser.ParseVersion(m.Version); err != nil {
		return errors.New(errors.InvalidMetaData, fmt.Sprintf("model %q", m.Name), err)
	}
	return nil
}

// Find returns the declaration named name.
func (f *File) Find(name string) (ModelDeclaration, bool) {
	for _, m := range f.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelDeclaration{}, false
}

// Put adds a declaration or replaces the one with the same name.
func (f *File) Put(m ModelDeclaration) error {
	if m.Version == "" {
		m.Version = string(parser.DefaultVersion)
	}
	if err := ValidateDeclaration(m); err != nil {
		return err
	}
	for i := range f.Models {
		if f.Models[i].Name == m.Name {
			f.Models[i] = m
			return nil
		}
	}
	f.Models = append(f.Models, m)
	return nil
}

// Remove deletes the declaration named name.
func (f *File) Remove(name string) bool {
	for i, m := range f.Models {
		if m.Name == name {
			f.Models = append(f.Models[:i], f.Models[i+1:]...)
			return true
		}
	}
	return false
}

// Write stores f at path, replacing the previous file atomically.
func Write(path string, f *File) error {
	f.Version = currentVersion
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", DefaultFile, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DefaultFile, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", DefaultFile, err)
	}
	return nil
}

// Declare adds or replaces one declaration in the manifest at path and writes
// it back. Local resources under the manifest's directory are stored relative
// to it; the other entries are kept as written.
func Declare(path string, decl ModelDeclaration) error {
	f := &File{Version: currentVersion}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if f, err = Parse(data); err != nil {
			return err
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}
	decl.Resource = paths.RelativeResource(decl.Resource, dir)
	if err := f.Put(decl); err != nil {
		return err
	}
	return Write(path, f)
}

// CreateExample writes a commented starting manifest.
func CreateExample(path string) error {
	const example = `# Models served by umlreg.
version = 1

# [[model]]
# name = "sample"
# resource = "models/sample.xmi"   # path, file:// or http(s):// URL; .gz and .zst are decompressed
# version = "v2"                   # v1 for XMI 1.x, v2 for XMI 2.x
# description = "Sample domain model"
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, []byte(example), 0644)
}
