package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/errors"
)

const sampleManifest = `
version = 1

[[model]]
name = "sample"
resource = "xmi/v2/sample.xmi"
description = "Sample domain model"

[[model]]
name = "legacy"
resource = "https://models.example.org/legacy.xmi.gz"
version = "v1"
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, f.Models, 2)

	sample, ok := f.Find("sample")
	require.True(t, ok)
	assert.Equal(t, "v2", sample.Version, "version defaults to v2")
	assert.Equal(t, "Sample domain model", sample.Description)

	legacy, ok := f.Find("legacy")
	require.True(t, ok)
	assert.Equal(t, "v1", legacy.Version)

	_, ok = f.Find("missing")
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":        `[[model]`,
		"bad name":      "[[model]]\nname = \"has space\"\nresource = \"a.xmi\"",
		"no resource":   "[[model]]\nname = \"a\"",
		"bad version":   "[[model]]\nname = \"a\"\nresource = \"a.xmi\"\nversion = \"v7\"",
		"duplicate":     "[[model]]\nname = \"a\"\nresource = \"a.xmi\"\n[[model]]\nname = \"a\"\nresource = \"b.xmi\"",
		"future format": "version = 2",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.InvalidMetaData), err.Error())
		})
	}
}

func TestLoad_ResolvesRelativeResources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	sample, _ := f.Find("sample")
	assert.Equal(t, filepath.Join(dir, "xmi", "v2", "sample.xmi"), sample.Resource)
	legacy, _ := f.Find("legacy")
	assert.Equal(t, "https://models.example.org/legacy.xmi.gz", legacy.Resource)
}

func TestLoad_Missing(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Empty(t, f.Models)
}

func TestPutRemoveWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", DefaultFile)
	f := &File{}

	require.NoError(t, f.Put(ModelDeclaration{Name: "a", Resource: "/models/a.xmi"}))
	require.NoError(t, f.Put(ModelDeclaration{Name: "b", Resource: "/models/b.xmi", Version: "v1"}))
	require.NoError(t, f.Put(ModelDeclaration{Name: "a", Resource: "/models/a2.xmi"}))
	assert.Error(t, f.Put(ModelDeclaration{Name: "", Resource: "/x"}))
	require.Len(t, f.Models, 2)

	assert.True(t, f.Remove("b"))
	assert.False(t, f.Remove("b"))

	require.NoError(t, Write(path, f))
	back, err := Load(path)
	require.NoError(t, err)
	require.Len(t, back.Models, 1)
	assert.Equal(t, ModelDeclaration{Name: "a", Resource: "/models/a2.xmi", Version: "v2"}, back.Models[0])
}

func TestCreateExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, CreateExample(path))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, f.Models)
	assert.Equal(t, 1, f.Version)
}

func TestDeclare(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0644))

	require.NoError(t, Declare(path, ModelDeclaration{Name: "local", Resource: filepath.Join(dir, "models", "local.xmi")}))
	require.NoError(t, Declare(path, ModelDeclaration{Name: "legacy", Resource: "https://models.example.org/legacy-2.xmi", Version: "v1"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, f.Models, 3)

	sample, _ := f.Find("sample")
	assert.Equal(t, "xmi/v2/sample.xmi", sample.Resource)
	local, _ := f.Find("local")
	assert.Equal(t, "models/local.xmi", local.Resource)
	assert.Equal(t, "v2", local.Version)
	legacy, _ := f.Find("legacy")
	assert.Equal(t, "https://models.example.org/legacy-2.xmi", legacy.Resource)
}

func TestDeclare_NewManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)
	require.NoError(t, Declare(path, ModelDeclaration{Name: "remote", Resource: "https://example.org/m.xmi"}))
	assert.Error(t, Declare(path, ModelDeclaration{Name: "bad name", Resource: "x.xmi"}))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Models, 1)
	assert.Equal(t, "remote", f.Models[0].Name)
}
