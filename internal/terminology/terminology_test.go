package terminology

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/errors"
)

const testVocabulary = `
[[concept]]
id = "C17357"
namespace = "NCIt"
property = "code"
value = "C17357"
name = "Gender"
children = ["C20197", "C16576", "C99999"]

[[concept]]
id = "C20197"
name = "Male"

[[concept]]
id = "C16576"
name = "Female"

[[concept]]
id = "C25464"
namespace = "NCIt"
property = "code"
value = "C25464"
name = "Country"
`

func TestFileService(t *testing.T) {
	svc, err := ParseVocabulary(testVocabulary)
	require.NoError(t, err)
	assert.Equal(t, 4, svc.Len())

	ctx := context.Background()
	c, err := svc.FindConcept(ctx, Key{"NCIt", "code", "C17357"})
	require.NoError(t, err)
	assert.Equal(t, "Gender", c.Name)

	children, err := svc.Children(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, children, 2, "unknown child ids are skipped")
	assert.Equal(t, "Male", children[0].Name)

	empty, err := svc.Children(ctx, "C25464")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.FindConcept(ctx, Key{"NCIt", "code", "nope"})
	assert.True(t, errors.Is(err, errors.ConceptNotFound))
}

func TestParseVocabulary_Errors(t *testing.T) {
	tests := map[string]string{
		"missing id": "[[concept]]\nname = \"x\"\n",
		"duplicate":  "[[concept]]\nid = \"a\"\n[[concept]]\nid = \"a\"\n",
		"bad toml":   "[[concept]\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVocabulary(data)
			assert.Error(t, err)
		})
	}
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.toml")
	require.NoError(t, os.WriteFile(path, []byte(testVocabulary), 0o644))

	svc, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 4, svc.Len())

	_, err = LoadVocabulary(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

type countingService struct {
	Service
	finds    int
	children int
}

func (c *countingService) FindConcept(ctx context.Context, key Key) (*Concept, error) {
	c.finds++
	return c.Service.FindConcept(ctx, key)
}

func (c *countingService) Children(ctx context.Context, id string) ([]Concept, error) {
	c.children++
	return c.Service.Children(ctx, id)
}

func TestCachingService(t *testing.T) {
	file, err := ParseVocabulary(testVocabulary)
	require.NoError(t, err)
	inner := &countingService{Service: file}
	svc, err := NewCachingService(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.FindConcept(ctx, Key{"NCIt", "code", "C17357"})
		require.NoError(t, err)
		_, err = svc.FindConcept(ctx, Key{"NCIt", "code", "missing"})
		require.Error(t, err)
		_, err = svc.Children(ctx, "C17357")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.finds, "hits and CONCEPT_NOT_FOUND are cached")
	assert.Equal(t, 1, inner.children)

	svc.Purge()
	_, _ = svc.FindConcept(ctx, Key{"NCIt", "code", "C17357"})
	assert.Equal(t, 3, inner.finds)
}

func TestCachingService_DoesNotCacheTransportFailures(t *testing.T) {
	inner := &countingService{Service: Disabled{}}
	svc, err := NewCachingService(inner, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.FindConcept(context.Background(), Key{"NCIt", "code", "x"})
		assert.True(t, errors.Is(err, errors.TerminologyUnavailable))
	}
	assert.Equal(t, 2, inner.finds)
}

func TestHTTPService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/concepts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("value") != "C17357" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(Concept{ID: "C17357", Namespace: "NCIt", Name: "Gender"})
	})
	mux.HandleFunc("/concepts/C17357/children", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Concept{{ID: "C20197", Name: "Male"}})
	})
	mux.HandleFunc("/concepts/BROKEN/children", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewHTTPService(srv.URL+"/", time.Second, nil)
	ctx := context.Background()

	c, err := svc.FindConcept(ctx, Key{"NCIt", "code", "C17357"})
	require.NoError(t, err)
	assert.Equal(t, "Gender", c.Name)

	children, err := svc.Children(ctx, "C17357")
	require.NoError(t, err)
	require.Len(t, children, 1)

	_, err = svc.FindConcept(ctx, Key{"NCIt", "code", "other"})
	assert.True(t, errors.Is(err, errors.ConceptNotFound))

	_, err = svc.Children(ctx, "BROKEN")
	assert.True(t, errors.Is(err, errors.TerminologyUnavailable))
}
