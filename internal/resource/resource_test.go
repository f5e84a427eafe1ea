package resource

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/errors"
)

const content = `<?xml version="1.0"?><XMI/>`

func gzipped(t *testing.T) []byte {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func zstded(t *testing.T) []byte {
	var b bytes.Buffer
	w, err := zstd.NewWriter(&b)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func readAll(t *testing.T, o *Opener, name string) string {
	t.Helper()
	rc, err := o.Open(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestOpen_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"plain.xmi":     []byte(content),
		"model.xmi.gz":  gzipped(t),
		"model.xmi.zst": zstded(t),
		"short.xmi":     []byte("<a"),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	o := NewOpener(0, nil)
	assert.Equal(t, content, readAll(t, o, filepath.Join(dir, "plain.xmi")))
	assert.Equal(t, content, readAll(t, o, filepath.Join(dir, "model.xmi.gz")))
	assert.Equal(t, content, readAll(t, o, filepath.Join(dir, "model.xmi.zst")))
	assert.Equal(t, content, readAll(t, o, "file://"+filepath.Join(dir, "plain.xmi")))
	assert.Equal(t, "<a", readAll(t, o, filepath.Join(dir, "short.xmi")))

	_, err := o.Open(context.Background(), filepath.Join(dir, "missing.xmi"))
	assert.True(t, errors.Is(err, errors.ResourceUnreadable))

	assert.True(t, Exists(filepath.Join(dir, "plain.xmi")))
	assert.True(t, Exists("file://"+filepath.Join(dir, "plain.xmi")))
	assert.False(t, Exists(filepath.Join(dir, "missing.xmi")))
}

func TestOpen_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.xmi":
			_, _ = w.Write([]byte(content))
		case "/model.xmi.gz":
			_, _ = w.Write(gzipped(t))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOpener(0, nil)
	assert.Equal(t, content, readAll(t, o, srv.URL+"/model.xmi"))
	assert.Equal(t, content, readAll(t, o, srv.URL+"/model.xmi.gz"))

	_, err := o.Open(context.Background(), srv.URL+"/missing.xmi")
	assert.True(t, errors.Is(err, errors.ResourceUnreadable))
	assert.True(t, Exists(srv.URL+"/anything"))
}
