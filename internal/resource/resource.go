// Package resource opens model documents by name: a local path, a file:// URL or
// an http(s):// URL. gzip and zstd content is decompressed transparently.
package resource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"umlreg/internal/errors"
	"umlreg/internal/slogutil"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DefaultTimeout bounds remote fetches.
const DefaultTimeout = 30 * time.Second

// Opener resolves resource names to streams.
type Opener struct {
	client *http.Client
	logger *slog.Logger
}

// NewOpener creates an Opener. A zero timeout uses DefaultTimeout.
func NewOpener(timeout time.Duration, logger *slog.Logger) *Opener {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Opener{client: &http.Client{Timeout: timeout}, logger: logger}
}

// Open returns the decompressed content of the named resource. Failures are
// *errors.Error with code RESOURCE_UNREADABLE.
func (o *Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	raw, err := o.openRaw(ctx, name)
	if err != nil {
		return nil, errors.New(errors.ResourceUnreadable, fmt.Sprintf("cannot open %s", name), err)
	}
	rc, err := Decompress(raw)
	if err != nil {
		_ = raw.Close()
		return nil, errors.New(errors.ResourceUnreadable, fmt.Sprintf("cannot decompress %s", name), err)
	}
	return rc, nil
}

func (o *Opener) openRaw(ctx context.Context, name string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return o.fetch(ctx, name)
	case strings.HasPrefix(name, "file://"):
		u, err := url.Parse(name)
		if err != nil {
			return nil, err
		}
		return os.Open(u.Path)
	default:
		return os.Open(name)
	}
}

func (o *Opener) fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Fetched resource",
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return resp.Body, nil
}

// Exists reports whether a local resource can be stat'ed. Remote resources are
// assumed to exist.
func Exists(name string) bool {
	switch {
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return true
	case strings.HasPrefix(name, "file://"):
		u, err := url.Parse(name)
		if err != nil {
			return false
		}
		name = u.Path
	}
	_, err := os.Stat(name)
	return err == nil
}

// Decompress sniffs r for gzip or zstd magic bytes and wraps it accordingly.
// Closing the result closes r.
func Decompress(r io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &stacked{Reader: zr, closers: []io.Closer{zr, r}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		dec := zr.IOReadCloser()
		return &stacked{Reader: dec, closers: []io.Closer{dec, r}}, nil
	default:
		return &stacked{Reader: br, closers: []io.Closer{r}}, nil
	}
}

type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
