// Package projection turns a raw XMI document into the flat element listing the
// assembler consumes (see format.go).
package projection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"umlreg/internal/errors"
	"umlreg/internal/slogutil"
	"umlreg/internal/xmldoc"
)

// Named queries of the native projector.
const (
	QueryXMI11 = "xmi11"
	QueryXMI2x = "xmi2x"
)

// Projector runs a named projection query over a document.
type Projector interface {
	// Project returns the projection root. Failures are *errors.Error with code
	// PROJECTION_FAILED.
	Project(ctx context.Context, query string, data io.Reader) (*xmldoc.Node, error)
}

// QueryFunc projects a parsed document.
type QueryFunc func(doc *xmldoc.Node) (*xmldoc.Node, error)

// Native is an in-process Projector over the built-in XMI queries.
type Native struct {
	queries map[string]QueryFunc
	logger  *slog.Logger
}

// NewNative returns a projector with the xmi11 and xmi2x queries registered.
func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	p := &Native{queries: make(map[string]QueryFunc), logger: logger}
	p.Register(QueryXMI11, ProjectXMI11)
	p.Register(QueryXMI2x, ProjectXMI2x)
	return p
}

// Register adds or replaces a query.
func (p *Native) Register(name string, fn QueryFunc) {
	p.queries[name] = fn
}

// Queries returns the registered query names, sorted.
func (p *Native) Queries() []string {
	out := make([]string, 0, len(p.queries))
	for name := range p.queries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Project implements Projector.
func (p *Native) Project(ctx context.Context, query string, data io.Reader) (*xmldoc.Node, error) {
	fn, ok := p.queries[query]
	if !ok {
		return nil, errors.New(errors.ProjectionFailed, fmt.Sprintf("unknown projection query %q", query), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.ProjectionFailed, "projection cancelled", err)
	}

	start := time.Now()
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, errors.New(errors.ProjectionFailed, "document is not well-formed", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.ProjectionFailed, "projection cancelled", err)
	}

	out, err := fn(doc)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.New(errors.ProjectionFailed, fmt.Sprintf("query %s failed", query), err)
	}

	p.logger.Debug("Projected document",
		"query", query,
		"elements", len(out.Children),
		"duration", time.Since(start),
	)
	return out, nil
}

func failf(format string, args ...interface{}) error {
	return errors.Newf(errors.ProjectionFailed, format, args...)
}
