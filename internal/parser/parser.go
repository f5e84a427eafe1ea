// Package parser is the entry point of a model load. A Parser reads an XMI
// document, pre-processes it line by line, projects it, assembles the model tree
// and integrates it. Two strategies exist: v1 for XMI 1.x and v2 for XMI 2.x.
package parser

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"umlreg/internal/assemble"
	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/integrate"
	"umlreg/internal/projection"
	"umlreg/internal/resource"
	"umlreg/internal/slogutil"
	"umlreg/internal/terminology"
	"umlreg/internal/uml"
)

// Version selects a parsing strategy.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// DefaultVersion is used when none is configured.
const DefaultVersion = V2

// Source is a named document stream. The parser never closes Reader.
type Source struct {
	Name   string
	Reader io.Reader
}

// Result is the outcome of one load.
type Result struct {
	// Model is nil when the load failed before a model existed.
	Model       *uml.Model
	Messages    *diag.Messages
	Source      string
	Version     Version
	Fingerprint string
	Duration    time.Duration
}

// Parser loads a model from a document.
type Parser interface {
	// Parse always returns a Result. The error is non-nil only for fatal failures,
	// in which case Result.Model is nil and Result.Messages holds exactly one ERROR.
	Parse(ctx context.Context, src Source) (*Result, error)
	Version() Version
}

// Options configures a Parser.
type Options struct {
	// Charset of the raw document; empty or "auto" detects it.
	Charset string
	// StripInvalidChars removes characters XML 1.0 forbids before projection.
	StripInvalidChars bool
	// Transformers run after the version's built-in transformers.
	Transformers []LineTransformer
	Projector    projection.Projector
	Terminology  terminology.Service
	Integration  integrate.Options
	Logger       *slog.Logger
}

type strategy struct {
	query        string
	transformers []LineTransformer
}

var strategies = map[Version]strategy{
	V1: v1Strategy(),
	V2: v2Strategy(),
}

// Versions returns the supported version tags.
func Versions() []Version {
	out := make([]Version, 0, len(strategies))
	for v := range strategies {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseVersion validates a version tag.
func ParseVersion(s string) (Version, error) {
	v := Version(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return DefaultVersion, nil
	}
	if _, ok := strategies[v]; !ok {
		return "", errors.Newf(errors.UnsupportedVersion, "unsupported parser version %q (want v1 or v2)", s)
	}
	return v, nil
}

// New returns the Parser for version.
func New(version Version, opts Options) (Parser, error) {
	s, ok := strategies[version]
	if !ok {
		return nil, errors.Newf(errors.UnsupportedVersion, "unsupported parser version %q", version)
	}
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	if opts.Projector == nil {
		opts.Projector = projection.NewNative(opts.Logger)
	}

	ts := append([]LineTransformer(nil), s.transformers...)
	if opts.StripInvalidChars {
		ts = append(ts, StripInvalidChars())
	}
	ts = append(ts, opts.Transformers...)

	return &xmiParser{
		version:      version,
		query:        s.query,
		transformers: ts,
		opts:         opts,
		assembler:    assemble.New(opts.Logger),
		integrator:   integrate.New(opts.Terminology, opts.Integration, opts.Logger),
	}, nil
}

type xmiParser struct {
	version      Version
	query        string
	transformers []LineTransformer
	opts         Options
	assembler    *assemble.Assembler
	integrator   *integrate.Integrator
}

func (p *xmiParser) Version() Version { return p.version }

func (p *xmiParser) Parse(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	res := &Result{Source: src.Name, Version: p.version, Messages: diag.New()}
	fail := func(err error) (*Result, error) {
		res.Messages.AddErr("", err)
		res.Duration = time.Since(start)
		p.opts.Logger.Error("Model load failed",
			"source", src.Name,
			"version", p.version,
			"error", err.Error(),
		)
		return res, err
	}

	if src.Reader == nil {
		return fail(errors.Newf(errors.ResourceUnreadable, "source %s has no reader", src.Name))
	}
	// Sources handed in directly may still be compressed.
	rc, err := resource.Decompress(io.NopCloser(src.Reader))
	if err != nil {
		return fail(errors.New(errors.ResourceUnreadable, fmt.Sprintf("cannot read %s", src.Name), err))
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fail(errors.New(errors.ResourceUnreadable, fmt.Sprintf("cannot read %s", src.Name), err))
	}
	res.Fingerprint = Fingerprint(data)

	text, err := decodeCharset(data, p.opts.Charset)
	if err != nil {
		return fail(errors.New(errors.ResourceUnreadable, fmt.Sprintf("cannot decode %s", src.Name), err))
	}
	text, err = applyTransformers(text, p.transformers)
	if err != nil {
		return fail(errors.New(errors.TransformFailed, fmt.Sprintf("pre-processing %s failed", src.Name), err))
	}

	doc, err := p.opts.Projector.Project(ctx, p.query, strings.NewReader(text))
	if err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.New(errors.ProjectionFailed, fmt.Sprintf("projection of %s failed", src.Name), err)
		}
		return fail(err)
	}
	if doc == nil || doc.Local() != projection.RootTag {
		return fail(errors.Newf(errors.NoResult, "projection of %s returned no result", src.Name))
	}

	model, assembled := p.assembler.Assemble(doc)
	res.Messages.Merge(assembled)
	res.Messages.Merge(p.integrator.Integrate(ctx, model))
	res.Model = model
	res.Duration = time.Since(start)

	s := res.Messages.Summary()
	p.opts.Logger.Info("Model loaded",
		"source", src.Name,
		"model", model.Name(),
		"version", p.version,
		"elements", model.Len(),
		"errors", s.Errors,
		"warnings", s.Warnings,
		"infos", s.Infos,
		"duration", res.Duration,
	)
	return res, nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of a document.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
