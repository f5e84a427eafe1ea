// Package registry caches loaded models by name.
//
// A published ModelInfo is never mutated. Reloading a model builds a new one
// and swaps it in. Only one rebuild runs at a time for the whole registry, and
// concurrent on-demand loads of the same model share a single rebuild.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/manifest"
	"umlreg/internal/parser"
	"umlreg/internal/resource"
	"umlreg/internal/slogutil"
	"umlreg/internal/storage"
	"umlreg/internal/uml"
)

// ModelInfo is a finished load of a declared model.
type ModelInfo struct {
	Meta storage.ModelMetaData
	// Model is nil when the load failed fatally.
	Model    *uml.Model
	Messages []diag.Message
	Summary  diag.Summary
	Attempt  storage.LoadAttempt
	LoadedAt time.Time
}

// Loaded reports whether a model tree is available.
func (mi *ModelInfo) Loaded() bool {
	return mi != nil && mi.Model != nil
}

// ElementRef locates an element inside a cached model.
type ElementRef struct {
	ModelName     string
	Model         *uml.Model
	Element       *uml.Element
	QualifiedName string
}

// Options configures a Registry.
type Options struct {
	// Parser is used for every load; its Logger is replaced by the registry's.
	Parser parser.Options
	Opener *resource.Opener
	// HistoryLimit is the number of load attempts kept per model; 0 keeps all.
	HistoryLimit int
	Logger       *slog.Logger
}

// Registry is the in-memory model cache backed by the metadata store.
type Registry struct {
	opts     Options
	metas    *storage.MetaDataRepository
	attempts *storage.AttemptRepository
	logger   *slog.Logger

	rebuild sync.Mutex
	group   singleflight.Group

	mu        sync.RWMutex
	models    map[string]*ModelInfo
	listeners []func(*ModelInfo)
}

// New creates a Registry over an open store.
func New(db *storage.DB, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	if opts.Opener == nil {
		opts.Opener = resource.NewOpener(resource.DefaultTimeout, opts.Logger)
	}
	opts.Parser.Logger = opts.Logger
	return &Registry{
		opts:     opts,
		metas:    storage.NewMetaDataRepository(db),
		attempts: storage.NewAttemptRepository(db),
		logger:   opts.Logger,
		models:   make(map[string]*ModelInfo),
	}
}

// Subscribe registers fn to be called after every finished load, in the
// loading goroutine and while the rebuild lock is held. fn must not block.
func (r *Registry) Subscribe(fn func(*ModelInfo)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// SyncManifest stores every declaration of f as model metadata.
func (r *Registry) SyncManifest(ctx context.Context, f *manifest.File) error {
	for _, decl := range f.Models {
		meta := &storage.ModelMetaData{
			Name:          decl.Name,
			Resource:      decl.Resource,
			ParserVersion: decl.Version,
			Description:   decl.Description,
			Origin:        storage.OriginManifest,
		}
		if existing, err := r.metas.Get(ctx, decl.Name); err != nil {
			return err
		} else if existing != nil {
			meta.CreatedAt = existing.CreatedAt
		}
		if err := r.metas.Save(ctx, meta); err != nil {
			return err
		}
	}
	r.logger.Debug("Synced manifest", "models", len(f.Models))
	return nil
}

// LoadAll loads every declared model and publishes the results. A model that
// fails to load is still published with its messages.
func (r *Registry) LoadAll(ctx context.Context) ([]*ModelInfo, error) {
	metas, err := r.metas.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*ModelInfo, 0, len(metas))
	for _, meta := range metas {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		info, _ := r.build(ctx, *meta)
		out = append(out, info)
	}
	return out, nil
}

// GetModel returns the cached model named name, loading it on first use.
// The boolean is false when no such model is declared. Cancelling ctx does not
// abort a load already in progress.
func (r *Registry) GetModel(ctx context.Context, name string) (*ModelInfo, bool) {
	if info := r.cached(name); info != nil {
		return info, true
	}

	// The load is shared by every waiting caller and its result is cached, so
	// it must not fail because the first caller went away.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if info := r.cached(name); info != nil {
			return info, nil
		}
		meta, err := r.metas.Get(loadCtx, name)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			return nil, errors.Newf(errors.ModelNotFound, "no model named %q", name)
		}
		info, _ := r.build(loadCtx, *meta)
		return info, nil
	})
	if err != nil {
		if !errors.Is(err, errors.ModelNotFound) {
			r.logger.Error("Model lookup failed", "model", name, "error", err.Error())
		}
		return nil, false
	}
	return v.(*ModelInfo), true
}

// Reload rebuilds a declared model and replaces the cached one.
func (r *Registry) Reload(ctx context.Context, name string) (*ModelInfo, error) {
	meta, err := r.metas.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errors.Newf(errors.ModelNotFound, "no model named %q", name)
	}
	return r.build(ctx, *meta)
}

// LoadAndSave stores meta, loads the model and publishes it. The error is
// non-nil for invalid metadata, store failures and fatal load failures; in the
// last case the returned ModelInfo carries the failure message.
func (r *Registry) LoadAndSave(ctx context.Context, meta storage.ModelMetaData) (*ModelInfo, error) {
	if meta.ParserVersion == "" {
		meta.ParserVersion = string(parser.DefaultVersion)
	}
	if meta.Origin == "" {
		meta.Origin = storage.OriginCLI
	}
	err := manifest.ValidateDeclaration(manifest.ModelDeclaration{
		Name:     meta.Name,
		Resource: meta.Resource,
		Version:  meta.ParserVersion,
	})
	if err != nil {
		return nil, err
	}
	if existing, err := r.metas.Get(ctx, meta.Name); err != nil {
		return nil, err
	} else if existing != nil {
		meta.CreatedAt = existing.CreatedAt
	}
	if err := r.metas.Save(ctx, &meta); err != nil {
		return nil, err
	}
	return r.build(ctx, meta)
}

// FindElementByID scans the cached models, in name order, for an element.
func (r *Registry) FindElementByID(xmiID string) (*ElementRef, bool) {
	for _, info := range r.Models() {
		if !info.Loaded() {
			continue
		}
		id, ok := info.Model.Find(xmiID)
		if !ok {
			continue
		}
		return &ElementRef{
			ModelName:     info.Meta.Name,
			Model:         info.Model,
			Element:       info.Model.Get(id),
			QualifiedName: info.Model.QualifiedName(id),
		}, true
	}
	return nil, false
}

// Models returns the published models ordered by name.
func (r *Registry) Models() []*ModelInfo {
	r.mu.RLock()
	out := make([]*ModelInfo, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Meta.Name < out[j].Meta.Name })
	return out
}

// Declared returns every stored model declaration.
func (r *Registry) Declared(ctx context.Context) ([]*storage.ModelMetaData, error) {
	return r.metas.List(ctx)
}

// Declaration returns the stored metadata of a model, or nil if none is declared.
func (r *Registry) Declaration(ctx context.Context, name string) (*storage.ModelMetaData, error) {
	return r.metas.Get(ctx, name)
}

// History returns the newest load attempts of a model.
func (r *Registry) History(ctx context.Context, name string, limit int) ([]*storage.LoadAttempt, error) {
	return r.attempts.List(ctx, name, limit)
}

// AttemptMessages returns the diagnostics recorded for an attempt.
func (r *Registry) AttemptMessages(ctx context.Context, attemptID string) ([]diag.Message, error) {
	return r.attempts.Messages(ctx, attemptID)
}

func (r *Registry) cached(name string) *ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[name]
}

func (r *Registry) publish(info *ModelInfo) {
	r.mu.Lock()
	r.models[info.Meta.Name] = info
	listeners := r.listeners
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(info)
	}
}

// build runs one load under the registry-wide rebuild lock, records the
// attempt and publishes the result. It always returns a ModelInfo.
func (r *Registry) build(ctx context.Context, meta storage.ModelMetaData) (*ModelInfo, error) {
	r.rebuild.Lock()
	defer r.rebuild.Unlock()

	started := time.Now().UTC()
	res, loadErr := r.load(ctx, meta)

	info := &ModelInfo{
		Meta:     meta,
		Model:    res.Model,
		Messages: res.Messages.All(),
		Summary:  res.Messages.Summary(),
		LoadedAt: time.Now().UTC(),
	}
	info.Attempt = storage.LoadAttempt{
		ModelName:     meta.Name,
		Resource:      meta.Resource,
		ParserVersion: meta.ParserVersion,
		Fingerprint:   res.Fingerprint,
		StartedAt:     started,
		Duration:      time.Since(started),
		Success:       loadErr == nil,
		Errors:        info.Summary.Errors,
		Warnings:      info.Summary.Warnings,
		Infos:         info.Summary.Infos,
	}
	if res.Model != nil {
		info.Attempt.Elements = res.Model.Len()
	}
	if loadErr != nil {
		info.Attempt.Failure = loadErr.Error()
	}

	if err := r.attempts.Record(ctx, &info.Attempt, info.Messages); err != nil {
		r.logger.Error("Failed to record load attempt", "model", meta.Name, "error", err.Error())
	} else if r.opts.HistoryLimit > 0 {
		if _, err := r.attempts.Prune(ctx, meta.Name, r.opts.HistoryLimit); err != nil {
			r.logger.Warn("Failed to prune load history", "model", meta.Name, "error", err.Error())
		}
	}

	r.publish(info)
	return info, loadErr
}

func (r *Registry) load(ctx context.Context, meta storage.ModelMetaData) (*parser.Result, error) {
	failed := func(err error) (*parser.Result, error) {
		res := &parser.Result{Source: meta.Resource, Messages: diag.New()}
		res.Messages.AddErr("", err)
		return res, err
	}

	version, err := parser.ParseVersion(meta.ParserVersion)
	if err != nil {
		return failed(err)
	}
	p, err := parser.New(version, r.opts.Parser)
	if err != nil {
		return failed(err)
	}
	rc, err := r.opts.Opener.Open(ctx, meta.Resource)
	if err != nil {
		return failed(err)
	}
	defer rc.Close()

	res, err := p.Parse(ctx, parser.Source{Name: meta.Resource, Reader: rc})
	if err != nil {
		return res, fmt.Errorf("load %s: %w", meta.Name, err)
	}
	return res, nil
}
