package main

import (
	"context"
	"log/slog"

	"umlreg/internal/manifest"
	"umlreg/internal/registry"
	"umlreg/internal/watcher"
)

// manifestKey is the watch key of the manifest file. '@' cannot start a model name.
const manifestKey = "@manifest"

// modelWatcher reloads models whose resource files change while serving.
type modelWatcher struct {
	ctx          context.Context
	registry     *registry.Registry
	manifestPath string
	logger       *slog.Logger
	w            *watcher.Watcher
}

func startModelWatcher(ctx context.Context, reg *registry.Registry, manifestPath string, cfg watcher.Config, logger *slog.Logger) (*modelWatcher, error) {
	mw := &modelWatcher{
		ctx:          ctx,
		registry:     reg,
		manifestPath: manifestPath,
		logger:       logger,
	}
	mw.w = watcher.New(cfg, logger, mw.handle)
	mw.w.Watch(manifestKey, manifestPath)
	if err := mw.watchDeclared(); err != nil {
		mw.w.Stop()
		return nil, err
	}
	logger.Info("Watching model resources", "count", len(mw.w.Watched())-1)
	return mw, nil
}

// Stop stops polling.
func (mw *modelWatcher) Stop() {
	mw.w.Stop()
}

// watchDeclared adds every declared local resource and drops models that are
// no longer declared.
func (mw *modelWatcher) watchDeclared() error {
	declared, err := mw.registry.Declared(mw.ctx)
	if err != nil {
		return err
	}
	keep := map[string]bool{manifestKey: true}
	for _, meta := range declared {
		if mw.w.Watch(meta.Name, meta.Resource) {
			keep[meta.Name] = true
		}
	}
	for _, key := range mw.w.Watched() {
		if !keep[key] {
			mw.w.Unwatch(key)
		}
	}
	return nil
}

func (mw *modelWatcher) handle(key string, ev watcher.Event) {
	if mw.ctx.Err() != nil {
		return
	}
	if key == manifestKey {
		mw.manifestChanged()
		return
	}
	mw.reload(key, ev)
}

func (mw *modelWatcher) reload(name string, ev watcher.Event) {
	info, err := mw.registry.Reload(mw.ctx, name)
	if err != nil {
		mw.logger.Warn("Reload after change failed", "model", name, "event", ev.Type.String(), "error", err.Error())
		return
	}
	mw.logger.Info("Reloaded changed model", "model", name, "event", ev.Type.String(),
		"errors", info.Summary.Errors, "warnings", info.Summary.Warnings)
}

// manifestChanged syncs the manifest again and reloads every model it declares.
func (mw *modelWatcher) manifestChanged() {
	f, err := manifest.Load(mw.manifestPath)
	if err != nil {
		mw.logger.Warn("Ignoring invalid manifest change", "path", mw.manifestPath, "error", err.Error())
		return
	}
	if err := mw.registry.SyncManifest(mw.ctx, f); err != nil {
		mw.logger.Error("Failed to sync manifest", "error", err.Error())
		return
	}
	if err := mw.watchDeclared(); err != nil {
		mw.logger.Error("Failed to update watched resources", "error", err.Error())
	}
	ev := watcher.Event{Type: watcher.EventModify, Path: mw.manifestPath}
	for _, decl := range f.Models {
		mw.reload(decl.Name, ev)
	}
}
