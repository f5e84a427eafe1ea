package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"umlreg/internal/config"
	"umlreg/internal/integrate"
	"umlreg/internal/manifest"
	"umlreg/internal/parser"
	"umlreg/internal/registry"
	"umlreg/internal/slogutil"
	"umlreg/internal/storage"
	"umlreg/internal/terminology"
)

// environment is everything a command needs to work on a project.
type environment struct {
	root         string
	cfg          *config.Config
	logs         *slogutil.LoggerFactory
	logger       *slog.Logger
	db           *storage.DB
	registry     *registry.Registry
	terms        terminology.Service
	manifestPath string
	manifest     *manifest.File
}

// openEnvironment loads the project configuration, applies the command's
// overrides, opens the store and syncs the manifest into it. Callers must Close
// the result.
func openEnvironment(ctx context.Context, overrides ...func(*config.Config)) (*environment, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logs := slogutil.NewLoggerFactory(root, logSettings(cfg.Logging), os.Stderr, cliLogLevel())
	logger := logs.LoaderLogger()

	env := &environment{
		root:         root,
		cfg:          cfg,
		logs:         logs,
		logger:       logger,
		manifestPath: resolvePath(root, cfg.Registry.ManifestPath),
	}

	env.db, err = storage.Open(resolvePath(root, cfg.Registry.StorePath), logger)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	env.terms, err = newTerminology(cfg.Terminology, root, logger)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.registry = registry.New(env.db, registry.Options{
		Parser:       parserOptions(cfg, env.terms),
		HistoryLimit: cfg.Registry.HistoryLimit,
		Logger:       logger,
	})

	env.manifest, err = manifest.Load(env.manifestPath)
	if err != nil {
		env.Close()
		return nil, err
	}
	if err := env.registry.SyncManifest(ctx, env.manifest); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// Close releases the store and the log files.
func (e *environment) Close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Warn("Failed to close store", "error", err.Error())
		}
	}
	if e.logs != nil {
		_ = e.logs.Close()
	}
}

func logSettings(c config.LoggingConfig) slogutil.Settings {
	return slogutil.Settings{
		Format:     c.Format,
		Level:      c.Level,
		API:        c.API,
		Loader:     c.Loader,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
	}
}

// cliLogLevel returns the level chosen by -v/-q, or 0 when neither was given.
func cliLogLevel() slog.Level {
	if verbosity == 0 && !quiet {
		return 0
	}
	return slogutil.LevelFromVerbosity(verbosity, quiet)
}

func parserOptions(cfg *config.Config, terms terminology.Service) parser.Options {
	return parser.Options{
		Charset:           cfg.Parser.Charset,
		StripInvalidChars: cfg.Parser.StripInvalidChars,
		Transformers:      parser.Replacements(cfg.Parser.NamespaceFixes),
		Terminology:       terms,
		Integration: integrate.Options{
			NamingChecks:     cfg.Integration.NamingChecks,
			SentinelType:     cfg.Integration.SentinelType,
			ActiveNamespaces: cfg.Terminology.ActiveNamespaces,
		},
	}
}

// newTerminology builds the configured lookup service. A nil service disables
// concept lookups.
func newTerminology(c config.TerminologyConfig, root string, logger *slog.Logger) (terminology.Service, error) {
	var svc terminology.Service
	switch c.Kind {
	case config.TerminologyFile:
		vocab, err := terminology.LoadVocabulary(resolvePath(root, c.VocabularyPath))
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded vocabulary", "path", c.VocabularyPath, "concepts", vocab.Len())
		svc = vocab
	case config.TerminologyHTTP:
		svc = terminology.NewHTTPService(c.Endpoint, time.Duration(c.TimeoutMs)*time.Millisecond, logger)
	default:
		return nil, nil
	}
	if c.CacheSize > 0 {
		cached, err := terminology.NewCachingService(svc, c.CacheSize)
		if err != nil {
			return nil, err
		}
		return cached, nil
	}
	return svc, nil
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
