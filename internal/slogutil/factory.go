package slogutil

import (
	"io"
	"log/slog"

	"umlreg/internal/paths"
)

// Settings is the logging section of the project configuration.
type Settings struct {
	Format     string // "human" or "json"
	Level      string
	API        string // level override for the HTTP server
	Loader     string // level override for model loading
	MaxSize    string // rotate log files past this size, e.g. "10MB"
	MaxBackups int
}

// LoggerFactory creates loggers for the umlreg subsystems.
// Precedence for levels: CLI flags > subsystem setting > global setting.
type LoggerFactory struct {
	root     string
	settings Settings
	console  io.Writer
	cliLevel slog.Level // from CLI flags (0 means not set)
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. Records are written to
// console and, when root is set, to a file under <root>/.umlreg/logs.
// cliLevel should be 0 if no CLI override was specified.
func NewLoggerFactory(root string, settings Settings, console io.Writer, cliLevel slog.Level) *LoggerFactory {
	if console == nil {
		console = io.Discard
	}
	return &LoggerFactory{
		root:     root,
		settings: settings,
		console:  console,
		cliLevel: cliLevel,
	}
}

// LoaderLogger creates the logger for loading models.
// Writes to <root>/.umlreg/logs/loader.log
func (f *LoggerFactory) LoaderLogger() *slog.Logger {
	return f.subsystemLogger("loader")
}

// APILogger creates the logger for the HTTP API server.
// Writes to <root>/.umlreg/logs/api.log
func (f *LoggerFactory) APILogger() *slog.Logger {
	return f.subsystemLogger("api")
}

// subsystemLogger tees the console handler with the subsystem's file. A log
// file that cannot be opened leaves the console handler alone.
func (f *LoggerFactory) subsystemLogger(subsystem string) *slog.Logger {
	level := f.effectiveLevel(subsystem)
	console := f.handler(f.console, level, true)
	if f.root == "" {
		return slog.New(console).With("subsystem", subsystem)
	}
	if _, err := paths.EnsureLogsDir(f.root); err != nil {
		return slog.New(console).With("subsystem", subsystem)
	}

	file, closer, err := f.createFile(paths.LogPath(f.root, subsystem))
	if err != nil {
		return slog.New(console).With("subsystem", subsystem)
	}
	f.closers = append(f.closers, closer)
	return slog.New(NewTeeHandler(console, f.handler(file, level, false))).With("subsystem", subsystem)
}

func (f *LoggerFactory) handler(w io.Writer, level slog.Level, console bool) slog.Handler {
	if f.settings.Format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	h := NewLineHandler(w, &slog.HandlerOptions{Level: level})
	if console {
		h = h.WithColor()
	}
	return h
}

// createFile opens a log file, rotating it when a max size is configured
func (f *LoggerFactory) createFile(path string) (io.Writer, io.Closer, error) {
	if size := ParseSize(f.settings.MaxSize); size > 0 {
		rf, err := OpenRotatingFile(path, size, f.settings.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		return rf, rf, nil
	}
	file, err := openAppend(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

// effectiveLevel returns the effective log level for a subsystem.
func (f *LoggerFactory) effectiveLevel(subsystem string) slog.Level {
	if f.cliLevel != 0 {
		return f.cliLevel
	}

	var subsystemLevel string
	switch subsystem {
	case "api":
		subsystemLevel = f.settings.API
	case "loader":
		subsystemLevel = f.settings.Loader
	}
	if subsystemLevel != "" {
		return LevelFromString(subsystemLevel)
	}
	if f.settings.Level != "" {
		return LevelFromString(f.settings.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
