// Package watcher polls local model resources and reports the ones that changed.
package watcher

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"umlreg/internal/paths"
	"umlreg/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// Event represents a change of a watched file
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeHandler is called, after the debounce delay, with the key a file was
// registered under and the last event seen for it.
type ChangeHandler func(key string, event Event)

// Config contains watcher configuration
type Config struct {
	Enabled        bool `json:"enabled" mapstructure:"enabled"`
	PollIntervalMs int  `json:"pollIntervalMs" mapstructure:"pollIntervalMs"`
	DebounceMs     int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		PollIntervalMs: 2000,
		DebounceMs:     500,
	}
}

// Watcher polls registered files for changes.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	files   map[string]*fileWatch // key -> watch

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	wg     sync.WaitGroup
}

type fileWatch struct {
	key       string
	path      string
	debouncer *Debouncer
	last      fileState
	stopCh    chan struct{}
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// New creates a new watcher
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		files:   make(map[string]*fileWatch),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop stops every poller and waits for them to exit. Pending debounced
// notifications are dropped.
func (w *Watcher) Stop() {
	w.cancel()

	w.mu.Lock()
	for key, fw := range w.files {
		fw.debouncer.Cancel()
		close(fw.stopCh)
		delete(w.files, key)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Debug("File watcher stopped")
}

// Watch starts polling the resource registered under key. Remote resources
// cannot be polled and are skipped; the result reports whether polling started.
// Watching a key again replaces its resource. A stopped watcher watches nothing.
func (w *Watcher) Watch(key, resource string) bool {
	path, ok := localPath(resource)
	if !ok {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return false
	}
	if fw, exists := w.files[key]; exists {
		if fw.path == path {
			return true
		}
		fw.debouncer.Cancel()
		close(fw.stopCh)
	}

	fw := &fileWatch{
		key:       key,
		path:      path,
		debouncer: NewDebouncer(time.Duration(w.config.DebounceMs) * time.Millisecond),
		last:      stat(path),
		stopCh:    make(chan struct{}),
	}
	w.files[key] = fw

	w.wg.Add(1)
	go w.poll(fw)

	w.logger.Debug("Watching resource", "key", key, "path", path)
	return true
}

// Unwatch stops polling key.
func (w *Watcher) Unwatch(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if fw, exists := w.files[key]; exists {
		fw.debouncer.Cancel()
		close(fw.stopCh)
		delete(w.files, key)
	}
}

// Watched returns the watched keys in order.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.files))
	for key := range w.files {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (w *Watcher) poll(fw *fileWatch) {
	defer w.wg.Done()

	interval := time.Duration(w.config.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(fw)
		case <-fw.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

// check compares the file with its last state. Only the poller of fw touches
// fw.last.
func (w *Watcher) check(fw *fileWatch) {
	current := stat(fw.path)
	var typ EventType
	switch {
	case current == fw.last:
		return
	case !fw.last.exists:
		typ = EventCreate
	case !current.exists:
		typ = EventDelete
	default:
		typ = EventModify
	}
	fw.last = current

	event := Event{Type: typ, Path: fw.path, Timestamp: time.Now()}
	fw.debouncer.Trigger(func() {
		w.logger.Debug("Resource changed", "key", fw.key, "path", fw.path, "event", typ.String())
		if w.handler != nil {
			w.handler(fw.key, event)
		}
	})
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// localPath returns the file behind a path or file:// resource.
func localPath(resource string) (string, bool) {
	if strings.HasPrefix(resource, "file://") {
		u, err := url.Parse(resource)
		if err != nil || u.Path == "" {
			return "", false
		}
		return u.Path, true
	}
	if resource == "" || paths.IsRemote(resource) {
		return "", false
	}
	return resource, true
}
