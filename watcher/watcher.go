// Package watcher watches a drop directory for catalog files and emits a
// debounced event for each file whose content changed.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 500

	defaultDebounce = 500 * time.Millisecond
)

// Config configures file watching.
type Config struct {
	// Patterns are doublestar globs, relative to the watched directory,
	// selecting the files to process.
	Patterns []string `yaml:"patterns" json:"patterns"`

	// Ignore are doublestar globs for files never processed, such as the
	// pipeline's own output.
	Ignore []string `yaml:"ignore" json:"ignore"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs"`

	// Debounce is how long to wait for more changes before emitting.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// DefaultConfig returns the default watch configuration.
func DefaultConfig() Config {
	return Config{
		Patterns: []string{"**/*.{csv,tsv,json,xml,tei,ttl,turtle,txt,pdf,html,htm}"},
		Ignore:   []string{"**/*.structured.json", "**/*.tmp"},
		ExcludeDirs: []string{
			".git", "node_modules",
		},
		Debounce: defaultDebounce,
	}
}

// Validate checks that every pattern is a valid glob.
func (c Config) Validate() error {
	for _, p := range append(append([]string{}, c.Patterns...), c.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports an invalid glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid watch pattern: " + e.Pattern
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file watch operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Event represents a catalog file change.
type Event struct {
	// Path is the file path relative to the watched directory, with
	// forward slashes.
	Path string

	// AbsPath is the absolute file path.
	AbsPath string

	Operation Operation

	// Hash is the content hash for create and modify events.
	Hash string
}

// DocWatcher watches a directory tree for catalog file changes.
type DocWatcher struct {
	config  Config
	dir     string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	exclude map[string]bool

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection, keyed by relative path
	hashMu sync.RWMutex
	hashes map[string]string

	events chan Event

	droppedEvents atomic.Int64
}

// New creates a watcher for dir.
func New(config Config, dir string, logger *slog.Logger) (*DocWatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.Patterns) == 0 {
		config.Patterns = DefaultConfig().Patterns
	}
	if config.Debounce <= 0 {
		config.Debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool, len(config.ExcludeDirs))
	for _, d := range config.ExcludeDirs {
		exclude[d] = true
	}

	return &DocWatcher{
		config:  config,
		dir:     abs,
		watcher: fsw,
		logger:  logger,
		exclude: exclude,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events. It is closed when the
// watcher stops.
func (w *DocWatcher) Events() <-chan Event {
	return w.events
}

// Dir returns the absolute watched directory.
func (w *DocWatcher) Dir() string {
	return w.dir
}

// Start begins watching. The directory is created if missing.
func (w *DocWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Catalog watcher started",
		"dir", w.dir,
		"debounce", w.config.Debounce,
		"patterns", w.config.Patterns)
	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *DocWatcher) Stop() error {
	return w.watcher.Close()
}

// Existing returns create events for the matching files already present,
// recording their hashes so unchanged files are not reported again.
func (w *DocWatcher) Existing() ([]Event, error) {
	var events []Event
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.dir && w.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, ok := w.Match(path)
		if !ok {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read existing file", "path", rel, "error", err)
			return nil
		}
		hash := ContentHash(content)
		w.SetHash(rel, hash)
		events = append(events, Event{Path: rel, AbsPath: path, Operation: OpCreate, Hash: hash})
		return nil
	})
	return events, err
}

// Match reports whether a file is selected by the patterns and not ignored.
// It returns the slash-separated path relative to the watched directory.
func (w *DocWatcher) Match(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	for _, seg := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
		if w.skipDir(seg) {
			return rel, false
		}
	}
	for _, p := range w.config.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return rel, false
		}
	}
	for _, p := range w.config.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return rel, true
		}
	}
	return rel, false
}

// SetHash records the hash for a relative path.
func (w *DocWatcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded hash for a relative path.
func (w *DocWatcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *DocWatcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

func (w *DocWatcher) skipDir(name string) bool {
	return w.exclude[name] || (strings.HasPrefix(name, ".") && name != ".")
}

func (w *DocWatcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *DocWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *DocWatcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
	}

	rel, ok := w.Match(path)
	if !ok {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Catalog change detected", "path", rel, "op", event.Op.String())
}

func (w *DocWatcher) handleNewDirectory(path string) {
	if w.skipDir(filepath.Base(path)) {
		return
	}
	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

// flushPending emits one event per changed file.
func (w *DocWatcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		if ctx.Err() != nil {
			return
		}

		rel, _ := w.Match(path)
		event := Event{Path: rel, AbsPath: path}

		content, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				w.logger.Warn("Failed to read file for hash check", "path", rel, "error", err)
				continue
			}
			w.hashMu.Lock()
			_, tracked := w.hashes[rel]
			delete(w.hashes, rel)
			w.hashMu.Unlock()
			if tracked || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
				event.Operation = OpDelete
				w.sendEvent(event)
			}
			continue
		}

		hash := ContentHash(content)
		oldHash, hadHash := w.GetHash(rel)
		if hadHash && oldHash == hash {
			continue
		}
		w.SetHash(rel, hash)

		event.Hash = hash
		event.Operation = OpModify
		if !hadHash {
			event.Operation = OpCreate
		}
		w.sendEvent(event)
	}
}

func (w *DocWatcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event", "path", event.Path, "op", event.Operation)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
