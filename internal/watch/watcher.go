// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when watched documents change.
//
// It monitors paths under a base directory that match glob patterns and
// invokes a callback after a debounce period. Events within the debounce
// window are coalesced so the callback fires once with the full set of
// changed paths. When file system notifications are unavailable, or polling
// is forced, the tree is rescanned at a fixed interval instead.
package watch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codebutton/codebutton/internal/artifact"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	// defaultDebounce is the delay before firing the OnChange callback after
	// the last event. Editors that write then rename a temp file produce
	// several events per save.
	defaultDebounce = 500 * time.Millisecond

	// defaultPollInterval is how often the tree is rescanned in polling mode.
	defaultPollInterval = 30 * time.Second

	// ModeNotify watches through fsnotify.
	ModeNotify Mode = "fsnotify"
	// ModePolling rescans the tree every poll interval.
	ModePolling Mode = "polling"
)

// defaultIgnores lists path patterns that never trigger callbacks. Artifacts
// written next to the document are included so a run does not trigger
// itself.
var defaultIgnores = []string{
	"**/" + artifact.Pattern,
	"**/.git/**",
	"**/.obsidian/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Mode reports how a Watcher observes changes.
	Mode string

	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar-compatible glob patterns (e.g., "notes.md"
		// or "**/*.md") that select which files trigger callbacks. An empty
		// slice watches all non-ignored files.
		Patterns []string

		// Ignore are additional glob patterns merged with the built-in
		// default ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative values fall back to 500ms.
		Debounce time.Duration

		// PollInterval is the rescan period in polling mode. Zero or negative
		// values fall back to 30s.
		PollInterval time.Duration

		// ForcePolling skips fsnotify entirely.
		ForcePolling bool

		// ClearScreen writes ANSI clear-screen sequences to Stdout before each
		// callback. Callers should check that Stdout is a terminal.
		ClearScreen bool

		// BaseDir is the root directory to watch. Patterns are matched
		// against paths relative to it. Empty means the working directory.
		BaseDir string

		// OnChange is called after the debounce window closes with the
		// deduplicated, sorted list of changed paths relative to BaseDir.
		OnChange func(ctx context.Context, changed []string) error

		// Stdout receives the clear-screen sequence. nil means os.Stdout.
		Stdout io.Writer

		// Logger receives warnings and callback errors. nil means a logger
		// on os.Stderr with the "watch" prefix.
		Logger *log.Logger
	}

	// Watcher monitors files and fires a debounced callback when matching
	// files change. Run must be called exactly once.
	Watcher struct {
		cfg          Config
		fsw          *fsnotify.Watcher
		ignores      []string
		stdout       io.Writer
		logger       *log.Logger
		debounce     time.Duration
		pollInterval time.Duration
		baseDir      string
		started      atomic.Bool

		// stamps is the last polling snapshot. Only Run touches it after New.
		stamps map[string]fileStamp
	}

	fileStamp struct {
		modTime time.Time
		size    int64
	}
)

// New creates a Watcher from the given Config. It resolves BaseDir, validates
// the patterns and registers every non-ignored directory with fsnotify. If
// fsnotify cannot be initialised, or ForcePolling is set, the Watcher polls.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}
	if info, err := os.Stat(absBase); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch: base %q is not a directory", absBase)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:          cfg,
		ignores:      slices.Concat(defaultIgnores, cfg.Ignore),
		stdout:       cmp.Or(cfg.Stdout, io.Writer(os.Stdout)),
		logger:       cfg.Logger,
		debounce:     cfg.Debounce,
		pollInterval: cfg.PollInterval,
		baseDir:      absBase,
	}
	if w.logger == nil {
		w.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}

	if !cfg.ForcePolling {
		if err := w.startNotify(); err != nil {
			w.logger.Warn("file system events unavailable, polling instead",
				"interval", w.pollInterval, "err", err)
		}
	}
	if w.fsw == nil {
		w.stamps = w.snapshot()
	}

	return w, nil
}

// startNotify creates the fsnotify watcher and registers directories. On
// failure w.fsw stays nil.
func (w *Watcher) startNotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify after init failure", "err", closeErr)
		}
		w.fsw = nil
		return err
	}
	return nil
}

// Mode reports whether the Watcher uses fsnotify or polling.
func (w *Watcher) Mode() Mode {
	if w.fsw == nil {
		return ModePolling
	}
	return ModeNotify
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and propagates fatal watcher errors. A second
// call returns an error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run from time.AfterFunc after ctx is cancelled, hence the
	// ctx check. Callbacks never overlap: a fire that finds one in progress
	// reschedules itself so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Warn("skipping re-run, previous run still in progress")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.ClearScreen {
			// Clear screen and move the cursor home.
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("callback failed", "err", err)
			}
		}
	}

	schedule := func(rel string) {
		mu.Lock()
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.AfterFunc(w.debounce, fire)
		} else {
			timer.Reset(w.debounce)
		}
		mu.Unlock()
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
		tick   <-chan time.Time
	)
	if w.fsw != nil {
		events, errs = w.fsw.Events, w.fsw.Errors
	} else {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				w.logger.Warn("close fsnotify", "err", closeErr)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-tick:
			for _, rel := range w.poll() {
				schedule(rel)
			}

		case evt, ok := <-events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.isIgnored(rel) {
				continue
			}

			// Extend the recursive watch to directories created after start.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			if !w.matchesPatterns(rel) {
				continue
			}
			schedule(filepath.ToSlash(rel))

		case err, ok := <-errs:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			// isFatalFsnotifyError is platform-specific (see watcher_fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// poll rescans the tree and returns the paths created, modified or removed
// since the previous scan.
func (w *Watcher) poll() []string {
	current := w.snapshot()
	var changed []string
	for rel, stamp := range current {
		if prev, ok := w.stamps[rel]; !ok || prev != stamp {
			changed = append(changed, rel)
		}
	}
	for rel := range w.stamps {
		if _, ok := current[rel]; !ok {
			changed = append(changed, rel)
		}
	}
	w.stamps = current
	return changed
}

// snapshot records the modification time and size of every matching file.
func (w *Watcher) snapshot() map[string]fileStamp {
	stamps := make(map[string]fileStamp)
	_ = filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if d.IsDir() {
			if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.isIgnored(rel) || !w.matchesPatterns(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // file vanished mid-walk
		}
		stamps[filepath.ToSlash(rel)] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return stamps
}

// addDirectories walks BaseDir and adds every non-ignored directory to the
// fsnotify watcher. Pattern filtering happens when events arrive.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir adds path to the fsnotify watcher if it is a non-ignored
// directory.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}

	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("add new directory", "path", path, "err", addErr)
	}
}

// isIgnored reports whether rel (relative to BaseDir) matches any ignore
// pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matchesPatterns reports whether rel matches a watch pattern. With no
// patterns configured every path matches.
func (w *Watcher) matchesPatterns(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	return matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns checks that every pattern is a valid doublestar glob.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if pat == "" || !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
