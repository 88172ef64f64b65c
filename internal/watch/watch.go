package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkerner/trellis/internal/discover"
	"github.com/mkerner/trellis/internal/parse"
)

// Watcher signals after each quiet period that follows source changes under
// a repository tree. Directories are watched recursively with the same prune
// rules as repository discovery, and directories created while watching are
// picked up on the fly.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   []string
	log      *slog.Logger

	fs      *fsnotify.Watcher
	changes chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger routes watcher diagnostics to log.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithIgnorePrefixes drops events whose absolute path starts with any of the
// given prefixes. The rebuild target database lives inside the watched tree,
// so its path must be listed here or every rebuild would trigger the next.
func WithIgnorePrefixes(paths ...string) Option {
	return func(w *Watcher) {
		w.ignore = append(w.ignore, paths...)
	}
}

// New sets up a recursive watch over root. Call Run to start delivering
// change signals, and Close when done.
func New(root string, debounce time.Duration, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		root:     abs,
		debounce: debounce,
		log:      slog.Default(),
		fs:       fsw,
		changes:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers one signal per quiet period. Signals coalesce while the
// receiver is busy; the channel is never closed.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run pumps filesystem events until ctx is canceled or the watcher is
// closed. Each relevant event re-arms the debounce timer; when it expires a
// signal goes out on Changes.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Warn("watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// addTree registers top and every non-pruned directory below it.
func (w *Watcher) addTree(top string) error {
	return filepath.WalkDir(top, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // vanished mid-walk
		}
		if !d.IsDir() {
			return nil
		}
		if p != top && discover.PrunedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// relevant filters events down to those that can change the graph. Bare
// chmods, ignored prefixes, pruned directories, and hidden files are
// dropped. Removes and renames stay relevant whatever the name looks like,
// since the vanished path cannot be inspected; other file events must name a
// parseable source file or a manifest.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	for _, prefix := range w.ignore {
		if strings.HasPrefix(ev.Name, prefix) {
			return false
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	segs := strings.Split(filepath.ToSlash(rel), "/")
	for _, seg := range segs[:len(segs)-1] {
		if discover.PrunedDir(seg) {
			return false
		}
	}
	base := segs[len(segs)-1]
	if strings.HasPrefix(base, ".") {
		return false
	}

	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return !discover.PrunedDir(base)
	}
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	if _, ok := parse.LanguageForFile(base); ok {
		return true
	}
	return discover.ManifestFile(base)
}
