// Package watch re-annotates conflicted files as they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hunkline/internal/conflict"
	"hunkline/internal/diff"
	"hunkline/internal/git"
)

// DefaultDelay is how long a file must stay quiet before it is re-read.
const DefaultDelay = 200 * time.Millisecond

// Update carries the fresh annotation of one watched file, or the error
// that prevented reading it.
type Update struct {
	Path string
	File diff.FileDiff
	Err  error
}

// Watcher watches a fixed set of repository-relative files. Directories are
// watched rather than files so editors that save via rename are still seen.
type Watcher struct {
	root  string
	delay time.Duration
	fsw   *fsnotify.Watcher
	paths map[string]string // absolute path -> repo-relative path
	order []string

	closeOnce sync.Once
}

func New(root string, paths []string, delay time.Duration) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no files to watch")
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{root: root, delay: delay, fsw: fsw, paths: make(map[string]string, len(paths))}
	dirs := make(map[string]struct{})
	for _, rel := range paths {
		abs := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
		if _, ok := w.paths[abs]; ok {
			continue
		}
		w.paths[abs] = rel
		w.order = append(w.order, rel)
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}

// Run sends one update per watched file, then another each time a file
// settles after a change. It returns nil when ctx is done and closes the
// watcher on exit.
func (w *Watcher) Run(ctx context.Context, out chan<- Update) error {
	defer w.Close()

	for _, rel := range w.order {
		if !w.send(ctx, out, w.read(rel)) {
			return nil
		}
	}

	deb := newDebouncer(w.delay, len(w.paths))
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			rel, watched := w.paths[filepath.Clean(event.Name)]
			if !watched || !relevant(event) {
				continue
			}
			slog.Debug("watched file changed", "path", rel, "op", event.Op.String())
			deb.schedule(ctx, rel)

		case f := <-deb.fired:
			if !deb.settle(f) {
				continue
			}
			if !w.send(ctx, out, w.read(f.rel)) {
				return nil
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) read(rel string) Update {
	data, err := git.ReadWorktreeFile(w.root, rel)
	if err != nil {
		return Update{Path: rel, Err: err}
	}
	return Update{Path: rel, File: conflict.AnnotateText(rel, string(data))}
}

func (w *Watcher) send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// relevant reports whether an event may have changed file contents. Chmod
// alone does not.
func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) ||
		event.Has(fsnotify.Remove)
}
