// Package fswatch notifies the sync loop about changes in the local sync
// folder.
package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/sync"
)

var fs = afero.NewOsFs()

// resumeGrace is how long events are still dropped after the last Resume.
// fsnotify delivers events asynchronously, so the events caused by a
// download can arrive after the session has already resumed the watcher.
var resumeGrace = 250 * time.Millisecond

// Watcher watches a folder and everything below it. It can be paused while
// the session replaces files, so that downloads don't look like local edits.
type Watcher struct {
	root   string
	ignore sync.Ignore

	// add starts watching a directory.
	add     func(string) error
	closeFn func() error

	clock     clockwork.Clock
	paused    atomic.Int32
	resumedAt atomic.Int64
	changes   chan struct{}
}

// Watch watches for changes to the files under root that aren't ignored. An
// event is sent on Changes whenever something changes. Events that arrive
// while an event is already pending are combined.
func Watch(root string, ignore sync.Ignore) (*Watcher, error) {
	pathsToWatch, err := getPathsToWatch(root, ignore)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	w := newWatcher(root, ignore, watcher.Add, watcher.Close, watcher.Events)
	go func() {
		for err := range watcher.Errors {
			log.WithError(err).Warn("File watcher error")
		}
	}()
	return w, nil
}

func newWatcher(root string, ignore sync.Ignore, add func(string) error,
	closeFn func() error, events <-chan fsnotify.Event) *Watcher {
	w := &Watcher{
		root:    root,
		ignore:  ignore,
		add:     add,
		closeFn: closeFn,
		clock:   clockwork.NewRealClock(),
	}
	w.changes = combineUpdates(w.filter(events))
	return w
}

// Changes returns the channel that's signalled when files change.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Pause drops events until the matching call to Resume. Calls nest.
func (w *Watcher) Pause() {
	w.paused.Add(1)
}

// Resume undoes a call to Pause. Events keep being dropped for a short
// while afterwards.
func (w *Watcher) Resume() {
	w.resumedAt.Store(w.clock.Now().UnixNano())
	if w.paused.Add(-1) < 0 {
		w.paused.Store(0)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.closeFn()
}

func (w *Watcher) filter(events <-chan fsnotify.Event) <-chan fsnotify.Event {
	filtered := make(chan fsnotify.Event)
	go func() {
		defer close(filtered)
		for event := range events {
			if w.relevant(event) {
				filtered <- event
			}
		}
	}()
	return filtered
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if w.paused.Load() > 0 {
		return false
	}
	if resumed := w.resumedAt.Load(); resumed != 0 &&
		w.clock.Since(time.Unix(0, resumed)) < resumeGrace {
		return false
	}

	relativePath, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(relativePath, "..") {
		return false
	}
	if w.ignore.MatchesPath(relativePath) {
		return false
	}

	// fsnotify doesn't watch directories recursively, so new directories
	// have to be added by hand.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := fs.Stat(event.Name); err == nil && fi.IsDir() {
			w.watchNewDir(event.Name)
		}
	}
	return true
}

func (w *Watcher) watchNewDir(dir string) {
	paths, err := getChildren(w.root, dir, w.ignore)
	if err != nil {
		log.WithError(err).WithField("path", dir).Warn("Failed to list new folder")
	}

	for _, path := range append([]string{dir}, paths...) {
		if err := w.add(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to watch new folder")
		}
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

func getPathsToWatch(root string, ignore sync.Ignore) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.NewFriendlyError("%q is not a folder.", root)
	}

	// Because fsnotify doesn't watch directories recursively, we walk the
	// directory's contents and add all subdirectories.
	subpaths, err := getChildren(root, root, ignore)
	if err != nil {
		return nil, errors.WithContext(err, "get subdirs")
	}
	return append([]string{root}, subpaths...), nil
}

// getChildren returns the directories below dir that aren't ignored.
func getChildren(root, dir string, ignore sync.Ignore) (paths []string, err error) {
	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if path == dir || !fi.IsDir() {
			return nil
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			// This shouldn't happen because `path` is always a child of `root`.
			return errors.WithContext(err, "normalized path")
		}

		if ignore.MatchesPath(relativePath) {
			return filepath.SkipDir
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}
