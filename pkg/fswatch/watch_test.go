package fswatch

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/sync"
)

var _ remote.Pauser = &Watcher{}

func TestGetPathsToWatch(t *testing.T) {
	tests := []struct {
		name     string
		dirs     []string
		files    []string
		ignore   []string
		expPaths []string
	}{
		{
			name: "Simple case -- all directories",
			dirs: []string{"/sync/tests", "/sync/src", "/sync/src/app",
				"/sync/src/app/controllers"},
			files: []string{"/sync/tests/test.js", "/sync/src/package.json",
				"/sync/src/app/controllers/index.js"},
			expPaths: []string{"/sync", "/sync/src", "/sync/src/app",
				"/sync/src/app/controllers", "/sync/tests"},
		},
		{
			name:     "Don't watch ignored paths",
			dirs:     []string{"/sync/src", "/sync/src/node_modules", "/sync/src/node_modules/express", "/sync/.git"},
			files:    []string{"/sync/src/node_modules/express/index.js"},
			ignore:   []string{"node_modules"},
			expPaths: []string{"/sync", "/sync/src"},
		},
	}

	for _, test := range tests {
		fs = afero.NewMemMapFs()
		for _, dir := range test.dirs {
			assert.NoError(t, fs.MkdirAll(dir, 0755))
		}
		for _, file := range test.files {
			assert.NoError(t, afero.WriteFile(fs, file, []byte("testfile"), 0644))
		}

		ignore, err := sync.NewIgnore(test.ignore, "")
		require.NoError(t, err)

		paths, err := getPathsToWatch("/sync", ignore)
		assert.NoError(t, err)

		// Sort for consistency.
		sort.Strings(test.expPaths)
		sort.Strings(paths)
		assert.Equal(t, test.expPaths, paths, test.name)
	}
}

func TestGetPathsToWatchErrors(t *testing.T) {
	fs = afero.NewMemMapFs()
	_, err := getPathsToWatch("/sync", sync.Ignore{})
	assert.Equal(t, errors.FileNotFound{Path: "/sync"}, err)

	assert.NoError(t, afero.WriteFile(fs, "/sync", nil, 0644))
	_, err = getPathsToWatch("/sync", sync.Ignore{})
	assert.EqualError(t, err, `"/sync" is not a folder.`)
}

func TestFilter(t *testing.T) {
	fs = afero.NewMemMapFs()
	assert.NoError(t, fs.MkdirAll("/sync/new/inner", 0755))
	assert.NoError(t, fs.MkdirAll("/sync/new/.git", 0755))

	ignore, err := sync.NewIgnore(nil, "~syncbox_")
	require.NoError(t, err)

	var added []string
	w := &Watcher{
		root:   "/sync",
		ignore: ignore,
		add: func(path string) error {
			added = append(added, path)
			return nil
		},
	}

	events := make(chan fsnotify.Event)
	filtered := w.filter(events)
	go func() {
		for _, name := range []string{"/sync/file.txt", "/sync/~syncbox_1234",
			"/sync/.git/index", "/elsewhere/file.txt", "/sync/new"} {
			events <- fsnotify.Event{Name: name, Op: fsnotify.Create}
		}
		close(events)
	}()

	var names []string
	for event := range filtered {
		names = append(names, event.Name)
	}
	assert.Equal(t, []string{"/sync/file.txt", "/sync/new"}, names)
	assert.Equal(t, []string{"/sync/new", "/sync/new/inner"}, added)
}

func TestPause(t *testing.T) {
	fs = afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	w := &Watcher{root: "/sync", clock: clock}
	event := fsnotify.Event{Name: "/sync/a", Op: fsnotify.Write}
	assert.True(t, w.relevant(event))

	w.Pause()
	w.Pause()
	w.Resume()
	clock.Advance(resumeGrace)
	assert.False(t, w.relevant(event))

	w.Resume()
	clock.Advance(resumeGrace)
	assert.True(t, w.relevant(event))

	// Extra calls to Resume don't leave the watcher unpausable.
	w.Resume()
	w.Pause()
	assert.False(t, w.relevant(event))
}

func TestEventsDelayedPastResume(t *testing.T) {
	fs = afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	w := &Watcher{root: "/sync", clock: clock}
	event := fsnotify.Event{Name: "/sync/downloaded.txt", Op: fsnotify.Write}

	// The download's write event is only read by the filter after the
	// session resumed the watcher.
	w.Pause()
	w.Resume()
	clock.Advance(resumeGrace / 2)
	assert.False(t, w.relevant(event))

	clock.Advance(resumeGrace / 2)
	assert.True(t, w.relevant(event))
}

func TestChanges(t *testing.T) {
	events := make(chan fsnotify.Event)
	closed := false
	w := newWatcher("/sync", sync.Ignore{}, func(string) error { return nil },
		func() error { closed = true; return nil }, events)

	events <- fsnotify.Event{Name: "/sync/a", Op: fsnotify.Write}
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	assert.NoError(t, w.Close())
	assert.True(t, closed)
}

func TestWatch(t *testing.T) {
	fs = afero.NewOsFs()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0755))

	w, err := Watch(root, sync.Ignore{})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "a.txt"), []byte("a"), 0644))
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestCombineUpdates(t *testing.T) {
	t.Parallel()

	updates := make(chan fsnotify.Event, 1024)
	addEvents := func(num int) {
		for i := 0; i < num; i++ {
			updates <- fsnotify.Event{}
		}
	}

	// Seed with events.
	numUpdates := 100
	addEvents(numUpdates)
	combined := combineUpdates(updates)

	// Assert that the events are being combined.
	numCombined := countEvents(combined)
	assert.True(t, numCombined < numUpdates,
		"expected less combined events (%d) than %d", numCombined, numUpdates)

	// Add more events.
	addEvents(100)
	<-combined
}

func countEvents(c chan struct{}) (n int) {
	// Block until the first event.
	<-c
	n++

	// Count the number of events until there hasn't been any new events in 500
	// milliseconds.
	for {
		select {
		case <-c:
			n++
		case <-time.After(500 * time.Millisecond):
			return n
		}
	}
}
