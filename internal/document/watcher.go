package document

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/Zack-911/forgelsp/internal/logging"
	"github.com/Zack-911/forgelsp/internal/metadata"
)

// DefaultGlob matches the JSON function-definition files a
// custom-functions directory is expected to hold; other scratch files
// dropped in the same directory are ignored.
const DefaultGlob = "**/*.json"

// Watcher monitors a custom-functions directory for create/change/
// remove events and drives the metadata manager's reload/remove calls
// in response, filtering events against a glob pattern.
type Watcher struct {
	dir     string
	glob    string
	manager *metadata.Manager
	fsw     *fsnotify.Watcher

	wg   sync.WaitGroup
	done chan struct{}
}

// NewWatcher creates a Watcher rooted at dir, matching DefaultGlob.
func NewWatcher(dir string, manager *metadata.Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		glob:    DefaultGlob,
		manager: manager,
		fsw:     fsw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins processing filesystem events on a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop shuts down the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	close(w.done)
	w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watcher", "%v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		rel = filepath.Base(event.Name)
	}
	match, err := doublestar.Match(w.glob, filepath.ToSlash(rel))
	if err != nil || !match {
		return
	}

	switch {
	case event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0:
		w.manager.RemoveFunctionsAtPath(event.Name)
	case event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0:
		data, err := os.ReadFile(event.Name)
		if err != nil {
			logging.Warn("watcher", "failed to read %s: %v", event.Name, err)
			return
		}
		if err := w.manager.ReloadFile(event.Name, data); err != nil {
			logging.Warn("watcher", "%v", err)
		}
	}
}
