// Package reload watches the template and static directories in debug mode
// and reports changed files after a short debounce.
package reload

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// editor droppings that should never trigger a reload
var ignoreSuffixes = []string{".swp", ".swx", ".tmp", "~", ".DS_Store"}

const DefaultDebounce = 100 * time.Millisecond

// Watcher fires onChange once per burst of events on a file.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher; debounce <= 0 uses DefaultDebounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fw:       fw,
		debounce: debounce,
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Add registers dir and all of its subdirectories.
func (w *Watcher) Add(dir string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			return w.fw.Add(path)
		}
		return nil
	})
}

// Start begins delivering events. onChange receives absolute file paths
// and is called from the watcher's own goroutines.
func (w *Watcher) Start(onChange func(path string)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				// new subdirectories join the watch list
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.fw.Add(event.Name); err != nil {
							log.Printf("[RELOAD]: failed to watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				if shouldIgnore(event.Name) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					w.schedule(event.Name, onChange)
				}

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				log.Printf("[RELOAD]: watcher error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// schedule (re)arms the per-file timer so a burst of writes yields one call
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			onChange(path)
		}
	})
}

// Stop ends monitoring and releases all resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".#") {
		return true
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
