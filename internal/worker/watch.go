package worker

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentmux/agentmux/pkg/models"
)

// Watcher reloads worker definitions when files in the workers
// directory change.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchSpecs watches dir and calls reload with freshly loaded specs
// after each change. Reload errors are logged and the previous specs
// stay in effect. Changes are debounced so one save does not trigger a
// reload per write event.
func WatchSpecs(dir string, reload func([]models.WorkerSpec)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{dir: dir, watcher: fw, done: make(chan struct{})}
	go w.loop(reload)
	return w, nil
}

func (w *Watcher) loop(reload func([]models.WorkerSpec)) {
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !specEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(200*time.Millisecond, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(200 * time.Millisecond)
			}
		case <-pending:
			timer = nil
			specs, err := LoadSpecs(w.dir)
			if err != nil {
				log.Printf("[worker] reload failed, keeping previous specs: %v", err)
				continue
			}
			log.Printf("[worker] definitions changed, reloaded %d specs", len(specs))
			reload(specs)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[worker] watch error: %v", err)
		}
	}
}

// specEvent filters for writes, creates, and removes of yaml files.
func specEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yaml" || ext == ".yml"
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
