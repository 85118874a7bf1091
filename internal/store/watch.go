package store

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change names a record file that was written or removed.
type Change struct {
	Key     string
	Removed bool
	File    string
}

// Watcher reports edits to a file store's records. Bursts of events for
// the same file are coalesced into one Change.
type Watcher struct {
	Dir     string
	Changes <-chan Change

	changes  chan Change
	done     chan struct{}
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for the records in dir.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, 16)
	return &Watcher{
		Dir:      dir,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	removed := make(map[string]bool)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.emit(file, removed[file])
				}
				return
			}
			if _, isRecord := KeyOf(event.Name); !isRecord {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				pending[event.Name] = time.Now()
				removed[event.Name] = true
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				pending[event.Name] = time.Now()
				removed[event.Name] = false
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= w.debounce {
					w.emit(file, removed[file])
					delete(pending, file)
					delete(removed, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are not fatal; the next event still arrives.
		}
	}
}

func (w *Watcher) emit(file string, removed bool) {
	key, _ := KeyOf(file)
	w.changes <- Change{Key: key, Removed: removed, File: file}
}
