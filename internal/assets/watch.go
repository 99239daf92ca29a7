package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/logger"
)

// ErrWatcherClosed is returned when adding a directory to a closed watcher.
var ErrWatcherClosed = errors.New("asset watcher closed")

// Change describes a file that changed under a watched root.
type Change struct {
	Path    string // asset key, as accepted by Manager.Load
	Kind    Kind
	Removed bool
}

// Watcher reports changed assets under the manager's directory roots.
// Changed files are dropped from the manager's cache before they are reported.
type Watcher struct {
	mgr    *Manager
	notify *fsnotify.Watcher
	log    *zap.Logger

	changes chan Change
	errors  chan error
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher watches every directory root of mgr recursively.
func NewWatcher(mgr *Manager) (*Watcher, error) {
	n, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	w := &Watcher{
		mgr:     mgr,
		notify:  n,
		log:     logger.Named("assets"),
		changes: make(chan Change, 16),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}

	for _, dir := range mgr.Dirs() {
		if err := w.addRecursive(dir); err != nil {
			n.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Changes returns the channel of changed assets. It is closed by Close.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Errors returns the channel of watch errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// AddDir starts watching dir and its sub-directories.
func (w *Watcher) AddDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	return w.addRecursive(dir)
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return w.notify.Close()
}

func (w *Watcher) start() {
	defer w.wg.Done()
	defer close(w.changes)
	defer close(w.errors)

	for {
		select {
		case e, ok := <-w.notify.Events:
			if !ok {
				return
			}
			c, ok := w.handle(e)
			if !ok {
				continue
			}
			select {
			case w.changes <- c:
			case <-w.done:
				return
			}

		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
			select {
			case w.errors <- err:
			default:
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(e fsnotify.Event) (Change, bool) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := w.addRecursive(e.Name); err != nil {
				w.log.Warn("watching new dir", zap.String("dir", e.Name), zap.Error(err))
			}
			return Change{}, false
		}
	}
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Remove) && !e.Has(fsnotify.Rename) {
		return Change{}, false
	}

	key, ok := w.mgr.Resolve(e.Name)
	if !ok {
		return Change{}, false
	}
	w.mgr.Invalidate(key)

	c := Change{
		Path:    key,
		Kind:    KindOf(key),
		Removed: e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename),
	}
	w.log.Debug("asset changed",
		zap.String("path", c.Path),
		zap.Stringer("kind", c.Kind),
		zap.Bool("removed", c.Removed))
	return c, true
}

func (w *Watcher) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.notify.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	return nil
}
