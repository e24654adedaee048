package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// FileWatcher calls back when one of a set of files changes. Directories are
// watched rather than the files so editors that replace a file on save are
// still seen.
type FileWatcher struct {
	files     map[string]bool
	callbacks []func(path string)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	delay     time.Duration
}

// NewFileWatcher starts watching paths. Empty paths are skipped.
func NewFileWatcher(logger *zap.Logger, paths ...string) (*FileWatcher, error) {
	return newFileWatcher(logger, debounceDelay, paths...)
}

func newFileWatcher(logger *zap.Logger, delay time.Duration, paths ...string) (*FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &FileWatcher{
		files:   make(map[string]bool),
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		delay:   delay,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("Watching directory", zap.String("dir", dir))
	}

	go w.watchLoop()
	return w, nil
}

// OnChange registers a callback run with the absolute path that changed.
func (w *FileWatcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Stop ends the watch loop.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *FileWatcher) watchLoop() {
	defer w.watcher.Close()

	timers := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.files[name] {
				continue
			}

			w.logger.Info("Watched file changed",
				zap.String("file", name),
				zap.String("operation", event.Op.String()),
			)

			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(w.delay, func() {
				w.notify(name)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			for _, t := range timers {
				t.Stop()
			}
			w.logger.Info("Stopping file watcher")
			return
		}
	}
}

func (w *FileWatcher) notify(path string) {
	w.mu.RLock()
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Watch callback panicked",
						zap.Int("callback_index", i),
						zap.Any("panic", r),
					)
				}
			}()
			cb(path)
		}()
	}
}
