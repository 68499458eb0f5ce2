// Package watch re-runs an action when the Go sources below a root change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conduit-lang/tunables/compiler/callgraph"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long changes are collected before the callback runs.
const DefaultDelay = 100 * time.Millisecond

// SourceWatcher monitors the package directories of a source tree and
// calls onChange with the Go files that changed
type SourceWatcher struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	onChange  func([]string) error
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewSourceWatcher creates a watcher for root. Directories skipped by the
// call-graph index are not watched, and test files never trigger onChange.
func NewSourceWatcher(root string, delay time.Duration, onChange func([]string) error) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	sw := &SourceWatcher{
		root:      root,
		watcher:   watcher,
		debouncer: NewDebouncer(delay),
		onChange:  onChange,
		logger:    logging.Named("watch"),
		stopChan:  make(chan struct{}),
	}

	sw.debouncer.SetCallback(func(files []string) {
		if err := sw.onChange(files); err != nil {
			sw.logger.Error("change handler failed", zap.Error(err))
		}
	})

	return sw, nil
}

// Start adds every package directory below root and begins watching
func (sw *SourceWatcher) Start() error {
	err := filepath.WalkDir(sw.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != sw.root && callgraph.SkipDir(p) {
			return filepath.SkipDir
		}
		return sw.add(p)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", sw.root, err)
	}

	sw.wg.Add(1)
	go sw.watch()
	return nil
}

func (sw *SourceWatcher) add(dir string) error {
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	sw.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (sw *SourceWatcher) Stop() error {
	var err error
	sw.stopOnce.Do(func() {
		close(sw.stopChan)
		sw.wg.Wait()
		sw.debouncer.Stop()
		err = sw.watcher.Close()
	})
	return err
}

// Run starts the watcher and blocks until ctx is done. The watcher is
// closed when Run returns, including when it fails to start.
func (sw *SourceWatcher) Run(ctx context.Context) error {
	if err := sw.Start(); err != nil {
		_ = sw.Stop()
		return err
	}
	<-ctx.Done()
	return sw.Stop()
}

// watch is the main event loop
func (sw *SourceWatcher) watch() {
	defer sw.wg.Done()

	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handle(event)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("watch error", zap.Error(err))

		case <-sw.stopChan:
			return
		}
	}
}

func (sw *SourceWatcher) handle(event fsnotify.Event) {
	// New package directories are picked up as they appear.
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if !callgraph.SkipDir(event.Name) {
			if err := sw.add(event.Name); err != nil {
				sw.logger.Warn("cannot watch new directory", zap.Error(err))
			}
		}
		return
	}

	if !callgraph.IsSource(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		sw.logger.Debug("source changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
		sw.debouncer.Add(event.Name)
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// Debouncer collects file changes and triggers callbacks after a delay
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a file and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush triggers the callback with the accumulated files, sorted
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels a pending flush. Later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
