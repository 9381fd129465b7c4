package dockbar

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is the default debounce interval for file watch events.
const DefaultWatchDebounce = 500 * time.Millisecond

// configWatcher calls onChange when the configuration file is saved.
// The directory is watched rather than the file so that editors replacing
// the file by rename are seen.
type configWatcher struct {
	watcher  *fsnotify.Watcher
	base     string
	abs      string
	debounce time.Duration
	onChange func() error
	onError  func(error)

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func newConfigWatcher(path string, debounce time.Duration, onChange func() error, onError func(error)) (*configWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	abs, _ := filepath.Abs(path)

	cw := &configWatcher{
		watcher:   w,
		base:      filepath.Base(path),
		abs:       abs,
		debounce:  debounce,
		onChange:  onChange,
		onError:   onError,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	go cw.loop()
	return cw, nil
}

// Stop ends the watch loop and waits for it. An onChange call in progress
// is waited for too, so Stop must not be called from onChange.
func (cw *configWatcher) Stop() {
	cw.stopOnce.Do(func() { close(cw.stopCh) })
	<-cw.stoppedCh
}

func (cw *configWatcher) matches(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Base(ev.Name) == cw.base {
		return true
	}
	abs, err := filepath.Abs(ev.Name)
	return err == nil && abs == cw.abs
}

func (cw *configWatcher) loop() {
	defer close(cw.stoppedCh)
	defer cw.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-cw.stopCh:
			return
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.matches(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := cw.onChange(); err != nil && cw.onError != nil {
				cw.onError(err)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			if cw.onError != nil {
				cw.onError(err)
			}
		}
	}
}
